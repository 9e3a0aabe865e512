package deploy

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/Makepad-fr/foodchain/internal/ledger"
	"github.com/Makepad-fr/foodchain/internal/store/jsonstore"
	"github.com/Makepad-fr/foodchain/internal/wallet"
)

// Result describes a finished deployment.
type Result struct {
	ChainID  uint64
	Address  common.Address
	Deployer common.Address
	TxHash   common.Hash
}

// Deployer creates the contract once and reports where it landed.
type Deployer struct {
	Backend ledger.Backend
	Wallet  *wallet.Wallet
	Store   *jsonstore.Store // optional
	Out     io.Writer
	Log     *zap.Logger
}

// Run deploys art, waits until code exists at the new address and records it.
// Progress lines go to Out in the form "Deploying with account: ..." / "Deployed to: ...".
func (d *Deployer) Run(ctx context.Context, art *Artifact) (Result, error) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	if d.Wallet == nil {
		return Result{}, wallet.ErrNoWallet
	}
	deployer := d.Wallet.Address()
	fmt.Fprintf(d.Out, "Deploying with account: %s\n", deployer.Hex())

	chainID, err := d.Backend.ChainID(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("chain id: %w", err)
	}
	opts, err := d.Wallet.Transactor(chainID)
	if err != nil {
		return Result{}, err
	}
	opts.Context = ctx

	_, tx, _, err := bind.DeployContract(opts, art.ABI, art.Code, d.Backend)
	if err != nil {
		return Result{}, fmt.Errorf("deploy %s: %w", art.ContractName, err)
	}
	log.Info("deployment submitted",
		zap.String("contract", art.ContractName),
		zap.String("tx", tx.Hash().Hex()))

	addr, err := bind.WaitDeployed(ctx, d.Backend, tx)
	if err != nil {
		return Result{}, fmt.Errorf("wait for deployment %s: %w", tx.Hash().Hex(), err)
	}
	fmt.Fprintf(d.Out, "Deployed to: %s\n", addr.Hex())

	res := Result{
		ChainID:  chainID.Uint64(),
		Address:  addr,
		Deployer: deployer,
		TxHash:   tx.Hash(),
	}
	log.Info("contract deployed",
		zap.String("address", addr.Hex()),
		zap.Uint64("chain_id", res.ChainID))

	if d.Store != nil {
		err := d.Store.Put(jsonstore.Deployment{
			ChainID:    res.ChainID,
			Contract:   art.ContractName,
			Address:    addr.Hex(),
			Deployer:   deployer.Hex(),
			TxHash:     tx.Hash().Hex(),
			DeployedAt: time.Now().UTC(),
		})
		if err != nil {
			return res, fmt.Errorf("record deployment: %w", err)
		}
	}
	return res, nil
}
