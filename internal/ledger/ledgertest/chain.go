// Package ledgertest provides an in-memory node that speaks the FoodSupplyChain ABI.
//
// Chain implements ledger.Backend: it accepts signed legacy transactions, executes
// addItem and contract creation, answers itemCount/getItem calls and hands out
// receipts immediately. It exists so the proxy, the deployer and the front ends can
// be tested without a real node.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Makepad-fr/foodchain/internal/ledger"
)

// ErrExecutionReverted is what getItem returns for an unknown id.
var ErrExecutionReverted = errors.New("execution reverted")

// ChainID is the Hardhat network id.
const ChainID = 31337

// Code is placeholder runtime code installed for pre-deployed contracts.
var Code = []byte{0x60, 0x80, 0x60, 0x40, 0x52}

type record struct {
	name, origin string
	ts           int64
}

type Chain struct {
	mu       sync.Mutex
	abi      abi.ABI
	chainID  *big.Int
	signer   types.Signer
	now      func() time.Time
	block    uint64
	code     map[common.Address][]byte
	nonces   map[common.Address]uint64
	items    map[common.Address][]record
	receipts map[common.Hash]*types.Receipt
	sent     int

	// SendErr, when set, is returned by the next SendTransaction and then cleared.
	SendErr error
	// RevertNext makes the next mined transaction fail with status 0.
	RevertNext bool
}

var _ ledger.Backend = (*Chain)(nil)

func NewChain() *Chain {
	parsed, err := ledger.ABI()
	if err != nil {
		panic(err)
	}
	id := big.NewInt(ChainID)
	return &Chain{
		abi:      parsed,
		chainID:  id,
		signer:   types.LatestSignerForChainID(id),
		now:      time.Now,
		code:     make(map[common.Address][]byte),
		nonces:   make(map[common.Address]uint64),
		items:    make(map[common.Address][]record),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

// Install places contract code at addr, as if it had been deployed earlier.
func (c *Chain) Install(addr common.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.code[addr] = Code
}

// SetClock replaces the block timestamp source.
func (c *Chain) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Sent is the number of transactions accepted so far.
func (c *Chain) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// Seed appends an item directly to a contract's storage.
func (c *Chain) Seed(addr common.Address, name, origin string, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[addr] = append(c.items[addr], record{name: name, origin: origin, ts: ts.Unix()})
}

func (c *Chain) ChainID(context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

func (c *Chain) CodeAt(_ context.Context, addr common.Address, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code[addr], nil
}

func (c *Chain) PendingCodeAt(ctx context.Context, addr common.Address) ([]byte, error) {
	return c.CodeAt(ctx, addr, nil)
}

func (c *Chain) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nonces[account], nil
}

func (c *Chain) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// no BaseFee: bind falls back to legacy transactions
	return &types.Header{
		Number: new(big.Int).SetUint64(c.block),
		Time:   uint64(c.now().Unix()),
	}, nil
}

func (c *Chain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *Chain) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (c *Chain) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 300_000, nil
}

func (c *Chain) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (c *Chain) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}

func (c *Chain) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if call.To == nil {
		return nil, errors.New("call without target")
	}
	if len(c.code[*call.To]) == 0 {
		return nil, nil
	}
	method, args, err := c.unpack(call.Data)
	if err != nil {
		return nil, err
	}
	list := c.items[*call.To]
	switch method.Name {
	case ledger.MethodItemCount:
		return method.Outputs.Pack(big.NewInt(int64(len(list))))
	case ledger.MethodGetItem:
		id := args[0].(*big.Int)
		if !id.IsInt64() || id.Int64() >= int64(len(list)) {
			return nil, fmt.Errorf("%w: invalid item id", ErrExecutionReverted)
		}
		r := list[id.Int64()]
		return method.Outputs.Pack(r.name, r.origin, big.NewInt(r.ts))
	}
	return nil, fmt.Errorf("%w: %s is not a view", ErrExecutionReverted, method.Name)
}

func (c *Chain) SendTransaction(_ context.Context, tx *types.Transaction) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.SendErr; err != nil {
		c.SendErr = nil
		return err
	}
	from, err := types.Sender(c.signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if tx.Nonce() != c.nonces[from] {
		return fmt.Errorf("nonce mismatch: have %d, want %d", tx.Nonce(), c.nonces[from])
	}
	c.nonces[from]++
	c.block++
	c.sent++

	rcpt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		GasUsed:     21_000,
		BlockNumber: new(big.Int).SetUint64(c.block),
	}
	c.receipts[tx.Hash()] = rcpt

	if c.RevertNext {
		c.RevertNext = false
		rcpt.Status = types.ReceiptStatusFailed
		return nil
	}

	if tx.To() == nil {
		addr := crypto.CreateAddress(from, tx.Nonce())
		c.code[addr] = tx.Data()
		rcpt.ContractAddress = addr
		return nil
	}

	to := *tx.To()
	if len(c.code[to]) == 0 {
		return nil
	}
	method, args, err := c.unpack(tx.Data())
	if err != nil || method.Name != ledger.MethodAddItem {
		rcpt.Status = types.ReceiptStatusFailed
		return nil
	}
	c.items[to] = append(c.items[to], record{
		name:   args[0].(string),
		origin: args[1].(string),
		ts:     c.now().Unix(),
	})
	return nil
}

func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *Chain) unpack(data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("%w: short calldata", ErrExecutionReverted)
	}
	method, err := c.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrExecutionReverted, err)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrExecutionReverted, err)
	}
	return method, args, nil
}
