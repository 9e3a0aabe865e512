package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/Makepad-fr/foodchain/internal/model"
	"github.com/Makepad-fr/foodchain/internal/wallet"
)

var (
	ErrNotConnected = errors.New("wallet not connected")
	ErrReverted     = errors.New("transaction reverted")
	ErrEmptyName    = errors.New("item name is empty")
	ErrChainID      = errors.New("chain id mismatch")
)

// Option tunes a Client.
type Option func(*Client)

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithChainID makes Connect refuse a node reporting another chain id. Zero disables the check.
func WithChainID(id uint64) Option {
	return func(c *Client) { c.expectChainID = id }
}

// Client is the contract proxy used by every front end.
// It is read-only until Connect succeeds.
type Client struct {
	backend       Backend
	contract      *Contract
	log           *zap.Logger
	expectChainID uint64

	// submissions are serialized so concurrent callers do not race on the nonce
	submitMu sync.Mutex

	mu      sync.RWMutex
	opts    *bind.TransactOpts
	account common.Address
}

func NewClient(backend Backend, address common.Address, opts ...Option) (*Client, error) {
	contract, err := NewContract(address, backend)
	if err != nil {
		return nil, err
	}
	c := &Client{
		backend:  backend,
		contract: contract,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *Client) ContractAddress() common.Address { return c.contract.Address() }

// Account returns the connected address, if any.
func (c *Client) Account() (common.Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.account, c.opts != nil
}

// Connect binds a signing identity. A nil wallet leaves the client read-only.
func (c *Client) Connect(ctx context.Context, w *wallet.Wallet) (common.Address, error) {
	if w == nil {
		return common.Address{}, wallet.ErrNoWallet
	}
	chainID, err := c.backend.ChainID(ctx)
	if err != nil {
		return common.Address{}, fmt.Errorf("chain id: %w", err)
	}
	if c.expectChainID != 0 && (!chainID.IsUint64() || chainID.Uint64() != c.expectChainID) {
		return common.Address{}, fmt.Errorf("%w: node reports %s, configured %d", ErrChainID, chainID, c.expectChainID)
	}
	opts, err := w.Transactor(chainID)
	if err != nil {
		return common.Address{}, err
	}

	c.mu.Lock()
	c.opts = opts
	c.account = w.Address()
	c.mu.Unlock()

	c.log.Info("wallet connected",
		zap.String("account", w.Address().Hex()),
		zap.String("source", w.Source),
		zap.Stringer("chain_id", chainID))
	return w.Address(), nil
}

// AddItem submits addItem and blocks until the transaction is mined.
// A mined transaction with a failed status is reported as ErrReverted with its receipt.
func (c *Client) AddItem(ctx context.Context, name, origin string) (*types.Receipt, error) {
	c.mu.RLock()
	base := c.opts
	c.mu.RUnlock()
	if base == nil {
		return nil, ErrNotConnected
	}
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyName
	}

	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	opts := *base
	opts.Context = ctx
	tx, err := c.contract.AddItem(&opts, name, origin)
	if err != nil {
		return nil, fmt.Errorf("submit addItem: %w", err)
	}
	c.log.Info("addItem submitted",
		zap.String("tx", tx.Hash().Hex()),
		zap.String("name", name),
		zap.String("origin", origin))

	rcpt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		c.log.Warn("addItem reverted", zap.String("tx", tx.Hash().Hex()))
		return rcpt, fmt.Errorf("%w: %s", ErrReverted, tx.Hash().Hex())
	}
	c.log.Info("addItem confirmed",
		zap.String("tx", tx.Hash().Hex()),
		zap.Stringer("block", rcpt.BlockNumber))
	return rcpt, nil
}

func (c *Client) ItemCount(ctx context.Context) (uint64, error) {
	n, err := c.contract.ItemCount(&bind.CallOpts{Context: ctx})
	if err != nil {
		return 0, fmt.Errorf("itemCount: %w", err)
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("itemCount: out of range: %s", n)
	}
	return n.Uint64(), nil
}

func (c *Client) GetItem(ctx context.Context, id uint64) (model.Item, error) {
	name, origin, ts, err := c.contract.GetItem(&bind.CallOpts{Context: ctx}, new(big.Int).SetUint64(id))
	if err != nil {
		return model.Item{}, fmt.Errorf("getItem(%d): %w", id, err)
	}
	it := model.Item{ID: id, Name: name, Origin: origin}
	if ts != nil && ts.IsInt64() {
		it.Timestamp = time.Unix(ts.Int64(), 0)
	}
	return it, nil
}

// Items fetches the whole list, one getItem per index. Any failure aborts the fetch.
func (c *Client) Items(ctx context.Context) ([]model.Item, error) {
	n, err := c.ItemCount(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]model.Item, 0, n)
	for i := uint64(0); i < n; i++ {
		it, err := c.GetItem(ctx, i)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	c.log.Debug("items fetched", zap.Uint64("count", n))
	return items, nil
}
