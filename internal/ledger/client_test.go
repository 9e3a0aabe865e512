package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/foodchain/internal/ledger"
	"github.com/Makepad-fr/foodchain/internal/ledger/ledgertest"
	"github.com/Makepad-fr/foodchain/internal/wallet"
)

var contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func testWallet(t *testing.T) *wallet.Wallet {
	key, err := crypto.HexToECDSA("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	return wallet.FromKey(key)
}

func newClient(t *testing.T, opts ...ledger.Option) (*ledger.Client, *ledgertest.Chain) {
	chain := ledgertest.NewChain()
	chain.Install(contractAddr)
	c, err := ledger.NewClient(chain, contractAddr, opts...)
	require.NoError(t, err)
	return c, chain
}

func TestABI(t *testing.T) {
	parsed, err := ledger.ABI()
	require.NoError(t, err)
	for _, name := range []string{ledger.MethodAddItem, ledger.MethodGetItem, ledger.MethodItemCount} {
		_, ok := parsed.Methods[name]
		assert.True(t, ok, name)
	}
	assert.Equal(t, "addItem(string,string)", parsed.Methods[ledger.MethodAddItem].Sig)
	assert.Equal(t, "getItem(uint256)", parsed.Methods[ledger.MethodGetItem].Sig)
	assert.Len(t, parsed.Methods[ledger.MethodGetItem].Outputs, 3)
}

func TestReadOnlyClient(t *testing.T) {
	c, chain := newClient(t)
	ts := time.Unix(1_700_000_000, 0)
	chain.Seed(contractAddr, "Wheat", "Kansas, USA", ts)

	_, connected := c.Account()
	assert.False(t, connected)

	items, err := c.Items(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint64(0), items[0].ID)
	assert.Equal(t, "Wheat", items[0].Name)
	assert.Equal(t, "Kansas, USA", items[0].Origin)
	assert.True(t, ts.Equal(items[0].Timestamp))

	_, err = c.AddItem(context.Background(), "x", "y")
	assert.ErrorIs(t, err, ledger.ErrNotConnected)
	assert.Zero(t, chain.Sent())
}

func TestConnectWithoutWallet(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.Connect(context.Background(), nil)
	assert.ErrorIs(t, err, wallet.ErrNoWallet)
	_, connected := c.Account()
	assert.False(t, connected)
}

func TestConnectChainMismatch(t *testing.T) {
	c, _ := newClient(t, ledger.WithChainID(1))
	_, err := c.Connect(context.Background(), testWallet(t))
	assert.ErrorIs(t, err, ledger.ErrChainID)
}

func TestAddItemThenRefresh(t *testing.T) {
	ctx := context.Background()
	c, chain := newClient(t, ledger.WithChainID(ledgertest.ChainID))
	w := testWallet(t)

	addr, err := c.Connect(ctx, w)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), addr)

	before, err := c.ItemCount(ctx)
	require.NoError(t, err)

	submitted := time.Now().Truncate(time.Second)
	rcpt, err := c.AddItem(ctx, "Apple Batch #123", "California, USA")
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, rcpt.TxHash)

	items, err := c.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, int(before)+1)
	last := items[len(items)-1]
	assert.Equal(t, "Apple Batch #123", last.Name)
	assert.Equal(t, "California, USA", last.Origin)
	assert.False(t, last.Timestamp.Before(submitted))
	assert.Equal(t, 1, chain.Sent())

	// second submission uses the next nonce
	_, err = c.AddItem(ctx, "Rice", "Punjab, India")
	require.NoError(t, err)
	n, err := c.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, n)
}

func TestAddItemConcurrent(t *testing.T) {
	ctx := context.Background()
	c, chain := newClient(t)
	_, err := c.Connect(ctx, testWallet(t))
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.AddItem(ctx, fmt.Sprintf("Batch #%d", i), "Kansas")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	// every submission got its own nonce
	assert.Equal(t, n, chain.Sent())
	count, err := c.ItemCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), count)

	items, err := c.Items(ctx)
	require.NoError(t, err)
	names := make(map[string]bool, n)
	for _, it := range items {
		names[it.Name] = true
	}
	assert.Len(t, names, n)
}

func TestAddItemRejectsEmptyName(t *testing.T) {
	c, chain := newClient(t)
	_, err := c.Connect(context.Background(), testWallet(t))
	require.NoError(t, err)

	_, err = c.AddItem(context.Background(), "  ", "Nowhere")
	assert.ErrorIs(t, err, ledger.ErrEmptyName)
	assert.Zero(t, chain.Sent())
}

func TestAddItemReverted(t *testing.T) {
	c, chain := newClient(t)
	_, err := c.Connect(context.Background(), testWallet(t))
	require.NoError(t, err)

	chain.RevertNext = true
	rcpt, err := c.AddItem(context.Background(), "Milk", "Normandy")
	assert.ErrorIs(t, err, ledger.ErrReverted)
	require.NotNil(t, rcpt)

	n, err := c.ItemCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAddItemSendError(t *testing.T) {
	c, chain := newClient(t)
	_, err := c.Connect(context.Background(), testWallet(t))
	require.NoError(t, err)

	boom := errors.New("insufficient funds for gas * price + value")
	chain.SendErr = boom
	_, err = c.AddItem(context.Background(), "Milk", "Normandy")
	assert.ErrorIs(t, err, boom)
}

func TestGetItemUnknownID(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.GetItem(context.Background(), 5)
	assert.ErrorIs(t, err, ledgertest.ErrExecutionReverted)
}

func TestNoContractCode(t *testing.T) {
	chain := ledgertest.NewChain()
	c, err := ledger.NewClient(chain, common.HexToAddress("0x01"))
	require.NoError(t, err)

	_, err = c.ItemCount(context.Background())
	assert.ErrorIs(t, err, bind.ErrNoCode)
}
