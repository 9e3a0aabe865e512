package wallet

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Hardhat's well-known first test account.
const (
	hardhatKey  = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	hardhatAddr = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func TestLoadMissing(t *testing.T) {
	t.Setenv(EnvPrivateKey, "")
	_, err := Load(filepath.Join(t.TempDir(), "wallet.json"))
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvPrivateKey, hardhatKey)
	w, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, w.Source)
	assert.Equal(t, hardhatAddr, w.Address().Hex())
}

func TestLoadBadEnv(t *testing.T) {
	t.Setenv(EnvPrivateKey, "zz")
	_, err := Load("")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoWallet)
}

func TestImportLoadForget(t *testing.T) {
	t.Setenv(EnvPrivateKey, "")
	p := filepath.Join(t.TempDir(), "nested", "wallet.json")

	w, err := Import(p, hardhatKey)
	require.NoError(t, err)
	assert.Equal(t, hardhatAddr, w.Address().Hex())

	fi, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	loaded, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, SourceFile, loaded.Source)
	assert.Equal(t, w.Address(), loaded.Address())

	require.NoError(t, Forget(p))
	require.NoError(t, Forget(p))
	_, err = Load(p)
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestGenerate(t *testing.T) {
	t.Setenv(EnvPrivateKey, "")
	p := filepath.Join(t.TempDir(), "wallet.json")
	w, err := Generate(p)
	require.NoError(t, err)

	loaded, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), loaded.Address())
}

func TestTransactor(t *testing.T) {
	key, err := crypto.HexToECDSA(hardhatKey[2:])
	require.NoError(t, err)
	w := FromKey(key)

	opts, err := w.Transactor(big.NewInt(31337))
	require.NoError(t, err)
	assert.Equal(t, w.Address(), opts.From)
	assert.Equal(t, hardhatKey, hexutil.Encode(crypto.FromECDSA(key)))
}
