package jsonstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyStore(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "deployments.json"))
	require.NoError(t, err)

	all, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = s.Get(31337)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPutGetReplace(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "out", "deployments.json"))
	require.NoError(t, err)

	first := Deployment{ChainID: 31337, Contract: "FoodSupplyChain", Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3", DeployedAt: time.Now().UTC().Truncate(time.Second)}
	require.NoError(t, s.Put(first))
	require.NoError(t, s.Put(Deployment{ChainID: 11155111, Address: "0xabc"}))

	got, err := s.Get(31337)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	second := first
	second.Address = "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"
	require.NoError(t, s.Put(second))

	all, err := s.Load()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, uint64(31337), all[0].ChainID)
	assert.Equal(t, second.Address, all[0].Address)
}

func TestCorruptFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "deployments.json")
	require.NoError(t, os.WriteFile(p, []byte("{not json"), 0o644))
	s, err := New(p)
	require.NoError(t, err)
	_, err = s.Load()
	assert.Error(t, err)
}

func TestNullFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "deployments.json")
	require.NoError(t, os.WriteFile(p, []byte("null\n"), 0o644))
	s, err := New(p)
	require.NoError(t, err)

	all, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, s.Put(Deployment{ChainID: 31337, Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}))
	d, err := s.Get(31337)
	require.NoError(t, err)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", d.Address)
}

func TestDefaultPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	s, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFileName, filepath.Base(s.Path()))
}
