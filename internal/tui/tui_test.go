package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/foodchain/internal/app"
	"github.com/Makepad-fr/foodchain/internal/ledger"
	"github.com/Makepad-fr/foodchain/internal/ledger/ledgertest"
	"github.com/Makepad-fr/foodchain/internal/model"
	"github.com/Makepad-fr/foodchain/internal/qr"
	"github.com/Makepad-fr/foodchain/internal/wallet"
)

var contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func newModel(t *testing.T, withWallet bool) (Model, *app.Controller, *ledgertest.Chain) {
	t.Helper()
	chain := ledgertest.NewChain()
	chain.Install(contractAddr)
	l, err := ledger.NewClient(chain, contractAddr)
	require.NoError(t, err)

	var w *wallet.Wallet
	if withWallet {
		key, err := crypto.HexToECDSA("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
		require.NoError(t, err)
		w = wallet.FromKey(key)
	}
	ctrl := app.NewController(l, w, nil)
	return New(context.Background(), ctrl), ctrl, chain
}

// run executes cmd and feeds every opDoneMsg it yields back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(cmd) {
		if _, ok := msg.(opDoneMsg); !ok {
			continue
		}
		next, follow := m.Update(msg)
		m = next.(Model)
		_ = follow
	}
	return m
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func press(m Model, k string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func loaded(t *testing.T, withWallet bool) (Model, *app.Controller, *ledgertest.Chain) {
	m, ctrl, chain := newModel(t, withWallet)
	m = run(t, m, m.Init())
	require.Zero(t, m.pending)
	return m, ctrl, chain
}

func TestInitConnectsAndLoads(t *testing.T) {
	m, ctrl, chain := newModel(t, true)
	chain.Seed(contractAddr, "Flour", "Kansas", time.Now())
	m = run(t, m, m.Init())

	s := ctrl.State()
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", s.Account)
	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "Flour", m.list.Items()[0].(listItem).Name)
	assert.Contains(t, m.list.Title, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
}

func TestAddFormSubmits(t *testing.T) {
	m, ctrl, chain := loaded(t, true)

	m, _ = press(m, "a")
	require.True(t, m.adding)
	m, _ = press(m, "Apple Batch #123")
	m, _ = press(m, "tab")
	assert.Equal(t, 1, m.focus)
	m, _ = press(m, "California, USA")

	m, cmd := press(m, "enter")
	require.NotNil(t, cmd)
	assert.Equal(t, 1, m.pending)

	// a second enter while the first is in flight is ignored
	m, again := press(m, "enter")
	assert.Nil(t, again)

	m = run(t, m, cmd)
	assert.Zero(t, m.pending)
	assert.False(t, m.adding)
	assert.Equal(t, 1, chain.Sent())

	s := ctrl.State()
	require.Len(t, s.Items, 1)
	assert.Equal(t, "Apple Batch #123", s.Items[0].Name)
	assert.Equal(t, "California, USA", s.Items[0].Origin)
	assert.True(t, strings.HasPrefix(s.Alert, "Item added! TX Hash: 0x"))
	require.Len(t, m.list.Items(), 1)

	// the alert sits on top until dismissed
	assert.Contains(t, m.View(), "Item added!")
	m, _ = press(m, "enter")
	assert.Empty(t, ctrl.State().Alert)
}

func TestSubmitWithoutWallet(t *testing.T) {
	m, ctrl, chain := loaded(t, false)

	m, _ = press(m, "a")
	m, _ = press(m, "Apple")
	m, cmd := press(m, "enter")
	m = run(t, m, cmd)

	assert.Equal(t, app.AlertNotConnected, ctrl.State().Alert)
	assert.Zero(t, chain.Sent())
	// the form stays open with what was typed
	assert.True(t, m.adding)
	assert.Equal(t, "Apple", m.inputs[0].Value())
}

func TestFormEscCancels(t *testing.T) {
	m, _, _ := loaded(t, true)
	m, _ = press(m, "a")
	m, _ = press(m, "x")
	m, _ = press(m, "esc")
	assert.False(t, m.adding)
	assert.Empty(t, m.inputs[0].Value())
}

func TestQRModal(t *testing.T) {
	m, ctrl, chain := newModel(t, true)
	chain.Seed(contractAddr, "Flour", "Kansas", time.Now())
	m = run(t, m, m.Init())

	m, _ = press(m, "g")
	s := ctrl.State()
	require.True(t, s.ShowQRModal)
	p, err := qr.Decode(s.CurrentQR)
	require.NoError(t, err)
	assert.Equal(t, "Flour", p.Name)
	assert.NotEmpty(t, m.qrArt)
	assert.Contains(t, m.View(), "Item QR Code")

	m, _ = press(m, "esc")
	assert.False(t, ctrl.State().ShowQRModal)
}

func TestScannerText(t *testing.T) {
	m, ctrl, _ := loaded(t, true)

	m, _ = press(m, "s")
	require.True(t, ctrl.State().ShowScanner)

	text, err := qr.NewPayload(model.Item{ID: 4, Name: "Milk", Origin: "Vermont"}, contractAddr.Hex()).Encode()
	require.NoError(t, err)
	m, _ = press(m, text)
	m, _ = press(m, "enter")

	s := ctrl.State()
	require.NotNil(t, s.Scanned)
	assert.Equal(t, "Milk", s.Scanned.Name)
	assert.False(t, s.ShowScanner)
	assert.Contains(t, m.View(), "Scanned Item Details")

	m, _ = press(m, "esc")
	assert.Nil(t, ctrl.State().Scanned)
}

func TestScannerImagePath(t *testing.T) {
	m, ctrl, _ := loaded(t, true)

	text, err := qr.NewPayload(model.Item{ID: 1, Name: "Eggs", Origin: "Ohio"}, contractAddr.Hex()).Encode()
	require.NoError(t, err)
	png, err := qr.PNG(text, qr.DefaultSize)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "code.png")
	require.NoError(t, os.WriteFile(path, png, 0o600))

	m, _ = press(m, "s")
	m, _ = press(m, path)
	_, _ = press(m, "enter")

	s := ctrl.State()
	require.NotNil(t, s.Scanned)
	assert.Equal(t, uint64(1), s.Scanned.ID)
}

func TestScannerInvalid(t *testing.T) {
	m, ctrl, _ := loaded(t, true)

	m, _ = press(m, "s")
	m, _ = press(m, "not a payload")
	m, _ = press(m, "enter")

	s := ctrl.State()
	assert.Equal(t, app.AlertInvalidQR, s.Alert)
	assert.Nil(t, s.Scanned)
	assert.True(t, s.ShowScanner)

	// alert first, then the scanner closes on esc
	m, _ = press(m, "esc")
	assert.True(t, ctrl.State().ShowScanner)
	_, _ = press(m, "esc")
	assert.False(t, ctrl.State().ShowScanner)
}

func TestQuit(t *testing.T) {
	m, _, _ := loaded(t, true)
	_, cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestWindowSize(t *testing.T) {
	m, _, _ := loaded(t, true)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	assert.Equal(t, 116, m.list.Width())
	assert.Equal(t, 36, m.list.Height())
}
