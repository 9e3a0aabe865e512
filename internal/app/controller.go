package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Makepad-fr/foodchain/internal/model"
	"github.com/Makepad-fr/foodchain/internal/qr"
	"github.com/Makepad-fr/foodchain/internal/wallet"
)

const (
	AlertContractNotLoaded = "Contract not loaded"
	AlertNotConnected      = "Wallet not connected"
	AlertEmptyName         = "Item name is required"
	AlertInvalidQR         = "Invalid QR code"

	// prefixes completed by a tx hash or an error
	AlertItemAdded  = "Item added! TX Hash: "
	AlertLoadFailed = "Could not load items: "
)

// Ledger is the contract proxy as seen by the state layer.
type Ledger interface {
	Connect(ctx context.Context, w *wallet.Wallet) (common.Address, error)
	AddItem(ctx context.Context, name, origin string) (*types.Receipt, error)
	Items(ctx context.Context) ([]model.Item, error)
	ContractAddress() common.Address
}

// Controller owns State and applies one event at a time.
// Ledger calls run without the lock held so a front end can keep rendering.
type Controller struct {
	ledger Ledger
	wallet *wallet.Wallet
	log    *zap.Logger

	mu    sync.Mutex
	state State
}

// NewController wires a ledger (nil: contract not loaded) and a wallet (nil: none installed).
func NewController(l Ledger, w *wallet.Wallet, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Controller{ledger: l, wallet: w, log: log}
	if l != nil {
		c.state.Contract = l.ContractAddress().Hex()
	}
	return c
}

// State returns a copy safe to read while handlers run.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.state)
}

// Connect asks for the wallet's account. Without a wallet the account stays empty
// and nothing is reported; other failures surface as an alert.
func (c *Controller) Connect(ctx context.Context) {
	if c.ledger == nil || c.wallet == nil {
		c.log.Info("no wallet available, running read-only")
		return
	}
	addr, err := c.ledger.Connect(ctx, c.wallet)
	if err != nil {
		if errors.Is(err, wallet.ErrNoWallet) {
			return
		}
		c.log.Warn("connect failed", zap.Error(err))
		c.update(func(s *State) { s.Alert = "Could not connect wallet: " + err.Error() })
		return
	}
	c.update(func(s *State) { s.Account = addr.Hex() })
}

func (c *Controller) SetItemName(v string) { c.update(func(s *State) { s.ItemName = v }) }
func (c *Controller) SetOrigin(v string)   { c.update(func(s *State) { s.Origin = v }) }

// Submit sends the form as a new item, waits for confirmation, clears the form and
// re-fetches the whole list. It returns false when nothing was submitted.
// Name and origin go to the ledger exactly as typed; a blank name is refused.
// Once mined, LastTx holds the hash even if the re-fetch fails.
func (c *Controller) Submit(ctx context.Context) bool {
	var name, origin string
	proceed := false
	c.update(func(s *State) {
		switch {
		case s.Busy:
			return
		case c.ledger == nil:
			s.Alert = AlertContractNotLoaded
		case !s.Connected():
			s.Alert = AlertNotConnected
		case strings.TrimSpace(s.ItemName) == "":
			s.Alert = AlertEmptyName
		default:
			name, origin = s.ItemName, s.Origin
			s.LastTx = ""
			s.Busy = true
			proceed = true
		}
	})
	if !proceed {
		return false
	}

	rcpt, err := c.ledger.AddItem(ctx, name, origin)
	if err != nil {
		c.log.Warn("add item failed", zap.Error(err))
		c.update(func(s *State) {
			s.Busy = false
			s.Alert = "Transaction failed: " + err.Error()
		})
		return true
	}

	added := AlertItemAdded + rcpt.TxHash.Hex()
	c.update(func(s *State) {
		s.Busy = false
		s.LastTx = rcpt.TxHash.Hex()
		s.Alert = added
		s.ItemName = ""
		s.Origin = ""
	})
	if err := c.fetch(ctx); err != nil {
		c.update(func(s *State) { s.Alert = added + "\n" + AlertLoadFailed + err.Error() })
	}
	return true
}

// Refresh replaces Items with a full fetch. On failure the previous snapshot stays.
func (c *Controller) Refresh(ctx context.Context) {
	if err := c.fetch(ctx); err != nil {
		c.update(func(s *State) { s.Alert = AlertLoadFailed + err.Error() })
	}
}

func (c *Controller) fetch(ctx context.Context) error {
	if c.ledger == nil {
		return nil
	}
	items, err := c.ledger.Items(ctx)
	if err != nil {
		c.log.Warn("refresh failed", zap.Error(err))
		return err
	}
	c.update(func(s *State) { s.Items = items })
	return nil
}

// ShowQR opens the QR modal for the item with the given id.
func (c *Controller) ShowQR(id uint64) {
	c.update(func(s *State) {
		it, ok := lo.Find(s.Items, func(it model.Item) bool { return it.ID == id })
		if !ok {
			s.Alert = fmt.Sprintf("Item #%d is not in the list", id)
			return
		}
		text, err := qr.NewPayload(it, s.Contract).Encode()
		if err != nil {
			s.Alert = err.Error()
			return
		}
		s.CurrentQR = text
		s.ShowQRModal = true
	})
}

func (c *Controller) CloseQR() {
	c.update(func(s *State) {
		s.ShowQRModal = false
		s.CurrentQR = ""
	})
}

func (c *Controller) OpenScanner()  { c.update(func(s *State) { s.ShowScanner = true }) }
func (c *Controller) CloseScanner() { c.update(func(s *State) { s.ShowScanner = false }) }

// HandleScan takes scanned text. Empty input is ignored; text that is not a payload
// raises an alert and leaves everything else as it was.
func (c *Controller) HandleScan(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	p, err := qr.Decode(text)
	c.update(func(s *State) {
		if err != nil {
			s.Alert = AlertInvalidQR
			return
		}
		s.Scanned = &p
		s.ShowScanner = false
	})
}

// HandleScanImage decodes a QR image and hands its text to HandleScan.
func (c *Controller) HandleScanImage(r io.Reader) {
	text, err := qr.ReadImage(r)
	if err != nil {
		c.log.Debug("qr image rejected", zap.Error(err))
		c.update(func(s *State) { s.Alert = AlertInvalidQR })
		return
	}
	c.HandleScan(text)
}

func (c *Controller) CloseScanned() { c.update(func(s *State) { s.Scanned = nil }) }
func (c *Controller) DismissAlert() { c.update(func(s *State) { s.Alert = "" }) }
