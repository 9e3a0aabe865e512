package app

import (
	"slices"

	"github.com/Makepad-fr/foodchain/internal/model"
	"github.com/Makepad-fr/foodchain/internal/qr"
)

// State is everything a front end renders. It mirrors the ledger as of the last
// successful fetch and is only changed by Controller event handlers.
type State struct {
	Account  string
	Contract string
	Items    []model.Item

	// add form
	ItemName string
	Origin   string

	// modals
	ShowScanner bool
	Scanned     *qr.Payload
	ShowQRModal bool
	CurrentQR   string // payload JSON shown in the QR modal

	// hash of the last mined addItem, kept when the re-fetch after it fails
	LastTx string

	Alert string
	Busy  bool
}

func (s State) clone() State {
	s.Items = slices.Clone(s.Items)
	if s.Scanned != nil {
		p := *s.Scanned
		s.Scanned = &p
	}
	return s
}

// Connected reports whether a signing account is available.
func (s State) Connected() bool { return s.Account != "" }
