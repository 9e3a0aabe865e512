package qr

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Makepad-fr/foodchain/internal/model"
)

// ErrInvalid is returned for scanned text that is not a JSON payload object.
var ErrInvalid = errors.New("invalid QR code")

// Payload is the JSON object carried inside an item's QR symbol.
// There is no version field; readers only require that the text parses.
type Payload struct {
	// Ledger ids are non-negative integers. A payload whose id is negative,
	// fractional or not a number is rejected by Decode with ErrInvalid.
	ID              uint64 `json:"id"`
	Name            string `json:"name"`
	Origin          string `json:"origin"`
	ContractAddress string `json:"contractAddress"`
}

func NewPayload(it model.Item, contractAddress string) Payload {
	return Payload{
		ID:              it.ID,
		Name:            it.Name,
		Origin:          it.Origin,
		ContractAddress: contractAddress,
	}
}

// Encode returns the compact JSON text placed in the symbol.
func (p Payload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("json marshal: %w", err)
	}
	return string(b), nil
}

// Decode parses scanned text. Anything but a JSON object is rejected with ErrInvalid.
func Decode(text string) (Payload, error) {
	var p Payload
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return Payload{}, ErrInvalid
	}
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}
