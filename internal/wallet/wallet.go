// Package wallet supplies the signing identity used for ledger transactions.
//
// A key is resolved from the FOODCHAIN_PRIVATE_KEY env var first, then from a key
// file (default ~/.foodchain/wallet.json). The file is written owner-only.
package wallet

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	EnvPrivateKey   = "FOODCHAIN_PRIVATE_KEY"
	defaultDirName  = ".foodchain"
	defaultFileName = "wallet.json"
)

// ErrNoWallet means neither the env var nor the key file holds a key.
var ErrNoWallet = errors.New("no wallet available")

const (
	SourceEnv  = "env"
	SourceFile = "file"
)

type keyFile struct {
	PrivateKey string    `json:"private_key"`
	Address    string    `json:"address"`
	CreatedAt  time.Time `json:"created_at"`
}

// Wallet is a loaded secp256k1 key.
type Wallet struct {
	key    *ecdsa.PrivateKey
	Source string // "env" | "file"
}

// DefaultPath is ~/.foodchain/wallet.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	return filepath.Join(home, defaultDirName, defaultFileName), nil
}

// Load resolves the key: env override, then path. An empty path means DefaultPath.
func Load(path string) (*Wallet, error) {
	if env := strings.TrimSpace(os.Getenv(EnvPrivateKey)); env != "" {
		key, err := parseKey(env)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvPrivateKey, err)
		}
		return &Wallet{key: key, Source: SourceEnv}, nil
	}

	p, err := resolve(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoWallet
		}
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(b, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	key, err := parseKey(kf.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	return &Wallet{key: key, Source: SourceFile}, nil
}

// Import stores a hex private key at path and returns the wallet it describes.
func Import(path, hexKey string) (*Wallet, error) {
	key, err := parseKey(hexKey)
	if err != nil {
		return nil, err
	}
	if err := write(path, key); err != nil {
		return nil, err
	}
	return &Wallet{key: key, Source: SourceFile}, nil
}

// Generate creates a fresh key and stores it at path.
func Generate(path string) (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := write(path, key); err != nil {
		return nil, err
	}
	return &Wallet{key: key, Source: SourceFile}, nil
}

// Forget removes the key file. A missing file is not an error.
func Forget(path string) error {
	p, err := resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

// FromKey wraps an in-memory key.
func FromKey(key *ecdsa.PrivateKey) *Wallet {
	return &Wallet{key: key, Source: SourceEnv}
}

func (w *Wallet) Address() common.Address {
	return crypto.PubkeyToAddress(w.key.PublicKey)
}

// Transactor returns signing options bound to chainID.
func (w *Wallet) Transactor(chainID *big.Int) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	return opts, nil
}

func write(path string, key *ecdsa.PrivateKey) error {
	p, err := resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	kf := keyFile{
		PrivateKey: hexutil.Encode(crypto.FromECDSA(key)),
		Address:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		CreatedAt:  time.Now(),
	}
	b, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(p, b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func resolve(path string) (string, error) {
	if strings.TrimSpace(path) != "" {
		return path, nil
	}
	return DefaultPath()
}

func parseKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return nil, errors.New("empty private key")
	}
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}
