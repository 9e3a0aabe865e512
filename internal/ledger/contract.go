package ledger

import (
	_ "embed"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:embed foodsupplychain.abi.json
var FoodSupplyChainABI string

const (
	MethodAddItem   = "addItem"
	MethodGetItem   = "getItem"
	MethodItemCount = "itemCount"
)

var parseABI = sync.OnceValues(func() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(FoodSupplyChainABI))
})

// ABI returns the parsed FoodSupplyChain interface.
func ABI() (abi.ABI, error) {
	return parseABI()
}

// Contract is a typed binding to a deployed FoodSupplyChain contract.
type Contract struct {
	address common.Address
	bound   *bind.BoundContract
}

func NewContract(address common.Address, backend bind.ContractBackend) (*Contract, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return &Contract{
		address: address,
		bound:   bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

func (c *Contract) Address() common.Address { return c.address }

// AddItem sends addItem(name, origin). The returned transaction is not yet mined.
func (c *Contract) AddItem(opts *bind.TransactOpts, name, origin string) (*types.Transaction, error) {
	return c.bound.Transact(opts, MethodAddItem, name, origin)
}

// GetItem calls getItem(id) and returns (name, origin, timestamp).
func (c *Contract) GetItem(opts *bind.CallOpts, id *big.Int) (string, string, *big.Int, error) {
	var out []interface{}
	if err := c.bound.Call(opts, &out, MethodGetItem, id); err != nil {
		return "", "", nil, err
	}
	if len(out) != 3 {
		return "", "", nil, fmt.Errorf("getItem: unexpected %d return values", len(out))
	}
	name := *abi.ConvertType(out[0], new(string)).(*string)
	origin := *abi.ConvertType(out[1], new(string)).(*string)
	ts := *abi.ConvertType(out[2], new(*big.Int)).(**big.Int)
	return name, origin, ts, nil
}

// ItemCount calls itemCount().
func (c *Contract) ItemCount(opts *bind.CallOpts) (*big.Int, error) {
	var out []interface{}
	if err := c.bound.Call(opts, &out, MethodItemCount); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("itemCount: unexpected %d return values", len(out))
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}
