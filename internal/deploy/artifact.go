package deploy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// DefaultArtifact is where Hardhat writes the compiled contract.
const DefaultArtifact = "artifacts/contracts/FoodSupplyChain.sol/FoodSupplyChain.json"

var ErrNoBytecode = errors.New("artifact has no creation bytecode")

// Artifact is the subset of a Hardhat artifact needed to deploy.
type Artifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	RawABI       json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`

	ABI  abi.ABI `json:"-"`
	Code []byte  `json:"-"`
}

// LoadArtifact reads and validates an artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return ParseArtifact(b)
}

func ParseArtifact(b []byte) (*Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}
	if len(a.RawABI) == 0 {
		return nil, errors.New("parse artifact: missing abi")
	}
	parsed, err := abi.JSON(bytes.NewReader(a.RawABI))
	if err != nil {
		return nil, fmt.Errorf("parse artifact abi: %w", err)
	}
	a.ABI = parsed

	code := strings.TrimSpace(a.Bytecode)
	if code == "" || code == "0x" {
		return nil, ErrNoBytecode
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	a.Code = common.FromHex(code)
	if len(a.Code) == 0 {
		return nil, ErrNoBytecode
	}
	return &a, nil
}
