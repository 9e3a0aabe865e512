package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// JSON-backed deployment records. Single file, human-readable, keyed by chain id.
// No locking; deploys are one-shot and the client only reads.

const DefaultFileName = "deployments.json"

// ErrNotFound means the file has no record for the requested chain.
var ErrNotFound = errors.New("no deployment recorded")

// Deployment describes one contract creation.
type Deployment struct {
	ChainID    uint64    `json:"chainId"`
	Contract   string    `json:"contractName"`
	Address    string    `json:"address"`
	Deployer   string    `json:"deployer"`
	TxHash     string    `json:"txHash"`
	DeployedAt time.Time `json:"deployedAt"`
}

type Store struct {
	path string
}

// New returns a store at path. An empty path means deployments.json in the working directory.
func New(path string) (*Store, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getwd: %w", err)
		}
		path = filepath.Join(wd, DefaultFileName)
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string { return s.path }

// Load returns every record, ordered by chain id.
func (s *Store) Load() ([]Deployment, error) {
	m, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]Deployment, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out, nil
}

// Get returns the latest record for chainID.
func (s *Store) Get(chainID uint64) (Deployment, error) {
	m, err := s.read()
	if err != nil {
		return Deployment{}, err
	}
	d, ok := m[strconv.FormatUint(chainID, 10)]
	if !ok {
		return Deployment{}, fmt.Errorf("%w for chain %d", ErrNotFound, chainID)
	}
	return d, nil
}

// Put records d, replacing any earlier record for the same chain.
func (s *Store) Put(d Deployment) error {
	m, err := s.read()
	if err != nil {
		return err
	}
	m[strconv.FormatUint(d.ChainID, 10)] = d
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

func (s *Store) read() (map[string]Deployment, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Deployment{}, nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}
	m := map[string]Deployment{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	// a file holding null decodes to a nil map
	if m == nil {
		m = map[string]Deployment{}
	}
	return m, nil
}
