// Package config loads settings from defaults, an optional YAML file and
// FOODCHAIN_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/Makepad-fr/foodchain/internal/deploy"
	"github.com/Makepad-fr/foodchain/internal/store/jsonstore"
)

const (
	EnvPrefix = "FOODCHAIN"

	// DefaultContract is the address Hardhat assigns to the first deployment on a fresh node.
	DefaultContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	DefaultRPCURL   = "http://127.0.0.1:8545"
)

type Config struct {
	Network     Network     `mapstructure:"network"`
	Contract    Contract    `mapstructure:"contract"`
	Deployments Deployments `mapstructure:"deployments"`
	Wallet      Wallet      `mapstructure:"wallet"`
	Log         Log         `mapstructure:"log"`
	HTTP        HTTP        `mapstructure:"http"`
	UI          UI          `mapstructure:"ui"`
}

type Network struct {
	RPCURL  string `mapstructure:"rpc_url"`
	ChainID uint64 `mapstructure:"chain_id"` // 0: accept whatever the node reports
}

type Contract struct {
	Address  string `mapstructure:"address"`
	Artifact string `mapstructure:"artifact"`
}

type Deployments struct {
	File string `mapstructure:"file"`
}

type Wallet struct {
	KeyFile string `mapstructure:"key_file"` // empty: ~/.foodchain/wallet.json
}

type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type HTTP struct {
	Addr string `mapstructure:"addr"`
}

type UI struct {
	Theme   string `mapstructure:"theme"`
	NoColor bool   `mapstructure:"no_color"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network.rpc_url", DefaultRPCURL)
	v.SetDefault("network.chain_id", 0)
	v.SetDefault("contract.address", "")
	v.SetDefault("contract.artifact", deploy.DefaultArtifact)
	v.SetDefault("deployments.file", jsonstore.DefaultFileName)
	v.SetDefault("wallet.key_file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("ui.theme", "classic")
	v.SetDefault("ui.no_color", false)
}

// Load reads configuration. An empty path searches ./foodchain.yaml and
// ~/.foodchain/foodchain.yaml and tolerates neither existing.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("foodchain")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.foodchain")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Network.RPCURL)
	if err != nil || c.Network.RPCURL == "" {
		return fmt.Errorf("network.rpc_url: invalid %q", c.Network.RPCURL)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss", "":
	default:
		return fmt.Errorf("network.rpc_url: unsupported scheme %q", u.Scheme)
	}
	if c.Contract.Address != "" && !common.IsHexAddress(c.Contract.Address) {
		return fmt.Errorf("contract.address: not a hex address: %q", c.Contract.Address)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	return nil
}

// ContractAddress picks the address to talk to: an explicit contract.address wins,
// then the deployment recorded for chainID, then DefaultContract.
func (c *Config) ContractAddress(store *jsonstore.Store, chainID uint64) (common.Address, string) {
	if c.Contract.Address != "" {
		return common.HexToAddress(c.Contract.Address), "config"
	}
	if store != nil {
		if d, err := store.Get(chainID); err == nil && common.IsHexAddress(d.Address) {
			return common.HexToAddress(d.Address), "deployments"
		}
	}
	return common.HexToAddress(DefaultContract), "default"
}
