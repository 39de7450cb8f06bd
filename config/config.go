package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nexusforge/corechain/chain"
)

// TLSConfig holds paths to the PEM files needed for TLS. When nil or all
// paths empty, the node falls back to plain HTTP/websocket.
type TLSConfig struct {
	CACert   string `json:"ca_cert"`   // CA certificate PEM path
	NodeCert string `json:"node_cert"` // node certificate PEM path
	NodeKey  string `json:"node_key"`  // node private key PEM path
}

// TokenGenesis describes one token registered at genesis.
type TokenGenesis struct {
	TokenID    string            `json:"token_id"`
	Fungible   bool              `json:"fungible"`
	Capped     bool              `json:"capped"`
	MaxSupply  uint64            `json:"max_supply,omitempty"` // required when Capped
	Alloc      map[string]uint64 `json:"alloc,omitempty"`      // address hex → initial balance (fungible only)
}

// GenesisConfig describes the chain's initial state: its name and the
// tokens pre-registered on it.
type GenesisConfig struct {
	ChainName string         `json:"chain_name"`
	Tokens    []TokenGenesis `json:"tokens"`
}

// Config holds all node configuration.
type Config struct {
	NodeID          string        `json:"node_id"`
	DataDir         string        `json:"data_dir"`
	RPCPort         int           `json:"rpc_port"`
	GossipPort      int           `json:"gossip_port"`
	MaxBlockTxs     int           `json:"max_block_txs"` // max transactions per block; 0 → 500
	ParentChainName string        `json:"parent_chain_name,omitempty"`
	Genesis         GenesisConfig `json:"genesis"`
	TLS             *TLSConfig    `json:"tls,omitempty"`           // nil → plain transport
	RPCAuthToken    string        `json:"rpc_auth_token,omitempty"` // empty → no auth
}

// DefaultConfig returns a single-node development configuration.
func DefaultConfig() *Config {
	return &Config{
		NodeID:      "node0",
		DataDir:     "./data",
		RPCPort:     8545,
		GossipPort:  8546,
		MaxBlockTxs: 500,
		Genesis: GenesisConfig{
			ChainName: "corechain",
		},
	}
}

// Load reads a JSON config file from path and validates required fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("node_id must not be empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if !chain.ValidateName(c.Genesis.ChainName) {
		return fmt.Errorf("genesis.chain_name %q is not a valid chain name", c.Genesis.ChainName)
	}
	if c.ParentChainName != "" && !chain.ValidateName(c.ParentChainName) {
		return fmt.Errorf("parent_chain_name %q is not a valid chain name", c.ParentChainName)
	}
	if c.RPCPort <= 0 || c.RPCPort > 65535 {
		return fmt.Errorf("rpc_port must be 1-65535, got %d", c.RPCPort)
	}
	if c.GossipPort <= 0 || c.GossipPort > 65535 {
		return fmt.Errorf("gossip_port must be 1-65535, got %d", c.GossipPort)
	}
	if c.RPCPort == c.GossipPort {
		return fmt.Errorf("rpc_port and gossip_port must not be the same (%d)", c.RPCPort)
	}
	for i, tg := range c.Genesis.Tokens {
		if tg.TokenID == "" {
			return fmt.Errorf("genesis.tokens[%d]: token_id must not be empty", i)
		}
		if tg.Capped && tg.MaxSupply == 0 {
			return fmt.Errorf("genesis.tokens[%d]: capped token requires a non-zero max_supply", i)
		}
	}
	if c.TLS != nil {
		t := c.TLS
		allSet := t.CACert != "" && t.NodeCert != "" && t.NodeKey != ""
		allEmpty := t.CACert == "" && t.NodeCert == "" && t.NodeKey == ""
		if !allSet && !allEmpty {
			return fmt.Errorf("tls: all three paths (ca_cert, node_cert, node_key) must be set or all empty")
		}
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
