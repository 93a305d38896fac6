// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package properties is the configuration provider for a run: per-network
// endpoints and the ordered set of accounts the tests use.
package properties

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	flag "github.com/spf13/pflag"

	"github.com/ten-protocol/tenrunner/environment"
)

const FundingAccountName = "funding"

var ErrNoFundingKey = errors.New("no funding key configured")

type NetworkConfig struct {
	Host          string `koanf:"host"`
	HTTPPort      int    `koanf:"http-port"`
	WSPort        int    `koanf:"ws-port"`
	NodeHost      string `koanf:"node-host"`
	NodePortHTTP  int    `koanf:"node-port-http"`
	NodePortWS    int    `koanf:"node-port-ws"`
	ChainID       uint64 `koanf:"chain-id"`
	FaucetURL     string `koanf:"faucet-url"`
	BlockTimeSecs int    `koanf:"block-time-secs"`
}

// DefaultNetworks holds the built-in endpoints. They are loaded beneath any
// configuration file, so a file only needs the fields it changes.
var DefaultNetworks = map[environment.Environment]NetworkConfig{
	environment.TenSepolia: {
		Host: "https://testnet.ten.xyz", HTTPPort: 443, WSPort: 443,
		NodeHost: "erpc.sepolia-testnet.ten.xyz", NodePortHTTP: 80, NodePortWS: 81,
		ChainID: 443, FaucetURL: "https://sepolia-faucet.ten.xyz", BlockTimeSecs: 1,
	},
	environment.TenUAT: {
		Host: "https://uat-testnet.ten.xyz", HTTPPort: 443, WSPort: 443,
		NodeHost: "erpc.uat-testnet.ten.xyz", NodePortHTTP: 80, NodePortWS: 81,
		ChainID: 443, FaucetURL: "https://uat-faucet.ten.xyz", BlockTimeSecs: 1,
	},
	environment.TenDev: {
		Host: "https://dev-testnet.ten.xyz", HTTPPort: 443, WSPort: 443,
		NodeHost: "erpc.dev-testnet.ten.xyz", NodePortHTTP: 80, NodePortWS: 81,
		ChainID: 443, FaucetURL: "https://dev-faucet.ten.xyz", BlockTimeSecs: 1,
	},
	environment.TenLocal: {
		Host: "http://127.0.0.1", HTTPPort: 3000, WSPort: 3001,
		NodeHost: "127.0.0.1", NodePortHTTP: 80, NodePortWS: 81,
		ChainID: 443, FaucetURL: "http://127.0.0.1:99", BlockTimeSecs: 1,
	},
	environment.Ganache: {
		Host: "http://127.0.0.1", HTTPPort: 8545, WSPort: 8545,
		NodeHost: "127.0.0.1", NodePortHTTP: 8545, NodePortWS: 8545,
		ChainID: 1337, BlockTimeSecs: 1,
	},
	environment.ArbitrumSepolia: {
		Host: "https://sepolia-rollup.arbitrum.io/rpc", HTTPPort: 443, WSPort: 443,
		NodeHost: "sepolia-rollup.arbitrum.io", NodePortHTTP: 443, NodePortWS: 443,
		ChainID: 421614, BlockTimeSecs: 1,
	},
	environment.Sepolia: {
		Host: "https://rpc.sepolia.org", HTTPPort: 443, WSPort: 443,
		NodeHost: "rpc.sepolia.org", NodePortHTTP: 443, NodePortWS: 443,
		ChainID: 11155111, BlockTimeSecs: 12,
	},
}

// NetworkDefaultsMap flattens DefaultNetworks into koanf keys under prefix.
func NetworkDefaultsMap(prefix string) map[string]interface{} {
	out := make(map[string]interface{})
	for env, n := range DefaultNetworks {
		base := prefix + "." + env.String() + "."
		out[base+"host"] = n.Host
		out[base+"http-port"] = n.HTTPPort
		out[base+"ws-port"] = n.WSPort
		out[base+"node-host"] = n.NodeHost
		out[base+"node-port-http"] = n.NodePortHTTP
		out[base+"node-port-ws"] = n.NodePortWS
		out[base+"chain-id"] = n.ChainID
		out[base+"faucet-url"] = n.FaucetURL
		out[base+"block-time-secs"] = n.BlockTimeSecs
	}
	return out
}

type Config struct {
	Networks              map[string]NetworkConfig `koanf:"network"`
	FundingKey            string                   `koanf:"funding-key"`
	Accounts              []string                 `koanf:"accounts"`
	GanacheBinary         string                   `koanf:"ganache-binary"`
	WalletExtensionBinary string                   `koanf:"wallet-extension-binary"`
}

var ConfigDefault = Config{
	Networks:              nil,
	FundingKey:            "",
	Accounts:              nil,
	GanacheBinary:         "ganache",
	WalletExtensionBinary: "artifacts/wallet_extension/wallet_extension",
}

func ConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.String(prefix+".funding-key", ConfigDefault.FundingKey, "hex private key of the account used to seed test accounts")
	f.StringSlice(prefix+".accounts", ConfigDefault.Accounts, "ordered test accounts as name=hexkey")
	f.String(prefix+".ganache-binary", ConfigDefault.GanacheBinary, "path to the ganache binary")
	f.String(prefix+".wallet-extension-binary", ConfigDefault.WalletExtensionBinary, "path to the wallet extension binary")
}

// NamedKey associates a logical account name with its key material.
type NamedKey struct {
	Name string
	Key  *ecdsa.PrivateKey
}

func (k NamedKey) Address() common.Address {
	return crypto.PubkeyToAddress(k.Key.PublicKey)
}

// KeyFromHex loads a key given as hex, with or without the 0x prefix.
func KeyFromHex(name, hexKey string) (NamedKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return NamedKey{}, fmt.Errorf("invalid private key for account %s: %w", name, err)
	}
	return NamedKey{Name: name, Key: key}, nil
}

// ParseNamedKey parses a name=hexkey entry.
func ParseNamedKey(entry string) (NamedKey, error) {
	name, hexKey, ok := strings.Cut(entry, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return NamedKey{}, errors.New("account entry must have the form name=hexkey")
	}
	return KeyFromHex(strings.TrimSpace(name), hexKey)
}

// Properties answers configuration queries for a run.
type Properties struct {
	config   *Config
	accounts []NamedKey
	funding  NamedKey
}

func New(config *Config) (*Properties, error) {
	p := &Properties{config: config}
	if config.FundingKey != "" {
		funding, err := KeyFromHex(FundingAccountName, config.FundingKey)
		if err != nil {
			return nil, err
		}
		p.funding = funding
	}
	seen := make(map[string]bool)
	for i, entry := range config.Accounts {
		account, err := ParseNamedKey(entry)
		if err != nil {
			return nil, fmt.Errorf("accounts[%d]: %w", i, err)
		}
		if seen[account.Name] {
			return nil, fmt.Errorf("accounts[%d]: duplicate account name %s", i, account.Name)
		}
		seen[account.Name] = true
		p.accounts = append(p.accounts, account)
	}
	return p, nil
}

func (p *Properties) network(env environment.Environment) NetworkConfig {
	if n, ok := p.config.Networks[env.String()]; ok {
		return n
	}
	return DefaultNetworks[env]
}

func (p *Properties) Host(env environment.Environment) string {
	return p.network(env).Host
}

func (p *Properties) HTTPPort(env environment.Environment) int {
	return p.network(env).HTTPPort
}

func (p *Properties) WSPort(env environment.Environment) int {
	return p.network(env).WSPort
}

func (p *Properties) ChainID(env environment.Environment) uint64 {
	return p.network(env).ChainID
}

func (p *Properties) FaucetURL(env environment.Environment) string {
	return p.network(env).FaucetURL
}

func (p *Properties) BlockTimeSecs(env environment.Environment) int {
	return p.network(env).BlockTimeSecs
}

// NodeHost returns override when set, so a run can be pointed at a specific node.
func (p *Properties) NodeHost(env environment.Environment, override string) string {
	if override != "" {
		return override
	}
	return p.network(env).NodeHost
}

func (p *Properties) NodePortHTTP(env environment.Environment) int {
	return p.network(env).NodePortHTTP
}

func (p *Properties) NodePortWS(env environment.Environment) int {
	return p.network(env).NodePortWS
}

// GatewayURL is the base url of the gateway, host:port.
func (p *Properties) GatewayURL(env environment.Environment) string {
	n := p.network(env)
	return fmt.Sprintf("%s:%d", n.Host, n.HTTPPort)
}

// NodeRPCURL is the plain http JSON-RPC endpoint of a node.
func (p *Properties) NodeRPCURL(env environment.Environment, override string) string {
	return fmt.Sprintf("http://%s:%d", p.NodeHost(env, override), p.NodePortHTTP(env))
}

// Accounts returns the test accounts in configuration order. The order is the
// order in which accounts are registered and funded.
func (p *Properties) Accounts() []NamedKey {
	return p.accounts
}

func (p *Properties) FundingKey() (NamedKey, error) {
	if p.funding.Key == nil {
		return NamedKey{}, ErrNoFundingKey
	}
	return p.funding, nil
}

// FundingKeyHex is the raw funding key, needed to seed a managed chain.
func (p *Properties) FundingKeyHex() string {
	return strings.TrimPrefix(p.config.FundingKey, "0x")
}

func (p *Properties) GanacheBinary() string {
	return p.config.GanacheBinary
}

func (p *Properties) WalletExtensionBinary() string {
	return p.config.WalletExtensionBinary
}
