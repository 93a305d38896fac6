// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package bootstrap

import (
	flag "github.com/spf13/pflag"

	"github.com/ten-protocol/tenrunner/util/rpcclient"
)

type WalletExtensionConfig struct {
	Enable  bool `koanf:"enable"`
	Verbose bool `koanf:"verbose"`
}

var WalletExtensionConfigDefault = WalletExtensionConfig{
	Enable:  false,
	Verbose: true,
}

func WalletExtensionConfigAddOptions(prefix string, f *flag.FlagSet) {
	f.Bool(prefix+".enable", WalletExtensionConfigDefault.Enable, "start a wallet extension for the tests to use")
	f.Bool(prefix+".verbose", WalletExtensionConfigDefault.Verbose, "run the wallet extension with verbose logging")
}

type Config struct {
	Environment     string                 `koanf:"environment"`
	Threads         int                    `koanf:"threads"`
	NodeHost        string                 `koanf:"node-host"`
	OutputDir       string                 `koanf:"output-dir"`
	PersistenceDir  string                 `koanf:"persistence-dir"`
	Node            rpcclient.ClientConfig `koanf:"node"`
	WalletExtension WalletExtensionConfig  `koanf:"wallet-extension"`
}

var ConfigDefault = Config{
	Environment:     "ten-local",
	Threads:         1,
	NodeHost:        "",
	OutputDir:       ".runner",
	PersistenceDir:  "",
	Node:            rpcclient.DefaultClientConfig,
	WalletExtension: WalletExtensionConfigDefault,
}

func ConfigAddOptions(f *flag.FlagSet) {
	f.String("environment", ConfigDefault.Environment, "network the tests run against")
	f.Int("threads", ConfigDefault.Threads, "number of concurrent test threads")
	f.String("node-host", ConfigDefault.NodeHost, "node host overriding the network default")
	f.String("output-dir", ConfigDefault.OutputDir, "directory for the output of started processes, recreated on every run")
	f.String("persistence-dir", ConfigDefault.PersistenceDir, "directory of the persisted account state (default ~/.tentest)")
	rpcclient.RPCClientAddOptions("node", f, &ConfigDefault.Node)
	WalletExtensionConfigAddOptions("wallet-extension", f)
}
