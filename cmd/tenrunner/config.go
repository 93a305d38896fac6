// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package main

import (
	flag "github.com/spf13/pflag"

	"github.com/ten-protocol/tenrunner/bootstrap"
	"github.com/ten-protocol/tenrunner/cmd/genericconf"
	"github.com/ten-protocol/tenrunner/cmd/util/confighelpers"
	"github.com/ten-protocol/tenrunner/properties"
)

type TenRunnerConfig struct {
	Conf        genericconf.ConfConfig        `koanf:"conf"`
	LogLevel    string                        `koanf:"log-level"`
	LogType     string                        `koanf:"log-type"`
	FileLogging genericconf.FileLoggingConfig `koanf:"file-logging"`
	Runner      bootstrap.Config              `koanf:",squash"`
	Properties  properties.Config             `koanf:"properties"`
}

var TenRunnerConfigDefault = TenRunnerConfig{
	Conf:        genericconf.ConfConfigDefault,
	LogLevel:    "INFO",
	LogType:     "plaintext",
	FileLogging: genericconf.DefaultFileLoggingConfig,
	Runner:      bootstrap.ConfigDefault,
	Properties:  properties.ConfigDefault,
}

// keys blanked when the configuration is dumped
var redactedKeys = map[string]interface{}{
	"properties.funding-key": "",
	"properties.accounts":    []string{},
	"conf.s3.secret-key":     "",
}

func TenRunnerConfigAddOptions(f *flag.FlagSet) {
	genericconf.ConfConfigAddOptions("conf", f)
	f.String("log-level", TenRunnerConfigDefault.LogLevel, "log level, valid values are CRIT, ERROR, WARN, INFO, DEBUG, TRACE")
	f.String("log-type", TenRunnerConfigDefault.LogType, "log type (plaintext or json)")
	genericconf.FileLoggingConfigAddOptions("file-logging", f)
	bootstrap.ConfigAddOptions(f)
	properties.ConfigAddOptions("properties", f)
}

// ParseTenRunner returns the configuration and the test command given after "--".
func ParseTenRunner(args []string) (*TenRunnerConfig, []string, error) {
	f := flag.NewFlagSet("", flag.ContinueOnError)
	TenRunnerConfigAddOptions(f)

	k, err := confighelpers.BeginCommonParse(f, args, properties.NetworkDefaultsMap("properties.network"))
	if err != nil {
		return nil, nil, err
	}

	var config TenRunnerConfig
	if err := confighelpers.EndCommonParse(k, &config); err != nil {
		return nil, nil, err
	}

	if config.Conf.Dump {
		if err := confighelpers.DumpConfig(k, redactedKeys); err != nil {
			return nil, nil, err
		}
	}
	return &config, f.Args(), nil
}
