// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package environment enumerates the networks a test run can target and the
// per-network limits that apply to the run.
package environment

import (
	"errors"
	"fmt"
	"strings"
)

type Environment string

const (
	TenSepolia      Environment = "ten-sepolia"
	TenUAT          Environment = "ten-uat"
	TenDev          Environment = "ten-dev"
	TenLocal        Environment = "ten-local"
	Ganache         Environment = "ganache"
	ArbitrumSepolia Environment = "arbitrum-sepolia"
	Sepolia         Environment = "sepolia"
)

var ErrUnknownEnvironment = errors.New("unknown environment")

// All lists every supported environment in the order they are presented to users.
var All = []Environment{TenSepolia, TenUAT, TenDev, TenLocal, ArbitrumSepolia, Ganache, Sepolia}

var descriptions = map[Environment]string{
	TenSepolia:      "Ten sepolia testnet",
	TenUAT:          "Ten uat testnet",
	TenDev:          "Ten dev testnet",
	TenLocal:        "Ten local testnet",
	ArbitrumSepolia: "Arbitrum Network",
	Ganache:         "Ganache Network started by the runner",
	Sepolia:         "Sepolia Network",
}

// Max concurrent test threads. Above these, tests sharing an account race on nonces.
var maxThreads = map[Environment]int{
	TenSepolia:      3,
	TenUAT:          3,
	TenDev:          3,
	TenLocal:        3,
	Ganache:         3,
	ArbitrumSepolia: 1,
	Sepolia:         1,
}

// Parse accepts both the dashed form and the dotted form (ten.sepolia).
func Parse(name string) (Environment, error) {
	env := Environment(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), ".", "-"))
	if _, ok := maxThreads[env]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEnvironment, name)
	}
	return env, nil
}

func (e Environment) String() string {
	return string(e)
}

func (e Environment) Description() string {
	return descriptions[e]
}

// IsTen is true for networks that require gateway join and authentication.
func (e Environment) IsTen() bool {
	switch e {
	case TenSepolia, TenUAT, TenDev, TenLocal:
		return true
	}
	return false
}

func (e Environment) IsLocalTen() bool {
	return e == TenLocal
}

// IsSepoliaTen is true for the remote network whose funding account is topped up out of band.
func (e Environment) IsSepoliaTen() bool {
	return e == TenSepolia
}

// IsManaged is true when the runner starts and owns the chain process.
func (e Environment) IsManaged() bool {
	return e == Ganache
}

func (e Environment) MaxThreads() int {
	return maxThreads[e]
}

// CheckThreads returns an error if threads exceeds the limit for the environment.
func (e Environment) CheckThreads(threads int) error {
	limit, ok := maxThreads[e]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEnvironment, string(e))
	}
	if threads > limit {
		return fmt.Errorf("max threads against %s cannot be greater than %d, got %d", e, limit, threads)
	}
	return nil
}
