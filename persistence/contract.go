// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package persistence

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ten-protocol/tenrunner/environment"
)

// ContractTable maps contract names to deployed addresses per environment.
type ContractTable struct {
	table
}

func NewContractTable(dir string) *ContractTable {
	return &ContractTable{table: newTable(dir, "contract")}
}

func (c *ContractTable) Create() error { return c.create() }
func (c *ContractTable) Close() error  { return c.close() }

func (c *ContractTable) Insert(env environment.Environment, name string, address common.Address) error {
	return c.set(joinKey(env, name), address.Bytes())
}

func (c *ContractTable) Address(env environment.Environment, name string) (common.Address, bool, error) {
	value, ok, err := c.get(joinKey(env, name))
	if err != nil || !ok {
		return common.Address{}, false, err
	}
	return common.BytesToAddress(value), true, nil
}

// All returns every contract address stored for the environment, keyed by name.
func (c *ContractTable) All(env environment.Environment) (map[string]common.Address, error) {
	prefix := envPrefix(env)
	out := make(map[string]common.Address)
	err := c.scan(prefix, func(key, value []byte) error {
		name := strings.TrimSuffix(string(key[len(prefix):]), "/")
		out[name] = common.BytesToAddress(value)
		return nil
	})
	return out, err
}

func (c *ContractTable) DeleteEnvironment(env environment.Environment) error {
	return c.deletePrefix(envPrefix(env))
}
