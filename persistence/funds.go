// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package persistence

import (
	"math/big"
	"time"

	"github.com/ten-protocol/tenrunner/environment"
)

// FundsTable is a time series of account balances in wei.
type FundsTable struct {
	table
}

func NewFundsTable(dir string) *FundsTable {
	return &FundsTable{table: newTable(dir, "funds")}
}

func (f *FundsTable) Create() error { return f.create() }
func (f *FundsTable) Close() error  { return f.close() }

func (f *FundsTable) Insert(name string, env environment.Environment, at time.Time, balance *big.Int) error {
	return f.set(seriesKey(env, name, at), balance.Bytes())
}

// Latest returns the most recent balance recorded for the account.
func (f *FundsTable) Latest(name string, env environment.Environment) (*big.Int, time.Time, bool, error) {
	key, value, ok, err := f.last(joinKey(env, name))
	if err != nil || !ok {
		return nil, time.Time{}, false, err
	}
	return new(big.Int).SetBytes(value), seriesTime(key), true, nil
}
