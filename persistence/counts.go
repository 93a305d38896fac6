// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package persistence

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/ten-protocol/tenrunner/environment"
)

// CountsTable is a time series of account transaction counts.
type CountsTable struct {
	table
}

func NewCountsTable(dir string) *CountsTable {
	return &CountsTable{table: newTable(dir, "counts")}
}

func (c *CountsTable) Create() error { return c.create() }
func (c *CountsTable) Close() error  { return c.close() }

func (c *CountsTable) Insert(name string, env environment.Environment, at time.Time, count uint64) error {
	return c.set(seriesKey(env, name, at), binary.BigEndian.AppendUint64(nil, count))
}

func (c *CountsTable) Latest(name string, env environment.Environment) (uint64, time.Time, bool, error) {
	key, value, ok, err := c.last(joinKey(env, name))
	if err != nil || !ok {
		return 0, time.Time{}, false, err
	}
	if len(value) != 8 {
		return 0, time.Time{}, false, fmt.Errorf("corrupt count record for %s", name)
	}
	return binary.BigEndian.Uint64(value), seriesTime(key), true, nil
}
