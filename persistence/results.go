// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package persistence

import (
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ten-protocol/tenrunner/environment"
)

type Result struct {
	Name     string
	Outcome  string
	Duration time.Duration
	At       time.Time
}

type storedResult struct {
	Outcome  string
	Duration uint64
}

// ResultsTable is a time series of named outcomes with their durations.
type ResultsTable struct {
	table
}

func NewResultsTable(dir string) *ResultsTable {
	return &ResultsTable{table: newTable(dir, "results")}
}

func (r *ResultsTable) Create() error { return r.create() }
func (r *ResultsTable) Close() error  { return r.close() }

func (r *ResultsTable) Insert(name string, env environment.Environment, at time.Time, outcome string, duration time.Duration) error {
	value, err := rlp.EncodeToBytes(&storedResult{Outcome: outcome, Duration: uint64(duration)})
	if err != nil {
		return err
	}
	return r.set(seriesKey(env, name, at), value)
}

func (r *ResultsTable) Latest(name string, env environment.Environment) (*Result, error) {
	key, value, ok, err := r.last(joinKey(env, name))
	if err != nil || !ok {
		return nil, err
	}
	var stored storedResult
	if err := rlp.DecodeBytes(value, &stored); err != nil {
		return nil, err
	}
	return &Result{
		Name:     name,
		Outcome:  stored.Outcome,
		Duration: time.Duration(stored.Duration),
		At:       seriesTime(key),
	}, nil
}
