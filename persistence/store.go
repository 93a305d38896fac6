// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package persistence keeps the state that has to survive between runs:
// nonces, contract addresses, funds, counts and results, each in its own table.
package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

const DefaultDirName = ".tentest"

// DefaultDir is the per-user directory shared by all runs.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to read users home directory: %w", err)
	}
	return filepath.Join(home, DefaultDirName), nil
}

type Store struct {
	Nonce     *NonceTable
	Contracts *ContractTable
	Funds     *FundsTable
	Counts    *CountsTable
	Results   *ResultsTable

	closeOnce sync.Once
	closeErr  error
}

// Open creates dir if needed and opens every table in it.
func Open(dir string) (*Store, error) {
	if !filepath.IsAbs(dir) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		dir = abs
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("unable to create persistence directory: %w", err)
	}
	if unix.Access(dir, unix.W_OK|unix.R_OK) != nil {
		return nil, fmt.Errorf("cannot read and write persistence directory %s", dir)
	}
	s := &Store{
		Nonce:     NewNonceTable(dir),
		Contracts: NewContractTable(dir),
		Funds:     NewFundsTable(dir),
		Counts:    NewCountsTable(dir),
		Results:   NewResultsTable(dir),
	}
	for _, create := range []func() error{s.Nonce.Create, s.Contracts.Create, s.Funds.Create, s.Counts.Create, s.Results.Create} {
		if err := create(); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// Close closes every table. Only the first call has any effect.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = errors.Join(
			s.Nonce.Close(),
			s.Contracts.Close(),
			s.Funds.Close(),
			s.Counts.Close(),
			s.Results.Close(),
		)
	})
	return s.closeErr
}
