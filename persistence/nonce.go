// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package persistence

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/ten-protocol/tenrunner/environment"
)

type Reason string

const (
	ReasonNormal Reason = "NORMAL"
	ReasonReset  Reason = "RESET"
)

// NonceRecord is the last nonce used by an account on an environment.
// Nonce is -1 when the account has not used any nonce.
type NonceRecord struct {
	Address     common.Address
	Environment environment.Environment
	Nonce       int64
	Reason      Reason
	Updated     time.Time
}

// stored form keeps the next nonce so the value is always unsigned
type storedNonce struct {
	Next    uint64
	Reason  string
	Updated uint64
}

// NonceTable holds at most one record per (address, environment); an insert
// replaces the previous record.
type NonceTable struct {
	table
}

func NewNonceTable(dir string) *NonceTable {
	return &NonceTable{table: newTable(dir, "nonce")}
}

func (n *NonceTable) Create() error { return n.create() }
func (n *NonceTable) Close() error  { return n.close() }

func nonceKey(address common.Address, env environment.Environment) []byte {
	return joinKey(env, strings.ToLower(address.Hex()))
}

func (n *NonceTable) Insert(address common.Address, env environment.Environment, nonce int64, reason Reason) error {
	if nonce < -1 {
		return fmt.Errorf("invalid nonce %d for %s", nonce, address)
	}
	value, err := rlp.EncodeToBytes(&storedNonce{
		Next:    uint64(nonce + 1),
		Reason:  string(reason),
		Updated: uint64(time.Now().UnixNano()),
	})
	if err != nil {
		return err
	}
	return n.set(nonceKey(address, env), value)
}

// Get returns the current record, or nil if none exists.
func (n *NonceTable) Get(address common.Address, env environment.Environment) (*NonceRecord, error) {
	value, ok, err := n.get(nonceKey(address, env))
	if err != nil || !ok {
		return nil, err
	}
	var stored storedNonce
	if err := rlp.DecodeBytes(value, &stored); err != nil {
		return nil, fmt.Errorf("corrupt nonce record for %s: %w", address, err)
	}
	return &NonceRecord{
		Address:     address,
		Environment: env,
		Nonce:       int64(stored.Next) - 1,
		Reason:      Reason(stored.Reason),
		Updated:     time.Unix(0, int64(stored.Updated)),
	}, nil
}

// LatestNonce returns the last used nonce and whether a record exists.
func (n *NonceTable) LatestNonce(address common.Address, env environment.Environment) (int64, bool, error) {
	record, err := n.Get(address, env)
	if err != nil || record == nil {
		return 0, false, err
	}
	return record.Nonce, true, nil
}

func (n *NonceTable) DeleteEnvironment(env environment.Environment) error {
	return n.deletePrefix(envPrefix(env))
}
