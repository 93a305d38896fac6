// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package reconcile

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ten-protocol/tenrunner/environment"
	"github.com/ten-protocol/tenrunner/persistence"
	"github.com/ten-protocol/tenrunner/properties"
)

// NonceReconciler rewrites persisted nonces that no longer match the chain.
type NonceReconciler struct {
	Env      environment.Environment
	Nonces   *persistence.NonceTable
	Chain    ChainReader
	Accounts []properties.NamedKey
}

// Run checks every account in order. The last used nonce of an account with
// count transactions is count-1, so a count of zero maps to -1.
func (r *NonceReconciler) Run(ctx context.Context) (int, error) {
	log.Info("checking alignment of account nonce persistence")
	resets := 0
	for _, account := range r.Accounts {
		address := account.Address()
		persisted, found, err := r.Nonces.LatestNonce(address, r.Env)
		if err != nil {
			return resets, err
		}
		if !found {
			continue
		}
		count, err := r.Chain.NonceAt(ctx, address, nil)
		if err != nil {
			return resets, fmt.Errorf("reading transaction count of %s: %w", account.Name, err)
		}
		expected := int64(count) - 1
		if persisted == expected {
			continue
		}
		log.Warn("resetting persisted nonce", "account", account.Name, "persisted", persisted, "count", count)
		if err := r.Nonces.Insert(address, r.Env, expected, persistence.ReasonReset); err != nil {
			return resets, err
		}
		resets++
	}
	return resets, nil
}
