// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package reconcile

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ten-protocol/tenrunner/properties"
)

// CostSummary is the total spent by the test accounts over a run. Delta is
// positive when balances went down.
type CostSummary struct {
	Available bool
	Delta     *big.Int
	Err       error
}

// ComputeCost re-registers every account, reads its balance and sums the
// difference against the snapshot. Accounts outside the snapshot are ignored.
func ComputeCost(ctx context.Context, chain ChainReader, registrar Registrar, token string, accounts []properties.NamedKey, snapshot *BalanceSnapshot) CostSummary {
	if snapshot == nil {
		return CostSummary{Err: fmt.Errorf("no balance snapshot")}
	}
	delta := new(big.Int)
	for _, account := range accounts {
		ok, err := registrar.Register(ctx, account.Key, token)
		if err != nil {
			return CostSummary{Err: fmt.Errorf("registering %s: %w", account.Name, err)}
		}
		if !ok {
			log.Warn("account registration rejected", "account", account.Name, "address", account.Address())
		}
		balance, err := chain.BalanceAt(ctx, account.Address(), nil)
		if err != nil {
			return CostSummary{Err: fmt.Errorf("reading balance of %s: %w", account.Name, err)}
		}
		if before, ok := snapshot.Get(account.Name); ok {
			delta.Add(delta, before.Sub(before, balance))
		}
	}
	return CostSummary{Available: true, Delta: delta}
}

func (c CostSummary) Log() {
	if !c.Available {
		log.Warn("cost summary unavailable", "err", c.Err)
		return
	}
	sign := ""
	if c.Delta.Sign() < 0 {
		sign = "-"
	}
	abs := new(big.Int).Abs(c.Delta)
	log.Info("total cost", "wei", sign+abs.String(), "eth", sign+FormatEther(abs, 9))
}
