// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package reconcile

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"

	"github.com/ten-protocol/tenrunner/environment"
	"github.com/ten-protocol/tenrunner/persistence"
	"github.com/ten-protocol/tenrunner/properties"
)

const faucetCallsPerTopUp = 2

// FundingThreshold is the funding account balance below which the faucet is called.
var FundingThreshold = new(big.Int).Mul(big.NewInt(200), big.NewInt(params.Ether))

type AccountBalance struct {
	Name    string
	Address string
	Balance *big.Int
}

// BalanceSnapshot holds the non-zero balances of the test accounts at setup,
// in account order.
type BalanceSnapshot struct {
	entries []AccountBalance
	byName  map[string]int
}

func NewBalanceSnapshot() *BalanceSnapshot {
	return &BalanceSnapshot{byName: make(map[string]int)}
}

func (s *BalanceSnapshot) Add(name, address string, balance *big.Int) {
	entry := AccountBalance{Name: name, Address: address, Balance: new(big.Int).Set(balance)}
	if i, ok := s.byName[name]; ok {
		s.entries[i] = entry
		return
	}
	s.byName[name] = len(s.entries)
	s.entries = append(s.entries, entry)
}

func (s *BalanceSnapshot) Get(name string) (*big.Int, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return new(big.Int).Set(s.entries[i].Balance), true
}

func (s *BalanceSnapshot) Entries() []AccountBalance {
	return append([]AccountBalance{}, s.entries...)
}

func (s *BalanceSnapshot) Len() int {
	return len(s.entries)
}

// Funder prepares the funding account and registers the test accounts for a
// gateway session.
type Funder struct {
	Env      environment.Environment
	Store    *persistence.Store
	Chain    ChainReader
	Gateway  Registrar
	Faucet   NativeFunder
	Token    string
	Funding  properties.NamedKey
	Accounts []properties.NamedKey
}

// Run reconciles the funding account and returns the snapshot of test
// accounts holding funds. Only reads of the funding account state abort.
func (f *Funder) Run(ctx context.Context) (*BalanceSnapshot, error) {
	funding := f.Funding.Address()
	count, err := f.Chain.NonceAt(ctx, funding, nil)
	if err != nil {
		return nil, fmt.Errorf("reading transaction count of funding account %s: %w", funding, err)
	}
	balance, err := f.Chain.BalanceAt(ctx, funding, nil)
	if err != nil {
		return nil, fmt.Errorf("reading balance of funding account %s: %w", funding, err)
	}
	f.record(count, balance)

	if count == 0 {
		log.Info("funding account transaction count is zero, clearing persistence", "env", f.Env)
		if err := f.Store.Nonce.DeleteEnvironment(f.Env); err != nil {
			return nil, err
		}
		if err := f.Store.Contracts.DeleteEnvironment(f.Env); err != nil {
			return nil, err
		}
	}

	if balance.Cmp(FundingThreshold) < 0 && !f.Env.IsSepoliaTen() {
		log.Info("funding account balance below threshold, requesting faucet funds", "address", funding, "balance", balance)
		f.topUp(ctx)
	}

	log.Info("accounts with non-zero funds")
	snapshot := NewBalanceSnapshot()
	for _, account := range f.Accounts {
		address := account.Address()
		if ok, err := f.Gateway.Register(ctx, account.Key, f.Token); err != nil {
			log.Warn("failed to register account", "account", account.Name, "address", address, "err", err)
		} else if !ok {
			log.Warn("account registration rejected", "account", account.Name, "address", address)
		}
		accountBalance, err := f.Chain.BalanceAt(ctx, address, nil)
		if err != nil {
			log.Warn("failed to read account balance", "account", account.Name, "address", address, "err", err)
			continue
		}
		if accountBalance.Sign() > 0 {
			snapshot.Add(account.Name, address.Hex(), accountBalance)
			log.Info("funds", "account", account.Name, "eth", FormatEther(accountBalance, 18))
		}
	}
	return snapshot, nil
}

func (f *Funder) topUp(ctx context.Context) {
	if f.Faucet == nil {
		log.Warn("no faucet configured", "env", f.Env)
		return
	}
	for i := 0; i < faucetCallsPerTopUp; i++ {
		if err := f.Faucet.FundNative(ctx, f.Funding.Address()); err != nil {
			log.Warn("faucet request failed", "address", f.Funding.Address(), "err", err)
		}
	}
}

func (f *Funder) record(count uint64, balance *big.Int) {
	now := time.Now()
	if err := f.Store.Funds.Insert(f.Funding.Name, f.Env, now, balance); err != nil {
		log.Warn("failed to record funding account balance", "err", err)
	}
	if err := f.Store.Counts.Insert(f.Funding.Name, f.Env, now, count); err != nil {
		log.Warn("failed to record funding account transaction count", "err", err)
	}
}

// FormatEther renders wei as ether with prec decimal places.
func FormatEther(wei *big.Int, prec int) string {
	ether := new(big.Float).SetPrec(256).SetInt(wei)
	ether.Quo(ether, new(big.Float).SetPrec(256).SetInt64(params.Ether))
	return ether.Text('f', prec)
}
