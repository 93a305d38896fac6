// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package reconcile aligns locally persisted account state with the chain
// before a test run: funding top-ups, per-account registration, balance
// snapshots and nonce drift correction.
package reconcile

import (
	"context"
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainReader is the subset of ethclient.Client used for account reads.
// A nil block number reads the latest state.
type ChainReader interface {
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Registrar interface {
	Register(ctx context.Context, key *ecdsa.PrivateKey, token string) (bool, error)
}

type NativeFunder interface {
	FundNative(ctx context.Context, address common.Address) error
}
