// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package faucet

import (
	"context"
	"math/big"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ten-protocol/tenrunner/gateway/gatewaytest"
)

func TestFundNative(t *testing.T) {
	gw, err := gatewaytest.New(443, "00")
	require.NoError(t, err)
	defer gw.Close()
	gw.FaucetAmount = big.NewInt(100)

	address := common.HexToAddress("0xabc")
	client := NewClient(gw.URL()+"/", nil)
	require.Equal(t, gw.URL()+"/fund/eth", client.URL())
	require.NoError(t, client.FundNative(context.Background(), address))
	require.Equal(t, []common.Address{address}, gw.FaucetCalls())
	require.Zero(t, gw.Chain.Balance(address).Cmp(big.NewInt(100)))

	gw.SetFaucetStatus(http.StatusTooManyRequests)
	require.Error(t, client.FundNative(context.Background(), address))
}
