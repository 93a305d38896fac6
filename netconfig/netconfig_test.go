// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package netconfig

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ten-protocol/tenrunner/util/rpcclient"
)

type obscuroAPI struct {
	fail bool
}

func (a *obscuroAPI) Config() (map[string]interface{}, error) {
	if a.fail {
		return nil, errors.New("enclave not ready")
	}
	return map[string]interface{}{
		"ManagementContractAddress": "0x0000000000000000000000000000000000000001",
		"MessageBusAddress":         "0x0000000000000000000000000000000000000002",
		"L2MessageBusAddress":       "0x0000000000000000000000000000000000000005",
		"ImportantContracts": map[string]string{
			"L1Bridge":              "0x0000000000000000000000000000000000000003",
			"L1CrossChainMessenger": "0x0000000000000000000000000000000000000004",
			"L2Bridge":              "0x0000000000000000000000000000000000000006",
			"L2CrossChainMessenger": "0x0000000000000000000000000000000000000007",
		},
	}, nil
}

func startNode(t *testing.T, fail bool) *rpcclient.RpcClient {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("obscuro", &obscuroAPI{fail: fail}))
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})
	config := rpcclient.DefaultClientConfig
	config.URL = httpServer.URL
	config.Timeout = 5 * time.Second
	client := rpcclient.NewRpcClient(func() *rpcclient.ClientConfig { return &config })
	require.NoError(t, client.Start(context.Background()))
	t.Cleanup(client.Close)
	return client
}

func TestFetchContractAddresses(t *testing.T) {
	client := startNode(t, false)
	addresses, err := FetchContractAddresses(context.Background(), client)
	require.NoError(t, err)

	expected := ContractAddresses{
		Management:            common.HexToAddress("0x01"),
		MessageBus:            common.HexToAddress("0x02"),
		L1Bridge:              common.HexToAddress("0x03"),
		L1CrossChainMessenger: common.HexToAddress("0x04"),
		L2MessageBus:          common.HexToAddress("0x05"),
		L2Bridge:              common.HexToAddress("0x06"),
		L2CrossChainMessenger: common.HexToAddress("0x07"),
	}
	if diff := cmp.Diff(expected, addresses); diff != "" {
		t.Fatalf("unexpected addresses (-want +got):\n%s", diff)
	}
	require.Len(t, addresses.Named(), 7)
	require.Equal(t, common.HexToAddress("0x03"), addresses.Named()[L1Bridge])
}

func TestFetchContractAddressesError(t *testing.T) {
	client := startNode(t, true)
	_, err := FetchContractAddresses(context.Background(), client)
	require.ErrorIs(t, err, ErrConfigUnavailable)
	require.Contains(t, err.Error(), "enclave not ready")
}
