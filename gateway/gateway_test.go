// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package gateway_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/require"

	"github.com/ten-protocol/tenrunner/gateway"
	"github.com/ten-protocol/tenrunner/gateway/gatewaytest"
)

const testToken = "5a6b7c8d9e0f11223344556677889900aabbccdd"

func newGateway(t *testing.T) *gatewaytest.Gateway {
	t.Helper()
	gw, err := gatewaytest.New(443, testToken)
	require.NoError(t, err)
	t.Cleanup(gw.Close)
	return gw
}

func TestJoinReturnsToken(t *testing.T) {
	gw := newGateway(t)
	client := gateway.NewClient(gw.URL()+"/", gw.ChainID, nil)
	token, err := client.Join(context.Background())
	require.NoError(t, err)
	require.Equal(t, testToken, token)
	require.Equal(t, gw.URL()+"/v1/?token="+testToken, client.RPCURL(token))
}

func TestJoinFailure(t *testing.T) {
	gw := newGateway(t)
	gw.SetJoinStatus(http.StatusServiceUnavailable)
	client := gateway.NewClient(gw.URL(), gw.ChainID, nil)
	_, err := client.Join(context.Background())
	require.ErrorIs(t, err, gateway.ErrJoinFailed)
}

func TestRegisterSignsTypedData(t *testing.T) {
	gw := newGateway(t)
	client := gateway.NewClient(gw.URL(), gw.ChainID, nil)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	ok, err := client.Register(context.Background(), key, testToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), gw.Registered()[0])
}

func TestRegisterRejectedIsNotAnError(t *testing.T) {
	gw := newGateway(t)
	client := gateway.NewClient(gw.URL(), gw.ChainID, nil)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	gw.Reject(crypto.PubkeyToAddress(key.PublicKey))

	ok, err := client.Register(context.Background(), key, testToken)
	require.NoError(t, err)
	require.False(t, ok)

	// signed for a different chain, the gateway recovers a different address
	other := gateway.NewClient(gw.URL(), 1, nil)
	key2, err := crypto.GenerateKey()
	require.NoError(t, err)
	ok, err = other.Register(context.Background(), key2, testToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRegisterWithMalformedToken(t *testing.T) {
	gw := newGateway(t)
	client := gateway.NewClient(gw.URL(), gw.ChainID, nil)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	_, err = client.Register(context.Background(), key, "not-hex")
	require.Error(t, err)
}

func TestSignatureRecoversSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sig, err := gateway.SignAuthentication(key, 443, testToken)
	require.NoError(t, err)
	require.Len(t, sig, crypto.SignatureLength)
	require.Contains(t, []byte{27, 28}, sig[crypto.RecoveryIDOffset])

	hash, _, err := apitypes.TypedDataAndHash(gateway.AuthenticationTypedData(443, testToken))
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(hash, sig)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(*pub))
}
