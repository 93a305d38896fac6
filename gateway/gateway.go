// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package gateway implements the join and authenticate handshake against a Ten
// gateway. Join hands out a session token; each account then proves ownership
// of its key by signing that token as EIP-712 typed data.
package gateway

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	domainName        = "Ten"
	domainVersion     = "1.0"
	authenticationKey = "Encryption Token"
	primaryType       = "Authentication"

	maxResponseSize = 1 << 20
)

var ErrJoinFailed = errors.New("failed to join network")

type Client struct {
	baseURL    string
	chainID    uint64
	httpClient *http.Client
}

// NewClient creates a gateway client. baseURL is scheme://host:port with no path.
func NewClient(baseURL string, chainID uint64, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		chainID:    chainID,
		httpClient: httpClient,
	}
}

func (c *Client) JoinURL() string {
	return c.baseURL + "/v1/join/"
}

func (c *Client) AuthenticateURL(token string) string {
	return c.baseURL + "/v1/authenticate/?token=" + url.QueryEscape(token)
}

// RPCURL is the authenticated JSON-RPC endpoint for the session.
func (c *Client) RPCURL(token string) string {
	return c.baseURL + "/v1/?token=" + url.QueryEscape(token)
}

// Join obtains a session token. The token is returned as sent by the gateway.
func (c *Client) Join(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.JoinURL(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrJoinFailed, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrJoinFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", ErrJoinFailed, resp.StatusCode, string(body))
	}
	return string(body), nil
}

type authenticateRequest struct {
	Signature string `json:"signature"`
	Address   string `json:"address"`
}

// Register signs the session token with key and submits it. It reports
// whether the gateway accepted the registration; a rejection is not an error.
func (c *Client) Register(ctx context.Context, key *ecdsa.PrivateKey, token string) (bool, error) {
	signature, err := SignAuthentication(key, c.chainID, token)
	if err != nil {
		return false, err
	}
	address := crypto.PubkeyToAddress(key.PublicKey)
	body, err := json.Marshal(&authenticateRequest{
		Signature: hexutil.Encode(signature),
		Address:   address.Hex(),
	})
	if err != nil {
		return false, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.AuthenticateURL(token), bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		log.Debug("authentication rejected", "address", address, "status", resp.StatusCode, "body", string(msg))
	} else {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	}
	return ok, nil
}

// AuthenticationTypedData binds the session token to the chain. The token is
// encoded as an address, as the gateway expects.
func AuthenticationTypedData(chainID uint64, token string) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
			},
			primaryType: {
				{Name: authenticationKey, Type: "address"},
			},
		},
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:    domainName,
			Version: domainVersion,
			ChainId: math.NewHexOrDecimal256(int64(chainID)),
		},
		Message: apitypes.TypedDataMessage{
			authenticationKey: "0x" + token,
		},
	}
}

// SignAuthentication returns a 65 byte signature with V in {27, 28}.
func SignAuthentication(key *ecdsa.PrivateKey, chainID uint64, token string) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(AuthenticationTypedData(chainID, token))
	if err != nil {
		return nil, fmt.Errorf("unable to hash authentication message: %w", err)
	}
	signature, err := crypto.Sign(hash, key)
	if err != nil {
		return nil, err
	}
	signature[crypto.RecoveryIDOffset] += 27
	return signature, nil
}
