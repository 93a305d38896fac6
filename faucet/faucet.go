// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package faucet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

type Client struct {
	url        string
	httpClient *http.Client
}

func NewClient(faucetURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{url: strings.TrimRight(faucetURL, "/") + "/fund/eth", httpClient: httpClient}
}

func (c *Client) URL() string {
	return c.url
}

// FundNative asks the faucet to credit native currency to address.
func (c *Client) FundNative(ctx context.Context, address common.Address) error {
	body, err := json.Marshal(map[string]string{"address": address.Hex()})
	if err != nil {
		return err
	}
	log.Info("requesting funds from faucet", "url", c.url, "address", address)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("faucet returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
