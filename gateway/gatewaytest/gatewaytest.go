// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package gatewaytest provides an in-process gateway, node and faucet for tests.
package gatewaytest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/ten-protocol/tenrunner/gateway"
)

// Chain is a minimal account state served over eth_getTransactionCount and eth_getBalance.
type Chain struct {
	mutex    sync.Mutex
	nonces   map[common.Address]uint64
	balances map[common.Address]*big.Int
}

func NewChain() *Chain {
	return &Chain{
		nonces:   make(map[common.Address]uint64),
		balances: make(map[common.Address]*big.Int),
	}
}

func (c *Chain) SetNonce(address common.Address, nonce uint64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.nonces[address] = nonce
}

func (c *Chain) SetBalance(address common.Address, balance *big.Int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.balances[address] = new(big.Int).Set(balance)
}

func (c *Chain) Balance(address common.Address) *big.Int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if b, ok := c.balances[address]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

type ethAPI struct {
	chain *Chain
}

func (a *ethAPI) GetTransactionCount(_ context.Context, address common.Address, _ rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	a.chain.mutex.Lock()
	defer a.chain.mutex.Unlock()
	return hexutil.Uint64(a.chain.nonces[address]), nil
}

func (a *ethAPI) GetBalance(_ context.Context, address common.Address, _ rpc.BlockNumberOrHash) (*hexutil.Big, error) {
	return (*hexutil.Big)(a.chain.Balance(address)), nil
}

type obscuroAPI struct {
	gw *Gateway
}

func (a *obscuroAPI) Config() (map[string]interface{}, error) {
	a.gw.mutex.Lock()
	defer a.gw.mutex.Unlock()
	if a.gw.configError != "" {
		return nil, errors.New(a.gw.configError)
	}
	return map[string]interface{}{
		"ManagementContractAddress": common.HexToAddress("0x01"),
		"MessageBusAddress":         common.HexToAddress("0x02"),
		"L2MessageBusAddress":       common.HexToAddress("0x05"),
		"ImportantContracts": map[string]common.Address{
			"L1Bridge":              common.HexToAddress("0x03"),
			"L1CrossChainMessenger": common.HexToAddress("0x04"),
			"L2Bridge":              common.HexToAddress("0x06"),
			"L2CrossChainMessenger": common.HexToAddress("0x07"),
		},
	}, nil
}

// Gateway serves /v1/join/, /v1/authenticate/, /fund/eth and JSON-RPC on every other path.
type Gateway struct {
	Chain   *Chain
	ChainID uint64
	Token   string

	// FaucetAmount is credited to the requested address on every successful faucet call.
	FaucetAmount *big.Int

	mutex        sync.Mutex
	joinStatus   int
	faucetStatus int
	configError  string
	reject       map[common.Address]bool
	registered   []common.Address
	faucetCalls  []common.Address
	joins        int

	server    *httptest.Server
	rpcServer *rpc.Server
}

func New(chainID uint64, token string) (*Gateway, error) {
	g := &Gateway{
		Chain:        NewChain(),
		ChainID:      chainID,
		Token:        token,
		FaucetAmount: new(big.Int),
		joinStatus:   http.StatusOK,
		faucetStatus: http.StatusOK,
		reject:       make(map[common.Address]bool),
		rpcServer:    rpc.NewServer(),
	}
	if err := g.rpcServer.RegisterName("eth", &ethAPI{chain: g.Chain}); err != nil {
		return nil, err
	}
	if err := g.rpcServer.RegisterName("obscuro", &obscuroAPI{gw: g}); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/join/", g.join)
	mux.HandleFunc("/v1/authenticate/", g.authenticate)
	mux.HandleFunc("/fund/eth", g.fund)
	mux.Handle("/", g.rpcServer)
	g.server = httptest.NewServer(mux)
	return g, nil
}

func (g *Gateway) Close() {
	g.server.Close()
	g.rpcServer.Stop()
}

func (g *Gateway) URL() string {
	return g.server.URL
}

func (g *Gateway) Port() int {
	_, port, _ := net.SplitHostPort(g.server.Listener.Addr().String())
	p, _ := strconv.Atoi(port)
	return p
}

func (g *Gateway) SetJoinStatus(status int) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.joinStatus = status
}

func (g *Gateway) SetFaucetStatus(status int) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.faucetStatus = status
}

// SetConfigError makes obscuro_config fail with msg; empty restores success.
func (g *Gateway) SetConfigError(msg string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.configError = msg
}

func (g *Gateway) Reject(address common.Address) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.reject[address] = true
}

func (g *Gateway) Registered() []common.Address {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return append([]common.Address{}, g.registered...)
}

func (g *Gateway) FaucetCalls() []common.Address {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return append([]common.Address{}, g.faucetCalls...)
}

func (g *Gateway) Joins() int {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.joins
}

func (g *Gateway) join(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	g.mutex.Lock()
	g.joins++
	status := g.joinStatus
	g.mutex.Unlock()
	w.WriteHeader(status)
	_, _ = io.WriteString(w, g.Token)
}

type authenticateRequest struct {
	Signature string `json:"signature"`
	Address   string `json:"address"`
}

func (g *Gateway) authenticate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Query().Get("token") != g.Token {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	signature, err := hexutil.Decode(req.Signature)
	if err != nil || len(signature) != crypto.SignatureLength {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	hash, _, err := apitypes.TypedDataAndHash(gateway.AuthenticationTypedData(g.ChainID, g.Token))
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	signature[crypto.RecoveryIDOffset] -= 27
	pub, err := crypto.SigToPub(hash, signature)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	recovered := crypto.PubkeyToAddress(*pub)
	if recovered != common.HexToAddress(req.Address) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.reject[recovered] {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	g.registered = append(g.registered, recovered)
	_, _ = io.WriteString(w, "success")
}

func (g *Gateway) fund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if r.Method != http.MethodPost || json.NewDecoder(r.Body).Decode(&req) != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	address := common.HexToAddress(req.Address)
	g.mutex.Lock()
	g.faucetCalls = append(g.faucetCalls, address)
	status := g.faucetStatus
	g.mutex.Unlock()
	if status == http.StatusOK {
		g.Chain.SetBalance(address, new(big.Int).Add(g.Chain.Balance(address), g.FaucetAmount))
	}
	w.WriteHeader(status)
}
