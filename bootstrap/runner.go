// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package bootstrap prepares a target network before tests run against it and
// tears down whatever it started once they finish.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ten-protocol/tenrunner/environment"
	"github.com/ten-protocol/tenrunner/faucet"
	"github.com/ten-protocol/tenrunner/gateway"
	"github.com/ten-protocol/tenrunner/netconfig"
	"github.com/ten-protocol/tenrunner/persistence"
	"github.com/ten-protocol/tenrunner/process"
	"github.com/ten-protocol/tenrunner/properties"
	"github.com/ten-protocol/tenrunner/reconcile"
	"github.com/ten-protocol/tenrunner/util/rpcclient"
)

const (
	ResultName     = "bootstrap"
	OutcomeSuccess = "SUCCESS"
	OutcomeAborted = "ABORTED"

	ganacheName         = "ganache"
	walletExtensionName = "wallet_extension"
	ganacheBalance      = "50000000000000000000"
	cleanupTimeout      = 30 * time.Second
)

var ErrThreadLimit = errors.New("thread limit exceeded")

type Runner struct {
	config *Config
	env    environment.Environment
	props  *properties.Properties

	supervisor *process.Supervisor
	contracts  netconfig.ContractAddresses
	walletPort int

	mutex    sync.Mutex
	cleanups []func()
	handles  []*process.Handle
}

func NewRunner(config *Config, props *properties.Properties) (*Runner, error) {
	env, err := environment.Parse(config.Environment)
	if err != nil {
		return nil, err
	}
	return &Runner{config: config, env: env, props: props}, nil
}

func (r *Runner) Environment() environment.Environment {
	return r.env
}

// Handles lists the processes started by Setup.
func (r *Runner) Handles() []*process.Handle {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]*process.Handle{}, r.handles...)
}

// Contracts is the snapshot of system contract addresses fetched during setup.
func (r *Runner) Contracts() netconfig.ContractAddresses {
	return r.contracts
}

// WalletExtensionPort is the http port of the started wallet extension, zero if none.
func (r *Runner) WalletExtensionPort() int {
	return r.walletPort
}

// AddCleanup registers fn to run on Cleanup. Cleanups run in reverse order.
func (r *Runner) AddCleanup(fn func()) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.cleanups = append(r.cleanups, fn)
}

// Cleanup runs every registered cleanup once. Later calls only run cleanups
// registered since.
func (r *Runner) Cleanup() {
	r.mutex.Lock()
	cleanups := r.cleanups
	r.cleanups = nil
	r.mutex.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Setup validates the run, opens the persisted state and prepares the network.
// On failure everything started so far is cleaned up before returning.
func (r *Runner) Setup(ctx context.Context) error {
	if err := r.env.CheckThreads(r.config.Threads); err != nil {
		return fmt.Errorf("%w: %w", ErrThreadLimit, err)
	}
	start := time.Now()
	supervisor, err := process.NewSupervisor(r.config.OutputDir)
	if err != nil {
		return err
	}
	r.supervisor = supervisor

	dir := r.config.PersistenceDir
	if dir == "" {
		if dir, err = persistence.DefaultDir(); err != nil {
			return err
		}
	}
	store, err := persistence.Open(dir)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("error closing persistence", "err", err)
		}
	}()

	err = r.setup(ctx, store)
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeAborted
	}
	if recordErr := store.Results.Insert(ResultName, r.env, time.Now(), outcome, time.Since(start)); recordErr != nil {
		log.Warn("failed to record bootstrap result", "err", recordErr)
	}
	if err != nil {
		log.Error("error executing runner startup actions", "env", r.env, "err", err)
		log.Error("see the contents of the run output directory for any process output", "dir", supervisor.OutputDir())
		r.Cleanup()
		return err
	}
	return nil
}

func (r *Runner) setup(ctx context.Context, store *persistence.Store) error {
	switch {
	case r.env.IsTen():
		return r.setupTen(ctx, store)
	case r.env.IsManaged():
		return r.setupManaged(ctx, store)
	default:
		return nil
	}
}

func (r *Runner) setupManaged(ctx context.Context, store *persistence.Store) error {
	if _, err := r.props.FundingKey(); err != nil {
		return err
	}
	if err := store.Nonce.DeleteEnvironment(r.env); err != nil {
		return err
	}
	if err := store.Contracts.DeleteEnvironment(r.env); err != nil {
		return err
	}
	log.Info("starting ganache server to run tests through managed instance")
	port := r.props.HTTPPort(r.env)
	_, err := r.start(ctx, process.Spec{
		Name:    ganacheName,
		Command: r.props.GanacheBinary(),
		Args: []string{
			"--port", strconv.Itoa(port),
			"--account", fmt.Sprintf("0x%s,%s", r.props.FundingKeyHex(), ganacheBalance),
			"--blockTime", strconv.Itoa(r.props.BlockTimeSecs(r.env)),
		},
		ReadySignal: fmt.Sprintf("Listening on 127.0.0.1:%d", port),
	})
	return err
}

func (r *Runner) setupTen(ctx context.Context, store *persistence.Store) error {
	log.Info("getting and setting the Ten contract addresses")
	if err := r.fetchContracts(ctx); err != nil {
		return err
	}

	gw := gateway.NewClient(r.props.GatewayURL(r.env), r.props.ChainID(r.env), nil)
	log.Info("joining network", "url", gw.JoinURL())
	token, err := gw.Join(ctx)
	if err != nil {
		return err
	}
	log.Info("joined network", "token", token)

	funding, err := r.props.FundingKey()
	if err != nil {
		return err
	}
	log.Info("registering funding account with the network", "address", funding.Address())
	registered, err := gw.Register(ctx, funding.Key, token)
	if err != nil {
		return err
	}
	log.Info("funding account registration", "success", registered)

	chain, err := ethclient.DialContext(ctx, gw.RPCURL(token))
	if err != nil {
		return err
	}
	r.AddCleanup(chain.Close)

	accounts := r.props.Accounts()
	var snapshot *reconcile.BalanceSnapshot
	r.AddCleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		reconcile.ComputeCost(ctx, chain, gw, token, accounts, snapshot).Log()
	})

	var faucetClient reconcile.NativeFunder
	if url := r.props.FaucetURL(r.env); url != "" {
		faucetClient = faucet.NewClient(url, nil)
	}
	funder := &reconcile.Funder{
		Env:      r.env,
		Store:    store,
		Chain:    chain,
		Gateway:  gw,
		Faucet:   faucetClient,
		Token:    token,
		Funding:  funding,
		Accounts: accounts,
	}
	if snapshot, err = funder.Run(ctx); err != nil {
		return err
	}
	if err := r.persistContracts(store); err != nil {
		return err
	}

	nonces := &reconcile.NonceReconciler{
		Env:      r.env,
		Nonces:   store.Nonce,
		Chain:    chain,
		Accounts: accounts,
	}
	if _, err := nonces.Run(ctx); err != nil {
		return err
	}

	if r.config.WalletExtension.Enable {
		return r.startWalletExtension(ctx)
	}
	return nil
}

func (r *Runner) fetchContracts(ctx context.Context) error {
	client := rpcclient.NewRpcClient(func() *rpcclient.ClientConfig {
		config := r.config.Node
		if config.URL == "" {
			config.URL = r.props.NodeRPCURL(r.env, r.config.NodeHost)
		}
		return &config
	})
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Close()

	contracts, err := netconfig.FetchContractAddresses(ctx, client)
	if err != nil {
		log.Error("unable to get network configuration", "err", err)
		return err
	}
	r.contracts = contracts
	return nil
}

// persistContracts runs after funding reconciliation, which may have purged
// the contract table.
func (r *Runner) persistContracts(store *persistence.Store) error {
	for name, address := range r.contracts.Named() {
		log.Info("contract address", "name", name, "address", address)
		if err := store.Contracts.Insert(r.env, name, address); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) startWalletExtension(ctx context.Context) error {
	log.Info("starting wallet extension to run tests")
	port, err := process.FreeTCPPort()
	if err != nil {
		return err
	}
	portWS, err := process.FreeTCPPort()
	if err != nil {
		return err
	}
	outputDir := r.supervisor.OutputDir()
	args := []string{
		"--nodeHost", r.props.NodeHost(r.env, r.config.NodeHost),
		"--nodePortHTTP", strconv.Itoa(r.props.NodePortHTTP(r.env)),
		"--nodePortWS", strconv.Itoa(r.props.NodePortWS(r.env)),
		"--port", strconv.Itoa(port),
		"--portWS", strconv.Itoa(portWS),
		"--logPath", filepath.Join(outputDir, "wallet_logs.txt"),
		"--databasePath", filepath.Join(outputDir, "wallet_database"),
	}
	if r.config.WalletExtension.Verbose {
		args = append(args, "--verbose")
	}
	if _, err := r.start(ctx, process.Spec{
		Name:        walletExtensionName,
		Command:     r.props.WalletExtensionBinary(),
		Args:        args,
		ReadySignal: "Wallet extension started",
	}); err != nil {
		return err
	}
	r.walletPort = port
	return nil
}

// start launches a process and registers its stop as a cleanup, also when it
// never became ready.
func (r *Runner) start(ctx context.Context, spec process.Spec) (*process.Handle, error) {
	handle, err := r.supervisor.Start(ctx, spec)
	if handle != nil {
		r.mutex.Lock()
		r.handles = append(r.handles, handle)
		r.mutex.Unlock()
		r.AddCleanup(handle.Stop)
	}
	return handle, err
}
