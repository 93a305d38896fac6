// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/ten-protocol/tenrunner/environment"
	"github.com/ten-protocol/tenrunner/gateway"
	"github.com/ten-protocol/tenrunner/gateway/gatewaytest"
	"github.com/ten-protocol/tenrunner/netconfig"
	"github.com/ten-protocol/tenrunner/persistence"
	"github.com/ten-protocol/tenrunner/process"
	"github.com/ten-protocol/tenrunner/properties"
	"github.com/ten-protocol/tenrunner/util/testhelpers"
)

const testToken = "a1b2c3d4e5f60718293a4b5c6d7e8f9012345678"

type testSetup struct {
	dir       string
	config    *Config
	propsConf *properties.Config
	funding   common.Address
	accounts  map[string]common.Address
}

func newTestSetup(t *testing.T, env environment.Environment, accounts ...string) *testSetup {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a posix shell")
	}
	dir := t.TempDir()
	config := ConfigDefault
	config.Environment = env.String()
	config.OutputDir = filepath.Join(dir, ".runner")
	config.PersistenceDir = filepath.Join(dir, ".tentest")
	config.Node.ConnectionWait = 0

	fundingKey, fundingAddress := testhelpers.RandomHexKey(t)
	propsConf := properties.ConfigDefault
	propsConf.Networks = make(map[string]properties.NetworkConfig)
	propsConf.FundingKey = fundingKey
	s := &testSetup{
		dir:       dir,
		config:    &config,
		propsConf: &propsConf,
		funding:   fundingAddress,
		accounts:  make(map[string]common.Address),
	}
	for _, name := range accounts {
		key, address := testhelpers.RandomHexKey(t)
		propsConf.Accounts = append(propsConf.Accounts, name+"="+key)
		s.accounts[name] = address
	}
	return s
}

func (s *testSetup) runner(t *testing.T) *Runner {
	t.Helper()
	props, err := properties.New(s.propsConf)
	Require(t, err)
	runner, err := NewRunner(s.config, props)
	Require(t, err)
	t.Cleanup(runner.Cleanup)
	return runner
}

// withStore opens the persisted state outside of a run.
func (s *testSetup) withStore(t *testing.T, fn func(store *persistence.Store)) {
	t.Helper()
	store, err := persistence.Open(s.config.PersistenceDir)
	Require(t, err)
	defer func() { Require(t, store.Close()) }()
	fn(store)
}

// fakeBinary writes an executable script that records its arguments and
// prints signal once started.
func (s *testSetup) fakeBinary(t *testing.T, name, signal string) string {
	t.Helper()
	path := filepath.Join(s.dir, name)
	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + name + ".args\n" +
		"echo 'starting'\n"
	if signal != "" {
		script += "echo '" + signal + "'\n"
		script += "exec sleep 30\n"
	}
	Require(t, os.WriteFile(path, []byte(script), 0o700)) // #nosec G306
	return path
}

func (s *testSetup) attachGateway(gw *gatewaytest.Gateway, env environment.Environment) {
	s.propsConf.Networks[env.String()] = properties.NetworkConfig{
		Host:          "http://127.0.0.1",
		HTTPPort:      gw.Port(),
		WSPort:        gw.Port(),
		NodeHost:      "127.0.0.1",
		NodePortHTTP:  gw.Port(),
		NodePortWS:    gw.Port(),
		ChainID:       gw.ChainID,
		FaucetURL:     gw.URL(),
		BlockTimeSecs: 1,
	}
}

func newGateway(t *testing.T) *gatewaytest.Gateway {
	t.Helper()
	gw, err := gatewaytest.New(443, testToken)
	Require(t, err)
	t.Cleanup(gw.Close)
	return gw
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

func TestThreadLimitCheckedBeforeSideEffects(t *testing.T) {
	for _, tc := range []struct {
		env     environment.Environment
		threads int
	}{
		{environment.TenSepolia, 4},
		{environment.Ganache, 4},
		{environment.ArbitrumSepolia, 2},
		{environment.Sepolia, 2},
	} {
		s := newTestSetup(t, tc.env)
		s.config.Threads = tc.threads
		err := s.runner(t).Setup(context.Background())
		require.ErrorIs(t, err, ErrThreadLimit, tc.env)

		_, err = os.Stat(s.config.OutputDir)
		require.True(t, os.IsNotExist(err), tc.env)
		_, err = os.Stat(s.config.PersistenceDir)
		require.True(t, os.IsNotExist(err), tc.env)
	}
}

func TestOtherEnvironmentDoesNothing(t *testing.T) {
	s := newTestSetup(t, environment.Sepolia)
	runner := s.runner(t)
	Require(t, runner.Setup(context.Background()))
	require.Empty(t, runner.Handles())

	s.withStore(t, func(store *persistence.Store) {
		result, err := store.Results.Latest(ResultName, environment.Sepolia)
		Require(t, err)
		require.NotNil(t, result)
		require.Equal(t, OutcomeSuccess, result.Outcome)
	})
}

func TestManagedChainSetup(t *testing.T) {
	s := newTestSetup(t, environment.Ganache)
	port, err := process.FreeTCPPort()
	Require(t, err)
	network := properties.DefaultNetworks[environment.Ganache]
	network.HTTPPort = port
	s.propsConf.Networks[environment.Ganache.String()] = network
	s.propsConf.GanacheBinary = s.fakeBinary(t, "ganache", "Listening on 127.0.0.1:"+strconv.Itoa(port))
	s.config.Threads = 3

	stale := common.HexToAddress("0x42")
	s.withStore(t, func(store *persistence.Store) {
		Require(t, store.Nonce.Insert(stale, environment.Ganache, 10, persistence.ReasonNormal))
		Require(t, store.Contracts.Insert(environment.Ganache, "L1Bridge", stale))
		Require(t, store.Nonce.Insert(stale, environment.TenDev, 3, persistence.ReasonNormal))
	})

	runner := s.runner(t)
	Require(t, runner.Setup(context.Background()))
	handles := runner.Handles()
	require.Len(t, handles, 1)
	require.Equal(t, "ganache", handles[0].Name())
	require.True(t, handles[0].Ready())

	args, err := os.ReadFile(filepath.Join(s.config.OutputDir, "ganache.args"))
	Require(t, err)
	fundingKey := strings.TrimPrefix(s.propsConf.FundingKey, "0x")
	require.Equal(t,
		"--port "+strconv.Itoa(port)+" --account 0x"+fundingKey+",50000000000000000000 --blockTime 1",
		strings.TrimSpace(string(args)))

	s.withStore(t, func(store *persistence.Store) {
		_, found, err := store.Nonce.LatestNonce(stale, environment.Ganache)
		Require(t, err)
		require.False(t, found)
		contracts, err := store.Contracts.All(environment.Ganache)
		Require(t, err)
		require.Empty(t, contracts)
		_, found, err = store.Nonce.LatestNonce(stale, environment.TenDev)
		Require(t, err)
		require.True(t, found)
	})

	runner.Cleanup()
	require.True(t, handles[0].Exited())
	runner.Cleanup()
}

func TestManagedChainRequiresFundingKey(t *testing.T) {
	s := newTestSetup(t, environment.Ganache)
	s.propsConf.FundingKey = ""
	s.propsConf.GanacheBinary = s.fakeBinary(t, "ganache", "Listening")

	stale := common.HexToAddress("0x42")
	s.withStore(t, func(store *persistence.Store) {
		Require(t, store.Nonce.Insert(stale, environment.Ganache, 10, persistence.ReasonNormal))
	})

	runner := s.runner(t)
	err := runner.Setup(context.Background())
	require.ErrorIs(t, err, properties.ErrNoFundingKey)
	require.Empty(t, runner.Handles())
	_, err = os.Stat(filepath.Join(s.config.OutputDir, "ganache.args"))
	require.True(t, os.IsNotExist(err), err)

	s.withStore(t, func(store *persistence.Store) {
		nonce, found, err := store.Nonce.LatestNonce(stale, environment.Ganache)
		Require(t, err)
		require.True(t, found)
		require.Equal(t, int64(10), nonce)
	})
}

func TestManagedChainExitBeforeReadyAborts(t *testing.T) {
	logs := testhelpers.InitTestLog(t, slog.LevelInfo)
	s := newTestSetup(t, environment.Ganache)
	s.propsConf.GanacheBinary = s.fakeBinary(t, "ganache", "")

	runner := s.runner(t)
	err := runner.Setup(context.Background())
	require.ErrorIs(t, err, process.ErrExitedBeforeReady)
	require.Len(t, runner.Handles(), 1)
	require.True(t, runner.Handles()[0].Exited())
	require.True(t, logs.WasLogged("see the contents of the run output directory"))

	s.withStore(t, func(store *persistence.Store) {
		result, err := store.Results.Latest(ResultName, environment.Ganache)
		Require(t, err)
		require.Equal(t, OutcomeAborted, result.Outcome)
	})
}

func TestRemoteSetupResetsDriftedNonce(t *testing.T) {
	logs := testhelpers.InitTestLog(t, slog.LevelInfo)
	gw := newGateway(t)
	s := newTestSetup(t, environment.TenLocal, "X", "Y")
	s.attachGateway(gw, environment.TenLocal)
	x, y := s.accounts["X"], s.accounts["Y"]
	gw.Chain.SetNonce(s.funding, 12)
	gw.Chain.SetBalance(s.funding, ether(1000))
	gw.Chain.SetNonce(x, 7)
	gw.Chain.SetBalance(x, ether(2))
	gw.Chain.SetNonce(y, 3)
	s.withStore(t, func(store *persistence.Store) {
		Require(t, store.Nonce.Insert(x, environment.TenLocal, 5, persistence.ReasonNormal))
		Require(t, store.Nonce.Insert(y, environment.TenLocal, 2, persistence.ReasonNormal))
	})

	runner := s.runner(t)
	Require(t, runner.Setup(context.Background()))
	require.Empty(t, runner.Handles())
	require.Equal(t, 1, gw.Joins())
	require.Equal(t, []common.Address{s.funding, x, y}, gw.Registered())
	require.Empty(t, gw.FaucetCalls())
	require.Equal(t, common.HexToAddress("0x03"), runner.Contracts().L1Bridge)

	s.withStore(t, func(store *persistence.Store) {
		record, err := store.Nonce.Get(x, environment.TenLocal)
		Require(t, err)
		require.Equal(t, int64(6), record.Nonce)
		require.Equal(t, persistence.ReasonReset, record.Reason)
		record, err = store.Nonce.Get(y, environment.TenLocal)
		Require(t, err)
		require.Equal(t, int64(2), record.Nonce)
		require.Equal(t, persistence.ReasonNormal, record.Reason)

		address, found, err := store.Contracts.Address(environment.TenLocal, netconfig.ManagementContract)
		Require(t, err)
		require.True(t, found)
		require.Equal(t, common.HexToAddress("0x01"), address)
	})

	warnings := logs.Matching("resetting persisted nonce")
	require.Len(t, warnings, 1)
	require.Equal(t, "X", warnings[0].Attrs["account"])
	require.Equal(t, "5", warnings[0].Attrs["persisted"])
	require.Equal(t, "7", warnings[0].Attrs["count"])

	gw.Chain.SetBalance(x, ether(1))
	runner.Cleanup()
	costs := logs.Matching("total cost")
	require.Len(t, costs, 1)
	require.Equal(t, "1000000000000000000", costs[0].Attrs["wei"])
}

func TestRemoteSetupFreshFundingAccountPurgesState(t *testing.T) {
	gw := newGateway(t)
	gw.FaucetAmount = ether(100)
	s := newTestSetup(t, environment.TenLocal, "X")
	s.attachGateway(gw, environment.TenLocal)
	x := s.accounts["X"]
	gw.Chain.SetNonce(x, 7)
	s.withStore(t, func(store *persistence.Store) {
		Require(t, store.Nonce.Insert(x, environment.TenLocal, 5, persistence.ReasonNormal))
		Require(t, store.Contracts.Insert(environment.TenLocal, "Stale", common.HexToAddress("0x99")))
	})

	Require(t, s.runner(t).Setup(context.Background()))
	require.Equal(t, []common.Address{s.funding, s.funding}, gw.FaucetCalls())
	require.Zero(t, gw.Chain.Balance(s.funding).Cmp(ether(200)))

	s.withStore(t, func(store *persistence.Store) {
		record, err := store.Nonce.Get(x, environment.TenLocal)
		Require(t, err)
		require.Nil(t, record)
		contracts, err := store.Contracts.All(environment.TenLocal)
		Require(t, err)
		require.NotContains(t, contracts, "Stale")
		require.Len(t, contracts, len(netconfig.ContractAddresses{}.Named()))
	})
}

func TestRemoteSetupRegistrationFailureContinues(t *testing.T) {
	logs := testhelpers.InitTestLog(t, slog.LevelInfo)
	gw := newGateway(t)
	s := newTestSetup(t, environment.TenDev, "A", "B", "C")
	s.attachGateway(gw, environment.TenDev)
	gw.Chain.SetNonce(s.funding, 1)
	gw.Chain.SetBalance(s.funding, ether(300))
	gw.Reject(s.accounts["B"])

	Require(t, s.runner(t).Setup(context.Background()))
	require.Equal(t, []common.Address{s.funding, s.accounts["A"], s.accounts["C"]}, gw.Registered())

	rejected := logs.Matching("account registration rejected")
	require.Len(t, rejected, 1)
	require.Equal(t, slog.LevelWarn, rejected[0].Level)
	require.Equal(t, "B", rejected[0].Attrs["account"])
}

func TestRemoteSetupAborts(t *testing.T) {
	for _, tc := range []struct {
		name   string
		breaks func(gw *gatewaytest.Gateway)
		want   error
	}{
		{"config", func(gw *gatewaytest.Gateway) { gw.SetConfigError("not available") }, netconfig.ErrConfigUnavailable},
		{"join", func(gw *gatewaytest.Gateway) { gw.SetJoinStatus(500) }, gateway.ErrJoinFailed},
	} {
		t.Run(tc.name, func(t *testing.T) {
			gw := newGateway(t)
			tc.breaks(gw)
			s := newTestSetup(t, environment.TenLocal, "X")
			s.attachGateway(gw, environment.TenLocal)
			err := s.runner(t).Setup(context.Background())
			require.True(t, errors.Is(err, tc.want), err)
			require.Empty(t, gw.Registered())

			s.withStore(t, func(store *persistence.Store) {
				result, err := store.Results.Latest(ResultName, environment.TenLocal)
				Require(t, err)
				require.Equal(t, OutcomeAborted, result.Outcome)
			})
		})
	}
}

func TestRemoteSetupStartsWalletExtension(t *testing.T) {
	gw := newGateway(t)
	s := newTestSetup(t, environment.TenLocal)
	s.attachGateway(gw, environment.TenLocal)
	gw.Chain.SetNonce(s.funding, 1)
	gw.Chain.SetBalance(s.funding, ether(300))
	s.config.WalletExtension.Enable = true
	s.config.NodeHost = "node.example"
	s.config.Node.URL = gw.URL()
	s.propsConf.WalletExtensionBinary = s.fakeBinary(t, "wallet_extension", "Wallet extension started")

	runner := s.runner(t)
	Require(t, runner.Setup(context.Background()))
	handles := runner.Handles()
	require.Len(t, handles, 1)
	require.True(t, handles[0].Ready())
	require.NotZero(t, runner.WalletExtensionPort())

	data, err := os.ReadFile(filepath.Join(s.config.OutputDir, "wallet_extension.args"))
	Require(t, err)
	args := strings.Fields(string(data))
	require.Equal(t, []string{"--nodeHost", "node.example"}, args[:2])
	require.Contains(t, args, "--port")
	require.Contains(t, args, strconv.Itoa(runner.WalletExtensionPort()))
	require.Contains(t, args, "--verbose")
	require.Contains(t, args, filepath.Join(s.config.OutputDir, "wallet_logs.txt"))

	runner.Cleanup()
	require.True(t, handles[0].Exited())
}

func Require(t *testing.T, err error, printables ...interface{}) {
	t.Helper()
	testhelpers.RequireImpl(t, err, printables...)
}
