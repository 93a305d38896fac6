// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// tenrunner prepares a network for a test run, runs the given test command
// against it and tears down everything it started.
//
//	tenrunner --environment ten-local --properties.funding-key <hex> -- go test ./tests/...
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ten-protocol/tenrunner/bootstrap"
	"github.com/ten-protocol/tenrunner/cmd/genericconf"
	"github.com/ten-protocol/tenrunner/cmd/util"
	"github.com/ten-protocol/tenrunner/cmd/util/confighelpers"
	"github.com/ten-protocol/tenrunner/environment"
	"github.com/ten-protocol/tenrunner/properties"
)

func printSampleUsage(progname string) {
	fmt.Printf("\n")
	fmt.Printf("Sample usage:                  %s --environment ten-local --properties.funding-key <hex> -- <test command>\n", progname)
	fmt.Printf("Environments:\n")
	for _, env := range environment.All {
		fmt.Printf("  %-18s %s (max threads %d)\n", env, env.Description(), env.MaxThreads())
	}
}

func main() {
	os.Exit(mainImpl())
}

func mainImpl() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := util.SetLogger("info", "plaintext"); err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logging: %v\n", err)
		return 1
	}
	config, testCommand, err := ParseTenRunner(os.Args[1:])
	if err != nil {
		confighelpers.PrintErrorAndExit(err, printSampleUsage)
	}
	if config.Conf.Dump {
		return 0
	}
	if err := genericconf.InitLog(config.LogType, config.LogLevel, &config.FileLogging, genericconf.DefaultPathResolver("")); err != nil {
		fmt.Fprintf(os.Stderr, "error initializing logging: %v\n", err)
		return 1
	}

	props, err := properties.New(&config.Properties)
	if err != nil {
		log.Error("invalid properties", "err", err)
		return 1
	}
	runner, err := bootstrap.NewRunner(&config.Runner, props)
	if err != nil {
		log.Error("invalid runner configuration", "err", err)
		return 1
	}
	if err := runner.Setup(ctx); err != nil {
		log.Error("setup failed, exiting", "err", err)
		return 1
	}
	defer runner.Cleanup()

	if len(testCommand) == 0 {
		log.Info("environment ready, interrupt to tear down", "env", runner.Environment())
		<-ctx.Done()
		return 0
	}
	return runTests(ctx, runner, testCommand)
}

func runTests(ctx context.Context, runner *bootstrap.Runner, command []string) int {
	cmd := exec.CommandContext(ctx, command[0], command[1:]...) // #nosec G204
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = append(os.Environ(), testEnvironment(runner)...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	log.Info("running tests", "command", strings.Join(command, " "))
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		log.Warn("tests failed", "exitCode", exitErr.ExitCode())
		return exitErr.ExitCode()
	} else if err != nil {
		log.Error("could not run tests", "err", err)
		return 1
	}
	return 0
}

// testEnvironment exposes the state of the prepared run to the test command.
func testEnvironment(runner *bootstrap.Runner) []string {
	vars := []string{"TENRUNNER_ENVIRONMENT=" + runner.Environment().String()}
	if port := runner.WalletExtensionPort(); port != 0 {
		vars = append(vars, "TENRUNNER_WALLET_EXTENSION_PORT="+strconv.Itoa(port))
	}
	named := runner.Contracts().Named()
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if named[name] == (common.Address{}) {
			continue
		}
		vars = append(vars, "TENRUNNER_CONTRACT_"+strings.ToUpper(name)+"="+named[name].Hex())
	}
	return vars
}
