// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

// Package process starts the external processes a run depends on (a local
// chain, a wallet extension) and waits for them to report readiness.
package process

import (
	"bytes"
	"context"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/ten-protocol/tenrunner/util/readymarker"
)

const (
	DefaultReadyTimeout = 30 * time.Second
	pollInterval        = 100 * time.Millisecond
	stopTimeout         = 10 * time.Second
)

var (
	ErrReadinessTimeout  = errors.New("timed out waiting for readiness signal")
	ErrExitedBeforeReady = errors.New("process exited before signalling readiness")
)

type Spec struct {
	Name        string
	Command     string
	Args        []string
	WorkingDir  string
	Env         []string
	ReadySignal string
	Timeout     time.Duration
}

// Supervisor owns the run-output directory holding the captured output of
// every process it starts.
type Supervisor struct {
	outputDir string
}

// NewSupervisor recreates outputDir empty.
func NewSupervisor(outputDir string) (*Supervisor, error) {
	if err := os.RemoveAll(outputDir); err != nil {
		return nil, errors.Wrap(err, "unable to clear run output directory")
	}
	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "unable to create run output directory")
	}
	return &Supervisor{outputDir: outputDir}, nil
}

func (s *Supervisor) OutputDir() string {
	return s.outputDir
}

// Start launches the process described by spec and blocks until its stdout
// contains spec.ReadySignal. On timeout the process is left running so its
// output can be inspected; the returned handle is still valid and may be stopped.
func (s *Supervisor) Start(ctx context.Context, spec Spec) (*Handle, error) {
	if spec.Timeout == 0 {
		spec.Timeout = DefaultReadyTimeout
	}
	h := &Handle{
		name:       spec.Name,
		stdoutPath: filepath.Join(s.outputDir, spec.Name+".out"),
		stderrPath: filepath.Join(s.outputDir, spec.Name+".err"),
		exited:     make(chan struct{}),
		ready:      readymarker.NewReadyMarker(),
	}
	stdout, err := os.Create(h.stdoutPath) // #nosec G304
	if err != nil {
		return nil, err
	}
	stderr, err := os.Create(h.stderrPath) // #nosec G304
	if err != nil {
		stdout.Close()
		return nil, err
	}

	cmd := exec.Command(spec.Command, spec.Args...) // #nosec G204
	cmd.Dir = spec.WorkingDir
	if cmd.Dir == "" {
		cmd.Dir = s.outputDir
	}
	cmd.Env = append(os.Environ(), spec.Env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	log.Info("starting process", "name", spec.Name, "command", spec.Command, "stdout", h.stdoutPath)
	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, errors.Wrapf(err, "could not start %s", spec.Name)
	}
	h.cmd = cmd

	go func() {
		h.waitErr = cmd.Wait()
		stdout.Close()
		stderr.Close()
		close(h.exited)
	}()
	go h.watch(ctx, spec.ReadySignal, spec.Timeout)

	if err := h.ready.WaitReady(ctx); err != nil {
		return h, errors.Wrapf(err, "%s (see %s)", spec.Name, h.stdoutPath)
	}
	log.Info("process ready", "name", spec.Name, "pid", cmd.Process.Pid)
	return h, nil
}

type Handle struct {
	name       string
	cmd        *exec.Cmd
	stdoutPath string
	stderrPath string
	ready      *readymarker.ReadyMarker

	exited  chan struct{}
	waitErr error

	stopOnce sync.Once
}

func (h *Handle) Name() string       { return h.name }
func (h *Handle) Pid() int           { return h.cmd.Process.Pid }
func (h *Handle) StdoutPath() string { return h.stdoutPath }
func (h *Handle) StderrPath() string { return h.stderrPath }
func (h *Handle) Ready() bool        { return h.ready.Ready() }

func (h *Handle) Exited() bool {
	select {
	case <-h.exited:
		return true
	default:
		return false
	}
}

// Stop asks the process to terminate and waits for it to exit, killing it if
// it does not. Calling Stop more than once is a no-op.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		if h.Exited() {
			return
		}
		log.Info("stopping process", "name", h.name, "pid", h.cmd.Process.Pid)
		if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			log.Warn("failed to signal process", "name", h.name, "err", err)
		}
		select {
		case <-h.exited:
		case <-time.After(stopTimeout):
			log.Warn("process did not exit, killing", "name", h.name)
			_ = h.cmd.Process.Kill()
			<-h.exited
		}
	})
}

func (h *Handle) watch(ctx context.Context, signal string, timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	scanner := &signalScanner{path: h.stdoutPath, signal: []byte(signal)}
	for {
		if found, err := scanner.scan(); err != nil {
			h.ready.SignalReady(err)
			return
		} else if found {
			h.ready.SignalReady(nil)
			return
		}
		select {
		case <-h.exited:
			// the process may have written the signal just before exiting
			if found, _ := scanner.scan(); found {
				h.ready.SignalReady(nil)
			} else {
				h.ready.SignalReady(errors.Wrapf(ErrExitedBeforeReady, "exit: %v", h.waitErr))
			}
			return
		case <-deadline.C:
			h.ready.SignalReady(errors.Wrapf(ErrReadinessTimeout, "%q not seen after %s", signal, timeout))
			return
		case <-ctx.Done():
			h.ready.SignalReady(ctx.Err())
			return
		case <-ticker.C:
		}
	}
}

// signalScanner reads a growing file incrementally looking for a literal.
type signalScanner struct {
	path   string
	signal []byte
	offset int64
	tail   []byte
}

func (s *signalScanner) scan() (bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if _, err := f.Seek(s.offset, io.SeekStart); err != nil {
		return false, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return false, err
	}
	s.offset += int64(len(data))
	buf := append(s.tail, data...)
	if bytes.Contains(buf, s.signal) {
		return true, nil
	}
	// keep enough to match a signal split across reads
	keep := len(s.signal) - 1
	if keep > len(buf) {
		keep = len(buf)
	}
	if keep < 0 {
		keep = 0
	}
	s.tail = append([]byte{}, buf[len(buf)-keep:]...)
	return false, nil
}

// FreeTCPPort returns a local TCP port that was free at the time of the call.
func FreeTCPPort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}

// Lines returns the captured stdout of the process, for diagnostics.
func (h *Handle) Lines() ([]string, error) {
	data, err := os.ReadFile(h.stdoutPath)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n"), nil
}
