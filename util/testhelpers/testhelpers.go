// Copyright 2021-2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package testhelpers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ten-protocol/tenrunner/util/colors"
)

// Fail a test should an error occur
func RequireImpl(t *testing.T, err error, printables ...interface{}) {
	t.Helper()
	if err != nil {
		t.Fatal(colors.Red, printables, err, colors.Clear)
	}
}

func FailImpl(t *testing.T, printables ...interface{}) {
	t.Helper()
	t.Fatal(colors.Red, printables, colors.Clear)
}

// RandomHexKey returns a fresh private key, hex encoded without prefix, and its address.
func RandomHexKey(t *testing.T) (string, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	RequireImpl(t, err)
	return fmt.Sprintf("%x", crypto.FromECDSA(key)), crypto.PubkeyToAddress(key.PublicKey)
}

type Record struct {
	Level slog.Level
	Msg   string
	Attrs map[string]string
}

// LogHandler captures records while still writing them to stderr.
type LogHandler struct {
	mutex         sync.Mutex
	t             *testing.T
	level         slog.Level
	records       []Record
	streamHandler slog.Handler
}

func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *LogHandler) Handle(ctx context.Context, record slog.Record) error {
	if err := h.streamHandler.Handle(ctx, record); err != nil {
		return err
	}
	captured := Record{Level: record.Level, Msg: record.Message, Attrs: make(map[string]string)}
	record.Attrs(func(attr slog.Attr) bool {
		captured.Attrs[attr.Key] = attr.Value.String()
		return true
	})
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.records = append(h.records, captured)
	return nil
}

func (h *LogHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *LogHandler) WithGroup(_ string) slog.Handler      { return h }

func (h *LogHandler) WasLogged(pattern string) bool {
	return len(h.Matching(pattern)) > 0
}

// Matching returns the captured records whose message matches pattern.
func (h *LogHandler) Matching(pattern string) []Record {
	re, err := regexp.Compile(pattern)
	RequireImpl(h.t, err)
	h.mutex.Lock()
	defer h.mutex.Unlock()
	var out []Record
	for _, record := range h.records {
		if re.MatchString(record.Msg) {
			out = append(out, record)
		}
	}
	return out
}

func newLogHandler(t *testing.T, level slog.Level) *LogHandler {
	return &LogHandler{
		t:             t,
		level:         level,
		records:       make([]Record, 0),
		streamHandler: log.NewTerminalHandlerWithLevel(os.Stderr, level, false),
	}
}

// InitTestLog installs a capturing handler as the default logger until the test ends.
func InitTestLog(t *testing.T, level slog.Level) *LogHandler {
	handler := newLogHandler(t, level)
	previous := log.Root()
	log.SetDefault(log.NewLogger(handler))
	t.Cleanup(func() { log.SetDefault(previous) })
	return handler
}
