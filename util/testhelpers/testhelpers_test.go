// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package testhelpers

import (
	"testing"

	"github.com/ethereum/go-ethereum/log"
)

func TestLogHandlerCaptures(t *testing.T) {
	handler := InitTestLog(t, log.LevelInfo)
	log.Warn("Resetting persistence for alice", "persisted", 5, "count", 7)
	log.Debug("below the level")

	records := handler.Matching("^Resetting persistence")
	if len(records) != 1 {
		FailImpl(t, "expected one record, got", len(records))
	}
	if records[0].Attrs["persisted"] != "5" || records[0].Attrs["count"] != "7" {
		FailImpl(t, "unexpected attrs", records[0].Attrs)
	}
	if handler.WasLogged("below the level") {
		FailImpl(t, "debug record should not be captured")
	}
}
