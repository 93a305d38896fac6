// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package readymarker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFirstSignalWins(t *testing.T) {
	marker := NewReadyMarker()
	require.ErrorIs(t, marker.TestReady(), ErrNotReady)
	require.False(t, marker.Ready())

	failure := errors.New("boom")
	marker.SignalReady(failure)
	marker.SignalReady(nil)

	require.False(t, marker.Ready())
	require.ErrorIs(t, marker.WaitReady(context.Background()), failure)
	require.ErrorIs(t, marker.TestReady(), failure)
}

func TestWaitReady(t *testing.T) {
	marker := NewReadyMarker()
	go func() {
		time.Sleep(10 * time.Millisecond)
		marker.SignalReady(nil)
	}()
	require.NoError(t, marker.WaitReady(context.Background()))
	require.True(t, marker.Ready())
}

func TestWaitReadyCancelled(t *testing.T) {
	marker := NewReadyMarker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, marker.WaitReady(ctx), context.Canceled)
}
