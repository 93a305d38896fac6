// Copyright 2026, Offchain Labs, Inc.
// For license information, see https://github.com/OffchainLabs/nitro/blob/master/LICENSE.md

package readymarker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

type ReadyMarkerInt interface {
	Ready() bool
	ReadyChan() <-chan struct{}
	WaitReady(ctx context.Context) error
}

var ErrNotReady error = errors.New("not ready")

// ReadyMarker records the first outcome signalled to it. A nil outcome means
// ready; a non-nil outcome is returned to every waiter.
type ReadyMarker struct {
	chanReady chan struct{}
	boolReady int32
	err       error
	once      sync.Once
}

func (d *ReadyMarker) Ready() bool {
	return atomic.LoadInt32(&d.boolReady) != 0
}

func (d *ReadyMarker) ReadyChan() <-chan struct{} {
	return d.chanReady
}

func (d *ReadyMarker) WaitReady(ctx context.Context) error {
	select {
	case <-d.chanReady:
		return d.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *ReadyMarker) TestReady() error {
	select {
	case <-d.chanReady:
		return d.err
	default:
		return ErrNotReady
	}
}

// SignalReady settles the marker. Later calls are ignored.
func (d *ReadyMarker) SignalReady(err error) {
	d.once.Do(func() {
		d.err = err
		if err == nil {
			atomic.StoreInt32(&d.boolReady, 1)
		}
		close(d.chanReady)
	})
}

func NewReadyMarker() *ReadyMarker {
	return &ReadyMarker{
		chanReady: make(chan struct{}),
	}
}
