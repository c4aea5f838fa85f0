// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sink delivers combined samples to exactly one destination.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/motion_collector/internal/imu"
)

// ErrSinkWrite wraps every failed publish or append.
var ErrSinkWrite = errors.New("sink write failed")

// Sink is one outbound destination. Write is called from a single goroutine.
type Sink interface {
	Write(ctx context.Context, s imu.CombinedSample) error
	Close() error
}

// Stats counts dispatcher activity.
type Stats struct {
	Queued  uint64
	Written uint64
	Failed  uint64
	Dropped uint64
}

// Dispatcher queues samples and writes them to its sink in order on a
// single worker goroutine, so callers never wait on sink I/O.
type Dispatcher struct {
	sink     Sink
	progress io.Writer

	mu     sync.RWMutex
	queue  chan imu.CombinedSample
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	queued, written, failed, dropped atomic.Uint64
}

// NewDispatcher starts the worker. The worker writes one '.' to progress
// per sample it hands to the sink; progress may be nil.
func NewDispatcher(s Sink, queueSize int, progress io.Writer) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if progress == nil {
		progress = io.Discard
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sink:     s,
		progress: progress,
		queue:    make(chan imu.CombinedSample, queueSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go d.run()
	return d
}

// Send enqueues a sample without blocking. A full queue or a closed
// dispatcher drops the sample and returns false.
func (d *Dispatcher) Send(s imu.CombinedSample) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- s:
		d.queued.Add(1)
		return true
	default:
		d.dropped.Add(1)
		log.Printf("sink: queue full, dropped sample seq=%d", s.Sequence)
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for s := range d.queue {
		if d.ctx.Err() != nil {
			d.dropped.Add(1)
			continue
		}
		// Written here, never under the caller's lock.
		fmt.Fprint(d.progress, ".")
		if err := d.sink.Write(d.ctx, s); err != nil {
			d.failed.Add(1)
			log.Printf("sink: %v", fmt.Errorf("%w: seq %d: %w", ErrSinkWrite, s.Sequence, err))
			continue
		}
		d.written.Add(1)
	}
}

// Close stops accepting samples, lets queued writes finish until ctx is
// done, cancels whatever is still in flight and closes the sink.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	var drainErr error
	select {
	case <-d.done:
	case <-ctx.Done():
		drainErr = fmt.Errorf("drain: %w", ctx.Err())
		d.cancel()
		<-d.done
	}
	d.cancel()

	st := d.Stats()
	if st.Failed > 0 || st.Dropped > 0 {
		log.Printf("sink: %d written, %d failed, %d dropped", st.Written, st.Failed, st.Dropped)
	}

	if err := d.sink.Close(); err != nil {
		return errors.Join(drainErr, fmt.Errorf("close: %w", err))
	}
	return drainErr
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Queued:  d.queued.Load(),
		Written: d.written.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}
