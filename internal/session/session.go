// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package session pairs accel and gyro readings into combined samples and
// drives one ingestion session from STARTING to CLOSED.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/motion_collector/internal/imu"
)

// State is the lifecycle of a session.
type State int

const (
	StateStarting State = iota
	StateActive
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// StopReason records which input ended the session.
type StopReason string

const (
	StopNone       StopReason = ""
	StopTimer      StopReason = "timer"
	StopDisconnect StopReason = "disconnect"
	StopSignal     StopReason = "signal"
)

// Outcome describes what happened to one inbound event.
type Outcome int

const (
	// OutcomeDropped: the session was not active (late event).
	OutcomeDropped Outcome = iota
	// OutcomeIgnored: the sensor type is not paired (magnet).
	OutcomeIgnored
	// OutcomeBuffered: stored, but the other sensor has not reported yet.
	OutcomeBuffered
	// OutcomeSuppressed: stored and combinable, but consumed by warmup.
	OutcomeSuppressed
	// OutcomeEmitted: a sample was handed to the dispatcher.
	OutcomeEmitted
	// OutcomeRejected: the payload was malformed; nothing changed.
	OutcomeRejected
)

// Dispatcher receives finished samples in sequence order.
type Dispatcher interface {
	Send(s imu.CombinedSample) bool
	Close(ctx context.Context) error
}

// Scheduler runs f after d and returns a function that cancels it.
type Scheduler func(d time.Duration, f func()) (stop func() bool)

func afterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Options is the immutable per-session configuration.
type Options struct {
	ID           string
	Label        string
	WarmupCount  int
	Policy       Policy
	DrainTimeout time.Duration

	// Schedule and Now default to the wall clock.
	Schedule Scheduler
	Now      func() time.Time
}

// Status is a point-in-time view for the status endpoint.
type Status struct {
	ID              string     `json:"session_id"`
	State           string     `json:"state"`
	Label           string     `json:"label,omitempty"`
	Events          uint64     `json:"events"`
	Samples         uint64     `json:"samples"`
	Rejected        uint64     `json:"rejected"`
	WarmupRemaining int        `json:"warmup_remaining"`
	StopReason      StopReason `json:"stop_reason,omitempty"`
}

// Session owns the pair buffer, warmup gate and sample counter. Every event
// is applied under one lock so buffer mutations never interleave; the
// dispatcher performs the actual sink I/O outside of it.
type Session struct {
	opts       Options
	dispatcher Dispatcher

	mu        sync.Mutex
	state     State
	pairs     PairBuffer
	gate      *WarmupGate
	counter   SampleCounter
	events    uint64
	rejected  uint64
	stopTimer func() bool
	reason    StopReason

	done chan struct{}
}

// New creates a session in STARTING. Call Start once the transport accepts events.
func New(d Dispatcher, opts Options) *Session {
	if opts.Schedule == nil {
		opts.Schedule = afterFunc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 5 * time.Second
	}
	return &Session{
		opts:       opts,
		dispatcher: d,
		state:      StateStarting,
		gate:       NewWarmupGate(opts.WarmupCount),
		done:       make(chan struct{}),
	}
}

// Start moves STARTING to ACTIVE.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStarting {
		s.state = StateActive
		log.Printf("session %s: active (warmup=%d)", s.opts.ID, s.opts.WarmupCount)
	}
}

// HandleRaw decodes a JSON payload and applies it. A malformed payload is
// returned as an error wrapping imu.ErrInvalidPayload; the session continues.
func (s *Session) HandleRaw(t imu.SensorType, payload []byte) (Outcome, error) {
	triple, err := imu.ParseTriple(payload)
	if err != nil {
		if s.Reject() == OutcomeDropped {
			return OutcomeDropped, nil
		}
		return OutcomeRejected, fmt.Errorf("%s: %w", t, err)
	}
	return s.HandleEvent(imu.ReadingEvent{Type: t, Payload: triple, ReceivedAt: s.opts.Now()})
}

// Reject counts an input the transport could not decode. Outside ACTIVE it
// is dropped like any late event.
func (s *Session) Reject() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateActive {
		return OutcomeDropped
	}
	s.rejected++
	return OutcomeRejected
}

// HandleEvent applies one reading. Events outside ACTIVE are dropped silently.
func (s *Session) HandleEvent(ev imu.ReadingEvent) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return OutcomeDropped, nil
	}
	s.events++

	if !s.pairs.Update(ev.Type, ev.Payload) {
		return OutcomeIgnored, nil
	}

	accel, gyro, ok := s.pairs.TryCombine()
	if !ok {
		return OutcomeBuffered, nil
	}
	if !s.gate.Admit() {
		return OutcomeSuppressed, nil
	}

	sample := imu.CombinedSample{
		Accel:      accel,
		Gyro:       gyro,
		ProducedAt: s.opts.Now(),
		Sequence:   s.counter.Next(),
	}

	if sample.Sequence == 0 && s.opts.Policy.Timed() {
		log.Printf("session %s: recording %s for %s", s.opts.ID, s.labelOrSamples(), s.opts.Policy.Duration)
		s.stopTimer = s.opts.Schedule(s.opts.Policy.Duration, func() { s.Stop(StopTimer) })
	}

	// Enqueued under the lock so the sink sees sequence order.
	s.dispatcher.Send(sample)
	return OutcomeEmitted, nil
}

// Disconnect is the transport's disconnect signal.
func (s *Session) Disconnect() {
	if !s.opts.Policy.StopOnDisconnect {
		log.Printf("session %s: device disconnected", s.opts.ID)
		return
	}
	s.Stop(StopDisconnect)
}

// Stop moves the session to DRAINING, flushes the dispatcher within the
// drain timeout, then to CLOSED. Only the first call does anything; it
// reports whether this call performed the shutdown.
func (s *Session) Stop(reason StopReason) bool {
	s.mu.Lock()
	if s.state != StateActive && s.state != StateStarting {
		s.mu.Unlock()
		return false
	}
	s.state = StateDraining
	s.reason = reason
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	s.mu.Unlock()

	log.Printf("session %s: draining (%s)", s.opts.ID, reason)

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.DrainTimeout)
	err := s.dispatcher.Close(ctx)
	cancel()
	if err != nil {
		log.Printf("session %s: drain: %v", s.opts.ID, err)
	}

	s.mu.Lock()
	s.state = StateClosed
	samples := s.counter.Count()
	s.mu.Unlock()
	close(s.done)

	if s.opts.Label != "" {
		log.Printf("session %s: closed (%s), %d samples of %s captured", s.opts.ID, reason, samples, s.opts.Label)
	} else {
		log.Printf("session %s: closed (%s), %d samples captured", s.opts.ID, reason, samples)
	}
	return true
}

// Done is closed once the session reaches CLOSED.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot of the session counters.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		ID:              s.opts.ID,
		State:           s.state.String(),
		Label:           s.opts.Label,
		Events:          s.events,
		Samples:         s.counter.Count(),
		Rejected:        s.rejected,
		WarmupRemaining: s.gate.Remaining(),
		StopReason:      s.reason,
	}
}

func (s *Session) labelOrSamples() string {
	if s.opts.Label != "" {
		return "samples of " + s.opts.Label
	}
	return "samples"
}
