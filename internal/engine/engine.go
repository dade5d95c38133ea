// Package engine provides the interchangeable processing backends that turn
// one input video and one recipe into one variation.
package engine

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"video-variator/internal/filterchain"
)

// State tracks an adapter's initialization lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProgressFunc receives throttled progress in [0, 100], monotonically
// non-decreasing within one Process call.
type ProgressFunc func(percent float64)

// Metadata describes one produced variation.
type Metadata struct {
	Size             int64   `json:"size"`
	Format           string  `json:"format"`
	ProcessingTimeMs int64   `json:"processingTimeMs"`
	Duration         float64 `json:"duration"`
}

// Result is the output of one Process call. Output is memory-backed and must
// be released once the caller is done with it.
type Result struct {
	Output   []byte
	Applied  []string
	Metadata Metadata

	released bool
}

// Release drops the output bytes. Further access to Output is an error on the
// caller's side; Released reports the state.
func (r *Result) Release() {
	r.Output = nil
	r.released = true
}

// Released reports whether the output resource has been dropped.
func (r *Result) Released() bool {
	return r.released
}

// Engine is one processing tier. Initialize is idempotent once ready; a
// failed adapter stays failed and callers fall back to a lower tier instead
// of retrying.
type Engine interface {
	Name() string
	State() State
	Initialize(ctx context.Context) error
	Process(ctx context.Context, input []byte, recipe filterchain.Recipe, onProgress ProgressFunc) (*Result, error)
}

// ErrNotReady is returned by Process when Initialize has not succeeded.
var ErrNotReady = errors.New("engine not initialized")

// stateMachine is the shared lifecycle guard embedded by adapters. The
// initialize function runs at most once; its outcome is sticky.
type stateMachine struct {
	mu      sync.Mutex
	state   State
	initErr error
}

func (m *stateMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// initialize runs fn exactly once, recording ready or failed. Repeat calls
// return the recorded outcome without re-running fn.
func (m *stateMachine) initialize(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateReady:
		return nil
	case StateFailed:
		return m.initErr
	case StateInitializing:
		return errors.New("initialization already in progress")
	}

	m.state = StateInitializing
	m.mu.Unlock()
	err := fn()
	m.mu.Lock()

	if err != nil {
		m.state = StateFailed
		m.initErr = err
		return err
	}
	m.state = StateReady
	return nil
}
