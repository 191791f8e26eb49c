// Copyright 2025 The addrsanitizer Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package initguard implements the process-wide one-time startup protocol
// for the sanitizer runtime.
//
// The startup sequence (installing wrappers, resolving real-routine
// handles, establishing shadow bounds) itself calls routines that are
// intercepted, so the guard must be simultaneously race-free across
// threads and recursion-fatal within the initializing thread: a wrapper
// that re-enters the guard during startup indicates a bring-up bug, not a
// user error, and must abort rather than deadlock or loop.
//
// Wrappers that are legitimately reachable from startup (memory copy/set,
// string length and friends) never call the guard while startup runs; they
// check State() and take a validation-free bypass instead. That bypass is
// the deliberate trade-off that makes "validate libc calls" and "use libc
// calls during your own bring-up" compatible.
//
// The guard is an explicit, injectable object rather than ambient package
// state so tests can construct independent instances.
package initguard

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/kolkov/addrsanitizer/internal/asan/threadreg"
)

// State is the runtime's three-valued initialization status. Transitions
// are monotonic: Uninitialized -> Initializing -> Initialized, never
// backward.
type State int32

const (
	// StateUninitialized means startup has not begun.
	StateUninitialized State = iota
	// StateInitializing means exactly one thread is running startup.
	StateInitializing
	// StateInitialized means startup completed; every thread observing this
	// state also observes everything startup established.
	StateInitialized
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	default:
		return "invalid"
	}
}

// FatalFunc aborts the process on an internal-consistency violation. It
// must not return. Injectable so tests can observe the abort instead of
// dying.
type FatalFunc func(format string, args ...any)

// Guard coordinates exactly-once startup.
//
// The fast path (already initialized) is one atomic load. The slow path
// serializes on a mutex: the first arrival runs startup, later arrivals
// block until it finishes and then return. The mutex release paired with
// the atomic state store gives every thread that observes StateInitialized
// a fully-completed view of whatever startup published.
type Guard struct {
	state atomic.Int32
	mu    sync.Mutex

	// owner is the goroutine ID of the thread running startup, valid only
	// while state is StateInitializing. Used to tell recursion (fatal)
	// apart from concurrent arrival (blocks on mu).
	owner atomic.Int64

	startup func()
	fatalf  FatalFunc
}

// New returns a guard that runs startup on first EnsureInitialized and
// aborts through fatalf on re-entrant initialization.
//
// A nil fatalf installs the default abort: diagnostic to stderr, then
// os.Exit. Tests pass a recording function (which must still not return
// normally, e.g. panic).
func New(startup func(), fatalf FatalFunc) *Guard {
	if fatalf == nil {
		fatalf = defaultFatalf
	}
	return &Guard{startup: startup, fatalf: fatalf}
}

// State returns the current initialization state.
//
// Bypass-capable wrappers consult this to decide between validating
// normally and performing their real effect unvalidated during startup.
func (g *Guard) State() State {
	return State(g.state.Load())
}

// Initialized reports whether startup has completed.
func (g *Guard) Initialized() bool {
	return g.State() == StateInitialized
}

// EnsureInitialized makes the runtime initialized, running startup exactly
// once across all threads.
//
//   - Initialized: returns immediately (cheap common case).
//   - Uninitialized: transitions to Initializing, runs startup, transitions
//     to Initialized.
//   - Initializing, called from the initializing thread itself: fatal
//     internal-consistency violation. Startup, or a wrapper it reached,
//     re-entered the guard; by construction that must never happen.
//   - Initializing, called from another thread: blocks until startup
//     completes, then returns.
func (g *Guard) EnsureInitialized() {
	if g.Initialized() {
		return
	}

	if State(g.state.Load()) == StateInitializing && g.owner.Load() == threadreg.GoroutineID() {
		g.fatalf("initguard: recursive initialization: startup re-entered EnsureInitialized")
		return // unreachable; fatalf does not return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Another thread may have finished startup while we waited.
	if g.Initialized() {
		return
	}

	if !g.state.CompareAndSwap(int32(StateUninitialized), int32(StateInitializing)) {
		// Unreachable: under the mutex with state not Initialized, the
		// state must be Uninitialized. Anything else is a corrupted guard.
		g.fatalf("initguard: invalid state %s at startup entry", g.State())
		return
	}
	g.owner.Store(threadreg.GoroutineID())

	g.startup()

	g.owner.Store(0)
	g.state.Store(int32(StateInitialized))
}

// defaultFatalf prints the violation and terminates. Internal-consistency
// violations are bugs in the runtime itself, distinct from user-program
// diagnostics, so this path is plain stderr plus exit, with no report
// formatting or deduplication.
func defaultFatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FATAL: AddressSanitizer internal error: "+format+"\n", args...)
	os.Exit(2)
}
