// Package interceptors implements the interception dispatch set of the
// sanitizer runtime.
//
// Every wrapped routine follows the same template: ensure the runtime is
// initialized (or take the startup bypass), compute the exact byte ranges
// the real routine will touch, validate them against the poison oracle
// (and, for copy-like routines, check operand overlap), then delegate to
// the real routine and return its result verbatim. Wrappers never alter
// the value the real routine produces; they only gate whether it runs and
// what gets reported before it runs.
//
// The touch patterns are reproduced byte-for-byte from the routine
// semantics: a comparison reads exactly min(index_of_first_difference+1,
// bound) on both operands, a string search reads up to and including the
// matched position, and so on. Validating more would flag bytes the real
// routine never dereferences; validating less would miss overflows.
//
// Collaborators (poison oracle, reporter, thread registry, stack capture,
// no-return hook, signal policy) are injected, so tests build independent
// runtimes with recording collaborators instead of sharing process state.
package interceptors

import (
	"github.com/kolkov/addrsanitizer/internal/asan/checker"
	"github.com/kolkov/addrsanitizer/internal/asan/config"
	"github.com/kolkov/addrsanitizer/internal/asan/initguard"
	"github.com/kolkov/addrsanitizer/internal/asan/threadreg"

	"golang.org/x/sys/unix"
)

// ThreadRegistry is the slice of the thread registry this core consumes.
// *threadreg.Registry satisfies it.
type ThreadRegistry interface {
	// Create builds a descriptor for a thread about to be spawned.
	Create(parent int32, start threadreg.StartRoutine, arg any, creationStack uint64) *threadreg.Descriptor
	// Register makes the descriptor visible; completes atomically with
	// respect to concurrent registrations.
	Register(d *threadreg.Descriptor)
	// SetCurrent binds d to the calling goroutine.
	SetCurrent(d *threadreg.Descriptor)
	// CurrentTID returns the calling goroutine's thread ID, or
	// threadreg.NoParent when unbound.
	CurrentTID() int32
}

// Collaborators are the external interfaces the interception core consumes.
// All fields are required; NewRuntime treats a nil field as a construction
// bug and aborts through Fatalf (or panics if even Fatalf is missing).
type Collaborators struct {
	// IsPoisoned is the shadow-memory oracle.
	IsPoisoned checker.IsPoisonedFunc

	// Report produces the user-visible diagnostic for an illegal access
	// and terminates. Never returns.
	Report checker.ReportFunc

	// ReportOverlap produces the diagnostic for overlapping operand ranges
	// and terminates. Never returns.
	ReportOverlap func(routine string, a, lenA, b, lenB uintptr)

	// NoticeOnce emits an informational notice at most once per process
	// for the given key.
	NoticeOnce func(key, format string, args ...any)

	// Noticef emits an informational notice when verbosity is at least
	// minVerbosity.
	Noticef func(minVerbosity int, format string, args ...any)

	// CaptureStack captures the current stack for thread provenance and
	// returns a depot handle.
	CaptureStack func() uint64

	// Registry is the thread registry.
	Registry ThreadRegistry

	// HandleNoReturn clears poison from stack memory between the given
	// stack position and the (possibly unknown) transfer target, so
	// frames skipped by a non-local jump do not leave dangling marks.
	HandleNoReturn func(sp uintptr)

	// SignalIsReserved reports whether this runtime reserves the signal
	// for its own use, blocking user registration.
	SignalIsReserved func(sig unix.Signal) bool

	// Fatalf aborts on an internal-consistency violation. Never returns.
	Fatalf initguard.FatalFunc
}

// Runtime is one instance of the interception layer: the dispatch set plus
// the state it shares (initialization guard, flags, resolved real-routine
// handles).
//
// The process normally has exactly one Runtime, assembled by the public
// asan package; tests construct as many as they need.
type Runtime struct {
	flags  config.Flags
	collab Collaborators
	guard  *initguard.Guard
	check  *checker.Checker

	// real holds the resolved handles to the underlying, unwrapped
	// implementations. Populated once by InitializeInterceptors; an
	// unresolved handle there is startup-fatal, never a per-call check.
	real RealRoutines

	caps capabilities
}

// capabilities records platform facts resolved once at startup instead of
// being re-decided per wrapper call.
type capabilities struct {
	// memcpyAliasesMemmove is true when the platform's copy routine is
	// the move routine (overlap-safe implementation underneath). The
	// wrapper still rejects overlapping memcpy operands either way; this
	// only decides which handle the copy delegates to.
	memcpyAliasesMemmove bool
}

// NewRuntime assembles a runtime from flags and collaborators.
//
// The returned runtime is not yet initialized; initialization happens on
// the first intercepted call or an explicit Init.
func NewRuntime(flags config.Flags, collab Collaborators) *Runtime {
	if collab.Fatalf == nil {
		panic("interceptors: Collaborators.Fatalf is required")
	}
	checkCollaborators(collab)

	rt := &Runtime{flags: flags, collab: collab}
	rt.check = checker.New(collab.IsPoisoned, collab.Report)
	rt.guard = initguard.New(rt.InitializeInterceptors, collab.Fatalf)
	return rt
}

// checkCollaborators aborts on missing collaborators. A nil collaborator
// discovered at call time would be a confusing crash inside a wrapper;
// failing at construction keeps the contract visible.
func checkCollaborators(c Collaborators) {
	for _, f := range []struct {
		name    string
		missing bool
	}{
		{"IsPoisoned", c.IsPoisoned == nil},
		{"Report", c.Report == nil},
		{"ReportOverlap", c.ReportOverlap == nil},
		{"NoticeOnce", c.NoticeOnce == nil},
		{"Noticef", c.Noticef == nil},
		{"CaptureStack", c.CaptureStack == nil},
		{"Registry", c.Registry == nil},
		{"HandleNoReturn", c.HandleNoReturn == nil},
		{"SignalIsReserved", c.SignalIsReserved == nil},
	} {
		if f.missing {
			c.Fatalf("interceptors: collaborator %s is nil", f.name)
		}
	}
}

// Init makes the runtime initialized, running startup exactly once. Safe
// to call from any number of threads concurrently; see initguard.
func (rt *Runtime) Init() {
	rt.guard.EnsureInitialized()
}

// Guard exposes the initialization guard, mainly so the public facade and
// tests can observe the state machine.
func (rt *Runtime) Guard() *initguard.Guard {
	return rt.guard
}

// Flags returns the runtime's read-only flag set.
func (rt *Runtime) Flags() config.Flags {
	return rt.flags
}

// InitializeInterceptors is the one-time startup sequence: it resolves
// every real-routine handle and records platform capabilities. It runs
// inside the initialization guard, before the guard transitions to
// Initialized; application code calls Init, never this.
func (rt *Runtime) InitializeInterceptors() {
	rt.caps = resolveCapabilities()
	rt.real = resolveRealRoutines(rt.caps)
	rt.real.mustResolve(rt.collab.Fatalf)

	rt.collab.Noticef(1, "AddressSanitizer: libc interceptors initialized")
}

// ensureInited is the per-wrapper initialization check. The guard treats
// re-entry from the initializing thread as a fatal internal-consistency
// violation; wrappers reachable from startup must check initializing()
// and bypass instead of calling this.
func (rt *Runtime) ensureInited() {
	rt.guard.EnsureInitialized()
}

// initializing reports whether startup is running right now. Wrappers in
// the startup-reachable set use this to take the validation-free bypass.
func (rt *Runtime) initializing() bool {
	return rt.guard.State() == initguard.StateInitializing
}

// checkOverlap reports and terminates when the two half-open ranges
// intersect. Routines that permit self-aliasing (memcpy with to == from)
// skip the call entirely rather than special-casing here.
func (rt *Runtime) checkOverlap(routine string, a, lenA, b, lenB uintptr) {
	if checker.RangesOverlap(a, lenA, b, lenB) {
		rt.collab.ReportOverlap(routine, a, lenA, b, lenB)
	}
}

// readRange and writeRange validate the endpoints of a touched range.

func (rt *Runtime) readRange(addr, size uintptr) {
	rt.check.ReadRange(addr, size)
}

func (rt *Runtime) writeRange(addr, size uintptr) {
	rt.check.WriteRange(addr, size)
}
