// Copyright 2025 The addrsanitizer Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package threadreg tracks sanitizer thread descriptors and their lineage.
//
// Every thread created through the interception layer gets a Descriptor
// carrying its creation stack and the identifier of the creating thread.
// The registry also binds descriptors to the goroutines actually running
// them, so a later validation or report on that goroutine can attribute
// itself to the right thread.
//
// Ordering contract with the interception core: descriptor creation and
// registration always happen BEFORE the real creation primitive runs. A
// spawn failure therefore leaves a registered descriptor that never starts;
// readers of the registry must treat StateCreated descriptors as
// potentially never-started rather than assuming they are live.
package threadreg

import (
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// NoParent is the parent identifier of the process's first thread.
const NoParent int32 = -1

// State describes a descriptor's lifecycle position.
type State int32

const (
	// StateCreated means the descriptor is registered but its thread has
	// not entered the trampoline yet (or never will, if the spawn failed).
	StateCreated State = iota
	// StateRunning means the trampoline has bound the thread and invoked
	// the user's start routine.
	StateRunning
	// StateFinished means the start routine returned.
	StateFinished
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// StartRoutine is a user-supplied thread entry point.
type StartRoutine func(arg any) any

// Descriptor is the bookkeeping record for one sanitizer thread.
//
// TID, Parent, CreationStack, Start and Arg are set before registration and
// never written afterward; state is the only mutable field.
type Descriptor struct {
	// TID is the registry-assigned thread identifier. The first thread is 0.
	TID int32

	// Parent is the TID of the creating thread, or NoParent for the first
	// thread of the process.
	Parent int32

	// CreationStack is a stackdepot handle for the stack of the call that
	// created this thread. Zero if no stack was captured.
	CreationStack uint64

	// Start and Arg are the user's entry point and its argument. The
	// trampoline invokes Start(Arg) and publishes the result to the joiner.
	Start StartRoutine
	Arg   any

	state atomic.Int32
}

// State returns the descriptor's current lifecycle state.
func (d *Descriptor) State() State {
	return State(d.state.Load())
}

// Run marks the descriptor running, invokes the start routine, marks it
// finished, and returns the routine's result unchanged.
//
// Called by the trampoline only, on the thread the descriptor describes.
func (d *Descriptor) Run() any {
	d.state.Store(int32(StateRunning))
	result := d.Start(d.Arg)
	d.state.Store(int32(StateFinished))
	return result
}

// Registry assigns thread identifiers, stores descriptors, and tracks which
// descriptor the current goroutine is running.
//
// All methods are safe for concurrent use. Registration of concurrently
// created threads is serialized by an internal mutex so that a descriptor
// is either fully visible to readers or not present at all.
type Registry struct {
	mu      sync.Mutex
	byTID   map[int32]*Descriptor
	nextTID atomic.Int32

	// current maps goroutine ID -> *Descriptor for bound threads.
	// sync.Map because reads (CurrentTID on every report) vastly outnumber
	// writes (one bind per thread start).
	current sync.Map
}

// NewRegistry returns an empty registry. The first registered descriptor
// receives TID 0.
func NewRegistry() *Registry {
	return &Registry{byTID: make(map[int32]*Descriptor)}
}

// Create builds a descriptor for a thread about to be spawned.
//
// The descriptor is NOT yet registered; callers must pass it to Register
// before invoking the real creation primitive.
func (r *Registry) Create(parent int32, start StartRoutine, arg any, creationStack uint64) *Descriptor {
	return &Descriptor{
		TID:           r.nextTID.Add(1) - 1,
		Parent:        parent,
		CreationStack: creationStack,
		Start:         start,
		Arg:           arg,
	}
}

// Register stores the descriptor, making it visible to concurrent readers.
//
// Registration completes atomically with respect to other registrations:
// once Register returns, Get(d.TID) observes the descriptor from any
// thread.
func (r *Registry) Register(d *Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byTID[d.TID] = d
}

// Get returns the descriptor for tid, or nil if none is registered.
func (r *Registry) Get(tid int32) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byTID[tid]
}

// SetCurrent binds d to the calling goroutine.
//
// The trampoline calls this before the user's start routine runs, so every
// validation performed by the new thread attributes to its descriptor.
func (r *Registry) SetCurrent(d *Descriptor) {
	r.current.Store(GoroutineID(), d)
}

// Current returns the descriptor bound to the calling goroutine, or nil if
// this goroutine never went through the trampoline (and is not the
// registered first thread).
func (r *Registry) Current() *Descriptor {
	val, ok := r.current.Load(GoroutineID())
	if !ok {
		return nil
	}
	return val.(*Descriptor)
}

// CurrentTID returns the TID bound to the calling goroutine, or NoParent if
// the goroutine is unbound. The sentinel doubles as the parent value for
// threads created from unregistered contexts.
func (r *Registry) CurrentTID() int32 {
	d := r.Current()
	if d == nil {
		return NoParent
	}
	return d.TID
}

// RegisterMain creates, registers and binds the descriptor for the
// process's first thread (the goroutine calling RegisterMain). Its parent
// is NoParent and it is immediately running.
func (r *Registry) RegisterMain(creationStack uint64) *Descriptor {
	d := r.Create(NoParent, nil, nil, creationStack)
	d.state.Store(int32(StateRunning))
	r.Register(d)
	r.SetCurrent(d)
	return d
}

// Count returns the number of registered descriptors.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byTID)
}

// GoroutineID returns the runtime's ID for the calling goroutine.
//
// Portable slow path: parse the header of runtime.Stack output, which is
// stable across Go releases ("goroutine 123 [running]:"). This runs only on
// thread bind and descriptor lookup, never on the per-byte validation path,
// so the ~microsecond cost is acceptable.
func GoroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the goroutine ID from a runtime.Stack() header.
//
// Input format:
//
//	"goroutine 123 [running]:\n..."
//
// Returns 0 if the buffer does not parse (never observed in practice).
func parseGID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	buf = buf[len(prefix):]

	end := 0
	for end < len(buf) && buf[end] >= '0' && buf[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}

	gid, err := strconv.ParseInt(string(buf[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return gid
}
