// Copyright 2025 The addrsanitizer Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interceptors

import (
	"sync"

	"github.com/kolkov/addrsanitizer/internal/asan/threadreg"
)

// Thread is the caller's handle to a spawned thread: the registry
// descriptor plus the join channel the trampoline publishes the start
// routine's result on.
type Thread struct {
	descriptor *threadreg.Descriptor

	result   chan any
	joinOnce sync.Once
	value    any
}

// TID returns the runtime-assigned thread ID.
func (t *Thread) TID() int32 {
	return t.descriptor.TID
}

// Descriptor returns the registry descriptor for inspection.
func (t *Thread) Descriptor() *threadreg.Descriptor {
	return t.descriptor
}

// Join blocks until the thread's start routine returns and yields its
// result. Subsequent calls return the same value without blocking.
func (t *Thread) Join() any {
	t.joinOnce.Do(func() {
		t.value = <-t.result
	})
	return t.value
}

// SpawnThread creates a thread running start(arg).
//
// The descriptor carries the spawning thread as parent and the spawn
// site's captured stack as provenance, and is registered BEFORE the real
// creation primitive runs: a start routine that immediately asks about
// itself (or a sibling that looks it up by TID) must find the descriptor
// already present, so registration cannot race with the new thread's
// first instruction.
//
// If the real primitive fails, the error is returned and the registered
// descriptor stays in the created state, never having run.
func (rt *Runtime) SpawnThread(start threadreg.StartRoutine, arg any) (*Thread, error) {
	rt.ensureInited()

	creationStack := rt.collab.CaptureStack()
	parent := rt.collab.Registry.CurrentTID()

	d := rt.collab.Registry.Create(parent, start, arg, creationStack)
	rt.collab.Registry.Register(d)

	t := &Thread{descriptor: d, result: make(chan any, 1)}
	if err := rt.real.SpawnThread(func() { rt.threadStart(t) }); err != nil {
		return nil, err
	}
	return t, nil
}

// threadStart is the trampoline every spawned thread enters through: it
// binds the descriptor to the new thread first, so any intercepted call
// the start routine makes resolves the right identity, then runs the
// start routine and publishes its result for Join.
func (rt *Runtime) threadStart(t *Thread) {
	rt.collab.Registry.SetCurrent(t.descriptor)
	t.result <- t.descriptor.Run()
}
