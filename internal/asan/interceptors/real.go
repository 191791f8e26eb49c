// Copyright 2025 The addrsanitizer Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interceptors

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// RealRoutines holds the handles to the underlying, unwrapped
// implementations of every intercepted routine.
//
// Handles are resolved exactly once, during InitializeInterceptors, by an
// explicit resolution step; a handle that fails to resolve is
// startup-fatal (mustResolve), never a per-call nil check. Calling a
// handle performs the real effect with no validation.
type RealRoutines struct {
	Memcpy  func(to, from, size uintptr) uintptr
	Memmove func(to, from, size uintptr) uintptr
	Memset  func(to uintptr, c byte, size uintptr) uintptr

	Strchr  func(s uintptr, c byte) uintptr
	Strlen  func(s uintptr) uintptr
	Strnlen func(s, maxlen uintptr) uintptr
	Strcmp  func(s1, s2 uintptr) int
	Strncmp func(s1, s2, n uintptr) int
	Strcpy  func(to, from uintptr) uintptr
	Strncpy func(to, from, n uintptr) uintptr
	Strcat  func(to, from uintptr) uintptr
	Strncat func(to, from, n uintptr) uintptr
	Strdup  func(s uintptr) uintptr

	SpawnThread func(fn func()) error

	Longjmp func(env *Env, val int)
	Throw   func(v any)

	Signal    func(sig unix.Signal, handler SignalHandler) SignalHandler
	Sigaction func(sig unix.Signal, act *Sigaction) *Sigaction
}

// resolveCapabilities decides platform facts once at startup.
func resolveCapabilities() capabilities {
	return capabilities{
		// The pure-Go move primitive is built on copy, which tolerates
		// overlap, so the copy handle aliases the move handle on every
		// target this runtime supports.
		memcpyAliasesMemmove: true,
	}
}

// resolveRealRoutines binds every handle to its implementation.
//
// In the original tool this resolution digs the pre-interception symbol
// out of the loader; here the unwrapped implementations are the internal
// routines below, and resolution is the explicit step that turns them
// into the one table wrappers delegate through.
func resolveRealRoutines(caps capabilities) RealRoutines {
	st := newSignalTable()

	r := RealRoutines{
		Memmove: internalMemmove,
		Memset:  internalMemset,

		Strchr:  internalStrchr,
		Strlen:  internalStrlen,
		Strnlen: internalStrnlen,
		Strcmp:  internalStrcmp,
		Strncmp: internalStrncmp,
		Strcpy:  internalStrcpy,
		Strncpy: internalStrncpy,
		Strcat:  internalStrcat,
		Strncat: internalStrncat,
		Strdup:  internalStrdup,

		SpawnThread: internalSpawnThread,

		Longjmp: internalLongjmp,
		Throw:   internalThrow,

		Signal:    st.signal,
		Sigaction: st.sigaction,
	}

	if caps.memcpyAliasesMemmove {
		r.Memcpy = r.Memmove
	} else {
		r.Memcpy = internalMemmove
	}

	return r
}

// mustResolve aborts startup if any handle is missing. An unresolved
// handle means the startup sequence is broken, which is an internal bug,
// not a user diagnostic.
func (r *RealRoutines) mustResolve(fatalf func(format string, args ...any)) {
	for _, h := range []struct {
		name    string
		missing bool
	}{
		{"memcpy", r.Memcpy == nil},
		{"memmove", r.Memmove == nil},
		{"memset", r.Memset == nil},
		{"strchr", r.Strchr == nil},
		{"strlen", r.Strlen == nil},
		{"strnlen", r.Strnlen == nil},
		{"strcmp", r.Strcmp == nil},
		{"strncmp", r.Strncmp == nil},
		{"strcpy", r.Strcpy == nil},
		{"strncpy", r.Strncpy == nil},
		{"strcat", r.Strcat == nil},
		{"strncat", r.Strncat == nil},
		{"strdup", r.Strdup == nil},
		{"spawn_thread", r.SpawnThread == nil},
		{"longjmp", r.Longjmp == nil},
		{"throw", r.Throw == nil},
		{"signal", r.Signal == nil},
		{"sigaction", r.Sigaction == nil},
	} {
		if h.missing {
			fatalf("interceptors: real routine %q failed to resolve", h.name)
		}
	}
}

// ---------------------------------------------------------------------
// Internal implementations.
//
// These perform the real effects with no validation. The subset reachable
// from startup (memory copy/set, string length and scans) is also called
// directly by the bypass paths, before the table exists.

func internalMemmove(to, from, size uintptr) uintptr {
	if size > 0 && to != from {
		copy(byteSlice(to, size), byteSlice(from, size))
	}
	return to
}

func internalMemset(to uintptr, c byte, size uintptr) uintptr {
	b := byteSlice(to, size)
	for i := range b {
		b[i] = c
	}
	return to
}

func internalMemcmp(a, b, size uintptr) int {
	for i := uintptr(0); i < size; i++ {
		c1, c2 := loadByte(a+i), loadByte(b+i)
		if c1 != c2 {
			return charCmp(c1, c2)
		}
	}
	return 0
}

func internalStrlen(s uintptr) uintptr {
	i := uintptr(0)
	for loadByte(s+i) != 0 {
		i++
	}
	return i
}

func internalStrnlen(s, maxlen uintptr) uintptr {
	i := uintptr(0)
	for i < maxlen && loadByte(s+i) != 0 {
		i++
	}
	return i
}

// internalStrchr returns the address of the first occurrence of c in the
// terminated string at s, or 0 if there is none. Searching for the
// terminator itself finds the terminator.
func internalStrchr(s uintptr, c byte) uintptr {
	for i := uintptr(0); ; i++ {
		b := loadByte(s + i)
		if b == c {
			return s + i
		}
		if b == 0 {
			return 0
		}
	}
}

func internalStrcmp(s1, s2 uintptr) int {
	for i := uintptr(0); ; i++ {
		c1, c2 := loadByte(s1+i), loadByte(s2+i)
		if c1 != c2 {
			return charCmp(c1, c2)
		}
		if c1 == 0 {
			return 0
		}
	}
}

func internalStrncmp(s1, s2, n uintptr) int {
	for i := uintptr(0); i < n; i++ {
		c1, c2 := loadByte(s1+i), loadByte(s2+i)
		if c1 != c2 {
			return charCmp(c1, c2)
		}
		if c1 == 0 {
			return 0
		}
	}
	return 0
}

func internalStrcpy(to, from uintptr) uintptr {
	n := internalStrlen(from) + 1 // include the terminator
	copy(byteSlice(to, n), byteSlice(from, n))
	return to
}

// internalStrncpy copies at most n bytes and, like the C routine, pads the
// remainder of the destination with terminators.
func internalStrncpy(to, from, n uintptr) uintptr {
	l := internalStrnlen(from, n)
	copy(byteSlice(to, l), byteSlice(from, l))
	for i := l; i < n; i++ {
		storeByte(to+i, 0)
	}
	return to
}

func internalStrcat(to, from uintptr) uintptr {
	internalStrcpy(to+internalStrlen(to), from)
	return to
}

// internalStrncat appends at most n bytes of from, then always writes a
// terminator.
func internalStrncat(to, from, n uintptr) uintptr {
	l := internalStrlen(to)
	i := uintptr(0)
	for ; i < n; i++ {
		b := loadByte(from + i)
		if b == 0 {
			break
		}
		storeByte(to+l+i, b)
	}
	storeByte(to+l+i, 0)
	return to
}

// strdupAllocs keeps duplicated strings reachable so the collector never
// frees memory the caller still addresses through a raw uintptr.
var strdupAllocs struct {
	mu   sync.Mutex
	bufs [][]byte
}

func internalStrdup(s uintptr) uintptr {
	n := internalStrlen(s)
	buf := make([]byte, n+1)
	copy(buf, byteSlice(s, n))

	strdupAllocs.mu.Lock()
	strdupAllocs.bufs = append(strdupAllocs.bufs, buf)
	strdupAllocs.mu.Unlock()

	return uintptr(unsafe.Pointer(&buf[0]))
}

// internalSpawnThread is the real thread-creation primitive: it starts fn
// on a fresh thread of execution. Creation of a goroutine cannot fail, so
// the error return exists for the wrapper's contract (a failing primitive
// propagates its native error unchanged) and for injected failures in
// tests.
func internalSpawnThread(fn func()) error {
	go fn()
	return nil
}

// jumpValue is the payload the real transfer primitive unwinds with.
type jumpValue struct {
	env *Env
	val int
}

// internalLongjmp performs the real non-local transfer: it unwinds to the
// Setjmp that armed env. Never returns. A zero val is delivered as 1,
// preserving the C contract that the restored context cannot observe the
// first-return value.
func internalLongjmp(env *Env, val int) {
	if val == 0 {
		val = 1
	}
	panic(jumpValue{env: env, val: val})
}

// internalThrow performs the real exception propagation. Never returns.
func internalThrow(v any) {
	panic(v)
}

// ---------------------------------------------------------------------
// Real signal registration.
//
// Actual kernel delivery is the host program's concern; the real routine
// this core resolves is the process-local registration table whose swap
// semantics match signal(2): register the new handler, hand back the
// previous one.

// SignalHandler is a user signal handler.
type SignalHandler func(sig unix.Signal)

// Sigaction is the registration record for the sigaction-style wrapper.
type Sigaction struct {
	Handler SignalHandler
	Flags   int
}

type signalTable struct {
	mu       sync.Mutex
	handlers map[unix.Signal]*Sigaction
}

func newSignalTable() *signalTable {
	return &signalTable{handlers: make(map[unix.Signal]*Sigaction)}
}

func (t *signalTable) signal(sig unix.Signal, handler SignalHandler) SignalHandler {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.handlers[sig]
	t.handlers[sig] = &Sigaction{Handler: handler}
	if prev == nil {
		return nil
	}
	return prev.Handler
}

// sigaction registers act (nil act queries without changing anything) and
// returns the previous registration, nil if none.
func (t *signalTable) sigaction(sig unix.Signal, act *Sigaction) *Sigaction {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.handlers[sig]
	if act != nil {
		t.handlers[sig] = act
	}
	return prev
}
