// Copyright 2025 The addrsanitizer Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package checker validates memory accesses against the poison oracle.
//
// This is the unit every interceptor builds on. It answers exactly two
// questions:
//
//  1. Is this byte (or byte range) legal to touch? (Checker)
//  2. Do these two ranges overlap? (RangesOverlap)
//
// Range checks probe only the first and the last byte of the range. This is
// a deliberate cost/coverage trade-off, not a shortcut to fix later:
// redzones surround every valid allocation, so an out-of-bounds access must
// cross an endpoint, and the two probes catch the overflow classes this
// runtime targets at O(1) per call regardless of range size. Do not
// "improve" this to a full scan; that changes both the performance
// profile and the set of bugs detected.
package checker

import (
	"runtime"
	"unsafe"
)

// IsPoisonedFunc is the shadow-memory oracle: it reports whether the single
// byte at addr is currently invalid to access.
type IsPoisonedFunc func(addr uintptr) bool

// ReportFunc produces the user-visible diagnostic for an illegal access and
// terminates the process. It must never return; the checker has no recovery
// path after calling it.
//
// pc is the program counter of the intercepted call, fp and sp approximate
// the faulting frame and stack position.
type ReportFunc func(pc, fp, sp uintptr, addr uintptr, isWrite bool, accessSize uintptr)

// Checker validates byte and range accesses for the interception layer.
//
// A Checker is immutable after construction and safe for concurrent use.
// Tests construct independent instances with recording collaborators
// instead of sharing process-global state.
type Checker struct {
	poisoned IsPoisonedFunc
	report   ReportFunc
}

// New returns a Checker probing the given oracle and reporting through the
// given diagnostic path.
func New(poisoned IsPoisonedFunc, report ReportFunc) *Checker {
	return &Checker{poisoned: poisoned, report: report}
}

// AccessAddress validates a single-byte access at addr.
//
// On poison it invokes the report path with access size 1 and does not
// return. The access kind only affects the diagnostic, never the decision.
func (c *Checker) AccessAddress(addr uintptr, isWrite bool) {
	if !c.poisoned(addr) {
		return
	}
	pc, fp, sp := accessContext()
	c.report(pc, fp, sp, addr, isWrite, 1)
}

// AccessRange validates an access to size bytes starting at addr.
//
// Only the first and last byte are probed (see the package comment). A
// zero-size range is always legal and performs no probe at all.
func (c *Checker) AccessRange(addr, size uintptr, isWrite bool) {
	if size == 0 {
		return
	}
	c.AccessAddress(addr, isWrite)
	c.AccessAddress(addr+size-1, isWrite)
}

// ReadRange validates a read of size bytes starting at addr.
func (c *Checker) ReadRange(addr, size uintptr) {
	c.AccessRange(addr, size, false)
}

// WriteRange validates a write of size bytes starting at addr.
func (c *Checker) WriteRange(addr, size uintptr) {
	c.AccessRange(addr, size, true)
}

// RangesOverlap reports whether the half-open intervals [a, a+lenA) and
// [b, b+lenB) intersect.
//
// Copy-like and concatenate-like routines have undefined behavior on
// overlapping operands; their wrappers treat a true result as a hard error.
// An empty interval never overlaps anything.
func RangesOverlap(a, lenA, b, lenB uintptr) bool {
	return !(a+lenA <= b || b+lenB <= a)
}

// accessContext captures the reporting context for a detected violation:
// the program counter of the intercepted call plus approximate frame and
// stack pointers.
//
// The PC skips the checker's own frames so the diagnostic points at the
// wrapper's caller, keeping the stack trace relevant. Go gives no portable
// access to the raw frame/stack registers; the address of a local is the
// closest faithful stand-in for the stack position at the fault.
func accessContext() (pc, fp, sp uintptr) {
	// Caller chain: accessContext <- AccessAddress <- wrapper code.
	if c, _, _, ok := runtime.Caller(2); ok {
		pc = c
	}
	var anchor byte
	sp = uintptr(unsafe.Pointer(&anchor))
	fp = sp
	return pc, fp, sp
}
