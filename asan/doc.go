// Package asan provides a Pure-Go AddressSanitizer runtime core without
// CGO dependency.
//
// This package enforces memory-safety at the boundary of libc-style
// routines: every wrapped routine validates the exact byte ranges it is
// about to touch against poisoned-memory state before performing its
// real effect. Programs mark redzones and freed regions with [Poison]
// and the wrappers catch overflows, use-after-poison and overlapping
// copy operands the moment a routine would touch them.
//
// # Quick Start
//
//	package main
//
//	import (
//		"unsafe"
//
//		"github.com/kolkov/addrsanitizer/asan"
//	)
//
//	func main() {
//		asan.Init()
//		defer asan.Fini()
//
//		buf := make([]byte, 16)
//		base := uintptr(unsafe.Pointer(&buf[0]))
//
//		// Mark the last 4 bytes as a redzone.
//		asan.Poison(base+12, 4)
//
//		// This copy stays inside the legal prefix: fine.
//		src := []byte("hello world!")
//		asan.Memcpy(base, uintptr(unsafe.Pointer(&src[0])), 12)
//
//		// One byte further and the copy dies with a report before
//		// touching the redzone.
//		// asan.Memcpy(base, uintptr(unsafe.Pointer(&src[0])), 13)
//	}
//
// # API Overview
//
// The package provides functions for:
//   - Initialization and finalization: [Init], [Fini]
//   - Poison bookkeeping: [Poison], [Unpoison]
//   - Memory intrinsics: [Memcmp], [Memcpy], [Memmove], [Memset]
//   - String routines: [Strlen], [Strcpy], [Strcat], [Strcmp] and the
//     rest of the str* family
//   - Thread tracking: [SpawnThread]
//   - Non-local control transfer: [Setjmp], [Longjmp], [Throw]
//   - Signal registration policy: [Signal], [SignalAction]
//
// # How It Works
//
// Each wrapper computes the precise ranges its real routine dereferences
// and probes their endpoints against the shadow state. A comparison that
// stops at the first mismatching byte validates only the scanned prefix;
// a string search validates up to and including the match. Validating
// exactly what the routine touches keeps false positives at zero while
// catching every overflow a real access would commit.
//
// When a violation is found the runtime prints a report with the access
// kind, size, address and a stack trace, then terminates the process.
// Copy routines with undefined overlapping operands (memcpy, strcpy,
// strcat) additionally get an overlap check and report.
//
// # Configuration
//
// Behavior is controlled by the GOASAN environment variable, a
// colon-separated list of key=value flags:
//
//	GOASAN=replace_str=0:verbosity=1 ./myprogram
//
// Supported flags:
//
//	replace_intrin  validate the memory intrinsics (default 1)
//	replace_str     validate the string routines (default 1)
//	verbosity       informational notice level (default 0)
//
// Disabling a flag group never disables the routines themselves; they
// keep delegating, just without validation.
//
// # Compatibility
//
// Platform support:
//   - Operating systems: Linux, macOS
//   - Go version: 1.21 or later
//   - CGO requirement: None (works with CGO_ENABLED=0)
//   - Architecture: amd64, arm64
package asan
