// Package stackdepot implements stack trace storage and deduplication for
// thread provenance.
//
// When the thread-creation hook intercepts a spawn, it records where the
// thread was created so that later diagnostics can say "thread T3 created by
// thread T1 at <stack>". Creation sites repeat heavily (thread pools spawn
// from one loop), so the depot stores each unique stack once and hands out a
// 64-bit handle.
//
// Design:
//   - Fixed-size stack traces (16 frames, 128 bytes per stack)
//   - Hash-based deduplication (FNV-1a over the program counters)
//   - Global sync.Map storage (thread-safe)
//
// Usage:
//
//	// At the thread-creation interception point:
//	h := stackdepot.Capture(2)
//
//	// Later, when a diagnostic mentions the thread:
//	if tr := stackdepot.Get(h); tr != nil {
//	    fmt.Print(tr.Format())
//	}
package stackdepot

import (
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"
	"sync"
	"unsafe"
)

const (
	// MaxFrames is the maximum number of stack frames to capture.
	// Creation stacks are read by humans chasing a leaked or misattributed
	// thread, so we keep more than the classic 8 report frames.
	MaxFrames = 16
)

// Trace is a captured stack trace with fixed size.
//
// Memory layout: 16 x 8 bytes = 128 bytes per trace. Stored in the global
// depot, deduplicated by hash. Unused tail entries are zero.
type Trace struct {
	PC [MaxFrames]uintptr
}

// depot is the global deduplication store.
//
// Key: uint64 hash (FNV-1a of program counters)
// Value: *Trace
//
// Thread Safety: sync.Map provides lock-free reads, lock-based writes.
var depot sync.Map

// Capture captures the current stack trace and returns its handle.
//
// The trace is stored in the global depot for later retrieval. If the same
// stack was captured before, the existing handle is returned and nothing is
// allocated.
//
// skip is the number of frames to drop before recording, not counting
// runtime.Callers itself or Capture: Capture(0) starts at the caller.
//
// Returns 0 if no stack is available (does not happen in practice).
func Capture(skip int) uint64 {
	var pcs [MaxFrames]uintptr
	n := runtime.Callers(2+skip, pcs[:])
	if n == 0 {
		return 0
	}

	h := hashTrace(pcs[:n])

	// Deduplication: if this stack is already stored, skip the allocation.
	if _, exists := depot.Load(h); exists {
		return h
	}

	depot.Store(h, &Trace{PC: pcs})
	return h
}

// Get retrieves a stored trace by handle.
//
// Returns nil for the zero handle or for a handle that was never issued.
func Get(handle uint64) *Trace {
	if handle == 0 {
		return nil
	}
	val, ok := depot.Load(handle)
	if !ok {
		return nil
	}
	return val.(*Trace)
}

// hashTrace computes the FNV-1a hash of the program counters.
//
// FNV-1a is fast, has good distribution for PC sequences, and ships in the
// standard library.
func hashTrace(pcs []uintptr) uint64 {
	h := fnv.New64a()
	for _, pc := range pcs {
		// Read the PC value as its 8 raw bytes for hashing.
		b := (*[8]byte)(unsafe.Pointer(&pc))[:]
		_, _ = h.Write(b) // hash.Hash.Write never fails.
	}
	return h.Sum64()
}

// Format renders the trace for inclusion in a diagnostic.
//
// Output shape:
//
//	main.spawnWorkers()
//	    /path/to/file.go:45
//	main.main()
//	    /path/to/file.go:30
//
// Runtime-internal frames are filtered; they never help attribute a thread.
func (tr *Trace) Format() string {
	if tr == nil {
		return "  <unknown>\n"
	}

	frames := runtime.CallersFrames(tr.PC[:])

	var buf strings.Builder
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			break
		}

		if strings.HasPrefix(frame.Function, "runtime.") {
			if !more {
				break
			}
			continue
		}

		fmt.Fprintf(&buf, "  %s()\n", frame.Function)
		fmt.Fprintf(&buf, "      %s:%d\n", frame.File, frame.Line)

		if !more {
			break
		}
	}

	result := buf.String()
	if result == "" {
		return "  <runtime internal>\n"
	}
	return result
}

// Reset clears the depot (for testing).
//
// Thread Safety: NOT safe for concurrent calls. Only use in single-threaded
// test setup/teardown.
func Reset() {
	depot = sync.Map{}
}

// Stats returns the number of unique stacks stored and the approximate
// memory they occupy. O(N); diagnostic use only.
func Stats() (uniqueStacks int, totalMemory int64) {
	depot.Range(func(_, _ any) bool {
		uniqueStacks++
		return true
	})

	// 128 bytes per Trace plus ~32 bytes of sync.Map entry overhead.
	const bytesPerStack = 128 + 32
	return uniqueStacks, int64(uniqueStacks) * bytesPerStack
}
