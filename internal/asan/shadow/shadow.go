// Package shadow provides the default poison oracle for the sanitizer.
//
// The shadow map records which memory bytes are currently poisoned, that is,
// invalid to access: freed memory, redzone guard bytes around allocations,
// or regions explicitly poisoned by an allocator or a test. The interception
// core consults it through a single predicate (Poisoned) and never learns
// how the state is encoded.
//
// Implementation: a sync.Map keyed by byte address. This mirrors the
// address-keyed shadow structure used by the race detector runtime:
//   - Thread-safe concurrent access without external locking
//   - Optimized for read-heavy workloads (the poison query dominates)
//   - No false sharing between unrelated addresses
//
// Granularity is exact byte addresses. A production allocator would use a
// compressed encoding (one shadow byte per 8 application bytes); the map
// representation keeps the oracle honest and trivially testable while the
// query contract stays identical.
package shadow

import "sync"

// Map is a byte-granular poison map.
//
// The zero value is ready to use. All methods are safe for concurrent use
// except Reset, which requires external quiescence (test teardown only).
type Map struct {
	bytes sync.Map // uintptr (byte address) -> struct{} (present == poisoned)
}

// NewMap returns an empty poison map.
func NewMap() *Map {
	return &Map{}
}

// Poisoned reports whether the single byte at addr is currently poisoned.
//
// This is the oracle predicate the access validator probes. It is on the
// hot path of every intercepted call, so it is a single lock-free load.
func (m *Map) Poisoned(addr uintptr) bool {
	_, ok := m.bytes.Load(addr)
	return ok
}

// PoisonRange marks size bytes starting at addr as poisoned.
//
// Poisoning an already-poisoned byte is a no-op. A zero size does nothing.
func (m *Map) PoisonRange(addr, size uintptr) {
	for i := uintptr(0); i < size; i++ {
		m.bytes.Store(addr+i, struct{}{})
	}
}

// UnpoisonRange clears the poison marks on size bytes starting at addr.
//
// Unpoisoning a byte that was never poisoned is a no-op. A zero size does
// nothing.
func (m *Map) UnpoisonRange(addr, size uintptr) {
	for i := uintptr(0); i < size; i++ {
		m.bytes.Delete(addr + i)
	}
}

// UnpoisonSpan clears every poison mark whose address falls in the
// half-open interval [lo, hi).
//
// Unlike UnpoisonRange this walks the stored marks rather than the
// interval, so it stays cheap for the very large spans the no-return hook
// clears when a non-local jump abandons stack frames.
func (m *Map) UnpoisonSpan(lo, hi uintptr) {
	m.bytes.Range(func(key, _ any) bool {
		addr := key.(uintptr)
		if addr >= lo && addr < hi {
			m.bytes.Delete(addr)
		}
		return true
	})
}

// PoisonedCount returns the number of currently poisoned bytes.
//
// O(n) walk; diagnostic and test use only.
func (m *Map) PoisonedCount() int {
	n := 0
	m.bytes.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Reset forgets all poison marks.
//
// NOT safe for concurrent use; callers must ensure no other goroutine is
// touching the map (test setup/teardown only).
func (m *Map) Reset() {
	m.bytes = sync.Map{}
}
