package interceptors

// Wrappers for the memory intrinsics. Copy and set are reachable from the
// runtime's own startup (the diagnostic plumbing copies and zeroes
// buffers), so while the guard is in the initializing state they perform
// their real effect with no validation instead of re-entering the guard.

// Memcmp compares size bytes at a and b.
//
// The scan stops at the first differing byte; the validated read range on
// BOTH operands is min(i+1, size), exactly the bytes the scan
// dereferenced. Comparing equal buffers therefore validates the full
// range, while an early mismatch validates only the touched prefix.
func (rt *Runtime) Memcmp(a, b, size uintptr) int {
	rt.ensureInited()

	var c1, c2 byte
	var i uintptr
	for i = 0; i < size; i++ {
		c1, c2 = loadByte(a+i), loadByte(b+i)
		if c1 != c2 {
			break
		}
	}
	rt.readRange(a, min(i+1, size))
	rt.readRange(b, min(i+1, size))
	return charCmp(c1, c2)
}

// Memcpy copies size bytes from from to to and returns to.
//
// Overlapping operands are undefined for a copy and rejected hard, with
// one carve-out: to == from is explicitly permitted and skipped, because
// self-copy is harmless and real programs do it.
func (rt *Runtime) Memcpy(to, from, size uintptr) uintptr {
	// Reachable from startup; bypass while the runtime brings itself up.
	if rt.initializing() {
		return internalMemmove(to, from, size)
	}
	rt.ensureInited()

	if rt.flags.ReplaceIntrin {
		if to != from {
			rt.checkOverlap("memcpy", to, size, from, size)
		}
		rt.writeRange(to, size)
		rt.readRange(from, size)
	}
	return rt.real.Memcpy(to, from, size)
}

// Memmove copies size bytes, tolerating overlap, and returns to.
func (rt *Runtime) Memmove(to, from, size uintptr) uintptr {
	rt.ensureInited()

	if rt.flags.ReplaceIntrin {
		rt.writeRange(to, size)
		rt.readRange(from, size)
	}
	return rt.real.Memmove(to, from, size)
}

// Memset stores c into size bytes at block and returns block.
func (rt *Runtime) Memset(block uintptr, c byte, size uintptr) uintptr {
	// Reachable from startup; bypass while the runtime brings itself up.
	if rt.initializing() {
		return internalMemset(block, c, size)
	}
	rt.ensureInited()

	if rt.flags.ReplaceIntrin {
		rt.writeRange(block, size)
	}
	return rt.real.Memset(block, c, size)
}
