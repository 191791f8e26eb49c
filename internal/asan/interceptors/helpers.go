package interceptors

import "unsafe"

// The interception layer addresses memory the way the instrumentation
// does: raw uintptr values naming live process memory, converted back to
// pointers only at the moment of access. Callers guarantee the addressed
// memory stays reachable for the duration of the call, which holds for
// instrumented code because the arguments it passes are addresses of its
// own live objects.

// loadByte reads the byte at addr.
//
//go:nosplit
func loadByte(addr uintptr) byte {
	return *(*byte)(unsafe.Pointer(addr))
}

// storeByte writes the byte at addr.
//
//go:nosplit
func storeByte(addr uintptr, b byte) {
	*(*byte)(unsafe.Pointer(addr)) = b
}

// byteSlice views size bytes at addr as a slice. A zero size yields nil.
func byteSlice(addr, size uintptr) []byte {
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}

// charCmp orders two bytes the way the comparison routines report:
// -1, 0 or 1, unsigned byte order.
func charCmp(c1, c2 byte) int {
	switch {
	case c1 == c2:
		return 0
	case c1 < c2:
		return -1
	default:
		return 1
	}
}

// toLowerByte lower-cases an ASCII byte; other bytes pass through. The
// case-insensitive comparisons are defined over the C locale, so ASCII is
// the whole contract.
func toLowerByte(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

// charCaseCmp orders two bytes case-insensitively, returning the
// difference of their lower-cased values like the C routine does.
func charCaseCmp(c1, c2 byte) int {
	return int(toLowerByte(c1)) - int(toLowerByte(c2))
}

// currentSP approximates the caller's stack position with the address of
// a fresh local. Good enough for the no-return hook's "everything between
// here and the jump target" contract and for diagnostic context; Go gives
// no portable access to the raw stack register.
//
//go:nosplit
func currentSP() uintptr {
	var anchor byte
	return uintptr(unsafe.Pointer(&anchor))
}
