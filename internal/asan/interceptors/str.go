package interceptors

// Wrappers for the string routines. Each computes the exact byte ranges
// the real routine touches, validates them, then delegates. The replace_str flag disables the validation while keeping
// the delegation, as a compatibility fallback.
//
// strcpy, strlen and strncmp are reachable from the runtime's own startup
// and take the unvalidated bypass while the guard is initializing; strcmp
// additionally works before initialization ever happened, falling back to
// the internal scan, because early process plumbing compares strings
// before anyone calls Init.

// Strchr returns the address of the first occurrence of c in the
// terminated string at str, or 0 if c does not occur. Searching for the
// terminator finds the terminator.
//
// The validated read range is the bytes the scan dereferenced: up to and
// including the match, or the full length plus terminator on a miss.
func (rt *Runtime) Strchr(str uintptr, c byte) uintptr {
	rt.ensureInited()

	result := rt.real.Strchr(str, c)
	if rt.flags.ReplaceStr {
		var bytesRead uintptr
		if result != 0 {
			bytesRead = result - str + 1
		} else {
			bytesRead = rt.real.Strlen(str) + 1
		}
		rt.readRange(str, bytesRead)
	}
	return result
}

// Index is the historical alias for Strchr; the platforms this runtime
// grew up on resolve it to the same wrapper.
func (rt *Runtime) Index(str uintptr, c byte) uintptr {
	return rt.Strchr(str, c)
}

// Strcmp compares two terminated strings.
//
// Before the runtime is initialized this falls back to the internal scan
// with no validation; the comparison itself is still correct.
func (rt *Runtime) Strcmp(s1, s2 uintptr) int {
	if !rt.guard.Initialized() {
		return internalStrcmp(s1, s2)
	}

	var c1, c2 byte
	var i uintptr
	for i = 0; ; i++ {
		c1, c2 = loadByte(s1+i), loadByte(s2+i)
		if c1 != c2 || c1 == 0 {
			break
		}
	}
	rt.readRange(s1, i+1)
	rt.readRange(s2, i+1)
	return charCmp(c1, c2)
}

// Strncmp compares at most size bytes of two terminated strings.
func (rt *Runtime) Strncmp(s1, s2, size uintptr) int {
	// Reachable from startup; bypass while the runtime brings itself up.
	if rt.initializing() {
		return internalStrncmp(s1, s2, size)
	}
	rt.ensureInited()

	var c1, c2 byte
	var i uintptr
	for i = 0; i < size; i++ {
		c1, c2 = loadByte(s1+i), loadByte(s2+i)
		if c1 != c2 || c1 == 0 {
			break
		}
	}
	rt.readRange(s1, min(i+1, size))
	rt.readRange(s2, min(i+1, size))
	return charCmp(c1, c2)
}

// Strcasecmp compares two terminated strings ignoring ASCII case.
func (rt *Runtime) Strcasecmp(s1, s2 uintptr) int {
	rt.ensureInited()

	var c1, c2 byte
	var i uintptr
	for i = 0; ; i++ {
		c1, c2 = loadByte(s1+i), loadByte(s2+i)
		if charCaseCmp(c1, c2) != 0 || c1 == 0 {
			break
		}
	}
	rt.readRange(s1, i+1)
	rt.readRange(s2, i+1)
	return charCaseCmp(c1, c2)
}

// Strncasecmp compares at most n bytes of two terminated strings ignoring
// ASCII case.
func (rt *Runtime) Strncasecmp(s1, s2, n uintptr) int {
	rt.ensureInited()

	var c1, c2 byte
	var i uintptr
	for i = 0; i < n; i++ {
		c1, c2 = loadByte(s1+i), loadByte(s2+i)
		if charCaseCmp(c1, c2) != 0 || c1 == 0 {
			break
		}
	}
	rt.readRange(s1, min(i+1, n))
	rt.readRange(s2, min(i+1, n))
	return charCaseCmp(c1, c2)
}

// Strcat appends the terminated string at from to the one at to.
//
// The source's full terminated length is always read-validated. Only when
// the source is non-empty does the routine touch the destination: its
// existing content is read (the append scans for the terminator), the
// tail receiving the appended bytes plus the new terminator is
// write-validated, and the source is overlap-checked against the existing
// destination content. An empty source touches nothing in the
// destination and can never overlap.
func (rt *Runtime) Strcat(to, from uintptr) uintptr {
	rt.ensureInited()

	if rt.flags.ReplaceStr {
		fromLength := rt.real.Strlen(from)
		rt.readRange(from, fromLength+1)
		if fromLength > 0 {
			toLength := rt.real.Strlen(to)
			rt.readRange(to, toLength)
			rt.writeRange(to+toLength, fromLength+1)
			rt.checkOverlap("strcat", to, toLength+1, from, fromLength+1)
		}
	}
	return rt.real.Strcat(to, from)
}

// Strncat appends at most n bytes of from to to, then terminates.
//
// The validated spans use the bytes actually appended: strnlen(from, n)
// source bytes (plus terminator when it falls within the bound), the
// destination tail that receives them, and the overlap check over both.
func (rt *Runtime) Strncat(to, from, n uintptr) uintptr {
	rt.ensureInited()

	if rt.flags.ReplaceStr {
		copyLength := rt.real.Strnlen(from, n)
		rt.readRange(from, min(copyLength+1, n))
		if copyLength > 0 {
			toLength := rt.real.Strlen(to)
			rt.readRange(to, toLength)
			rt.writeRange(to+toLength, copyLength+1)
			rt.checkOverlap("strncat", to, toLength+1, from, copyLength+1)
		}
	}
	return rt.real.Strncat(to, from, n)
}

// Strcpy copies the terminated string at from into to.
func (rt *Runtime) Strcpy(to, from uintptr) uintptr {
	// Reachable from startup; bypass while the runtime brings itself up.
	if rt.initializing() {
		return internalStrcpy(to, from)
	}
	rt.ensureInited()

	if rt.flags.ReplaceStr {
		fromSize := rt.real.Strlen(from) + 1
		rt.checkOverlap("strcpy", to, fromSize, from, fromSize)
		rt.readRange(from, fromSize)
		rt.writeRange(to, fromSize)
	}
	return rt.real.Strcpy(to, from)
}

// Strncpy copies at most size bytes of from into to, padding with
// terminators like the real routine, so the full destination bound is
// write-validated even when the source is shorter.
func (rt *Runtime) Strncpy(to, from, size uintptr) uintptr {
	rt.ensureInited()

	if rt.flags.ReplaceStr {
		fromSize := min(size, rt.real.Strnlen(from, size)+1)
		rt.checkOverlap("strncpy", to, fromSize, from, fromSize)
		rt.readRange(from, fromSize)
		rt.writeRange(to, size)
	}
	return rt.real.Strncpy(to, from, size)
}

// Strdup duplicates the terminated string at s and returns the copy's
// address. Exactly the terminated length plus the terminator is read.
func (rt *Runtime) Strdup(s uintptr) uintptr {
	rt.ensureInited()

	if rt.flags.ReplaceStr {
		length := rt.real.Strlen(s)
		rt.readRange(s, length+1)
	}
	return rt.real.Strdup(s)
}

// Strlen returns the terminated length of the string at s, validating the
// length plus the terminator byte.
func (rt *Runtime) Strlen(s uintptr) uintptr {
	// Reachable from startup; bypass while the runtime brings itself up.
	if rt.initializing() {
		return internalStrlen(s)
	}
	rt.ensureInited()

	length := rt.real.Strlen(s)
	if rt.flags.ReplaceStr {
		rt.readRange(s, length+1)
	}
	return length
}

// Strnlen returns the terminated length of s, scanning at most maxlen
// bytes; the validated read never exceeds the bound.
func (rt *Runtime) Strnlen(s, maxlen uintptr) uintptr {
	rt.ensureInited()

	length := rt.real.Strnlen(s, maxlen)
	if rt.flags.ReplaceStr {
		rt.readRange(s, min(length+1, maxlen))
	}
	return length
}
