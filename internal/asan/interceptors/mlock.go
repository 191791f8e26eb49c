package interceptors

// Memory-locking shims. Shadow structures make locked residency
// accounting meaningless under this runtime, so all four routines succeed
// without effect; the first call mentions the downgrade once so the
// silence is at least documented.

const mlockNotice = "AddressSanitizer ignores mlock/mlockall/munlock/munlockall"

// Mlock reports success without locking anything.
func (rt *Runtime) Mlock(addr, size uintptr) int {
	rt.collab.NoticeOnce("mlock", mlockNotice)
	return 0
}

// Munlock reports success without unlocking anything.
func (rt *Runtime) Munlock(addr, size uintptr) int {
	rt.collab.NoticeOnce("mlock", mlockNotice)
	return 0
}

// Mlockall reports success regardless of flags.
func (rt *Runtime) Mlockall(flags int) int {
	rt.collab.NoticeOnce("mlock", mlockNotice)
	return 0
}

// Munlockall reports success.
func (rt *Runtime) Munlockall() int {
	rt.collab.NoticeOnce("mlock", mlockNotice)
	return 0
}
