package interceptors

import "golang.org/x/sys/unix"

// Signal registration wrappers.
//
// The runtime reserves the fault signals it relies on for its own
// diagnostics; registration attempts against a reserved signal succeed
// from the caller's point of view but change nothing, exactly like a
// registration the platform silently ignores. Everything else passes
// through to the real registration.

// Signal registers handler for sig and returns the previous handler, nil
// if none. Reserved signals are left untouched and report no previous
// handler.
func (rt *Runtime) Signal(sig unix.Signal, handler SignalHandler) SignalHandler {
	rt.ensureInited()

	if rt.collab.SignalIsReserved(sig) {
		rt.collab.NoticeOnce("signal-reserved",
			"AddressSanitizer: signal %d registration ignored (reserved for error reporting)", sig)
		return nil
	}
	return rt.real.Signal(sig, handler)
}

// Sigaction registers act for sig (nil act queries without modifying) and
// returns the previous registration, nil if none. Reserved signals are
// left untouched and report no previous registration.
func (rt *Runtime) Sigaction(sig unix.Signal, act *Sigaction) *Sigaction {
	rt.ensureInited()

	if rt.collab.SignalIsReserved(sig) {
		if act != nil {
			rt.collab.NoticeOnce("signal-reserved",
				"AddressSanitizer: signal %d registration ignored (reserved for error reporting)", sig)
		}
		return nil
	}
	return rt.real.Sigaction(sig, act)
}
