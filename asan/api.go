// Package asan provides the public API for the Pure-Go AddressSanitizer
// runtime core.
//
// See doc.go for detailed documentation and examples.
package asan

import (
	internal "github.com/kolkov/addrsanitizer/internal/asan/api"
	"github.com/kolkov/addrsanitizer/internal/asan/interceptors"
	"github.com/kolkov/addrsanitizer/internal/asan/threadreg"

	"golang.org/x/sys/unix"
)

// Env is a saved jump context for Setjmp and Longjmp.
type Env = interceptors.Env

// Thread is the handle returned by SpawnThread.
type Thread = interceptors.Thread

// StartRoutine is the entry function a spawned thread runs.
type StartRoutine = threadreg.StartRoutine

// SignalHandler is a user signal handler registered through Signal.
type SignalHandler = interceptors.SignalHandler

// Sigaction is the registration record used by the Sigaction wrapper.
type Sigaction = interceptors.Sigaction

// Init initializes the sanitizer runtime.
//
// This function must be called before memory checking takes effect;
// intercepted routines called earlier initialize the runtime lazily, so
// an explicit Init at program startup mainly makes the cost predictable:
//
//	func main() {
//		asan.Init()
//		defer asan.Fini()
//		// ... rest of program
//	}
//
// Init is safe to call multiple times (subsequent calls are no-ops) and
// from multiple goroutines concurrently.
func Init() {
	internal.Init()
}

// Fini prints the end-of-process summary: how many memory errors were
// reported. Call it via defer from main.
func Fini() {
	internal.Fini()
}

// Poison marks size bytes at addr as off-limits. Any intercepted routine
// that touches a poisoned byte at the edge of its operand range produces
// an error report.
//
// Instrumentation uses this to mark redzones around allocations and the
// bodies of freed objects:
//
//	buf := make([]byte, 64)
//	asan.Poison(uintptr(unsafe.Pointer(&buf[0])), 8) // leading redzone
func Poison(addr, size uintptr) {
	internal.Poison(addr, size)
}

// Unpoison clears the off-limits marking from size bytes at addr,
// re-legalizing access. Instrumentation calls it when memory is handed
// back to the program, e.g. on allocation reuse.
func Unpoison(addr, size uintptr) {
	internal.Unpoison(addr, size)
}

// ReportsEmitted returns how many error reports this process produced.
// Useful in tests and in harnesses that run with a non-terminating
// reporter configuration.
func ReportsEmitted() int {
	return internal.ReportsEmitted()
}

// Memcmp compares size bytes at a and b, returning -1, 0 or 1 in
// unsigned byte order. Both operands are validated exactly as far as the
// comparison scanned.
func Memcmp(a, b, size uintptr) int {
	return internal.Runtime().Memcmp(a, b, size)
}

// Memcpy copies size bytes from from to to and returns to. Overlapping
// operands are reported as an error, except the exact self-copy
// to == from, which is permitted.
func Memcpy(to, from, size uintptr) uintptr {
	return internal.Runtime().Memcpy(to, from, size)
}

// Memmove copies size bytes from from to to, tolerating overlap, and
// returns to.
func Memmove(to, from, size uintptr) uintptr {
	return internal.Runtime().Memmove(to, from, size)
}

// Memset stores c into size bytes at block and returns block.
func Memset(block uintptr, c byte, size uintptr) uintptr {
	return internal.Runtime().Memset(block, c, size)
}

// Strchr returns the address of the first occurrence of c in the
// NUL-terminated string at str, or 0 if absent. Searching for NUL finds
// the terminator.
func Strchr(str uintptr, c byte) uintptr {
	return internal.Runtime().Strchr(str, c)
}

// Index is the historical alias for Strchr.
func Index(str uintptr, c byte) uintptr {
	return internal.Runtime().Index(str, c)
}

// Strcmp compares two NUL-terminated strings.
func Strcmp(s1, s2 uintptr) int {
	return internal.Runtime().Strcmp(s1, s2)
}

// Strncmp compares at most size bytes of two NUL-terminated strings.
func Strncmp(s1, s2, size uintptr) int {
	return internal.Runtime().Strncmp(s1, s2, size)
}

// Strcasecmp compares two NUL-terminated strings ignoring ASCII case.
func Strcasecmp(s1, s2 uintptr) int {
	return internal.Runtime().Strcasecmp(s1, s2)
}

// Strncasecmp compares at most n bytes of two NUL-terminated strings
// ignoring ASCII case.
func Strncasecmp(s1, s2, n uintptr) int {
	return internal.Runtime().Strncasecmp(s1, s2, n)
}

// Strcat appends the NUL-terminated string at from to the one at to and
// returns to. Overlapping source and destination are reported.
func Strcat(to, from uintptr) uintptr {
	return internal.Runtime().Strcat(to, from)
}

// Strncat appends at most n bytes of from to to, always terminating the
// result, and returns to.
func Strncat(to, from, n uintptr) uintptr {
	return internal.Runtime().Strncat(to, from, n)
}

// Strcpy copies the NUL-terminated string at from into to and returns
// to. Overlapping operands are reported.
func Strcpy(to, from uintptr) uintptr {
	return internal.Runtime().Strcpy(to, from)
}

// Strncpy copies at most size bytes of from into to, NUL-padding the
// remainder, and returns to.
func Strncpy(to, from, size uintptr) uintptr {
	return internal.Runtime().Strncpy(to, from, size)
}

// Strdup duplicates the NUL-terminated string at s into runtime-owned
// storage and returns the copy's address.
func Strdup(s uintptr) uintptr {
	return internal.Runtime().Strdup(s)
}

// Strlen returns the NUL-terminated length of the string at s.
func Strlen(s uintptr) uintptr {
	return internal.Runtime().Strlen(s)
}

// Strnlen returns the NUL-terminated length of s, scanning at most
// maxlen bytes.
func Strnlen(s, maxlen uintptr) uintptr {
	return internal.Runtime().Strnlen(s, maxlen)
}

// SpawnThread creates a tracked thread running start(arg). The thread is
// registered with the runtime before it starts, so error reports from
// the new thread carry its identity and creation stack from the very
// first instruction.
//
//	th, err := asan.SpawnThread(func(arg any) any {
//		return doWork(arg.(*Job))
//	}, job)
//	if err != nil {
//		return err
//	}
//	result := th.Join()
func SpawnThread(start StartRoutine, arg any) (*Thread, error) {
	return internal.Runtime().SpawnThread(start, arg)
}

// Setjmp arms env and runs body, returning 0 on normal completion and
// the non-zero Longjmp value if a jump to env cut body short.
func Setjmp(env *Env, body func()) int {
	return internal.Runtime().Setjmp(env, body)
}

// Longjmp transfers control to the Setjmp that armed env, delivering val
// (zero arrives as 1). Stack poison between the jump point and the
// target is cleared before the transfer. Never returns.
func Longjmp(env *Env, val int) {
	internal.Runtime().Longjmp(env, val)
}

// Siglongjmp is Longjmp under its signal-context name.
func Siglongjmp(env *Env, val int) {
	internal.Runtime().Siglongjmp(env, val)
}

// Throw propagates v as an exception after clearing stack poison above
// the throw point. Never returns.
func Throw(v any) {
	internal.Runtime().Throw(v)
}

// Signal registers handler for sig and returns the previous handler.
// Signals the runtime reserves for its own crash reporting are left
// untouched; the call succeeds but changes nothing.
func Signal(sig unix.Signal, handler SignalHandler) SignalHandler {
	return internal.Runtime().Signal(sig, handler)
}

// SignalAction registers act for sig (nil act queries) and returns the
// previous registration, with the same reserved-signal policy as Signal.
func SignalAction(sig unix.Signal, act *Sigaction) *Sigaction {
	return internal.Runtime().Sigaction(sig, act)
}

// Mlock reports success without locking memory; residency accounting is
// meaningless under shadow tracking.
func Mlock(addr, size uintptr) int {
	return internal.Runtime().Mlock(addr, size)
}

// Munlock reports success without effect.
func Munlock(addr, size uintptr) int {
	return internal.Runtime().Munlock(addr, size)
}

// Mlockall reports success without effect.
func Mlockall(flags int) int {
	return internal.Runtime().Mlockall(flags)
}

// Munlockall reports success without effect.
func Munlockall() int {
	return internal.Runtime().Munlockall()
}
