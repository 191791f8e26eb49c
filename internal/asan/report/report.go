// Package report implements the diagnostic path of the sanitizer runtime.
//
// Two disjoint output classes flow through a Reporter:
//
//   - Error reports (illegal access, parameter overlap). Always fatal: the
//     report is formatted, printed, and the process terminates. There is no
//     recovery, because continuing past undefined behavior cannot be made
//     safe.
//   - Informational notices (startup banner, unsupported-primitive notes).
//     Never fatal, gated by verbosity, some emitted at most once per
//     process.
//
// Error reports are plain writes to the configured writer so they cannot
// be lost to logger configuration; notices go through logrus.
package report

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// maxStackDepth is the maximum number of stack frames captured for a
// diagnostic.
const maxStackDepth = 32

// Reporter formats and emits sanitizer diagnostics.
//
// Construct with NewReporter. Safe for concurrent use; output of a single
// report is never interleaved with another.
type Reporter struct {
	mu  sync.Mutex
	out io.Writer

	// exit terminates the process. Injectable so tests can observe the
	// termination instead of dying; the injected function must not return
	// normally.
	exit func(code int)

	// onceKeys dedups one-time notices across the process lifetime.
	onceKeys sync.Map // string -> struct{}

	verbosity int
	log       *logrus.Logger

	reportsEmitted int
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithWriter directs error reports to w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(r *Reporter) {
		r.out = w
		r.log.SetOutput(w)
	}
}

// WithExitFunc replaces process termination. The replacement must not
// return normally (tests panic).
func WithExitFunc(exit func(code int)) Option {
	return func(r *Reporter) { r.exit = exit }
}

// WithVerbosity sets the notice verbosity level.
func WithVerbosity(v int) Option {
	return func(r *Reporter) { r.verbosity = v }
}

// NewReporter returns a Reporter writing to stderr and terminating via
// os.Exit(1).
func NewReporter(opts ...Option) *Reporter {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	r := &Reporter{
		out:  os.Stderr,
		exit: os.Exit,
		log:  log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// accessKind renders the access direction for a report.
func accessKind(isWrite bool) string {
	if isWrite {
		return "WRITE"
	}
	return "READ"
}

// ReportError emits the diagnostic for an illegal memory access and
// terminates the process. It never returns.
//
// Output shape:
//
//	=================================================================
//	ERROR: AddressSanitizer: invalid memory access on address 0x... at pc 0x...
//	WRITE of size 1 at 0x... sp 0x...
//	  main.clobber()
//	      /path/to/file.go:21
//	=================================================================
func (r *Reporter) ReportError(pc, fp, sp uintptr, addr uintptr, isWrite bool, accessSize uintptr) {
	r.mu.Lock()
	r.reportsEmitted++

	fmt.Fprintf(r.out, "=================================================================\n")
	fmt.Fprintf(r.out, "ERROR: AddressSanitizer: invalid memory access on address 0x%x at pc 0x%x\n", addr, pc)
	fmt.Fprintf(r.out, "%s of size %d at 0x%x sp 0x%x\n", accessKind(isWrite), accessSize, addr, sp)
	fmt.Fprint(r.out, formatCurrentStack())
	fmt.Fprintf(r.out, "=================================================================\n")
	r.mu.Unlock() // released so injected-exit tests can still inspect the reporter

	r.exit(1)
	panic("report: exit function returned") // injected exits must not return
}

// ReportOverlap emits the diagnostic for overlapping operand ranges passed
// to a routine whose behavior that overlap makes undefined, then
// terminates. It never returns.
//
// The format names the routine and both half-open ranges, matching the
// informational shape of the original tool, but overlap is a hard error,
// never a warning-and-continue.
func (r *Reporter) ReportOverlap(routine string, a, lenA, b, lenB uintptr) {
	r.mu.Lock()
	r.reportsEmitted++

	fmt.Fprintf(r.out, "ERROR: AddressSanitizer: %s-param-overlap: "+
		"memory ranges [0x%x,0x%x) and [0x%x,0x%x) overlap\n",
		routine, a, a+lenA, b, b+lenB)
	fmt.Fprint(r.out, formatCurrentStack())
	r.mu.Unlock()

	r.exit(1)
	panic("report: exit function returned")
}

// Noticef emits an informational notice when the verbosity level is at
// least minVerbosity. Zero always prints (use for unconditional notices).
func (r *Reporter) Noticef(minVerbosity int, format string, args ...any) {
	if r.verbosity < minVerbosity {
		return
	}
	r.log.Infof(format, args...)
}

// NoticeOnce emits a notice at most once per process lifetime for the
// given key, regardless of how many call sites hit it. Used by the
// unsupported-primitive shims to surface the behavioral divergence once
// without flooding the log.
func (r *Reporter) NoticeOnce(key, format string, args ...any) {
	if _, already := r.onceKeys.LoadOrStore(key, struct{}{}); already {
		return
	}
	r.log.Infof(format, args...)
}

// ReportsEmitted returns the number of fatal reports this reporter has
// formatted. With a real exit function it can only ever be observed as 0;
// it exists for injected-exit tests and the Fini summary.
func (r *Reporter) ReportsEmitted() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reportsEmitted
}

// Summary prints the end-of-run summary when verbosity allows. Called by
// Fini on clean shutdown.
func (r *Reporter) Summary() {
	r.Noticef(1, "AddressSanitizer: %d fatal reports, clean shutdown", r.ReportsEmitted())
}

// formatCurrentStack renders the current call stack for a diagnostic,
// filtering the runtime's own frames so the trace starts at the
// intercepted call's site.
func formatCurrentStack() string {
	var pcs [maxStackDepth]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return "  (no stack trace available)\n"
	}

	frames := runtime.CallersFrames(pcs[:n])
	var buf strings.Builder
	for {
		frame, more := frames.Next()

		// Drop Go runtime internals and this module's own plumbing.
		if strings.HasPrefix(frame.Function, "runtime.") ||
			strings.Contains(frame.Function, "/internal/asan/checker.") ||
			strings.Contains(frame.Function, "/internal/asan/report.") {
			if !more {
				break
			}
			continue
		}

		buf.WriteString("  ")
		buf.WriteString(frame.Function)
		buf.WriteString("()\n")
		buf.WriteString("      ")
		fmt.Fprintf(&buf, "%s:%d\n", frame.File, frame.Line)

		if !more {
			break
		}
	}

	result := buf.String()
	if result == "" {
		return "  (all frames filtered - runtime internal)\n"
	}
	return result
}
