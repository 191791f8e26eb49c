// Copyright 2025 The addrsanitizer Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package api assembles the process-wide sanitizer runtime.
//
// The interceptors package is deliberately ignorant of where its
// collaborators come from; this package is the composition root that
// builds the one default set (environment-driven flags, the shadow map,
// the reporter, the thread registry, the stack depot) and hands the
// result to the public facade. Tests that want isolated runtimes build
// their own collaborator sets and never touch this package.
package api

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/kolkov/addrsanitizer/internal/asan/config"
	"github.com/kolkov/addrsanitizer/internal/asan/interceptors"
	"github.com/kolkov/addrsanitizer/internal/asan/report"
	"github.com/kolkov/addrsanitizer/internal/asan/shadow"
	"github.com/kolkov/addrsanitizer/internal/asan/stackdepot"
	"github.com/kolkov/addrsanitizer/internal/asan/threadreg"
)

// noReturnSpan is how much stack above the jump point gets its poison
// cleared on a non-local transfer. The true extent of the abandoned
// frames is unknowable from the jump site, so the runtime clears a span
// large enough to cover any realistic frame chain between a setjmp and
// its longjmp.
const noReturnSpan = 64 << 10

var (
	assembleOnce sync.Once

	defaultRuntime  *interceptors.Runtime
	defaultShadow   *shadow.Map
	defaultReporter *report.Reporter
	defaultRegistry *threadreg.Registry
)

// assemble builds the default collaborator set exactly once. Flag
// parsing failures are not fatal: a typo in the environment downgrades
// to defaults with a warning, matching how the rest of the sanitizer
// family treats its option string.
func assemble() {
	flags, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "AddressSanitizer: ignoring %s: %v\n", config.EnvVar, err)
		flags = config.Default()
	}

	defaultShadow = shadow.NewMap()
	defaultReporter = report.NewReporter(report.WithVerbosity(flags.Verbosity))
	defaultRegistry = threadreg.NewRegistry()
	defaultRegistry.RegisterMain(stackdepot.Capture(1))

	collab := interceptors.Collaborators{
		IsPoisoned:    defaultShadow.Poisoned,
		Report:        defaultReporter.ReportError,
		ReportOverlap: defaultReporter.ReportOverlap,
		NoticeOnce:    defaultReporter.NoticeOnce,
		Noticef:       defaultReporter.Noticef,
		CaptureStack: func() uint64 {
			// Skip Capture's caller (the interception core) so the
			// recorded provenance starts at the spawn site.
			return stackdepot.Capture(2)
		},
		Registry: defaultRegistry,
		HandleNoReturn: func(sp uintptr) {
			defaultShadow.UnpoisonSpan(sp, sp+noReturnSpan)
		},
		SignalIsReserved: func(sig unix.Signal) bool {
			// The fault signals carry the sanitizer's own crash
			// diagnostics and cannot be handed to user handlers.
			switch sig {
			case unix.SIGSEGV, unix.SIGBUS, unix.SIGFPE,
				unix.SIGILL, unix.SIGABRT, unix.SIGTRAP:
				return true
			}
			return false
		},
		Fatalf: fatalf,
	}

	defaultRuntime = interceptors.NewRuntime(flags, collab)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FATAL: AddressSanitizer internal error: %s\n",
		fmt.Sprintf(format, args...))
	os.Exit(2)
}

// Runtime returns the process-wide runtime, assembling it on first use.
// The runtime may not be initialized yet; Init does that.
func Runtime() *interceptors.Runtime {
	assembleOnce.Do(assemble)
	return defaultRuntime
}

// Init assembles and initializes the process-wide runtime. Idempotent
// and safe to call from multiple threads.
func Init() {
	Runtime().Init()
}

// Fini prints the end-of-process summary. Programs call it via defer
// from main.
func Fini() {
	assembleOnce.Do(assemble)
	defaultReporter.Summary()
}

// Poison marks size bytes at addr as off-limits.
func Poison(addr, size uintptr) {
	assembleOnce.Do(assemble)
	defaultShadow.PoisonRange(addr, size)
}

// Unpoison clears the off-limits marking from size bytes at addr.
func Unpoison(addr, size uintptr) {
	assembleOnce.Do(assemble)
	defaultShadow.UnpoisonRange(addr, size)
}

// ReportsEmitted returns how many error reports the process-wide
// reporter has produced.
func ReportsEmitted() int {
	assembleOnce.Do(assemble)
	return defaultReporter.ReportsEmitted()
}
