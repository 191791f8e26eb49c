// Copyright 2025 The addrsanitizer Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package interceptors

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kolkov/addrsanitizer/internal/asan/config"
)

func TestMemcmpSign(t *testing.T) {
	env := newTestEnv(t, config.Default())

	cases := []struct {
		name string
		a, b []byte
		size uintptr
	}{
		{"equal", []byte("abcdef"), []byte("abcdef"), 6},
		{"less", []byte("abcdee"), []byte("abcdef"), 6},
		{"greater", []byte("abd"), []byte("abc"), 3},
		{"first byte", []byte{0x01, 0xff}, []byte{0xfe, 0x00}, 2},
		{"unsigned order", []byte{0x80}, []byte{0x7f}, 1},
		{"single", []byte{0x42}, []byte{0x42}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := env.rt.Memcmp(addrOf(tc.a), addrOf(tc.b), tc.size)
			want := bytes.Compare(tc.a[:tc.size], tc.b[:tc.size])
			if got != want {
				t.Errorf("Memcmp(%q, %q, %d) = %d, want %d", tc.a, tc.b, tc.size, got, want)
			}
		})
	}
}

func TestMemcmpZeroSize(t *testing.T) {
	env := newTestEnv(t, config.Default())

	// A zero-size comparison touches nothing, so even two poisoned
	// operands compare equal without a report.
	a, b := make([]byte, 4), make([]byte, 4)
	env.shadow.PoisonRange(addrOf(a), 4)
	env.shadow.PoisonRange(addrOf(b), 4)

	if got := env.rt.Memcmp(addrOf(a), addrOf(b), 0); got != 0 {
		t.Errorf("zero-size Memcmp = %d, want 0", got)
	}
}

func TestMemcmpEarlyMismatchLimitsValidation(t *testing.T) {
	env := newTestEnv(t, config.Default())

	// The operands differ at index 0, so only one byte of each is read;
	// poison beyond the touched prefix must not trip.
	a := []byte{0x01, 0xff, 0xff, 0xff}
	b := []byte{0x02, 0xff, 0xff, 0xff}
	env.shadow.PoisonRange(addrOf(a)+1, 3)
	env.shadow.PoisonRange(addrOf(b)+1, 3)

	if got := env.rt.Memcmp(addrOf(a), addrOf(b), 4); got != -1 {
		t.Errorf("Memcmp = %d, want -1", got)
	}
}

func TestMemcmpEqualOperandsValidateFullRange(t *testing.T) {
	env := newTestEnv(t, config.Default())

	a := []byte{1, 2, 3, 4}
	b := []byte{1, 2, 3, 4}
	env.shadow.PoisonRange(addrOf(b)+3, 1)

	expectFault(t, addrOf(b)+3, false, func() {
		env.rt.Memcmp(addrOf(a), addrOf(b), 4)
	})
}

func TestMemcpyCopies(t *testing.T) {
	env := newTestEnv(t, config.Default())

	src := []byte("hello world")
	dst := make([]byte, len(src))
	ret := env.rt.Memcpy(addrOf(dst), addrOf(src), uintptr(len(src)))

	if ret != addrOf(dst) {
		t.Errorf("Memcpy returned 0x%x, want destination 0x%x", ret, addrOf(dst))
	}
	if diff := cmp.Diff(src, dst); diff != "" {
		t.Errorf("copied bytes mismatch (-want +got):\n%s", diff)
	}
}

func TestMemcpyPoisonedDestinationReportsBeforeCopy(t *testing.T) {
	env := newTestEnv(t, config.Default())

	src := []byte("abcd")
	dst := make([]byte, 4)
	env.shadow.PoisonRange(addrOf(dst), 1)

	expectFault(t, addrOf(dst), true, func() {
		env.rt.Memcpy(addrOf(dst), addrOf(src), 4)
	})
	// The reporter fired before the real copy ran.
	if dst[1] != 0 || dst[2] != 0 || dst[3] != 0 {
		t.Error("destination modified despite reported fault")
	}
}

func TestMemcpyPoisonedSourceIsRead(t *testing.T) {
	env := newTestEnv(t, config.Default())

	src := []byte("abcd")
	dst := make([]byte, 4)
	env.shadow.PoisonRange(addrOf(src)+3, 1)

	expectFault(t, addrOf(src)+3, false, func() {
		env.rt.Memcpy(addrOf(dst), addrOf(src), 4)
	})
}

func TestMemcpyOverlapIsFatal(t *testing.T) {
	env := newTestEnv(t, config.Default())

	buf := make([]byte, 8)
	// Sharing even a single byte counts.
	expectOverlap(t, "memcpy", func() {
		env.rt.Memcpy(addrOf(buf), addrOf(buf)+3, 4)
	})
}

func TestMemcpySelfCopyAllowed(t *testing.T) {
	env := newTestEnv(t, config.Default())

	buf := []byte("same")
	ret := env.rt.Memcpy(addrOf(buf), addrOf(buf), 4)
	if ret != addrOf(buf) {
		t.Errorf("self-copy returned 0x%x, want 0x%x", ret, addrOf(buf))
	}
	if string(buf) != "same" {
		t.Errorf("self-copy corrupted buffer: %q", buf)
	}
}

func TestMemcpyAdjacentRangesDoNotOverlap(t *testing.T) {
	env := newTestEnv(t, config.Default())

	buf := []byte("abcdefgh")
	env.rt.Memcpy(addrOf(buf), addrOf(buf)+4, 4)
	if string(buf) != "efghefgh" {
		t.Errorf("adjacent copy produced %q", buf)
	}
}

func TestMemmoveToleratesOverlap(t *testing.T) {
	env := newTestEnv(t, config.Default())

	buf := []byte("abcdefgh")
	env.rt.Memmove(addrOf(buf)+2, addrOf(buf), 6)
	if string(buf) != "ababcdef" {
		t.Errorf("overlapping move produced %q", buf)
	}
}

func TestMemsetFills(t *testing.T) {
	env := newTestEnv(t, config.Default())

	buf := make([]byte, 6)
	ret := env.rt.Memset(addrOf(buf), 0xaa, 6)
	if ret != addrOf(buf) {
		t.Errorf("Memset returned 0x%x, want 0x%x", ret, addrOf(buf))
	}
	for i, b := range buf {
		if b != 0xaa {
			t.Fatalf("byte %d = 0x%x, want 0xaa", i, b)
		}
	}
}

func TestMemsetPoisonedEndpoint(t *testing.T) {
	env := newTestEnv(t, config.Default())

	buf := make([]byte, 6)
	env.shadow.PoisonRange(addrOf(buf)+5, 1)
	expectFault(t, addrOf(buf)+5, true, func() {
		env.rt.Memset(addrOf(buf), 0, 6)
	})
}

func TestReplaceIntrinOffDisablesValidationNotDelegation(t *testing.T) {
	flags := config.Default()
	flags.ReplaceIntrin = false
	env := newTestEnv(t, flags)

	src := []byte("data")
	dst := make([]byte, 4)
	env.shadow.PoisonRange(addrOf(dst), 4)
	env.shadow.PoisonRange(addrOf(src), 4)

	// No report, and the copy still happens.
	env.rt.Memcpy(addrOf(dst), addrOf(src), 4)
	if diff := cmp.Diff(src, dst); diff != "" {
		t.Errorf("copy with validation off mismatch (-want +got):\n%s", diff)
	}
	env.rt.Memset(addrOf(dst), 0, 4)
	if !bytes.Equal(dst, make([]byte, 4)) {
		t.Errorf("set with validation off left %v", dst)
	}
}

func TestMemcmpNotGatedByReplaceIntrin(t *testing.T) {
	flags := config.Default()
	flags.ReplaceIntrin = false
	env := newTestEnv(t, flags)

	a := []byte{1, 2}
	b := []byte{1, 2}
	env.shadow.PoisonRange(addrOf(a)+1, 1)

	// The comparison scan validates regardless of the intrinsic flag.
	expectFault(t, addrOf(a)+1, false, func() {
		env.rt.Memcmp(addrOf(a), addrOf(b), 2)
	})
}

func TestMemcpyDifferentialAgainstRealRoutine(t *testing.T) {
	env := newTestEnv(t, config.Default())

	for _, size := range []int{1, 2, 7, 64, 4096} {
		src := make([]byte, size)
		for i := range src {
			src[i] = byte(i * 31)
		}
		viaWrapper := make([]byte, size)
		viaCopy := make([]byte, size)

		env.rt.Memcpy(addrOf(viaWrapper), addrOf(src), uintptr(size))
		copy(viaCopy, src)

		if diff := cmp.Diff(viaCopy, viaWrapper); diff != "" {
			t.Errorf("size %d: wrapper diverges from plain copy (-want +got):\n%s", size, diff)
		}
	}
}
