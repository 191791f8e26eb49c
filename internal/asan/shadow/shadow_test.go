package shadow

import (
	"sync"
	"testing"
)

func TestPoisonUnpoisonSingleByte(t *testing.T) {
	m := NewMap()
	const addr = uintptr(0x1000)

	if m.Poisoned(addr) {
		t.Fatal("fresh map should have no poison")
	}

	m.PoisonRange(addr, 1)
	if !m.Poisoned(addr) {
		t.Error("byte should be poisoned after PoisonRange")
	}

	m.UnpoisonRange(addr, 1)
	if m.Poisoned(addr) {
		t.Error("byte should be clean after UnpoisonRange")
	}
}

func TestPoisonRangeCoversEveryByte(t *testing.T) {
	m := NewMap()
	const base, size = uintptr(0x2000), uintptr(16)

	m.PoisonRange(base, size)
	for i := uintptr(0); i < size; i++ {
		if !m.Poisoned(base + i) {
			t.Errorf("byte at offset %d not poisoned", i)
		}
	}

	// Neighbors on both sides stay clean.
	if m.Poisoned(base - 1) {
		t.Error("byte before range should be clean")
	}
	if m.Poisoned(base + size) {
		t.Error("byte after range should be clean")
	}
}

func TestZeroSizeIsNoop(t *testing.T) {
	m := NewMap()
	m.PoisonRange(0x3000, 0)
	if got := m.PoisonedCount(); got != 0 {
		t.Errorf("PoisonedCount() = %d after zero-size poison, want 0", got)
	}
	m.UnpoisonRange(0x3000, 0) // must not panic
}

func TestUnpoisonSpan(t *testing.T) {
	m := NewMap()
	m.PoisonRange(0x100, 8)  // inside the span
	m.PoisonRange(0x200, 8)  // inside the span
	m.PoisonRange(0x1000, 8) // above the span
	m.PoisonRange(0x80, 8)   // below the span

	m.UnpoisonSpan(0x100, 0x300)

	for i := uintptr(0); i < 8; i++ {
		if m.Poisoned(0x100 + i) {
			t.Errorf("0x%x should be cleared by span unpoison", 0x100+i)
		}
		if m.Poisoned(0x200 + i) {
			t.Errorf("0x%x should be cleared by span unpoison", 0x200+i)
		}
		if !m.Poisoned(0x1000 + i) {
			t.Errorf("0x%x above the span should survive", 0x1000+i)
		}
		if !m.Poisoned(0x80 + i) {
			t.Errorf("0x%x below the span should survive", 0x80+i)
		}
	}
}

func TestSpanBoundsAreHalfOpen(t *testing.T) {
	m := NewMap()
	m.PoisonRange(0x500, 1)
	m.PoisonRange(0x5ff, 1)
	m.PoisonRange(0x600, 1)

	m.UnpoisonSpan(0x500, 0x600)

	if m.Poisoned(0x500) {
		t.Error("lower bound is inclusive, 0x500 should be cleared")
	}
	if m.Poisoned(0x5ff) {
		t.Error("0x5ff is inside the span, should be cleared")
	}
	if !m.Poisoned(0x600) {
		t.Error("upper bound is exclusive, 0x600 should survive")
	}
}

func TestReset(t *testing.T) {
	m := NewMap()
	m.PoisonRange(0x700, 32)
	m.Reset()
	if got := m.PoisonedCount(); got != 0 {
		t.Errorf("PoisonedCount() = %d after Reset, want 0", got)
	}
}

func TestConcurrentPoisonQuery(t *testing.T) {
	m := NewMap()
	const workers = 8
	const perWorker = uintptr(256)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			base := uintptr(0x10000 + w*0x1000)
			m.PoisonRange(base, perWorker)
			for i := uintptr(0); i < perWorker; i++ {
				if !m.Poisoned(base + i) {
					t.Errorf("worker %d: byte %d lost", w, i)
					return
				}
			}
			m.UnpoisonRange(base, perWorker)
		}(w)
	}
	wg.Wait()

	if got := m.PoisonedCount(); got != 0 {
		t.Errorf("PoisonedCount() = %d after all workers unpoisoned, want 0", got)
	}
}
