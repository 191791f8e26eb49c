package interceptors

import (
	"sync"
	"testing"

	"github.com/kolkov/addrsanitizer/internal/asan/config"
	"github.com/kolkov/addrsanitizer/internal/asan/threadreg"
)

func TestSpawnThreadRunsStartRoutine(t *testing.T) {
	env := newTestEnv(t, config.Default())

	th, err := env.rt.SpawnThread(func(arg any) any {
		return arg.(int) * 2
	}, 21)
	if err != nil {
		t.Fatalf("SpawnThread: %v", err)
	}

	if got := th.Join(); got != 42 {
		t.Errorf("Join = %v, want 42", got)
	}
	if th.Descriptor().State() != threadreg.StateFinished {
		t.Errorf("state after join = %v, want finished", th.Descriptor().State())
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	env := newTestEnv(t, config.Default())

	th, err := env.rt.SpawnThread(func(any) any { return "once" }, nil)
	if err != nil {
		t.Fatalf("SpawnThread: %v", err)
	}
	if th.Join() != "once" || th.Join() != "once" {
		t.Error("repeated Join changed the result")
	}
}

func TestSpawnThreadRecordsParent(t *testing.T) {
	env := newTestEnv(t, config.Default())

	main := env.registry.CurrentTID()
	th, err := env.rt.SpawnThread(func(any) any { return nil }, nil)
	if err != nil {
		t.Fatalf("SpawnThread: %v", err)
	}
	if th.Descriptor().Parent != main {
		t.Errorf("parent = %d, want %d", th.Descriptor().Parent, main)
	}
	th.Join()
}

func TestDescriptorVisibleBeforeStartRoutineRuns(t *testing.T) {
	env := newTestEnv(t, config.Default())

	// The start routine looks itself up in the registry; registration
	// happens before the real spawn, so the lookup must always succeed.
	th, err := env.rt.SpawnThread(func(any) any {
		tid := env.registry.CurrentTID()
		return env.registry.Get(tid) != nil
	}, nil)
	if err != nil {
		t.Fatalf("SpawnThread: %v", err)
	}
	if found := th.Join(); found != true {
		t.Error("start routine could not find its own descriptor")
	}
}

func TestSpawnedThreadHasOwnIdentity(t *testing.T) {
	env := newTestEnv(t, config.Default())

	main := env.registry.CurrentTID()
	th, err := env.rt.SpawnThread(func(any) any {
		return env.registry.CurrentTID()
	}, nil)
	if err != nil {
		t.Fatalf("SpawnThread: %v", err)
	}
	childSaw := th.Join().(int32)
	if childSaw == main {
		t.Error("spawned thread resolved the parent's identity")
	}
	if childSaw != th.TID() {
		t.Errorf("child resolved TID %d, descriptor says %d", childSaw, th.TID())
	}
}

func TestConcurrentSpawnsGetDistinctTIDs(t *testing.T) {
	env := newTestEnv(t, config.Default())

	const n = 32
	var mu sync.Mutex
	tids := make(map[int32]bool)

	threads := make([]*Thread, 0, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			th, err := env.rt.SpawnThread(func(any) any { return nil }, nil)
			if err != nil {
				t.Errorf("SpawnThread: %v", err)
				return
			}
			mu.Lock()
			tids[th.TID()] = true
			threads = append(threads, th)
			mu.Unlock()
		}()
	}
	wg.Wait()
	for _, th := range threads {
		th.Join()
	}

	if len(tids) != n {
		t.Errorf("got %d distinct TIDs from %d spawns", len(tids), n)
	}
}
