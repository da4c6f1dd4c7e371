package registry

import (
	"strconv"
	"sync"
	"testing"

	"github.com/gogpu/statecache/state"
)

func key(i int) state.ShaderKey {
	return state.NewShaderKey(state.StageFragment, "main", []byte(strconv.Itoa(i)))
}

func TestNew(t *testing.T) {
	r := New[string]()
	if r == nil {
		t.Fatal("New returned nil")
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d entries", r.Len())
	}
}

func TestInsertResolve(t *testing.T) {
	r := New[string]()

	if !r.Insert(key(1), "one") {
		t.Fatal("expected first Insert to succeed")
	}

	// Second insert keeps the original value
	if r.Insert(key(1), "uno") {
		t.Error("expected duplicate Insert to return false")
	}
	v, ok := r.Resolve(key(1))
	if !ok || v != "one" {
		t.Errorf("Resolve = (%q, %v), want (\"one\", true)", v, ok)
	}

	if _, ok := r.Resolve(key(2)); ok {
		t.Error("expected unknown key to be absent")
	}
}

func TestShardDistribution(t *testing.T) {
	r := New[int]()
	for i := range 1600 {
		r.Insert(key(i), i)
	}
	if r.Len() != 1600 {
		t.Fatalf("Len() = %d, want 1600", r.Len())
	}

	for i, s := range r.shards {
		if len(s.entries) == 0 {
			t.Errorf("shard %d is empty", i)
		}
	}
}

func TestConcurrentInsert(t *testing.T) {
	r := New[int]()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := make(map[int]int)
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				if r.Insert(key(i), g) {
					mu.Lock()
					wins[i]++
					mu.Unlock()
				}
				r.Resolve(key(i))
			}
		}()
	}
	wg.Wait()

	if r.Len() != 100 {
		t.Errorf("Len() = %d, want 100", r.Len())
	}
	for i := range 100 {
		if wins[i] != 1 {
			t.Errorf("key %d inserted %d times", i, wins[i])
		}
	}
}
