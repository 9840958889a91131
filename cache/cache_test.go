package cache

import (
	"strconv"
	"sync"
	"testing"
)

// oneShard puts every key in shard 0 so eviction order is observable.
func oneShard(int) uint64 { return 0 }

func TestShardedGetSet(t *testing.T) {
	c := NewSharded[string, int](10, nil)
	c.Set("a", 1)
	c.Set("a", 2)
	if v, ok := c.Get("a"); !ok || v != 2 {
		t.Errorf("Get(a) = %d, %v; want 2, true", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) reported a hit")
	}
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Len != 1 {
		t.Errorf("Stats() = %+v", s)
	}
	if s.HitRate() != 0.5 {
		t.Errorf("HitRate() = %v, want 0.5", s.HitRate())
	}
}

func TestShardedEvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []int
	c := NewSharded[int, string](3, oneShard)
	c.OnEvict = func(k int, _ string) { evicted = append(evicted, k) }

	for i := range 3 {
		c.Set(i, strconv.Itoa(i))
	}
	c.Get(0) // 1 is now the oldest
	c.Set(3, "3")
	c.Set(4, "4")

	if len(evicted) != 2 || evicted[0] != 1 || evicted[1] != 2 {
		t.Fatalf("evicted = %v, want [1 2]", evicted)
	}
	for _, k := range []int{0, 3, 4} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("key %d should be cached", k)
		}
	}
	if got := c.Stats().Evictions; got != 2 {
		t.Errorf("Evictions = %d, want 2", got)
	}
}

func TestShardedGetOrCreate(t *testing.T) {
	c := NewSharded[int, int](4, nil)
	calls := 0
	create := func() int { calls++; return 7 }
	for range 3 {
		if v := c.GetOrCreate(1, create); v != 7 {
			t.Fatalf("GetOrCreate = %d, want 7", v)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
}

func TestShardedDelete(t *testing.T) {
	c := NewSharded[int, int](8, nil)
	for i := range 10 {
		c.Set(i, i)
	}
	if !c.Delete(3) || c.Delete(3) {
		t.Error("Delete should report presence exactly once")
	}
	if n := c.DeleteFunc(func(k, _ int) bool { return k%2 == 0 }); n != 5 {
		t.Errorf("DeleteFunc removed %d, want 5", n)
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
}

func TestShardedConcurrent(t *testing.T) {
	c := NewSharded[int, int](32, nil)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				k := (g*200 + i) % 50
				c.GetOrCreate(k, func() int { return k })
				if v, ok := c.Get(k); ok && v != k {
					t.Errorf("Get(%d) = %d", k, v)
				}
			}
		}()
	}
	wg.Wait()
	if c.Len() > 50 {
		t.Errorf("Len() = %d, want <= 50", c.Len())
	}
}
