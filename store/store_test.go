package store

import (
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestPutAssignsIncreasingGenerations(t *testing.T) {
	s := New[string, int]()
	now := time.Now()

	_, hadOld, g1 := s.Put("a", 1, now.Add(time.Second), now)
	if hadOld {
		t.Fatalf("expected no previous value on first put")
	}

	old, hadOld, g2 := s.Put("a", 2, now.Add(time.Second), now)
	if !hadOld || old != 1 {
		t.Fatalf("expected old value 1, got %v (hadOld=%v)", old, hadOld)
	}
	if g2 <= g1 {
		t.Fatalf("expected generation to increase, got %d then %d", g1, g2)
	}

	_, _, g3 := s.Put("b", 3, now.Add(time.Second), now)
	if g3 <= g2 {
		t.Fatalf("expected generation to increase across keys, got %d then %d", g2, g3)
	}
}

func TestRemoveIfGenerationIgnoresStaleGeneration(t *testing.T) {
	s := New[string, int]()
	now := time.Now()

	_, _, stale := s.Put("k", 1, now, now)
	_, _, live := s.Put("k", 2, now, now)

	if _, ok := s.RemoveIfGeneration("k", stale); ok {
		t.Fatalf("expected stale generation to be ignored")
	}
	if ent, ok := s.Get("k"); !ok || ent.Value != 2 {
		t.Fatalf("expected refreshed value to survive, got %+v", ent)
	}

	v, ok := s.RemoveIfGeneration("k", live)
	if !ok || v != 2 {
		t.Fatalf("expected removal of live generation, got %v %v", v, ok)
	}
	if s.ContainsKey("k") {
		t.Fatalf("expected key removed")
	}
}

func TestRemoveIfGenerationAfterRemoveAndReinsert(t *testing.T) {
	s := New[string, int]()
	now := time.Now()

	_, _, first := s.Put("b", 1, now, now)
	if _, retired, ok := s.Remove("b"); !ok || retired != first {
		t.Fatalf("expected remove to retire generation %d, got %d", first, retired)
	}
	s.Put("b", 2, now, now)

	if _, ok := s.RemoveIfGeneration("b", first); ok {
		t.Fatalf("retired generation must not remove the new write")
	}
}

func TestModCountTracksCallerStructuralChanges(t *testing.T) {
	s := New[string, int]()
	now := time.Now()

	s.Put("a", 1, now, now)
	afterInsert := s.ModCount()

	s.Put("a", 2, now, now)
	if s.ModCount() != afterInsert {
		t.Fatalf("refresh must not count as structural modification")
	}

	_, _, gen := s.Put("b", 1, now, now)
	afterSecond := s.ModCount()
	if afterSecond == afterInsert {
		t.Fatalf("expected insert of new key to bump mod count")
	}

	s.RemoveIfGeneration("b", gen)
	if s.ModCount() != afterSecond {
		t.Fatalf("eviction must not bump mod count")
	}

	s.Remove("a")
	if s.ModCount() == afterSecond {
		t.Fatalf("expected remove to bump mod count")
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	s := New[string, int]()
	now := time.Now()
	s.Put("a", 1, now, now)
	s.Put("b", 2, now, now)

	snap := s.Snapshot()
	s.Put("a", 100, now, now)
	s.Remove("b")

	got := map[string]int{}
	for _, e := range snap {
		got[e.Key] = e.Value
	}
	if diff := cmp.Diff(map[string]int{"a": 1, "b": 2}, got); diff != "" {
		t.Fatalf("snapshot changed after mutation (-want +got):\n%s", diff)
	}
}

func TestKeysValuesContains(t *testing.T) {
	s := New[string, int]()
	now := time.Now()
	s.Put("x", 10, now, now)
	s.Put("y", 20, now, now)

	keys := s.Keys()
	sort.Strings(keys)
	if diff := cmp.Diff([]string{"x", "y"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	values := s.Values()
	sort.Ints(values)
	if diff := cmp.Diff([]int{10, 20}, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}

	if !s.ContainsValue(20) || s.ContainsValue(30) {
		t.Fatalf("unexpected ContainsValue result")
	}
	if s.Len() != 2 {
		t.Fatalf("expected len 2, got %d", s.Len())
	}
}
