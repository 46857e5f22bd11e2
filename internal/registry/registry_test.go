package registry

import (
	"sort"
	"sync"
	"testing"
)

type counter struct {
	n int
}

func TestPutIfAbsentKeepsFirstValue(t *testing.T) {
	m := New[string, *counter]()
	first := &counter{n: 1}

	got, inserted := m.PutIfAbsent("a", first)
	if !inserted || got != first {
		t.Fatal("expected first insert to succeed")
	}
	got, inserted = m.PutIfAbsent("a", &counter{n: 2})
	if inserted {
		t.Fatal("expected second insert to be rejected")
	}
	if got != first {
		t.Fatal("expected existing value to be returned")
	}
}

func TestUpdateAndDelete(t *testing.T) {
	m := New[string, *counter]()
	m.Put("a", &counter{})

	if !m.Update("a", func(c *counter) { c.n = 5 }) {
		t.Fatal("expected update of existing key")
	}
	if m.Update("missing", func(c *counter) { c.n = 1 }) {
		t.Fatal("expected update of missing key to report false")
	}
	var seen int
	m.Read("a", func(c *counter) { seen = c.n })
	if seen != 5 {
		t.Fatalf("expected 5, got %d", seen)
	}
	if _, ok := m.Delete("a"); !ok {
		t.Fatal("expected delete to find key")
	}
	if _, ok := m.Delete("a"); ok {
		t.Fatal("expected second delete to miss")
	}
	if m.Len() != 0 {
		t.Fatalf("expected empty map, got %d", m.Len())
	}
}

func TestCollectFilters(t *testing.T) {
	m := New[string, *counter]()
	m.Put("a", &counter{n: 1})
	m.Put("b", &counter{n: 2})
	m.Put("c", &counter{n: 3})

	odd := Collect(m, func(c *counter) (int, bool) { return c.n, c.n%2 == 1 })
	sort.Ints(odd)
	if len(odd) != 2 || odd[0] != 1 || odd[1] != 3 {
		t.Fatalf("unexpected collect result: %v", odd)
	}
}

func TestUpdateSerializesConcurrentWriters(t *testing.T) {
	m := New[string, *counter]()
	m.Put("a", &counter{})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update("a", func(c *counter) { c.n++ })
		}()
	}
	wg.Wait()

	c, _ := m.Get("a")
	if c.n != 50 {
		t.Fatalf("expected 50 increments, got %d", c.n)
	}
}
