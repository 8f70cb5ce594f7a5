package executor

import (
	"sync"
	"testing"
)

func TestResultBuffer_SetGet(t *testing.T) {
	b := NewResultBuffer(0, 1, 1, 5)

	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}

	if !b.Set(5, []Result{{Message: "five"}}) {
		t.Error("Set on allocated key returned false")
	}
	if b.Set(2, []Result{{Message: "two"}}) {
		t.Error("Set on unallocated key returned true")
	}

	got, ok := b.Get(5)
	if !ok || len(got) != 1 || got[0].Message != "five" {
		t.Errorf("Get(5) = %v, %v", got, ok)
	}

	got, ok = b.Get(0)
	if !ok || got != nil {
		t.Errorf("Get(0) = %v, %v; want nil, true", got, ok)
	}

	if _, ok := b.Get(2); ok {
		t.Error("Get on unallocated key returned true")
	}
	if !b.Has(1) || b.Has(2) {
		t.Error("Has reported wrong key set")
	}
}

func TestResultBuffer_Nil(t *testing.T) {
	var b *ResultBuffer

	if b.Len() != 0 || b.Has(0) || b.Set(0, nil) {
		t.Error("nil buffer should behave as empty")
	}
	if _, ok := b.Get(0); ok {
		t.Error("nil buffer Get returned true")
	}
}

func TestResultBuffer_ConcurrentDistinctKeys(t *testing.T) {
	const keys = 64
	all := make([]int, keys)
	for i := range all {
		all[i] = i
	}
	b := NewResultBuffer(all...)

	var wg sync.WaitGroup
	for _, k := range all {
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			b.Set(k, []Result{{Line: k}})
		}(k)
	}
	wg.Wait()

	for _, k := range all {
		got, _ := b.Get(k)
		if len(got) != 1 || got[0].Line != k {
			t.Errorf("key %d holds %v", k, got)
		}
	}
}
