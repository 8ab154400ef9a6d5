package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type testPage struct {
	Title string   `json:"title"`
	Slugs []string `json:"slugs"`
}

func TestTyped_GetOrLoad(t *testing.T) {
	c := NewTyped[testPage](NewMemoryStore(MemoryOptions{}), time.Hour)
	ctx := context.Background()

	calls := 0
	load := func(context.Context) (*testPage, error) {
		calls++
		return &testPage{Title: "Home", Slugs: []string{"a", "b"}}, nil
	}

	p, err := c.GetOrLoad(ctx, "home", load)
	if err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	if p.Title != "Home" || len(p.Slugs) != 2 {
		t.Errorf("page = %+v", p)
	}

	if _, err := c.GetOrLoad(ctx, "home", load); err != nil {
		t.Fatalf("GetOrLoad failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
}

func TestTyped_GetOrLoadError(t *testing.T) {
	c := NewTyped[testPage](NewMemoryStore(MemoryOptions{}), time.Hour)
	ctx := context.Background()

	want := errors.New("database error")
	_, err := c.GetOrLoad(ctx, "home", func(context.Context) (*testPage, error) { return nil, want })
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
	if _, ok := c.Get(ctx, "home"); ok {
		t.Error("failed load was cached")
	}
}

func TestTyped_GetOrLoadSharesConcurrentMisses(t *testing.T) {
	c := NewTyped[testPage](NewMemoryStore(MemoryOptions{}), time.Hour)
	ctx := context.Background()

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (*testPage, error) {
		calls.Add(1)
		<-release
		return &testPage{Title: "Home"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrLoad(ctx, "home", load)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("loader called %d times", n)
	}
	if _, ok := c.Get(ctx, "home"); !ok {
		t.Error("loaded value not cached")
	}
}

func TestTyped_UndecodableEntryIsMiss(t *testing.T) {
	store := NewMemoryStore(MemoryOptions{})
	c := NewTyped[testPage](store, time.Hour)
	ctx := context.Background()

	_ = store.Set(ctx, "home", []byte("{not json"), 0)
	if _, ok := c.Get(ctx, "home"); ok {
		t.Error("undecodable entry returned as hit")
	}
}

func TestTyped_Delete(t *testing.T) {
	c := NewTyped[testPage](NewMemoryStore(MemoryOptions{}), time.Hour)
	ctx := context.Background()

	if err := c.Set(ctx, "home", &testPage{Title: "Home"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Delete(ctx, "home"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := c.Get(ctx, "home"); ok {
		t.Error("entry still present after Delete")
	}
}
