package zip2pdf

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRendererPool_MinimumSize(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, -3} {
		if got := NewRendererPool(n, nil).Size(); got != 1 {
			t.Errorf("NewRendererPool(%d).Size() = %d, want 1", n, got)
		}
	}
}

func TestRendererPool_LazyCreation(t *testing.T) {
	t.Parallel()

	var created atomic.Int32
	pool := NewRendererPool(2, func() (Renderer, error) {
		created.Add(1)
		return &mockRenderer{}, nil
	})
	defer pool.Close()

	if created.Load() != 0 {
		t.Fatal("renderers created before first Acquire")
	}

	ctx := context.Background()
	a, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pool.Release(a)

	b, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("released renderer was not reused")
	}
	if created.Load() != 1 {
		t.Errorf("created = %d, want 1", created.Load())
	}

	c, err := pool.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if c == b {
		t.Error("second concurrent Acquire returned the busy renderer")
	}
	if created.Load() != 2 {
		t.Errorf("created = %d, want 2", created.Load())
	}
}

func TestRendererPool_AcquireBlocksUntilContextDone(t *testing.T) {
	t.Parallel()

	pool := NewRendererPool(1, func() (Renderer, error) { return &mockRenderer{}, nil })
	defer pool.Close()

	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := pool.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() on exhausted pool = %v, want DeadlineExceeded", err)
	}
}

func TestRendererPool_FactoryError(t *testing.T) {
	t.Parallel()

	boom := errors.New("no browser")
	calls := 0
	pool := NewRendererPool(1, func() (Renderer, error) {
		calls++
		if calls == 1 {
			return nil, boom
		}
		return &mockRenderer{}, nil
	})
	defer pool.Close()

	if _, err := pool.Acquire(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Acquire() error = %v, want factory error", err)
	}
	// The failed slot is free again.
	if _, err := pool.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() after factory error = %v", err)
	}
}

func TestRendererPool_Close(t *testing.T) {
	t.Parallel()

	r := &mockRenderer{}
	pool := NewRendererPool(1, func() (Renderer, error) { return r, nil })

	got, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	pool.Release(got)

	if err := pool.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if r.closed != 1 {
		t.Errorf("renderer closed %d times, want 1", r.closed)
	}

	// Release after close must not panic on the closed channel.
	pool.Release(got)

	if _, err := pool.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Acquire() after Close = %v, want ErrPoolClosed", err)
	}
}

func TestResolvePoolSize(t *testing.T) {
	t.Parallel()

	if got := ResolvePoolSize(3); got != 3 {
		t.Errorf("ResolvePoolSize(3) = %d, want 3", got)
	}

	want := runtime.GOMAXPROCS(0) / cpuDivisor
	if want < MinPoolSize {
		want = MinPoolSize
	}
	if want > MaxPoolSize {
		want = MaxPoolSize
	}
	if got := ResolvePoolSize(0); got != want {
		t.Errorf("ResolvePoolSize(0) = %d, want %d", got, want)
	}
}
