package zip2pdf

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one renderer is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// RendererPool hands out renderers to concurrent conversions. Each renderer
// owns its own browser, so conversions render in parallel up to the pool
// size. Renderers are created lazily on first acquire to avoid startup delay.
type RendererPool struct {
	size      int
	factory   func() (Renderer, error)
	renderers []Renderer
	sem       chan Renderer
	mu        sync.Mutex
	created   int
	closed    bool
}

// NewRendererPool creates a pool with capacity for n renderers built by
// factory.
func NewRendererPool(n int, factory func() (Renderer, error)) *RendererPool {
	if n < 1 {
		n = 1
	}
	return &RendererPool{
		size:      n,
		factory:   factory,
		renderers: make([]Renderer, 0, n),
		sem:       make(chan Renderer, n),
	}
}

// Acquire gets a renderer, creating one if the pool is not yet full.
// Blocks until one is released or ctx is done.
func (p *RendererPool) Acquire(ctx context.Context) (Renderer, error) {
	select {
	case r, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return r, nil
	default:
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		// Create outside the lock; a failed slot can be retried later.
		r, err := p.factory()
		p.mu.Lock()
		if err != nil {
			p.created--
			p.mu.Unlock()
			return nil, err
		}
		p.renderers = append(p.renderers, r)
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	select {
	case r, ok := <-p.sem:
		if !ok {
			return nil, ErrPoolClosed
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a renderer to the pool.
// The lock is held while sending; the channel has room for every renderer
// so the send never blocks.
func (p *RendererPool) Release(r Renderer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sem <- r
}

// Close releases all browser resources.
// Returns an aggregated error if multiple renderers fail to close.
func (p *RendererPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	renderers := p.renderers
	p.mu.Unlock()

	var errs []error
	for _, r := range renderers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *RendererPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers.
	n := runtime.GOMAXPROCS(0) / cpuDivisor
	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
