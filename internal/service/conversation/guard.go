package conversation

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard allows at most one in-flight generation per session.
type Guard struct {
	mu     sync.Mutex
	active map[string]*Generation
}

func NewGuard() *Guard {
	return &Guard{active: make(map[string]*Generation)}
}

// Generation is a running reply. Its context outlives the request that
// started it and ends on Stop or End.
type Generation struct {
	ctx     context.Context
	cancel  context.CancelFunc
	stopped atomic.Bool
	session string
	guard   *Guard
}

// Begin claims sessionID. It reports false while another generation for the
// same session is running.
func (g *Guard) Begin(parent context.Context, sessionID string) (*Generation, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.active[sessionID]; busy {
		return nil, false
	}

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	gen := &Generation{ctx: ctx, cancel: cancel, session: sessionID, guard: g}
	g.active[sessionID] = gen
	return gen, true
}

// Stop halts the session's generation, if any.
func (g *Guard) Stop(sessionID string) bool {
	g.mu.Lock()
	gen, ok := g.active[sessionID]
	g.mu.Unlock()
	if !ok {
		return false
	}
	gen.stopped.Store(true)
	gen.cancel()
	return true
}

// Generating reports whether sessionID has a reply in flight.
func (g *Guard) Generating(sessionID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.active[sessionID]
	return ok
}

func (gen *Generation) Context() context.Context { return gen.ctx }

// Stopped reports whether Stop was called for this generation.
func (gen *Generation) Stopped() bool { return gen.stopped.Load() }

// End releases the session. Safe to call more than once.
func (gen *Generation) End() {
	gen.cancel()
	gen.guard.mu.Lock()
	defer gen.guard.mu.Unlock()
	if gen.guard.active[gen.session] == gen {
		delete(gen.guard.active, gen.session)
	}
}
