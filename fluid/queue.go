package fluid

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

// Splat is one pending force/dye injection request, immutable once
// enqueued. Pos is in [0,1]² UV space, Force in simulation-grid texels per
// second, Color the dye payload deposited around the position.
type Splat struct {
	Pos   mgl32.Vec2
	Force mgl32.Vec2
	Color mgl32.Vec3
}

// splatQueue accumulates requests between simulation steps. Multiple
// producers may enqueue concurrently; the driver drains it once per tick.
// An enqueue racing a flush lands in the following tick's batch, never
// lost and never applied twice.
type splatQueue struct {
	mu      sync.Mutex
	pending []Splat
}

// Enqueue appends a request. It always succeeds.
func (q *splatQueue) Enqueue(s Splat) {
	q.mu.Lock()
	q.pending = append(q.pending, s)
	q.mu.Unlock()
}

// Flush atomically drains and returns every pending request in insertion
// order, leaving the queue empty.
func (q *splatQueue) Flush() []Splat {
	q.mu.Lock()
	out := q.pending
	q.pending = nil
	q.mu.Unlock()
	return out
}

// Len reports the number of requests waiting for the next flush.
func (q *splatQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
