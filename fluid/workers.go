package fluid

import (
	"runtime"
	"sync"
)

// Grids below this cell count run on the calling goroutine; the fan-out
// overhead beats the per-cell work otherwise.
const parallelMinCells = 4096

// workerPool executes the per-cell body of a field pass across a fixed set
// of persistent goroutines. Workers park on a condition variable between
// passes; run broadcasts a task and waits until every row range finishes,
// which is the inter-pass barrier the pipeline depends on.
type workerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	count   int
	step    int
	pending int
	rows    int
	body    func(y0, y1 int)
	started bool
}

func newWorkerPool(count int) *workerPool {
	if count < 1 {
		count = runtime.GOMAXPROCS(0)
	}
	p := &workerPool{count: count}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// start launches the worker goroutines. Workers live for the rest of the
// process; an idle pool only holds parked goroutines.
func (p *workerPool) start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true
	for i := 0; i < p.count; i++ {
		go p.loop(i)
	}
}

func (p *workerPool) loop(index int) {
	lastStep := 0
	p.mu.Lock()
	for {
		for p.step == lastStep {
			p.cond.Wait()
		}
		lastStep = p.step
		rows, body := p.rows, p.body
		p.mu.Unlock()

		y0 := index * rows / p.count
		y1 := (index + 1) * rows / p.count
		if y1 > y0 {
			body(y0, y1)
		}

		p.mu.Lock()
		p.pending--
		if p.pending == 0 {
			p.cond.Broadcast()
		}
	}
}

// run executes body over [0, rows) split into contiguous row ranges, one
// per worker, and returns once every range has completed. Small grids run
// inline on the caller.
func (p *workerPool) run(rows, width int, body func(y0, y1 int)) {
	if rows*width < parallelMinCells {
		body(0, rows)
		return
	}
	p.start()
	p.mu.Lock()
	p.rows = rows
	p.body = body
	p.pending = p.count
	p.step++
	p.cond.Broadcast()
	for p.pending > 0 {
		p.cond.Wait()
	}
	p.mu.Unlock()
}
