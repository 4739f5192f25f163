// Package pipeline implements the per-codec-instance work queue of
// spec.md §4.D: an ordered queue of work items drained by a single
// worker goroutine, generation-tagged cancellation, and flush futures
// that race reset/close.
//
// The engine has no separate "caller thread" the way a browser's event
// loop does; item.Run and a flush's resolution both execute on the
// pipeline's own worker goroutine. This preserves the one ordering
// guarantee spec.md §9 actually cares about (callback returns →
// generation check → resolver runs) without needing a second scheduler:
// because the worker processes items strictly FIFO, a callback that
// calls Reset bumps the generation before the worker advances to the
// next (possibly Flush) item, so that item's generation check already
// sees the bump.
package pipeline

import (
	"sync"

	"github.com/five82/webcodecsgo/internal/codecerr"
)

// Kind tags a queued item. Flush doubles as the "barrier" spec.md names
// separately: because there is exactly one worker draining the queue
// FIFO, a Flush item reaching the front of the queue already means every
// item ahead of it has been processed, which is everything a Barrier
// would otherwise be for.
type Kind int

const (
	KindConfigure Kind = iota
	KindEncodeOrDecode
	KindFlush
)

// Future is the handle a Flush work item hands back to the caller.
// Resolve completes it at most once; Wait blocks until resolution.
type Future struct {
	mu       sync.Mutex
	done     chan struct{}
	err      error
	resolved bool
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Wait blocks until the future resolves and returns its error, or nil on
// success.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

// Done returns a channel closed when the future resolves, for callers
// that want to select on it alongside other events.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

func (f *Future) resolve(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved {
		return
	}
	f.resolved = true
	f.err = err
	close(f.done)
}

type item struct {
	kind       Kind
	generation uint64
	run        func()
	future     *Future
}

// Pipeline is the per-instance work queue and worker.
type Pipeline struct {
	mu        sync.Mutex
	items     []*item
	depth     int
	onDequeue func()
	workCh    chan struct{}
	stopCh    chan struct{}
	stopped   bool
	genFn     CurrentGeneration
	wg        sync.WaitGroup
}

// New starts a pipeline's worker goroutine. onDequeue is invoked once
// per item removed from the queue, exactly the signal spec.md §4.D
// requires to drive the ondequeue event; it may be nil.
func New(onDequeue func()) *Pipeline {
	p := &Pipeline{
		onDequeue: onDequeue,
		workCh:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

// QueueDepth reports the publicly observed encodeQueueSize/decodeQueueSize:
// items accepted but not yet dequeued by the worker.
func (p *Pipeline) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.depth
}

// EnqueueConfigure and EnqueueWork both raise the queue depth by one and
// run run() on the worker goroutine once popped, unless generation is
// stale at that point.
func (p *Pipeline) EnqueueConfigure(generation uint64, run func()) {
	p.enqueue(&item{kind: KindConfigure, generation: generation, run: run})
}

// EnqueueWork queues an encode or decode work item.
func (p *Pipeline) EnqueueWork(generation uint64, run func()) {
	p.enqueue(&item{kind: KindEncodeOrDecode, generation: generation, run: run})
}

// EnqueueFlush queues a flush barrier and returns its future. The future
// resolves nil once every item enqueued before the flush has been
// processed, or resolves with an abort error if generation is bumped
// (via Reset or Close) before the flush is reached.
func (p *Pipeline) EnqueueFlush(generation uint64) *Future {
	f := newFuture()
	p.enqueue(&item{kind: KindFlush, generation: generation, future: f})
	return f
}

func (p *Pipeline) enqueue(it *item) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		if it.future != nil {
			it.future.resolve(nil)
		}
		return
	}
	p.items = append(p.items, it)
	p.depth++
	p.mu.Unlock()
	p.wake()
}

func (p *Pipeline) wake() {
	select {
	case p.workCh <- struct{}{}:
	default:
	}
}

func (p *Pipeline) pop() (*item, bool) {
	p.mu.Lock()
	if len(p.items) == 0 {
		p.mu.Unlock()
		return nil, false
	}
	it := p.items[0]
	p.items = p.items[1:]
	p.depth--
	p.mu.Unlock()

	if p.onDequeue != nil {
		p.onDequeue()
	}
	return it, true
}

func (p *Pipeline) loop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		case <-p.workCh:
			for {
				it, ok := p.pop()
				if !ok {
					break
				}
				p.processFn(it)
			}
		}
	}
}

// CurrentGeneration is supplied by the owning codec instance (its
// state.Machine.Generation) so the worker can tell a stale item from a
// live one without the pipeline package depending on internal/state.
type CurrentGeneration func() uint64

// Bind attaches the generation source. Must be called once, before the
// first item is enqueued.
func (p *Pipeline) Bind(gen CurrentGeneration) {
	p.mu.Lock()
	p.genFn = gen
	p.mu.Unlock()
}

func (p *Pipeline) processFn(it *item) {
	p.mu.Lock()
	gen := p.genFn
	p.mu.Unlock()

	stale := gen != nil && it.generation != gen()
	switch it.kind {
	case KindFlush:
		if stale {
			it.future.resolve(codecerr.NewAbortError("flush superseded by reset or close"))
		} else {
			it.future.resolve(nil)
		}
	default:
		if !stale && it.run != nil {
			it.run()
		}
	}
}

// CancelAll drops every item currently queued and resolves any queued
// flush futures with err. Callers invoke this from Reset/Close, after
// bumping the generation counter, so in-flight (already-popped) items
// are naturally skipped by their own stale check rather than needing a
// second cancellation path.
func (p *Pipeline) CancelAll(err error) {
	p.mu.Lock()
	remaining := p.items
	p.items = nil
	p.depth = 0
	p.mu.Unlock()

	for _, it := range remaining {
		if it.kind == KindFlush {
			it.future.resolve(err)
		}
	}
}

// Stop terminates the worker goroutine. Call once, from Close.
func (p *Pipeline) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()
	close(p.stopCh)
	p.wg.Wait()
}
