package pipeline_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/webcodecsgo/internal/pipeline"
)

func waitForDepthZero(t *testing.T, p *pipeline.Pipeline) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.QueueDepth() == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for queue to drain")
}

func TestPipeline_ProcessesItemsInOrder(t *testing.T) {
	var gen atomic.Uint64
	p := pipeline.New(nil)
	p.Bind(func() uint64 { return gen.Load() })

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		p.EnqueueWork(gen.Load(), func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	waitForDepthZero(t, p)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestPipeline_FlushResolvesAfterPriorWork(t *testing.T) {
	var gen atomic.Uint64
	p := pipeline.New(nil)
	p.Bind(func() uint64 { return gen.Load() })

	done := make(chan struct{})
	p.EnqueueWork(gen.Load(), func() { close(done) })
	future := p.EnqueueFlush(gen.Load())

	err := future.Wait()
	require.NoError(t, err)
	select {
	case <-done:
	default:
		t.Fatal("flush resolved before prior work ran")
	}
}

func TestPipeline_StaleItemsAreDropped(t *testing.T) {
	var gen atomic.Uint64
	p := pipeline.New(nil)
	p.Bind(func() uint64 { return gen.Load() })

	ran := atomic.Bool{}
	staleGen := gen.Load()
	gen.Add(1) // simulate a reset bumping generation before the item runs
	p.EnqueueWork(staleGen, func() { ran.Store(true) })

	future := p.EnqueueFlush(gen.Load())
	require.NoError(t, future.Wait())
	assert.False(t, ran.Load())
}

func TestPipeline_CancelAllAbortsQueuedFlushes(t *testing.T) {
	var gen atomic.Uint64
	p := pipeline.New(nil)
	p.Bind(func() uint64 { return gen.Load() })

	block := make(chan struct{})
	p.EnqueueWork(gen.Load(), func() { <-block })
	future := p.EnqueueFlush(gen.Load())

	gen.Add(1)
	p.CancelAll(assert.AnError)
	close(block)

	err := future.Wait()
	require.Error(t, err)
}

func TestPipeline_QueueDepthTracksAcceptedNotYetDequeuedItems(t *testing.T) {
	var gen atomic.Uint64
	dequeued := make(chan struct{}, 8)
	p := pipeline.New(func() { dequeued <- struct{}{} })
	p.Bind(func() uint64 { return gen.Load() })

	block := make(chan struct{})
	p.EnqueueWork(gen.Load(), func() { <-block })
	p.EnqueueWork(gen.Load(), func() {})

	<-dequeued // first item popped
	assert.LessOrEqual(t, p.QueueDepth(), 1)
	close(block)
}
