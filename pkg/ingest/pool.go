package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// PipelinePool manages a pool of PipelineWorker goroutines: a cancel-function
// registry keyed by the claimed row's id, a fixed worker count bounding
// concurrent work, and graceful Stop/Start lifecycle methods.
type PipelinePool struct {
	podID   string
	runner  *Runner
	workers int

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu              sync.RWMutex
	activePipelines map[string]context.CancelFunc
	started         bool
}

// NewPipelinePool builds a pool that runs workerCount concurrent
// PipelineWorker goroutines, each polling for claimable pipeline rows.
func NewPipelinePool(podID string, runner *Runner, workerCount int) *PipelinePool {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &PipelinePool{
		podID:           podID,
		runner:          runner,
		workers:         workerCount,
		stopCh:          make(chan struct{}),
		activePipelines: make(map[string]context.CancelFunc),
	}
}

// Start spawns the worker goroutines. Safe to call once; subsequent calls
// are no-ops.
func (p *PipelinePool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for i := 0; i < p.workers; i++ {
		w := newPipelineWorker(fmt.Sprintf("%s-ingest-%d", p.podID, i), p.podID, p.runner, p)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			w.run(ctx, p.stopCh)
		}()
	}
	slog.Info("ingestion pipeline pool started", "pod_id", p.podID, "workers", p.workers)
}

// Stop signals every worker to finish its current pipeline and exit, then
// waits for them to do so.
func (p *PipelinePool) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}

// RegisterPipeline stores a cancel function for manual cancellation via
// CancelPipeline.
func (p *PipelinePool) RegisterPipeline(progressID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activePipelines[progressID] = cancel
}

// UnregisterPipeline removes the cancel function once the pipeline reaches
// a terminal state.
func (p *PipelinePool) UnregisterPipeline(progressID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activePipelines, progressID)
}

// CancelPipeline triggers context cancellation for a pipeline running on
// this pod. Returns true if it was found here (a multi-pod deployment may
// need to route cancellation through the database instead).
func (p *PipelinePool) CancelPipeline(progressID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activePipelines[progressID]; ok {
		cancel()
		return true
	}
	return false
}
