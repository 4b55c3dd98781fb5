package ingest

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/archon-core/archon/pkg/storage"
)

const (
	pollIntervalBase   = 2 * time.Second
	pollIntervalJitter = 500 * time.Millisecond
	heartbeatInterval  = 15 * time.Second
	pipelineTimeout    = 30 * time.Minute
)

// pipelineRegistry is the subset of PipelinePool a pipelineWorker needs.
type pipelineRegistry interface {
	RegisterPipeline(progressID string, cancel context.CancelFunc)
	UnregisterPipeline(progressID string)
}

type pipelineWorker struct {
	id     string
	podID  string
	runner *Runner
	pool   pipelineRegistry
}

func newPipelineWorker(id, podID string, runner *Runner, pool pipelineRegistry) *pipelineWorker {
	return &pipelineWorker{id: id, podID: podID, runner: runner, pool: pool}
}

func (w *pipelineWorker) run(ctx context.Context, stopCh <-chan struct{}) {
	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("ingestion worker started")

	for {
		select {
		case <-stopCh:
			log.Info("ingestion worker shutting down")
			return
		case <-ctx.Done():
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, storage.ErrNoPipelinesAvailable) {
					w.sleep(stopCh, w.pollInterval())
					continue
				}
				log.Error("error claiming pipeline", "error", err)
				w.sleep(stopCh, time.Second)
			}
		}
	}
}

func (w *pipelineWorker) pollInterval() time.Duration {
	jitter := time.Duration(rand.Int64N(int64(pollIntervalJitter)))
	return pollIntervalBase + jitter
}

func (w *pipelineWorker) sleep(stopCh <-chan struct{}, d time.Duration) {
	select {
	case <-stopCh:
	case <-time.After(d):
	}
}

func (w *pipelineWorker) pollAndProcess(ctx context.Context) error {
	pl, err := w.runner.store.ClaimNextPipeline(ctx, w.podID)
	if err != nil {
		return err
	}

	log := slog.With("progress_id", pl.ID, "worker_id", w.id)
	log.Info("pipeline claimed")

	runCtx, cancel := context.WithTimeout(ctx, pipelineTimeout)
	defer cancel()

	w.pool.RegisterPipeline(pl.ID, cancel)
	defer w.pool.UnregisterPipeline(pl.ID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(runCtx)
	go w.runHeartbeat(heartbeatCtx, pl.ID)
	defer cancelHeartbeat()

	w.runner.Execute(runCtx, pl)

	log.Info("pipeline processing complete")
	return nil
}

func (w *pipelineWorker) runHeartbeat(ctx context.Context, progressID string) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.runner.store.Heartbeat(context.Background(), progressID); err != nil {
				slog.Warn("pipeline heartbeat failed", "progress_id", progressID, "error", err)
			}
		}
	}
}
