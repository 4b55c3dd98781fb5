package storage

import (
	"context"
	"fmt"
	"time"

	"entgo.io/ent/dialect/sql"
	"github.com/archon-core/archon/ent"
	"github.com/archon-core/archon/ent/pipeline"
	"github.com/archon-core/archon/pkg/apperrors"
	"github.com/google/uuid"
)

// CreatePipelineParams describes one ingestion run request.
type CreatePipelineParams struct {
	SourceID            string
	URL                 string
	KnowledgeType       pipeline.KnowledgeType
	Tags                []string
	MaxDepth            int
	ExtractCodeExamples bool
	ProjectID           *string
	IsProjectPrivate    bool
	SendToKB            bool
	RequestedBy         string
}

// CreatePipeline inserts a pending Pipeline row and returns its progress_id.
func (s *Store) CreatePipeline(ctx context.Context, p CreatePipelineParams) (*ent.Pipeline, error) {
	create := s.client.Pipeline.Create().
		SetID(uuid.NewString()).
		SetSourceID(p.SourceID).
		SetURL(p.URL).
		SetKnowledgeType(p.KnowledgeType).
		SetTags(p.Tags).
		SetMaxDepth(p.MaxDepth).
		SetExtractCodeExamples(p.ExtractCodeExamples).
		SetIsProjectPrivate(p.IsProjectPrivate).
		SetSendToKB(p.SendToKB).
		SetRequestedBy(p.RequestedBy)

	if p.ProjectID != nil {
		create = create.SetProjectID(*p.ProjectID)
	}

	pl, err := create.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	return pl, nil
}

// GetPipeline fetches a Pipeline by progress_id.
func (s *Store) GetPipeline(ctx context.Context, id string) (*ent.Pipeline, error) {
	pl, err := s.client.Pipeline.Get(ctx, id)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, apperrors.Wrap(apperrors.KindNotFound, "pipeline not found", err)
		}
		return nil, fmt.Errorf("get pipeline: %w", err)
	}
	return pl, nil
}

// ErrNoPipelinesAvailable indicates no pending pipeline rows are claimable.
var ErrNoPipelinesAvailable = fmt.Errorf("no pipelines available")

// ClaimNextPipeline atomically claims the oldest pending Pipeline row using
// SELECT ... FOR UPDATE SKIP LOCKED so multiple pods never race on the same
// pipeline.
func (s *Store) ClaimNextPipeline(ctx context.Context, podID string) (*ent.Pipeline, error) {
	tx, err := s.client.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	pl, err := tx.Pipeline.Query().
		Where(pipeline.StatusEQ(pipeline.StatusPending)).
		Order(ent.Asc(pipeline.FieldCreatedAt)).
		Limit(1).
		ForUpdate(sql.WithLockAction(sql.SkipLocked)).
		First(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrNoPipelinesAvailable
		}
		return nil, fmt.Errorf("query pending pipeline: %w", err)
	}

	now := time.Now()
	pl, err = pl.Update().
		SetStatus(pipeline.StatusInProgress).
		SetPhase(pipeline.PhaseDiscovery).
		SetPodID(podID).
		SetStartedAt(now).
		SetLastHeartbeatAt(now).
		Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim pipeline: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return pl, nil
}

// Heartbeat updates last_heartbeat_at so the pipeline isn't reclaimed as
// orphaned by a future reaper pass.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	err := s.client.Pipeline.UpdateOneID(id).
		SetLastHeartbeatAt(time.Now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("pipeline heartbeat: %w", err)
	}
	return nil
}

// PipelineProgressUpdate carries the fields a phase transition changes.
type PipelineProgressUpdate struct {
	Phase                 *pipeline.Phase
	Percent                *int
	PagesFetched           *int
	PagesFailed            *int
	ChunksStored           *int
	CodeExamplesExtracted  *int
}

// UpdatePipelineProgress applies a partial progress update to a pipeline row.
func (s *Store) UpdatePipelineProgress(ctx context.Context, id string, u PipelineProgressUpdate) error {
	update := s.client.Pipeline.UpdateOneID(id)

	if u.Phase != nil {
		update = update.SetPhase(*u.Phase)
	}
	if u.Percent != nil {
		update = update.SetPercent(*u.Percent)
	}
	if u.PagesFetched != nil {
		update = update.SetPagesFetched(*u.PagesFetched)
	}
	if u.PagesFailed != nil {
		update = update.SetPagesFailed(*u.PagesFailed)
	}
	if u.ChunksStored != nil {
		update = update.SetChunksStored(*u.ChunksStored)
	}
	if u.CodeExamplesExtracted != nil {
		update = update.SetCodeExamplesExtracted(*u.CodeExamplesExtracted)
	}

	if err := update.Exec(ctx); err != nil {
		return fmt.Errorf("update pipeline progress: %w", err)
	}
	return nil
}

// CompletePipeline writes the pipeline's terminal status.
func (s *Store) CompletePipeline(ctx context.Context, id string, status pipeline.Status, errMessage string) error {
	update := s.client.Pipeline.UpdateOneID(id).
		SetStatus(status).
		SetPhase(pipeline.PhaseDone).
		SetPercent(100).
		SetCompletedAt(time.Now())

	if errMessage != "" {
		update = update.SetErrorMessage(errMessage)
	}

	if err := update.Exec(ctx); err != nil {
		return fmt.Errorf("complete pipeline: %w", err)
	}
	return nil
}
