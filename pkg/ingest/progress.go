package ingest

import (
	"sync"
	"time"
)

const maxLogLines = 200

// Phase mirrors the five sequential stages a pipeline runs through.
type Phase string

const (
	PhaseDiscovery     Phase = "discovery"
	PhaseCrawl         Phase = "crawl"
	PhaseChunkAndStore Phase = "chunk_and_store"
	PhaseCodeExtract   Phase = "code_extract"
	PhaseFinalize      Phase = "finalize"
	PhaseDone          Phase = "done"
)

// phaseWeight is how much of the overall percent each phase contributes
// when it completes, a coarse blend rather than per-item precision.
var phaseWeight = map[Phase]int{
	PhaseDiscovery:     5,
	PhaseCrawl:         40,
	PhaseChunkAndStore: 35,
	PhaseCodeExtract:   15,
	PhaseFinalize:      5,
}

// Snapshot is the JSON-stable shape the poll endpoint reads.
type Snapshot struct {
	Phase          Phase             `json:"phase"`
	Percent        int               `json:"percent"`
	Counters       map[string]int    `json:"counters"`
	Log            []string          `json:"log"`
	TerminalStatus string            `json:"terminal_status,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// ProgressHandle is the process-local progress object for one running
// pipeline. It is written by the single goroutine driving that pipeline;
// every read and write takes the handle's mutex, so the poll handler can
// read it from another goroutine.
type ProgressHandle struct {
	mu             sync.Mutex
	phase          Phase
	percent        int
	counters       map[string]int
	log            []string
	terminalStatus string
	startedAt      time.Time
	updatedAt      time.Time
}

func newProgressHandle() *ProgressHandle {
	now := time.Now()
	return &ProgressHandle{
		phase:     PhaseDiscovery,
		counters:  map[string]int{"pages_fetched": 0, "chunks_stored": 0, "code_examples": 0, "total_words": 0},
		startedAt: now,
		updatedAt: now,
	}
}

// SetPhase advances the phase and recomputes percent as the sum of
// completed phases' weights.
func (h *ProgressHandle) SetPhase(p Phase) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = p
	h.percent = percentForPhase(p)
	h.updatedAt = time.Now()
}

func percentForPhase(p Phase) int {
	order := []Phase{PhaseDiscovery, PhaseCrawl, PhaseChunkAndStore, PhaseCodeExtract, PhaseFinalize, PhaseDone}
	sum := 0
	for _, ph := range order {
		if ph == p {
			break
		}
		sum += phaseWeight[ph]
	}
	if p == PhaseDone {
		return 100
	}
	return sum
}

// IncCounter bumps a named counter (pages_fetched, chunks_stored,
// code_examples, total_words) by delta.
func (h *ProgressHandle) IncCounter(name string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counters[name] += delta
	h.updatedAt = time.Now()
}

// Log appends a line to the bounded ring buffer, dropping the oldest line
// once maxLogLines is reached.
func (h *ProgressHandle) Log(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log = append(h.log, line)
	if len(h.log) > maxLogLines {
		h.log = h.log[len(h.log)-maxLogLines:]
	}
	h.updatedAt = time.Now()
}

// Finish records the terminal status ("completed", "failed", or
// "cancelled") and sets percent to 100.
func (h *ProgressHandle) Finish(status string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.phase = PhaseDone
	h.percent = 100
	h.terminalStatus = status
	h.updatedAt = time.Now()
}

// Snapshot returns a point-in-time copy safe to serialize.
func (h *ProgressHandle) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	counters := make(map[string]int, len(h.counters))
	for k, v := range h.counters {
		counters[k] = v
	}
	log := make([]string, len(h.log))
	copy(log, h.log)
	return Snapshot{
		Phase:          h.phase,
		Percent:        h.percent,
		Counters:       counters,
		Log:            log,
		TerminalStatus: h.terminalStatus,
		StartedAt:      h.startedAt,
		UpdatedAt:      h.updatedAt,
	}
}

// ProgressStore holds one ProgressHandle per in-flight progress_id,
// constructed once in the composition root and passed to every
// PipelineWorker so the poll endpoint (pkg/api) can read a handle by id
// regardless of which worker owns it.
type ProgressStore struct {
	mu      sync.RWMutex
	handles map[string]*ProgressHandle
}

// NewProgressStore builds an empty store.
func NewProgressStore() *ProgressStore {
	return &ProgressStore{handles: make(map[string]*ProgressHandle)}
}

// Create registers a new handle for progressID, replacing any existing one
// (a restarted pipeline gets a fresh in-memory progress object).
func (s *ProgressStore) Create(progressID string) *ProgressHandle {
	h := newProgressHandle()
	s.mu.Lock()
	s.handles[progressID] = h
	s.mu.Unlock()
	return h
}

// Get returns the handle for progressID, or nil if none is tracked (the
// pipeline has not run in this process since it started, e.g. after a
// restart — the caller falls back to the persisted Pipeline row).
func (s *ProgressStore) Get(progressID string) *ProgressHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handles[progressID]
}

// Delete removes a handle once its pipeline is terminal and has been
// polled a final time, bounding memory growth across many ingestion runs.
func (s *ProgressStore) Delete(progressID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, progressID)
}
