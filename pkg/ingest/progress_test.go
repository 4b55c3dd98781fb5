package ingest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressHandle_SetPhaseAdvancesPercent(t *testing.T) {
	h := newProgressHandle()
	assert.Equal(t, 0, h.Snapshot().Percent)

	h.SetPhase(PhaseCrawl)
	assert.Equal(t, phaseWeight[PhaseDiscovery], h.Snapshot().Percent)

	h.SetPhase(PhaseDone)
	assert.Equal(t, 100, h.Snapshot().Percent)
}

func TestProgressHandle_LogRingBufferBounded(t *testing.T) {
	h := newProgressHandle()
	for i := 0; i < maxLogLines+50; i++ {
		h.Log(fmt.Sprintf("line %d", i))
	}

	snap := h.Snapshot()
	require.Len(t, snap.Log, maxLogLines)
	assert.Equal(t, fmt.Sprintf("line %d", maxLogLines+49), snap.Log[len(snap.Log)-1])
}

func TestProgressHandle_CountersAccumulate(t *testing.T) {
	h := newProgressHandle()
	h.IncCounter("pages_fetched", 3)
	h.IncCounter("pages_fetched", 2)
	assert.Equal(t, 5, h.Snapshot().Counters["pages_fetched"])
}

func TestProgressHandle_FinishSetsTerminalStatus(t *testing.T) {
	h := newProgressHandle()
	h.Finish("completed")

	snap := h.Snapshot()
	assert.Equal(t, "completed", snap.TerminalStatus)
	assert.Equal(t, 100, snap.Percent)
	assert.Equal(t, PhaseDone, snap.Phase)
}

func TestProgressStore_CreateGetDelete(t *testing.T) {
	store := NewProgressStore()
	assert.Nil(t, store.Get("missing"))

	h := store.Create("p1")
	assert.Same(t, h, store.Get("p1"))

	store.Delete("p1")
	assert.Nil(t, store.Get("p1"))
}
