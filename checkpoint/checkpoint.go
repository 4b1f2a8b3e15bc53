// Package checkpoint retains recent training snapshots in memory,
// keyed by a generated identity and evicted by recency. It generalizes
// the teacher's basePath-and-maxToKeep FIFO checkpoint manager to an
// LRU eviction policy, since a live training session has no natural
// directory per checkpoint.
package checkpoint

import (
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
)

// Checkpoint is one retained training snapshot: the raw JSON payload a
// serialize.StoreSnapshot call produced, plus the metadata needed to
// pick among several retained checkpoints.
type Checkpoint struct {
	ID        uuid.UUID
	Iteration int
	Loss      float64
	CreatedAt time.Time
	Snapshot  []byte
}

// Manager retains up to capacity checkpoints, evicting the least
// recently used when full.
type Manager struct {
	cache *lru.Cache[uuid.UUID, *Checkpoint]
}

// NewManager constructs a checkpoint manager retaining at most capacity
// checkpoints.
func NewManager(capacity int) (*Manager, error) {
	cache, err := lru.New[uuid.UUID, *Checkpoint](capacity)
	if err != nil {
		slog.Error("failed to construct checkpoint manager", "error", err)
		return nil, err
	}
	return &Manager{cache: cache}, nil
}

// Save retains snapshot under a freshly generated ID and returns it.
func (m *Manager) Save(iteration int, loss float64, snapshot []byte) *Checkpoint {
	cp := &Checkpoint{
		ID:        uuid.New(),
		Iteration: iteration,
		Loss:      loss,
		CreatedAt: time.Now(),
		Snapshot:  snapshot,
	}
	m.cache.Add(cp.ID, cp)
	slog.Info("checkpoint retained", "checkpoint_id", cp.ID, "iteration", iteration, "bytes", len(snapshot))
	return cp
}

// Get retrieves a retained checkpoint by ID, marking it most recently
// used. The second return value is false if no checkpoint with that ID
// is retained (evicted or never saved).
func (m *Manager) Get(id uuid.UUID) (*Checkpoint, bool) {
	return m.cache.Get(id)
}

// Latest returns the most recently saved checkpoint still retained, or
// nil if none have been saved.
func (m *Manager) Latest() *Checkpoint {
	var latest *Checkpoint
	for _, id := range m.cache.Keys() {
		cp, ok := m.cache.Peek(id)
		if !ok {
			continue
		}
		if latest == nil || cp.CreatedAt.After(latest.CreatedAt) {
			latest = cp
		}
	}
	return latest
}

// Len reports the number of retained checkpoints.
func (m *Manager) Len() int { return m.cache.Len() }
