package stats

import (
	"sync"

	"github.com/arisecrossover/guildsite/internal/model"
)

// Holder owns the current server stats snapshot. It is created once by the
// server root and passed to whoever needs it, so tests get a fresh one per
// run instead of sharing a module-level singleton.
type Holder struct {
	mu    sync.RWMutex
	stats model.ServerStats
}

func NewHolder() *Holder {
	return &Holder{}
}

// Get returns the current snapshot.
func (h *Holder) Get() model.ServerStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats
}

// Set replaces the snapshot wholesale. There is no partial update.
func (h *Holder) Set(stats model.ServerStats) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = stats
}
