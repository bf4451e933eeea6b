package inference

import (
	"sync"

	"feeScope/internal/model"
)

type reserveKey struct {
	pool  string
	block uint64
}

// ReserveCache caches getReserves() results by pool and block. Consecutive
// trades share a snapshot: the state after block B is the state before B+1.
type ReserveCache struct {
	mu   sync.RWMutex
	data map[reserveKey]model.ReserveSnapshot
}

func NewReserveCache() *ReserveCache {
	return &ReserveCache{data: make(map[reserveKey]model.ReserveSnapshot)}
}

func (c *ReserveCache) Get(pool string, block uint64) (model.ReserveSnapshot, bool) {
	c.mu.RLock()
	snapshot, ok := c.data[reserveKey{pool: pool, block: block}]
	c.mu.RUnlock()
	return snapshot, ok
}

func (c *ReserveCache) Set(snapshot model.ReserveSnapshot) {
	c.mu.Lock()
	c.data[reserveKey{pool: snapshot.Pool, block: snapshot.BlockNumber}] = snapshot
	c.mu.Unlock()
}
