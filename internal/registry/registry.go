// Package registry holds the pools discovered during a run.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"feeScope/internal/model"
)

var (
	ErrPoolExists    = errors.New("pool already registered")
	ErrPoolNotFound  = errors.New("pool not found")
	ErrFeeAlreadySet = errors.New("pool fee already set")
	ErrFeeOutOfRange = errors.New("pool fee out of range")
)

// Registry is an insertion-ordered set of pools keyed by lower-case address.
type Registry struct {
	mu    sync.RWMutex
	pools []model.Pool
	index map[string]int
}

func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// NewFromPools seeds a registry from a previously persisted pool list.
// Duplicate addresses after the first are ignored.
func NewFromPools(pools []model.Pool) *Registry {
	r := New()
	for _, pool := range pools {
		_ = r.Add(pool)
	}
	return r
}

// Add registers a pool. A duplicate address returns ErrPoolExists and leaves
// the registry unchanged.
func (r *Registry) Add(pool model.Pool) error {
	key := normalize(pool.Address)
	pool.Address = key
	pool.Factory = normalize(pool.Factory)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[key]; ok {
		return ErrPoolExists
	}
	r.index[key] = len(r.pools)
	r.pools = append(r.pools, clonePool(pool))
	return nil
}

// Get returns the pool registered under address.
func (r *Registry) Get(address string) (model.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[normalize(address)]
	if !ok {
		return model.Pool{}, false
	}
	return clonePool(r.pools[i]), true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pools)
}

// Pools returns a copy of every pool in insertion order.
func (r *Registry) Pools() []model.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Pool, len(r.pools))
	for i, pool := range r.pools {
		out[i] = clonePool(pool)
	}
	return out
}

// FindEarliestForFactory returns the pool with the smallest creation block
// for factory. Ties resolve to the pool inserted first.
func (r *Registry) FindEarliestForFactory(factory string) (model.Pool, bool) {
	pools := r.PoolsForFactory(factory)
	if len(pools) == 0 {
		return model.Pool{}, false
	}
	return pools[0], true
}

// PoolsForFactory returns the factory's pools ordered by creation block,
// keeping insertion order among pools created in the same block.
func (r *Registry) PoolsForFactory(factory string) []model.Pool {
	key := normalize(factory)

	r.mu.RLock()
	var out []model.Pool
	for _, pool := range r.pools {
		if pool.Factory == key {
			out = append(out, clonePool(pool))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedInBlock < out[j].CreatedInBlock
	})
	return out
}

// DistinctFactories returns every factory with at least one pool, ascending.
func (r *Registry) DistinctFactories() []string {
	return r.distinct(func(p model.Pool) string { return p.Factory })
}

// DistinctProtocols returns every protocol name in use, ascending.
func (r *Registry) DistinctProtocols() []string {
	return r.distinct(func(p model.Pool) string { return p.Protocol })
}

// SetFee records the inferred fee of a pool. A fee can be set once.
func (r *Registry) SetFee(address string, fee uint32) error {
	if fee > model.FeeDenominator {
		return ErrFeeOutOfRange
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[normalize(address)]
	if !ok {
		return ErrPoolNotFound
	}
	if r.pools[i].Fee != nil {
		return ErrFeeAlreadySet
	}
	value := fee
	r.pools[i].Fee = &value
	return nil
}

func (r *Registry) distinct(field func(model.Pool) string) []string {
	r.mu.RLock()
	seen := make(map[string]struct{})
	for _, pool := range r.pools {
		seen[field(pool)] = struct{}{}
	}
	r.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for value := range seen {
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func clonePool(pool model.Pool) model.Pool {
	if pool.Fee != nil {
		fee := *pool.Fee
		pool.Fee = &fee
	}
	return pool
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
