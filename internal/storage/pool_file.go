package storage

import (
	"context"

	"feeScope/internal/model"
)

// PoolFile persists the pool set as a pretty-printed JSON array.
type PoolFile struct {
	path string
}

func NewPoolFile(path string) *PoolFile {
	return &PoolFile{path: path}
}

func (f *PoolFile) Path() string {
	return f.path
}

// SavePools replaces the file with the given pools.
func (f *PoolFile) SavePools(_ context.Context, pools []model.Pool) error {
	if pools == nil {
		pools = []model.Pool{}
	}
	if err := writeJSONAtomic(f.path, pools); err != nil {
		return &PersistenceError{Sink: "pools", Path: f.path, Err: err}
	}
	return nil
}

// LoadPools reads the file. A missing file reports false.
func (f *PoolFile) LoadPools(_ context.Context) ([]model.Pool, bool, error) {
	var pools []model.Pool
	ok, err := readJSON(f.path, &pools)
	if err != nil || !ok {
		return nil, ok, err
	}
	return pools, true, nil
}
