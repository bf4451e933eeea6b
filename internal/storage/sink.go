package storage

import (
	"context"

	"feeScope/internal/model"
)

// PoolSink receives the full pool set after every window.
type PoolSink interface {
	SavePools(ctx context.Context, pools []model.Pool) error
}

// PoolAppender is a PoolSink that can take only the pools added since the
// previous call. The runner prefers AppendPools when a sink implements it.
type PoolAppender interface {
	PoolSink
	AppendPools(ctx context.Context, pools []model.Pool) error
}

// PoolLoader reads a previously persisted pool set.
type PoolLoader interface {
	LoadPools(ctx context.Context) ([]model.Pool, bool, error)
}

// DecodeErrorSink records logs that were skipped because they failed to decode.
type DecodeErrorSink interface {
	PutDecodeErrors(records []model.DecodeError) error
}

// FeeReportSink receives the result of fee inference.
type FeeReportSink interface {
	SaveFeeReport(ctx context.Context, report model.FeeReport) error
}
