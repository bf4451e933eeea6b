package dex

import (
	"errors"
	"fmt"

	"feeScope/internal/model"
)

// ErrDecode matches every *DecodeError via errors.Is.
var ErrDecode = errors.New("decode log")

// DecodeError reports a log whose topics or payload could not be decoded.
// Callers skip the log and continue.
type DecodeError struct {
	Event string
	Log   model.LogRecord
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s log %s:%d: %v", e.Event, e.Log.TxHash, e.Log.LogIndex, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// Record converts the error into a JSONL row.
func (e *DecodeError) Record() model.DecodeError {
	return model.DecodeError{
		BlockNumber: e.Log.BlockNumber,
		TxHash:      e.Log.TxHash,
		LogIndex:    e.Log.LogIndex,
		Address:     e.Log.Address,
		Topic0:      e.Log.Topic0(),
		Event:       e.Event,
		Error:       e.Err.Error(),
	}
}

func decodeErr(event string, log model.LogRecord, err error) error {
	return &DecodeError{Event: event, Log: log, Err: err}
}
