package storage

import "fmt"

// PersistenceError reports a failed write. The run logs it and continues.
type PersistenceError struct {
	Sink string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("persist %s: %v", e.Sink, e.Err)
	}
	return fmt.Sprintf("persist %s to %s: %v", e.Sink, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
