package indexer

import "fmt"

// TransportError reports a window whose logs could not be fetched after all
// retries. The window is marked failed and the scan moves on.
type TransportError struct {
	From uint64
	To   uint64
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch logs [%d, %d]: %v", e.From, e.To, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
