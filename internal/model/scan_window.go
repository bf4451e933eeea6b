package model

// WindowStatus is the lifecycle state of a ScanWindow.
type WindowStatus string

const (
	WindowPending   WindowStatus = "pending"
	WindowCompleted WindowStatus = "completed"
	WindowFailed    WindowStatus = "failed"
)

// ScanWindow is a closed block interval fetched as one log query.
type ScanWindow struct {
	From   uint64       `json:"from"`
	To     uint64       `json:"to"`
	Status WindowStatus `json:"status"`
	Logs   int          `json:"logs"`
	Err    string       `json:"error,omitempty"`
}

// Blocks returns the number of blocks covered by the window.
func (w ScanWindow) Blocks() uint64 {
	if w.To < w.From {
		return 0
	}
	return w.To - w.From + 1
}
