package model

// Checkpoint is the resumable state of a build-phase scan.
type Checkpoint struct {
	LastProcessedBlock uint64       `json:"last_processed_block"`
	FailedWindows      []ScanWindow `json:"failed_windows,omitempty"`
	UpdatedAt          string       `json:"updated_at"`
}
