package model

// DecodeError records a decode failure for a single skipped log.
type DecodeError struct {
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Event       string `json:"event"`
	Error       string `json:"error"`
}
