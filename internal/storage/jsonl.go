package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"feeScope/internal/model"
)

// DecodeErrorLog appends skipped-log records to a JSONL file.
type DecodeErrorLog struct {
	path string
	mu   sync.Mutex
}

func NewDecodeErrorLog(path string) *DecodeErrorLog {
	return &DecodeErrorLog{path: path}
}

// PutDecodeErrors appends a batch of records as JSON lines.
func (s *DecodeErrorLog) PutDecodeErrors(records []model.DecodeError) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.append(records); err != nil {
		return &PersistenceError{Sink: "decode errors", Path: s.path, Err: err}
	}
	return nil
}

func (s *DecodeErrorLog) append(records []model.DecodeError) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal decode error: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write decode error: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
