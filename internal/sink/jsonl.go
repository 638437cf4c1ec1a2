package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/amishk599/jobsieve/internal/model"
)

// JSONLSink appends one JSON object per record.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
}

var _ model.Sink = (*JSONLSink)(nil)

func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("jsonl sink: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("jsonl sink: %w", err)
	}
	return &JSONLSink{file: f}, nil
}

func (s *JSONLSink) Name() string { return "jsonl" }

func (s *JSONLSink) Write(_ context.Context, records []model.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.file)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("jsonl sink: %w", err)
		}
	}
	return nil
}

func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
