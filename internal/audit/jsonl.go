package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/MichaelMishaev/rbac-hierarchy-sub008/internal/model"
)

// JSONLSink appends one JSON object per line to a file. The file is only
// ever appended to.
type JSONLSink struct {
	path string
	mu   sync.Mutex
}

// NewJSONLSink creates the parent directory of path if needed.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}
	return &JSONLSink{path: path}, nil
}

// AppendAudit implements Sink.
func (s *JSONLSink) AppendAudit(_ context.Context, entry model.AuditEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening audit log %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("writing audit log %s: %w", s.path, err)
	}
	return f.Sync()
}
