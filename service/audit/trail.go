package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/taskvault/internal/clock"
	"github.com/viant/taskvault/model/task"
)

// Record is one audit trail entry describing a task transition or failure.
type Record struct {
	Time        time.Time              `json:"time"`
	Event       string                 `json:"event"`
	TaskID      string                 `json:"taskId,omitempty"`
	Integration string                 `json:"integration,omitempty"`
	From        task.State             `json:"from,omitempty"`
	To          task.State             `json:"to,omitempty"`
	Actor       string                 `json:"actor,omitempty"`
	Detail      map[string]interface{} `json:"detail,omitempty"`
}

// Trail appends sanitized records to day-scoped files under the vault's Logs
// folder.
type Trail struct {
	logsURL string
	fs      afs.Service
	mu      sync.Mutex
}

// NewTrail creates an audit trail writing under logsURL.
func NewTrail(logsURL string, fs afs.Service) *Trail {
	if fs == nil {
		fs = afs.New()
	}
	return &Trail{logsURL: logsURL, fs: fs}
}

// Append sanitizes the record and appends it to the current day's trail file
// as one JSON line.
func (t *Trail) Append(ctx context.Context, record *Record) error {
	if record == nil {
		return nil
	}
	if record.Time.IsZero() {
		record.Time = clock.Now()
	}
	record.Detail, _ = Sanitize(record.Detail).(map[string]interface{})

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fileURL := path.Join(t.logsURL, fmt.Sprintf("audit-%s.log", record.Time.Format("2006-01-02")))
	var buffer bytes.Buffer
	if exists, _ := t.fs.Exists(ctx, fileURL); exists {
		existing, err := t.fs.DownloadWithURL(ctx, fileURL)
		if err != nil {
			return fmt.Errorf("failed to read audit file %s: %w", fileURL, err)
		}
		buffer.Write(existing)
	}
	buffer.Write(data)
	buffer.WriteByte('\n')
	if err = t.fs.Upload(ctx, fileURL, file.DefaultFileOsMode, &buffer); err != nil {
		return fmt.Errorf("failed to write audit file %s: %w", fileURL, err)
	}
	return nil
}
