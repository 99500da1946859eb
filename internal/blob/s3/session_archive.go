package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/alanyoungcy/polycopy/internal/domain"
)

// multipartThreshold is the archive size above which the upload switches to
// the multipart manager.
const multipartThreshold = 16 * 1024 * 1024

// archiveLine is one JSONL row; exactly one of Order or Outcome is set.
type archiveLine struct {
	Kind    string               `json:"kind"`
	Order   *domain.OrderRecord  `json:"order,omitempty"`
	Outcome *domain.TradeOutcome `json:"outcome,omitempty"`
}

// SessionArchive buffers the run's execution records in memory and uploads
// them as a single JSONL object when closed.
type SessionArchive struct {
	writer domain.BlobWriter
	key    string

	mu     sync.Mutex
	buf    bytes.Buffer
	lines  int
	closed bool
}

// NewSessionArchive creates an archive that uploads to
// <prefix>/<YYYY/MM/DD>/<runID>.jsonl.
func NewSessionArchive(writer domain.BlobWriter, prefix, runID string, started time.Time) *SessionArchive {
	if prefix == "" {
		prefix = "polycopy/sessions"
	}
	return &SessionArchive{
		writer: writer,
		key:    path.Join(prefix, started.UTC().Format("2006/01/02"), runID+".jsonl"),
	}
}

// Key returns the object key the archive uploads to.
func (a *SessionArchive) Key() string {
	return a.key
}

// RecordOrder buffers rec.
func (a *SessionArchive) RecordOrder(_ context.Context, rec domain.OrderRecord) error {
	return a.append(archiveLine{Kind: "order", Order: &rec})
}

// RecordOutcome buffers out.
func (a *SessionArchive) RecordOutcome(_ context.Context, out domain.TradeOutcome) error {
	return a.append(archiveLine{Kind: "outcome", Outcome: &out})
}

func (a *SessionArchive) append(line archiveLine) error {
	b, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("s3blob: marshal archive line: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("s3blob: archive %s already uploaded", a.key)
	}
	a.buf.Write(b)
	a.buf.WriteByte('\n')
	a.lines++
	return nil
}

// Close uploads the buffered records. An empty session uploads nothing.
// Records arriving after Close are rejected.
func (a *SessionArchive) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	data := bytes.Clone(a.buf.Bytes())
	lines := a.lines
	a.mu.Unlock()

	if lines == 0 {
		return nil
	}

	if len(data) > multipartThreshold {
		return a.writer.PutMultipart(ctx, a.key, bytes.NewReader(data), minPartSize)
	}
	return a.writer.Put(ctx, a.key, bytes.NewReader(data), "application/x-ndjson")
}

var _ domain.Recorder = (*SessionArchive)(nil)
