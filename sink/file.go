package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// record is the NDJSON line layout of the file sink.
type record struct {
	Timestamp int64          `json:"ts"` // Unix milliseconds
	Level     string         `json:"lvl"`
	Message   string         `json:"msg"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// FileSink appends one JSON record per line to a file. Writes are
// serialized; a Close flushes everything to disk.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	gz   *gzip.Writer
	enc  *json.Encoder
	now  func() time.Time
}

// FileOption configures a FileSink.
type FileOption func(*FileSink)

// WithGzip compresses the stream. The file is only a valid gzip stream
// after Close.
func WithGzip() FileOption {
	return func(s *FileSink) {
		s.gz = gzip.NewWriter(s.file)
		s.enc = json.NewEncoder(s.gz)
	}
}

// NewFile opens (appending) or creates the record file at path.
func NewFile(path string, opts ...FileOption) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: open %s: %w", path, err)
	}
	s := &FileSink{file: f, enc: json.NewEncoder(f), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Emit writes one NDJSON record. Encoding failures degrade to a plain
// record without attributes rather than dropping the line.
func (s *FileSink) Emit(level Level, message string, attrs map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := record{
		Timestamp: s.now().UnixMilli(),
		Level:     level.String(),
		Message:   message,
		Attrs:     attrs,
	}
	if err := s.enc.Encode(rec); err != nil {
		rec.Attrs = map[string]any{"encode_error": err.Error()}
		_ = s.enc.Encode(rec)
	}
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gz != nil {
		if err := s.gz.Close(); err != nil {
			s.file.Close()
			return err
		}
	}
	return s.file.Close()
}
