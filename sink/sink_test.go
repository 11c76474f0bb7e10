package sink

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
)

// capture collects emitted records for assertions.
type capture struct {
	levels   []Level
	messages []string
	attrs    []map[string]any
}

func (c *capture) Emit(level Level, message string, attrs map[string]any) {
	c.levels = append(c.levels, level)
	c.messages = append(c.messages, message)
	c.attrs = append(c.attrs, attrs)
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warn", LevelWarn, true},
		{"error", LevelError, true},
		{"fatal", LevelFatal, true},
		{"verbose", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("ParseLevel(%q) error = %v, want ok=%v", tc.in, err, tc.ok)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLevelStringRoundTrip(t *testing.T) {
	for l := LevelDebug; l <= LevelFatal; l++ {
		got, err := ParseLevel(l.String())
		if err != nil {
			t.Fatalf("%v: %v", l, err)
		}
		if got != l {
			t.Fatalf("round trip of %v gave %v", l, got)
		}
	}
}

func TestMultiFansOut(t *testing.T) {
	var first, second capture
	m := Multi(&first, &second)
	m.Emit(LevelInfo, "hello", map[string]any{"k": 1})

	for _, c := range []*capture{&first, &second} {
		if diff := cmp.Diff([]string{"hello"}, c.messages); diff != "" {
			t.Fatalf("messages mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestScrubbingNeverLeaksSecrets(t *testing.T) {
	var out capture
	s, err := NewScrubbing(&out, "hunter2", "tok-abc")
	if err != nil {
		t.Fatalf("scrubbing: %v", err)
	}

	s.Emit(LevelWarn, "password hunter2 sent with tok-abc", map[string]any{
		"token":  "tok-abc",
		"count":  3,
		"nested": "prefix hunter2 suffix",
	})

	if len(out.messages) != 1 {
		t.Fatalf("want 1 record, got %d", len(out.messages))
	}
	leaked := out.messages[0]
	for _, v := range out.attrs[0] {
		if str, ok := v.(string); ok {
			leaked += " " + str
		}
	}
	for _, secret := range []string{"hunter2", "tok-abc"} {
		if strings.Contains(leaked, secret) {
			t.Fatalf("secret %q leaked: %q", secret, leaked)
		}
	}
	if !strings.Contains(out.messages[0], "<REDACTED:") {
		t.Fatalf("placeholder missing from %q", out.messages[0])
	}
	if out.attrs[0]["count"] != 3 {
		t.Fatal("non-string attribute must pass through unchanged")
	}
}

func TestScrubbingIsDeterministicPerSink(t *testing.T) {
	var out capture
	s, err := NewScrubbing(&out, "hunter2")
	if err != nil {
		t.Fatalf("scrubbing: %v", err)
	}
	s.Emit(LevelInfo, "hunter2", nil)
	s.Emit(LevelInfo, "hunter2", nil)
	if out.messages[0] != out.messages[1] {
		t.Fatalf("same secret scrubbed differently: %q vs %q", out.messages[0], out.messages[1])
	}
}

func TestFileSinkWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.ndjson")
	s, err := NewFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Emit(LevelInfo, "first", map[string]any{"n": 1})
	s.Emit(LevelError, "second", nil)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()

	var records []record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		records = append(records, rec)
	}
	if len(records) != 2 {
		t.Fatalf("want 2 records, got %d", len(records))
	}
	if records[0].Message != "first" || records[0].Level != "info" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[1].Message != "second" || records[1].Level != "error" {
		t.Fatalf("unexpected second record: %+v", records[1])
	}
}

func TestFileSinkGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.ndjson.gz")
	s, err := NewFile(path, WithGzip())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.Emit(LevelInfo, "compressed", nil)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip: %v", err)
	}
	var rec record
	if err := json.NewDecoder(gz).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Message != "compressed" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
