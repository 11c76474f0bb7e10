package sink

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Scrubbing wraps a sink and redacts registered secrets from messages and
// string attributes before they reach it. Placeholders are deterministic
// keyed BLAKE2b digests with a random per-sink key: the same secret scrubs
// to the same placeholder within a run, and placeholders cannot be
// correlated across runs.
type Scrubbing struct {
	next    Sink
	secrets []string
	key     []byte
}

// NewScrubbing builds a scrubbing wrapper around next. Empty secrets are
// ignored.
func NewScrubbing(next Sink, secrets ...string) (*Scrubbing, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("sink: generate scrub key: %w", err)
	}
	s := &Scrubbing{next: next, key: key}
	for _, secret := range secrets {
		if secret != "" {
			s.secrets = append(s.secrets, secret)
		}
	}
	return s, nil
}

// Emit scrubs and forwards one record.
func (s *Scrubbing) Emit(level Level, message string, attrs map[string]any) {
	if len(s.secrets) == 0 {
		s.next.Emit(level, message, attrs)
		return
	}
	message = s.scrub(message)
	if len(attrs) > 0 {
		clean := make(map[string]any, len(attrs))
		for k, v := range attrs {
			if str, ok := v.(string); ok {
				clean[k] = s.scrub(str)
			} else {
				clean[k] = v
			}
		}
		attrs = clean
	}
	s.next.Emit(level, message, attrs)
}

func (s *Scrubbing) scrub(text string) string {
	for _, secret := range s.secrets {
		if strings.Contains(text, secret) {
			text = strings.ReplaceAll(text, secret, s.placeholder(secret))
		}
	}
	return text
}

// placeholder hashes the secret with the per-sink key. Fixed length, no
// information about the secret's length.
func (s *Scrubbing) placeholder(secret string) string {
	h, err := blake2b.New256(s.key)
	if err != nil {
		return "<REDACTED>"
	}
	h.Write([]byte(secret))
	digest := h.Sum(nil)
	return "<REDACTED:" + base64.RawURLEncoding.EncodeToString(digest[:8]) + ">"
}
