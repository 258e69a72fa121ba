// Package audit appends transcript entries to a JSONL file so sessions can
// be reviewed after the fact.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/miniheartx/heartx/pkg/bus"
	"github.com/miniheartx/heartx/pkg/logger"
	"github.com/miniheartx/heartx/pkg/session"
)

// Buffer writes so the translation path never blocks on slow filesystems.
const queueSize = 256

// Record is one line of the transcript file.
type Record struct {
	RecordedAt time.Time `json:"recorded_at"`
	// Source is "console" or "service".
	Source string `json:"source"`
	session.Entry
}

// JSONLSink appends records as JSONL from a single writer goroutine.
type JSONLSink struct {
	path  string
	queue chan []byte
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
	now    func() time.Time
}

func NewJSONLSink(path string) (*JSONLSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	s := &JSONLSink{
		path:  path,
		queue: make(chan []byte, queueSize),
		done:  make(chan struct{}),
		now:   time.Now,
	}
	go s.writeLoop()
	return s, nil
}

func (s *JSONLSink) Path() string {
	return s.path
}

// Write queues e. When the queue is full the oldest pending line is dropped.
func (s *JSONLSink) Write(source string, e session.Entry) error {
	line, err := encodeRecord(Record{RecordedAt: s.now().UTC(), Source: source, Entry: e})
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("transcript sink closed")
	}

	select {
	case s.queue <- line:
		return nil
	default:
	}

	select {
	case <-s.queue:
	default:
	}
	select {
	case s.queue <- line:
	default:
	}
	return nil
}

// encodeRecord renders one newline-terminated line. Commands carry
// placeholders like <target>, so HTML escaping stays off.
func encodeRecord(r Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close flushes queued lines and stops the writer.
func (s *JSONLSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

func (s *JSONLSink) writeLoop() {
	defer close(s.done)
	for line := range s.queue {
		if err := s.appendLine(line); err != nil {
			logger.WarnCF("audit", "Transcript write failed", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
	}
}

func (s *JSONLSink) appendLine(line []byte) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.Write(line)
	return err
}

// Follow writes every entry published on b until b closes or ctx ends,
// then writes whatever was still buffered.
func Follow(ctx context.Context, b *bus.EntryBus, s *JSONLSink, source string) {
	for {
		e, ok := b.Consume(ctx)
		if !ok {
			break
		}
		_ = s.Write(source, e)
	}
	for _, e := range b.Drain() {
		_ = s.Write(source, e)
	}
}
