package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mgiraldo/eventscope/internal/event"
)

// File appends events to a path as JSON Lines, flushing after every event so
// a tailing consumer sees them promptly. A write failure is sticky: the sink
// keeps returning it rather than silently dropping later events.
type File struct {
	path string
	f    *os.File
	buf  *bufio.Writer
	err  error
}

// NewFile opens the destination for appending, creating it if needed.
func NewFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output file %s: %w", path, err)
	}
	return &File{path: path, f: f, buf: bufio.NewWriter(f)}, nil
}

func (s *File) Name() string {
	return "file"
}

func (s *File) Deliver(_ context.Context, ev event.LogEvent) error {
	if s.err != nil {
		return s.err
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return s.fail(fmt.Errorf("marshal event: %w", err))
	}
	if _, err := s.buf.Write(raw); err != nil {
		return s.fail(err)
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return s.fail(err)
	}
	if err := s.buf.Flush(); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *File) Close() error {
	if err := s.buf.Flush(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("flush %s: %w", s.path, err)
	}
	return s.f.Close()
}

func (s *File) fail(err error) error {
	s.err = fmt.Errorf("%w: %s: %v", ErrWriteFailed, s.path, err)
	return s.err
}
