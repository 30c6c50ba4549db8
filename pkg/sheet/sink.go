package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"
)

// Sink is the byte destination of a write job.
type Sink interface {
	// Exists reports whether the target already holds content that a job
	// should append to.
	Exists() (bool, error)
	// Open returns a writer positioned at the end of existing content when
	// appendMode is true, or at the start of a truncated target otherwise.
	Open(appendMode bool) (io.WriteCloser, error)
}

// FileSink writes to a file on the local filesystem.
type FileSink struct {
	Path string
	Perm fs.FileMode // 0644 when zero

	// Lock takes an exclusive advisory lock on the file for the lifetime of
	// the writer and fails fast when another process holds it. It is a no-op
	// on platforms without flock.
	Lock bool
}

// Exists stats the path. A missing file is not an error.
func (s *FileSink) Exists() (bool, error) {
	_, err := os.Stat(s.Path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, err
}

// Open opens the file for appending or truncates/creates it.
func (s *FileSink) Open(appendMode bool) (io.WriteCloser, error) {
	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}
	// Truncate only once the lock is held.
	flags := os.O_WRONLY | os.O_CREATE
	if appendMode {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(s.Path, flags, perm)
	if err != nil {
		return nil, err
	}
	if s.Lock {
		if err := lockFile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("lock %s: %w", s.Path, err)
		}
	}
	if !appendMode {
		if err := f.Truncate(0); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("truncate %s: %w", s.Path, err)
		}
	}
	return f, nil
}

// BufferSink is an in-memory Sink. The zero value is an empty, non-existent
// target; it exists after the first Open.
type BufferSink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	exists bool
}

// NewBufferSink returns a sink that already exists with the given content.
func NewBufferSink(content []byte) *BufferSink {
	s := &BufferSink{exists: true}
	s.buf.Write(content)
	return s
}

// Exists reports whether the buffer has been created.
func (s *BufferSink) Exists() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists, nil
}

// Open returns a writer over the buffer, clearing it unless appending.
func (s *BufferSink) Open(appendMode bool) (io.WriteCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !appendMode {
		s.buf.Reset()
	}
	s.exists = true
	return bufferWriter{s}, nil
}

// Bytes returns a copy of the current content.
func (s *BufferSink) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bytes.Clone(s.buf.Bytes())
}

type bufferWriter struct{ s *BufferSink }

func (w bufferWriter) Write(p []byte) (int, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	return w.s.buf.Write(p)
}

func (bufferWriter) Close() error { return nil }
