package cty

import (
	"bytes"
	"errors"
	"io"
)

// ChunkSource delivers a byte stream as a sequence of chunks.
// Next returns io.EOF once the stream is exhausted. The returned slice is
// only valid until the following call.
type ChunkSource interface {
	Next() ([]byte, error)
	Close() error
}

// LineScanner splits a ChunkSource into lines. LF and CRLF terminators are
// removed, including a CRLF split across two chunks. A non-empty trailing
// line without terminator is returned before the scanner stops.
//
// Usage mirrors bufio.Scanner:
//
//	for s.Scan() {
//	    line := s.Text()
//	}
//	if err := s.Err(); err != nil { ... }
type LineScanner struct {
	src     ChunkSource
	maxLen  int
	pending []byte
	eof     bool
	line    string
	n       int
	err     error
}

// NewLineScanner returns a scanner reading from src. maxLen limits the
// length of a single line; zero means unlimited.
func NewLineScanner(src ChunkSource, maxLen int) *LineScanner {
	return &LineScanner{src: src, maxLen: maxLen}
}

// Scan advances to the next line. It returns false at end of stream or on error.
func (s *LineScanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			if !s.emit(s.pending[:i]) {
				return false
			}
			s.pending = s.pending[i+1:]
			return true
		}
		if s.eof {
			if len(s.pending) == 0 {
				return false
			}
			if !s.emit(s.pending) {
				return false
			}
			s.pending = nil
			return true
		}
		// One extra byte leaves room for the CR of a CRLF split across chunks.
		if s.maxLen > 0 && len(s.pending) > s.maxLen+1 {
			s.err = ErrLineTooLong
			return false
		}

		chunk, err := s.src.Next()
		if len(chunk) > 0 {
			if len(s.pending) == 0 {
				s.pending = append(s.pending[:0], chunk...)
			} else {
				s.pending = append(s.pending, chunk...)
			}
		}
		if errors.Is(err, io.EOF) {
			s.eof = true
		} else if err != nil {
			s.err = err
			return false
		}
	}
}

// emit sets the current line from b, minus a trailing CR. It fails with
// ErrLineTooLong when the line exceeds maxLen.
func (s *LineScanner) emit(b []byte) bool {
	b = bytes.TrimSuffix(b, []byte{'\r'})
	if s.maxLen > 0 && len(b) > s.maxLen {
		s.err = ErrLineTooLong
		return false
	}
	s.line = string(b)
	s.n++
	return true
}

// Text returns the most recent line.
func (s *LineScanner) Text() string { return s.line }

// LineNumber returns the 1-based number of the most recent line.
func (s *LineScanner) LineNumber() int { return s.n }

// Err returns the first non-EOF error encountered.
func (s *LineScanner) Err() error { return s.err }
