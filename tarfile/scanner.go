package tarfile

import (
	"errors"
	"io"
	"iter"
	"log/slog"
)

// Scanner walks the header blocks of an archive and decodes one Entry per
// header. It starts at offset 0 and only moves forward; rescanning needs a
// new Scanner. A Scanner is not safe for concurrent use.
type Scanner struct {
	src      HeaderSource
	pos      int64
	finished bool
	logger   *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithScanLogger sets the logger used for per-entry debug output.
func WithScanLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) { s.logger = logger }
}

// NewScanner returns a Scanner reading headers from src.
func NewScanner(src HeaderSource, opts ...ScannerOption) *Scanner {
	s := &Scanner{src: src}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scanner) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Offset returns the current scan position: the offset of the next header
// block, or the end of the terminator once the scan is complete.
func (s *Scanner) Offset() int64 {
	return s.pos
}

// Next decodes the header at the current position and advances past its
// payload. It returns io.EOF at the end of the archive. The first error is
// terminal: it is returned once and every later call returns io.EOF.
func (s *Scanner) Next() (*Entry, error) {
	if s.finished {
		return nil, io.EOF
	}

	buf, err := s.src.ReadBlock(s.pos)
	if err != nil {
		return s.fail(err)
	}

	if isZeroBlock(buf) {
		next, err := s.src.ReadBlock(s.pos + BLOCKSIZE)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return s.fail(NewMissingTerminatorError(s.pos))
			}
			return s.fail(err)
		}
		if !isZeroBlock(next) {
			return s.fail(NewMissingTerminatorError(s.pos))
		}
		s.pos += TERMINATOR_BLOCKS * BLOCKSIZE
		s.finished = true
		s.log().Debug("end of archive", "offset", s.pos)
		return nil, io.EOF
	}

	e, err := FromBuf(buf, s.pos)
	if err != nil {
		return s.fail(err)
	}
	s.pos = e.NextHeaderOffset()
	s.log().Debug("entry",
		"path", e.Path,
		"type", e.TypeName(),
		"header", e.HeaderOffset,
		"size", e.PayloadSize)
	return e, nil
}

func (s *Scanner) fail(err error) (*Entry, error) {
	s.finished = true
	s.log().Debug("scan failed", "offset", s.pos, "error", err)
	return nil, err
}

// All returns the remaining entries as a lazy sequence. A failure is
// yielded as the final pair with a nil Entry. Stopping the loop early just
// leaves the Scanner where it is.
func (s *Scanner) All() iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		for {
			e, err := s.Next()
			if err == io.EOF {
				return
			}
			if !yield(e, err) || err != nil {
				return
			}
		}
	}
}

// Scan returns the entries of the archive behind src, starting at offset 0.
func Scan(src HeaderSource) iter.Seq2[*Entry, error] {
	return NewScanner(src).All()
}

// Count returns the number of entries in the archive behind src.
func Count(src HeaderSource) (int, error) {
	n := 0
	for _, err := range Scan(src) {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
