package tarfile

import (
	"bytes"
	"errors"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrClosed is returned by operations on a closed TarFile.
var ErrClosed = errors.New("tarfile: TarFile is closed")

// TarFile ties an opened archive to the HeaderSource strategy that fits
// its backing store. It is not safe for concurrent use; concurrent scans of
// the same archive need one TarFile each.
type TarFile struct {
	Name        string // Absolute path of the archive, if known
	Compression string // Compression type, resolved after opening
	Mmap        bool   // Map regular files into memory instead of streaming
	RegularOnly bool   // Restrict GetMembers, GetNames and Count to regular files
	MaxSize     int64  // Upper bound on the decompressed size, 0 for none

	logger *slog.Logger
	file   *os.File // Owned file, closed by Close
	mapped *MappedSource
	source HeaderSource
	closed bool
}

// TarFileOption defines options for Open and NewTarFile.
type TarFileOption func(*TarFile)

// WithLogger sets the logger. If nil, a discard logger is used.
func WithLogger(logger *slog.Logger) TarFileOption {
	return func(tf *TarFile) { tf.logger = logger }
}

// WithMmap enables or disables memory-mapping of regular files.
func WithMmap(enabled bool) TarFileOption {
	return func(tf *TarFile) { tf.Mmap = enabled }
}

// WithCompression sets the compression type, one of the COMP_ constants.
func WithCompression(comptype string) TarFileOption {
	return func(tf *TarFile) { tf.Compression = comptype }
}

// WithRegularOnly restricts member listings and counts to regular files.
func WithRegularOnly(enabled bool) TarFileOption {
	return func(tf *TarFile) { tf.RegularOnly = enabled }
}

// WithMaxSize caps how large a compressed archive may grow once
// decompressed. Zero or less disables the cap.
func WithMaxSize(n int64) TarFileOption {
	return func(tf *TarFile) { tf.MaxSize = n }
}

func newTarFile(opts []TarFileOption) *TarFile {
	tf := &TarFile{
		Compression: COMP_AUTO,
		Mmap:        true,
	}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// Open opens the archive at name.
func Open(name string, opts ...TarFileOption) (*TarFile, error) {
	tf := newTarFile(opts)
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	tf.Name = abs

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	tf.file = f
	if err := tf.init(f); err != nil {
		tf.Close()
		return nil, err
	}
	return tf, nil
}

// NewTarFile wraps an already opened store positioned at the start of the
// archive. The caller keeps ownership of rs.
func NewTarFile(rs io.ReadSeeker, opts ...TarFileOption) (*TarFile, error) {
	tf := newTarFile(opts)
	if n, ok := rs.(interface{ Name() string }); ok {
		tf.Name = n.Name()
	}
	if err := tf.init(rs); err != nil {
		tf.Close()
		return nil, err
	}
	return tf, nil
}

// NewTarFileBytes wraps an archive already held in memory. Plain archives
// are scanned in place through a BufferSource, without copying headers.
func NewTarFileBytes(data []byte, opts ...TarFileOption) (*TarFile, error) {
	return NewTarFile(&memStore{Reader: bytes.NewReader(data), data: data}, opts...)
}

// memStore is a bytes.Reader that exposes its content to NewSource.
type memStore struct {
	*bytes.Reader
	data []byte
}

func (m *memStore) Bytes() []byte { return m.data }

func (tf *TarFile) log() *slog.Logger {
	if tf.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return tf.logger
}

func (tf *TarFile) init(rs io.ReadSeeker) error {
	sniffed := tf.Compression == COMP_AUTO
	if sniffed {
		head := make([]byte, BLOCKSIZE)
		n, err := io.ReadFull(rs, head)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return NewReadError(0, "reading first block", err)
		}
		tf.Compression = sniffCompression(head[:n])
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return NewReadError(0, "seek failed", err)
		}
	}

	log := tf.log().With("archive", tf.Name)
	if tf.Compression != COMP_NONE {
		done, err := tf.decompress(rs, sniffed, log)
		if done || err != nil {
			return err
		}
	}

	if f, ok := rs.(*os.File); ok && tf.Mmap {
		m, err := NewMappedSource(f)
		if err == nil {
			log.Debug("using mapped source", "size", m.Len())
			tf.mapped = m
			tf.source = m
			return nil
		}
		log.Debug("mmap unavailable, streaming", "error", err)
	}

	tf.source = NewSource(rs)
	switch tf.source.(type) {
	case *BufferSource:
		log.Debug("using resident buffer source")
	default:
		log.Debug("using stream source")
	}
	return nil
}

// decompress loads the whole decompressed archive into a BufferSource. When
// the type was sniffed and the decompressor rejects the very first bytes,
// the magic number was a coincidence: the store is rewound and done is
// false so it gets scanned as a plain archive.
func (tf *TarFile) decompress(rs io.ReadSeeker, sniffed bool, log *slog.Logger) (done bool, err error) {
	dr, err := newDecompressor(rs, tf.Compression)
	var data []byte
	if err == nil {
		data, err = inflate(dr, tf.Compression, tf.MaxSize)
	}
	if err != nil {
		if !sniffed || len(data) > 0 {
			return false, err
		}
		log.Debug("not compressed after all, scanning as plain archive",
			"compression", tf.Compression, "error", err)
		tf.Compression = COMP_NONE
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return false, NewReadError(0, "seek failed", err)
		}
		return false, nil
	}
	log.Debug("decompressed archive", "compression", tf.Compression, "size", len(data))
	tf.source = NewBufferSource(data)
	return true, nil
}

// Entries returns a fresh scan of the archive from offset 0.
func (tf *TarFile) Entries() iter.Seq2[*Entry, error] {
	if tf.closed {
		return func(yield func(*Entry, error) bool) {
			yield(nil, ErrClosed)
		}
	}
	return NewScanner(tf.source, WithScanLogger(tf.log().With("archive", tf.Name))).All()
}

// GetMembers scans the archive and returns its entries in archive order.
// On failure the entries decoded before the error are returned with it.
func (tf *TarFile) GetMembers() ([]*Entry, error) {
	var members []*Entry
	for e, err := range tf.Entries() {
		if err != nil {
			return members, err
		}
		if tf.RegularOnly && !e.IsRegularFile() {
			continue
		}
		members = append(members, e)
	}
	return members, nil
}

// GetNames returns the paths of all members.
func (tf *TarFile) GetNames() ([]string, error) {
	members, err := tf.GetMembers()
	names := make([]string, len(members))
	for i, m := range members {
		names[i] = m.Path
	}
	return names, err
}

// Count returns the number of members without retaining them.
func (tf *TarFile) Count() (int, error) {
	n := 0
	for e, err := range tf.Entries() {
		if err != nil {
			return n, err
		}
		if tf.RegularOnly && !e.IsRegularFile() {
			continue
		}
		n++
	}
	return n, nil
}

// Close releases the mapping and the file opened by Open. Entries obtained
// from a mapped archive stay valid; raw blocks do not.
func (tf *TarFile) Close() error {
	if tf.closed {
		return nil
	}
	tf.closed = true
	var errs []error
	if tf.mapped != nil {
		errs = append(errs, tf.mapped.Close())
		tf.mapped = nil
	}
	if tf.file != nil {
		errs = append(errs, tf.file.Close())
		tf.file = nil
	}
	tf.source = nil
	return errors.Join(errs...)
}
