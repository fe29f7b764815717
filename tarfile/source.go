package tarfile

import (
	"io"
)

// HeaderSource supplies the raw header block at a block-aligned offset.
//
// The returned slice is only valid until the next call to ReadBlock, as
// implementations may reuse its storage. Callers extract or copy what they
// need before asking for another block.
type HeaderSource interface {
	ReadBlock(offset int64) ([]byte, error)
}

// StreamSource reads header blocks from a seekable stream into a single
// scratch buffer that is reused across calls. Every call moves the stream
// cursor, so the stream must not be read by anything else during a scan.
type StreamSource struct {
	rs  io.ReadSeeker
	buf [BLOCKSIZE]byte
}

// NewStreamSource creates a StreamSource over rs. Offsets passed to
// ReadBlock are absolute positions in rs.
func NewStreamSource(rs io.ReadSeeker) *StreamSource {
	return &StreamSource{rs: rs}
}

// ReadBlock seeks to offset and reads exactly one block.
func (s *StreamSource) ReadBlock(offset int64) ([]byte, error) {
	if offset < 0 {
		return nil, NewReadError(offset, "negative block offset", nil)
	}
	if _, err := s.rs.Seek(offset, io.SeekStart); err != nil {
		return nil, NewReadError(offset, "seek failed", err)
	}
	if _, err := io.ReadFull(s.rs, s.buf[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, NewReadError(offset, "short block read", err)
	}
	return s.buf[:], nil
}

// BufferSource serves header blocks straight out of a resident byte slice.
// ReadBlock neither copies nor allocates.
type BufferSource struct {
	data []byte
}

// NewBufferSource creates a BufferSource over data. data must not be
// modified while a scan is running.
func NewBufferSource(data []byte) *BufferSource {
	return &BufferSource{data: data}
}

// ReadBlock returns data[offset:offset+BLOCKSIZE]. The slice has its
// capacity clipped so appends cannot write into the following block.
func (b *BufferSource) ReadBlock(offset int64) ([]byte, error) {
	if offset < 0 || offset > int64(len(b.data))-BLOCKSIZE {
		return nil, NewReadError(offset, "block out of range", io.ErrUnexpectedEOF)
	}
	return b.data[offset : offset+BLOCKSIZE : offset+BLOCKSIZE], nil
}

// Len returns the size of the underlying data.
func (b *BufferSource) Len() int64 {
	return int64(len(b.data))
}

// residentBytes is implemented by stores that already hold their whole
// content contiguously in memory.
type residentBytes interface {
	Bytes() []byte
}

// NewSource picks a HeaderSource for rs. Stores exposing their content
// through a Bytes method get the zero-copy BufferSource, anything else is
// read through a StreamSource.
func NewSource(rs io.ReadSeeker) HeaderSource {
	if rb, ok := rs.(residentBytes); ok {
		return NewBufferSource(rb.Bytes())
	}
	return NewStreamSource(rs)
}
