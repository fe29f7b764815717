package tarfile

import (
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Entry is the metadata of a single archive member as decoded from its
// header block. Payload bytes are never read.
type Entry struct {
	Path          string // Name field, up to the first NUL
	HeaderOffset  int64  // Offset of the header block in the archive
	PayloadOffset int64  // Offset of the first payload byte (HeaderOffset + BLOCKSIZE)
	PayloadSize   int64  // Payload length in bytes
	Type          byte   // Raw typeflag byte
}

// FromBuf decodes the header block buf found at offset. Only the name,
// size and typeflag fields are interpreted.
func FromBuf(buf []byte, offset int64) (*Entry, error) {
	if len(buf) != BLOCKSIZE {
		return nil, NewReadError(offset, "truncated header", io.ErrUnexpectedEOF)
	}

	name, ok := nts(buf[OFFSET_NAME : OFFSET_NAME+LENGTH_NAME])
	if !ok {
		return nil, NewInvalidPathError(offset, "name field is not NUL-terminated")
	}
	if !utf8.Valid(name) {
		return nil, NewInvalidEncodingError(offset, fmt.Sprintf("name %q is not valid UTF-8", name))
	}

	size, err := nti(buf[OFFSET_SIZE : OFFSET_SIZE+LENGTH_SIZE])
	if err != nil {
		return nil, NewInvalidSizeError(offset, err.Error())
	}
	payloadOffset := offset + BLOCKSIZE
	// A 12-digit octal size stays below 2^36, so this only fires for
	// headers found near the top of the int64 range.
	if size > math.MaxInt64-payloadOffset-(BLOCKSIZE-1) {
		return nil, NewInvalidSizeError(offset, fmt.Sprintf("size %d exceeds addressable range", size))
	}

	return &Entry{
		Path:          string(name),
		HeaderOffset:  offset,
		PayloadOffset: payloadOffset,
		PayloadSize:   size,
		Type:          buf[OFFSET_TYPEFLAG],
	}, nil
}

// RawFilePosition returns the offset of the payload within the archive.
func (e *Entry) RawFilePosition() int64 {
	return e.PayloadOffset
}

// Size returns the payload size in bytes.
func (e *Entry) Size() int64 {
	return e.PayloadSize
}

// Blocks returns the number of blocks the padded payload occupies.
func (e *Entry) Blocks() int64 {
	return paddedSize(e.PayloadSize) / BLOCKSIZE
}

// NextHeaderOffset returns where the following header block starts.
func (e *Entry) NextHeaderOffset() int64 {
	return e.PayloadOffset + paddedSize(e.PayloadSize)
}

// IsRegularFile reports whether the typeflag marks a regular file ('0' or NUL).
func (e *Entry) IsRegularFile() bool {
	return e.Type == REGTYPE || e.Type == AREGTYPE
}

// IsDir returns true if the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Type == DIRTYPE
}

// IsSym returns true if the entry is a symbolic link.
func (e *Entry) IsSym() bool {
	return e.Type == SYMTYPE
}

// IsLnk returns true if the entry is a hard link.
func (e *Entry) IsLnk() bool {
	return e.Type == LNKTYPE
}

// TypeName returns a short name for the typeflag, or the flag itself
// quoted when it is not a classic type.
func (e *Entry) TypeName() string {
	if name, ok := typeNames[e.Type]; ok {
		return name
	}
	return fmt.Sprintf("%q", e.Type)
}

func (e *Entry) String() string {
	return fmt.Sprintf("<Entry %q %s at %d size %d>", e.Path, e.TypeName(), e.HeaderOffset, e.PayloadSize)
}
