package tarfile

import (
	"bufio"
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression types understood by Decompress.
const (
	COMP_AUTO = "auto"
	COMP_NONE = "tar"
	COMP_GZ   = "gz"
	COMP_BZ2  = "bz2"
	COMP_XZ   = "xz"
	COMP_ZST  = "zst"
)

var compressionMagic = []struct {
	comptype string
	magic    []byte
}{
	{COMP_GZ, []byte{0x1f, 0x8b}},
	{COMP_XZ, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{COMP_ZST, []byte{0x28, 0xb5, 0x2f, 0xfd}},
}

// A bzip2 stream starts with "BZh", the block size level and then either
// the first block's magic or, for an empty stream, the end-of-stream magic.
var (
	bzip2BlockMagic = []byte{0x31, 0x41, 0x59, 0x26, 0x53, 0x59}
	bzip2EndMagic   = []byte{0x17, 0x72, 0x45, 0x38, 0x50, 0x90}
)

func isBzip2(magic []byte) bool {
	if len(magic) < 10 || !bytes.HasPrefix(magic, []byte("BZh")) {
		return false
	}
	if magic[3] < '1' || magic[3] > '9' {
		return false
	}
	return bytes.Equal(magic[4:10], bzip2BlockMagic) || bytes.Equal(magic[4:10], bzip2EndMagic)
}

// DetectCompression guesses the compression type from the first bytes of a
// file. Anything unrecognised is treated as a plain archive.
func DetectCompression(magic []byte) string {
	for _, m := range compressionMagic {
		if bytes.HasPrefix(magic, m.magic) {
			return m.comptype
		}
	}
	if isBzip2(magic) {
		return COMP_BZ2
	}
	return COMP_NONE
}

// sniffCompression is DetectCompression for the first block of a file. A
// block that is a valid tar header wins over any magic number, since a
// member name can start with the same bytes.
func sniffCompression(head []byte) string {
	if looksLikeHeader(head) {
		return COMP_NONE
	}
	return DetectCompression(head)
}

// Decompress reads all of r through the decompressor for comptype and
// returns the plain archive bytes. COMP_AUTO sniffs the type first. A
// positive maxSize bounds the decompressed size.
func Decompress(r io.Reader, comptype string, maxSize int64) ([]byte, error) {
	if comptype == COMP_AUTO {
		br := bufio.NewReader(r)
		head, err := br.Peek(BLOCKSIZE)
		if err != nil && err != io.EOF {
			return nil, err
		}
		comptype = sniffCompression(head)
		r = br
	}
	dr, err := newDecompressor(r, comptype)
	if err != nil {
		return nil, err
	}
	data, err := inflate(dr, comptype, maxSize)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// inflate drains dr. On failure it also returns whatever was decompressed
// before the error.
func inflate(dr io.ReadCloser, comptype string, maxSize int64) ([]byte, error) {
	defer dr.Close()
	var src io.Reader = dr
	if maxSize > 0 {
		src = io.LimitReader(dr, maxSize+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return data, fmt.Errorf("tarfile: %s decompression: %w", comptype, err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return data, NewCompressionError(fmt.Sprintf("%s archive exceeds %d bytes once decompressed", comptype, maxSize))
	}
	return data, nil
}

func newDecompressor(r io.Reader, comptype string) (io.ReadCloser, error) {
	switch comptype {
	case COMP_NONE:
		return io.NopCloser(r), nil
	case COMP_GZ:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("tarfile: gzip reader: %w", err)
		}
		return gz, nil
	case COMP_BZ2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case COMP_XZ:
		xzReader, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("tarfile: xz reader: %w", err)
		}
		return io.NopCloser(xzReader), nil
	case COMP_ZST:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("tarfile: zstd reader: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return nil, NewCompressionError("unknown compression type " + comptype)
	}
}
