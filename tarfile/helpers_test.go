package tarfile

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testMember struct {
	name     string
	size     int
	typeflag byte
}

// buildArchive writes members with archive/tar in USTAR format.
func buildArchive(t *testing.T, members ...testMember) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, m := range members {
		typeflag := m.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}
		hdr := &tar.Header{
			Name:     m.name,
			Mode:     0o644,
			Size:     int64(m.size),
			ModTime:  time.Unix(1700000000, 0),
			Typeflag: typeflag,
			Format:   tar.FormatUSTAR,
		}
		if typeflag == tar.TypeSymlink {
			hdr.Linkname = "target"
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if m.size > 0 {
			_, err := tw.Write(bytes.Repeat([]byte{'x'}, m.size))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// rawHeader builds a header block with only name, size and typeflag set.
func rawHeader(name, size string, typeflag byte) []byte {
	b := make([]byte, BLOCKSIZE)
	copy(b[OFFSET_NAME:], name)
	copy(b[OFFSET_SIZE:], size)
	b[OFFSET_TYPEFLAG] = typeflag
	return b
}

func zeroBlocks(n int) []byte {
	return make([]byte, n*BLOCKSIZE)
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

// testSources returns every HeaderSource implementation over data.
func testSources(t *testing.T, data []byte) map[string]HeaderSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.tar")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	mapped, err := NewMappedSource(f)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mapped.Close() })

	return map[string]HeaderSource{
		"stream": NewStreamSource(bytes.NewReader(data)),
		"buffer": NewBufferSource(data),
		"mapped": mapped,
	}
}

// collect drains a scan and returns its entries and terminal error.
func collect(src HeaderSource) ([]*Entry, error) {
	var entries []*Entry
	for e, err := range Scan(src) {
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}
