package tarfile

import (
	"archive/tar"
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func sampleArchive(t *testing.T) []byte {
	return buildArchive(t,
		testMember{name: "docs/", typeflag: tar.TypeDir},
		testMember{name: "docs/a.txt", size: 4},
		testMember{name: "docs/link", typeflag: tar.TypeSymlink},
		testMember{name: "docs/b.txt", size: 1000},
	)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	data := sampleArchive(t)
	path := writeTemp(t, "sample.tar", data)

	for _, mmap := range []bool{true, false} {
		tf, err := Open(path, WithMmap(mmap))
		require.NoError(t, err)

		assert.Equal(t, COMP_NONE, tf.Compression)
		assert.True(t, filepath.IsAbs(tf.Name))
		if mmap {
			assert.IsType(t, &MappedSource{}, tf.source)
		} else {
			assert.IsType(t, &StreamSource{}, tf.source)
		}

		names, err := tf.GetNames()
		require.NoError(t, err)
		assert.Equal(t, []string{"docs/", "docs/a.txt", "docs/link", "docs/b.txt"}, names)

		// Every scan starts over from offset 0.
		n, err := tf.Count()
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		require.NoError(t, tf.Close())
		require.NoError(t, tf.Close())
	}
}

func TestOpenRegularOnly(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "sample.tar", sampleArchive(t))
	tf, err := Open(path, WithRegularOnly(true))
	require.NoError(t, err)
	defer tf.Close()

	members, err := tf.GetMembers()
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "docs/a.txt", members[0].Path)
	assert.Equal(t, int64(512), members[0].HeaderOffset)
	assert.Equal(t, "docs/b.txt", members[1].Path)

	n, err := tf.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOpenCompressed(t *testing.T) {
	t.Parallel()

	data := sampleArchive(t)
	path := writeTemp(t, "sample.tar.zst", compressWith(t, COMP_ZST, data))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tf, err := Open(path, WithLogger(logger))
	require.NoError(t, err)
	defer tf.Close()

	assert.Equal(t, COMP_ZST, tf.Compression)
	assert.IsType(t, &BufferSource{}, tf.source)

	members, err := tf.GetMembers()
	require.NoError(t, err)
	require.Len(t, members, 4)
	assert.Equal(t, int64(2048+512), members[3].PayloadOffset)

	assert.Contains(t, logs.String(), "decompressed archive")
	assert.Contains(t, logs.String(), "end of archive")
}

func TestOpenMemberNamedLikeMagic(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"BZh.txt", "BZh91AY&SY.txt"} {
		path := writeTemp(t, "plain.tar", buildArchive(t, testMember{name: name, size: 4}))
		for _, mmap := range []bool{true, false} {
			tf, err := Open(path, WithMmap(mmap))
			require.NoError(t, err, name)

			assert.Equal(t, COMP_NONE, tf.Compression, name)
			names, err := tf.GetNames()
			require.NoError(t, err, name)
			assert.Equal(t, []string{name}, names)
			require.NoError(t, tf.Close())
		}
	}
}

func TestNewTarFileFallsBackToPlain(t *testing.T) {
	t.Parallel()

	// No ustar magic and no checksum, so only the failing decompressor
	// shows this is not bzip2.
	data := concat(rawHeader("BZh91AY&SY.txt", "0", REGTYPE), zeroBlocks(2))
	require.Equal(t, COMP_BZ2, sniffCompression(data))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tf, err := NewTarFileBytes(data, WithLogger(logger))
	require.NoError(t, err)
	defer tf.Close()

	assert.Equal(t, COMP_NONE, tf.Compression)
	names, err := tf.GetNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"BZh91AY&SY.txt"}, names)
	assert.Contains(t, logs.String(), "scanning as plain archive")

	// An explicit type is never second-guessed.
	_, err = NewTarFileBytes(data, WithCompression(COMP_BZ2))
	assert.ErrorContains(t, err, "bz2 decompression")
}

func TestOpenMaxSize(t *testing.T) {
	t.Parallel()

	data := sampleArchive(t)
	path := writeTemp(t, "sample.tar.zst", compressWith(t, COMP_ZST, data))

	_, err := Open(path, WithMaxSize(int64(len(data)/2)))
	var ce *CompressionError
	require.ErrorAs(t, err, &ce)

	tf, err := Open(path, WithMaxSize(int64(len(data))))
	require.NoError(t, err)
	defer tf.Close()
	n, err := tf.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestNewTarFileBytes(t *testing.T) {
	t.Parallel()

	data := sampleArchive(t)
	tf, err := NewTarFileBytes(data)
	require.NoError(t, err)
	defer tf.Close()

	require.IsType(t, &BufferSource{}, tf.source)
	blk, err := tf.source.ReadBlock(0)
	require.NoError(t, err)
	assert.Same(t, &data[0], &blk[0])

	members, err := tf.GetMembers()
	require.NoError(t, err)
	require.Len(t, members, 4)
	assert.Equal(t, "docs/b.txt", members[3].Path)

	// Compressed input is still decompressed first.
	tf, err = NewTarFileBytes(compressWith(t, COMP_GZ, data))
	require.NoError(t, err)
	defer tf.Close()
	assert.Equal(t, COMP_GZ, tf.Compression)
	n, err := tf.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestOpenForcedCompression(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, "sample.tar", sampleArchive(t))
	_, err := Open(path, WithCompression(COMP_GZ))
	assert.ErrorContains(t, err, "gzip")

	_, err = Open(filepath.Join(t.TempDir(), "missing.tar"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewTarFileStream(t *testing.T) {
	t.Parallel()

	data := sampleArchive(t)
	tf, err := NewTarFile(bytes.NewReader(data))
	require.NoError(t, err)

	assert.IsType(t, &StreamSource{}, tf.source)
	n, err := tf.Count()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, tf.Close())
	for e, err := range tf.Entries() {
		assert.Nil(t, e)
		assert.ErrorIs(t, err, ErrClosed)
	}
	_, err = tf.Count()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestGetMembersPartial(t *testing.T) {
	t.Parallel()

	data := concat(
		rawHeader("good", "0", REGTYPE),
		rawHeader("bad", "zz", REGTYPE),
		zeroBlocks(2),
	)
	tf, err := NewTarFile(bytes.NewReader(data), WithCompression(COMP_NONE))
	require.NoError(t, err)
	defer tf.Close()

	members, err := tf.GetMembers()
	var se *InvalidSizeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, int64(BLOCKSIZE), se.Offset)
	require.Len(t, members, 1)
	assert.Equal(t, "good", members[0].Path)

	names, err := tf.GetNames()
	assert.Error(t, err)
	assert.Equal(t, []string{"good"}, names)
}
