//go:build !unix

package tarfile

import (
	"fmt"
	"io"
	"os"
)

// MappedSource holds the whole file in memory on platforms without mmap.
type MappedSource struct {
	*BufferSource
}

// NewMappedSource reads f into memory.
func NewMappedSource(f *os.File) (*MappedSource, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("tarfile: cannot map %s: not a regular file", f.Name())
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &MappedSource{BufferSource: NewBufferSource(data)}, nil
}

func (m *MappedSource) Close() error {
	m.BufferSource = NewBufferSource(nil)
	return nil
}
