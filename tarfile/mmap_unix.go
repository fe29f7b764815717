//go:build unix

package tarfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MappedSource is a BufferSource over a read-only memory mapping of a
// regular file. Header blocks are borrowed from the mapping directly.
type MappedSource struct {
	*BufferSource
	mapped []byte
}

// NewMappedSource maps f into memory. f may be closed once this returns;
// the mapping stays valid until Close.
func NewMappedSource(f *os.File) (*MappedSource, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("tarfile: cannot map %s: not a regular file", f.Name())
	}
	size := fi.Size()
	if size == 0 {
		// mmap rejects zero-length mappings.
		return &MappedSource{BufferSource: NewBufferSource(nil)}, nil
	}
	if int64(int(size)) != size {
		return nil, fmt.Errorf("tarfile: cannot map %s: %d bytes exceeds address space", f.Name(), size)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("tarfile: mmap %s: %w", f.Name(), err)
	}
	return &MappedSource{BufferSource: NewBufferSource(data), mapped: data}, nil
}

// Close unmaps the file. Blocks returned earlier must not be used after
// Close.
func (m *MappedSource) Close() error {
	if m.mapped == nil {
		return nil
	}
	data := m.mapped
	m.mapped = nil
	m.BufferSource = NewBufferSource(nil)
	return unix.Munmap(data)
}
