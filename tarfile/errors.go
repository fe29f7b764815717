package tarfile

import "fmt"

// TarError is the base of every error produced while scanning an archive.
// Offset is the byte offset of the block being processed.
type TarError struct {
	msg    string
	Offset int64
}

func (e *TarError) Error() string {
	return fmt.Sprintf("tarfile: %s at offset %d", e.msg, e.Offset)
}

// ReadError reports a failed read or seek against the backing store,
// including short reads and offsets beyond the end of the data.
type ReadError struct {
	TarError
	Err error
}

func (e *ReadError) Error() string {
	if e.Err == nil {
		return e.TarError.Error()
	}
	return e.TarError.Error() + ": " + e.Err.Error()
}

func (e *ReadError) Unwrap() error { return e.Err }

type CompressionError struct{ TarError }

func (e *CompressionError) Error() string { return "tarfile: " + e.msg }

// HeaderError is embedded by every header decoding failure.
type HeaderError struct{ TarError }

type InvalidPathError struct{ HeaderError }
type InvalidEncodingError struct{ HeaderError }
type InvalidSizeError struct{ HeaderError }

// MissingTerminatorError is returned when an all-zero block is not followed
// by a second all-zero block.
type MissingTerminatorError struct{ HeaderError }

func NewReadError(offset int64, msg string, err error) error {
	return &ReadError{TarError: TarError{msg: msg, Offset: offset}, Err: err}
}

func NewCompressionError(msg string) error {
	return &CompressionError{TarError{msg: msg}}
}

func NewInvalidPathError(offset int64, msg string) error {
	return &InvalidPathError{HeaderError{TarError{msg: msg, Offset: offset}}}
}

func NewInvalidEncodingError(offset int64, msg string) error {
	return &InvalidEncodingError{HeaderError{TarError{msg: msg, Offset: offset}}}
}

func NewInvalidSizeError(offset int64, msg string) error {
	return &InvalidSizeError{HeaderError{TarError{msg: msg, Offset: offset}}}
}

func NewMissingTerminatorError(offset int64) error {
	return &MissingTerminatorError{HeaderError{TarError{msg: "tar file is missing a terminal block", Offset: offset}}}
}
