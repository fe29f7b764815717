package tarfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
)

var (
	errBadOctal      = errors.New("non-octal digit in number field")
	errOctalOverflow = errors.New("overflow in number field")
)

// nts returns the bytes of s up to the first NUL. ok is false when s holds
// no NUL at all.
func nts(s []byte) (b []byte, ok bool) {
	p := bytes.IndexByte(s, NUL)
	if p == -1 {
		return s, false
	}
	return s[:p], true
}

// nti parses an octal number field. The digits may be padded with spaces
// on either side and are terminated by NUL or the end of the field; an
// empty field is zero.
func nti(s []byte) (int64, error) {
	if b, ok := nts(s); ok {
		s = b
	}
	s = bytes.Trim(s, " ")
	var n int64
	for _, c := range s {
		if c < '0' || c > '7' {
			return 0, errBadOctal
		}
		if n > math.MaxInt64>>3 {
			return 0, errOctalOverflow
		}
		n = n<<3 | int64(c-'0')
	}
	return n, nil
}

// isZeroBlock reports whether every byte of buf is zero. It loads eight
// bytes at a time; binary.LittleEndian has no alignment requirement.
func isZeroBlock(buf []byte) bool {
	i := 0
	for ; i+8 <= len(buf); i += 8 {
		if binary.LittleEndian.Uint64(buf[i:]) != 0 {
			return false
		}
	}
	for ; i < len(buf); i++ {
		if buf[i] != 0 {
			return false
		}
	}
	return true
}

// calcChecksums returns the unsigned and signed header checksums of buf,
// with the checksum field itself counted as spaces. Old tar implementations
// summed signed chars, so both are accepted.
func calcChecksums(buf []byte) (unsigned, signed int64) {
	for i, b := range buf {
		if i >= OFFSET_CHKSUM && i < OFFSET_CHKSUM+LENGTH_CHKSUM {
			b = ' '
		}
		unsigned += int64(b)
		signed += int64(int8(b))
	}
	return unsigned, signed
}

// looksLikeHeader reports whether buf is a tar header block, by its ustar
// magic or else by a matching checksum.
func looksLikeHeader(buf []byte) bool {
	if len(buf) < BLOCKSIZE || isZeroBlock(buf[:BLOCKSIZE]) {
		return false
	}
	buf = buf[:BLOCKSIZE]
	if bytes.HasPrefix(buf[OFFSET_MAGIC:], []byte(USTAR_MAGIC)) {
		return true
	}
	chksum, err := nti(buf[OFFSET_CHKSUM : OFFSET_CHKSUM+LENGTH_CHKSUM])
	if err != nil {
		return false
	}
	unsigned, signed := calcChecksums(buf)
	return chksum == unsigned || chksum == signed
}

// divmod returns the quotient and remainder of a divided by b.
func divmod(a, b int64) (int64, int64) {
	return a / b, a % b
}

// paddedSize rounds size up to a whole number of blocks.
func paddedSize(size int64) int64 {
	blocks, remainder := divmod(size, BLOCKSIZE)
	if remainder > 0 {
		blocks++
	}
	return blocks * BLOCKSIZE
}
