package tarfile

const (
	NUL       = byte(0) // Null character
	BLOCKSIZE = 512     // Length of header blocks and payload padding unit

	// Header field layout. Only these three fields are decoded.
	OFFSET_NAME     = 0
	LENGTH_NAME     = 100 // Name field, NUL-terminated within its bounds
	OFFSET_SIZE     = 124
	LENGTH_SIZE     = 12 // Octal payload size, NUL or space padded
	OFFSET_CHKSUM   = 148
	LENGTH_CHKSUM   = 8 // Only read to recognise plain archives
	OFFSET_TYPEFLAG = 156
	OFFSET_MAGIC    = 257

	USTAR_MAGIC = "ustar" // Shared prefix of the POSIX and GNU magic fields

	REGTYPE  = '0'    // Regular file
	AREGTYPE = '\x00' // Regular file (old format)
	LNKTYPE  = '1'    // Hard link
	SYMTYPE  = '2'    // Symbolic link
	CHRTYPE  = '3'    // Character device
	BLKTYPE  = '4'    // Block device
	DIRTYPE  = '5'    // Directory
	FIFOTYPE = '6'    // FIFO
	CONTTYPE = '7'    // Contiguous file

	// Number of blocks forming the end-of-archive marker.
	TERMINATOR_BLOCKS = 2
)

var typeNames = map[byte]string{
	REGTYPE:  "file",
	AREGTYPE: "file",
	LNKTYPE:  "hardlink",
	SYMTYPE:  "symlink",
	CHRTYPE:  "chardev",
	BLKTYPE:  "blockdev",
	DIRTYPE:  "dir",
	FIFOTYPE: "fifo",
	CONTTYPE: "contiguous",
}
