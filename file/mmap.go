package file

import (
	"os"
)

// Mmap maps size bytes of fd into memory. The mapping is shared, so
// writes through a writable mapping reach the file.
func Mmap(fd *os.File, writable bool, size int64) ([]byte, error) {
	return mmap(fd, writable, size)
}

// Munmap unmaps a previously mapped slice.
func Munmap(b []byte) error {
	return munmap(b)
}

// Msync writes any modified data of a writable mapping to persistent
// storage.
func Msync(b []byte) error {
	return msync(b)
}
