//go:build unix

package serialization

import (
	"os"
	"syscall"
)

// mmapData memory-maps a file for reading.
func mmapData(f *os.File, size int64) ([]byte, error) {
	return syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
}

// munmapData unmaps a memory-mapped file.
func munmapData(data []byte) error {
	return syscall.Munmap(data)
}
