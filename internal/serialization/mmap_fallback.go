//go:build !unix

package serialization

import (
	"errors"
	"os"
)

var errMmapUnsupported = errors.New("mmap not supported on this platform")

// mmapData always fails here; the reader falls back to a plain read.
func mmapData(f *os.File, size int64) ([]byte, error) {
	return nil, errMmapUnsupported
}

func munmapData(data []byte) error {
	return nil
}
