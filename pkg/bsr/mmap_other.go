//go:build !unix

package bsr

import (
	"io"
	"os"
)

// mapFile reads the first size bytes of f into memory. Platforms without
// mmap get the same random access at the cost of resident memory.
func mapFile(f *os.File, size int64) ([]byte, func([]byte) error, error) {
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, nil, err
	}
	return data, func([]byte) error { return nil }, nil
}
