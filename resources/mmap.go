//go:build !wasip1 && !js

package resources

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// readMmap maps the file read-only. The returned release func unmaps it; the
// bytes must not be touched afterwards.
func readMmap(file *os.File) ([]byte, func() error, error) {
	fileMmap, mmapErr := mmap.Map(file, mmap.RDONLY, 0)
	if mmapErr != nil {
		return nil, nil, mmapErr
	}
	return fileMmap, fileMmap.Unmap, nil
}
