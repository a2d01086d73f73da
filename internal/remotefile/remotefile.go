// Package remotefile provides the SFTP primitives the transfer engine
// needs on the remote side: sizing a file and pre-extending it.
package remotefile

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/sftp"
)

// Mode applied to files created on the remote side.
const createMode = 0o644

// Stat returns the size of the remote file at path.
func Stat(client *sftp.Client, path string) (int64, error) {
	fi, err := client.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat remote file %q: %w", path, err)
	}
	if fi.IsDir() {
		return 0, fmt.Errorf("remote path %q is a directory", path)
	}
	return fi.Size(), nil
}

// Extend creates or truncates the remote file and sets its length to size
// by writing a single zero byte at size-1. On filesystems that support it
// this produces a sparse file; elsewhere the server zero-fills. Either way
// workers can immediately write at their own offsets without racing on
// length extension.
func Extend(client *sftp.Client, path string, size int64) error {
	f, err := client.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to open remote file %q: %w", path, err)
	}
	defer f.Close()

	if err := f.Chmod(createMode); err != nil {
		return fmt.Errorf("failed to chmod remote file %q: %w", path, err)
	}

	if size > 0 {
		if _, err := f.Seek(size-1, io.SeekStart); err != nil {
			return fmt.Errorf("failed to seek remote file %q: %w", path, err)
		}
		if _, err := f.Write([]byte{0}); err != nil {
			return fmt.Errorf("failed to extend remote file %q: %w", path, err)
		}
	}

	return nil
}
