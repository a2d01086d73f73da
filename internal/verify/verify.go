// Package verify hashes both sides of a finished transfer. It is opt-in
// and runs strictly after the transfer completes, never on the critical
// path.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/pkg/sftp"
)

// LocalSHA256 returns the hex SHA-256 digest of a local file.
func LocalSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	return hashReader(f)
}

// RemoteSHA256 returns the hex SHA-256 digest of a remote file, read back
// over a single SFTP channel.
func RemoteSHA256(client *sftp.Client, path string) (string, error) {
	f, err := client.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open remote file %q: %w", path, err)
	}
	defer f.Close()

	return hashReader(f)
}

// Compare returns an error when the two digests differ.
func Compare(localDigest, remoteDigest string) error {
	if localDigest != remoteDigest {
		return fmt.Errorf("verification failed: local sha256 %s != remote sha256 %s", localDigest, remoteDigest)
	}
	return nil
}

func hashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
