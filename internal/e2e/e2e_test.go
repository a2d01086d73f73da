// Package e2e exercises the full transfer path (session factory, engine,
// verification) against an in-process SSH server, and optionally against
// a containerized OpenSSH server.
package e2e

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapssh/zap/internal/engine"
	"github.com/zapssh/zap/internal/sshconn"
	testutil "github.com/zapssh/zap/internal/testing"
	"github.com/zapssh/zap/internal/verify"
)

// harness bundles an in-process SSH server with a dialer pointed at it.
type harness struct {
	dialer *sshconn.Dialer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	keys := testutil.GenerateKeyPair(t)
	server := testutil.StartSSHServer(t, "zaptest", keys.PublicKey)

	dialer := sshconn.NewDialer(sshconn.Config{
		Host:    server.Host,
		Port:    server.Port,
		User:    server.User,
		KeyFile: keys.PrivateKeyFile,
	})
	return &harness{dialer: dialer}
}

func (h *harness) transfer(t *testing.T, localPath, remotePath string, streams, retries int) *engine.Engine {
	t.Helper()

	eng, err := engine.New(engine.Options{
		LocalPath:  localPath,
		RemotePath: remotePath,
		Streams:    streams,
		Retries:    retries,
		Dialer:     h.dialer,
	})
	require.NoError(t, err)
	return eng
}

func randomContent(t *testing.T, size int) []byte {
	t.Helper()

	content := make([]byte, size)
	_, err := rand.Read(content)
	require.NoError(t, err)
	return content
}

func TestPushEndToEnd(t *testing.T) {
	h := newHarness(t)

	t.Run("OneMiBFourStreams", func(t *testing.T) {
		content := randomContent(t, 1_048_576)
		src := filepath.Join(t.TempDir(), "src.bin")
		require.NoError(t, os.WriteFile(src, content, 0o644))
		dest := filepath.Join(t.TempDir(), "dest.bin")

		report, err := h.transfer(t, src, dest, 4, 0).Push(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1_048_576), report.TotalBytes)

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, sha256.Sum256(content), sha256.Sum256(got))
	})

	t.Run("HundredBytesEightStreams", func(t *testing.T) {
		content := randomContent(t, 100)
		src := filepath.Join(t.TempDir(), "src.bin")
		require.NoError(t, os.WriteFile(src, content, 0o644))
		dest := filepath.Join(t.TempDir(), "dest.bin")

		_, err := h.transfer(t, src, dest, 8, 0).Push(context.Background())
		require.NoError(t, err)

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("EmptyFile", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "src.bin")
		require.NoError(t, os.WriteFile(src, nil, 0o644))
		dest := filepath.Join(t.TempDir(), "dest.bin")

		_, err := h.transfer(t, src, dest, 8, 0).Push(context.Background())
		require.NoError(t, err)

		fi, err := os.Stat(dest)
		require.NoError(t, err)
		assert.Zero(t, fi.Size())
	})
}

func TestPullEndToEnd(t *testing.T) {
	h := newHarness(t)

	t.Run("OneMiBTwentyStreams", func(t *testing.T) {
		content := randomContent(t, 1_048_576)
		remote := filepath.Join(t.TempDir(), "remote.bin")
		require.NoError(t, os.WriteFile(remote, content, 0o644))
		dest := filepath.Join(t.TempDir(), "dest.bin")

		report, err := h.transfer(t, dest, remote, 20, 0).Pull(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 20, report.StreamsCompleted)

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, sha256.Sum256(content), sha256.Sum256(got))
	})

	t.Run("VerifyAfterTransfer", func(t *testing.T) {
		content := randomContent(t, 64*1024)
		remote := filepath.Join(t.TempDir(), "remote.bin")
		require.NoError(t, os.WriteFile(remote, content, 0o644))
		dest := filepath.Join(t.TempDir(), "dest.bin")

		_, err := h.transfer(t, dest, remote, 4, 0).Pull(context.Background())
		require.NoError(t, err)

		localDigest, err := verify.LocalSHA256(dest)
		require.NoError(t, err)

		conn, err := h.dialer.Dial(context.Background())
		require.NoError(t, err)
		defer conn.Close()

		remoteDigest, err := verify.RemoteSHA256(conn.Client(), remote)
		require.NoError(t, err)
		assert.NoError(t, verify.Compare(localDigest, remoteDigest))
	})
}
