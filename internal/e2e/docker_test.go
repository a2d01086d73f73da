package e2e

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapssh/zap/internal/engine"
	"github.com/zapssh/zap/internal/sshconn"
	testutil "github.com/zapssh/zap/internal/testing"
)

// TestAgainstOpenSSH runs push and pull against a real OpenSSH server in
// a container. It needs Docker, so it only runs when ZAP_E2E_DOCKER is
// set.
func TestAgainstOpenSSH(t *testing.T) {
	if os.Getenv("ZAP_E2E_DOCKER") == "" {
		t.Skip("set ZAP_E2E_DOCKER=1 to run containerized e2e tests")
	}

	ctx := context.Background()

	container, err := testutil.StartSSHContainer(ctx, "zaptest")
	require.NoError(t, err)
	t.Cleanup(func() { container.Cleanup(ctx) })

	dialer := sshconn.NewDialer(sshconn.Config{
		Host:    container.Host,
		Port:    container.Port,
		User:    container.User,
		KeyFile: container.PrivateKey,
	})

	newEngine := func(localPath, remotePath string, streams int) *engine.Engine {
		eng, err := engine.New(engine.Options{
			LocalPath:  localPath,
			RemotePath: remotePath,
			Streams:    streams,
			Retries:    engine.DefaultRetries,
			Dialer:     dialer,
		})
		require.NoError(t, err)
		return eng
	}

	t.Run("PushThenPullRoundTrip", func(t *testing.T) {
		content := randomContent(t, 2*1_048_576+137)
		src := filepath.Join(t.TempDir(), "src.bin")
		require.NoError(t, os.WriteFile(src, content, 0o644))

		remotePath := container.RemoteDir + "/roundtrip.bin"
		_, err := newEngine(src, remotePath, 6).Push(ctx)
		require.NoError(t, err)

		pulled := filepath.Join(t.TempDir(), "pulled.bin")
		_, err = newEngine(pulled, remotePath, 6).Pull(ctx)
		require.NoError(t, err)

		got, err := os.ReadFile(pulled)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("PullRemoteFile", func(t *testing.T) {
		content := randomContent(t, 300_000)
		require.NoError(t, container.CreateRemoteFile(ctx, "seeded.bin", content))

		dest := filepath.Join(t.TempDir(), "seeded.bin")
		_, err := newEngine(dest, container.RemoteDir+"/seeded.bin", 4).Pull(ctx)
		require.NoError(t, err)

		got, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})
}
