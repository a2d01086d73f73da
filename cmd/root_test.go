package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapssh/zap/internal/location"
)

func TestPlanTransfer(t *testing.T) {
	t.Run("BothLocalRejected", func(t *testing.T) {
		_, err := planTransfer("a.bin", "b.bin")
		require.ErrorIs(t, err, location.ErrBothLocal)
		assert.EqualError(t, err, "At least one location must be remote")
	})

	t.Run("BothRemoteRejected", func(t *testing.T) {
		_, err := planTransfer("alice@h1:/a.bin", "alice@h2:/dest")
		assert.ErrorIs(t, err, location.ErrBothRemote)
	})

	t.Run("MissingUserRejected", func(t *testing.T) {
		t.Setenv("USER", "")

		_, err := planTransfer("h1:/a.bin", t.TempDir())
		assert.ErrorIs(t, err, location.ErrMissingUser)
	})

	t.Run("Push", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "payload.bin")
		require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

		plan, err := planTransfer(src, "alice@example.com:/data")
		require.NoError(t, err)

		assert.True(t, plan.push)
		assert.Equal(t, src, plan.localPath)
		assert.Equal(t, "/data/payload.bin", plan.remotePath)
		assert.Equal(t, "example.com", plan.remote.Host)
		assert.Equal(t, "alice", plan.remote.User)
	})

	t.Run("Pull", func(t *testing.T) {
		destDir := t.TempDir()

		plan, err := planTransfer("alice@example.com:/data/payload.bin", destDir)
		require.NoError(t, err)

		assert.False(t, plan.push)
		assert.Equal(t, "/data/payload.bin", plan.remotePath)
		assert.Equal(t, filepath.Join(destDir, "payload.bin"), plan.localPath)
	})

	t.Run("PushSourceMustExist", func(t *testing.T) {
		_, err := planTransfer(filepath.Join(t.TempDir(), "missing.bin"), "alice@example.com:/data")
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("PullDestinationMustBeDirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		_, err := planTransfer("alice@example.com:/data/payload.bin", file)
		assert.ErrorContains(t, err, "is not a directory")
	})
}
