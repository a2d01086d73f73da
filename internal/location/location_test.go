package location_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapssh/zap/internal/location"
)

func TestParse(t *testing.T) {
	t.Run("LocalPath", func(t *testing.T) {
		loc, err := location.Parse("/tmp/file.bin")
		require.NoError(t, err)
		assert.False(t, loc.Remote())
		assert.Equal(t, "/tmp/file.bin", loc.Path)
	})

	t.Run("UserHostPath", func(t *testing.T) {
		user := gofakeit.Username()
		host := gofakeit.DomainName()

		loc, err := location.Parse(user + "@" + host + ":/data/file.bin")
		require.NoError(t, err)
		assert.True(t, loc.Remote())
		assert.Equal(t, user, loc.User)
		assert.Equal(t, host, loc.Host)
		assert.Equal(t, "/data/file.bin", loc.Path)
	})

	t.Run("UserFromEnv", func(t *testing.T) {
		t.Setenv("USER", "envuser")

		loc, err := location.Parse("example.com:file.bin")
		require.NoError(t, err)
		assert.Equal(t, "envuser", loc.User)
		assert.Equal(t, "example.com", loc.Host)
	})

	t.Run("MissingUser", func(t *testing.T) {
		t.Setenv("USER", "")

		_, err := location.Parse("example.com:file.bin")
		assert.ErrorIs(t, err, location.ErrMissingUser)
	})

	t.Run("EmptyPathDefaultsToDot", func(t *testing.T) {
		loc, err := location.Parse("alice@example.com:")
		require.NoError(t, err)
		assert.Equal(t, ".", loc.Path)
	})

	t.Run("EmptyUserRejected", func(t *testing.T) {
		_, err := location.Parse("@example.com:file.bin")
		assert.Error(t, err)
	})

	t.Run("EmptyHostRejected", func(t *testing.T) {
		_, err := location.Parse("alice@:file.bin")
		assert.Error(t, err)
	})

	t.Run("PathMayContainColons", func(t *testing.T) {
		loc, err := location.Parse("alice@example.com:/data/a:b")
		require.NoError(t, err)
		assert.Equal(t, "/data/a:b", loc.Path)
	})
}

func TestValidatePair(t *testing.T) {
	remote := location.Location{User: "alice", Host: "example.com", Path: "/data/file.bin"}

	t.Run("BothRemote", func(t *testing.T) {
		err := location.ValidatePair(remote, remote)
		assert.ErrorIs(t, err, location.ErrBothRemote)
	})

	t.Run("BothLocal", func(t *testing.T) {
		err := location.ValidatePair(
			location.Location{Path: "a.bin"},
			location.Location{Path: "b.bin"},
		)
		assert.ErrorIs(t, err, location.ErrBothLocal)
	})

	t.Run("PushSourceMustExist", func(t *testing.T) {
		err := location.ValidatePair(
			location.Location{Path: filepath.Join(t.TempDir(), "missing.bin")},
			remote,
		)
		assert.ErrorContains(t, err, "does not exist")
	})

	t.Run("PushSourceMustBeFile", func(t *testing.T) {
		err := location.ValidatePair(location.Location{Path: t.TempDir()}, remote)
		assert.ErrorContains(t, err, "is not a file")
	})

	t.Run("PullDestinationMustBeDirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "dest.bin")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		err := location.ValidatePair(remote, location.Location{Path: file})
		assert.ErrorContains(t, err, "is not a directory")
	})

	t.Run("ValidPush", func(t *testing.T) {
		src := filepath.Join(t.TempDir(), "src.bin")
		require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

		assert.NoError(t, location.ValidatePair(location.Location{Path: src}, remote))
	})

	t.Run("ValidPull", func(t *testing.T) {
		assert.NoError(t, location.ValidatePair(remote, location.Location{Path: t.TempDir()}))
	})
}
