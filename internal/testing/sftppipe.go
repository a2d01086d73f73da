// Package testing provides shared test harnesses: an in-process SFTP
// server over a pipe, an in-process SSH server with an SFTP subsystem,
// key generation helpers, and a containerized sshd for end-to-end tests.
package testing

import (
	"net"
	"testing"

	"github.com/pkg/sftp"
)

// StartSFTPPair starts an in-process SFTP server and returns a client
// connected to it over an in-memory pipe. No network or SSH transport is
// involved; the server answers against the host filesystem, so tests use
// paths under t.TempDir() as the "remote" side.
//
// Each call produces an independent server, matching the engine's
// one-session-per-attempt model.
func StartSFTPPair(t *testing.T) *sftp.Client {
	t.Helper()

	clientConn, serverConn := net.Pipe()

	server, err := sftp.NewServer(serverConn)
	if err != nil {
		t.Fatalf("failed to create sftp server: %v", err)
	}
	go func() {
		_ = server.Serve()
	}()

	client, err := sftp.NewClientPipe(clientConn, clientConn)
	if err != nil {
		t.Fatalf("failed to create sftp client: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	return client
}
