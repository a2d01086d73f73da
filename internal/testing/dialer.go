package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/sftp"

	"github.com/zapssh/zap/internal/engine"
)

// PipeDialer implements engine.SessionDialer on top of in-process SFTP
// pairs. Every Dial produces a fresh server and client, mirroring the
// engine's one-session-per-attempt model. FailDials injects dial-level
// faults: it receives the 0-based index of each Dial call and returns
// whether that call should fail.
type PipeDialer struct {
	T         *testing.T
	FailDials func(n int) bool

	mu    sync.Mutex
	dials int
}

// Dial returns a connection backed by a new SFTP pair, or an injected
// error when FailDials says so.
func (d *PipeDialer) Dial(_ context.Context) (engine.RemoteConn, error) {
	d.mu.Lock()
	n := d.dials
	d.dials++
	d.mu.Unlock()

	if d.FailDials != nil && d.FailDials(n) {
		return nil, fmt.Errorf("injected dial failure on dial %d", n)
	}
	return pipeConn{client: StartSFTPPair(d.T)}, nil
}

// Dials returns how many times Dial has been called.
func (d *PipeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type pipeConn struct {
	client *sftp.Client
}

func (c pipeConn) Client() *sftp.Client { return c.client }
func (c pipeConn) Close() error         { return c.client.Close() }
