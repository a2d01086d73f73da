// Package engine implements the parallel segmented transfer core: it
// partitions one file into contiguous byte ranges, moves every range over
// its own SSH session, and reassembles them at matching offsets on the
// destination side.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkg/sftp"
	"github.com/rs/zerolog"
)

// Defaults for user-tunable knobs.
const (
	DefaultStreams = 20
	DefaultRetries = 3
)

// bufferSize is the unit of transfer inside a worker.
const bufferSize = 1 << 20

// ErrStreamsFailed is returned when at least one stream exhausted its
// retry budget. The partially written destination is left in place.
var ErrStreamsFailed = errors.New("some streams failed to transfer after retries")

// RemoteConn is one authenticated session's SFTP view plus its cleanup.
type RemoteConn interface {
	Client() *sftp.Client
	Close() error
}

// SessionDialer establishes a fresh authenticated session. Workers dial
// once per attempt; a session that has returned an error is discarded
// rather than reused.
type SessionDialer interface {
	Dial(ctx context.Context) (RemoteConn, error)
}

// Progress is one stream's progress sample. Pos counts bytes completed
// within the stream's segment. Message carries a human-readable throughput
// string and is set at most once per second.
type Progress struct {
	Stream  int
	Pos     int64
	Length  int64
	Message string
}

// ProgressFunc receives progress samples. It is called from worker
// goroutines and must be safe for concurrent use.
type ProgressFunc func(Progress)

// Options configures a transfer. LocalPath and RemotePath name the two
// sides of the file regardless of direction.
type Options struct {
	LocalPath  string
	RemotePath string

	// Streams is the number of parallel segments. Defaults to DefaultStreams.
	Streams int

	// Retries is the number of additional attempts per stream after its
	// first attempt fails. Defaults to DefaultRetries when negative.
	Retries int

	// Dialer establishes one session per worker attempt.
	Dialer SessionDialer
}

// Option is a functional option for configuring the engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.onProgress = fn
	}
}

// Engine coordinates one transfer. It is single-use: construct, then call
// Push or Pull exactly once.
type Engine struct {
	opts       Options
	logger     zerolog.Logger
	onProgress ProgressFunc
}

// New validates opts and builds an engine.
func New(opts Options, options ...Option) (*Engine, error) {
	if opts.Dialer == nil {
		return nil, errors.New("engine: a session dialer is required")
	}
	if opts.LocalPath == "" || opts.RemotePath == "" {
		return nil, errors.New("engine: both local and remote paths are required")
	}
	if opts.Streams == 0 {
		opts.Streams = DefaultStreams
	}
	if opts.Streams < 0 {
		return nil, fmt.Errorf("engine: streams must be positive, got %d", opts.Streams)
	}
	if opts.Retries < 0 {
		opts.Retries = DefaultRetries
	}

	e := &Engine{
		opts:   opts,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e, nil
}

// report emits a progress sample if a callback is registered.
func (e *Engine) report(p Progress) {
	if e.onProgress != nil {
		e.onProgress(p)
	}
}
