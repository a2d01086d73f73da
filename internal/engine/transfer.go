package engine

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/zapssh/zap/internal/remotefile"
	"github.com/zapssh/zap/internal/retry"
)

// Push transfers the local file to the remote path. The remote file is
// pre-extended to the final length so that workers can write at their own
// offsets immediately.
func (e *Engine) Push(ctx context.Context) (Report, error) {
	fi, err := os.Stat(e.opts.LocalPath)
	if err != nil {
		return Report{}, fmt.Errorf("failed to stat source file: %w", err)
	}
	size := fi.Size()

	if err := e.extendRemote(ctx, size); err != nil {
		return Report{}, err
	}

	e.logger.Info().
		Str("source", e.opts.LocalPath).
		Str("dest", e.opts.RemotePath).
		Int64("size", size).
		Int("streams", e.opts.Streams).
		Msg("starting push transfer")

	return e.run(ctx, size, func(ctx context.Context, seg Segment) error {
		return e.pushSegment(ctx, seg)
	})
}

// Pull transfers the remote file to the local path. The local destination
// is created (or truncated) at the final length and shared by all workers
// through positional writes.
func (e *Engine) Pull(ctx context.Context) (Report, error) {
	size, err := e.statRemote(ctx)
	if err != nil {
		return Report{}, err
	}

	dest, err := os.OpenFile(e.opts.LocalPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return Report{}, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dest.Close()

	if err := dest.Truncate(size); err != nil {
		return Report{}, fmt.Errorf("failed to pre-allocate destination file: %w", err)
	}

	e.logger.Info().
		Str("source", e.opts.RemotePath).
		Str("dest", e.opts.LocalPath).
		Int64("size", size).
		Int("streams", e.opts.Streams).
		Msg("starting pull transfer")

	report, err := e.run(ctx, size, func(ctx context.Context, seg Segment) error {
		return e.pullSegment(ctx, seg, dest)
	})
	if err != nil {
		return report, err
	}

	if err := dest.Sync(); err != nil {
		return report, fmt.Errorf("failed to sync destination file: %w", err)
	}
	return report, nil
}

// extendRemote pre-allocates the remote file on a short-lived session.
// Failure here is fatal: no workers are spawned.
func (e *Engine) extendRemote(ctx context.Context, size int64) error {
	conn, err := e.opts.Dialer.Dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect for pre-allocation: %w", err)
	}
	defer conn.Close()

	if err := remotefile.Extend(conn.Client(), e.opts.RemotePath, size); err != nil {
		return fmt.Errorf("failed to pre-allocate remote file: %w", err)
	}
	return nil
}

// statRemote sizes the transfer on a short-lived session.
func (e *Engine) statRemote(ctx context.Context) (int64, error) {
	conn, err := e.opts.Dialer.Dial(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to connect for sizing: %w", err)
	}
	defer conn.Close()

	return remotefile.Stat(conn.Client(), e.opts.RemotePath)
}

// run plans the segmentation, executes one worker per segment, and folds
// the failure map into a single result.
func (e *Engine) run(ctx context.Context, size int64, attempt func(context.Context, Segment) error) (Report, error) {
	segments := Plan(size, e.opts.Streams)
	st := newStats(size)

	failed := e.runWorkers(ctx, segments, attempt, st)

	report := st.report(len(segments))
	for _, f := range failed {
		if f {
			return report, ErrStreamsFailed
		}
	}
	return report, nil
}

// runWorkers spawns one goroutine per segment and waits for all of them.
// A worker that exhausts its retries marks its own slot in the returned
// failure map; it never aborts its siblings, so work already done by other
// streams is kept.
func (e *Engine) runWorkers(ctx context.Context, segments []Segment, attempt func(context.Context, Segment) error, st *stats) []bool {
	failed := make([]bool, len(segments))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, seg := range segments {
		wg.Add(1)
		go func(seg Segment) {
			defer wg.Done()

			if err := e.runSegment(ctx, seg, attempt); err != nil {
				e.logger.Error().Int("stream", seg.Stream).Err(err).Msg("stream failed")
				mu.Lock()
				failed[seg.Stream] = true
				mu.Unlock()
				return
			}
			st.streamDone()
		}(seg)
	}
	wg.Wait()

	return failed
}

// runSegment drives one segment through its attempt/backoff loop. Empty
// segments succeed without any I/O.
func (e *Engine) runSegment(ctx context.Context, seg Segment, attempt func(context.Context, Segment) error) error {
	if seg.Len() == 0 {
		e.report(Progress{Stream: seg.Stream})
		return nil
	}

	bo := retry.NewBackOff()
	for try := 0; ; try++ {
		err := attempt(ctx, seg)
		if err == nil {
			return nil
		}

		e.logger.Warn().
			Int("stream", seg.Stream).
			Int("attempt", try+1).
			Err(err).
			Msg("stream attempt failed")

		if try >= e.opts.Retries {
			return fmt.Errorf("stream %d failed after %d retries: %w", seg.Stream, e.opts.Retries, err)
		}
		time.Sleep(bo.NextBackOff())
	}
}
