package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/zapssh/zap/internal/format"
)

// pushSegment performs one attempt at writing bytes [seg.Start, seg.End)
// of the local file to the remote file at the same offsets. Any error
// fails the whole attempt; the caller decides whether to retry.
func (e *Engine) pushSegment(ctx context.Context, seg Segment) error {
	conn, err := e.opts.Dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	// The coordinator extended the file already, so a plain write-only
	// open must succeed without creating or truncating anything.
	remote, err := conn.Client().OpenFile(e.opts.RemotePath, os.O_WRONLY)
	if err != nil {
		return fmt.Errorf("failed to open remote file: %w", err)
	}
	defer remote.Close()

	if _, err := remote.Seek(seg.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek remote file: %w", err)
	}

	local, err := os.Open(e.opts.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer local.Close()

	if _, err := local.Seek(seg.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek source file: %w", err)
	}

	buf := make([]byte, bufferSize)
	length := seg.Len()
	var done int64
	start := time.Now()
	lastUpdate := start

	for done < length {
		toRead := min(int64(bufferSize), length-done)
		n, readErr := local.Read(buf[:toRead])

		if n > 0 {
			if _, err := remote.Write(buf[:n]); err != nil {
				return fmt.Errorf("failed to write remote file: %w", err)
			}
			done += int64(n)

			p := Progress{Stream: seg.Stream, Pos: done, Length: length}
			if now := time.Now(); now.Sub(lastUpdate) > time.Second {
				p.Message = format.Speed(float64(done) / now.Sub(start).Seconds())
				lastUpdate = now
			}
			e.report(p)
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				if done < length {
					// The source shrank underneath us mid-transfer.
					return fmt.Errorf("source file ended %d bytes early: %w", length-done, io.ErrUnexpectedEOF)
				}
				break
			}
			return fmt.Errorf("failed to read source file: %w", readErr)
		}
	}

	if err := remote.Close(); err != nil {
		return fmt.Errorf("failed to close remote file: %w", err)
	}
	return nil
}
