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

// pullSegment performs one attempt at writing bytes [seg.Start, seg.End)
// of the remote file to dest at the same offsets. dest is shared by all
// workers and only ever touched through WriteAt, so its cursor is never
// perturbed.
func (e *Engine) pullSegment(ctx context.Context, seg Segment, dest *os.File) error {
	conn, err := e.opts.Dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	remote, err := conn.Client().Open(e.opts.RemotePath)
	if err != nil {
		return fmt.Errorf("failed to open remote file: %w", err)
	}
	defer remote.Close()

	if _, err := remote.Seek(seg.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek remote file: %w", err)
	}

	buf := make([]byte, bufferSize)
	length := seg.Len()
	var done int64
	start := time.Now()
	lastUpdate := start

	for done < length {
		toRead := min(int64(bufferSize), length-done)
		n, readErr := remote.Read(buf[:toRead])

		if n > 0 {
			if err := writeAt(dest, buf[:n], seg.Start+done); err != nil {
				return fmt.Errorf("failed to write destination file: %w", err)
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
					return fmt.Errorf("remote file ended %d bytes early: %w", length-done, io.ErrUnexpectedEOF)
				}
				break
			}
			return fmt.Errorf("failed to read remote file: %w", readErr)
		}
	}

	return nil
}

// writeAt drains buf into f at offset, continuing after short writes.
func writeAt(f *os.File, buf []byte, offset int64) error {
	written := 0
	for written < len(buf) {
		n, err := f.WriteAt(buf[written:], offset+int64(written))
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}
