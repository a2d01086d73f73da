package progress_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/zapssh/zap/internal/engine"
	"github.com/zapssh/zap/internal/progress"
)

func TestLogSink(t *testing.T) {
	t.Run("TracksPositions", func(t *testing.T) {
		sink := progress.NewLogSink(zerolog.Nop())

		sink.Handle(engine.Progress{Stream: 0, Pos: 100, Length: 500})
		sink.Handle(engine.Progress{Stream: 0, Pos: 200, Length: 500})
		sink.Handle(engine.Progress{Stream: 3, Pos: 50, Length: 500})

		assert.Equal(t, int64(200), sink.Position(0))
		assert.Equal(t, int64(50), sink.Position(3))
		assert.Zero(t, sink.Position(1))
	})

	t.Run("LogsOnlyMessages", func(t *testing.T) {
		var buf bytes.Buffer
		sink := progress.NewLogSink(zerolog.New(&buf))

		sink.Handle(engine.Progress{Stream: 0, Pos: 100, Length: 500})
		assert.Zero(t, buf.Len(), "plain position samples are not logged")

		sink.Handle(engine.Progress{Stream: 0, Pos: 200, Length: 500, Message: "1.00 MB/s"})
		assert.Contains(t, buf.String(), "1.00 MB/s")
	})

	t.Run("ConcurrentUse", func(t *testing.T) {
		sink := progress.NewLogSink(zerolog.Nop())

		var wg sync.WaitGroup
		for stream := range 8 {
			wg.Add(1)
			go func(stream int) {
				defer wg.Done()
				for pos := range 100 {
					sink.Handle(engine.Progress{Stream: stream, Pos: int64(pos), Length: 100})
				}
			}(stream)
		}
		wg.Wait()

		for stream := range 8 {
			assert.Equal(t, int64(99), sink.Position(stream))
		}
	})
}
