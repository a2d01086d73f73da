// Package progress renders per-stream transfer progress. Rendering is
// deliberately decoupled from the engine: workers emit samples and a sink
// decides what the operator sees.
package progress

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/zapssh/zap/internal/engine"
)

// LogSink reports stream progress through structured logs. Position
// samples are tracked silently; only samples carrying a throughput
// message (emitted at most once per second per stream) are logged, so a
// twenty-stream transfer stays readable.
type LogSink struct {
	logger zerolog.Logger

	mu        sync.Mutex
	positions map[int]int64
}

// NewLogSink builds a sink logging to logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{
		logger:    logger,
		positions: make(map[int]int64),
	}
}

// Handle consumes one progress sample. It is safe for concurrent use and
// is intended to be passed to the engine as its progress callback.
func (s *LogSink) Handle(p engine.Progress) {
	s.mu.Lock()
	s.positions[p.Stream] = p.Pos
	s.mu.Unlock()

	if p.Message != "" {
		s.logger.Info().
			Int("stream", p.Stream).
			Int64("pos", p.Pos).
			Int64("len", p.Length).
			Str("speed", p.Message).
			Msg("stream progress")
	}
}

// Position returns the last recorded position for a stream.
func (s *LogSink) Position(stream int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[stream]
}
