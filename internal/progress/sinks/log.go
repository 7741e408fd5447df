// Package sinks provides progress.Sink implementations.
package sinks

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/github-stars-crawler/internal/progress"
)

// LogSink emits structured logs for the progress stream. Useful during
// development or when no metrics endpoint is running.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("stage", string(evt.Stage)),
			zap.Int64("fresh", evt.Fresh),
			zap.Int64("seen", evt.Seen),
			zap.Int64("target", evt.Target),
		}
		if evt.RunUUID != uuid.Nil {
			fields = append(fields, zap.String("run_uuid", evt.RunUUID.String()))
		}
		if evt.Query != "" {
			fields = append(fields, zap.String("query", evt.Query))
		}
		if evt.Chunks > 0 {
			fields = append(fields, zap.Int("chunk", evt.Chunk), zap.Int("chunks", evt.Chunks))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
