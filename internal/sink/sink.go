package sink

import (
	"context"

	"ghwatch/internal/pipeline"
	logx "ghwatch/pkg/logx"
)

// Multi fans one alert out to every configured sink. A failing sink
// is logged and does not stop the others; Deliver only errors when
// every sink failed, so the caller's log line reflects total loss.
type Multi struct {
	sinks []pipeline.Sink
	log   logx.Logger
}

func NewMulti(log logx.Logger, sinks ...pipeline.Sink) *Multi {
	if log.IsZero() {
		log = logx.Nop()
	}
	kept := make([]pipeline.Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Multi{sinks: kept, log: log}
}

func (m *Multi) Deliver(ctx context.Context, a pipeline.Alert) error {
	if len(m.sinks) == 0 {
		return nil
	}
	var firstErr error
	failed := 0
	for _, s := range m.sinks {
		if err := s.Deliver(ctx, a); err != nil {
			failed++
			if firstErr == nil {
				firstErr = err
			}
			m.log.Warn("sink delivery failed", logx.Err(err))
		}
	}
	if failed == len(m.sinks) {
		return firstErr
	}
	return nil
}
