package sink

import (
	"context"

	"ghwatch/internal/pipeline"
	logx "ghwatch/pkg/logx"
)

// Log writes alerts to the structured log. Mostly useful headless or
// while tuning skip rules.
type Log struct {
	log logx.Logger
}

func NewLog(log logx.Logger) *Log {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Log{log: log}
}

func (s *Log) Deliver(ctx context.Context, a pipeline.Alert) error {
	_ = ctx
	s.log.Info("alert",
		logx.String("title", a.Title),
		logx.String("body", a.Body),
		logx.String("url", a.URL))
	return nil
}
