package overdue

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const scanTimeout = 4 * time.Minute

// Schedule registers the scan on spec and returns the started cron.
// On shutdown callers Stop it and wait for the context Stop returns.
func Schedule(spec string, s *Scanner, log *slog.Logger) (*cron.Cron, error) {
	cl := cronLogger{log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()
		if _, err := s.Scan(ctx); err != nil {
			log.Error("overdue scan failed", "err", err)
		}
	})
	if err != nil {
		return nil, err
	}

	log.Info("overdue scanner scheduled", "cron", spec)
	c.Start()
	return c, nil
}

// cronLogger routes cron's own logging into slog.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug("cron: "+msg, kv...)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error("cron: "+msg, append(kv, "err", err)...)
}
