package notify

import (
	"context"
	"log/slog"
)

// Sender delivers a text message to a phone number out-of-band.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// LogSender writes messages to the log instead of delivering them. Used in
// development when no messaging credentials are configured.
type LogSender struct {
	Log *slog.Logger
}

func (s *LogSender) Send(_ context.Context, to, body string) error {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("message delivery skipped (no messaging credentials)", "to", to, "body", body)
	return nil
}
