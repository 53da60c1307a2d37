package alert

import (
	"context"
	"log/slog"

	"costwatch-hq/saturn/pkg/costdata"
)

// Notification is what a sink delivers.
type Notification struct {
	// Profile is the profile the notification is about.
	Profile costdata.Profile `json:"profile"`

	// Type is the alert category.
	Type costdata.AlertType `json:"type"`

	// Title is the short headline.
	Title string `json:"title"`

	// Body is the detail line.
	Body string `json:"body"`

	// Critical requests an attention-grabbing delivery (sound, ping).
	Critical bool `json:"critical"`
}

// Sink delivers notifications to an external system.
// Implementations must be safe for concurrent use.
type Sink interface {
	// Name returns the sink identifier.
	Name() string

	// Send delivers a notification.
	Send(ctx context.Context, n Notification) error
}

// LogSink writes notifications to the structured log. It is the default
// sink and always configured, so alert decisions stay observable even
// without a webhook.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing to the given logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "alert.sink")}
}

// Name returns "log".
func (s *LogSink) Name() string { return "log" }

// Send writes the notification at warn level, error level if critical.
func (s *LogSink) Send(_ context.Context, n Notification) error {
	level := slog.LevelWarn
	if n.Critical {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, n.Title,
		"profile", n.Profile,
		"alert_type", n.Type,
		"detail", n.Body,
	)
	return nil
}
