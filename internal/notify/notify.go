// Package notify abstracts the notification collaborator. Delivery is
// fire-and-forget: services submit events through the worker pool and a sink
// failure is logged, never propagated into the financial commit path.
package notify

import "log/slog"

type Event struct {
	Type   string         `json:"type"` // e.g. "credit.verified", "listing.sold"
	UserID string         `json:"user_id"`
	Data   map[string]any `json:"data,omitempty"`
}

type Sink interface {
	Notify(userID string, ev Event) error
}

// LogSink writes notifications to the structured log. Stands in for a real
// delivery transport, which is outside the engine.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Notify(userID string, ev Event) error {
	s.Log.Info("notify", "user_id", userID, "type", ev.Type, "data", ev.Data)
	return nil
}
