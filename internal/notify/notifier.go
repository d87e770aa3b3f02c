// Package notify contains the outbound side of the bot: the Notifier
// capability implemented by the chat transport, and the Dispatcher that
// fans messages out to recipients with per-send failure isolation and
// outbound pacing.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Notifier delivers a text message to a single recipient. Chat
// transports implement it; a failed send must come back as an error,
// never a panic, so the dispatch loop can isolate it.
type Notifier interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

// LogNotifier writes every message to the log instead of a chat
// transport. It is the default wiring for dry runs and local
// development; a real deployment plugs in its transport adapter.
type LogNotifier struct {
	Log zerolog.Logger
}

// Send logs the message and always succeeds.
func (n LogNotifier) Send(_ context.Context, recipientID int64, text string) error {
	n.Log.Info().Int64("recipient", recipientID).Str("text", text).Msg("notification")
	return nil
}
