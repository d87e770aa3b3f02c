package notify

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/expirywatch/expirybot/internal/metrics"
)

// ChatSource lists the chats currently eligible for broadcast
// notifications. Implemented by the access service over the store.
type ChatSource interface {
	AllowedChats(ctx context.Context) ([]int64, error)
}

// Dispatcher fans notifications out to recipients. Broadcasts go to
// every allowed chat plus the fixed operator recipient; each send is
// attempted independently and a failure for one recipient never
// prevents delivery to the others.
//
// Outbound sends share a token bucket because chat transports throttle
// fast senders; the limiter applies to direct sends and broadcasts
// alike.
type Dispatcher struct {
	notifier   Notifier
	chats      ChatSource
	operatorID int64
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewDispatcher constructs a Dispatcher. rps and burst configure the
// outbound token bucket; rps <= 0 disables pacing.
func NewDispatcher(n Notifier, chats ChatSource, operatorID int64, rps float64, burst int, log zerolog.Logger) *Dispatcher {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Dispatcher{
		notifier:   n,
		chats:      chats,
		operatorID: operatorID,
		limiter:    rate.NewLimiter(limit, burst),
		log:        log,
	}
}

// Broadcast sends text to all allowed chats and then to the operator.
// It never fails as a whole: individual delivery errors are logged and
// swallowed. A failure to list the chats still delivers to the
// operator, who is the one recipient that must not be silently lost.
func (d *Dispatcher) Broadcast(ctx context.Context, text string) {
	chatIDs, err := d.chats.AllowedChats(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("list allowed chats for broadcast")
	}
	for _, id := range chatIDs {
		if err := d.SendTo(ctx, id, text); err != nil {
			d.log.Error().Err(err).Int64("chat_id", id).Msg("broadcast delivery failed")
		}
	}
	if err := d.SendTo(ctx, d.operatorID, text); err != nil {
		d.log.Error().Err(err).Int64("chat_id", d.operatorID).Msg("operator delivery failed")
	}
}

// SendTo delivers text to a single recipient through the rate limiter.
// The error is returned for the caller to log; it is never escalated
// past a dispatch loop.
func (d *Dispatcher) SendTo(ctx context.Context, recipientID int64, text string) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	if err := d.notifier.Send(ctx, recipientID, text); err != nil {
		metrics.NotificationsFailed.Inc()
		return err
	}
	metrics.NotificationsSent.Inc()
	return nil
}
