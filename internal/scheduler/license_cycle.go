// Package scheduler drives the bot's two periodic cycles: the hourly
// license due-date evaluation and the 12-hourly certificate sweep.
// Cycles never overlap themselves, and a single record's or host's
// failure never terminates a tick.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/expirywatch/expirybot/internal/domain"
	"github.com/expirywatch/expirybot/internal/expiry"
	"github.com/expirywatch/expirybot/internal/metrics"
)

// LicenseSource lists the scheduled license notifications. Implemented
// by services.LicenseService.
type LicenseSource interface {
	List(ctx context.Context) ([]domain.License, error)
}

// RecipientSender delivers a message to a single recipient.
// Implemented by notify.Dispatcher.
type RecipientSender interface {
	SendTo(ctx context.Context, recipientID int64, text string) error
}

// LicenseCycle evaluates every license record against the current
// wall clock. Due-ness is recomputed from the raw expiry date on each
// tick; nothing is cached between ticks.
type LicenseCycle struct {
	licenses LicenseSource
	sender   RecipientSender
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger

	running atomic.Bool
}

// NewLicenseCycle constructs a LicenseCycle.
func NewLicenseCycle(licenses LicenseSource, sender RecipientSender, loc *time.Location, log zerolog.Logger) *LicenseCycle {
	return &LicenseCycle{
		licenses: licenses,
		sender:   sender,
		loc:      loc,
		now:      time.Now,
		log:      log,
	}
}

// Run executes one tick. Overlapping invocations are skipped, so a
// slow tick cannot stack behind the timer.
func (c *LicenseCycle) Run(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		c.log.Warn().Msg("license cycle still running, tick skipped")
		return
	}
	defer c.running.Store(false)

	now := c.now().In(c.loc)
	today := expiry.DateOf(now)

	records, err := c.licenses.List(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("list licenses")
		return
	}
	c.log.Debug().Int("records", len(records)).Msg("license cycle started")

	for _, rec := range records {
		exp, err := rec.Expiry()
		if err != nil {
			c.log.Error().Err(err).Uint("id", rec.ID).Str("expiry", rec.ExpiryDate).Msg("malformed expiry date in store")
			continue
		}
		notifyDate := expiry.AdjustForWeekend(exp.AddDate(0, 0, -expiry.ReminderLeadDays))

		// Pre-expiry reminders fire once inside the daily window; the
		// post-expiry reminder repeats on every tick until the record
		// is deleted.
		if today.Equal(notifyDate) || today.Equal(exp) {
			if !expiry.InSendWindow(now) {
				continue
			}
			c.deliver(ctx, rec, reminderMessage(rec, exp))
		} else if today.After(exp) {
			c.deliver(ctx, rec, expiredMessage(rec, exp))
		}
	}

	metrics.CycleRuns.WithLabelValues("license").Inc()
}

// deliver sends one notification; a delivery failure is logged and the
// cycle moves on, each record being independent.
func (c *LicenseCycle) deliver(ctx context.Context, rec domain.License, text string) {
	if err := c.sender.SendTo(ctx, rec.OwnerID, text); err != nil {
		c.log.Error().Err(err).Uint("id", rec.ID).Int64("owner", rec.OwnerID).Msg("license notification delivery failed")
		return
	}
	c.log.Info().Uint("id", rec.ID).Str("company", rec.Company).Str("product", rec.Product).Msg("license notification sent")
}

func reminderMessage(rec domain.License, exp time.Time) string {
	msg := fmt.Sprintf("Reminder: the license for company '%s' on product '%s' expires %s.",
		rec.Company, rec.Product, exp.Format(domain.DisplayDateFormat))
	if rec.Quantity != "" {
		msg += fmt.Sprintf(" Quantity: %s.", rec.Quantity)
	}
	return msg
}

func expiredMessage(rec domain.License, exp time.Time) string {
	msg := fmt.Sprintf("The license for company '%s' on product '%s' expired %s.",
		rec.Company, rec.Product, exp.Format(domain.DisplayDateFormat))
	if rec.Quantity != "" {
		msg += fmt.Sprintf(" Quantity: %s.", rec.Quantity)
	}
	return msg
}
