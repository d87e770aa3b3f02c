package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/expirywatch/expirybot/internal/domain"
	"github.com/expirywatch/expirybot/internal/expiry"
	"github.com/expirywatch/expirybot/internal/metrics"
	"github.com/expirywatch/expirybot/internal/probe"
)

// HostSource is the monitored-host store contract of the certificate
// cycle. Implemented by services.HostService.
type HostSource interface {
	List(ctx context.Context) ([]domain.MonitoredHost, error)
	UpdateCert(ctx context.Context, hostname string, notAfter time.Time, commonName string) error
}

// CertProber performs one TLS introspection. Implemented by
// probe.Prober.
type CertProber interface {
	Probe(ctx context.Context, hostname string) (probe.Result, error)
}

// Broadcaster fans a message out to all allowed chats plus the
// operator. Implemented by notify.Dispatcher.
type Broadcaster interface {
	Broadcast(ctx context.Context, text string)
}

// CertCycle sweeps all monitored hosts. Probes run concurrently and
// are joined before the tick completes; a slow or failing host never
// delays or perturbs the others. The suppression tracker is the only
// state shared between probes and is internally synchronized.
type CertCycle struct {
	hosts      HostSource
	prober     CertProber
	dispatcher Broadcaster
	tracker    *expiry.Tracker
	loc        *time.Location
	now        func() time.Time
	log        zerolog.Logger

	running atomic.Bool
}

// NewCertCycle constructs a CertCycle with a fresh suppression tracker.
func NewCertCycle(hosts HostSource, prober CertProber, dispatcher Broadcaster, loc *time.Location, log zerolog.Logger) *CertCycle {
	return &CertCycle{
		hosts:      hosts,
		prober:     prober,
		dispatcher: dispatcher,
		tracker:    expiry.NewTracker(),
		loc:        loc,
		now:        time.Now,
		log:        log,
	}
}

// Run executes one sweep over all monitored hosts. Overlapping
// invocations are skipped; the bot command "refresh sites" reuses this
// entry point outside the timer.
func (c *CertCycle) Run(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		c.log.Warn().Msg("certificate cycle still running, tick skipped")
		return
	}
	defer c.running.Store(false)

	runID := uuid.NewString()[:8]
	log := c.log.With().Str("run", runID).Logger()

	hosts, err := c.hosts.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list monitored hosts")
		return
	}
	log.Info().Int("hosts", len(hosts)).Msg("certificate sweep started")

	var wg sync.WaitGroup
	for _, h := range hosts {
		wg.Add(1)
		go func(hostname string) {
			defer wg.Done()
			c.checkHost(ctx, log, hostname)
		}(h.Hostname)
	}
	wg.Wait()

	metrics.CycleRuns.WithLabelValues("certificate").Inc()
	log.Info().Msg("certificate sweep finished")
}

// checkHost probes one host, persists the result, and emits the
// appropriate notification. A probe failure is reported but leaves the
// suppression state untouched, so a transient outage neither resets
// nor falsely arms the warning window.
func (c *CertCycle) checkHost(ctx context.Context, log zerolog.Logger, hostname string) {
	res, err := c.prober.Probe(ctx, hostname)
	if err != nil {
		metrics.ProbesTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("hostname", hostname).Msg("certificate probe failed")
		c.dispatcher.Broadcast(ctx, fmt.Sprintf("Certificate check failed for %s: %v", hostname, err))
		return
	}
	metrics.ProbesTotal.WithLabelValues("ok").Inc()

	if err := c.hosts.UpdateCert(ctx, hostname, res.NotAfter, res.CommonName); err != nil {
		// The probe result is still worth notifying about.
		log.Error().Err(err).Str("hostname", hostname).Msg("persist certificate info")
	}

	now := c.now().In(c.loc)
	days := expiry.DaysBetween(now, res.NotAfter)
	expiresOn := res.NotAfter.Format(domain.DisplayDateFormat)

	var msg string
	switch {
	case days < 0:
		msg = fmt.Sprintf("Warning! The certificate for %s (CN: %s) expired %s (%d days ago).",
			hostname, res.CommonName, expiresOn, -days)
	case days == 0:
		msg = fmt.Sprintf("Warning! The certificate for %s (CN: %s) expires today, %s.",
			hostname, res.CommonName, expiresOn)
	case days <= expiry.WarnWindowDays:
		if c.tracker.ShouldWarn(hostname, days) {
			msg = fmt.Sprintf("Warning! The certificate for %s (CN: %s) expires %s (in %d days).",
				hostname, res.CommonName, expiresOn, days)
		}
	default:
		c.tracker.Reset(hostname)
		log.Info().Str("hostname", hostname).Int("days", days).Msg("certificate healthy")
	}

	if msg != "" {
		c.dispatcher.Broadcast(ctx, msg)
	}
}
