package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// startupDelay is how long after process start the first run of each
// cycle fires, ahead of its regular interval.
const startupDelay = 10 * time.Second

// Scheduler owns the cron timers driving both cycles. The license
// interval must stay below one hour: the daily send window is only one
// hour wide and a slower tick could miss it entirely.
type Scheduler struct {
	cron    *cron.Cron
	license *LicenseCycle
	cert    *CertCycle

	licenseInterval time.Duration
	certInterval    time.Duration

	log zerolog.Logger
}

// New constructs a Scheduler for the given cycles and intervals.
func New(license *LicenseCycle, cert *CertCycle, licenseInterval, certInterval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(),
		license:         license,
		cert:            cert,
		licenseInterval: licenseInterval,
		certInterval:    certInterval,
		log:             log,
	}
}

// Start registers both cycles and starts the timers. The first run of
// each cycle fires shortly after start rather than waiting a full
// interval. Returns without blocking.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.licenseInterval), func() {
		s.license.Run(ctx)
	}); err != nil {
		return fmt.Errorf("schedule license cycle: %w", err)
	}
	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.certInterval), func() {
		s.cert.Run(ctx)
	}); err != nil {
		return fmt.Errorf("schedule certificate cycle: %w", err)
	}

	s.cron.Start()
	s.log.Info().
		Dur("license_interval", s.licenseInterval).
		Dur("cert_interval", s.certInterval).
		Msg("scheduler started")

	go func() {
		select {
		case <-time.After(startupDelay):
			s.license.Run(ctx)
			s.cert.Run(ctx)
		case <-ctx.Done():
		}
	}()

	return nil
}

// Stop halts the timers and waits for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}
