package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/expirywatch/expirybot/internal/domain"
	"github.com/expirywatch/expirybot/internal/probe"
)

// ----- Fakes -----

type fakeHostSource struct {
	mu      sync.Mutex
	items   []domain.MonitoredHost
	listErr error

	updates   []string
	updateErr error
}

func (f *fakeHostSource) List(context.Context) ([]domain.MonitoredHost, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.listErr
}

func (f *fakeHostSource) UpdateCert(_ context.Context, hostname string, notAfter time.Time, commonName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, hostname)
	return f.updateErr
}

// fakeProber serves a fixed expiry per host, or a scripted sequence of
// expiries consumed one per probe.
type fakeProber struct {
	mu       sync.Mutex
	expiries map[string][]time.Time
	failing  map[string]error
}

func (f *fakeProber) Probe(_ context.Context, hostname string) (probe.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failing[hostname]; ok {
		return probe.Result{}, err
	}
	seq := f.expiries[hostname]
	if len(seq) == 0 {
		return probe.Result{}, fmt.Errorf("no scripted result for %s", hostname)
	}
	notAfter := seq[0]
	if len(seq) > 1 {
		f.expiries[hostname] = seq[1:]
	}
	return probe.Result{NotAfter: notAfter, CommonName: hostname}, nil
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
}

func (f *fakeBroadcaster) messagesContaining(sub string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.msgs {
		if strings.Contains(m, sub) {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

func newCertCycleAt(hosts HostSource, prober CertProber, bc Broadcaster, now time.Time) *CertCycle {
	c := NewCertCycle(hosts, prober, bc, testLoc, zerolog.Nop())
	c.now = func() time.Time { return now }
	return c
}

// ----- Tests -----

func TestCertCycle_WarnOnceUntilDaysChange(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, testLoc)
	inDays := func(d int) time.Time { return now.Add(time.Duration(d) * 24 * time.Hour) }

	hosts := &fakeHostSource{items: []domain.MonitoredHost{{Hostname: "example.com"}}}
	prober := &fakeProber{expiries: map[string][]time.Time{
		"example.com": {inDays(9), inDays(6), inDays(6), inDays(4), inDays(11), inDays(5)},
	}}
	bc := &fakeBroadcaster{}

	c := newCertCycleAt(hosts, prober, bc, now)
	for i := 0; i < 6; i++ {
		c.Run(context.Background())
	}

	warnings := bc.messagesContaining("expires")
	if len(warnings) != 3 {
		t.Fatalf("warnings = %d (%v); want exactly 3 for the 6, 4, 5 day values", len(warnings), warnings)
	}
	for i, days := range []int{6, 4, 5} {
		want := fmt.Sprintf("in %d days", days)
		if !strings.Contains(warnings[i], want) {
			t.Fatalf("warning %d = %q; want %q", i, warnings[i], want)
		}
	}
}

func TestCertCycle_ExpiredAndTodayRepeatEveryCycle(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, testLoc)
	hosts := &fakeHostSource{items: []domain.MonitoredHost{
		{Hostname: "gone.example.com"},
		{Hostname: "today.example.com"},
	}}
	prober := &fakeProber{expiries: map[string][]time.Time{
		"gone.example.com":  {now.Add(-3 * 24 * time.Hour)},
		"today.example.com": {now.Add(2 * time.Hour)},
	}}
	bc := &fakeBroadcaster{}

	c := newCertCycleAt(hosts, prober, bc, now)
	c.Run(context.Background())
	c.Run(context.Background())

	if got := bc.messagesContaining("3 days ago"); len(got) != 2 {
		t.Fatalf("expired notices = %d (%v); want one per cycle", len(got), got)
	}
	if got := bc.messagesContaining("expires today"); len(got) != 2 {
		t.Fatalf("expires-today notices = %d (%v); want one per cycle", len(got), got)
	}
}

func TestCertCycle_HealthyHostStaysSilentAndResets(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, testLoc)
	hosts := &fakeHostSource{items: []domain.MonitoredHost{{Hostname: "example.com"}}}
	prober := &fakeProber{expiries: map[string][]time.Time{
		// Warn at 5 days, renew past the window, then decay back to 5.
		"example.com": {
			now.Add(5 * 24 * time.Hour),
			now.Add(60 * 24 * time.Hour),
			now.Add(5 * 24 * time.Hour),
		},
	}}
	bc := &fakeBroadcaster{}

	c := newCertCycleAt(hosts, prober, bc, now)
	c.Run(context.Background())
	c.Run(context.Background())
	c.Run(context.Background())

	warnings := bc.messagesContaining("in 5 days")
	if len(warnings) != 2 {
		t.Fatalf("warnings = %d (%v); want the 5-day warning re-armed after renewal", len(warnings), warnings)
	}
	if bc.count() != 2 {
		t.Fatalf("broadcasts = %d; the healthy cycle must stay silent", bc.count())
	}
}

func TestCertCycle_ProbeFailureIsolatedAndLeavesTrackerUntouched(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, testLoc)
	hosts := &fakeHostSource{items: []domain.MonitoredHost{
		{Hostname: "down.example.com"},
		{Hostname: "up.example.com"},
	}}
	prober := &fakeProber{
		expiries: map[string][]time.Time{
			"up.example.com": {now.Add(4 * 24 * time.Hour)},
		},
		failing: map[string]error{
			"down.example.com": errors.New("connection refused"),
		},
	}
	bc := &fakeBroadcaster{}

	c := newCertCycleAt(hosts, prober, bc, now)
	// Arm the tracker for the failing host, then break it.
	c.tracker.ShouldWarn("down.example.com", 4)
	c.Run(context.Background())

	if got := bc.messagesContaining("Certificate check failed for down.example.com"); len(got) != 1 {
		t.Fatalf("failure notices = %v; want one", got)
	}
	if got := bc.messagesContaining("up.example.com (CN: up.example.com) expires"); len(got) != 1 {
		t.Fatalf("healthy host warning = %v; the failure must not affect it", got)
	}
	if c.tracker.ShouldWarn("down.example.com", 4) {
		t.Fatal("failed probe must not reset the suppression state")
	}

	updates := hosts.updates
	if len(updates) != 1 || updates[0] != "up.example.com" {
		t.Fatalf("updates = %v; only the successful probe persists", updates)
	}
}

func TestCertCycle_PersistFailureStillNotifies(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, testLoc)
	hosts := &fakeHostSource{
		items:     []domain.MonitoredHost{{Hostname: "example.com"}},
		updateErr: errors.New("disk full"),
	}
	prober := &fakeProber{expiries: map[string][]time.Time{
		"example.com": {now.Add(3 * 24 * time.Hour)},
	}}
	bc := &fakeBroadcaster{}

	c := newCertCycleAt(hosts, prober, bc, now)
	c.Run(context.Background())

	if got := bc.messagesContaining("in 3 days"); len(got) != 1 {
		t.Fatalf("warnings = %v; persistence failure must not swallow the notice", got)
	}
}

func TestCertCycle_ListFailureAborts(t *testing.T) {
	hosts := &fakeHostSource{listErr: errors.New("db locked")}
	bc := &fakeBroadcaster{}

	c := newCertCycleAt(hosts, &fakeProber{}, bc, time.Now())
	c.Run(context.Background())

	if bc.count() != 0 {
		t.Fatalf("broadcasts = %d; want none when the host list is unavailable", bc.count())
	}
}
