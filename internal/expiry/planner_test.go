package expiry

import (
	"errors"
	"testing"
	"time"
)

var yekaterinburg = time.FixedZone("UTC+5", 5*3600)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, yekaterinburg)
}

func TestPlan_BothCandidatesInFuture(t *testing.T) {
	// Expiry 2025-03-10 is a Monday; seven days prior is Monday
	// 2025-03-03, no weekend adjustment.
	got, err := Plan(date(2025, 3, 10), at(2025, 3, 1, 9, 30))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d; want 2 (%v)", len(got), got)
	}
	if !got[0].Equal(date(2025, 3, 3)) || !got[1].Equal(date(2025, 3, 10)) {
		t.Fatalf("plan = %v; want [2025-03-03 2025-03-10]", got)
	}
}

func TestPlan_LeadCandidateWeekendAdjusted(t *testing.T) {
	// Expiry Saturday 2025-03-08; seven days prior is Saturday
	// 2025-03-01, adjusted back to Friday 2025-02-28.
	got, err := Plan(date(2025, 3, 8), at(2025, 2, 20, 12, 0))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !got[0].Equal(date(2025, 2, 28)) {
		t.Fatalf("lead candidate = %v; want 2025-02-28", got[0])
	}
	if !got[1].Equal(date(2025, 3, 8)) {
		t.Fatalf("expiry candidate = %v; want 2025-03-08", got[1])
	}
}

func TestPlan_TodayKeptOnlyBeforeWindow(t *testing.T) {
	// Lead candidate falls on "today". Before 09:00 it is plannable,
	// from 09:00 on it is not.
	expiry := date(2025, 3, 10)
	lead := date(2025, 3, 3)

	got, err := Plan(expiry, at(2025, 3, 3, 8, 59))
	if err != nil {
		t.Fatalf("Plan before window: %v", err)
	}
	if len(got) != 2 || !got[0].Equal(lead) {
		t.Fatalf("plan before window = %v; want lead %v included", got, lead)
	}

	got, err = Plan(expiry, at(2025, 3, 3, 9, 0))
	if err != nil {
		t.Fatalf("Plan at window open: %v", err)
	}
	if len(got) != 1 || !got[0].Equal(expiry) {
		t.Fatalf("plan at window open = %v; want only expiry date", got)
	}
}

func TestPlan_ExpiryTodayAfterWindow_NoActionableDates(t *testing.T) {
	expiry := date(2025, 3, 10)

	// Expiry is today but the window already opened; the lead
	// candidate is a week gone. Nothing left to plan.
	_, err := Plan(expiry, at(2025, 3, 10, 10, 30))
	if !errors.Is(err, ErrNoActionableDates) {
		t.Fatalf("err = %v; want ErrNoActionableDates", err)
	}

	// Same day before the window still yields the expiry-day reminder.
	got, err := Plan(expiry, at(2025, 3, 10, 7, 0))
	if err != nil {
		t.Fatalf("Plan before window on expiry day: %v", err)
	}
	if len(got) != 1 || !got[0].Equal(expiry) {
		t.Fatalf("plan = %v; want only expiry date", got)
	}
}

func TestPlan_LeadDateGoneExpiryRemains(t *testing.T) {
	got, err := Plan(date(2025, 3, 10), at(2025, 3, 7, 12, 0))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(got) != 1 || !got[0].Equal(date(2025, 3, 10)) {
		t.Fatalf("plan = %v; want only 2025-03-10", got)
	}
}
