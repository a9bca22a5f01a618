package repique

import (
	"testing"
	"time"
)

func TestStateOf(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	timeout := 10 * time.Minute
	contact := base.Add(3 * time.Minute)

	tests := []struct {
		name           string
		firstContactAt *time.Time
		repiqueCount   int
		now            time.Time
		want           State
	}{
		{"just assigned", nil, 0, base.Add(time.Second), StateWaiting},
		{"before warning window", nil, 0, base.Add(7*time.Minute + 59*time.Second), StateWaiting},
		{"warning window opens", nil, 0, base.Add(8 * time.Minute), StateWarningDue},
		{"inside warning window", nil, 0, base.Add(8*time.Minute + 30*time.Second), StateWarningDue},
		{"warning window closes", nil, 0, base.Add(9 * time.Minute), StateWaiting},
		{"just before timeout", nil, 0, base.Add(10*time.Minute - time.Second), StateWaiting},
		{"at timeout", nil, 0, base.Add(10 * time.Minute), StateTimeoutDue},
		{"past timeout", nil, 0, base.Add(25 * time.Minute), StateTimeoutDue},
		{"contacted before timeout", &contact, 0, base.Add(15 * time.Minute), StateFrozen},
		{"contacted inside warning window", &contact, 0, base.Add(8*time.Minute + 30*time.Second), StateFrozen},
		{"cap reached", nil, MaxRepiques, base.Add(30 * time.Minute), StateFrozen},
		{"one below cap still routes", nil, MaxRepiques - 1, base.Add(30 * time.Minute), StateTimeoutDue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StateOf(base, tt.firstContactAt, tt.repiqueCount, timeout, tt.now)
			if got != tt.want {
				t.Errorf("StateOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateOfShortTimeoutNeverWarns(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// With a timeout at or under the warning window the window would start at
	// or before the assignment, so these leads go straight from waiting to
	// timed out.
	tests := []struct {
		name    string
		timeout time.Duration
		elapsed time.Duration
		want    State
	}{
		{"2m timeout, just assigned", 2 * time.Minute, 30 * time.Second, StateWaiting},
		{"2m timeout, would-be warning slot", 2 * time.Minute, 59 * time.Second, StateWaiting},
		{"2m timeout, expires", 2 * time.Minute, 2 * time.Minute, StateTimeoutDue},
		{"1m timeout, just assigned", time.Minute, 10 * time.Second, StateWaiting},
		{"3m timeout still warns", 3 * time.Minute, 90 * time.Second, StateWarningDue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StateOf(base, nil, 0, tt.timeout, base.Add(tt.elapsed))
			if got != tt.want {
				t.Errorf("StateOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateOfClockResetsOnReassignment(t *testing.T) {
	timeout := 10 * time.Minute
	firstAssigned := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	reassigned := firstAssigned.Add(10 * time.Minute)

	// 5 minutes after the reassignment the lead is waiting again even though
	// 15 minutes passed since the original assignment.
	now := reassigned.Add(5 * time.Minute)
	if got := StateOf(reassigned, nil, 1, timeout, now); got != StateWaiting {
		t.Errorf("StateOf() after reassignment = %v, want %v", got, StateWaiting)
	}
}
