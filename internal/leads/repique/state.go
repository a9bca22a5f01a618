// Package repique implements automatic lead re-routing: leads not contacted
// within the company's timeout are warned about and then moved to the next
// user in the rotation.
package repique

import "time"

// MaxRepiques caps how many times a single lead can be re-routed.
const MaxRepiques = 3

// WarningWindow is how long before the timeout the owner gets warned.
// Warnings fire once per assignment while now falls in
// [assignedAt+timeout-WarningWindow, assignedAt+timeout-WarningFloor).
const (
	WarningWindow = 2 * time.Minute
	WarningFloor  = 1 * time.Minute
)

// State classifies a lead's position in the repique lifecycle.
type State int

const (
	// StateWaiting: inside the timeout, nothing to do yet.
	StateWaiting State = iota
	// StateWarningDue: inside the warning window, owner should be notified.
	StateWarningDue
	// StateTimeoutDue: timeout elapsed, lead should be re-routed.
	StateTimeoutDue
	// StateFrozen: first contact recorded or repique cap reached, lead no
	// longer participates in re-routing.
	StateFrozen
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateWarningDue:
		return "warning_due"
	case StateTimeoutDue:
		return "timeout_due"
	case StateFrozen:
		return "frozen"
	default:
		return "unknown"
	}
}

// StateOf classifies a lead given its assignment time, first contact marker,
// current repique count, and the company timeout. The clock resets on every
// reassignment because assignedAt is rewritten then. Timeouts at or under
// WarningWindow never produce StateWarningDue: the window would start at or
// before the assignment itself.
func StateOf(assignedAt time.Time, firstContactAt *time.Time, repiqueCount int, timeout time.Duration, now time.Time) State {
	if firstContactAt != nil || repiqueCount >= MaxRepiques {
		return StateFrozen
	}
	deadline := assignedAt.Add(timeout)
	if !now.Before(deadline) {
		return StateTimeoutDue
	}
	if timeout > WarningWindow && !now.Before(deadline.Add(-WarningWindow)) && now.Before(deadline.Add(-WarningFloor)) {
		return StateWarningDue
	}
	return StateWaiting
}
