package repique

import (
	"context"
	"errors"
	"time"

	"painel_leads_backend/internal/events"
	"painel_leads_backend/internal/leads/repository"

	"github.com/google/uuid"
)

// ReassignReason is recorded in the audit trail for automatic re-routing.
const ReassignReason = "sem contato via WhatsApp dentro do prazo"

// Store is the persistence surface the engine needs.
type Store interface {
	ListRepiqueCompanies(ctx context.Context) ([]repository.RepiqueCompany, error)
	ListRepiqueCandidates(ctx context.Context, q repository.CandidateQuery) ([]repository.Lead, error)
	Reassign(ctx context.Context, lead repository.Lead, reason string, now time.Time) (*repository.ReassignResult, error)
}

// Detail reports one action the engine took.
type Detail struct {
	LeadID   uuid.UUID
	LeadName string
	Action   string // "warning" or "repique"
	ToUserID uuid.UUID
	Err      error
}

// Summary aggregates one engine run. Warnings carries the warning-phase
// entries; Details carries the re-routing ones.
type Summary struct {
	WarningsSent int
	Reassigned   int
	Warnings     []Detail
	Details      []Detail
}

type Engine struct {
	store     Store
	guard     WarnGuard
	bus       events.Bus
	log       logInfoer
	batchSize int
	now       func() time.Time
}

type logInfoer interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

func NewEngine(store Store, guard WarnGuard, bus events.Bus, log logInfoer, batchSize int) *Engine {
	return &Engine{store: store, guard: guard, bus: bus, log: log, batchSize: batchSize, now: time.Now}
}

// Run executes one tick: over every company with automatic re-routing
// enabled, warn owners of leads nearing their timeout and re-route leads past
// it. A failure on one company or one lead never stops the rest of the run.
// Only leads created since local midnight are considered, so stale backlog
// never re-routes.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	companies, err := e.store.ListRepiqueCompanies(ctx)
	if err != nil {
		return summary, err
	}

	now := e.now()
	dayStart := startOfDay(now)

	for _, company := range companies {
		timeout := time.Duration(company.TimeoutMinutes) * time.Minute
		if err := e.runCompany(ctx, company, timeout, now, dayStart, &summary); err != nil {
			e.log.Error("repique company run failed", "company_id", company.ID, "error", err)
		}
	}
	return summary, nil
}

func (e *Engine) runCompany(ctx context.Context, company repository.RepiqueCompany, timeout time.Duration, now, dayStart time.Time, summary *Summary) error {
	deadlineFloor := now.Add(-timeout)

	// Warning phase: assigned_at in (deadlineFloor+WarningFloor, deadlineFloor+WarningWindow].
	// Skipped entirely when the timeout fits inside the warning window, since
	// the window would cover freshly assigned leads.
	if timeout > WarningWindow {
		warnable, err := e.store.ListRepiqueCandidates(ctx, repository.CandidateQuery{
			CompanyID:      company.ID,
			Stage:          company.InitialStage,
			AssignedAfter:  deadlineFloor.Add(WarningFloor),
			AssignedBefore: deadlineFloor.Add(WarningWindow),
			DayStart:       dayStart,
			MaxRepiques:    MaxRepiques,
			Limit:          e.batchSize,
		})
		if err != nil {
			return err
		}
		for _, lead := range warnable {
			if StateOf(lead.AssignedAt, lead.FirstContactAt, lead.RepiqueCount, timeout, now) != StateWarningDue {
				continue
			}
			e.warn(ctx, lead, timeout, now, summary)
		}
	}

	// Timeout phase: assigned_at at or before deadlineFloor.
	due, err := e.store.ListRepiqueCandidates(ctx, repository.CandidateQuery{
		CompanyID:      company.ID,
		Stage:          company.InitialStage,
		AssignedBefore: deadlineFloor,
		DayStart:       dayStart,
		MaxRepiques:    MaxRepiques,
		Limit:          e.batchSize,
	})
	if err != nil {
		return err
	}
	for _, lead := range due {
		if StateOf(lead.AssignedAt, lead.FirstContactAt, lead.RepiqueCount, timeout, now) != StateTimeoutDue {
			continue
		}
		e.reassign(ctx, lead, now, summary)
	}
	return nil
}

func (e *Engine) warn(ctx context.Context, lead repository.Lead, timeout time.Duration, now time.Time, summary *Summary) {
	// Guard TTL outlives the window so a slow tick cannot re-warn.
	acquired, err := e.guard.TryAcquire(ctx, lead.ID, lead.AssignedAt, timeout+WarningWindow)
	if err != nil {
		e.log.Error("warn guard failed", "lead_id", lead.ID, "error", err)
		summary.Warnings = append(summary.Warnings, Detail{LeadID: lead.ID, LeadName: lead.Name, Action: "warning", Err: err})
		return
	}
	if !acquired {
		return
	}

	remaining := lead.AssignedAt.Add(timeout).Sub(now)
	e.bus.Publish(ctx, events.RepiqueWarning{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		CompanyID:   lead.CompanyID,
		OwnerUserID: lead.OwnerUserID,
		LeadName:    lead.Name,
		Remaining:   remaining,
	})
	summary.WarningsSent++
	summary.Warnings = append(summary.Warnings, Detail{LeadID: lead.ID, LeadName: lead.Name, Action: "warning"})
	e.log.Info("repique warning sent", "lead_id", lead.ID, "owner_user_id", lead.OwnerUserID, "remaining", remaining)
}

func (e *Engine) reassign(ctx context.Context, lead repository.Lead, now time.Time, summary *Summary) {
	result, err := e.store.Reassign(ctx, lead, ReassignReason, now)
	switch {
	case errors.Is(err, repository.ErrLeadChanged):
		// A concurrent run or a just-recorded first contact got there first.
		e.log.Info("repique skipped, lead changed", "lead_id", lead.ID)
		return
	case errors.Is(err, repository.ErrNoEligibleUser):
		// Nobody else to receive it; the lead stays put and the next tick retries.
		e.log.Info("repique skipped, no eligible user", "lead_id", lead.ID, "company_id", lead.CompanyID)
		summary.Details = append(summary.Details, Detail{LeadID: lead.ID, LeadName: lead.Name, Action: "repique", Err: err})
		return
	case err != nil:
		e.log.Error("repique reassign failed", "lead_id", lead.ID, "error", err)
		summary.Details = append(summary.Details, Detail{LeadID: lead.ID, LeadName: lead.Name, Action: "repique", Err: err})
		return
	}

	e.bus.Publish(ctx, events.LeadReassigned{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       result.Lead.ID,
		CompanyID:    result.Lead.CompanyID,
		FromUserID:   result.FromUser,
		ToUserID:     result.NewOwner.ID,
		ToUserName:   result.NewOwner.Name,
		LeadName:     result.Lead.Name,
		RepiqueCount: result.Lead.RepiqueCount,
		Reason:       ReassignReason,
	})
	summary.Reassigned++
	summary.Details = append(summary.Details, Detail{LeadID: lead.ID, LeadName: lead.Name, Action: "repique", ToUserID: result.NewOwner.ID})
	e.log.Info("lead re-routed",
		"lead_id", lead.ID, "from_user_id", result.FromUser, "to_user_id", result.NewOwner.ID,
		"repique_count", result.Lead.RepiqueCount)
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
