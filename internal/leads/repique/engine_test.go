package repique

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"painel_leads_backend/internal/events"
	"painel_leads_backend/internal/leads/repository"
	"painel_leads_backend/internal/rotation"

	"github.com/google/uuid"
)

type fakeBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *fakeBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *fakeBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *fakeBus) Subscribe(string, events.Handler) {}

func (b *fakeBus) byName(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type nopLog struct{}

func (nopLog) Info(string, ...any)  {}
func (nopLog) Error(string, ...any) {}

// fakeStore keeps leads in memory and applies the same candidate filters the
// SQL store does. Reassign walks a preset user ring.
type fakeStore struct {
	mu        sync.Mutex
	companies []repository.RepiqueCompany
	leads     map[uuid.UUID]*repository.Lead
	users     []rotation.Candidate

	reassignErr map[uuid.UUID]error // per-lead injected failure
	listErr     error
	reassignLog []uuid.UUID
}

func newFakeStore(company repository.RepiqueCompany, users ...rotation.Candidate) *fakeStore {
	return &fakeStore{
		companies:   []repository.RepiqueCompany{company},
		leads:       make(map[uuid.UUID]*repository.Lead),
		users:       users,
		reassignErr: make(map[uuid.UUID]error),
	}
}

func (s *fakeStore) add(lead repository.Lead) *repository.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := lead
	s.leads[l.ID] = &l
	return &l
}

func (s *fakeStore) ListRepiqueCompanies(context.Context) ([]repository.RepiqueCompany, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.companies, nil
}

func (s *fakeStore) ListRepiqueCandidates(_ context.Context, q repository.CandidateQuery) ([]repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Lead
	for _, l := range s.leads {
		if l.CompanyID != q.CompanyID || l.Stage != q.Stage {
			continue
		}
		if l.FirstContactAt != nil || l.RepiqueCount >= q.MaxRepiques {
			continue
		}
		if !q.AssignedAfter.IsZero() && !l.AssignedAt.After(q.AssignedAfter) {
			continue
		}
		if l.AssignedAt.After(q.AssignedBefore) {
			continue
		}
		if l.CreatedAt.Before(q.DayStart) {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.Before(out[j].AssignedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *fakeStore) Reassign(_ context.Context, lead repository.Lead, _ string, now time.Time) (*repository.ReassignResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reassignErr[lead.ID]; err != nil {
		return nil, err
	}
	current, ok := s.leads[lead.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if current.OwnerUserID != lead.OwnerUserID || current.RepiqueCount != lead.RepiqueCount || current.FirstContactAt != nil {
		return nil, repository.ErrLeadChanged
	}

	var next *rotation.Candidate
	for i := range s.users {
		if s.users[i].ID != current.OwnerUserID {
			next = &s.users[i]
			break
		}
	}
	if next == nil {
		return nil, repository.ErrNoEligibleUser
	}

	from := current.OwnerUserID
	current.OwnerUserID = next.ID
	current.AssignedAt = now
	current.RepiqueCount++
	s.reassignLog = append(s.reassignLog, lead.ID)
	return &repository.ReassignResult{Lead: *current, FromUser: from, NewOwner: *next}, nil
}

func testEngine(store *fakeStore, now time.Time) (*Engine, *fakeBus) {
	bus := &fakeBus{}
	e := NewEngine(store, NopWarnGuard{}, bus, nopLog{}, 50)
	e.now = func() time.Time { return now }
	return e, bus
}

func testCompany(timeoutMinutes int) repository.RepiqueCompany {
	return repository.RepiqueCompany{ID: uuid.New(), Name: "Imobiliária Alfa", TimeoutMinutes: timeoutMinutes, InitialStage: "novo"}
}

func testLead(company repository.RepiqueCompany, owner uuid.UUID, assignedAt time.Time) repository.Lead {
	return repository.Lead{
		ID:          uuid.New(),
		CompanyID:   company.ID,
		Name:        "Maria Souza",
		Phone:       "+5511999990000",
		Stage:       company.InitialStage,
		OwnerUserID: owner,
		AssignedAt:  assignedAt,
		CreatedAt:   assignedAt,
	}
}

func TestEngineWarnsInsideWindow(t *testing.T) {
	company := testCompany(10)
	userA := rotation.Candidate{ID: uuid.New(), Name: "Ana"}
	userB := rotation.Candidate{ID: uuid.New(), Name: "Bruno"}
	store := newFakeStore(company, userA, userB)

	assignedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	lead := store.add(testLead(company, userA.ID, assignedAt))

	// 8m30s in: inside [T-2m, T-1m).
	engine, bus := testEngine(store, assignedAt.Add(8*time.Minute+30*time.Second))
	summary, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.WarningsSent != 1 {
		t.Fatalf("WarningsSent = %d, want 1", summary.WarningsSent)
	}
	if summary.Reassigned != 0 {
		t.Fatalf("Reassigned = %d, want 0", summary.Reassigned)
	}

	warnings := bus.byName("leads.repique.warning")
	if len(warnings) != 1 {
		t.Fatalf("published %d warnings, want 1", len(warnings))
	}
	w := warnings[0].(events.RepiqueWarning)
	if w.LeadID != lead.ID || w.OwnerUserID != userA.ID {
		t.Errorf("warning = %+v, want lead %s owner %s", w, lead.ID, userA.ID)
	}

	if len(summary.Warnings) != 1 || summary.Warnings[0].LeadID != lead.ID || summary.Warnings[0].Action != "warning" {
		t.Errorf("summary.Warnings = %+v, want one warning entry for lead %s", summary.Warnings, lead.ID)
	}
	if len(summary.Details) != 0 {
		t.Errorf("summary.Details = %+v, want none for a warning-only run", summary.Details)
	}
}

func TestEngineShortTimeoutSkipsWarningPhase(t *testing.T) {
	company := testCompany(2)
	userA := rotation.Candidate{ID: uuid.New(), Name: "Ana"}
	userB := rotation.Candidate{ID: uuid.New(), Name: "Bruno"}
	store := newFakeStore(company, userA, userB)

	assignedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	store.add(testLead(company, userA.ID, assignedAt))

	// 30s into a 2-minute timeout the naive warning window would already
	// cover this lead; a timeout this short gets no warning phase at all.
	engine, bus := testEngine(store, assignedAt.Add(30*time.Second))
	summary, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.WarningsSent != 0 {
		t.Fatalf("WarningsSent = %d, want 0 for a 2-minute timeout", summary.WarningsSent)
	}
	if got := bus.byName("leads.repique.warning"); len(got) != 0 {
		t.Fatalf("published %d warnings, want 0", len(got))
	}
	if summary.Reassigned != 0 {
		t.Fatalf("Reassigned = %d, want 0 before the timeout", summary.Reassigned)
	}
}

func TestEngineReassignsAfterTimeout(t *testing.T) {
	company := testCompany(10)
	userA := rotation.Candidate{ID: uuid.New(), Name: "Ana"}
	userB := rotation.Candidate{ID: uuid.New(), Name: "Bruno"}
	store := newFakeStore(company, userA, userB)

	assignedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	lead := store.add(testLead(company, userA.ID, assignedAt))

	now := assignedAt.Add(10*time.Minute + time.Second)
	engine, bus := testEngine(store, now)
	summary, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Reassigned != 1 {
		t.Fatalf("Reassigned = %d, want 1", summary.Reassigned)
	}

	moved := store.leads[lead.ID]
	if moved.OwnerUserID != userB.ID {
		t.Errorf("owner = %s, want %s", moved.OwnerUserID, userB.ID)
	}
	if moved.RepiqueCount != 1 {
		t.Errorf("repique_count = %d, want 1", moved.RepiqueCount)
	}
	if !moved.AssignedAt.Equal(now) {
		t.Errorf("assigned_at = %v, want %v (clock reset)", moved.AssignedAt, now)
	}

	reassigned := bus.byName("leads.lead.reassigned")
	if len(reassigned) != 1 {
		t.Fatalf("published %d reassignments, want 1", len(reassigned))
	}
	r := reassigned[0].(events.LeadReassigned)
	if r.FromUserID != userA.ID || r.ToUserID != userB.ID || r.Reason != ReassignReason {
		t.Errorf("reassigned event = %+v", r)
	}
}

func TestEngineFirstContactFreezesLead(t *testing.T) {
	company := testCompany(10)
	userA := rotation.Candidate{ID: uuid.New(), Name: "Ana"}
	userB := rotation.Candidate{ID: uuid.New(), Name: "Bruno"}
	store := newFakeStore(company, userA, userB)

	assignedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	lead := testLead(company, userA.ID, assignedAt)
	contact := assignedAt.Add(5 * time.Minute)
	lead.FirstContactAt = &contact
	store.add(lead)

	engine, bus := testEngine(store, assignedAt.Add(30*time.Minute))
	summary, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.WarningsSent != 0 || summary.Reassigned != 0 {
		t.Errorf("summary = %+v, want no actions", summary)
	}
	if len(bus.events) != 0 {
		t.Errorf("published %d events, want 0", len(bus.events))
	}
}

func TestEngineRespectsRepiqueCap(t *testing.T) {
	company := testCompany(10)
	userA := rotation.Candidate{ID: uuid.New(), Name: "Ana"}
	userB := rotation.Candidate{ID: uuid.New(), Name: "Bruno"}
	store := newFakeStore(company, userA, userB)

	assignedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	capped := testLead(company, userA.ID, assignedAt)
	capped.RepiqueCount = MaxRepiques
	store.add(capped)

	engine, _ := testEngine(store, assignedAt.Add(time.Hour))
	summary, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Reassigned != 0 {
		t.Errorf("Reassigned = %d, want 0", summary.Reassigned)
	}
	if got := store.leads[capped.ID].OwnerUserID; got != userA.ID {
		t.Errorf("owner = %s, want unchanged %s", got, userA.ID)
	}
}

func TestEngineSkipsLeadsFromPreviousDays(t *testing.T) {
	company := testCompany(10)
	userA := rotation.Candidate{ID: uuid.New(), Name: "Ana"}
	userB := rotation.Candidate{ID: uuid.New(), Name: "Bruno"}
	store := newFakeStore(company, userA, userB)

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	stale := testLead(company, userA.ID, now.Add(-20*time.Minute))
	stale.CreatedAt = now.Add(-24 * time.Hour)
	store.add(stale)

	fresh := store.add(testLead(company, userA.ID, now.Add(-15*time.Minute)))

	engine, _ := testEngine(store, now)
	summary, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Reassigned != 1 {
		t.Fatalf("Reassigned = %d, want 1 (fresh lead only)", summary.Reassigned)
	}
	if got := store.leads[stale.ID].OwnerUserID; got != userA.ID {
		t.Errorf("stale lead owner = %s, want unchanged", got)
	}
	if got := store.leads[fresh.ID].OwnerUserID; got != userB.ID {
		t.Errorf("fresh lead owner = %s, want %s", got, userB.ID)
	}
}

func TestEngineOneFailureDoesNotStopTheRun(t *testing.T) {
	company := testCompany(10)
	userA := rotation.Candidate{ID: uuid.New(), Name: "Ana"}
	userB := rotation.Candidate{ID: uuid.New(), Name: "Bruno"}
	store := newFakeStore(company, userA, userB)

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	broken := store.add(testLead(company, userA.ID, now.Add(-20*time.Minute)))
	store.reassignErr[broken.ID] = errors.New("deadlock detected")
	healthy := store.add(testLead(company, userA.ID, now.Add(-15*time.Minute)))

	engine, _ := testEngine(store, now)
	summary, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Reassigned != 1 {
		t.Fatalf("Reassigned = %d, want 1", summary.Reassigned)
	}
	if got := store.leads[healthy.ID].OwnerUserID; got != userB.ID {
		t.Errorf("healthy lead owner = %s, want %s", got, userB.ID)
	}

	var failed bool
	for _, d := range summary.Details {
		if d.LeadID == broken.ID && d.Err != nil {
			failed = true
		}
	}
	if !failed {
		t.Error("expected a detail entry recording the failed lead")
	}
}

func TestEngineStaleSnapshotIsSkipped(t *testing.T) {
	company := testCompany(10)
	userA := rotation.Candidate{ID: uuid.New(), Name: "Ana"}
	userB := rotation.Candidate{ID: uuid.New(), Name: "Bruno"}
	store := newFakeStore(company, userA, userB)

	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	lead := store.add(testLead(company, userA.ID, now.Add(-20*time.Minute)))
	snapshot := *lead

	// A concurrent run moves the lead between our read and the swap.
	if _, err := store.Reassign(context.Background(), snapshot, ReassignReason, now); err != nil {
		t.Fatalf("Reassign() error = %v", err)
	}

	// The stale snapshot no longer matches owner and repique count.
	if _, err := store.Reassign(context.Background(), snapshot, ReassignReason, now); !errors.Is(err, repository.ErrLeadChanged) {
		t.Fatalf("Reassign() with stale snapshot error = %v, want ErrLeadChanged", err)
	}
	if got := store.leads[lead.ID].RepiqueCount; got != 1 {
		t.Errorf("repique_count = %d, want 1", got)
	}
}
