package ticket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"jitbridge/internal/jit/models"
	"jitbridge/pkg/platform/sentinel"
	"jitbridge/pkg/requestcontext"
)

// InMemoryStore keeps tickets in a map guarded by a mutex. It enforces the
// correlation-id uniqueness invariant at create, like the UNIQUE constraint
// in the postgres store, so the duplicate-approved race behaves the same in
// tests and dev mode as in production.
type InMemoryStore struct {
	mu        sync.RWMutex
	tickets   map[string]*models.Ticket // keyed by ticket id
	bySession map[string]string         // correlation id -> ticket id
	seq       int

	// workflowHook runs on every non-suppressed update, standing in for the
	// ticketing system's workflow engine. Tests set it to simulate update
	// rejection and exercise the force-write retry.
	workflowHook func(*models.Ticket, models.TicketUpdate) error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tickets:   make(map[string]*models.Ticket),
		bySession: make(map[string]string),
	}
}

// SetWorkflowHook installs a hook invoked on updates unless workflow side
// effects are suppressed.
func (s *InMemoryStore) SetWorkflowHook(hook func(*models.Ticket, models.TicketUpdate) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflowHook = hook
}

func (s *InMemoryStore) Create(ctx context.Context, t *models.Ticket) (*models.TicketRef, error) {
	if t == nil || t.CorrelationID == "" {
		return nil, fmt.Errorf("ticket with correlation id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bySession[t.CorrelationID]; exists {
		return nil, sentinel.ErrConflict
	}

	now := requestcontext.Now(ctx)
	stored := cloneTicket(t)
	stored.ID = uuid.NewString()
	s.seq++
	stored.Number = fmt.Sprintf("INC%07d", s.seq)
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.tickets[stored.ID] = stored
	s.bySession[stored.CorrelationID] = stored.ID
	return stored.Ref(), nil
}

func (s *InMemoryStore) FindByCorrelationID(_ context.Context, correlationID string) (*models.TicketRef, error) {
	if correlationID == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticketID, ok := s.bySession[correlationID]
	if !ok {
		return nil, nil
	}
	return s.tickets[ticketID].Ref(), nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tickets[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneTicket(t), nil
}

func (s *InMemoryStore) Update(ctx context.Context, id string, update models.TicketUpdate, suppressWorkflow bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[id]
	if !ok {
		return sentinel.ErrNotFound
	}

	if !suppressWorkflow && s.workflowHook != nil {
		if err := s.workflowHook(t, update); err != nil {
			return err
		}
	}

	applyUpdate(t, update, requestcontext.Now(ctx))
	return nil
}

func applyUpdate(t *models.Ticket, update models.TicketUpdate, now time.Time) {
	if update.AppendWorkNote != "" {
		t.WorkNotes = append(t.WorkNotes, update.AppendWorkNote)
	}
	if update.State != nil {
		t.State = *update.State
	}
	if update.CloseNotes != nil {
		t.CloseNotes = *update.CloseNotes
	}
	if update.CloseCode != nil {
		t.CloseCode = *update.CloseCode
	}
	if update.ResolvedAt != nil {
		t.ResolvedAt = update.ResolvedAt
	}
	if update.ResolvedBy != nil {
		t.ResolvedBy = *update.ResolvedBy
	}
	if update.ClosedAt != nil {
		t.ClosedAt = update.ClosedAt
	}
	t.UpdatedAt = now
}

func cloneTicket(t *models.Ticket) *models.Ticket {
	clone := *t
	clone.WorkNotes = append([]string(nil), t.WorkNotes...)
	if t.ResolvedAt != nil {
		resolvedAt := *t.ResolvedAt
		clone.ResolvedAt = &resolvedAt
	}
	if t.ClosedAt != nil {
		closedAt := *t.ClosedAt
		clone.ClosedAt = &closedAt
	}
	return &clone
}
