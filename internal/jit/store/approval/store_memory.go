package approval

import (
	"context"
	"sync"

	"jitbridge/internal/jit/models"
	"jitbridge/pkg/requestcontext"
)

// InMemoryStore collects approval records for tests and dev mode.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []models.ApprovalRecord

	// createErr, when set, makes Create fail. Tests use it to prove the
	// approval record is best-effort and never fails the parent transition.
	createErr error
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// FailCreates makes subsequent Create calls return err (nil restores normal
// behavior).
func (s *InMemoryStore) FailCreates(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
}

func (s *InMemoryStore) Create(ctx context.Context, record *models.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	stored := *record
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = requestcontext.Now(ctx)
	}
	s.records = append(s.records, stored)
	return nil
}

// ListByTicket returns the approval records for a ticket, in creation order.
func (s *InMemoryStore) ListByTicket(_ context.Context, ticketID string) ([]models.ApprovalRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ApprovalRecord
	for _, r := range s.records {
		if r.TicketID == ticketID {
			out = append(out, r)
		}
	}
	return out, nil
}
