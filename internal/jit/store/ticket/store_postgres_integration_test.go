//go:build integration

package ticket_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"jitbridge/internal/jit/models"
	"jitbridge/internal/jit/store/ticket"
	"jitbridge/pkg/platform/sentinel"
	"jitbridge/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *ticket.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = ticket.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "jit_ticket_work_notes", "jit_tickets")
	s.Require().NoError(err)
}

func newTestTicket(sessionID string) *models.Ticket {
	return &models.Ticket{
		State:            models.StateInProgress,
		CorrelationID:    sessionID,
		ShortDescription: "JIT Access Approved: Jordan Reyes - Payments OU",
		Category:         "Security",
		Subcategory:      "Access Management",
		WorkNotes:        []string{"--- JIT SESSION APPROVED ---\nSession ID: " + sessionID + "\n"},
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	sessionID := "sess-" + uuid.NewString()

	ref, err := s.store.Create(ctx, newTestTicket(sessionID))
	s.Require().NoError(err)
	s.NotEmpty(ref.ID)
	s.Regexp(`^INC\d{7}$`, ref.Number)

	got, err := s.store.Get(ctx, ref.ID)
	s.Require().NoError(err)
	s.Equal(sessionID, got.CorrelationID)
	s.Equal(models.StateInProgress, got.State)
	s.Require().Len(got.WorkNotes, 1)
	s.Contains(got.WorkNotes[0], "JIT SESSION APPROVED")
	s.False(got.CreatedAt.IsZero())
}

func (s *PostgresStoreSuite) TestFindByCorrelationID() {
	ctx := context.Background()
	sessionID := "sess-" + uuid.NewString()

	s.Run("miss returns nil without error", func() {
		ref, err := s.store.FindByCorrelationID(ctx, sessionID)
		s.NoError(err)
		s.Nil(ref)
	})

	s.Run("hit returns the ticket ref", func() {
		created, err := s.store.Create(ctx, newTestTicket(sessionID))
		s.Require().NoError(err)

		ref, err := s.store.FindByCorrelationID(ctx, sessionID)
		s.Require().NoError(err)
		s.Require().NotNil(ref)
		s.Equal(created.ID, ref.ID)
		s.Equal(models.StateInProgress, ref.State)
	})
}

// TestConcurrentDuplicateCreate verifies that concurrent creates for the same
// session id produce exactly one ticket, with every loser seeing a conflict.
func (s *PostgresStoreSuite) TestConcurrentDuplicateCreate() {
	ctx := context.Background()
	sessionID := "sess-race-" + uuid.NewString()
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Create(ctx, newTestTicket(sessionID))
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict")

	ref, err := s.store.FindByCorrelationID(ctx, sessionID)
	s.Require().NoError(err)
	s.NotNil(ref)
}

func (s *PostgresStoreSuite) TestUpdate() {
	ctx := context.Background()
	sessionID := "sess-" + uuid.NewString()

	ref, err := s.store.Create(ctx, newTestTicket(sessionID))
	s.Require().NoError(err)

	s.Run("transition writes state, notes and close fields", func() {
		state := models.StateResolved
		closeNotes := "JIT session expired"
		closeCode := "Closed/Resolved by caller"
		err := s.store.Update(ctx, ref.ID, models.TicketUpdate{
			State:          &state,
			AppendWorkNote: "--- JIT SESSION EXPIRED ---\n",
			CloseNotes:     &closeNotes,
			CloseCode:      &closeCode,
		}, false)
		s.Require().NoError(err)

		got, err := s.store.Get(ctx, ref.ID)
		s.Require().NoError(err)
		s.Equal(models.StateResolved, got.State)
		s.Equal(closeNotes, got.CloseNotes)
		s.Require().Len(got.WorkNotes, 2)
		s.Contains(got.WorkNotes[1], "SESSION EXPIRED")
	})

	s.Run("suppressed workflow update still writes", func() {
		state := models.StateClosed
		err := s.store.Update(ctx, ref.ID, models.TicketUpdate{
			State:          &state,
			AppendWorkNote: "--- JIT SESSION ACTIVITY SUMMARY ---\n",
		}, true)
		s.Require().NoError(err)

		got, err := s.store.Get(ctx, ref.ID)
		s.Require().NoError(err)
		s.Equal(models.StateClosed, got.State)
		s.Len(got.WorkNotes, 3)
	})

	s.Run("append-only ordering survives concurrent notes", func() {
		const writers = 10
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = s.store.Update(ctx, ref.ID, models.TicketUpdate{
					AppendWorkNote: "concurrent note",
				}, false)
			}()
		}
		wg.Wait()

		got, err := s.store.Get(ctx, ref.ID)
		s.Require().NoError(err)
		s.Len(got.WorkNotes, 3+writers)
	})

	s.Run("unknown ticket returns not found", func() {
		err := s.store.Update(ctx, uuid.NewString(), models.TicketUpdate{
			AppendWorkNote: "orphan note",
		}, false)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
