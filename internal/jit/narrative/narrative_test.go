package narrative

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"jitbridge/internal/jit/models"
)

var processedAt = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func approvedPayload() *models.ApprovedPayload {
	return &models.ApprovedPayload{
		JITSessionID:         "sess-1",
		PondRequestID:        "pond-1",
		IdentityFriendlyName: "Jordan Reyes",
		RequesterEmail:       "jordan.reyes@example.com",
		Account:              "123456789012",
		AccountFriendlyName:  "prod-payments",
		ScopeFriendlyName:    "Payments OU",
		RequestedDuration:    "4",
		ExpireAt:             "1773570600000",
		ActionedAt:           "1773556200000",
		ActionedByName:       "approver@example.com",
	}
}

func TestApprovedBlock(t *testing.T) {
	t.Run("includes comments when present", func(t *testing.T) {
		p := approvedPayload()
		p.RequesterComment = "deploying hotfix"
		p.ApproverComment = "approved for incident response"

		block := ApprovedBlock(p, "evt-1", processedAt)
		assert.True(t, strings.HasPrefix(block, "--- JIT SESSION APPROVED ---\n"))
		assert.Contains(t, block, "Approved by: approver@example.com")
		assert.Contains(t, block, "Session ID: sess-1")
		assert.Contains(t, block, "Requester comment: deploying hotfix")
		assert.Contains(t, block, "Approver comment: approved for incident response")
		assert.Contains(t, block, "Event processed at: 2026-03-15 10:30:00")
		assert.Contains(t, block, "Event ID: evt-1")
	})

	t.Run("drops blank comment lines", func(t *testing.T) {
		p := approvedPayload()
		p.RequesterComment = "   "

		block := ApprovedBlock(p, "evt-1", processedAt)
		assert.NotContains(t, block, "Requester comment:")
		assert.NotContains(t, block, "Approver comment:")
	})
}

func TestClosedBlock(t *testing.T) {
	t.Run("expired reports expiry time", func(t *testing.T) {
		block := ClosedBlock(CloseExpired, "1773570600000", "", "", "evt-2", processedAt)
		assert.True(t, strings.HasPrefix(block, "--- JIT SESSION EXPIRED ---\n"))
		assert.Contains(t, block, "Session expired at: 2026-03-15 10:30:00")
		assert.NotContains(t, block, "Revoked by")
	})

	t.Run("revoked names the actor", func(t *testing.T) {
		block := ClosedBlock(CloseRevoked, "", "1773560000000", "security-team@example.com", "evt-3", processedAt)
		assert.True(t, strings.HasPrefix(block, "--- JIT SESSION REVOKED ---\n"))
		assert.Contains(t, block, "Revoked by: security-team@example.com")
		assert.NotContains(t, block, "expired at")
	})

	t.Run("missing timestamp renders Unknown", func(t *testing.T) {
		block := ClosedBlock(CloseExpired, "", "", "", "evt-4", processedAt)
		assert.Contains(t, block, "Session expired at: Unknown")
	})
}

func TestSummaryBlock(t *testing.T) {
	t.Run("full payload renders all sections", func(t *testing.T) {
		p := &models.SummaryPayload{
			Summary: &models.SessionSummary{
				SessionID: "sess-1",
				ID:        "sum-900",
				Status:    "done",
				Regions:   []string{"us-east-1", "eu-west-1"},
				Summary:   "Listed S3 buckets.",
			},
			Session: &models.SessionSnapshot{
				Identity:      "jordan.reyes",
				Scope:         "Payments OU",
				PermissionSet: &models.NamedRef{Name: "PowerUserAccess"},
				PondRequestID: "pond-1",
				ApprovedAt:    "1773556200000",
				Expiry:        "1773570600000",
			},
		}

		block := SummaryBlock(p, "evt-5", processedAt)
		assert.True(t, strings.HasPrefix(block, "--- JIT SESSION ACTIVITY SUMMARY ---\n"))
		assert.Contains(t, block, "Summary ID: sum-900")
		assert.Contains(t, block, "Regions Accessed: us-east-1, eu-west-1")
		assert.Contains(t, block, "Activity Summary:\nListed S3 buckets.")
		assert.Contains(t, block, "- Permission Set: PowerUserAccess")
		assert.Contains(t, block, "- Expired At: 2026-03-15 10:30:00")
	})

	t.Run("minimal payload drops optional sections", func(t *testing.T) {
		p := &models.SummaryPayload{
			Summary: &models.SessionSummary{SessionID: "sess-1"},
		}

		block := SummaryBlock(p, "evt-6", processedAt)
		assert.Contains(t, block, "Summary ID: Unknown")
		assert.Contains(t, block, "Summary Status: Unknown")
		assert.NotContains(t, block, "Regions Accessed")
		assert.NotContains(t, block, "Session Details")
	})
}

func TestApprovedDescription(t *testing.T) {
	t.Run("renders request and approval details", func(t *testing.T) {
		desc := ApprovedDescription(approvedPayload())
		assert.Contains(t, desc, "- Requester: Jordan Reyes (jordan.reyes@example.com)")
		assert.Contains(t, desc, "- Account: prod-payments (123456789012)")
		assert.Contains(t, desc, "- Session Duration: 4 hours")
		assert.Contains(t, desc, "- Comments: No comments provided")
	})

	t.Run("comments replace the placeholder", func(t *testing.T) {
		p := approvedPayload()
		p.ApproverComment = "low risk"
		desc := ApprovedDescription(p)
		assert.Contains(t, desc, "- Approver Comment: low risk")
		assert.NotContains(t, desc, "No comments provided")
	})
}

func TestShortDescription(t *testing.T) {
	assert.Equal(t,
		"JIT Access Approved: Jordan Reyes - Payments OU",
		ShortDescription(approvedPayload()),
	)
}
