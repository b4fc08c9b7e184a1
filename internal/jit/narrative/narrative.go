// Package narrative formats event payloads into the ticket's append-only
// work-note blocks and the initial incident description. Everything here is
// pure formatting; missing optional fields drop their lines instead of
// failing, because the narrative is an audit trail that must always be
// writable.
package narrative

import (
	"strings"
	"time"

	"jitbridge/internal/jit/models"
	"jitbridge/internal/jit/timefmt"
	pstrings "jitbridge/pkg/platform/strings"
)

// CloseKind parameterizes the shared expired/revoked block. The two
// transitions differ only in narrative content and close reason.
type CloseKind string

const (
	CloseExpired CloseKind = "expired"
	CloseRevoked CloseKind = "revoked"
)

// ApprovedBlock renders the work-note block for a session approval.
func ApprovedBlock(p *models.ApprovedPayload, eventID string, now time.Time) string {
	var b strings.Builder
	b.WriteString("--- JIT SESSION APPROVED ---\n")
	b.WriteString("Session approved at: " + timefmt.Display(p.ActionedAt.String()) + "\n")
	b.WriteString("Approved by: " + p.ActionedByName + "\n")
	b.WriteString("Session ID: " + p.JITSessionID + "\n")
	if c := strings.TrimSpace(p.RequesterComment); c != "" {
		b.WriteString("Requester comment: " + c + "\n")
	}
	if c := strings.TrimSpace(p.ApproverComment); c != "" {
		b.WriteString("Approver comment: " + c + "\n")
	}
	writeTrailer(&b, eventID, now)
	return b.String()
}

// ClosedBlock renders the work-note block for a session end. Revoked names
// the revoking identity; expired reports the expiry time instead.
func ClosedBlock(kind CloseKind, expireAt, actionedAt, actionedBy, eventID string, now time.Time) string {
	var b strings.Builder
	b.WriteString("--- JIT SESSION " + strings.ToUpper(string(kind)) + " ---\n")
	if kind == CloseRevoked {
		b.WriteString("Session revoked at: " + timefmt.Display(actionedAt) + "\n")
		b.WriteString("Revoked by: " + actionedBy + "\n")
	} else {
		b.WriteString("Session expired at: " + timefmt.Display(expireAt) + "\n")
	}
	writeTrailer(&b, eventID, now)
	return b.String()
}

// SummaryBlock renders the activity-summary block, including the optional
// session snapshot when present.
func SummaryBlock(p *models.SummaryPayload, eventID string, now time.Time) string {
	var b strings.Builder
	b.WriteString("--- JIT SESSION ACTIVITY SUMMARY ---\n")
	b.WriteString("Summary created at: " + timefmt.Now(now) + "\n")
	b.WriteString("Event ID: " + eventID + "\n")
	b.WriteString("Summary ID: " + orUnknown(p.Summary.ID) + "\n")
	b.WriteString("Summary Status: " + orUnknown(p.Summary.Status) + "\n")
	if regions := pstrings.DedupeAndTrim(p.Summary.Regions); len(regions) > 0 {
		b.WriteString("Regions Accessed: " + strings.Join(regions, ", ") + "\n")
	}
	if p.Summary.Summary != "" {
		b.WriteString("\nActivity Summary:\n" + p.Summary.Summary + "\n")
	}
	if s := p.Session; s != nil {
		b.WriteString("\nSession Details:\n")
		if s.Identity != "" {
			b.WriteString("- Identity: " + s.Identity + "\n")
		}
		if s.Scope != "" {
			b.WriteString("- Scope: " + s.Scope + "\n")
		}
		if s.PermissionSet != nil && s.PermissionSet.Name != "" {
			b.WriteString("- Permission Set: " + s.PermissionSet.Name + "\n")
		}
		if s.PondRequestID != "" {
			b.WriteString("- Pond Request ID: " + s.PondRequestID + "\n")
		}
		if s.ApprovedAt != "" {
			b.WriteString("- Approved At: " + timefmt.Display(s.ApprovedAt.String()) + "\n")
		}
		if s.Expiry != "" {
			b.WriteString("- Expired At: " + timefmt.Display(s.Expiry.String()) + "\n")
		}
	}
	return b.String()
}

// ApprovedDescription renders the incident description for a new ticket.
func ApprovedDescription(p *models.ApprovedPayload) string {
	var b strings.Builder
	b.WriteString("JIT Access Request Approved\n\n")
	b.WriteString("Request Details:\n")
	b.WriteString("- Requester: " + p.IdentityFriendlyName + " (" + p.RequesterEmail + ")\n")
	b.WriteString("- Account: " + p.AccountFriendlyName + " (" + p.Account + ")\n")
	b.WriteString("- Organization Scope: " + p.ScopeFriendlyName + "\n")
	b.WriteString("- Session Duration: " + p.RequestedDuration.String() + " hours\n")
	b.WriteString("- JIT Session ID: " + p.JITSessionID + "\n")
	b.WriteString("- PoD Request ID: " + p.PondRequestID + "\n")
	b.WriteString("- Expires At: " + timefmt.Display(p.ExpireAt.String()) + "\n")
	b.WriteString("- Revoke At: " + timefmt.Display(p.RevokeAt.String()) + "\n\n")

	b.WriteString("Approval Details:\n")
	b.WriteString("- Approved By: " + p.ActionedByName + "\n")
	b.WriteString("- Approved At: " + timefmt.Display(p.ActionedAt.String()) + "\n")
	b.WriteString("- Time to Completion: " + p.TimeToCompletion.String() + "ms\n")

	hasComments := false
	if c := strings.TrimSpace(p.RequesterComment); c != "" {
		b.WriteString("- Requester Comment: " + c + "\n")
		hasComments = true
	}
	if c := strings.TrimSpace(p.ApproverComment); c != "" {
		b.WriteString("- Approver Comment: " + c + "\n")
		hasComments = true
	}
	if !hasComments {
		b.WriteString("- Comments: No comments provided\n")
	}

	b.WriteString("\nThis incident will be updated when the JIT session expires or is revoked.")
	return b.String()
}

// ShortDescription renders the incident title for a new ticket.
func ShortDescription(p *models.ApprovedPayload) string {
	return "JIT Access Approved: " + p.IdentityFriendlyName + " - " + p.ScopeFriendlyName
}

func writeTrailer(b *strings.Builder, eventID string, now time.Time) {
	b.WriteString("Event processed at: " + timefmt.Now(now) + "\n")
	b.WriteString("Event ID: " + eventID + "\n")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
