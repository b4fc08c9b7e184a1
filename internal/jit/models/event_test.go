package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "jitbridge/pkg/domain-errors"
)

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{"valid approved", Event{EventName: EventApproved, EventID: "evt-1"}, false},
		{"valid summary", Event{EventName: EventSummaryCreated, EventID: "evt-2"}, false},
		{"missing event id", Event{EventName: EventApproved}, true},
		{"missing event name", Event{EventID: "evt-3"}, true},
		{"unknown event name", Event{EventName: "jit.paused", EventID: "evt-4"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEpochMillisTolerance(t *testing.T) {
	type doc struct {
		At EpochMillis `json:"at"`
	}

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"number", `{"at": 1773570600000}`, "1773570600000"},
		{"numeric string", `{"at": "1773570600000"}`, "1773570600000"},
		{"iso string passes through", `{"at": "2026-03-15T10:30:00Z"}`, "2026-03-15T10:30:00Z"},
		{"null becomes empty", `{"at": null}`, ""},
		{"boolean never fails decode", `{"at": true}`, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d doc
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &d))
			assert.Equal(t, tt.want, d.At.String())
		})
	}
}

func TestDecodeApproved(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		p, err := DecodeApproved(json.RawMessage(`{
			"jitSessionId": "sess-1",
			"pondRequestId": "pond-1",
			"identityFriendlyName": "Jordan Reyes",
			"requestedDuration": 4,
			"actionedByFriendlyName": "approver@example.com",
			"comment": "ok"
		}`))
		require.NoError(t, err)
		assert.Equal(t, "sess-1", p.JITSessionID)
		assert.Equal(t, "4", p.RequestedDuration.String())
		assert.Equal(t, "ok", p.ApproverComment)
	})

	t.Run("missing session id", func(t *testing.T) {
		_, err := DecodeApproved(json.RawMessage(`{"pondRequestId": "pond-1"}`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeApproved(json.RawMessage(`{`))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func TestDecodeSummary(t *testing.T) {
	t.Run("session id lives under summary", func(t *testing.T) {
		p, err := DecodeSummary(json.RawMessage(`{
			"summary": {"sessionId": "sess-1", "id": "sum-1", "status": "done"}
		}`))
		require.NoError(t, err)
		assert.Equal(t, "sess-1", p.Summary.SessionID)
		assert.Nil(t, p.Session)
	})

	t.Run("missing summary object", func(t *testing.T) {
		_, err := DecodeSummary(json.RawMessage(`{"session": {"identity": "jordan"}}`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))

		var de *dErrors.Error
		require.ErrorAs(t, err, &de)
		assert.Equal(t, false, de.Details["has_summary"])
	})

	t.Run("summary without session id", func(t *testing.T) {
		_, err := DecodeSummary(json.RawMessage(`{"summary": {"id": "sum-1"}}`))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
