package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "jitbridge/pkg/domain-errors"
)

func newTestService() *JWTService {
	return NewJWTService("test-signing-key", "jitbridge-test", "jitbridge")
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateToken("event-source", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.NoError(t, svc.ValidateToken(token))
}

func TestValidateTokenRejections(t *testing.T) {
	svc := newTestService()

	t.Run("expired token", func(t *testing.T) {
		token, err := svc.GenerateToken("event-source", -time.Minute)
		require.NoError(t, err)

		err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewJWTService("different-key", "jitbridge-test", "jitbridge")
		token, err := other.GenerateToken("event-source", time.Hour)
		require.NoError(t, err)

		err = svc.ValidateToken(token)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("garbage token", func(t *testing.T) {
		err := svc.ValidateToken("not.a.jwt")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
