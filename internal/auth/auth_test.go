package auth

import (
	"testing"
	"time"

	"github.com/Walefa/FOOD-DISASTER-MANAGMENT/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 30*time.Minute, nil)
	token, err := m.GenerateAccessToken(&models.User{ID: 42, Username: "amina", Role: models.RoleEmergencyResponder})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID())
	assert.Equal(t, "amina", claims.Username)
	assert.Equal(t, models.RoleEmergencyResponder, claims.Role)
}

func TestTokenRejected(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewJWTManager("secret", time.Minute, clock)
	token, err := m.GenerateAccessToken(&models.User{ID: 1, Username: "u", Role: models.RoleNGO})
	require.NoError(t, err)

	other := NewJWTManager("other", time.Minute, clock)
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.Advance(2 * time.Minute)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3"))
}
