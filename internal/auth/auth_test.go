package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnistore/internal/model"
)

func TestNewManager(t *testing.T) {
	_, err := NewManager("", "furnistore")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestIssueAndParse(t *testing.T) {
	m, err := NewManager("secret", "furnistore")
	require.NoError(t, err)

	tok, err := m.Issue("u1", "ada@example.com", model.RoleAdmin, time.Hour)
	require.NoError(t, err)

	p, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.True(t, p.IsAdmin())
}

func TestIssue_DefaultsToCustomer(t *testing.T) {
	m, _ := NewManager("secret", "")
	tok, err := m.Issue("u2", "", "", time.Hour)
	require.NoError(t, err)

	p, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, p.Role)
	assert.False(t, p.IsAdmin())
}

func TestParse_Rejects(t *testing.T) {
	m, _ := NewManager("secret", "furnistore")
	other, _ := NewManager("other-secret", "furnistore")
	foreign, _ := NewManager("secret", "someone-else")

	wrongKey, _ := other.Issue("u1", "", model.RoleAdmin, time.Hour)
	wrongIssuer, _ := foreign.Issue("u1", "", model.RoleAdmin, time.Hour)
	expired, _ := m.Issue("u1", "", model.RoleAdmin, -time.Minute)
	noSubject, _ := m.Issue("", "", model.RoleAdmin, time.Hour)
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "iss": "furnistore", "exp": time.Now().Add(time.Hour).Unix()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, tok := range map[string]string{
		"garbage":      "not-a-token",
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"expired":      expired,
		"no subject":   noSubject,
		"alg none":     none,
	} {
		t.Run(name, func(t *testing.T) {
			p, err := m.Parse(tok)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, p)
		})
	}
}

func TestParse_UnknownRoleIsCustomer(t *testing.T) {
	m, _ := NewManager("secret", "")
	tok, _ := m.Issue("u1", "", model.Role("superuser"), time.Hour)

	p, err := m.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, model.RoleCustomer, p.Role)
}
