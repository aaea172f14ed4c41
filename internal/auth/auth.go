package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"furnistore/internal/model"
)

var (
	ErrMissingSecret = errors.New("jwt secret is required")
	ErrInvalidToken  = errors.New("invalid or expired token")
)

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Email  string
	Role   model.Role
}

// IsAdmin reports whether the caller has back-office access.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == model.RoleAdmin
}

// Claims are the token claims understood by the storefront.
type Claims struct {
	Email string     `json:"email,omitempty"`
	Role  model.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies HS256 bearer tokens.
type Manager struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewManager returns a token manager for the shared secret.
func NewManager(secret, issuer string) (*Manager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Manager{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue mints a token for subject valid for ttl.
func (m *Manager) Issue(subject, email string, role model.Role, ttl time.Duration) (string, error) {
	if role == "" {
		role = model.RoleCustomer
	}
	now := m.now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies a token and returns its principal.
func (m *Manager) Parse(tokenString string) (*Principal, error) {
	var claims Claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	role := claims.Role
	if role != model.RoleAdmin {
		role = model.RoleCustomer
	}
	return &Principal{UserID: claims.Subject, Email: claims.Email, Role: role}, nil
}
