package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinica-salud/identity-service/internal/core/domain"
)

// DefaultTokenTTL is the lifetime of issued tokens.
const DefaultTokenTTL = time.Hour

var ErrEmptySecret = errors.New("jwt: signing secret is empty")

// Claims is the token claim set: the session payload plus iat/exp.
type Claims struct {
	UserID     string  `json:"id"`
	Username   string  `json:"username"`
	Role       string  `json:"role"`
	MedicoID   *string `json:"medicoId"`
	PacienteID *string `json:"pacienteId"`
	jwt.RegisteredClaims
}

// JWTIssuer signs and verifies HS256 tokens. It implements both
// ports.TokenIssuer and ports.TokenVerifier.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTIssuer refuses an empty secret; there is no fallback key.
func NewJWTIssuer(secret string, ttl time.Duration) (*JWTIssuer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (i *JWTIssuer) Issue(p domain.SessionPayload) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{
		UserID:     p.ID,
		Username:   p.Username,
		Role:       string(p.Role),
		MedicoID:   p.MedicoID,
		PacienteID: p.PacienteID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt sign: %w", err)
	}
	return signed, exp, nil
}

func (i *JWTIssuer) Verify(token string) (*domain.SessionPayload, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("jwt verify: %w", err)
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}

	return &domain.SessionPayload{
		ID:         claims.UserID,
		Username:   claims.Username,
		Role:       domain.Role(claims.Role),
		MedicoID:   claims.MedicoID,
		PacienteID: claims.PacienteID,
	}, nil
}
