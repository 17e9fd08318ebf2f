package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/agentarena/realtime-backend/internal/core/domain"
)

// Claims defines the structured data we store in the JWT
type Claims struct {
	Agent string `json:"agent"` // normalized agent address
	jwt.RegisteredClaims
}

type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secretKey: []byte(secret), ttl: ttl}
}

// GenerateToken creates a new JWT access token for the given agent address.
func (tm *TokenManager) GenerateToken(agent string) (string, error) {
	if !domain.IsHexAddress(agent) {
		return "", errors.New("invalid agent address")
	}

	agent = domain.NormalizeAddress(agent)
	claims := &Claims{
		Agent: agent,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tm.ttl)),
			Subject:   agent,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	// Tokens minted elsewhere may carry mixed-case addresses.
	claims.Agent = domain.NormalizeAddress(claims.Agent)

	return claims, nil
}
