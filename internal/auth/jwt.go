package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleSystem marks tokens issued to internal services
const RoleSystem = "system"

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Validator checks HS256 tokens against a shared secret
type Validator struct {
	secret []byte
}

func NewValidator(secret string) (*Validator, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required but not set")
	}
	if len(secret) < 32 {
		return nil, fmt.Errorf("JWT secret must be at least 32 characters long for security")
	}
	return &Validator{secret: []byte(secret)}, nil
}

// Generate signs a token for the given identity. Login flows live outside
// this service; this is used by tooling and tests.
func (v *Validator) Generate(userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func (v *Validator) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.UserID == "" && claims.Role != RoleSystem {
			return nil, fmt.Errorf("token carries no identity")
		}
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}
