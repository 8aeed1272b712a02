package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/chakravarthigit/law-backend/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped on every session token and required when validating.
const Issuer = "law-backend"

const defaultTokenTTL = 30 * 24 * time.Hour

// Claims is the payload of a session token. Subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateJWT signs a session token for the user.
func GenerateJWT(userID, role string) (string, error) {
	if userID == "" {
		return "", errors.New("user id is required")
	}
	ttl := config.AppConfig.JWTTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.AppConfig.JWTSecret))
}

// ValidateJWT checks the signature, expiry and issuer and returns the claims.
func ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid token: missing subject")
	}
	return claims, nil
}
