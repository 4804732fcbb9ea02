// Package middleware provides HTTP middleware and token handling for the API.
package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"chirp/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenIssuer   = "chirp-api"
	TokenAudience = "chirp-client"
)

// TokenClaims is the decoded form of a bearer token.
type TokenClaims struct {
	UserID    uint
	Username  string
	Admin     bool
	ID        string
	ExpiresAt time.Time
}

// IssueToken signs an HS256 token for user valid for ttl.
func IssueToken(secret string, user *models.User, ttl time.Duration) (string, *TokenClaims, error) {
	now := time.Now()
	claims := &TokenClaims{
		UserID:    user.ID,
		Username:  user.Username,
		Admin:     user.IsAdmin,
		ID:        uuid.NewString(),
		ExpiresAt: now.Add(ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(user.ID), 10),
		"username": user.Username,
		"adm":      user.IsAdmin,
		"iss":      TokenIssuer,
		"aud":      TokenAudience,
		"iat":      now.Unix(),
		"exp":      claims.ExpiresAt.Unix(),
		"jti":      claims.ID,
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// ParseToken validates signature, expiry, issuer and audience and extracts the claims.
func ParseToken(secret, tokenString string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(secret), nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.New("invalid token structure - missing subject")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return nil, errors.New("invalid user ID in token")
	}

	out := &TokenClaims{UserID: uint(userID)}
	out.Username, _ = claims["username"].(string)
	out.Admin, _ = claims["adm"].(bool)
	out.ID, _ = claims["jti"].(string)
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// BearerToken extracts the raw token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("Authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New("Invalid authorization header format")
	}
	return parts[1], nil
}
