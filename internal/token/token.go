// Package token issues and decodes the signed bearer tokens the replay
// upload API expects. Tokens are HS256 compact JWTs carrying the uploader
// identity and role; the API rejects anything expired or signed with the
// wrong secret.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TTL is the fixed lifetime of an upload token: exp is always iat + TTL.
const TTL = time.Hour

// Type is the value of the "type" claim on every upload token.
const Type = "uploader"

// Claims is the decoded payload of an upload token.
type Claims struct {
	UserID    string
	Type      string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issue signs an upload token for userID carrying the single role roleID.
// The token is valid from now until now+TTL. An empty secret is a
// configuration error; callers must check for it before reaching the
// network, so Issue refuses to sign with one.
func Issue(secret, userID, roleID string, now time.Time) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is empty")
	}
	now = now.UTC()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"type":   Type,
		"roles":  []string{roleID},
		"iat":    now.Unix(),
		"exp":    now.Add(TTL).Unix(),
	})
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Decode verifies tokenStr against secret and extracts its claims.
func Decode(secret, tokenStr string) (*Claims, error) {
	t, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	mapClaims, ok := t.Claims.(jwt.MapClaims)
	if !ok || !t.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	claims := &Claims{}
	if v, ok := mapClaims["userId"].(string); ok {
		claims.UserID = v
	}
	if v, ok := mapClaims["type"].(string); ok {
		claims.Type = v
	}
	if roles, ok := mapClaims["roles"].([]interface{}); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				claims.Roles = append(claims.Roles, s)
			}
		}
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
