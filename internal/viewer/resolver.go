package viewer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Resolver maps an opaque bearer token to a Viewer.
type Resolver interface {
	Resolve(token string) Viewer
}

// JWTResolver verifies HMAC-signed tokens with a shared secret.
type JWTResolver struct {
	secret []byte
}

// NewJWTResolver constructs a resolver for tokens signed with secret.
func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

// Resolve verifies the token and returns the caller. Absent, malformed,
// expired or wrongly signed tokens resolve to Anonymous.
func (r *JWTResolver) Resolve(tokenString string) Viewer {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" || len(r.secret) == 0 {
		return Anonymous()
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return r.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return Anonymous()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Anonymous()
	}

	id := extractUserID(claims)
	if id == 0 {
		return Anonymous()
	}

	email, _ := claims["email"].(string)
	return New(id, extractRole(claims), email)
}

// BearerToken extracts the token part of an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	const bearer = "bearer "
	if len(header) <= len(bearer) || !strings.EqualFold(header[:len(bearer)], bearer) {
		return ""
	}
	return strings.TrimSpace(header[len(bearer):])
}

func extractUserID(claims jwt.MapClaims) uint {
	for _, key := range []string{"sub", "user_id", "id"} {
		if value, ok := claims[key]; ok {
			if id, err := normalizeUserID(value); err == nil && id > 0 {
				return id
			}
		}
	}
	return 0
}

func normalizeUserID(value interface{}) (uint, error) {
	switch v := value.(type) {
	case float64:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, err
		}
		return uint(parsed), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("invalid subject")
		}
		return uint(v), nil
	default:
		return 0, fmt.Errorf("unsupported subject type")
	}
}

func extractRole(claims jwt.MapClaims) string {
	for _, key := range []string{"role", "roles"} {
		value, ok := claims[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok && strings.TrimSpace(str) != "" {
					return str
				}
			}
		}
	}
	return ""
}
