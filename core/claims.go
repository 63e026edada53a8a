package core

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is the decoded payload segment of a bearer token. It is derived
// data for display and routing only; nothing here is verified.
type UserClaims map[string]any

// ParseClaims decodes the payload segment of token.
func ParseClaims(token string) (UserClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("core: token is empty")
	}
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("core: token has no payload segment")
	}
	segment := strings.TrimRight(parts[1], "=")
	segment = strings.NewReplacer("+", "-", "/", "_").Replace(segment)
	decoded, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return nil, fmt.Errorf("core: decode token payload: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, fmt.Errorf("core: decode token claims: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("core: token payload is not an object")
	}
	return UserClaims(payload), nil
}

// DecodeClaims returns the token's claims, or nil when the token is malformed.
func DecodeClaims(token string) UserClaims {
	claims, err := ParseClaims(token)
	if err != nil {
		return nil
	}
	return claims
}

// Clone deep copies the claims, including nested objects and arrays such as
// realm_access.roles.
func (c UserClaims) Clone() UserClaims {
	if c == nil {
		return nil
	}
	return UserClaims(cloneClaimObject(c))
}

func cloneClaimObject(source map[string]any) map[string]any {
	out := make(map[string]any, len(source))
	for key, value := range source {
		out[key] = cloneClaimValue(value)
	}
	return out
}

func cloneClaimValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneClaimObject(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = cloneClaimValue(typed[i])
		}
		return out
	default:
		return value
	}
}

func (c UserClaims) Subject() string { return c.stringClaim("sub") }

func (c UserClaims) Email() string { return c.stringClaim("email") }

func (c UserClaims) Name() string { return c.stringClaim("name") }

func (c UserClaims) PreferredUsername() string { return c.stringClaim("preferred_username") }

// ExpiresAt returns the exp claim, or the zero time when it is missing or malformed.
func (c UserClaims) ExpiresAt() time.Time {
	if c == nil {
		return time.Time{}
	}
	exp, err := jwt.MapClaims(c).GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time.UTC()
}

func (c UserClaims) stringClaim(key string) string {
	if c == nil {
		return ""
	}
	value, ok := c[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
