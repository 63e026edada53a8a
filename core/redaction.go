package core

import (
	"regexp"
	"strings"
)

const RedactedValue = "[REDACTED]"

// credentialFields carry session credentials verbatim and are never logged.
var credentialFields = map[string]struct{}{
	"token":         {},
	"access_token":  {},
	"refresh_token": {},
	"id_token":      {},
	"authorization": {},
	"client_secret": {},
	"code":          {},
	"code_verifier": {},
	"password":      {},
}

var (
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`)
	// compact JWS: base64url JSON header, payload, optional signature
	jwtPattern = regexp.MustCompile(`eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`)
)

// RedactSensitiveMap returns a copy of fields safe to log. Credential fields
// are replaced outright; free text such as probe_error or logout_error keeps
// its message with any embedded bearer or JWT material masked.
func RedactSensitiveMap(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	return redactFields(fields)
}

func redactFields(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if isCredentialField(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactValue(value)
	}
	return target
}

func redactValue(value any) any {
	switch typed := value.(type) {
	case string:
		return maskCredentials(typed)
	case map[string]any:
		return redactFields(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactValue(typed[i])
		}
		return out
	default:
		return value
	}
}

func isCredentialField(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if _, ok := credentialFields[key]; ok {
		return true
	}
	return strings.HasSuffix(key, "_token") || strings.HasSuffix(key, "_secret")
}

func maskCredentials(text string) string {
	if !strings.Contains(text, ".") && !strings.Contains(strings.ToLower(text), "bearer") {
		return text
	}
	text = bearerPattern.ReplaceAllString(text, "Bearer "+RedactedValue)
	return jwtPattern.ReplaceAllString(text, RedactedValue)
}
