// pkg/scanners/idor/token.go
package idor

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// userIDClaims are tried in order when reading the attacker's id from a token
var userIDClaims = []string{"userId", "user_id", "sub", "id"}

// ExtractUserIDFromJWT reads the subject of a JWT without verifying it.
// The token is the attacker's own, so the signature is irrelevant here.
func ExtractUserIDFromJWT(token string) (string, bool) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "), ".")
	if len(parts) != 3 {
		return "", false
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return "", false
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", false
	}

	for _, claim := range userIDClaims {
		if id, ok := claims[claim].(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}
