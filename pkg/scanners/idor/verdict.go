// pkg/scanners/idor/verdict.go
package idor

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// denialKeywords in a 404 body mean the server hid the object on purpose
var denialKeywords = []string{
	"unauthorized",
	"forbidden",
	"access denied",
	"not authorized",
	"permission",
	"not allowed",
}

// DecideVerdict decides whether a probe response exposed the victim's data
// to the attacker. An empty attackerID or victimID means the identity is
// unknown. It never fails: unreadable input resolves to VerdictUncertain.
//
//	401, 403 -> Secure (rejected before data exposure)
//	400      -> Secure (rejected by input validation)
//	200, 201 -> ownership analysis when both ids are known, else Uncertain
//	404      -> Secure if the body reads like a denial, else Uncertain
//	other    -> Uncertain
func DecideVerdict(status int, body, attackerID, victimID string) Verdict {
	switch status {
	case 401, 403:
		return VerdictSecure
	case 400:
		return VerdictSecure
	case 200, 201:
		if attackerID == "" || victimID == "" {
			return VerdictUncertain
		}
		return analyzeResponseOwnership(body, attackerID, victimID)
	case 404:
		return analyze404Context(body)
	default:
		return VerdictUncertain
	}
}

// analyze404Context separates "hidden from you" from "does not exist"
func analyze404Context(body string) Verdict {
	lower := strings.ToLower(body)
	for _, keyword := range denialKeywords {
		if strings.Contains(lower, keyword) {
			return VerdictSecure
		}
	}
	return VerdictUncertain
}

func analyzeResponseOwnership(body, attackerID, victimID string) Verdict {
	doc, err := parseJSON(body)
	if err != nil {
		// The decoder gives up on very deep documents; they stay Uncertain
		// like any other document past the identity depth limit.
		if exceedsNesting(body, MaxIdentityDepth) {
			return VerdictUncertain
		}
		return analyzeTextOwnership(body, attackerID, victimID)
	}

	scan := scanIdentityFields(doc, attackerID, victimID, MaxIdentityDepth)
	if scan.truncated {
		return VerdictUncertain
	}

	switch {
	case scan.victim.critical:
		return VerdictVulnerable
	case scan.attacker.any():
		return VerdictSecure
	case isErrorResponse(doc):
		return VerdictSecure
	default:
		// Public data, or the victim only shows up as an actor (created_by etc.)
		return VerdictUncertain
	}
}

func parseJSON(body string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	// A valid body holds exactly one JSON value
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return doc, nil
}

var errTrailingData = errors.New("trailing data after json value")

// exceedsNesting reports whether brackets outside JSON strings nest deeper
// than maxDepth.
func exceedsNesting(body string, maxDepth int) bool {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(body); i++ {
		c := body[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
			if depth > maxDepth {
				return true
			}
		case '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}
	return false
}

// analyzeTextOwnership is the fallback for bodies that are not JSON
func analyzeTextOwnership(body, attackerID, victimID string) Verdict {
	switch {
	case strings.Contains(body, victimID):
		return VerdictVulnerable
	case strings.Contains(body, attackerID):
		return VerdictSecure
	default:
		return VerdictUncertain
	}
}

// isErrorResponse recognises top-level error envelopes such as
// {"success": false} or {"error": "..."}.
func isErrorResponse(doc any) bool {
	obj, ok := doc.(map[string]any)
	if !ok {
		return false
	}
	if success, ok := obj["success"].(bool); ok && !success {
		return true
	}
	_, hasError := obj["error"]
	_, hasMessage := obj["message"]
	return hasError || hasMessage
}
