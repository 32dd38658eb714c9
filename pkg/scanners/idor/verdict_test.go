package idor

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	attackerID = "attacker_456"
	victimID   = "victim_123"
)

func TestDecideVerdictStatusCodes(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Verdict
	}{
		{"401 ignores body", 401, `{"id":"victim_123"}`, VerdictSecure},
		{"403", 403, "", VerdictSecure},
		{"400 validation", 400, `{"id":"victim_123"}`, VerdictSecure},
		{"500", 500, `{"id":"victim_123"}`, VerdictUncertain},
		{"302", 302, "", VerdictUncertain},
		{"204", 204, "", VerdictUncertain},
		{"404 access denied", 404, "Resource not found: access denied", VerdictSecure},
		{"404 permission mixed case", 404, "Permission required", VerdictSecure},
		{"404 forbidden", 404, `{"error":"FORBIDDEN"}`, VerdictSecure},
		{"404 plain", 404, "Not found", VerdictUncertain},
		{"404 empty", 404, "", VerdictUncertain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideVerdict(tt.status, tt.body, attackerID, victimID))
		})
	}
}

func TestDecideVerdictUnknownIdentities(t *testing.T) {
	body := `{"id":"victim_123"}`

	assert.Equal(t, VerdictUncertain, DecideVerdict(200, body, "", victimID))
	assert.Equal(t, VerdictUncertain, DecideVerdict(200, body, attackerID, ""))
	assert.Equal(t, VerdictUncertain, DecideVerdict(201, body, "", ""))

	// status-only outcomes do not need identities
	assert.Equal(t, VerdictSecure, DecideVerdict(401, "", "", ""))
}

func TestDecideVerdictOwnership(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Verdict
	}{
		{"victim id exposed", `{"id":"victim_123","name":"Victim User"}`, VerdictVulnerable},
		{"victim only in editable name", `{"id":"attacker_456","name":"victim_123"}`, VerdictSecure},
		{"attacker owns object", `{"userId":"attacker_456","title":"mine"}`, VerdictSecure},
		{"victim in nested owner", `{"data":{"post":{"ownerId":"victim_123"}}}`, VerdictVulnerable},
		{"victim in array element", `[{"id":"attacker_456"},{"id":"victim_123"}]`, VerdictVulnerable},
		{"victim wins over attacker", `{"id":"victim_123","owner_id":"attacker_456"}`, VerdictVulnerable},
		{"victim only as creator", `{"id":"post_1","createdBy":"victim_123"}`, VerdictUncertain},
		{"attacker as creator", `{"id":"post_1","createdBy":"attacker_456"}`, VerdictSecure},
		{"editable object not descended", `{"id":"attacker_456","bio":{"id":"victim_123"}}`, VerdictSecure},
		{"editable only", `{"bio":"victim_123"}`, VerdictUncertain},
		{"field names are case sensitive", `{"ID":"victim_123"}`, VerdictUncertain},
		{"public data", `{"items":[{"id":"post_1"},{"id":"post_2"}]}`, VerdictUncertain},
		{"success false envelope", `{"success":false,"data":null}`, VerdictSecure},
		{"error envelope", `{"error":"not found"}`, VerdictSecure},
		{"message envelope", `{"message":"nothing here"}`, VerdictSecure},
		{"error envelope with leak", `{"error":"oops","data":{"id":"victim_123"}}`, VerdictVulnerable},
		{"success true", `{"success":true}`, VerdictUncertain},
		{"empty object", `{}`, VerdictUncertain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideVerdict(200, tt.body, attackerID, victimID))
		})
	}
}

func TestDecideVerdictNumericIDs(t *testing.T) {
	assert.Equal(t, VerdictVulnerable, DecideVerdict(200, `{"id":123}`, "456", "123"))
	assert.Equal(t, VerdictSecure, DecideVerdict(201, `{"user_id":456}`, "456", "123"))
	// literal text is compared, not the numeric value
	assert.Equal(t, VerdictUncertain, DecideVerdict(200, `{"id":123.0}`, "456", "123"))
}

func TestDecideVerdictTextFallback(t *testing.T) {
	tests := []struct {
		name string
		body string
		want Verdict
	}{
		{"victim in text", "Profile of victim_123", VerdictVulnerable},
		{"attacker in text", "Hello attacker_456", VerdictSecure},
		{"neither", "Welcome", VerdictUncertain},
		{"empty", "", VerdictUncertain},
		{"truncated json", `{"id":"victim_123"`, VerdictVulnerable},
		{"trailing data", `{"id":"attacker_456"} victim_123`, VerdictVulnerable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecideVerdict(200, tt.body, attackerID, victimID))
		})
	}
}

func TestDecideVerdictDeepNesting(t *testing.T) {
	nest := func(depth int) string {
		return strings.Repeat(`{"a":`, depth) + `{"id":"victim_123"}` + strings.Repeat("}", depth)
	}

	assert.Equal(t, VerdictVulnerable, DecideVerdict(200, nest(100), attackerID, victimID))
	assert.Equal(t, VerdictUncertain, DecideVerdict(200, nest(200), attackerID, victimID))

	arrays := strings.Repeat("[", 5000) + `"victim_123"` + strings.Repeat("]", 5000)
	assert.Equal(t, VerdictUncertain, DecideVerdict(200, arrays, attackerID, victimID))
}

func TestDecideVerdictBeyondDecoderDepth(t *testing.T) {
	for _, depth := range []int{10001, 20000} {
		arrays := strings.Repeat("[", depth) + `"victim_123"` + strings.Repeat("]", depth)
		assert.Equal(t, VerdictUncertain, DecideVerdict(200, arrays, attackerID, victimID), "arrays depth %d", depth)

		objects := strings.Repeat(`{"a":`, depth) + `{"id":"victim_123"}` + strings.Repeat("}", depth)
		assert.Equal(t, VerdictUncertain, DecideVerdict(200, objects, attackerID, victimID), "objects depth %d", depth)
	}
}

func TestExceedsNesting(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"flat", `{"id":1}`, false},
		{"at limit", strings.Repeat("[", 3) + strings.Repeat("]", 3), false},
		{"past limit", strings.Repeat("[", 4), true},
		{"brackets inside string", `"` + strings.Repeat("[", 10) + `"`, false},
		{"escaped quote keeps string open", `"\"` + strings.Repeat("{", 10) + `"`, false},
		{"unbalanced closers", "]]]][[", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exceedsNesting(tt.body, 3))
		})
	}
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "VULNERABLE", VerdictVulnerable.String())
	assert.Equal(t, "SECURE", VerdictSecure.String())
	assert.Equal(t, "UNCERTAIN", VerdictUncertain.String())
}

func TestVerdictAndConfidenceJSON(t *testing.T) {
	data, err := json.Marshal(map[string]any{"verdict": VerdictSecure, "confidence": ConfidenceVeryHigh})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"verdict":"SECURE","confidence":"very_high"}`, string(data))
}
