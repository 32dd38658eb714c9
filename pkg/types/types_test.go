package types

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/CodeMonkeyCybersecurity/doppel/pkg/scanners/idor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindingFromVerdict(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	base := ProbeResult{
		Method:     "GET",
		Endpoint:   "/api/users/{userId}",
		Param:      "userId",
		Value:      "victim_123",
		AttackerID: "attacker_456",
		VictimID:   "victim_123",
		Status:     200,
		Body:       `{"id":"victim_123"}`,
	}

	t.Run("vulnerable is high", func(t *testing.T) {
		r := base
		r.Verdict = idor.VerdictVulnerable
		r.SoftFail = "Soft fail: 'error'"

		f, ok := FindingFromVerdict(r, now)
		require.True(t, ok)
		assert.Equal(t, SeverityHigh, f.Severity)
		assert.Equal(t, ToolName, f.Tool)
		assert.Equal(t, FindingType, f.Type)
		assert.Contains(t, f.Title, "GET /api/users/{userId}")
		assert.Contains(t, f.Description, "attacker_456")
		assert.Contains(t, f.Description, `"victim_123"`)
		assert.Equal(t, r.Body, f.Evidence)
		assert.Equal(t, "VULNERABLE", f.Metadata["verdict"])
		assert.Equal(t, ResponseHash(r.Body), f.Metadata["response_hash"])
		assert.Equal(t, "Soft fail: 'error'", f.Metadata["soft_fail"])
		assert.Equal(t, now, f.CreatedAt)
		assert.NotEmpty(t, f.ID)
	})

	t.Run("uncertain is info", func(t *testing.T) {
		r := base
		r.Verdict = idor.VerdictUncertain
		r.AttackerID = ""

		f, ok := FindingFromVerdict(r, now)
		require.True(t, ok)
		assert.Equal(t, SeverityInfo, f.Severity)
		assert.Contains(t, f.Description, "<unknown>")
		assert.NotContains(t, f.Metadata, "soft_fail")
	})

	t.Run("secure yields nothing", func(t *testing.T) {
		r := base
		r.Verdict = idor.VerdictSecure

		f, ok := FindingFromVerdict(r, now)
		assert.False(t, ok)
		assert.Nil(t, f)
	})

	t.Run("evidence is truncated", func(t *testing.T) {
		r := base
		r.Verdict = idor.VerdictVulnerable
		r.Body = strings.Repeat("a", 2000)

		f, ok := FindingFromVerdict(r, now)
		require.True(t, ok)
		assert.Len(t, f.Evidence, evidenceLimit+3)
	})

	t.Run("evidence is cut on a rune boundary", func(t *testing.T) {
		r := base
		r.Verdict = idor.VerdictVulnerable
		r.Body = strings.Repeat("a", evidenceLimit-1) + strings.Repeat("é", 10)

		f, ok := FindingFromVerdict(r, now)
		require.True(t, ok)
		assert.True(t, utf8.ValidString(f.Evidence))
		assert.Equal(t, strings.Repeat("a", evidenceLimit-1)+"...", f.Evidence)
	})

	t.Run("finding ids are unique", func(t *testing.T) {
		r := base
		r.Verdict = idor.VerdictVulnerable

		a, _ := FindingFromVerdict(r, now)
		b, _ := FindingFromVerdict(r, now)
		assert.NotEqual(t, a.ID, b.ID)
	})
}

func TestResponseHash(t *testing.T) {
	assert.Equal(t, ResponseHash(`{"id":1}`), ResponseHash(`{"id":1}`))
	assert.NotEqual(t, ResponseHash(`{"id":1}`), ResponseHash(`{"id":2}`))
	assert.Len(t, ResponseHash(""), 16)
}
