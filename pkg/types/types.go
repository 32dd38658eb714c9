package types

import (
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/twmb/murmur3"

	"github.com/CodeMonkeyCybersecurity/doppel/pkg/scanners/idor"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

const (
	ToolName    = "doppel"
	FindingType = "BOLA"
)

type Finding struct {
	ID          string                 `json:"id"`
	Tool        string                 `json:"tool"`
	Type        string                 `json:"type"`
	Severity    Severity               `json:"severity"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Evidence    string                 `json:"evidence,omitempty"`
	Solution    string                 `json:"solution,omitempty"`
	References  []string               `json:"references,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// ProbeResult is one recorded response to a probe request, with the verdict
// already decided for it.
type ProbeResult struct {
	Method     string       `json:"method"`
	Endpoint   string       `json:"endpoint"`
	Param      string       `json:"param,omitempty"`
	Value      string       `json:"value,omitempty"`
	AttackerID string       `json:"attacker_id,omitempty"`
	VictimID   string       `json:"victim_id,omitempty"`
	Status     int          `json:"status"`
	Body       string       `json:"-"`
	Verdict    idor.Verdict `json:"-"`
	SoftFail   string       `json:"soft_fail,omitempty"`
}

const evidenceLimit = 512

var bolaReferences = []string{
	"https://owasp.org/API-Security/editions/2023/en/0xa1-broken-object-level-authorization/",
	"https://cwe.mitre.org/data/definitions/639.html",
}

// FindingFromVerdict turns a decided probe into a finding. Vulnerable
// results are high severity, Uncertain results are reported as info for
// manual review, and Secure results produce no finding.
func FindingFromVerdict(r ProbeResult, now time.Time) (*Finding, bool) {
	var (
		severity Severity
		title    string
	)

	switch r.Verdict {
	case idor.VerdictVulnerable:
		severity = SeverityHigh
		title = fmt.Sprintf("BOLA: %s %s exposes another user's object", r.Method, r.Endpoint)
	case idor.VerdictUncertain:
		severity = SeverityInfo
		title = fmt.Sprintf("Possible BOLA on %s %s needs manual review", r.Method, r.Endpoint)
	default:
		return nil, false
	}

	description := fmt.Sprintf("Request as %s for %s returned HTTP %d (%s).",
		orUnknown(r.AttackerID), orUnknown(r.VictimID), r.Status, r.Verdict)
	if r.Param != "" {
		description += fmt.Sprintf(" Parameter %s was set to %q.", r.Param, r.Value)
	}

	metadata := map[string]interface{}{
		"http_status":   r.Status,
		"verdict":       r.Verdict.String(),
		"response_hash": ResponseHash(r.Body),
	}
	if r.Param != "" {
		metadata["parameter"] = r.Param
	}
	if r.SoftFail != "" {
		metadata["soft_fail"] = r.SoftFail
	}

	return &Finding{
		ID:          uuid.New().String(),
		Tool:        ToolName,
		Type:        FindingType,
		Severity:    severity,
		Title:       title,
		Description: description,
		Evidence:    truncate(r.Body, evidenceLimit),
		Solution:    "Check on the server that the authenticated principal owns or may access every object referenced by the request.",
		References:  bolaReferences,
		Metadata:    metadata,
		CreatedAt:   now.UTC(),
	}, true
}

// ResponseHash fingerprints a response body so identical responses across
// probes can be grouped.
func ResponseHash(body string) string {
	return fmt.Sprintf("%016x", murmur3.Sum64([]byte(body)))
}

func orUnknown(id string) string {
	if id == "" {
		return "<unknown>"
	}
	return id
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	// Cut on a rune boundary
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit] + "..."
}
