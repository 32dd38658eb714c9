// Package display renders doppel results for the terminal.
//
// Every function writes to the given io.Writer so commands can print to
// cobra's configured output.
package display

import (
	"fmt"
	"io"

	"github.com/CodeMonkeyCybersecurity/doppel/internal/planner"
	"github.com/CodeMonkeyCybersecurity/doppel/pkg/scanners/idor"
	"github.com/CodeMonkeyCybersecurity/doppel/pkg/types"
	"github.com/fatih/color"
)

// ColorSeverity returns a colorized severity string
func ColorSeverity(severity types.Severity) string {
	switch severity {
	case types.SeverityCritical:
		return color.New(color.FgRed, color.Bold).Sprint("CRITICAL")
	case types.SeverityHigh:
		return color.New(color.FgRed).Sprint("HIGH")
	case types.SeverityMedium:
		return color.New(color.FgYellow).Sprint("MEDIUM")
	case types.SeverityLow:
		return color.New(color.FgCyan).Sprint("LOW")
	case types.SeverityInfo:
		return color.New(color.FgWhite).Sprint("INFO")
	default:
		return string(severity)
	}
}

// ColorVerdict returns a colorized verdict with an icon
func ColorVerdict(v idor.Verdict) string {
	switch v {
	case idor.VerdictVulnerable:
		return color.New(color.FgRed, color.Bold).Sprint("✗ " + v.String())
	case idor.VerdictSecure:
		return color.New(color.FgGreen).Sprint("✓ " + v.String())
	default:
		return color.New(color.FgYellow).Sprint("? " + v.String())
	}
}

// ColorRisk colors a BOLA risk score by band
func ColorRisk(score int) string {
	s := fmt.Sprintf("%3d", score)
	switch {
	case score >= 80:
		return color.New(color.FgRed, color.Bold).Sprint(s)
	case score >= 60:
		return color.New(color.FgRed).Sprint(s)
	case score >= 40:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgCyan).Sprint(s)
	}
}

// PrintParameters lists classified parameters, highest risk first
func PrintParameters(w io.Writer, ep idor.Endpoint, params []idor.DetectedParameter) {
	fmt.Fprintf(w, "%s %s\n", color.New(color.Bold).Sprint(ep.Method), ep.Path)
	if len(params) == 0 {
		fmt.Fprintln(w, "  no parameters detected")
		return
	}
	for _, p := range params {
		fmt.Fprintf(w, "  [%s] %-24s %-12s %-9s confidence=%s\n",
			ColorRisk(p.RiskScore), p.Name, p.Type, p.Context.Location, p.Confidence)
	}
}

// PrintVerdict shows a verdict with its optional soft-fail annotation
func PrintVerdict(w io.Writer, v idor.Verdict, status int, softFail string) {
	fmt.Fprintf(w, "%s (HTTP %d)\n", ColorVerdict(v), status)
	if softFail != "" {
		color.New(color.FgYellow).Fprintf(w, "  note: %s\n", softFail)
	}
}

// PrintFinding renders a finding in the same layout as the findings list
func PrintFinding(w io.Writer, f *types.Finding) {
	fmt.Fprintf(w, "\n%s - %s\n", ColorSeverity(f.Severity), f.Title)
	fmt.Fprintf(w, "  Tool: %s | Type: %s | ID: %s\n", f.Tool, f.Type, f.ID)

	if f.Description != "" {
		fmt.Fprintf(w, "  %s\n", f.Description)
	}

	if f.Evidence != "" {
		evidence := f.Evidence
		if len(evidence) > 100 {
			evidence = evidence[:97] + "..."
		}
		fmt.Fprintf(w, "  Evidence: %s\n", evidence)
	}
}

// PrintPlan renders a probe plan endpoint by endpoint
func PrintPlan(w io.Writer, plan *planner.Plan) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "Plan %s\n", plan.ID)
	fmt.Fprintf(w, "Victim: %s | Endpoints: %d | Probes: %d\n", plan.VictimID, len(plan.Endpoints), plan.TotalProbes)

	for _, ep := range plan.Endpoints {
		fmt.Fprintf(w, "\n%s\n", ep.Summary)
		for _, probe := range ep.Probes {
			fmt.Fprintf(w, "    %s %s", probe.Method, probe.URL)
			if len(probe.Query) > 0 {
				fmt.Fprintf(w, " query=%v", probe.Query)
			}
			if probe.Body != nil {
				fmt.Fprintf(w, " body=%v", probe.Body)
			}
			fmt.Fprintf(w, "  (%s=%q)\n", probe.Param, probe.Value)
		}
	}
}
