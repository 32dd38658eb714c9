package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/doppel/cmd/internal/display"
	"github.com/CodeMonkeyCybersecurity/doppel/pkg/scanners/idor"
	"github.com/CodeMonkeyCybersecurity/doppel/pkg/types"
)

// maxBodySize bounds how much of a recorded response is read
const maxBodySize = 16 << 20

var verdictCmd = &cobra.Command{
	Use:   "verdict",
	Short: "Decide whether a recorded response leaked the victim's data",
	Long: `Decide the BOLA verdict for one response received while acting as the
attacker. The body is read from --body, or from stdin when --body is "-".

The attacker id can be given directly or read from the attacker's JWT
(userId, user_id, sub or id claim). Without both ids a 200 response is
UNCERTAIN.

Examples:
  doppel verdict --status 200 --body resp.json --attacker-id 456 --victim-id 123
  curl -s ... | doppel verdict --status 200 --body - --attacker-token "$TOKEN" --victim-id 123
  doppel verdict --status 404 --body resp.txt -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetInt("status")
		bodyPath, _ := cmd.Flags().GetString("body")
		attackerID, _ := cmd.Flags().GetString("attacker-id")
		attackerToken, _ := cmd.Flags().GetString("attacker-token")
		victimID, _ := cmd.Flags().GetString("victim-id")
		method, _ := cmd.Flags().GetString("method")
		endpoint, _ := cmd.Flags().GetString("endpoint")
		param, _ := cmd.Flags().GetString("param")
		output, _ := cmd.Flags().GetString("output")

		if status < 100 || status > 599 {
			return fmt.Errorf("--status must be an HTTP status code, got %d", status)
		}

		if attackerID == "" && attackerToken != "" {
			id, ok := idor.ExtractUserIDFromJWT(attackerToken)
			if !ok {
				log.Warnw("No user id claim in attacker token, attacker identity unknown")
			}
			attackerID = id
		}

		body, err := readBody(cmd, bodyPath)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		verdict := idor.DecideVerdict(status, body, attackerID, victimID)
		tel.RecordVerdict(verdict)

		var softFail string
		if cfg.Detection.EnableSoftFail && (status == 200 || status == 201) {
			softFail, _ = idor.AnalyzeSoftFail(body)
		}

		log.LogVerdict(ctx, verdict.String(), status, map[string]interface{}{
			"endpoint":      endpoint,
			"attacker_id":   attackerID,
			"victim_id":     victimID,
			"response_hash": types.ResponseHash(body),
		})

		finding, hasFinding := types.FindingFromVerdict(types.ProbeResult{
			Method:     method,
			Endpoint:   endpoint,
			Param:      param,
			Value:      victimID,
			AttackerID: attackerID,
			VictimID:   victimID,
			Status:     status,
			Body:       body,
			Verdict:    verdict,
			SoftFail:   softFail,
		}, time.Now())
		if hasFinding {
			tel.RecordFinding(finding.Severity)
		}

		if output == "json" {
			return writeJSON(cmd, struct {
				Verdict  string         `json:"verdict"`
				Status   int            `json:"status"`
				SoftFail string         `json:"soft_fail,omitempty"`
				Finding  *types.Finding `json:"finding,omitempty"`
			}{verdict.String(), status, softFail, finding})
		}

		out := cmd.OutOrStdout()
		display.PrintVerdict(out, verdict, status, softFail)
		if hasFinding {
			display.PrintFinding(out, finding)
		}
		return nil
	},
}

func readBody(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader
	switch path {
	case "":
		return "", nil
	case "-":
		r = cmd.InOrStdin()
	default:
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open response body: %w", err)
		}
		defer f.Close()
		r = f
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return string(data), nil
}

func init() {
	rootCmd.AddCommand(verdictCmd)

	verdictCmd.Flags().Int("status", 0, "HTTP status code of the response (required)")
	verdictCmd.Flags().String("body", "", `file holding the response body, "-" for stdin`)
	verdictCmd.Flags().String("attacker-id", "", "id of the identity that sent the request")
	verdictCmd.Flags().String("attacker-token", "", "attacker JWT to read the attacker id from")
	verdictCmd.Flags().String("victim-id", "", "id of the identity whose object was requested")
	verdictCmd.Flags().String("method", "GET", "request method, for the finding")
	verdictCmd.Flags().String("endpoint", "", "request path, for the finding")
	verdictCmd.Flags().String("param", "", "parameter carrying the victim id, for the finding")
	verdictCmd.Flags().StringP("output", "o", "text", "output format (text, json)")
	verdictCmd.MarkFlagRequired("status")
}
