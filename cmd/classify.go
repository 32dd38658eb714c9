package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/doppel/cmd/internal/display"
	"github.com/CodeMonkeyCybersecurity/doppel/internal/endpoints"
	"github.com/CodeMonkeyCybersecurity/doppel/pkg/scanners/idor"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [METHOD PATH [PARAM...]]",
	Short: "Rank endpoint parameters by BOLA risk",
	Long: `Classify every parameter of one or more endpoints and order them by BOLA
risk score. Parameters prefixed with "body." are JSON body fields, names that
appear as {placeholders} in the path are path parameters, anything else is a
query parameter.

Examples:
  doppel classify GET /api/users/{userId} userId
  doppel classify POST /api/orders body.accountId body.note
  doppel classify -f endpoints.yaml --high-risk
  doppel classify -f endpoints.yaml --summary`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		highRisk, _ := cmd.Flags().GetBool("high-risk")
		summary, _ := cmd.Flags().GetBool("summary")
		output, _ := cmd.Flags().GetString("output")

		eps, err := endpointsFromArgs(file, args)
		if err != nil {
			return err
		}

		type classified struct {
			Endpoint   idor.Endpoint            `json:"endpoint"`
			Parameters []idor.DetectedParameter `json:"parameters"`
		}
		results := make([]classified, 0, len(eps))

		for _, ep := range eps {
			params := idor.AnalyzeEndpoint(ep)
			for _, p := range params {
				tel.RecordClassified(p.Type)
			}
			if highRisk {
				params = idor.FilterHighRisk(params, cfg.Detection.MinRiskScore)
			}
			results = append(results, classified{Endpoint: ep, Parameters: params})

			log.WithEndpoint(string(ep.Method), ep.Path).Debugw("Endpoint classified",
				"parameters", len(params),
			)
		}

		if output == "json" {
			return writeJSON(cmd, results)
		}

		out := cmd.OutOrStdout()
		for _, r := range results {
			if summary {
				fmt.Fprintln(out, idor.ParameterSummary(r.Endpoint, cfg.Detection.SummaryLimit))
				continue
			}
			display.PrintParameters(out, r.Endpoint, r.Parameters)
		}
		return nil
	},
}

// endpointsFromArgs reads endpoints from a descriptor file, or builds a
// single endpoint from METHOD PATH [PARAM...]
func endpointsFromArgs(file string, args []string) ([]idor.Endpoint, error) {
	if file != "" {
		if len(args) > 0 {
			return nil, fmt.Errorf("--file cannot be combined with an inline endpoint")
		}
		return endpoints.Load(file)
	}

	if len(args) < 2 {
		return nil, fmt.Errorf("either --file or METHOD PATH is required")
	}

	method, err := idor.ParseMethod(args[0])
	if err != nil {
		return nil, err
	}

	params := args[2:]
	if len(params) == 0 {
		params = endpoints.PathPlaceholders(args[1])
	}

	return []idor.Endpoint{{Method: method, Path: args[1], Params: params}}, nil
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringP("file", "f", "", "endpoint descriptor file (YAML or JSON)")
	classifyCmd.Flags().Bool("high-risk", false, "only show parameters at or above --min-risk")
	classifyCmd.Flags().Bool("summary", false, "print one summary block per endpoint")
	classifyCmd.Flags().StringP("output", "o", "text", "output format (text, json)")
}
