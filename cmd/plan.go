package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/doppel/cmd/internal/display"
	"github.com/CodeMonkeyCybersecurity/doppel/internal/endpoints"
	"github.com/CodeMonkeyCybersecurity/doppel/internal/planner"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a BOLA probe plan for a set of endpoints",
	Long: `Analyze every endpoint in a descriptor file, keep the parameters scoring at
least --min-risk and expand the victim id into candidate values. Each
(parameter, value) pair becomes one probe: a request to replay with the
attacker's credentials.

Examples:
  doppel plan -f endpoints.yaml --victim-id user_123
  doppel plan -f endpoints.yaml --victim-id 42 --no-mutation -o json > plan.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		victimID, _ := cmd.Flags().GetString("victim-id")
		noMutation, _ := cmd.Flags().GetBool("no-mutation")
		output, _ := cmd.Flags().GetString("output")

		eps, err := endpoints.Load(file)
		if err != nil {
			return err
		}

		detection := cfg.Detection
		if noMutation {
			detection.EnableMutation = false
		}

		ctx, cancel := shutdownHandler.NotifyContext(cmd.Context())
		defer cancel()

		plan, err := planner.New(detection, log, tel).Plan(ctx, eps, victimID)
		if err != nil {
			return fmt.Errorf("failed to build plan: %w", err)
		}

		if output == "json" {
			return writeJSON(cmd, plan)
		}
		display.PrintPlan(cmd.OutOrStdout(), plan)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringP("file", "f", "", "endpoint descriptor file (YAML or JSON)")
	planCmd.Flags().String("victim-id", "", "id of the identity whose objects are targeted")
	planCmd.Flags().Bool("no-mutation", false, "probe with the victim id only")
	planCmd.Flags().StringP("output", "o", "text", "output format (text, json)")
	planCmd.MarkFlagRequired("file")
	planCmd.MarkFlagRequired("victim-id")
}
