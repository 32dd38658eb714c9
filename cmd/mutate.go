package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/doppel/pkg/scanners/idor"
)

// maxMutationRadius bounds --radius so the output stays printable
const maxMutationRadius = 1000

var mutateCmd = &cobra.Command{
	Use:   "mutate <seed>",
	Short: "Expand a seed id into candidate attack values",
	Long: `Generate the values doppel would try for a parameter whose known value is
<seed>: the seed itself, neighbours of its numeric suffix and a fixed set of
boundary values (0, 1, admin, -1, empty, null). Output is sorted and unique.

Examples:
  doppel mutate user_123
  doppel mutate 007 --adjacent --radius 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		adjacentOnly, _ := cmd.Flags().GetBool("adjacent")
		radius, _ := cmd.Flags().GetInt("radius")
		output, _ := cmd.Flags().GetString("output")

		seed := args[0]

		var values []string
		if adjacentOnly {
			if radius < 1 || radius > maxMutationRadius {
				return fmt.Errorf("--radius must be between 1 and %d, got %d", maxMutationRadius, radius)
			}
			adjacent, ok := idor.GenerateAdjacentIDs(seed, radius)
			if !ok {
				return fmt.Errorf("%q has no numeric suffix to vary", seed)
			}
			values = adjacent
		} else {
			values = idor.MutateParam(seed)
		}

		log.Debugw("Mutations generated", "seed", seed, "count", len(values))

		if output == "json" {
			return writeJSON(cmd, values)
		}

		out := cmd.OutOrStdout()
		for _, v := range values {
			// %q keeps the empty value visible
			fmt.Fprintf(out, "%q\n", v)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mutateCmd)

	mutateCmd.Flags().Bool("adjacent", false, "only print neighbours of the numeric suffix")
	mutateCmd.Flags().Int("radius", idor.DefaultMutationRadius, "neighbours on each side, with --adjacent")
	mutateCmd.Flags().StringP("output", "o", "text", "output format (text, json)")
}
