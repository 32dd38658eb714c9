package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CodeMonkeyCybersecurity/doppel/internal/config"
	"github.com/CodeMonkeyCybersecurity/doppel/internal/logger"
	"github.com/CodeMonkeyCybersecurity/doppel/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/doppel/pkg/shutdown"
)

var (
	cfg *config.Config
	log *logger.Logger
	tel telemetry.Telemetry

	shutdownHandler *shutdown.Handler
)

var rootCmd = &cobra.Command{
	Use:   "doppel",
	Short: "Offline BOLA/IDOR detection",
	Long: `Doppel - Broken Object Level Authorization detection

Classifies API parameters by how likely they are to reference another user's
object, expands victim identifiers into attack values, and decides whether a
recorded response leaked the victim's data.

Doppel never sends requests. Replay the planned probes with your own client
under the attacker's session and feed the responses back to "doppel verdict".

COMMANDS:
  doppel classify -f endpoints.yaml           - Rank parameters by BOLA risk
  doppel mutate <seed>                        - Candidate ids for a seed id
  doppel plan -f endpoints.yaml --victim-id V - Build a probe plan
  doppel verdict --status 200 --body resp.json --attacker-id A --victim-id V`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		if err := initConfig(); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		var err error
		log, err = logger.New(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		tel, err = telemetry.New(context.Background(), cfg.Telemetry, logger.Version)
		if err != nil {
			log.Warnw("Telemetry disabled", "error", err)
			tel = telemetry.NewNoop()
		}

		shutdownHandler = shutdown.NewHandler(log)
		shutdownHandler.RegisterShutdownFunc(func() error {
			// Sync on a terminal returns EINVAL on Linux, nothing to report there
			if err := log.Sync(); err != nil && !strings.Contains(err.Error(), "invalid argument") {
				return fmt.Errorf("failed to sync logger: %w", err)
			}
			return nil
		})
		shutdownHandler.RegisterShutdownFunc(func() error {
			if err := tel.Close(); err != nil {
				return fmt.Errorf("failed to flush telemetry: %w", err)
			}
			return nil
		})

		return nil
	},
}

// Execute runs the root command. The logger and telemetry are flushed
// afterwards whether or not the command failed.
func Execute() error {
	defer shutdownAfterRun()
	return rootCmd.Execute()
}

func shutdownAfterRun() {
	if shutdownHandler == nil {
		return
	}
	h := shutdownHandler
	shutdownHandler = nil
	if err := h.ShutdownWithTimeout(10 * time.Second); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Warning: %v\n", err)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (json, console)")
	viper.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logger.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.PersistentFlags().Bool("telemetry", false, "export traces over OTLP/HTTP")
	rootCmd.PersistentFlags().String("otlp-endpoint", "localhost:4318", "OTLP/HTTP collector address")
	viper.BindPFlag("telemetry.enabled", rootCmd.PersistentFlags().Lookup("telemetry"))
	viper.BindPFlag("telemetry.endpoint", rootCmd.PersistentFlags().Lookup("otlp-endpoint"))

	rootCmd.PersistentFlags().Int("min-risk", 50, "lowest BOLA risk score (0-100) a parameter needs to be probed")
	rootCmd.PersistentFlags().Int("workers", 4, "endpoints analyzed in parallel")
	rootCmd.PersistentFlags().Int("summary-limit", 5, "parameters listed per endpoint summary")
	viper.BindPFlag("detection.min_risk_score", rootCmd.PersistentFlags().Lookup("min-risk"))
	viper.BindPFlag("detection.workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("detection.summary_limit", rootCmd.PersistentFlags().Lookup("summary-limit"))

	defaults := config.DefaultConfig()
	viper.SetDefault("logger.output_paths", defaults.Logger.OutputPaths)
	viper.SetDefault("telemetry.service_name", defaults.Telemetry.ServiceName)
	viper.SetDefault("telemetry.exporter_type", defaults.Telemetry.ExporterType)
	viper.SetDefault("telemetry.sample_rate", defaults.Telemetry.SampleRate)
	viper.SetDefault("detection.enable_mutation", defaults.Detection.EnableMutation)
	viper.SetDefault("detection.enable_soft_fail", defaults.Detection.EnableSoftFail)
}

// initConfig builds the config from flags and DOPPEL_* environment
// variables, e.g. DOPPEL_DETECTION_MIN_RISK_SCORE=70.
func initConfig() error {
	viper.SetEnvPrefix("DOPPEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	cfg = &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// writeJSON prints v as indented JSON on the command's output
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
