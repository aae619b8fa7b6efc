package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cstopics/cstopics/sim/scenario"
	"github.com/cstopics/cstopics/sim/trace"
)

var (
	seed         int64  // Seed for the generators that draw random numbers
	logLevel     string // Log verbosity level
	outputFormat string // Output format for outcomes
	stepsLevel   string // Derivation step recording level

	scenarioPath string // Scenario file for `run`
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cstopics",
	Short: "Step-by-step simulators for computer science classes",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		if !trace.IsValidLevel(stepsLevel) {
			logrus.Fatalf("Invalid steps level %q; valid: none, steps", stepsLevel)
		}
		if err := trace.SetLevel(stepsLevel); err != nil {
			logrus.Fatalf("Failed to set steps level: %v", err)
		}
		if !validOutputFormats[outputFormat] {
			logrus.Fatalf("Invalid output format %q; valid: text, json, yaml", outputFormat)
		}
	},
}

// runCmd executes every run of a scenario file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every entry of a scenario file (YAML, TOML or JSON)",
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := scenario.Load(scenarioPath)
		if err != nil {
			logrus.Fatalf("Failed to load scenario: %v", err)
		}
		if cmd.Flags().Changed("seed") {
			logrus.Infof("CLI --seed %d overrides scenario seed %d", seed, spec.Seed)
			spec.Seed = seed
		}
		logrus.Infof("Running %d run(s) from %s with seed %d", len(spec.Runs), scenarioPath, spec.Seed)

		outcomes := scenario.ExecuteAll(spec)
		if err := writeOutcomes(os.Stdout, outcomes, outputFormat); err != nil {
			logrus.Fatalf("Failed to write outcomes: %v", err)
		}
		if failed := countFailed(outcomes); failed > 0 {
			logrus.Errorf("%d of %d run(s) failed", failed, len(outcomes))
			os.Exit(1)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", scenario.DefaultSeed, "Seed for CSMA/CD backoff and random traffic arrivals")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&stepsLevel, "steps", string(trace.LevelSteps), "Derivation steps to record (none, steps)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, json, yaml)")

	runCmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to a scenario file")
	_ = runCmd.MarkFlagRequired("scenario")

	rootCmd.AddCommand(runCmd)
}
