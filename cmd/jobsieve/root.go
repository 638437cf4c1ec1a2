package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/amishk599/jobsieve/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "jobsieve",
	Short: "Job posting aggregator with relevance scoring",
	Long: `jobsieve crawls job boards, feeds and ATS APIs, normalizes and
deduplicates the postings, scores each one for relevance and writes the
relevant ones to the configured sinks.`,
	// Default to `run` so that `jobsieve` with no args performs one run.
	RunE:          runRun,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	cobra.OnInitialize(initEnv)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (default: JOBSIEVE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	addRunFlags(rootCmd)
}

// initEnv makes every bound key overridable as JOBSIEVE_<KEY>, with dots
// replaced by underscores (pipeline.concurrency → JOBSIEVE_PIPELINE_CONCURRENCY).
func initEnv() {
	viper.SetEnvPrefix("JOBSIEVE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// addRunFlags registers the flags that override run-related config values.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Int("concurrency", 0, "sources crawled at once (overrides pipeline.concurrency)")
	cmd.Flags().Int("max-pages", 0, "pages per paginated source (overrides search.max_pages)")
	cmd.Flags().Float64("min-score", 0, "minimum relevance score to write (overrides relevance.min_relevance_score)")
	cmd.Flags().Duration("run-timeout", 0, "deadline for one run (overrides pipeline.run_timeout)")
}

// bindRunFlags binds cmd's run flags to their config keys. It runs in the
// command's PreRun so only the executing command's flags are bound.
func bindRunFlags(cmd *cobra.Command) {
	_ = viper.BindPFlag("pipeline.concurrency", cmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("search.max_pages", cmd.Flags().Lookup("max-pages"))
	_ = viper.BindPFlag("relevance.min_relevance_score", cmd.Flags().Lookup("min-score"))
	_ = viper.BindPFlag("pipeline.run_timeout", cmd.Flags().Lookup("run-timeout"))
}

// loadConfig resolves the config path, parses it and applies flag and
// environment overrides.
// Priority: --config flag > JOBSIEVE_CONFIG env var > "./config.yaml"
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if viper.IsSet("pipeline.concurrency") {
		cfg.Pipeline.Concurrency = viper.GetInt("pipeline.concurrency")
	}
	if viper.IsSet("search.max_pages") {
		cfg.Search.MaxPages = viper.GetInt("search.max_pages")
	}
	if viper.IsSet("relevance.min_relevance_score") {
		cfg.Relevance.MinRelevanceScore = viper.GetFloat64("relevance.min_relevance_score")
	}
	if viper.IsSet("pipeline.run_timeout") {
		cfg.Pipeline.RunTimeout = viper.GetDuration("pipeline.run_timeout")
	}
	if viper.IsSet("ai.api_key") {
		cfg.AI.APIKey = viper.GetString("ai.api_key")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if viper.GetBool("debug") {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}
