// Package main provides the entry point for the study and work counselor CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/config"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "counselor",
	Short: "Study and work counseling assistant",
	Long: `Counselor builds a profile of you through conversation, recommends jobs that fit it, and researches the jobs you pick on the web.

Configuration is read from --config (JSON or YAML), then GEMINI_API_KEY, GOOGLE_SEARCH_API_KEY and GOOGLE_SEARCH_CX from the environment or a .env file. Command-line flags override both.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

var (
	configPath          string
	logLevel            string
	logFormat           string
	minRecommendations  int
	queriesPerJob       int
	maxSearchResults    int
	searchDepth         string
	autoResearchJobs    int
	researchConcurrency int

	// cfg is the effective configuration, set before any command runs.
	cfg config.Config
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "", "Log format: json or pretty")
	flags.IntVar(&minRecommendations, "min-recommendations", 0, "Number of jobs to ask the model for")
	flags.IntVar(&queriesPerJob, "queries-per-job", 0, "Research questions generated per job")
	flags.IntVar(&maxSearchResults, "max-search-results", 0, "Search results per web search (1-10)")
	flags.StringVar(&searchDepth, "search-depth", "", "Search depth: basic or thorough")
	flags.IntVar(&autoResearchJobs, "auto-research", 0, "Research the first N recommended jobs automatically")
	flags.IntVar(&researchConcurrency, "research-concurrency", 0, "Research questions searched in parallel")
}

// loadRuntime builds the effective configuration and initializes logging.
func loadRuntime(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// Only override if the flag was explicitly set
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		loaded.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		loaded.LogFormat = logFormat
	}
	if flags.Changed("min-recommendations") {
		loaded.MinRecommendations = minRecommendations
	}
	if flags.Changed("queries-per-job") {
		loaded.QueriesPerJob = queriesPerJob
	}
	if flags.Changed("max-search-results") {
		loaded.MaxSearchResults = maxSearchResults
	}
	if flags.Changed("search-depth") {
		loaded.SearchDepth = searchDepth
	}
	if flags.Changed("auto-research") {
		loaded.AutoResearchJobs = autoResearchJobs
	}
	if flags.Changed("research-concurrency") {
		loaded.ResearchConcurrency = researchConcurrency
	}
	if err := loaded.Validate(); err != nil {
		return err
	}

	cfg = loaded
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
