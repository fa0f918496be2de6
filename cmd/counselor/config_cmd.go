package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/config"
)

var configFormat string

var configCommand = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long:  "Prints the configuration after the config file, environment and flags are applied. API keys are masked.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeConfig(cmd.OutOrStdout(), cfg.Masked(), configFormat)
	},
}

func init() {
	configCommand.Flags().StringVarP(&configFormat, "format", "f", "yaml", "Output format: yaml or json")
	rootCmd.AddCommand(configCommand)
}

func writeConfig(w io.Writer, c config.Config, format string) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	case "json":
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		return fmt.Errorf("unknown format %q (use yaml or json)", format)
	}
}
