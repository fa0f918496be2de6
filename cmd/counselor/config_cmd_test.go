package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/config"
)

func testConfig() config.Config {
	c := config.Defaults()
	c.GeminiAPIKey = "gemini-secret-key"
	c.SearchAPIKey = "search-secret-key"
	c.SearchEngineID = "engine-id"
	return c.Masked()
}

func TestWriteConfig_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, testConfig(), "yaml"))

	output := buf.String()
	assert.NotContains(t, output, "gemini-secret-key")
	assert.NotContains(t, output, "search-secret-key")
	assert.Contains(t, output, "gemi****ey")
	assert.Contains(t, output, "search_engine_id: engine-id")

	var decoded config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 10, decoded.MinRecommendations)
	assert.Equal(t, "thorough", decoded.SearchDepth)
}

func TestWriteConfig_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, testConfig(), "json"))

	var decoded config.Config
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "sear****ey", decoded.SearchAPIKey)
	assert.Equal(t, 5, decoded.QueriesPerJob)
}

func TestWriteConfig_UnknownFormat(t *testing.T) {
	err := writeConfig(&bytes.Buffer{}, testConfig(), "toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestCheckCredentials(t *testing.T) {
	c := config.Defaults()
	err := checkCredentials(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvGeminiAPIKey)

	c.GeminiAPIKey = "k"
	err = checkCredentials(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvSearchAPIKey)

	c.SearchAPIKey = "k"
	err = checkCredentials(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvSearchEngineID)

	c.SearchEngineID = "cx"
	assert.NoError(t, checkCredentials(c))
}

func TestModelConfig_Overrides(t *testing.T) {
	c := config.Defaults()
	c.Models = map[string]string{"lite": "custom-lite"}

	models := modelConfig(c)
	assert.Equal(t, "custom-lite", models.GetModel("lite"))
	assert.NotEmpty(t, models.GetModel("advanced"))
}

// resetFlags restores every flag so later Execute calls start clean.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	configCommand.Flags().VisitAll(reset)
}

func TestConfigCommand_FlagOverrides(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"config", "--format", "json", "--min-recommendations", "4", "--search-depth", "basic", "--log-format", "pretty"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		resetFlags(t)
	})

	require.NoError(t, rootCmd.Execute())

	var decoded config.Config
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 4, decoded.MinRecommendations)
	assert.Equal(t, "basic", decoded.SearchDepth)
	assert.Equal(t, 5, decoded.QueriesPerJob, "unset flags keep the default")
}

func TestConfigCommand_InvalidOverride(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"config", "--max-search-results", "50"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		resetFlags(t)
	})

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config error")
}
