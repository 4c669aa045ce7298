package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRootCommand_ShowsHelpWhenNoSubcommand tests that the root command
// shows help instead of silently succeeding when invoked without a subcommand
func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	// Create a fresh root command for testing
	testRoot := &cobra.Command{
		Use:   "openinglens",
		Short: "Test root command",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Capture output
	buf := new(bytes.Buffer)
	testRoot.SetOut(buf)
	testRoot.SetErr(buf)

	// Execute root command with no args
	err := testRoot.Execute()

	// Should show help (which returns nil error in cobra)
	assert.NoError(t, err)
	output := buf.String()
	assert.Contains(t, output, "Usage:", "Help should be displayed")
	assert.Contains(t, output, "openinglens", "Help should show command name")
}

const testDataset = `{
  "blitz": {
    "1500-2000": [
      {"move": "e4", "name": "King's Pawn Game", "count": 10, "stats": [0.5, 0.2, 0.3]}
    ]
  }
}`

const testCatalog = `{
  "All": "",
  "King's Pawn Game": "1. e4"
}`

// writeTestConfig lays out a config with valid assets and points the
// global --config flag at it for the duration of the test.
func writeTestConfig(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "stats.json")
	catalogPath := filepath.Join(dir, "openings.json")
	require.NoError(t, os.WriteFile(datasetPath, []byte(testDataset), 0644))
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0644))

	cfgPath := filepath.Join(dir, "openinglens.yml")
	cfg := "version: \"1.0\"\nassets:\n  dataset: \"" + datasetPath + "\"\n  catalog: \"" + catalogPath + "\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0644))

	prev := configPath
	configPath = cfgPath
	t.Cleanup(func() { configPath = prev })
}

func TestValidateCommand(t *testing.T) {
	writeTestConfig(t)
	assert.NoError(t, runValidate(validateCmd, nil))
}

func TestValidateCommand_MissingConfig(t *testing.T) {
	prev := configPath
	configPath = "/nonexistent/openinglens.yml"
	t.Cleanup(func() { configPath = prev })

	err := runValidate(validateCmd, nil)
	assert.Error(t, err)
}

func TestDetectCommand(t *testing.T) {
	writeTestConfig(t)
	assert.NoError(t, runDetect(detectCmd, []string{"1. e4 e5"}))
	assert.NoError(t, runDetect(detectCmd, []string{"1. d4"}))
}

func TestTreeCommand(t *testing.T) {
	writeTestConfig(t)
	assert.NoError(t, runTree(treeCmd, nil))
}

func TestTreeCommand_MissingSlice(t *testing.T) {
	writeTestConfig(t)
	prev := treeTimeControl
	treeTimeControl = "bullet"
	t.Cleanup(func() { treeTimeControl = prev })

	err := runTree(treeCmd, nil)
	assert.Error(t, err)
}

func TestDoMove(t *testing.T) {
	tests := []struct {
		arg     string
		wantErr bool
	}{
		{"e2e4", false},
		{"e2", true},
		{"z9e4", true},
		{"e2e4qq", true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			// Only argument validation is in scope here; board errors
			// need a live app, covered in internal/app tests.
			_, _, _, err := parseMoveArg(tt.arg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
