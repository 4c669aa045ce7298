package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"openinglens/internal/config"
)

var (
	version string
	commit  string
	date    string

	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "openinglens",
	Short: "openinglens - Chess opening statistics explorer",
	Long: `openinglens is a chess opening statistics explorer. It couples a
board, an opening frequency tree, and a filter surface around one
canonical line of play: moving on the board, selecting an opening, or
zooming the tree all update the same shared state.

Assets (the frequency dataset and the opening catalog) are produced by
an offline pipeline and named in openinglens.yml.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no subcommand is specified, show help
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "openinglens.yml", "Path to configuration file")
}

// loadConfig loads and validates the configured openinglens.yml.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
