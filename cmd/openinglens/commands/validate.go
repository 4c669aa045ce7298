package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"openinglens/internal/catalog"
	"openinglens/internal/dataset"
	"openinglens/internal/printer"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configured dataset and catalog",
	Long: `Validate the dataset and catalog named in openinglens.yml.

Runs the same fail-fast schema checks the explorer applies at startup:
dataset slice keys, per-node move/count/stats shape, catalog prefix
rules, and that every catalog opening's prefix can be normalized.

Examples:
  # Validate assets from ./openinglens.yml
  openinglens validate

  # Validate assets from another config
  openinglens validate --config prod.yml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{"Check the config path:\n  openinglens validate --config <path>"},
		)
	}

	printer.Info("checking %s and %s\n", cfg.Assets.Dataset, cfg.Assets.Catalog)

	data, err := dataset.Load(cfg.Assets.Dataset)
	if err != nil {
		return printer.Error(
			"dataset validation failed",
			err.Error(),
			[]string{fmt.Sprintf("Re-run the offline pipeline that produces %s", cfg.Assets.Dataset)},
		)
	}

	cat, err := catalog.Load(cfg.Assets.Catalog)
	if err != nil {
		return printer.Error(
			"catalog validation failed",
			err.Error(),
			[]string{fmt.Sprintf("Re-run the offline pipeline that produces %s", cfg.Assets.Catalog)},
		)
	}

	slices := 0
	for _, tc := range dataset.TimeControls {
		for _, elo := range dataset.EloBrackets {
			if _, err := data.Slice(tc, elo); err == nil {
				slices++
			}
		}
	}

	printer.Success("dataset OK: %d of %d (time control, elo) slices present\n",
		slices, len(dataset.TimeControls)*len(dataset.EloBrackets))
	printer.Success("catalog OK: %d openings\n", len(cat.Names()))
	return nil
}
