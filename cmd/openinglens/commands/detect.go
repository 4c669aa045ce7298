package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"openinglens/internal/catalog"
	"openinglens/internal/printer"
	"openinglens/pkg/line"
)

var detectCmd = &cobra.Command{
	Use:   "detect <movetext>",
	Short: "Detect the opening for a line of play",
	Long: `Normalize raw movetext and report the longest catalog opening whose
move prefix matches it.

The input may be a full PGN body: headers, comments, glyphs, variations
and result tokens are stripped before matching.

Examples:
  openinglens detect "1. e4 e5 2. Nf3"
  openinglens detect "[Event \"x\"] 1. d4 {center} d5 2. c4 *"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), nil)
	}

	cat, err := catalog.Load(cfg.Assets.Catalog)
	if err != nil {
		return printer.Error("failed to load catalog", err.Error(), nil)
	}

	canonical := line.Normalize(strings.Join(args, " "))
	printer.Printf("line: ")
	printer.MoveLine(canonical)

	entry, ok := cat.DetectFromPrefix(canonical)
	if !ok {
		printer.Warning("no catalog opening matches this line\n")
		return nil
	}
	printer.Success("opening: %s\n", entry.Name)
	return nil
}
