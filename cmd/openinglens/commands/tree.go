package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"openinglens/internal/catalog"
	"openinglens/internal/dataset"
	"openinglens/internal/printer"
	"openinglens/internal/tree"
	"openinglens/pkg/line"
)

var (
	treeTimeControl string
	treeElo         string
	treeOpening     string
	treeDepth       int
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the opening tree for a filter selection",
	Long: `Print the move tree for a (time control, elo, opening) selection:
each move with its game count, win/draw/loss bar, and opening name.

With an opening filter the tree is rooted at the opening's subtree;
without one it covers all first moves.

Examples:
  openinglens tree
  openinglens tree --time-control rapid --elo 2000+
  openinglens tree --opening "Queen's Gambit" --depth 2`,
	RunE: runTree,
}

func init() {
	treeCmd.Flags().StringVarP(&treeTimeControl, "time-control", "t", "blitz", "Time control (bullet, blitz, rapid)")
	treeCmd.Flags().StringVarP(&treeElo, "elo", "e", "1500-2000", "Elo bracket")
	treeCmd.Flags().StringVarP(&treeOpening, "opening", "o", catalog.AllOpening, "Opening filter")
	treeCmd.Flags().IntVarP(&treeDepth, "depth", "d", 3, "Maximum depth to print")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), nil)
	}

	data, err := dataset.Load(cfg.Assets.Dataset)
	if err != nil {
		return printer.Error("failed to load dataset", err.Error(), nil)
	}
	cat, err := catalog.Load(cfg.Assets.Catalog)
	if err != nil {
		return printer.Error("failed to load catalog", err.Error(), nil)
	}

	h, err := tree.Build(data, cat, treeTimeControl, treeElo, treeOpening)
	if err != nil {
		if tree.IsOpeningNotFound(err) {
			printer.Warning("%s\n", err.Error())
			return nil
		}
		if dataset.IsMissingSlice(err) {
			return printer.Error(
				"no data for this selection",
				err.Error(),
				[]string{"Valid time controls: bullet, blitz, rapid", "Valid elo brackets: 500-1000, 1000-1500, 1500-2000, 2000+"},
			)
		}
		return err
	}

	if h.Partial {
		printer.Warning("opening only partially present in this slice; showing what exists\n")
	}
	if h.Root.Move != "" {
		printer.Printf("subtree: ")
		printer.MoveLine(line.Numbered(h.Root.Path))
	}
	printTree(h.Root, 0)
	return nil
}

func printTree(n *tree.Node, depth int) {
	if n.Move != "" {
		printer.TreeRow(depth, n.Move, n.Count, n.Name)
		if len(n.Stats) == 3 {
			printer.Printf("%s%s\n", strings.Repeat("  ", depth+1), printer.StatsBar(n.Stats))
		}
		depth++
	}
	if depth > treeDepth {
		return
	}
	for _, child := range n.Children {
		printTree(child, depth)
	}
}
