package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"openinglens/internal/app"
	"openinglens/internal/coordinator"
	"openinglens/internal/printer"
	"openinglens/internal/rules"
	"openinglens/internal/session"
	"openinglens/internal/tree"
	"openinglens/pkg/line"
)

var (
	exploreResume bool
	exploreFollow bool
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interactively explore opening statistics",
	Long: `Run the explorer as an interactive terminal session: a text board,
the opening tree for the current filters, and a command prompt. Moves,
opening selections and tree zooms all drive the same shared line.

Commands at the prompt:
  move <from><to>[piece]   apply a move (e2e4, e7e8q)
  pgn <movetext>           load a pasted line; the opening is detected
  opening <name>           select an opening and load its base line
  tc <time control>        change the time control slice
  elo <bracket>            change the elo bracket
  color <both|white|black> change the stats color scope
  tree                     print the current opening tree
  flip                     flip the board orientation
  reset                    clear the line and filters
  quit                     exit

Examples:
  openinglens explore
  openinglens explore --resume
  openinglens explore --follow`,
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().BoolVar(&exploreResume, "resume", false, "Restore the mirrored session state at startup")
	exploreCmd.Flags().BoolVar(&exploreFollow, "follow", false, "Apply line changes published by another process on this session")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return printer.Error("invalid configuration", err.Error(), nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return printer.Error("failed to start explorer", err.Error(), nil)
	}
	defer a.Close()

	if (exploreResume || exploreFollow) && !a.HasMirror() {
		return printer.Error(
			"no session mirror configured",
			"--resume and --follow need a Redis session in openinglens.yml.",
			[]string{"Add to the config:\n  session:\n    redis_addr: \"localhost:6379\"\n    name: \"my-session\""},
		)
	}

	if exploreResume {
		if err := a.Resume(ctx); err != nil {
			if session.IsNotFound(err) {
				printer.Warning("no mirrored session to resume; starting fresh\n")
			} else {
				return printer.Error("failed to resume session", err.Error(), nil)
			}
		}
	}

	// Remote events are only forwarded here; they are applied below,
	// on this goroutine, between prompts.
	var remote <-chan line.ChangeEvent
	if exploreFollow {
		remote, err = a.Follow(ctx)
		if err != nil {
			return printer.Error("failed to follow session", err.Error(), nil)
		}
	}
	drainRemote := func() {
		for {
			select {
			case ev, ok := <-remote:
				if !ok {
					remote = nil
					return
				}
				printer.Step("remote %s: %s\n", ev.Source, ev.Line)
				a.ApplyRemote(ev)
			default:
				return
			}
		}
	}

	drawState(a)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		drainRemote()
		printer.Printf("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		verb, rest, _ := strings.Cut(input, " ")
		rest = strings.TrimSpace(rest)

		switch verb {
		case "quit", "exit":
			return nil
		case "move":
			if err := doMove(a, rest); err != nil {
				printer.Warning("%v\n", err)
				continue
			}
		case "pgn":
			a.LoadPGN(rest)
		case "opening":
			if _, ok := a.Coord.Catalog().Get(rest); !ok {
				printer.Warning("unknown opening %q (see: openinglens tree --help)\n", rest)
				continue
			}
			a.SelectOpening(rest)
		case "tc":
			a.SetTimeControl(rest)
		case "elo":
			a.SetElo(rest)
		case "color":
			if rest != coordinator.ColorBoth && rest != coordinator.ColorWhite && rest != coordinator.ColorBlack {
				printer.Warning("color must be both, white or black\n")
				continue
			}
			a.SetColor(rest)
		case "tree":
			drawTree(a)
			continue
		case "flip":
			a.Flip()
		case "reset":
			a.Reset()
		default:
			printer.Warning("unknown command %q\n", verb)
			continue
		}
		drawState(a)
	}
}

// doMove applies coordinate move entry like "e2e4" or "e7e8q".
func doMove(a *app.App, arg string) error {
	from, to, promo, err := parseMoveArg(arg)
	if err != nil {
		return err
	}
	return a.Board.HandleMove(from, to, promo)
}

func parseMoveArg(arg string) (rules.Square, rules.Square, rules.PieceType, error) {
	if len(arg) != 4 && len(arg) != 5 {
		return "", "", "", fmt.Errorf("move must be <from><to>[piece], e.g. e2e4 or e7e8q")
	}
	from, err := rules.ParseSquare(arg[:2])
	if err != nil {
		return "", "", "", err
	}
	to, err := rules.ParseSquare(arg[2:4])
	if err != nil {
		return "", "", "", err
	}
	var promo rules.PieceType
	if len(arg) == 5 {
		promo = rules.PieceType(strings.ToLower(arg[4:]))
	}
	return from, to, promo, nil
}

var pieceGlyphs = map[rules.Color]map[rules.PieceType]string{
	rules.White: {
		rules.Pawn: "P", rules.Knight: "N", rules.Bishop: "B",
		rules.Rook: "R", rules.Queen: "Q", rules.King: "K",
	},
	rules.Black: {
		rules.Pawn: "p", rules.Knight: "n", rules.Bishop: "b",
		rules.Rook: "r", rules.Queen: "q", rules.King: "k",
	},
}

// drawState prints the board from the current orientation, the line,
// and the filters.
func drawState(a *app.App) {
	pos := a.Board.Position()
	whiteSide := a.Board.Orientation() == rules.White

	files := "abcdefgh"
	bold := color.New(color.Bold)

	for r := 0; r < 8; r++ {
		rank := 8 - r
		if !whiteSide {
			rank = r + 1
		}
		printer.Printf("%d ", rank)
		for f := 0; f < 8; f++ {
			file := f
			if !whiteSide {
				file = 7 - f
			}
			sq := rules.Square(fmt.Sprintf("%c%d", files[file], rank))
			glyph := "."
			if p, ok := pos.PieceAt(sq); ok {
				glyph = pieceGlyphs[p.Color][p.Type]
			}
			if p := a.Board.LastMovePair(); p != nil && (p.From == sq || p.To == sq) {
				glyph = bold.Sprint(glyph)
			}
			printer.Printf("%s ", glyph)
		}
		printer.Println()
	}
	printer.Printf("  ")
	for f := 0; f < 8; f++ {
		file := f
		if !whiteSide {
			file = 7 - f
		}
		printer.Printf("%c ", files[file])
	}
	printer.Println()

	printer.Printf("line: ")
	printer.MoveLine(a.Store.Line())

	f := a.Coord.Filters()
	printer.Printf("filters: %s / %s / %s / %s\n", f.TimeControl, f.Elo, f.Color, f.Opening)

	switch pos.Turn() {
	case rules.White:
		printer.Printf("white to move")
	case rules.Black:
		printer.Printf("black to move")
	}
	if pos.IsMate() {
		printer.Printf("  (checkmate)")
	} else if pos.InCheck() {
		printer.Printf("  (check)")
	} else if pos.IsStalemate() {
		printer.Printf("  (stalemate)")
	}
	printer.Println()
}

// drawTree prints the navigator's current hierarchy around its focus.
func drawTree(a *app.App) {
	state, msg := a.Tree.CurrentState()
	switch state {
	case tree.StateEmpty:
		printer.Warning("no data: %s\n", msg)
		return
	case tree.StateNotFound:
		printer.Warning("%s\n", msg)
		return
	}

	h := a.Tree.Hierarchy()
	if h.Root.Move != "" {
		printer.Printf("subtree: ")
		printer.MoveLine(line.Numbered(h.Root.Path))
	}
	if focused := a.Tree.Focused(); focused != nil && focused.Move != "" {
		printer.Printf("focus: ")
		printer.MoveLine(line.Numbered(focused.Path))
	}
	printExploreTree(h.Root, 0)
}

func printExploreTree(n *tree.Node, depth int) {
	if n.Move != "" {
		printer.TreeRow(depth, n.Move, n.Count, n.Name)
		depth++
	}
	if depth > 3 {
		return
	}
	for _, child := range n.Children {
		printExploreTree(child, depth)
	}
}
