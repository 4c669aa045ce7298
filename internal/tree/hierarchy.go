// Package tree builds the radial frequency hierarchy and keeps its
// focus in step with the canonical line.
package tree

import (
	"fmt"
	"math"

	"openinglens/internal/catalog"
	"openinglens/internal/dataset"
)

// Node is one slice of the radial hierarchy. The synthetic root has an
// empty Move; every other node carries the move token it represents and
// the full move path from the game start.
type Node struct {
	Move    string
	Name    string
	Variant string
	Count   int
	Stats   []float64 // [whiteWins, draws, blackWins]

	Parent   *Node
	Children []*Node
	Path     []string // move tokens from the game start to this node

	// Radial partition layout: angular span in radians and the ring
	// index. The root spans the full circle at depth 0.
	X0, X1 float64
	Depth  int
}

// Hierarchy is a built radial tree for one (slice, opening) selection.
type Hierarchy struct {
	Root *Node
	// Partial is set when the opening's catalog prefix is longer than
	// the path present in the data; the tree is still built from
	// whatever portion exists.
	Partial  bool
	MaxDepth int
}

// OpeningNotFoundError indicates that none of an opening's prefix moves
// exist in the selected dataset slice. Non-fatal: rendered as an
// explicit "not found" state.
type OpeningNotFoundError struct {
	Opening     string
	TimeControl string
	Elo         string
}

func (e *OpeningNotFoundError) Error() string {
	return fmt.Sprintf("opening %q not found in %s/%s data", e.Opening, e.TimeControl, e.Elo)
}

// IsOpeningNotFound returns true if the error is an OpeningNotFoundError.
func IsOpeningNotFound(err error) bool {
	_, ok := err.(*OpeningNotFoundError)
	return ok
}

// Build constructs the hierarchy for a filter selection. With an active
// opening filter the catalog prefix is walked into the slice and the
// first matched node roots the subtree; without one the full forest
// hangs off a synthetic root.
func Build(d *dataset.Dataset, cat *catalog.Catalog, timeControl, elo, opening string) (*Hierarchy, error) {
	forest, err := d.Slice(timeControl, elo)
	if err != nil {
		return nil, err
	}

	root := &Node{Name: catalog.AllOpening}
	partial := false

	if opening != "" && opening != catalog.AllOpening {
		entry, ok := cat.Get(opening)
		if !ok {
			return nil, &OpeningNotFoundError{Opening: opening, TimeControl: timeControl, Elo: elo}
		}

		first, matchedDepth := walkPrefix(forest, entry.Prefix)
		if first == nil {
			return nil, &OpeningNotFoundError{Opening: opening, TimeControl: timeControl, Elo: elo}
		}
		partial = matchedDepth < len(entry.Prefix)

		root = convert(first, nil, nil)
		if root.Name == "" {
			root.Name = opening
		}
	} else {
		for _, n := range forest {
			root.Children = append(root.Children, convert(n, root, nil))
		}
	}

	h := &Hierarchy{Root: root, Partial: partial}
	h.MaxDepth = layout(root)
	return h, nil
}

// walkPrefix descends prefix tokens into the forest as far as matches
// exist. Returns the node matched by the first token (the subtree root)
// and how many tokens matched in total; (nil, 0) when even the first
// token is absent.
func walkPrefix(forest []*dataset.Node, prefix []string) (*dataset.Node, int) {
	var first *dataset.Node
	depth := 0
	level := forest
	for _, tok := range prefix {
		var next *dataset.Node
		for _, n := range level {
			if n.Move == tok {
				next = n
				break
			}
		}
		if next == nil {
			break
		}
		if first == nil {
			first = next
		}
		depth++
		level = next.Children
	}
	return first, depth
}

// convert copies a dataset subtree into layout nodes, accumulating the
// move path. parentPath is the path to the node's parent.
func convert(src *dataset.Node, parent *Node, parentPath []string) *Node {
	path := make([]string, 0, len(parentPath)+1)
	path = append(path, parentPath...)
	path = append(path, src.Move)

	n := &Node{
		Move:    src.Move,
		Name:    src.Name,
		Variant: src.Variant,
		Count:   src.Count,
		Stats:   src.Stats,
		Parent:  parent,
		Path:    path,
	}
	for _, child := range src.Children {
		n.Children = append(n.Children, convert(child, n, path))
	}
	return n
}

// layout assigns the radial partition: each node's angular span is
// divided among its children in proportion to their counts, preserving
// child order. Returns the deepest ring index.
func layout(root *Node) int {
	root.X0, root.X1 = 0, 2*math.Pi
	root.Depth = 0
	return layoutChildren(root)
}

func layoutChildren(n *Node) int {
	deepest := n.Depth
	total := 0
	for _, c := range n.Children {
		total += c.Count
	}
	if total == 0 {
		return deepest
	}

	span := n.X1 - n.X0
	at := n.X0
	for _, c := range n.Children {
		frac := float64(c.Count) / float64(total)
		c.X0 = at
		c.X1 = at + span*frac
		c.Depth = n.Depth + 1
		at = c.X1

		if d := layoutChildren(c); d > deepest {
			deepest = d
		}
	}
	return deepest
}

// FindNodeForSequence walks tokens from the root, matching each against
// a child's move label. When the root itself carries a move (an opening
// subtree) and it equals the first token, that token is skipped. Returns
// nil on the first unmatched token; no fuzzy matching.
func (h *Hierarchy) FindNodeForSequence(tokens []string) *Node {
	node, rest := h.start(tokens)
	for _, tok := range rest {
		next := childByMove(node, tok)
		if next == nil {
			return nil
		}
		node = next
	}
	return node
}

// FindDeepestAncestor walks like FindNodeForSequence but stops at the
// last matched node instead of failing, so a line that has outrun the
// data still focuses its nearest recorded ancestor.
func (h *Hierarchy) FindDeepestAncestor(tokens []string) *Node {
	node, rest := h.start(tokens)
	for _, tok := range rest {
		next := childByMove(node, tok)
		if next == nil {
			break
		}
		node = next
	}
	return node
}

func (h *Hierarchy) start(tokens []string) (*Node, []string) {
	if h.Root.Move != "" && len(tokens) > 0 && tokens[0] == h.Root.Move {
		return h.Root, tokens[1:]
	}
	return h.Root, tokens
}

func childByMove(n *Node, move string) *Node {
	for _, c := range n.Children {
		if c.Move == move {
			return c
		}
	}
	return nil
}
