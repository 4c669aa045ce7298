// Package dataset loads the aggregated opening-frequency asset produced
// by the offline pipeline. The file is validated fail-fast at load time
// so that every later access can assume a well-formed tree.
package dataset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Time controls and elo brackets the pipeline emits. Anything else in
// the asset is a build error and rejected at load.
var (
	TimeControls = []string{"bullet", "blitz", "rapid"}
	EloBrackets  = []string{"500-1000", "1000-1500", "1500-2000", "2000+"}
)

// Node is one move in a frequency tree. Stats is [whiteWins, draws,
// blackWins] as rates in [0,1].
type Node struct {
	Move     string    `json:"move"`
	Name     string    `json:"name,omitempty"`    // dominant opening name at this node
	Variant  string    `json:"variant,omitempty"` // optional display label
	Count    int       `json:"count"`
	Stats    []float64 `json:"stats"`
	Children []*Node   `json:"children,omitempty"`
}

// Dataset holds one move forest per (time control, elo bracket) slice.
type Dataset struct {
	slices map[string]map[string][]*Node
}

// Load reads and validates a dataset file.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	d, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("invalid dataset %s: %w", path, err)
	}
	return d, nil
}

// Decode parses and validates dataset JSON from r.
func Decode(r io.Reader) (*Dataset, error) {
	var raw map[string]map[string][]*Node
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}

	for tc, brackets := range raw {
		if !contains(TimeControls, tc) {
			return nil, fmt.Errorf("unknown time control %q (want one of %v)", tc, TimeControls)
		}
		for elo, forest := range brackets {
			if !contains(EloBrackets, elo) {
				return nil, fmt.Errorf("time control %q: unknown elo bracket %q (want one of %v)", tc, elo, EloBrackets)
			}
			for i, n := range forest {
				if err := validateNode(n, fmt.Sprintf("%s/%s[%d]", tc, elo, i)); err != nil {
					return nil, err
				}
			}
		}
	}

	return &Dataset{slices: raw}, nil
}

func validateNode(n *Node, path string) error {
	if n == nil {
		return fmt.Errorf("node %s: null entry", path)
	}
	if n.Move == "" {
		return fmt.Errorf("node %s: move is required", path)
	}
	if n.Count < 1 {
		return fmt.Errorf("node %s (%s): count must be >= 1, got %d", path, n.Move, n.Count)
	}
	if len(n.Stats) != 3 {
		return fmt.Errorf("node %s (%s): stats must be [whiteWins, draws, blackWins], got %d values", path, n.Move, len(n.Stats))
	}
	for _, v := range n.Stats {
		if v < 0 || v > 1 {
			return fmt.Errorf("node %s (%s): stats rate %v out of [0,1]", path, n.Move, v)
		}
	}
	for i, child := range n.Children {
		if err := validateNode(child, fmt.Sprintf("%s/%s[%d]", path, n.Move, i)); err != nil {
			return err
		}
	}
	return nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Slice returns the move forest for a (time control, elo bracket) pair.
// Returns a MissingSliceError when the pair is absent; missing slices
// are expected for sparse datasets and render as an empty state.
func (d *Dataset) Slice(timeControl, elo string) ([]*Node, error) {
	brackets, ok := d.slices[timeControl]
	if !ok {
		return nil, &MissingSliceError{TimeControl: timeControl, Elo: elo}
	}
	forest, ok := brackets[elo]
	if !ok || len(forest) == 0 {
		return nil, &MissingSliceError{TimeControl: timeControl, Elo: elo}
	}
	return forest, nil
}

// MissingSliceError indicates that a (time control, elo) slice is not
// present in the dataset. Non-fatal: callers render a placeholder.
type MissingSliceError struct {
	TimeControl string
	Elo         string
}

func (e *MissingSliceError) Error() string {
	return fmt.Sprintf("no dataset slice for time control %q, elo %q", e.TimeControl, e.Elo)
}

// IsMissingSlice returns true if the error is a MissingSliceError.
func IsMissingSlice(err error) bool {
	_, ok := err.(*MissingSliceError)
	return ok
}
