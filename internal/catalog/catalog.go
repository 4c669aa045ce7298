// Package catalog maps opening names to canonical move prefixes and
// detects which opening a line belongs to by longest-prefix match.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"openinglens/pkg/line"
)

// AllOpening is the reserved no-filter sentinel. It carries no prefix
// and never matches a line.
const AllOpening = "All"

// Entry ties an opening name to its canonical move prefix.
type Entry struct {
	Name   string
	Prefix []string // move tokens; empty only for AllOpening
}

// Catalog holds opening entries in file order. File order is the
// tie-break when two entries have equal-length prefixes.
type Catalog struct {
	entries []Entry
	byName  map[string]Entry
	// candidates is the detection scan order: non-empty prefixes,
	// longest first, file order within a length.
	candidates []Entry
}

// Load reads a catalog file: a flat JSON object of
// {"openingName": "prefix movetext"}.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return c, nil
}

// Decode parses catalog JSON from r. Object key order is preserved,
// which is why this walks the token stream instead of unmarshaling into
// a map. Validation is fail-fast: the reserved "All" entry must carry
// no prefix, and every other entry must carry one.
func Decode(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("catalog must be a JSON object, got %v", tok)
	}

	c := &Catalog{byName: make(map[string]Entry)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
		}
		name := keyTok.(string)

		var movetext string
		if err := dec.Decode(&movetext); err != nil {
			return nil, fmt.Errorf("opening %q: prefix must be a string: %w", name, err)
		}

		prefix := line.Tokens(line.Normalize(movetext))
		if name == AllOpening && len(prefix) > 0 {
			return nil, fmt.Errorf("reserved opening %q must carry no prefix", AllOpening)
		}
		if name != AllOpening && len(prefix) == 0 {
			return nil, fmt.Errorf("opening %q has an empty prefix", name)
		}
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("duplicate opening %q", name)
		}

		entry := Entry{Name: name, Prefix: prefix}
		c.entries = append(c.entries, entry)
		c.byName[name] = entry
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}

	c.buildCandidates()
	return c, nil
}

// buildCandidates precomputes the detection scan order: descending
// prefix length, stable so file order breaks ties.
func (c *Catalog) buildCandidates() {
	for _, e := range c.entries {
		if len(e.Prefix) > 0 {
			c.candidates = append(c.candidates, e)
		}
	}
	sort.SliceStable(c.candidates, func(i, j int) bool {
		return len(c.candidates[i].Prefix) > len(c.candidates[j].Prefix)
	})
}

// DetectFromPrefix returns the opening whose prefix is the longest
// literal token-prefix of the canonical line. Returns false when no
// entry matches.
func (c *Catalog) DetectFromPrefix(canonical string) (Entry, bool) {
	tokens := line.Tokens(canonical)
	for _, e := range c.candidates {
		if isTokenPrefix(e.Prefix, tokens) {
			return e, true
		}
	}
	return Entry{}, false
}

func isTokenPrefix(prefix, tokens []string) bool {
	if len(prefix) > len(tokens) {
		return false
	}
	for i, p := range prefix {
		if tokens[i] != p {
			return false
		}
	}
	return true
}

// Get looks up an entry by name.
func (c *Catalog) Get(name string) (Entry, bool) {
	e, ok := c.byName[name]
	return e, ok
}

// Names lists opening names in file order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}
