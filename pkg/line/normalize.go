package line

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	braceComments = regexp.MustCompile(`\{[^}]*\}`)
	glyphs        = regexp.MustCompile(`\$\d+`)
	moveNumber    = regexp.MustCompile(`^\d+\.(\.\.)?`)
)

// resultTokens are the PGN game-termination markers. They carry no move
// information and are stripped during normalization.
var resultTokens = map[string]bool{
	"1-0":     true,
	"0-1":     true,
	"1/2-1/2": true,
	"*":       true,
}

// Normalize reduces raw movetext to the canonical form stored in the
// line store: move tokens only, separated by single spaces.
//
// It strips tag-pair lines ("[Event ...]"), brace comments,
// parenthesized variations (including nested ones), numeric annotation
// glyphs ("$7"), move numbers ("1." / "3..." / glued "1.e4"), and
// result tokens, then collapses whitespace.
func Normalize(raw string) string {
	var kept []string
	for _, l := range strings.Split(raw, "\n") {
		if strings.HasPrefix(strings.TrimSpace(l), "[") {
			continue
		}
		kept = append(kept, l)
	}
	text := strings.Join(kept, " ")

	text = braceComments.ReplaceAllString(text, " ")
	text = stripVariations(text)
	text = glyphs.ReplaceAllString(text, " ")

	var tokens []string
	for _, tok := range strings.Fields(text) {
		tok = moveNumber.ReplaceAllString(tok, "")
		if tok == "" || resultTokens[tok] {
			continue
		}
		tokens = append(tokens, tok)
	}
	return strings.Join(tokens, " ")
}

// stripVariations removes parenthesized variations, tracking nesting
// depth so "(e4 (e5))" disappears entirely.
func stripVariations(text string) string {
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
				continue
			}
			// Unbalanced close; drop it rather than keep a stray paren.
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// Tokens splits a canonical line into its move tokens.
// Returns nil for the empty line.
func Tokens(canonical string) []string {
	if canonical == "" {
		return nil
	}
	return strings.Fields(canonical)
}

// Numbered renders move tokens as numbered movetext, the form shown to
// users and written back by the tree's zoom interaction:
// ["e4","e5","Nf3"] → "1. e4 e5 2. Nf3".
func Numbered(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteByte(' ')
		}
		if i%2 == 0 {
			b.WriteString(strconv.Itoa(i/2 + 1))
			b.WriteString(". ")
		}
		b.WriteString(tok)
	}
	return b.String()
}
