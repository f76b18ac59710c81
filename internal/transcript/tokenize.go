package transcript

import "regexp"

// valuePattern recognizes the value literals printed by the settings table.
// Alternatives are tried leftmost-first, so the longer shapes are listed before
// the bare number that would otherwise swallow their digits.
var valuePattern = regexp.MustCompile(
	`\d+(?:-\d+)?ms` + // 50ms, 50-150ms
		`|\d+(?:\.\d+)?%` + // 8.0%
		`|\d+(?:\.\d+)?x` + // 1.5x
		`|\d+s` + // 3s
		`|(?i:\b(?:yes|no)\b)` + // toggle
		`|\d+(?:\.\d+)?`,
)

// Tokenize splits a line into alternating plain and value tokens. Empty
// segments are never emitted, and the tokens concatenate back to line.
func Tokenize(line string) []Token {
	if line == "" {
		return nil
	}

	matches := valuePattern.FindAllStringIndex(line, -1)
	tokens := make([]Token, 0, 2*len(matches)+1)

	pos := 0
	for _, m := range matches {
		if m[0] > pos {
			tokens = append(tokens, Token{Text: line[pos:m[0]]})
		}
		tokens = append(tokens, Token{Text: line[m[0]:m[1]], IsValue: true})
		pos = m[1]
	}
	if pos < len(line) {
		tokens = append(tokens, Token{Text: line[pos:]})
	}

	return tokens
}

// Join concatenates token texts.
func Join(tokens []Token) string {
	n := 0
	for _, t := range tokens {
		n += len(t.Text)
	}
	buf := make([]byte, 0, n)
	for _, t := range tokens {
		buf = append(buf, t.Text...)
	}
	return string(buf)
}

// IsValue reports whether s is exactly one value literal.
func IsValue(s string) bool {
	loc := valuePattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}
