// Package render paints classified transcripts and reveal frames for the
// terminal and for the browser preview.
//
// Meaning lives in the transcript package; this package only maps each
// Category to a Style. Swapping the table restyles every surface at once.
package render

import (
	"github.com/pcstyle/termsim/internal/transcript"
)

// ANSI SGR sequences.
const (
	ansiReset    = "\033[0m"
	ansiBold     = "\033[1m"
	ansiCyan     = "\033[36m"
	ansiBoldCyan = "\033[1;36m"
	ansiYellow   = "\033[33m"
	ansiGray     = "\033[90m"
	ansiDim      = "\033[2;37m"
	ansiLight    = "\033[37m"
	ansiGreen    = "\033[32m"
)

// Style is how one category is painted.
type Style struct {
	// ANSI is the SGR sequence opened before the text.
	ANSI string
	// ValueANSI paints value tokens of setting lines.
	ValueANSI string
	// Class is the CSS class list for the line element.
	Class string
	// ValueClass is the CSS class list for value token spans.
	ValueClass string
}

// Styles maps categories to their paint.
type Styles map[transcript.Category]Style

// DefaultStyles matches the typesim site palette.
func DefaultStyles() Styles {
	return Styles{
		transcript.Header:           {ANSI: ansiBoldCyan, Class: "text-cyan-400 font-bold"},
		transcript.Separator:        {ANSI: ansiDim, Class: "text-gray-600"},
		transcript.Credit:           {ANSI: ansiDim, Class: "text-gray-600"},
		transcript.Prompt:           {ANSI: ansiCyan, Class: "text-cyan-400"},
		transcript.SelectedMenuItem: {ANSI: ansiCyan, Class: "text-cyan-400"},
		transcript.SettingLine: {
			ANSI:       ansiGray,
			ValueANSI:  ansiYellow,
			Class:      "text-gray-400",
			ValueClass: "text-yellow-400",
		},
		transcript.MenuItem: {ANSI: ansiLight, Class: "text-gray-300"},
		transcript.Plain:    {ANSI: ansiGray, Class: "text-gray-400"},
	}
}

// For returns the style for c, falling back to Plain.
func (s Styles) For(c transcript.Category) Style {
	if style, ok := s[c]; ok {
		return style
	}
	return s[transcript.Plain]
}
