package transcript

import (
	"regexp"
	"strings"
)

// Token is one segment of a setting line. Value tokens carry the configured
// quantity (a percentage, a delay range, a toggle) and are painted with emphasis.
type Token struct {
	Text    string `json:"text" yaml:"text"`
	IsValue bool   `json:"value" yaml:"value"`
}

// Line is a single classified transcript line. Tokens is only populated for
// SettingLine.
type Line struct {
	Raw      string   `json:"raw" yaml:"raw"`
	Category Category `json:"category" yaml:"category"`
	Tokens   []Token  `json:"tokens,omitempty" yaml:"tokens,omitempty"`
}

// Options is the vocabulary a Classifier recognizes.
type Options struct {
	// SettingKeywords mark a line as a configurable parameter.
	SettingKeywords []string
	// CreditMarker marks an authorship attribution line.
	CreditMarker string
	// SeparatorRun marks a rule drawn with box-drawing dashes.
	SeparatorRun string
	// PromptMarker marks an interactive prompt.
	PromptMarker string
	// SelectionMarker prefixes the highlighted menu choice.
	SelectionMarker string
}

// DefaultOptions returns the vocabulary of the typesim transcripts.
func DefaultOptions() Options {
	return Options{
		SettingKeywords: []string{"probability", "delay", "pause", "use ai", "countdown", "speed"},
		CreditMarker:    "made by",
		SeparatorRun:    "───",
		PromptMarker:    "[?]",
		SelectionMarker: ">",
	}
}

var headerPattern = regexp.MustCompile(`^[a-z]+$`)

// Classifier assigns categories to transcript lines. It holds no mutable state
// and is safe for concurrent use.
type Classifier struct {
	opts Options
}

// New creates a classifier. Empty option fields fall back to the defaults.
func New(opts Options) *Classifier {
	def := DefaultOptions()
	if len(opts.SettingKeywords) == 0 {
		opts.SettingKeywords = def.SettingKeywords
	}
	if opts.CreditMarker == "" {
		opts.CreditMarker = def.CreditMarker
	}
	if opts.SeparatorRun == "" {
		opts.SeparatorRun = def.SeparatorRun
	}
	if opts.PromptMarker == "" {
		opts.PromptMarker = def.PromptMarker
	}
	if opts.SelectionMarker == "" {
		opts.SelectionMarker = def.SelectionMarker
	}
	return &Classifier{opts: opts}
}

var defaultClassifier = New(DefaultOptions())

// Default returns the shared classifier with the default vocabulary.
func Default() *Classifier {
	return defaultClassifier
}

// Classify classifies a transcript with the default classifier.
func Classify(transcript string) []Line {
	return defaultClassifier.Classify(transcript)
}

// ClassifyLine classifies a single line with the default classifier.
func ClassifyLine(raw string) Line {
	return defaultClassifier.ClassifyLine(raw)
}

// Classify splits a transcript into lines and classifies each one. Order and
// count are preserved, blank lines included. A final line terminator does not
// start an extra line, so an empty transcript yields no lines.
func (c *Classifier) Classify(transcript string) []Line {
	raw := SplitLines(transcript)
	lines := make([]Line, 0, len(raw))
	for _, r := range raw {
		lines = append(lines, c.ClassifyLine(r))
	}
	return lines
}

// ClassifyLine applies the rules in priority order; the first match wins.
func (c *Classifier) ClassifyLine(raw string) Line {
	category := c.category(raw)
	line := Line{Raw: raw, Category: category}
	if category == SettingLine {
		line.Tokens = Tokenize(raw)
	}
	return line
}

func (c *Classifier) category(raw string) Category {
	trimmed := strings.TrimSpace(raw)

	switch {
	case headerPattern.MatchString(trimmed):
		return Header
	case strings.Contains(raw, c.opts.SeparatorRun):
		return Separator
	case strings.Contains(raw, c.opts.CreditMarker):
		return Credit
	case strings.Contains(raw, c.opts.PromptMarker):
		return Prompt
	case strings.HasPrefix(trimmed, c.opts.SelectionMarker):
		return SelectedMenuItem
	case c.isSetting(raw):
		return SettingLine
	case trimmed != "" && !strings.HasPrefix(raw, " "+c.opts.SelectionMarker):
		return MenuItem
	default:
		return Plain
	}
}

func (c *Classifier) isSetting(raw string) bool {
	for _, kw := range c.opts.SettingKeywords {
		if strings.Contains(raw, kw) {
			return true
		}
	}
	return false
}

// SplitLines splits on "\n", dropping a trailing "\r" from each line. The
// terminator after the last line is optional.
func SplitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	parts := strings.Split(s, "\n")
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}
