package render

import (
	"bufio"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/pcstyle/termsim/internal/transcript"
)

// DefaultPromptGlyph precedes the command row.
const DefaultPromptGlyph = "$"

// Options controls terminal and HTML output.
type Options struct {
	NoColor     bool
	PromptGlyph string
	Styles      Styles
	// Classifier defaults to transcript.Default().
	Classifier *transcript.Classifier
}

func (o Options) withDefaults() Options {
	if o.PromptGlyph == "" {
		o.PromptGlyph = DefaultPromptGlyph
	}
	if o.Styles == nil {
		o.Styles = DefaultStyles()
	}
	if o.Classifier == nil {
		o.Classifier = transcript.Default()
	}
	return o
}

// ColorEnabled reports whether SGR sequences should be written to w: never
// when NO_COLOR is set, otherwise only when w is a terminal.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// ANSI writes the command row followed by one painted row per classified
// output line. A transcript without output prints only the command row.
func ANSI(w io.Writer, t transcript.Transcript, opts Options) error {
	opts = opts.withDefaults()
	bw := bufio.NewWriter(w)

	if t.Command != "" {
		if opts.NoColor {
			bw.WriteString(opts.PromptGlyph + " " + t.Command + "\n")
		} else {
			bw.WriteString(ansiGreen + opts.PromptGlyph + ansiReset + " " + ansiBold + t.Command + ansiReset + "\n")
		}
	}

	for _, line := range t.LinesWith(opts.Classifier) {
		bw.WriteString(PaintLine(line, opts))
		bw.WriteByte('\n')
	}

	return bw.Flush()
}

// PaintLine returns line with SGR sequences applied.
func PaintLine(line transcript.Line, opts Options) string {
	opts = opts.withDefaults()
	if opts.NoColor {
		return line.Raw
	}

	style := opts.Styles.For(line.Category)
	if line.Category != transcript.SettingLine || len(line.Tokens) == 0 {
		if line.Raw == "" {
			return ""
		}
		return style.ANSI + line.Raw + ansiReset
	}

	var b strings.Builder
	for _, tok := range line.Tokens {
		if tok.IsValue {
			b.WriteString(style.ValueANSI + tok.Text + ansiReset)
		} else {
			b.WriteString(style.ANSI + tok.Text + ansiReset)
		}
	}
	return b.String()
}

// Frame returns a reveal frame prepared for in-place redraw: carriage return,
// frame text, then erase to end of line.
func Frame(frame string) string {
	return "\r" + frame + "\033[K"
}
