package render

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pcstyle/termsim/internal/transcript"
)

// MaxLineWidth caps the LINE column in terminal cells.
const MaxLineWidth = 60

// Table writes one row per line with its category and value tokens, followed
// by per-category totals.
func Table(w io.Writer, lines []transcript.Line) error {
	title := cases.Title(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "#\tCATEGORY\tVALUES\tLINE")
	for i, line := range lines {
		var values []string
		for _, tok := range line.Tokens {
			if tok.IsValue {
				values = append(values, tok.Text)
			}
		}
		vals := strings.Join(values, ",")
		if vals == "" {
			vals = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, title.String(line.Category.String()), vals, runewidth.Truncate(line.Raw, MaxLineWidth, "…"))
	}

	if len(lines) > 0 {
		fmt.Fprintln(tw)
		stats := transcript.Stats(lines)
		for _, c := range transcript.Categories() {
			if n := stats[c]; n > 0 {
				fmt.Fprintf(tw, "\t%s\t%d\t\n", title.String(c.String()), n)
			}
		}
	}

	return tw.Flush()
}
