package render

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/pcstyle/termsim/internal/reveal"
	"github.com/pcstyle/termsim/internal/transcript"
)

const sample = `typesim
───────────
made by pcstyle
[?] choose an option
> start typing
  mistake probability: 5%
  delay: 50-120ms
settings
`

func sampleTranscript() transcript.Transcript {
	return transcript.NewTranscript("typesim", sample)
}

func TestANSINoColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ANSI(&buf, sampleTranscript(), Options{NoColor: true}))

	assert.Equal(t, "$ typesim\n"+sample, buf.String())
	assert.NotContains(t, buf.String(), "\033[")
}

func TestANSIColor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ANSI(&buf, sampleTranscript(), Options{PromptGlyph: "%"}))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, ansiGreen+"%"+ansiReset))
	assert.Contains(t, out, ansiBoldCyan+"typesim"+ansiReset)
	assert.Contains(t, out, ansiYellow+"5%"+ansiReset)
	assert.Contains(t, out, ansiYellow+"50-120ms"+ansiReset)
	assert.Contains(t, out, ansiCyan+"> start typing"+ansiReset)
}

func TestANSICommandOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ANSI(&buf, transcript.Transcript{Command: "typesim --help"}, Options{NoColor: true}))
	assert.Equal(t, "$ typesim --help\n", buf.String())
}

func TestPaintLine(t *testing.T) {
	line := transcript.ClassifyLine("speed: 1.5x")
	painted := PaintLine(line, Options{})

	assert.Equal(t, ansiGray+"speed: "+ansiReset+ansiYellow+"1.5x"+ansiReset, painted)
	assert.Equal(t, "", PaintLine(transcript.ClassifyLine(""), Options{}))
	assert.Equal(t, "speed: 1.5x", PaintLine(line, Options{NoColor: true}))
}

func TestStylesFallback(t *testing.T) {
	styles := Styles{transcript.Plain: {ANSI: "p"}}
	assert.Equal(t, "p", styles.For(transcript.Header).ANSI)

	for _, c := range transcript.Categories() {
		assert.NotEmpty(t, DefaultStyles().For(c).Class, c.String())
	}
}

func TestFrame(t *testing.T) {
	assert.Equal(t, "\rhel|\033[K", Frame("hel|"))
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, transcript.Classify(sample)))

	out := buf.String()
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "Header")
	assert.Contains(t, out, "Selected")
	assert.Contains(t, out, "50-120ms")
	assert.Regexp(t, `Setting\s+2`, out)
}

func TestTableTruncatesLongLines(t *testing.T) {
	long := strings.Repeat("字", MaxLineWidth)
	var buf bytes.Buffer
	require.NoError(t, Table(&buf, transcript.Classify(long)))

	row := strings.Split(buf.String(), "\n")[1]
	assert.Contains(t, row, "…")
	assert.NotContains(t, row, long)
}

func renderString(t *testing.T, fn func(*bytes.Buffer) error) *html.Node {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fn(&buf))
	doc, err := html.Parse(&buf)
	require.NoError(t, err)
	return doc
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return true
			}
		}
		return false
	}
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func TestTerminal(t *testing.T) {
	doc := renderString(t, func(buf *bytes.Buffer) error {
		return Terminal(sampleTranscript()).Render(context.Background(), buf)
	})

	lines := findAll(doc, hasClass("line"))
	require.Len(t, lines, 8)

	expected := []string{"header", "separator", "credit", "prompt", "selected", "setting", "setting", "header"}
	for i, n := range lines {
		assert.Equal(t, expected[i], attr(n, "data-category"), "line %d", i)
	}

	values := findAll(doc, hasClass("value"))
	require.Len(t, values, 2)
	assert.Equal(t, "5%", text(values[0]))
	assert.Equal(t, "50-120ms", text(values[1]))

	command := findAll(doc, hasClass("command"))
	require.Len(t, command, 1)
	assert.Equal(t, "$ typesim", text(command[0]))
}

func TestTerminalWithOptions(t *testing.T) {
	classifier := transcript.New(transcript.Options{SettingKeywords: []string{"volume"}})
	tr := transcript.NewTranscript("mixer", "volume 80%\ndelay 10ms\n")

	doc := renderString(t, func(buf *bytes.Buffer) error {
		return TerminalWith(tr, Options{PromptGlyph: "❯", Classifier: classifier}).Render(context.Background(), buf)
	})

	command := findAll(doc, hasClass("command"))
	require.Len(t, command, 1)
	assert.Equal(t, "❯ mixer", text(command[0]))

	lines := findAll(doc, hasClass("line"))
	require.Len(t, lines, 2)
	assert.Equal(t, "setting", attr(lines[0], "data-category"))
	assert.Equal(t, "menu", attr(lines[1], "data-category"))
}

func TestANSIUsesClassifier(t *testing.T) {
	classifier := transcript.New(transcript.Options{SettingKeywords: []string{"volume"}})
	var buf bytes.Buffer
	require.NoError(t, ANSI(&buf, transcript.NewTranscript("", "volume 80%\n"), Options{Classifier: classifier}))
	assert.Contains(t, buf.String(), ansiYellow+"80%"+ansiReset)
}

func TestColorEnabled(t *testing.T) {
	assert.False(t, ColorEnabled(&bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, ColorEnabled(f), "regular files are not terminals")

	t.Setenv("NO_COLOR", "1")
	assert.False(t, ColorEnabled(os.Stdout))
}

func TestTerminalEscapes(t *testing.T) {
	var buf bytes.Buffer
	tr := transcript.NewTranscript("<script>alert(1)</script>", "<b>bold</b>\n")
	require.NoError(t, Terminal(tr).Render(context.Background(), &buf))

	assert.NotContains(t, buf.String(), "<script>")
	assert.NotContains(t, buf.String(), "<b>")
	assert.Contains(t, buf.String(), "&lt;b&gt;")
}

func TestTerminalWithoutOutput(t *testing.T) {
	doc := renderString(t, func(buf *bytes.Buffer) error {
		return Terminal(transcript.Transcript{Command: "typesim"}).Render(context.Background(), buf)
	})

	assert.Empty(t, findAll(doc, hasClass("output")))
	assert.Len(t, findAll(doc, hasClass("command")), 1)
}

func TestTypingDemo(t *testing.T) {
	state := reveal.State{SourceText: "héllo", Revealed: 2, CursorVisible: true}

	doc := renderString(t, func(buf *bytes.Buffer) error {
		return TypingDemo(state, "_").Render(context.Background(), buf)
	})
	demo := findAll(doc, hasClass("typing-demo"))
	require.Len(t, demo, 1)
	assert.Equal(t, "hé_", text(demo[0]))
	assert.Equal(t, "2", attr(demo[0], "data-revealed"))

	state.CursorVisible = false
	doc = renderString(t, func(buf *bytes.Buffer) error {
		return TypingDemo(state, "_").Render(context.Background(), buf)
	})
	assert.Empty(t, findAll(doc, hasClass("cursor")))
}

func TestPage(t *testing.T) {
	state := reveal.State{SourceText: "hi", CursorVisible: true}
	page := Page("termsim <preview>", TypingDemo(state, "|"), Terminal(sampleTranscript()))

	doc := renderString(t, func(buf *bytes.Buffer) error {
		return page.Render(context.Background(), buf)
	})

	titles := findAll(doc, func(n *html.Node) bool { return n.Data == "title" })
	require.Len(t, titles, 1)
	assert.Equal(t, "termsim <preview>", text(titles[0]))
	assert.Len(t, findAll(doc, hasClass("typing-demo")), 1)
	assert.Len(t, findAll(doc, hasClass("terminal")), 1)

	scripts := findAll(doc, func(n *html.Node) bool { return n.Data == "script" })
	require.Len(t, scripts, 1)
	require.NotNil(t, scripts[0].FirstChild)
	assert.Contains(t, scripts[0].FirstChild.Data, "tw.onclose", "transcript socket reconnects")
}
