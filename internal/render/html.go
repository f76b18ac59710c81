package render

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/pcstyle/termsim/internal/reveal"
	"github.com/pcstyle/termsim/internal/transcript"
)

// Terminal renders a terminal card: a title bar, the command row and one
// element per classified output line.
func Terminal(t transcript.Transcript) templ.Component {
	return TerminalWith(t, Options{})
}

// TerminalWith renders Terminal with the prompt glyph, styles and classifier
// from opts. NoColor is ignored; HTML is always styled by class.
func TerminalWith(t transcript.Transcript, opts Options) templ.Component {
	opts = opts.withDefaults()
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(`<div class="terminal rounded-lg border border-gray-800 bg-black font-mono text-sm">`)
		b.WriteString(`<div class="terminal-bar flex gap-2 px-4 py-2 border-b border-gray-800">`)
		b.WriteString(`<span class="dot bg-red-500"></span><span class="dot bg-yellow-500"></span><span class="dot bg-green-500"></span>`)
		b.WriteString(`</div>`)
		b.WriteString(`<div class="terminal-body p-4">`)

		if t.Command != "" {
			b.WriteString(`<div class="command"><span class="prompt text-green-400">`)
			b.WriteString(templ.EscapeString(opts.PromptGlyph))
			b.WriteString(`</span> <span class="text-white">`)
			b.WriteString(templ.EscapeString(t.Command))
			b.WriteString(`</span></div>`)
		}

		if t.HasOutput {
			b.WriteString(`<div class="output mt-2">`)
			for _, line := range t.LinesWith(opts.Classifier) {
				writeLine(&b, line, opts.Styles)
			}
			b.WriteString(`</div>`)
		}

		b.WriteString(`</div></div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeLine(b *strings.Builder, line transcript.Line, styles Styles) {
	style := styles.For(line.Category)

	b.WriteString(`<div class="line `)
	b.WriteString(templ.EscapeString(style.Class))
	b.WriteString(`" data-category="`)
	b.WriteString(line.Category.String())
	b.WriteString(`">`)

	switch {
	case line.Category == transcript.SettingLine && len(line.Tokens) > 0:
		for _, tok := range line.Tokens {
			if tok.IsValue {
				b.WriteString(`<span class="value `)
				b.WriteString(templ.EscapeString(style.ValueClass))
				b.WriteString(`">`)
			} else {
				b.WriteString(`<span>`)
			}
			b.WriteString(templ.EscapeString(tok.Text))
			b.WriteString(`</span>`)
		}
	case line.Raw == "":
		// Keep blank lines at full height.
		b.WriteString("&nbsp;")
	default:
		b.WriteString(templ.EscapeString(line.Raw))
	}

	b.WriteString(`</div>`)
}

// TypingDemo renders an animator snapshot. The cursor span is present only
// while the cursor is visible.
func TypingDemo(state reveal.State, glyph string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder

		b.WriteString(`<div class="typing-demo font-mono text-lg" data-revealed="`)
		b.WriteString(strconv.Itoa(state.Revealed))
		b.WriteString(`"><span class="text">`)
		b.WriteString(templ.EscapeString(state.Visible()))
		b.WriteString(`</span>`)
		if state.CursorVisible {
			b.WriteString(`<span class="cursor text-cyan-400">`)
			b.WriteString(templ.EscapeString(glyph))
			b.WriteString(`</span>`)
		}
		b.WriteString(`</div>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}

// Page composes the typing demo and the terminal into a full document. The
// page script connects the demo to /ws/reveal and the terminal to
// /ws/transcript, reopening the transcript socket whenever it closes.
func Page(title string, demo, terminal templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+`</title><style>`+pageCSS+`</style></head><body>`+
			`<main><section id="demo">`); err != nil {
			return err
		}
		if err := demo.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `</section><section id="transcript">`); err != nil {
			return err
		}
		if err := terminal.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</section></main><script>`+pageScript+`</script></body></html>`)
		return err
	})
}

const pageCSS = `body{background:#000;color:#d1d5db;font-family:ui-monospace,monospace}` +
	`main{max-width:48rem;margin:2rem auto}` +
	`.cursor{animation:none}.dot{display:inline-block;width:.75rem;height:.75rem;border-radius:9999px}` +
	`.text-cyan-400{color:#22d3ee}.text-gray-300{color:#d1d5db}.text-gray-400{color:#9ca3af}` +
	`.text-gray-600{color:#4b5563}.text-yellow-400{color:#facc15}.text-green-400{color:#4ade80}` +
	`.font-bold{font-weight:700}.line{white-space:pre}`

const pageScript = `(function(){
var proto=location.protocol==="https:"?"wss://":"ws://";
var demo=document.querySelector("#demo .typing-demo");
if(demo){var ws=new WebSocket(proto+location.host+"/ws/reveal");
ws.onmessage=function(e){var s=JSON.parse(e.data);demo.textContent=s.frame;};}
var term=document.getElementById("transcript");
function follow(){var tw=new WebSocket(proto+location.host+"/ws/transcript");
tw.onmessage=function(e){var m=JSON.parse(e.data);if(m.html){term.innerHTML=m.html;}};
tw.onclose=function(){setTimeout(follow,1000);};}
follow();
})();`
