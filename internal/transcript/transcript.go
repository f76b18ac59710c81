package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// CommandPrefix introduces the command line in a transcript file.
const CommandPrefix = "$ "

// Transcript is a captured command invocation and its optional output.
type Transcript struct {
	Command   string `json:"command" yaml:"command"`
	Output    string `json:"output,omitempty" yaml:"output,omitempty"`
	HasOutput bool   `json:"-" yaml:"-"`
}

// NewTranscript builds a transcript with output.
func NewTranscript(command, output string) Transcript {
	return Transcript{Command: command, Output: output, HasOutput: true}
}

// Lines classifies the output with the default classifier. A transcript
// without output yields nil; the command itself is never classified.
func (t Transcript) Lines() []Line {
	return t.LinesWith(defaultClassifier)
}

// LinesWith classifies the output with c, or the default classifier when c
// is nil.
func (t Transcript) LinesWith(c *Classifier) []Line {
	if !t.HasOutput {
		return nil
	}
	if c == nil {
		c = defaultClassifier
	}
	return c.Classify(t.Output)
}

// Parse reads a transcript file. A first line of the form "$ <command>" holds
// the command and the rest is output; otherwise the whole input is output.
func Parse(r io.Reader) (Transcript, error) {
	br := bufio.NewReader(r)

	first, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return Transcript{}, fmt.Errorf("reading transcript: %w", err)
	}

	rest, err := io.ReadAll(br)
	if err != nil {
		return Transcript{}, fmt.Errorf("reading transcript: %w", err)
	}

	head := strings.TrimRight(first, "\r\n")
	if strings.HasPrefix(head, CommandPrefix) {
		t := Transcript{Command: strings.TrimSpace(strings.TrimPrefix(head, CommandPrefix))}
		if len(rest) > 0 {
			t.Output = string(rest)
			t.HasOutput = true
		}
		return t, nil
	}

	all := first + string(rest)
	if all == "" {
		return Transcript{}, nil
	}
	return Transcript{Output: all, HasOutput: true}, nil
}

// ParseString is Parse over a string.
func ParseString(s string) Transcript {
	// strings.Reader never fails.
	t, _ := Parse(strings.NewReader(s))
	return t
}

// Stats counts lines per category.
func Stats(lines []Line) map[Category]int {
	counts := make(map[Category]int, len(categoryNames))
	for _, l := range lines {
		counts[l.Category]++
	}
	return counts
}
