// Package transcript classifies captured command transcripts line by line so a
// renderer can apply differentiated emphasis without re-deriving meaning.
//
// Classification is a pure function of the input text. Every line gets exactly
// one Category; setting lines are additionally split into alternating plain
// and value tokens whose concatenation reproduces the line.
package transcript

import "fmt"

// Category is the semantic kind of a transcript line.
type Category int

const (
	Plain Category = iota
	Header
	Separator
	Credit
	Prompt
	SelectedMenuItem
	SettingLine
	MenuItem
)

var categoryNames = map[Category]string{
	Plain:            "plain",
	Header:           "header",
	Separator:        "separator",
	Credit:           "credit",
	Prompt:           "prompt",
	SelectedMenuItem: "selected",
	SettingLine:      "setting",
	MenuItem:         "menu",
}

// Categories lists every category in classification priority order, with the
// Plain fallback last.
func Categories() []Category {
	return []Category{Header, Separator, Credit, Prompt, SelectedMenuItem, SettingLine, MenuItem, Plain}
}

// String returns the stable lowercase name of the category.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCategory is the inverse of String.
func ParseCategory(name string) (Category, error) {
	for c, n := range categoryNames {
		if n == name {
			return c, nil
		}
	}
	return Plain, fmt.Errorf("unknown category %q", name)
}

// MarshalText implements encoding.TextMarshaler so categories serialize by name
// in both JSON and YAML output.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
