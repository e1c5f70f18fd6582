package core

import (
	"fmt"
	"slices"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
Each non-blank line of a template bank is one template:

Line        := Segment*
Segment     := Placeholder | Text
Placeholder := "{" (letter | digit | "_")+ "}"
Text        := any run of characters that is not a placeholder

A brace that does not open or close a placeholder is kept as literal text.
*/

var (
	templateLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Placeholder", Pattern: `\{[\p{L}\p{N}_]+\}`},
		{Name: "Brace", Pattern: `[{}]`},
		{Name: "Text", Pattern: `[^{}]+`},
	})

	lineParser = participle.MustBuild[templateLine](
		participle.Lexer(templateLexer),
	)
)

// Placeholder names that are request meta fields and can never be template parameters.
var ReservedWords = []string{"required", "lang"}

type templateLine struct {
	Segments []*segment `@@*`
}

type segment struct {
	Placeholder string `  @Placeholder`
	Text        string `| @(Text | Brace)`
}

func (s *segment) param() string {
	if s.Placeholder == "" {
		return ""
	}
	return s.Placeholder[1 : len(s.Placeholder)-1]
}

// Template is a single parsed line of a template bank. Params holds each
// placeholder name once, in order of first occurrence.
type Template struct {
	Text   string
	Params []string

	segments []*segment
}

type ReservedWordError struct {
	Line     int
	Word     string
	Template string
}

func (e *ReservedWordError) Error() string {
	return fmt.Sprintf("template on line %d uses reserved placeholder {%s}: %q", e.Line, e.Word, e.Template)
}

type MissingSubstitutionError struct {
	Param    string
	Template string
}

func (e *MissingSubstitutionError) Error() string {
	return fmt.Sprintf("no value for placeholder {%s} in template %q", e.Param, e.Template)
}

func ParseTemplate(text string) (Template, error) {
	line, err := lineParser.ParseString("", text)
	if err != nil {
		return Template{}, fmt.Errorf("error parsing template '%s': %w", text, err)
	}

	tmpl := Template{Text: text, segments: line.Segments}
	for _, seg := range line.Segments {
		if name := seg.param(); name != "" && !slices.Contains(tmpl.Params, name) {
			tmpl.Params = append(tmpl.Params, name)
		}
	}

	return tmpl, nil
}

func ParseBank(raw []byte) ([]Template, error) {
	return ParseBankReserved(raw, ReservedWords)
}

// ParseBankReserved parses one template per non-blank line. A reserved
// placeholder anywhere in the bank fails the whole load.
func ParseBankReserved(raw []byte, reserved []string) ([]Template, error) {
	var templates []Template

	for i, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		tmpl, err := ParseTemplate(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}

		for _, param := range tmpl.Params {
			if slices.Contains(reserved, param) {
				return nil, &ReservedWordError{Line: i + 1, Word: param, Template: line}
			}
		}

		templates = append(templates, tmpl)
	}

	return templates, nil
}

// Render substitutes every placeholder occurrence with its value.
func (t *Template) Render(values map[string]string) (string, error) {
	var out strings.Builder
	for _, seg := range t.segments {
		name := seg.param()
		if name == "" {
			out.WriteString(seg.Text)
			continue
		}

		value, ok := values[name]
		if !ok {
			return "", &MissingSubstitutionError{Param: name, Template: t.Text}
		}
		out.WriteString(value)
	}
	return out.String(), nil
}

func (t *Template) Weight() int {
	return len(t.Params) * len(t.Params)
}
