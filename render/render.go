package render

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cpp4you/snippetexec/annotate"
	"github.com/cpp4you/snippetexec/sandbox"
	"github.com/cpp4you/snippetexec/snippet"
)

// ErrMismatchedResult is returned when an execution result belongs to a
// different snippet.
var ErrMismatchedResult = errors.New("execution result does not belong to snippet")

// CSS classes applied to display lines.
const (
	ClassHighlighted = "code-block-highlighted-line"
	ClassError       = "code-block-error-line"
	ClassWarning     = "code-block-warning-line"
)

// Line is one display line with its decorations.
type Line struct {
	// Number is the 1-based display line number.
	Number int `json:"number"`

	// Text is the line without its newline.
	Text string `json:"text"`

	// Classes are the CSS classes for the line, in a fixed order.
	Classes []string `json:"classes,omitempty"`

	// Types are the pushed type names active on the line.
	Types []string `json:"types,omitempty"`
}

// HasClass reports whether the line carries class.
func (l Line) HasClass(class string) bool {
	return slices.Contains(l.Classes, class)
}

// RenderedSnippet is the display unit for one snippet.
type RenderedSnippet struct {
	SnippetID     string                   `json:"snippetId"`
	Title         string                   `json:"title"`
	Language      snippet.Language         `json:"language"`
	LanguageLabel string                   `json:"languageLabel"`
	DisplaySource string                   `json:"displaySource"`
	Lines         []Line                   `json:"lines"`
	Annotations   []annotate.Annotation    `json:"annotations,omitempty"`
	Warnings      []annotate.Warning       `json:"warnings,omitempty"`
	Execution     *sandbox.ExecutionResult `json:"execution,omitempty"`
}

// Static reports whether the snippet was rendered without execution output.
func (r RenderedSnippet) Static() bool {
	return r.Execution == nil
}

// Render combines s and an optional execution result.
//
// A nil result renders the snippet as static source. A result for another
// snippet fails with ErrMismatchedResult.
func Render(s snippet.Snippet, result *sandbox.ExecutionResult) (RenderedSnippet, error) {
	if result != nil && result.SnippetID != s.ID {
		return RenderedSnippet{}, fmt.Errorf("%w: result for %q, snippet %q", ErrMismatchedResult, result.SnippetID, s.ID)
	}

	out := RenderedSnippet{
		SnippetID:     s.ID,
		Title:         s.Title,
		Language:      s.Language,
		LanguageLabel: LanguageLabel(s.Language),
		DisplaySource: s.DisplaySource,
		Lines:         buildLines(s.DisplaySource, s.Annotations),
		Annotations:   slices.Clone(s.Annotations),
		Warnings:      slices.Clone(s.Warnings),
	}
	if result != nil {
		res := *result
		out.Execution = &res
	}
	return out, nil
}

var upper = cases.Upper(language.English)

// LanguageLabel returns the display label for lang, e.g. "C++20".
func LanguageLabel(lang snippet.Language) string {
	return upper.String(strings.Replace(string(lang), "cpp", "c++", 1))
}

// buildLines splits source into display lines and applies annotations.
func buildLines(source string, anns []annotate.Annotation) []Line {
	texts := displayLines(source)
	if len(texts) == 0 {
		return nil
	}

	byLine := make(map[int][]annotate.Annotation)
	for _, a := range anns {
		byLine[a.Line] = append(byLine[a.Line], a)
	}

	lines := make([]Line, len(texts))
	var scope typeScope
	for i, text := range texts {
		n := i + 1
		var highlighted, errored, warned bool
		for _, a := range byLine[n] {
			switch a.Kind {
			case annotate.HighlightLine:
				highlighted = true
			case annotate.ErrorLine:
				errored = true
			case annotate.WarningLine:
				warned = true
			case annotate.PushType:
				scope.push(a.Group, a.Payload)
			case annotate.PopType:
				scope.pop()
			}
		}

		line := Line{Number: n, Text: text, Types: scope.active()}
		if highlighted {
			line.Classes = append(line.Classes, ClassHighlighted)
		}
		if errored {
			line.Classes = append(line.Classes, ClassError)
		}
		if warned {
			line.Classes = append(line.Classes, ClassWarning)
		}
		lines[i] = line
	}
	return lines
}

// displayLines splits source on newlines. A trailing newline does not start
// another line.
func displayLines(source string) []string {
	if source == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(source, "\n"), "\n")
}

// typeScope tracks pushed type-name groups.
type typeScope struct {
	groups []typeGroup
}

type typeGroup struct {
	id    int
	names []string
}

func (s *typeScope) push(group int, name string) {
	if n := len(s.groups); n > 0 && group != 0 && s.groups[n-1].id == group {
		s.groups[n-1].names = append(s.groups[n-1].names, name)
		return
	}
	s.groups = append(s.groups, typeGroup{id: group, names: []string{name}})
}

func (s *typeScope) pop() {
	if n := len(s.groups); n > 0 {
		s.groups = s.groups[:n-1]
	}
}

// active returns the distinct names in push order. Nil when none.
func (s *typeScope) active() []string {
	var names []string
	for _, g := range s.groups {
		for _, name := range g.names {
			if !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}
