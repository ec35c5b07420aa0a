package snippet

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/cpp4you/snippetexec/annotate"
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// ValidateID checks that id is usable as a snippet identifier.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// Source describes one example program before annotation.
type Source struct {
	// ID uniquely names the snippet. Required.
	ID string

	// Raw is the source text including marker comments.
	Raw string

	// Language is the declared language. Defaults to LangCpp.
	Language Language

	// Title is a human-readable name. Defaults to ID.
	Title string

	// Tags are optional search keywords.
	Tags []string

	// Static disables execution; the snippet is only displayed.
	Static bool
}

// Snippet is a named, immutable unit of example source plus its annotations.
type Snippet struct {
	ID            string                `json:"id"`
	Title         string                `json:"title"`
	Language      Language              `json:"language"`
	Tags          []string              `json:"tags,omitempty"`
	RawSource     string                `json:"rawSource"`
	DisplaySource string                `json:"displaySource"`
	Annotations   []annotate.Annotation `json:"annotations,omitempty"`
	Warnings      []annotate.Warning    `json:"warnings,omitempty"`
	Runnable      bool                  `json:"runnable"`
}

// New annotates src and returns the resulting snippet.
func New(src Source) (Snippet, error) {
	if err := ValidateID(src.ID); err != nil {
		return Snippet{}, err
	}
	lang := src.Language
	if lang == "" {
		lang = LangCpp
	}
	if !lang.IsValid() {
		return Snippet{}, fmt.Errorf("%w: %q for snippet %s", ErrInvalidLanguage, lang, src.ID)
	}
	title := src.Title
	if title == "" {
		title = src.ID
	}

	res := annotate.Annotate(src.Raw)
	return Snippet{
		ID:            src.ID,
		Title:         title,
		Language:      lang,
		Tags:          slices.Clone(src.Tags),
		RawSource:     src.Raw,
		DisplaySource: res.DisplaySource,
		Annotations:   res.Annotations,
		Warnings:      res.Warnings,
		Runnable:      !src.Static,
	}, nil
}

// clone returns a copy of s that shares no slices with it.
func (s Snippet) clone() Snippet {
	s.Tags = slices.Clone(s.Tags)
	s.Annotations = slices.Clone(s.Annotations)
	s.Warnings = slices.Clone(s.Warnings)
	return s
}
