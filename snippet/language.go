package snippet

import (
	"fmt"
	"strings"
)

// Language is the declared language standard of a snippet.
type Language string

const (
	// LangCpp is C++ without a pinned standard.
	LangCpp Language = "cpp"
	// LangCpp17 is C++17.
	LangCpp17 Language = "cpp17"
	// LangCpp20 is C++20.
	LangCpp20 Language = "cpp20"
	// LangCpp23 is C++23.
	LangCpp23 Language = "cpp23"
)

var knownLanguages = []Language{LangCpp, LangCpp17, LangCpp20, LangCpp23}

// Languages returns every known language tag.
func Languages() []Language {
	return append([]Language(nil), knownLanguages...)
}

// IsValid reports whether l is a known language tag.
func (l Language) IsValid() bool {
	for _, k := range knownLanguages {
		if l == k {
			return true
		}
	}
	return false
}

// Standard returns the compiler -std value for l, e.g. "c++20".
// LangCpp maps to the newest standard the site targets.
func (l Language) Standard() string {
	switch l {
	case LangCpp17:
		return "c++17"
	case LangCpp20:
		return "c++20"
	case LangCpp23, LangCpp:
		return "c++23"
	}
	return ""
}

// ParseLanguage parses a language tag, accepting "c++20" style spellings.
func ParseLanguage(s string) (Language, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "c++", "cpp")
	l := Language(norm)
	if !l.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, s)
	}
	return l, nil
}

// languageFromStem infers the language from a "-cppNN" file stem suffix.
func languageFromStem(stem string) Language {
	i := strings.LastIndex(stem, "-")
	if i < 0 {
		return LangCpp
	}
	if l := Language(stem[i+1:]); l.IsValid() {
		return l
	}
	return LangCpp
}
