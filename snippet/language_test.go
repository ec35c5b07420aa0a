package snippet

import (
	"errors"
	"testing"
)

func TestParseLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want Language
		err  error
	}{
		{"cpp20", LangCpp20, nil},
		{"C++23", LangCpp23, nil},
		{" c++17 ", LangCpp17, nil},
		{"cpp", LangCpp, nil},
		{"go", "", ErrInvalidLanguage},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLanguage(tt.in)
			if !errors.Is(err, tt.err) {
				t.Fatalf("ParseLanguage(%q) error = %v, want %v", tt.in, err, tt.err)
			}
			if got != tt.want {
				t.Errorf("ParseLanguage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLanguage_Standard(t *testing.T) {
	tests := map[Language]string{
		LangCpp17: "c++17",
		LangCpp20: "c++20",
		LangCpp23: "c++23",
		LangCpp:   "c++23",
		"bogus":   "",
	}
	for lang, want := range tests {
		if got := lang.Standard(); got != want {
			t.Errorf("%q.Standard() = %q, want %q", lang, got, want)
		}
	}
}

func TestLanguageFromStem(t *testing.T) {
	tests := map[string]Language{
		"sort-array-cpp20":                LangCpp20,
		"reverse-words-in-string-cpp23":   LangCpp23,
		"ExampleCppCode_FizzBuzz":         LangCpp,
		"trailing-dash-":                  LangCpp,
		"simple-player-struct-cpp20.copy": LangCpp,
	}
	for stem, want := range tests {
		if got := languageFromStem(stem); got != want {
			t.Errorf("languageFromStem(%q) = %q, want %q", stem, got, want)
		}
	}
}
