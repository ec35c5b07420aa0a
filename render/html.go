package render

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"slices"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var fragment = template.Must(template.New("snippet").Parse(
	`<figure class="code-block" data-language="{{.Language}}">` +
		`<figcaption class="code-block-title">{{.Title}} <span class="code-block-language">{{.LanguageLabel}}</span></figcaption>` +
		`<pre class="code-block-source"><code class="language-cpp">` +
		`{{range .Lines}}<span class="{{.Class}}" data-line="{{.Number}}">` +
		`{{range .Segments}}{{if .TypeName}}<span class="token class-name">{{.Text}}</span>{{else}}{{.Text}}{{end}}{{end}}` +
		"</span>\n{{end}}" +
		`</code></pre>` +
		`{{with .Execution}}<div class="code-block-output" data-status="{{.Status}}">` +
		`{{if .Stdout}}<pre class="code-block-stdout">{{.Stdout}}</pre>{{end}}` +
		`{{if .Stderr}}<pre class="code-block-stderr">{{.Stderr}}</pre>{{end}}` +
		`</div>{{end}}` +
		`</figure>`))

var (
	classPattern = regexp.MustCompile(`^[a-z0-9-]+( [a-z0-9-]+)*$`)
	tokenPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
	identPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// policy allows only the markup the fragment template emits.
func policy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("figure", "figcaption", "pre", "code", "span", "div")
	p.AllowAttrs("class").Matching(classPattern).OnElements("figure", "figcaption", "pre", "code", "span", "div")
	p.AllowAttrs("data-line").Matching(bluemonday.Integer).OnElements("span")
	p.AllowAttrs("data-language").Matching(tokenPattern).OnElements("figure")
	p.AllowAttrs("data-status").Matching(tokenPattern).OnElements("div")
	return p
}

var sanitizer = policy()

type htmlView struct {
	RenderedSnippet
	Lines []htmlLine
}

type htmlLine struct {
	Number   int
	Class    string
	Segments []segment
}

type segment struct {
	Text     string
	TypeName bool
}

// HTML renders r as a sanitized HTML fragment.
func HTML(r RenderedSnippet) (string, error) {
	view := htmlView{RenderedSnippet: r, Lines: make([]htmlLine, len(r.Lines))}
	for i, line := range r.Lines {
		view.Lines[i] = htmlLine{
			Number:   line.Number,
			Class:    strings.Join(append([]string{"code-line"}, line.Classes...), " "),
			Segments: segments(line.Text, line.Types),
		}
	}

	var buf bytes.Buffer
	if err := fragment.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("render html for %s: %w", r.SnippetID, err)
	}
	return sanitizer.Sanitize(buf.String()), nil
}

// segments splits text so identifiers equal to a type name stand alone.
// Identifiers inside string or character literals and comments are left as
// plain text.
func segments(text string, types []string) []segment {
	if len(types) == 0 || text == "" {
		return []segment{{Text: text}}
	}

	var out []segment
	last := 0
	for _, span := range codeSpans(text) {
		for _, loc := range identPattern.FindAllStringIndex(text[span[0]:span[1]], -1) {
			start, end := span[0]+loc[0], span[0]+loc[1]
			word := text[start:end]
			if !slices.Contains(types, word) {
				continue
			}
			if start > last {
				out = append(out, segment{Text: text[last:start]})
			}
			out = append(out, segment{Text: word, TypeName: true})
			last = end
		}
	}
	if last < len(text) {
		out = append(out, segment{Text: text[last:]})
	}
	return out
}

// codeSpans returns the byte ranges of text that hold plain code, skipping
// quoted literals, line comments and block comments that open on the line.
func codeSpans(text string) [][2]int {
	var spans [][2]int
	emit := func(from, to int) {
		if to > from {
			spans = append(spans, [2]int{from, to})
		}
	}

	start := 0
	for i := 0; i < len(text); {
		switch {
		case text[i] == '"' || (text[i] == '\'' && !digitSeparator(text, i)):
			emit(start, i)
			quote := text[i]
			i++
			for i < len(text) && text[i] != quote {
				if text[i] == '\\' {
					i++
				}
				i++
			}
			i = min(i+1, len(text))
			start = i
		case strings.HasPrefix(text[i:], "//"):
			emit(start, i)
			return spans
		case strings.HasPrefix(text[i:], "/*"):
			emit(start, i)
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return spans
			}
			i += 2 + end + 2
			start = i
		default:
			i++
		}
	}
	emit(start, len(text))
	return spans
}

// digitSeparator reports whether the quote at i separates digits, as in 1'000.
func digitSeparator(text string, i int) bool {
	return i > 0 && text[i-1] >= '0' && text[i-1] <= '9'
}
