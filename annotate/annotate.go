package annotate

import (
	"fmt"
	"strings"
)

// Kind identifies what an annotation does to its target line.
type Kind string

const (
	// HighlightLine marks a display line as highlighted.
	HighlightLine Kind = "highlight-line"

	// ErrorLine marks a display line as the site of an error.
	ErrorLine Kind = "error-line"

	// WarningLine marks a display line as the site of a warning.
	WarningLine Kind = "warning-line"

	// PushType registers Payload as a type name from Line onward.
	PushType Kind = "push-type"

	// PopType drops the most recent group of pushed type names from Line onward.
	PopType Kind = "pop-type"
)

// IsValid reports whether k is a known annotation kind.
func (k Kind) IsValid() bool {
	switch k {
	case HighlightLine, ErrorLine, WarningLine, PushType, PopType:
		return true
	}
	return false
}

// Annotation attaches a directive to one display line.
type Annotation struct {
	// Kind is the directive.
	Kind Kind `json:"kind"`

	// Line is the 1-based display line the annotation targets.
	Line int `json:"line"`

	// Payload carries the type name for PushType. Empty otherwise.
	Payload string `json:"payload,omitempty"`

	// Group numbers PushType annotations that came from the same marker so a
	// PopType can remove them together. Zero for other kinds.
	Group int `json:"group,omitempty"`
}

// Warning is a non-fatal problem found while annotating.
type Warning struct {
	// SourceLine is the 1-based raw source line the warning refers to.
	// Zero when the warning is not tied to a raw line.
	SourceLine int `json:"sourceLine,omitempty"`

	// Message describes the problem.
	Message string `json:"message"`
}

// String returns the warning with its source line, if known.
func (w Warning) String() string {
	if w.SourceLine > 0 {
		return fmt.Sprintf("line %d: %s", w.SourceLine, w.Message)
	}
	return w.Message
}

// Result is the outcome of annotating one source text.
type Result struct {
	// DisplaySource is the source with every marker line removed.
	DisplaySource string

	// Annotations are ordered by target line, then by marker order.
	Annotations []Annotation

	// Warnings lists dropped annotations and malformed marker usage.
	Warnings []Warning
}

// LineCount returns the number of display lines.
func (r Result) LineCount() int {
	return countLines(r.DisplaySource)
}

// pending is an annotation waiting for the next retained line.
type pending struct {
	kind       Kind
	payload    string
	group      int
	sourceLine int
}

// Annotate scans raw line by line, strips marker comments and returns the
// resulting display source with its annotations.
//
// The line counter advances only for retained lines, so annotation targets are
// display line numbers. Annotate never fails; see [Warning].
func Annotate(raw string) Result {
	lines, trailingNewline := splitLines(raw)

	var (
		out        = make([]string, 0, len(lines))
		res        Result
		waiting    []pending
		inBlock    bool
		blockStart int
		group      int
	)

	for i, line := range lines {
		sourceLine := i + 1
		m := parseMarker(line)

		switch m.kind {
		case markerHighlightNextLine:
			waiting = append(waiting, pending{kind: HighlightLine, sourceLine: sourceLine})
			continue
		case markerErrorNextLine:
			waiting = append(waiting, pending{kind: ErrorLine, sourceLine: sourceLine})
			continue
		case markerWarningNextLine:
			waiting = append(waiting, pending{kind: WarningLine, sourceLine: sourceLine})
			continue
		case markerHighlightStart:
			if inBlock {
				res.Warnings = append(res.Warnings, Warning{
					SourceLine: sourceLine,
					Message:    fmt.Sprintf("nested %s ignored (block opened on line %d)", HighlightStartMarker, blockStart),
				})
				continue
			}
			inBlock, blockStart = true, sourceLine
			continue
		case markerHighlightEnd:
			if !inBlock {
				res.Warnings = append(res.Warnings, Warning{
					SourceLine: sourceLine,
					Message:    fmt.Sprintf("%s without matching %s", HighlightEndMarker, HighlightStartMarker),
				})
				continue
			}
			inBlock = false
			continue
		case markerPushTypes:
			if len(m.names) == 0 {
				res.Warnings = append(res.Warnings, Warning{
					SourceLine: sourceLine,
					Message:    PushTypesPrefix + " lists no type names",
				})
				continue
			}
			group++
			for _, name := range m.names {
				if len(out) == 0 {
					// Types pushed before any code apply to the whole document.
					res.Annotations = append(res.Annotations, Annotation{Kind: PushType, Line: 1, Payload: name, Group: group})
					continue
				}
				waiting = append(waiting, pending{kind: PushType, payload: name, group: group, sourceLine: sourceLine})
			}
			continue
		case markerPopTypes:
			waiting = append(waiting, pending{kind: PopType, sourceLine: sourceLine})
			continue
		}

		out = append(out, line)
		target := len(out)
		highlighted := false
		for _, p := range waiting {
			if p.kind == HighlightLine {
				if highlighted {
					continue
				}
				highlighted = true
			}
			res.Annotations = append(res.Annotations, Annotation{Kind: p.kind, Line: target, Payload: p.payload, Group: p.group})
		}
		waiting = waiting[:0]
		if inBlock && !highlighted {
			res.Annotations = append(res.Annotations, Annotation{Kind: HighlightLine, Line: target})
		}
	}

	if inBlock {
		res.Warnings = append(res.Warnings, Warning{
			SourceLine: blockStart,
			Message:    fmt.Sprintf("%s is never closed; highlighted to end of source", HighlightStartMarker),
		})
	}

	// Next-line markers at the end of the source have nothing to attach to and
	// are ignored. Pushes and pops past the last line are reported.
	for _, p := range waiting {
		if p.kind != PushType && p.kind != PopType {
			continue
		}
		res.Warnings = append(res.Warnings, Warning{
			SourceLine: p.sourceLine,
			Message:    fmt.Sprintf("%s annotation targets line %d but display source has %d lines; dropped", p.kind, len(out)+1, len(out)),
		})
	}

	res.DisplaySource = strings.Join(out, "\n")
	if trailingNewline && len(out) > 0 {
		res.DisplaySource += "\n"
	}
	res.Annotations, res.Warnings = dropOutOfRange(res.Annotations, res.Warnings, len(out))
	return res
}

// dropOutOfRange removes annotations whose line does not exist in the display
// source and records one warning per removed annotation.
func dropOutOfRange(anns []Annotation, ws []Warning, lineCount int) ([]Annotation, []Warning) {
	kept := make([]Annotation, 0, len(anns))
	for _, a := range anns {
		if a.Line < 1 || a.Line > lineCount {
			msg := fmt.Sprintf("%s annotation targets line %d but display source has %d lines; dropped", a.Kind, a.Line, lineCount)
			if a.Payload != "" {
				msg = fmt.Sprintf("%s annotation %q targets line %d but display source has %d lines; dropped", a.Kind, a.Payload, a.Line, lineCount)
			}
			ws = append(ws, Warning{Message: msg})
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) == 0 {
		kept = nil
	}
	return kept, ws
}

// splitLines splits raw into lines, treating CRLF as LF. The second return
// value reports whether raw ended with a newline.
func splitLines(raw string) ([]string, bool) {
	if raw == "" {
		return nil, false
	}
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	trailing := strings.HasSuffix(raw, "\n")
	raw = strings.TrimSuffix(raw, "\n")
	return strings.Split(raw, "\n"), trailing
}

func countLines(s string) int {
	lines, _ := splitLines(s)
	return len(lines)
}
