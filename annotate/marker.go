package annotate

import "strings"

// markerKind enumerates the closed set of marker variants the scanner knows.
type markerKind int

const (
	// markerPlain is the fallthrough: the line is ordinary source.
	markerPlain markerKind = iota
	markerHighlightNextLine
	markerHighlightStart
	markerHighlightEnd
	markerErrorNextLine
	markerWarningNextLine
	markerPushTypes
	markerPopTypes
)

// Marker comment bodies.
const (
	HighlightNextLineMarker = "highlight-next-line"
	HighlightStartMarker    = "highlight-start"
	HighlightEndMarker      = "highlight-end"
	ErrorNextLineMarker     = "error-next-line"
	WarningNextLineMarker   = "warning-next-line"
	PushTypesPrefix         = "prism-push-types:"
	PopTypesMarker          = "prism-pop-types"
)

type marker struct {
	kind  markerKind
	names []string
}

// parseMarker classifies a single source line.
func parseMarker(line string) marker {
	body, ok := commentBody(line)
	if !ok {
		return marker{kind: markerPlain}
	}

	switch body {
	case HighlightNextLineMarker:
		return marker{kind: markerHighlightNextLine}
	case HighlightStartMarker:
		return marker{kind: markerHighlightStart}
	case HighlightEndMarker:
		return marker{kind: markerHighlightEnd}
	case ErrorNextLineMarker:
		return marker{kind: markerErrorNextLine}
	case WarningNextLineMarker:
		return marker{kind: markerWarningNextLine}
	case PopTypesMarker:
		return marker{kind: markerPopTypes}
	}

	if rest, found := strings.CutPrefix(body, PushTypesPrefix); found {
		return marker{kind: markerPushTypes, names: splitTypeNames(rest)}
	}
	return marker{kind: markerPlain}
}

// commentBody returns the trimmed text of a full-line comment.
func commentBody(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(trimmed, "//"); ok {
		return strings.TrimSpace(rest), true
	}
	if len(trimmed) >= 4 && strings.HasPrefix(trimmed, "/*") && strings.HasSuffix(trimmed, "*/") {
		return strings.TrimSpace(trimmed[2 : len(trimmed)-2]), true
	}
	return "", false
}

func splitTypeNames(list string) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" || strings.ContainsAny(name, " \t") {
			continue
		}
		names = append(names, name)
	}
	return names
}
