// Package annotate turns raw example source into display source plus a list of
// line annotations.
//
// Marker comments are full-line comments written as `// marker` or
// `/* marker */`. They are stripped from the display source and never counted as
// display lines. The recognized markers are:
//
//   - highlight-next-line: highlight the next display line
//   - highlight-start / highlight-end: highlight every display line in between
//   - error-next-line, warning-next-line: mark the next display line
//   - prism-push-types:A,B: treat A and B as type names (document level when it
//     appears before any code, otherwise from the next display line onward)
//   - prism-pop-types: drop the most recently pushed type names
//
// Anything else, including comments that merely resemble a marker, is kept as a
// normal line.
//
// # Warnings
//
// Problems found while scanning (an unterminated highlight block, an annotation
// pointing past the last display line) never abort annotation. They are returned
// as [Warning] values next to the annotations that survived.
package annotate
