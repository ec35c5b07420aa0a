// Package render composes an annotated snippet and an optional execution
// result into one display unit.
//
// Render is pure: the same snippet and result always produce the same
// RenderedSnippet, and the output shares no memory with its inputs. HTML turns
// a RenderedSnippet into a sanitized fragment for the documentation page.
package render
