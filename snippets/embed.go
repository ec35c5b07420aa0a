// Package snippets bundles the example programs shown on the site.
package snippets

import "embed"

// FS holds the bundled sources and their manifest.
//
//go:embed *.cpp snippets.yaml
var FS embed.FS
