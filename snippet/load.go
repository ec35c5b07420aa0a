package snippet

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// DefaultManifest is the manifest file name looked up by LoadFS.
const DefaultManifest = "snippets.yaml"

// DefaultPattern selects source files when no manifest is present.
const DefaultPattern = "*.cpp"

// Logger is the interface for logging.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoadOptions configures LoadFS.
type LoadOptions struct {
	// Manifest is the manifest path inside the file system.
	// Default: snippets.yaml. A missing manifest is not an error.
	Manifest string

	// Pattern selects source files when there is no manifest.
	// Default: *.cpp
	Pattern string

	// Logger receives annotation warnings. Optional.
	Logger Logger
}

// Manifest lists the snippets of a collection.
type Manifest struct {
	Snippets []ManifestEntry `yaml:"snippets"`
}

// ManifestEntry describes one snippet in a manifest.
type ManifestEntry struct {
	ID       string   `yaml:"id"`
	File     string   `yaml:"file"`
	Title    string   `yaml:"title"`
	Language string   `yaml:"language"`
	Tags     []string `yaml:"tags"`
	// Run defaults to true when omitted.
	Run *bool `yaml:"run"`
}

// LoadFS reads a fixed collection of snippets from fsys and returns the store.
//
// With a manifest, entries are loaded in manifest order. Without one, every file
// matching the pattern becomes a snippet named after its stem, with the
// language taken from a "-cppNN" stem suffix.
func LoadFS(fsys fs.FS, opts LoadOptions) (*Store, error) {
	if opts.Manifest == "" {
		opts.Manifest = DefaultManifest
	}
	if opts.Pattern == "" {
		opts.Pattern = DefaultPattern
	}

	sources, err := readSources(fsys, opts)
	if err != nil {
		return nil, err
	}

	snippets := make([]Snippet, 0, len(sources))
	for _, src := range sources {
		sn, err := New(src)
		if err != nil {
			return nil, err
		}
		if opts.Logger != nil {
			for _, w := range sn.Warnings {
				opts.Logger.Warn("snippet annotation warning", "snippet", sn.ID, "warning", w.String())
			}
		}
		snippets = append(snippets, sn)
	}

	store, err := NewStore(snippets...)
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		opts.Logger.Info("snippets loaded", "count", store.Len())
	}
	return store, nil
}

func readSources(fsys fs.FS, opts LoadOptions) ([]Source, error) {
	data, err := fs.ReadFile(fsys, opts.Manifest)
	switch {
	case err == nil:
		return sourcesFromManifest(fsys, data, opts.Manifest)
	case errors.Is(err, fs.ErrNotExist):
		return sourcesFromGlob(fsys, opts.Pattern)
	default:
		return nil, fmt.Errorf("read manifest %s: %w", opts.Manifest, err)
	}
}

func sourcesFromManifest(fsys fs.FS, data []byte, name string) ([]Source, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", name, err)
	}

	dir := path.Dir(name)
	out := make([]Source, 0, len(m.Snippets))
	for i, e := range m.Snippets {
		if e.File == "" {
			return nil, fmt.Errorf("manifest %s: snippets[%d]: file is required", name, i)
		}
		stem := strings.TrimSuffix(path.Base(e.File), path.Ext(e.File))
		id := e.ID
		if id == "" {
			id = stem
		}

		lang := languageFromStem(stem)
		if e.Language != "" {
			parsed, err := ParseLanguage(e.Language)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: snippets[%d]: %w", name, i, err)
			}
			lang = parsed
		}

		raw, err := fs.ReadFile(fsys, path.Join(dir, e.File))
		if err != nil {
			return nil, fmt.Errorf("read snippet %s: %w", e.File, err)
		}
		out = append(out, Source{
			ID:       id,
			Raw:      Normalize(raw),
			Language: lang,
			Title:    e.Title,
			Tags:     e.Tags,
			Static:   e.Run != nil && !*e.Run,
		})
	}
	return out, nil
}

func sourcesFromGlob(fsys fs.FS, pattern string) ([]Source, error) {
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	out := make([]Source, 0, len(matches))
	for _, file := range matches {
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("read snippet %s: %w", file, err)
		}
		stem := strings.TrimSuffix(path.Base(file), path.Ext(file))
		out = append(out, Source{
			ID:       stem,
			Raw:      Normalize(raw),
			Language: languageFromStem(stem),
		})
	}
	return out, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normalize prepares raw file bytes for annotation: it strips a UTF-8 byte
// order mark, converts CRLF line endings to LF and applies Unicode NFC.
func Normalize(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	raw = bytes.ReplaceAll(raw, []byte("\r\n"), []byte("\n"))
	return norm.NFC.String(string(raw))
}
