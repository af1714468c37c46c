// Package localization loads per language translation data from disk. Data
// lives under a base directory, one folder per language code, with one flat
// translation file per source module.
package localization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

// ErrNoTranslations is returned when a language has no translation file for
// the requested module.
var ErrNoTranslations = errors.New("no translations found")

// extensions lists the translation file forms probed per module, in order of
// preference.
var extensions = []string{".i18n.json", ".i18n.toml"}

// Option configures a Loader.
type Option func(*Loader)

// WithContentDir scopes module lookups to a directory inside each language
// folder, for trees whose compiled output lives below the project root.
func WithContentDir(dir string) Option {
	return func(l *Loader) {
		l.contentDir = dir
	}
}

// Loader resolves and parses translation files below a base directory.
type Loader struct {
	baseDir      string
	contentDir   string
	unmarshalers map[string]i18n.UnmarshalFunc
}

// NewLoader creates a loader rooted at baseDir, defaulting to "i18n".
func NewLoader(baseDir string, opts ...Option) *Loader {
	if baseDir == "" {
		baseDir = "i18n"
	}
	l := &Loader{
		baseDir: baseDir,
		unmarshalers: map[string]i18n.UnmarshalFunc{
			"json": json.Unmarshal,
			"toml": toml.Unmarshal,
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the translation data a given language holds for one module and
// returns it as a flat key to message map. Comment sibling entries
// (_<key>.comment) document context for translators and are not translations,
// so they are dropped. Wraps ErrNoTranslations when no file exists.
func (l *Loader) Load(_ context.Context, code string, module string) (map[string]string, error) {
	for _, ext := range extensions {
		path := filepath.Join(l.baseDir, code, l.contentDir, module+ext)
		data, err := os.ReadFile(path) // #nosec G304 -- paths are derived from operator supplied directories.
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return l.parse(data, path)
	}
	return nil, fmt.Errorf("%w: language %s has no data for module %s", ErrNoTranslations, code, module)
}

func (l *Loader) parse(data []byte, path string) (map[string]string, error) {
	file, err := i18n.ParseMessageFileBytes(data, path, l.unmarshalers)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	translations := make(map[string]string, len(file.Messages))
	for _, message := range file.Messages {
		if isCommentEntry(message.ID) {
			continue
		}
		translations[message.ID] = message.Other
	}
	return translations, nil
}

// Bundle builds a go-i18n bundle over every translation file a language
// folder holds, for callers that want templated lookups instead of the raw
// maps Load returns.
func (l *Loader) Bundle(code string) (*i18n.Bundle, error) {
	bundle := i18n.NewBundle(language.English)
	for format, fn := range l.unmarshalers {
		bundle.RegisterUnmarshalFunc(format, fn)
	}

	dir := filepath.Join(l.baseDir, code, l.contentDir)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !hasTranslationExt(path) {
			return err
		}
		if _, loadErr := bundle.LoadMessageFile(path); loadErr != nil {
			return fmt.Errorf("loading %s: %w", path, loadErr)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: language %s", ErrNoTranslations, code)
	}
	if err != nil {
		return nil, err
	}
	return bundle, nil
}

// Languages lists the language folders present under the base directory.
func (l *Loader) Languages() ([]string, error) {
	entries, err := os.ReadDir(l.baseDir)
	if err != nil {
		return nil, err
	}
	var codes []string
	for _, e := range entries {
		if e.IsDir() {
			codes = append(codes, e.Name())
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func isCommentEntry(id string) bool {
	return strings.HasPrefix(id, "_") && strings.HasSuffix(id, ".comment")
}

func hasTranslationExt(path string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
