package nls

import (
	"context"
	"errors"
	"fmt"

	"github.com/pitabwire/nls/localization"
)

// TranslationSource supplies the per language translation data a bundle is
// resolved against. code is the three letter language folder and module the
// bundle path without its extension. Implementations return a map of flat
// keys to translated messages, or an error wrapping
// localization.ErrNoTranslations when the language has no data for the
// module.
type TranslationSource interface {
	Load(ctx context.Context, code string, module string) (map[string]string, error)
}

// ErrNoTranslationSource marks a file/language pair with no translation data.
// Resolution reports it as a problem rather than failing the run.
var ErrNoTranslationSource = localization.ErrNoTranslations

// ResolveResult is the outcome of resolving one bundle against one language.
// Messages is nil when the language had no translation source at all;
// Problems may be non empty even when Messages is present, partial
// translation is reported but never fatal.
type ResolveResult struct {
	Messages []string
	Problems []string
}

// Resolve substitutes every bundle message with its translation for the
// given language. Missing individual keys fall back to the bundle's original
// message and are recorded as problems; position i of the result always
// corresponds to bundle position i.
func Resolve(ctx context.Context, module string, bundle *MessageBundle, lang Language, source TranslationSource) *ResolveResult {
	result := &ResolveResult{}

	translations, err := source.Load(ctx, string(lang), module)
	if err != nil {
		if errors.Is(err, ErrNoTranslationSource) {
			result.Problems = append(result.Problems,
				fmt.Sprintf("No localized messages found for module %s in language %s", module, lang))
		} else {
			result.Problems = append(result.Problems,
				fmt.Sprintf("Unusable translation data for module %s in language %s: %v", module, lang, err))
		}
		return result
	}

	result.Messages = make([]string, bundle.Len())
	for i, key := range bundle.Keys {
		translated, ok := translations[key.Key]
		if !ok {
			result.Problems = append(result.Problems,
				fmt.Sprintf("Missing localized message for key %s in module %s for language %s", key.Key, module, lang))
			translated = bundle.Messages[i]
		}
		result.Messages[i] = translated
	}
	return result
}
