package nls

import (
	"errors"
	"fmt"
	"sort"
)

// Language is one of the internal three letter language codes used to name
// translation folders and language packs. The set is closed; use
// ParseLanguage to go from operator input to a Language.
type Language string

const (
	LanguageChineseSimplified  Language = "chs"
	LanguageChineseTraditional Language = "cht"
	LanguageCzech              Language = "csy"
	LanguageGerman             Language = "deu"
	LanguageEnglish            Language = "enu"
	LanguageSpanish            Language = "esn"
	LanguageFrench             Language = "fra"
	LanguageHungarian          Language = "hun"
	LanguageItalian            Language = "ita"
	LanguageJapanese           Language = "jpn"
	LanguageKorean             Language = "kor"
	LanguageDutch              Language = "nld"
	LanguagePolish             Language = "plk"
	LanguagePortugueseBrazil   Language = "ptb"
	LanguagePortuguese         Language = "ptg"
	LanguageRussian            Language = "rus"
	LanguageSwedish            Language = "sve"
	LanguageTurkish            Language = "trk"
)

var ErrUnknownLanguage = errors.New("unknown language code")

// localeTags maps the internal codes to standard locale tags used to name
// emitted language files.
var localeTags = map[Language]string{
	LanguageChineseSimplified:  "zh-cn",
	LanguageChineseTraditional: "zh-tw",
	LanguageCzech:              "cs-cz",
	LanguageGerman:             "de",
	LanguageEnglish:            "en",
	LanguageSpanish:            "es",
	LanguageFrench:             "fr",
	LanguageHungarian:          "hu",
	LanguageItalian:            "it",
	LanguageJapanese:           "ja",
	LanguageKorean:             "ko",
	LanguageDutch:              "nl",
	LanguagePolish:             "pl",
	LanguagePortugueseBrazil:   "pt-br",
	LanguagePortuguese:         "pt",
	LanguageRussian:            "ru",
	LanguageSwedish:            "sv-se",
	LanguageTurkish:            "tr",
}

// Tag returns the locale tag for the language.
func (l Language) Tag() (string, error) {
	tag, ok := localeTags[l]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, string(l))
	}
	return tag, nil
}

// Valid reports whether the language is part of the supported set.
func (l Language) Valid() bool {
	_, ok := localeTags[l]
	return ok
}

// ParseLanguage validates a raw three letter code from configuration.
func ParseLanguage(code string) (Language, error) {
	l := Language(code)
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	return l, nil
}

// KnownLanguages lists the supported set in code order.
func KnownLanguages() []Language {
	languages := make([]Language, 0, len(localeTags))
	for l := range localeTags {
		languages = append(languages, l)
	}
	sort.Slice(languages, func(i, j int) bool { return languages[i] < languages[j] })
	return languages
}
