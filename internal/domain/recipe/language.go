package recipe

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a BCP 47 base language code from the supported set
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguageSpanish    Language = "es"
	LanguageFrench     Language = "fr"
	LanguageGerman     Language = "de"
	LanguageItalian    Language = "it"
	LanguagePortuguese Language = "pt"
	LanguageJapanese   Language = "ja"
	LanguageChinese    Language = "zh"
)

// DefaultLanguage is used when the form carries no language
const DefaultLanguage = LanguageEnglish

// Languages lists the supported languages; the first entry is the default
var Languages = []Language{
	LanguageEnglish, LanguageSpanish, LanguageFrench, LanguageGerman,
	LanguageItalian, LanguagePortuguese, LanguageJapanese, LanguageChinese,
}

var languageMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(Languages))
	for i, l := range Languages {
		tags[i] = language.MustParse(string(l))
	}
	return language.NewMatcher(tags)
}()

// ParseLanguage resolves a language tag, including regional variants such
// as "es-MX", to a supported language. Empty input yields the default.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultLanguage, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
	_, index, confidence := languageMatcher.Match(tag)
	if confidence == language.No {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
	}
	return Languages[index], nil
}

// Tag returns the language tag, falling back to the default language
func (l Language) Tag() language.Tag {
	tag, err := language.Parse(string(l))
	if err != nil {
		return language.MustParse(string(DefaultLanguage))
	}
	return tag
}

// EnglishName is the name used when instructing the provider, e.g. "Spanish"
func (l Language) EnglishName() string {
	return display.English.Tags().Name(l.Tag())
}

// NativeName is the language's name in itself, e.g. "español"
func (l Language) NativeName() string {
	return display.Self.Name(l.Tag())
}

// OrDefault returns the default language for the zero value
func (l Language) OrDefault() Language {
	if l == "" {
		return DefaultLanguage
	}
	return l
}
