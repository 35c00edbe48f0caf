// Package i18n resolves the languages autoresolve can narrate summaries in.
package i18n

import (
	"strings"

	"github.com/louisbranch/autoresolve/internal/platform/i18n/catalog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supported = []language.Tag{
	language.MustParse("en-US"),
	language.MustParse("pt-BR"),
}

var matcher = language.NewMatcher(supported)

// SupportedTags returns the languages with a message catalog.
func SupportedTags() []language.Tag {
	out := make([]language.Tag, len(supported))
	copy(out, supported)
	return out
}

// DefaultTag is the fallback language.
func DefaultTag() language.Tag {
	return supported[0]
}

// ParseTag parses value and matches it to a supported language.
func ParseTag(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultTag(), false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return DefaultTag(), false
	}
	return MatchTags([]language.Tag{tag}), true
}

// MatchTags picks the best supported language for the preferred tags.
func MatchTags(tags []language.Tag) language.Tag {
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return DefaultTag()
	}
	return supported[idx]
}

// Printer returns a message printer with the embedded catalogs registered.
func Printer(tag language.Tag) *message.Printer {
	_ = catalog.Default()
	return message.NewPrinter(tag)
}
