// Package i18n holds the pt and en message catalogs.
package i18n

import (
	"context"

	"golang.org/x/text/language"
)

// Default is the language used when nothing better is known.
const Default = "pt"

var supported = []language.Tag{language.BrazilianPortuguese, language.English}

var matcher = language.NewMatcher(supported)

// Supported reports whether lang has a catalog.
func Supported(lang string) bool {
	_, ok := catalogs[lang]
	return ok
}

// DetectLanguage picks a catalog from an Accept-Language header.
func DetectLanguage(header string) string {
	if header == "" {
		return Default
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	if supported[idx] == language.English {
		return "en"
	}
	return "pt"
}

// T translates code. Unknown languages use the default catalog; unknown
// codes are returned as is.
func T(lang, code string) string {
	if msg, ok := catalogs[lang][code]; ok {
		return msg
	}
	if msg, ok := catalogs[Default][code]; ok {
		return msg
	}
	return code
}

type langKey struct{}

// WithLang stores the request language in ctx.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext returns the stored language or Default.
func LangFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(langKey{}).(string); ok && v != "" {
		return v
	}
	return Default
}
