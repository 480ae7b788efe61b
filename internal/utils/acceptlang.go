package utils

import (
	"strings"

	"golang.org/x/text/language"
)

// DetermineLocale resolves the locale for a request from an explicit query
// param, then the Accept-Language header, then def. Supported values should
// be base languages like "en", "zh"; the result is always one of them.
func DetermineLocale(queryLang, acceptLang string, supported []string, def string) string {
	if len(supported) == 0 {
		return "en"
	}
	names := orderSupported(supported, def)
	tags := make([]language.Tag, 0, len(names))
	for _, n := range names {
		tags = append(tags, language.Make(n))
	}
	matcher := language.NewMatcher(tags)

	if q := strings.TrimSpace(queryLang); q != "" {
		if tag, err := language.Parse(q); err == nil {
			if _, idx, conf := matcher.Match(tag); conf != language.No {
				return names[idx]
			}
		}
	}
	if prefs, _, err := language.ParseAcceptLanguage(acceptLang); err == nil && len(prefs) > 0 {
		if _, idx, conf := matcher.Match(prefs...); conf != language.No {
			return names[idx]
		}
	}
	return names[0]
}

// orderSupported lowercases supported and moves def to the front when it is
// supported, so the matcher falls back to it.
func orderSupported(supported []string, def string) []string {
	def = strings.ToLower(strings.TrimSpace(def))
	out := make([]string, 0, len(supported))
	for _, s := range supported {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == def {
			out = append([]string{s}, out...)
			continue
		}
		out = append(out, s)
	}
	return out
}
