package presenter

import (
	"strings"

	"golang.org/x/text/language"
)

// RegionFromLocale extracts the region subtag from a locale string.
// Accepted forms are BCP 47 ("en-US"), POSIX ("en_US.UTF-8") and a bare
// region code ("US"). It returns "" when no region is stated explicitly;
// a region guessed from the language alone does not count.
func RegionFromLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" {
		return ""
	}

	if len(locale) == 2 && isUpperASCII(locale) {
		region, err := language.ParseRegion(locale)
		if err != nil {
			return ""
		}
		return region.String()
	}

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return ""
	}
	region, confidence := tag.Region()
	if confidence != language.Exact {
		return ""
	}
	return region.String()
}

func isUpperASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}
