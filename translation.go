package dardanova

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "embed"

	"golang.org/x/text/language"
)

type translation map[string]string

var translations map[string]translation

//go:generate go run ./scripts/toml_gen -toml_path translations.toml -target _translations.json

//go:embed _translations.json
var keys []byte

func TranslationKeyExists(line string) bool {
	_, ok := translations[line]
	return ok
}

// GetText returns the translation of line in lang, formatted with args.
// Missing languages fall back to DefaultLocale, missing keys are returned as is.
func GetText(lang, line string, args ...any) string {
	if _, ok := translations[line]; !ok {
		slog.WarnContext(context.TODO(), "Invalid translation key", slog.Any("key", line))
		return line
	}
	return fmt.Sprintf(lookup(lang, line), args...)
}

func MaybeGetText(lang, line string, args ...any) string {
	if _, ok := translations[line]; !ok {
		return line
	}
	return fmt.Sprintf(lookup(lang, line), args...)
}

func lookup(lang, line string) string {
	if val, ok := translations[line][lang]; ok {
		return val
	}
	return translations[line][string(DefaultLocale)]
}

func recurse(prefix string, val map[string]any) {
	for name, val := range val {
		if str, ok := val.(string); ok {
			if _, ok = translations[prefix]; !ok {
				translations[prefix] = make(translation)
			}
			translations[prefix][name] = str
		} else if deeper, ok := val.(map[string]any); ok {
			recurse(prefix+"."+name, deeper)
		} else {
			slog.ErrorContext(context.Background(), "Invalid translation JSON type")
			os.Exit(1)
		}
	}
}

func init() {
	translations = make(map[string]translation)
	var elems = make(map[string]map[string]any)
	err := json.Unmarshal(keys, &elems)
	if err != nil {
		slog.ErrorContext(context.Background(), "Error unmarshaling translation keys", slog.Any("err", err))
		os.Exit(1)
	}
	for name, children := range elems {
		recurse(name, children)
	}
}

var langMatcher = language.NewMatcher([]language.Tag{language.Turkish, language.English})

// MatchLocale picks the best supported locale for the given preferences.
// Each preference is either a language code or an Accept-Language header value, in order of priority.
func MatchLocale(prefs ...string) Locale {
	for _, pref := range prefs {
		if l, ok := ParseLocale(pref); ok {
			return l
		}
	}
	_, idx := language.MatchStrings(langMatcher, prefs...)
	if idx < 0 || idx >= len(Locales) {
		return DefaultLocale
	}
	return Locales[idx]
}
