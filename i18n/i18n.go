// Package i18n selects the language of a request and translates the
// messages returned by actions. English strings are the dictionary keys.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

//go:embed dictionaries/*.json
var dictionaries embed.FS

var supported = []language.Tag{language.English, language.Latvian}

var matcher = language.NewMatcher(supported)

var cat = mustLoad(dictionaries)

type ctxKey int

const langKey ctxKey = 1

// Supported returns the base codes of the languages with a dictionary.
func Supported() []string {
	codes := make([]string, 0, len(supported))
	for _, t := range supported {
		b, _ := t.Base()
		codes = append(codes, b.String())
	}
	return codes
}

// Match picks the best supported language for the given preferences, which
// may be plain codes ("lv") or Accept-Language header values.
func Match(prefs ...string) language.Tag {
	_, idx := language.MatchStrings(matcher, prefs...)
	return supported[idx]
}

func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, langKey, tag)
}

func Language(ctx context.Context) language.Tag {
	tag, ok := ctx.Value(langKey).(language.Tag)
	if !ok {
		return language.English
	}
	return tag
}

// Sprintf formats the translation of key for the language stored in ctx.
func Sprintf(ctx context.Context, key string, args ...any) string {
	p := message.NewPrinter(Language(ctx), message.Catalog(cat))
	return p.Sprintf(key, args...)
}

func load(fsys fs.FS) (*catalog.Builder, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))

	files, err := fs.Glob(fsys, "dictionaries/*.json")
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		tag, err := language.Parse(strings.TrimSuffix(path.Base(f), ".json"))
		if err != nil {
			return nil, fmt.Errorf("dictionary %s: %w", f, err)
		}

		raw, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, err
		}

		var entries map[string]string
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("decoding dictionary %s: %w", f, err)
		}

		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("dictionary %s, key %q: %w", f, key, err)
			}
		}
	}

	return b, nil
}

func mustLoad(fsys fs.FS) *catalog.Builder {
	b, err := load(fsys)
	if err != nil {
		panic(err)
	}
	return b
}
