// Package i18n looks up user-facing messages by key.
package i18n

import (
	"embed"
	"fmt"
	"net/http"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// CookieName holds the language explicitly chosen by the user.
const CookieName = "patrimoine_lang"

//go:embed locales/*.yaml
var locales embed.FS

// Catalog holds the messages of every supported language.
type Catalog struct {
	def      string
	messages map[string]map[string]string
	tags     []language.Tag
	matcher  language.Matcher
}

// Load returns the catalog built from the embedded locale files. def is
// the fallback language and must be one of them.
func Load(def string) (*Catalog, error) {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	sources := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := locales.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		sources[strings.TrimSuffix(e.Name(), ".yaml")] = data
	}
	return New(def, sources)
}

// New builds a catalog from YAML documents keyed by language. Nested
// mappings flatten to dotted keys.
func New(def string, sources map[string][]byte) (*Catalog, error) {
	if _, ok := sources[def]; !ok {
		return nil, fmt.Errorf("default language %q has no messages", def)
	}

	c := &Catalog{def: def, messages: make(map[string]map[string]string, len(sources))}

	langs := make([]string, 0, len(sources))
	for lang := range sources {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	// The matcher falls back to its first tag.
	sort.SliceStable(langs, func(i, j int) bool { return langs[i] == def && langs[j] != def })

	for _, lang := range langs {
		tag, err := language.Parse(lang)
		if err != nil {
			return nil, fmt.Errorf("language %q: %w", lang, err)
		}
		var doc map[string]any
		if err := yaml.Unmarshal(sources[lang], &doc); err != nil {
			return nil, fmt.Errorf("parse %s messages: %w", lang, err)
		}
		msgs := make(map[string]string)
		flatten("", doc, msgs)
		c.messages[lang] = msgs
		c.tags = append(c.tags, tag)
	}
	c.matcher = language.NewMatcher(c.tags)
	return c, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case string:
			out[key] = val
		case nil:
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// Default returns the fallback language.
func (c *Catalog) Default() string { return c.def }

// Languages returns the supported languages, default first.
func (c *Catalog) Languages() []string {
	out := make([]string, len(c.tags))
	for i, t := range c.tags {
		out[i] = t.String()
	}
	return out
}

// Supports reports whether lang has its own messages.
func (c *Catalog) Supports(lang string) bool {
	_, ok := c.messages[lang]
	return ok
}

// Lookup returns the message for key in lang, falling back to the default
// language. ok is false when neither has it.
func (c *Catalog) Lookup(lang, key string) (string, bool) {
	if msg, ok := c.messages[lang][key]; ok {
		return msg, true
	}
	msg, ok := c.messages[c.def][key]
	return msg, ok
}

// T translates key into lang and formats args into it. Unknown keys are
// returned as is so that raw server messages pass through.
func (c *Catalog) T(lang, key string, args ...any) string {
	msg, ok := c.Lookup(lang, key)
	if !ok {
		return key
	}
	if len(args) > 0 && strings.Contains(msg, "%") {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Match picks the supported language closest to the given preferences,
// which may be language tags or an Accept-Language header value.
func (c *Catalog) Match(prefs ...string) string {
	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return c.def
	}
	_, idx, conf := c.matcher.Match(tags...)
	if conf == language.No {
		return c.def
	}
	return c.tags[idx].String()
}

// Negotiate returns the language of a request: the language cookie when it
// names a supported language, otherwise the best match for Accept-Language.
func (c *Catalog) Negotiate(r *http.Request) string {
	if ck, err := r.Cookie(CookieName); err == nil && c.Supports(ck.Value) {
		return ck.Value
	}
	return c.Match(r.Header.Get("Accept-Language"))
}
