package i18n

import (
	"maps"
	"strings"

	"golang.org/x/text/language"
)

// Translator retrieves localized messages by key. data provides the values
// substituted into "[[token]]" placeholders (for example "received" or
// "limit").
type Translator interface {
	Message(key string, data map[string]string) string
}

// Catalog maps languages to keyword message templates. A Catalog is safe for
// concurrent reads; Set must not race with lookups, so configure a clone
// before handing it to an evaluation.
type Catalog struct {
	tables  map[language.Tag]map[string]string
	tags    []language.Tag
	matcher language.Matcher
}

var defaultCatalog = newCatalog(map[language.Tag]map[string]string{
	language.English:  english,
	language.Spanish:  spanish,
	language.Japanese: japanese,
})

// Default returns the built-in catalog (en, es, ja). It must not be modified;
// use Clone to customize templates.
func Default() *Catalog { return defaultCatalog }

func newCatalog(tables map[language.Tag]map[string]string) *Catalog {
	c := &Catalog{tables: tables}
	c.reindex()
	return c
}

func (c *Catalog) reindex() {
	// English first so the matcher falls back to it.
	c.tags = []language.Tag{language.English}
	for tag := range c.tables {
		if tag != language.English {
			c.tags = append(c.tags, tag)
		}
	}
	c.matcher = language.NewMatcher(c.tags)
}

// Clone returns an independent copy that can be customized with Set.
func (c *Catalog) Clone() *Catalog {
	tables := make(map[language.Tag]map[string]string, len(c.tables))
	for tag, tbl := range c.tables {
		tables[tag] = maps.Clone(tbl)
	}
	return newCatalog(tables)
}

// Set overrides the template for key in lang, adding the language if needed.
func (c *Catalog) Set(lang language.Tag, key, template string) *Catalog {
	tbl, ok := c.tables[lang]
	if !ok {
		tbl = map[string]string{}
		c.tables[lang] = tbl
		c.reindex()
	}
	tbl[key] = template
	return c
}

// Template returns the template for key in the closest supported language,
// falling back to English and finally to the key itself.
func (c *Catalog) Template(lang language.Tag, key string) string {
	if tbl, ok := c.tables[c.match(lang)]; ok {
		if t, ok := tbl[key]; ok {
			return t
		}
	}
	if t, ok := c.tables[language.English][key]; ok {
		return t
	}
	return key
}

func (c *Catalog) match(lang language.Tag) language.Tag {
	if _, ok := c.tables[lang]; ok {
		return lang
	}
	_, idx, conf := c.matcher.Match(lang)
	if conf == language.No {
		return language.English
	}
	return c.tags[idx]
}

// For binds the catalog to a language.
func (c *Catalog) For(lang language.Tag) Translator {
	return boundCatalog{c: c, lang: lang}
}

type boundCatalog struct {
	c    *Catalog
	lang language.Tag
}

func (b boundCatalog) Message(key string, data map[string]string) string {
	return Render(b.c.Template(b.lang, key), data)
}

// Render substitutes "[[token]]" placeholders in template. Tokens without a
// value are left in place.
func Render(template string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(template, "[[") {
		return template
	}
	var b strings.Builder
	rest := template
	for {
		start := strings.Index(rest, "[[")
		if start < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], "]]")
		if end < 0 {
			b.WriteString(rest)
			break
		}
		end += start
		name := rest[start+2 : end]
		b.WriteString(rest[:start])
		if v, ok := data[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(rest[start : end+2])
		}
		rest = rest[end+2:]
	}
	return b.String()
}

// T renders key with the built-in English templates.
func T(key string, data map[string]string) string {
	return defaultCatalog.For(language.English).Message(key, data)
}
