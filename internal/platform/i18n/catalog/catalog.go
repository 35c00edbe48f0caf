// Package catalog loads the embedded message catalogs used for localized
// battle summaries and registers them with x/text/message.
//
// Catalogs live at locales/<locale>/<namespace>.yaml. Every key is prefixed
// with its namespace, and every locale must translate every key of the base
// locale so a summary never mixes languages.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other catalog is checked against.
const BaseLocale = "en-US"

//go:embed locales/*/*.yaml
var embedded embed.FS

type file struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Catalog maps locales to their messages.
type Catalog struct {
	messages map[string]map[string]string
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog, registered with x/text/message on
// first use. A broken embedded catalog is a build defect and panics.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := LoadEmbedded()
		if err != nil {
			panic(err)
		}
		if err := c.Register(); err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadEmbedded loads the catalogs compiled into the binary.
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embedded)
}

// LoadFromFS loads and checks every locales/*/*.yaml file in fsys.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	slices.Sort(paths)

	c := &Catalog{messages: map[string]map[string]string{}}
	for _, p := range paths {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		var f file
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", p, err)
		}
		if err := c.add(p, f); err != nil {
			return nil, err
		}
	}
	if err := c.checkComplete(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) add(p string, f file) error {
	wantLocale := path.Base(path.Dir(p))
	wantNamespace := strings.TrimSuffix(path.Base(p), path.Ext(p))

	locale := strings.TrimSpace(f.Locale)
	if locale != wantLocale {
		return fmt.Errorf("catalog %s: locale %q does not match directory %q", p, locale, wantLocale)
	}
	if _, err := language.Parse(locale); err != nil {
		return fmt.Errorf("catalog %s: invalid locale %q: %w", p, locale, err)
	}
	namespace := strings.TrimSpace(f.Namespace)
	if namespace != wantNamespace {
		return fmt.Errorf("catalog %s: namespace %q does not match file name %q", p, namespace, wantNamespace)
	}
	if len(f.Messages) == 0 {
		return fmt.Errorf("catalog %s: no messages", p)
	}

	messages := c.messages[locale]
	if messages == nil {
		messages = map[string]string{}
		c.messages[locale] = messages
	}
	for key, value := range f.Messages {
		key = strings.TrimSpace(key)
		if !strings.HasPrefix(key, namespace+".") {
			return fmt.Errorf("catalog %s: key %q is outside namespace %q", p, key, namespace)
		}
		if _, dup := messages[key]; dup {
			return fmt.Errorf("catalog %s: duplicate key %q", p, key)
		}
		messages[key] = value
	}
	return nil
}

func (c *Catalog) checkComplete() error {
	base, ok := c.messages[BaseLocale]
	if !ok {
		return fmt.Errorf("base locale %s has no catalog", BaseLocale)
	}
	for _, locale := range c.Locales() {
		for key := range base {
			if _, ok := c.messages[locale][key]; !ok {
				return fmt.Errorf("locale %s is missing %q", locale, key)
			}
		}
	}
	return nil
}

// Register installs every message with x/text/message under its locale and
// the locale's base language, so "pt" resolves like "pt-BR".
func (c *Catalog) Register() error {
	if c == nil {
		return nil
	}
	for _, locale := range c.Locales() {
		tag := language.MustParse(locale)
		tags := []language.Tag{tag}
		if base, conf := tag.Base(); conf != language.No {
			if baseTag := language.Make(base.String()); baseTag.String() != tag.String() {
				tags = append(tags, baseTag)
			}
		}
		for key, value := range c.messages[locale] {
			for _, t := range tags {
				if err := message.SetString(t, key, value); err != nil {
					return fmt.Errorf("register %s %s: %w", locale, key, err)
				}
			}
		}
	}
	return nil
}

// HasLocale reports whether locale has a catalog.
func (c *Catalog) HasLocale(locale string) bool {
	if c == nil {
		return false
	}
	_, ok := c.messages[strings.TrimSpace(locale)]
	return ok
}

// Locales returns the loaded locales in order.
func (c *Catalog) Locales() []string {
	if c == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(c.messages))
}

// Messages returns a copy of locale's messages.
func (c *Catalog) Messages(locale string) map[string]string {
	if c == nil {
		return map[string]string{}
	}
	return maps.Clone(c.messages[strings.TrimSpace(locale)])
}

// Message looks key up in locale, then in the base locale.
func (c *Catalog) Message(locale, key string) (string, bool) {
	if c == nil {
		return "", false
	}
	key = strings.TrimSpace(key)
	if value, ok := c.messages[strings.TrimSpace(locale)][key]; ok {
		return value, true
	}
	value, ok := c.messages[BaseLocale][key]
	return value, ok
}
