// Package catalog loads the embedded message catalogs used to narrate combat
// and registers them with golang.org/x/text/message.
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// BaseLocale is the locale every other catalog falls back to.
const BaseLocale = "en-US"

type catalogFile struct {
	Locale    string
	Namespace string
	Messages  map[string]string
}

// Bundle holds every locale's messages, grouped by namespace.
type Bundle struct {
	locales map[string]*localeCatalog
}

type localeCatalog struct {
	namespaces map[string]map[string]string
	messages   map[string]string
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

var (
	defaultOnce   sync.Once
	defaultBundle *Bundle
)

// Default returns the embedded bundle, registered with x/text on first use.
func Default() *Bundle {
	defaultOnce.Do(func() {
		bundle, err := LoadFromFS(embeddedFS)
		if err != nil {
			panic(err)
		}
		if err := bundle.Register(); err != nil {
			panic(err)
		}
		defaultBundle = bundle
	})
	return defaultBundle
}

// LoadFromFS loads locales/<locale>/<namespace>.yaml files from catalogFS.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	bundle := &Bundle{locales: map[string]*localeCatalog{}}
	for _, path := range paths {
		data, err := fs.ReadFile(catalogFS, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		parsed, err := parseCatalogFile(data)
		if err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", path, err)
		}
		if err := bundle.addFile(path, parsed); err != nil {
			return nil, err
		}
	}
	if !bundle.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return bundle, nil
}

func (b *Bundle) addFile(path string, file catalogFile) error {
	localeFromPath := filepath.Base(filepath.Dir(path))
	namespaceFromPath := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	if file.Locale != localeFromPath {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", path, file.Locale, localeFromPath)
	}
	if file.Namespace != namespaceFromPath {
		return fmt.Errorf("catalog %s: namespace %q must match filename %q", path, file.Namespace, namespaceFromPath)
	}
	if _, err := language.Parse(file.Locale); err != nil {
		return fmt.Errorf("catalog %s: parse locale: %w", path, err)
	}

	lc, ok := b.locales[file.Locale]
	if !ok {
		lc = &localeCatalog{namespaces: map[string]map[string]string{}, messages: map[string]string{}}
		b.locales[file.Locale] = lc
	}
	if _, exists := lc.namespaces[file.Namespace]; exists {
		return fmt.Errorf("catalog %s: namespace %q already defined for %s", path, file.Namespace, file.Locale)
	}
	ns := make(map[string]string, len(file.Messages))
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", path)
		}
		if !strings.HasPrefix(key, file.Namespace+".") {
			return fmt.Errorf("catalog %s: key %q must start with %q", path, key, file.Namespace+".")
		}
		if _, exists := lc.messages[key]; exists {
			return fmt.Errorf("catalog %s: duplicate key %q in %s", path, key, file.Locale)
		}
		lc.messages[key] = value
		ns[key] = value
	}
	lc.namespaces[file.Namespace] = ns
	return nil
}

// Register sets every message on the x/text default catalog, under the full
// locale tag and its base language.
func (b *Bundle) Register() error {
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		tags := []language.Tag{tag}
		if base, conf := tag.Base(); conf != language.No {
			if baseTag, err := language.Parse(base.String()); err == nil && baseTag != tag {
				tags = append(tags, baseTag)
			}
		}
		for key, value := range b.locales[locale].messages {
			for _, registerTag := range tags {
				if err := message.SetString(registerTag, key, value); err != nil {
					return fmt.Errorf("register %s %s: %w", locale, key, err)
				}
			}
		}
	}
	return nil
}

// HasLocale reports whether the locale exists in this bundle.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Locales returns the available locales, sorted.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Message returns one message, falling back to the base locale.
func (b *Bundle) Message(locale, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	key = strings.TrimSpace(key)
	if lc, ok := b.locales[strings.TrimSpace(locale)]; ok {
		if value, exists := lc.messages[key]; exists {
			return value, true
		}
	}
	if lc, ok := b.locales[BaseLocale]; ok {
		value, exists := lc.messages[key]
		return value, exists
	}
	return "", false
}

// NamespaceMessages returns a copy of one namespace for a locale.
func (b *Bundle) NamespaceMessages(locale, namespace string) map[string]string {
	out := map[string]string{}
	if b == nil {
		return out
	}
	lc, ok := b.locales[strings.TrimSpace(locale)]
	if !ok {
		return out
	}
	for key, value := range lc.namespaces[strings.TrimSpace(namespace)] {
		out[key] = value
	}
	return out
}

// Match picks the bundle locale that best serves an Accept-Language style
// preference list. Unknown or empty preferences resolve to BaseLocale.
func (b *Bundle) Match(preferences string) language.Tag {
	supported := []language.Tag{language.MustParse(BaseLocale)}
	for _, locale := range b.Locales() {
		if locale != BaseLocale {
			supported = append(supported, language.MustParse(locale))
		}
	}
	tags, _, err := language.ParseAcceptLanguage(strings.TrimSpace(preferences))
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, index, conf := language.NewMatcher(supported).Match(tags...)
	if conf == language.No {
		return supported[0]
	}
	return supported[index]
}

func parseCatalogFile(data []byte) (catalogFile, error) {
	out := catalogFile{Messages: map[string]string{}}
	inMessages := false
	for _, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case strings.HasPrefix(line, "locale:"):
			value, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(line, "locale:")))
			if err != nil {
				return catalogFile{}, fmt.Errorf("parse locale: %w", err)
			}
			out.Locale = value
		case strings.HasPrefix(line, "namespace:"):
			value, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(line, "namespace:")))
			if err != nil {
				return catalogFile{}, fmt.Errorf("parse namespace: %w", err)
			}
			out.Namespace = value
		case line == "messages:":
			inMessages = true
		default:
			if !inMessages {
				return catalogFile{}, fmt.Errorf("unexpected line %q", line)
			}
			key, value, err := parseMessageEntry(line)
			if err != nil {
				return catalogFile{}, fmt.Errorf("parse message entry %q: %w", line, err)
			}
			out.Messages[key] = value
		}
	}
	switch {
	case out.Locale == "":
		return catalogFile{}, fmt.Errorf("missing locale")
	case out.Namespace == "":
		return catalogFile{}, fmt.Errorf("missing namespace")
	case len(out.Messages) == 0:
		return catalogFile{}, fmt.Errorf("missing messages")
	}
	return out, nil
}

// parseMessageEntry reads a `"key": "value"` line.
func parseMessageEntry(line string) (string, string, error) {
	keyToken, rest, err := splitQuotedToken(line)
	if err != nil {
		return "", "", err
	}
	key, err := strconv.Unquote(keyToken)
	if err != nil {
		return "", "", fmt.Errorf("unquote key: %w", err)
	}
	rest = strings.TrimSpace(rest)
	if !strings.HasPrefix(rest, ":") {
		return "", "", fmt.Errorf("missing ':' separator")
	}
	value, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(rest, ":")))
	if err != nil {
		return "", "", fmt.Errorf("unquote value: %w", err)
	}
	return key, value, nil
}

func splitQuotedToken(line string) (string, string, error) {
	if !strings.HasPrefix(line, "\"") {
		return "", "", fmt.Errorf("expected quoted token")
	}
	escaped := false
	for i := 1; i < len(line); i++ {
		switch {
		case escaped:
			escaped = false
		case line[i] == '\\':
			escaped = true
		case line[i] == '"':
			return line[:i+1], line[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("unterminated quoted token")
}
