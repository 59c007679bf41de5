// Package prompts holds the language-model prompt templates: embedded English
// defaults plus optional YAML overrides, rendered with text/template.
package prompts

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed prompts.en.yaml
var defaultFiles embed.FS

// Template keys used by the coach service.
const (
	KeySystem       = "coach.system"
	KeyCoachExplain = "coach.explain"
	KeyCoachNoMove  = "coach.no_move"
	KeyAnalyze      = "analyze.position"
	KeyChatPosition = "chat.with_position"
	KeyChatPlain    = "chat.plain"
)

var ErrTemplateNotFound = errors.New("prompt template not found")

// Catalog maps flattened dot-keys to parsed templates.
type Catalog struct {
	mu   sync.RWMutex
	data map[string]*template.Template
}

// New loads the embedded prompts and then applies overrides from dir if given.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{data: make(map[string]*template.Template)}
	raw, err := fs.ReadFile(defaultFiles, "prompts.en.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded prompts: %w", err)
	}
	flat, err := parseYAMLToFlat(raw)
	if err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	if err := c.apply(flat); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is New for embedded defaults only; it panics on a broken build.
func MustNew() *Catalog {
	c, err := New("")
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read prompt dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	seen := make(map[string]string)
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := parseYAMLToFlat(b)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k := range flat {
			if prev, ok := seen[k]; ok {
				return fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
			}
			seen[k] = name
		}
		if err := c.apply(flat); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// apply parses every template before installing any of them.
func (c *Catalog) apply(flat map[string]string) error {
	parsed := make(map[string]*template.Template, len(flat))
	for k, v := range flat {
		t, err := template.New(k).Option("missingkey=error").Parse(v)
		if err != nil {
			return fmt.Errorf("template %s: %w", k, err)
		}
		parsed[k] = t
	}
	c.mu.Lock()
	for k, t := range parsed {
		c.data[k] = t
	}
	c.mu.Unlock()
	return nil
}

func parseYAMLToFlat(b []byte) (map[string]string, error) {
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	flat := make(map[string]string)
	if err := flattenStrings(m, "", flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func flattenStrings(src any, prefix string, out map[string]string) error {
	switch v := src.(type) {
	case map[string]any:
		for k, vv := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flattenStrings(vv, key, out); err != nil {
				return err
			}
		}
		return nil
	case string:
		if prefix == "" {
			return errors.New("string value without key prefix")
		}
		out[prefix] = v
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
}

// Keys returns the loaded template keys in sorted order.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Render executes the template stored under key. Missing data fields are
// errors, never "<no value>".
func (c *Catalog) Render(key string, data any) (string, error) {
	c.mu.RLock()
	t, ok := c.data[strings.TrimSpace(key)]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, key)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s: %w", key, err)
	}
	return strings.TrimSpace(b.String()), nil
}
