package covergen

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// TemplateRegistry holds validated templates keyed by template key. It is the
// explicit initialization step performed by the host: the render engine itself
// never touches it and takes templates as plain parameters.
type TemplateRegistry struct {
	mu        sync.RWMutex
	dir       string
	templates map[string]*TemplateDefinition
}

func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: make(map[string]*TemplateDefinition)}
}

// LoadDir loads every *.json template in dir, in sorted filename order.
// Templates that fail to load are collected into the returned error; the
// remaining templates still register.
func (r *TemplateRegistry) LoadDir(dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	sort.Strings(paths)

	r.mu.Lock()
	r.dir = dir
	r.mu.Unlock()

	var errs []error
	for _, path := range paths {
		t, err := LoadTemplate(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		r.Add(t)
	}
	return errors.Join(errs...)
}

// LoadWithDefault clears the registry and loads dir; if no template loads,
// it writes the built-in default template into dir and registers it.
func (r *TemplateRegistry) LoadWithDefault(dir string) error {
	r.mu.Lock()
	r.templates = make(map[string]*TemplateDefinition)
	r.mu.Unlock()

	loadErr := r.LoadDir(dir)
	if len(r.Keys()) > 0 {
		return loadErr
	}

	def := DefaultTemplate()
	if err := SaveTemplate(def, filepath.Join(dir, def.Key+".json")); err != nil {
		return errors.Join(loadErr, fmt.Errorf("write default template: %w", err))
	}
	r.Add(def)
	return loadErr
}

// Import loads a single template file and registers it.
func (r *TemplateRegistry) Import(path string) (*TemplateDefinition, error) {
	t, err := LoadTemplate(path)
	if err != nil {
		return nil, err
	}
	r.Add(t)
	return t, nil
}

// Add registers a template, replacing any template with the same key.
func (r *TemplateRegistry) Add(t *TemplateDefinition) {
	r.mu.Lock()
	r.templates[t.Key] = t
	r.mu.Unlock()
}

// Save validates and writes the template, then registers it. When path is
// empty the template is written into the registry's directory as <key>.json.
func (r *TemplateRegistry) Save(t *TemplateDefinition, path string) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if path == "" {
		r.mu.RLock()
		dir := r.dir
		r.mu.RUnlock()
		if dir == "" {
			return "", errors.New("template directory not set")
		}
		path = filepath.Join(dir, t.Key+".json")
	}
	if err := SaveTemplate(t, path); err != nil {
		return "", err
	}
	r.Add(t)
	return path, nil
}

// Get returns the template for key, if registered.
func (r *TemplateRegistry) Get(key string) (*TemplateDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[key]
	return t, ok
}

// Keys returns the registered template keys in sorted order.
func (r *TemplateRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.templates))
	for k := range r.templates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns the registered templates in sorted key order.
func (r *TemplateRegistry) All() []*TemplateDefinition {
	keys := r.Keys()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TemplateDefinition, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.templates[k])
	}
	return out
}
