package syntax

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// Language binds file name suffixes to a parser pool.
type Language struct {
	Name     string
	Suffixes []string
	Pool     *Pool
}

func (lang *Language) Parse(ctx context.Context, src []byte, previous *Tree) (*Tree, error) {
	if previous != nil && previous.Language != lang.Name {
		previous = nil
	}

	tree, err := lang.Pool.Parse(ctx, src, previous)

	if err != nil {
		return nil, fmt.Errorf("%s: %w", lang.Name, err)
	}

	return tree, nil
}

// Registry picks a Language for a document by the longest matching suffix
// of its URI, falling back to the default language.
type Registry struct {
	mu       sync.RWMutex
	langs    []*Language
	fallback *Language
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds lang; the first registered language is the default.
func (r *Registry) Register(lang *Language) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.langs = append(r.langs, lang)

	if r.fallback == nil {
		r.fallback = lang
	}
}

func (r *Registry) SetDefault(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, lang := range r.langs {
		if lang.Name == name {
			r.fallback = lang
			return true
		}
	}

	return false
}

func (r *Registry) Get(name string) *Language {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, lang := range r.langs {
		if lang.Name == name {
			return lang
		}
	}

	return nil
}

func (r *Registry) ForURI(uri string) *Language {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name := strings.ToLower(uri)

	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}

	var best *Language
	bestLen := 0

	for _, lang := range r.langs {
		for _, suffix := range lang.Suffixes {
			if len(suffix) > bestLen && strings.HasSuffix(name, suffix) {
				best = lang
				bestLen = len(suffix)
			}
		}
	}

	if best == nil {
		return r.fallback
	}

	return best
}

// Supported reports whether uri matches a registered suffix.
func (r *Registry) Supported(uri string) bool {
	lang := r.ForURI(uri)

	if lang == nil {
		return false
	}

	name := strings.ToLower(uri)

	for _, suffix := range lang.Suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}

	return false
}

func (r *Registry) Close() (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, lang := range r.langs {
		err = multierr.Append(err, lang.Pool.Close())
	}

	r.langs = nil
	r.fallback = nil

	return
}
