// Package languages assembles the parser registry used by the server.
package languages

import (
	"github.com/blase-lsp/blase/syntax"
	"github.com/blase-lsp/blase/syntax/blade"
	"github.com/blase-lsp/blase/syntax/sitter"
	"go.uber.org/multierr"
)

const BladeSuffix = ".blade.php"

type entry struct {
	name     string
	suffixes []string
	factory  syntax.Factory
}

var entries = []entry{
	{blade.Language, []string{BladeSuffix}, blade.New},
	{sitter.PHP, []string{".php"}, sitter.Factory(sitter.PHP)},
	{sitter.HTML, []string{".html", ".htm"}, sitter.Factory(sitter.HTML)},
}

// New builds a registry with poolSize parsers per language. Blade is the
// default for documents with an unknown suffix.
func New(poolSize int) (*syntax.Registry, error) {
	registry := syntax.NewRegistry()

	for _, e := range entries {
		pool, err := syntax.NewPool(poolSize, e.factory)

		if err != nil {
			return nil, multierr.Append(err, registry.Close())
		}

		registry.Register(&syntax.Language{
			Name:     e.name,
			Suffixes: e.suffixes,
			Pool:     pool,
		})
	}

	return registry, nil
}
