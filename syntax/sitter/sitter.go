// Package sitter adapts smacker/go-tree-sitter grammars to syntax.Parser.
package sitter

import (
	"context"
	"fmt"
	"sync"

	"github.com/blase-lsp/blase/syntax"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/php"
)

const (
	HTML = "html"
	PHP  = "php"
)

var grammars = map[string]func() *sitter.Language{
	HTML: html.GetLanguage,
	PHP:  php.GetLanguage,
}

type Parser struct {
	name   string
	lang   *sitter.Language
	parser *sitter.Parser
}

// Factory returns a syntax.Factory building parsers for the named grammar.
func Factory(name string) syntax.Factory {
	return func() (syntax.Parser, error) {
		parser, err := New(name)

		if err != nil {
			return nil, err
		}

		return parser, nil
	}
}

func New(name string) (*Parser, error) {
	grammar, ok := grammars[name]

	if !ok {
		return nil, fmt.Errorf("unknown grammar %q", name)
	}

	lang := grammar()
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	return &Parser{
		name:   name,
		lang:   lang,
		parser: parser,
	}, nil
}

// Parse copies the tree-sitter tree into an immutable syntax.Tree. Queries
// on the result run in tree-sitter against the retained native tree.
func (p *Parser) Parse(ctx context.Context, src []byte, previous *syntax.Tree) (*syntax.Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, src)

	if err != nil {
		return nil, err
	}

	root := tree.RootNode()

	result := syntax.NewTree(p.name, convert(root))

	return result.WithQuerier(&querier{
		lang: p.lang,
		tree: tree,
		root: root,
	}), nil
}

func (p *Parser) Close() {
	p.parser.Close()
}

func convert(n *sitter.Node) *syntax.Node {
	node := &syntax.Node{
		Kind:      n.Type(),
		StartByte: n.StartByte(),
		EndByte:   n.EndByte(),
		Error:     n.Type() == syntax.KindError,
		Missing:   n.IsMissing(),
		Named:     n.IsNamed(),
	}

	count := int(n.ChildCount())

	if count > 0 {
		node.Children = make([]*syntax.Node, 0, count)
	}

	for i := 0; i < count; i++ {
		child := n.Child(i)

		if child == nil {
			continue
		}

		node.Children = append(node.Children, convert(child))
	}

	return node
}

// querier owns the native tree; tree-sitter trees are not safe for
// concurrent use, so queries on one tree run one at a time.
type querier struct {
	lang *sitter.Language
	tree *sitter.Tree
	root *sitter.Node

	mu sync.Mutex
}

func (q *querier) Query(pattern string) ([]syntax.Match, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	query, err := sitter.NewQuery([]byte(pattern), q.lang)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", syntax.ErrQuerySyntax, err)
	}

	defer query.Close()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	cursor.Exec(query, q.root)

	var list []syntax.Match

	for {
		m, ok := cursor.NextMatch()

		if !ok {
			break
		}

		match := syntax.Match{Pattern: int(m.PatternIndex)}

		for _, c := range m.Captures {
			match.Captures = append(match.Captures, syntax.Capture{
				Name: query.CaptureNameForId(c.Index),
				Node: convert(c.Node),
			})
		}

		list = append(list, match)
	}

	return list, nil
}
