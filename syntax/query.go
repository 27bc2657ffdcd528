package syntax

import (
	"errors"
	"fmt"
	"strings"
)

var ErrQuerySyntax = errors.New("invalid query")

// Capture is one node bound to a @name in a pattern.
type Capture struct {
	Name string
	Node *Node
}

// Match is one successful match of the pattern with index Pattern.
type Match struct {
	Pattern  int
	Captures []Capture
}

// Query is a compiled list of patterns in a subset of the tree-sitter
// query language:
//
//	(kind child...) @capture
//	(_)  "literal"  (ERROR)  (MISSING)  (MISSING kind)
//
// Child patterns match an ordered subsequence of the direct children.
type Query struct {
	patterns []*pattern
}

type patternType uint8

const (
	patternKind patternType = iota
	patternWildcard
	patternLiteral
	patternError
	patternMissing
)

type pattern struct {
	typ      patternType
	kind     string
	children []*pattern
	capture  string
}

func (q *Query) PatternCount() int {
	return len(q.patterns)
}

// Exec matches every pattern against root and each of its descendants.
func (q *Query) Exec(root *Node) []Match {
	var list []Match

	if root == nil {
		return list
	}

	root.Walk(func(node *Node) bool {
		for i, p := range q.patterns {
			var captures []Capture

			if p.match(node, &captures) {
				list = append(list, Match{Pattern: i, Captures: captures})
			}
		}

		return true
	})

	return list
}

func (p *pattern) match(node *Node, captures *[]Capture) bool {
	switch p.typ {
	case patternWildcard:
		if !node.Named && !node.IsError() {
			return false
		}
	case patternLiteral:
		if node.Named || node.Kind != p.kind {
			return false
		}
	case patternError:
		if !node.IsError() {
			return false
		}
	case patternMissing:
		if !node.Missing || (p.kind != "" && node.Kind != p.kind) {
			return false
		}
	default:
		if node.Kind != p.kind || node.Missing {
			return false
		}
	}

	mark := len(*captures)

	if p.capture != "" {
		*captures = append(*captures, Capture{Name: p.capture, Node: node})
	}

	next := 0

	for _, child := range p.children {
		found := false

		for next < len(node.Children) {
			candidate := node.Children[next]
			next++

			if child.match(candidate, captures) {
				found = true
				break
			}
		}

		if !found {
			*captures = (*captures)[:mark]
			return false
		}
	}

	return true
}

func ParseQuery(source string) (*Query, error) {
	parser := &queryParser{src: source}
	query := &Query{}

	for {
		parser.skip()

		if parser.eof() {
			break
		}

		p, err := parser.pattern()

		if err != nil {
			return nil, err
		}

		query.patterns = append(query.patterns, p)
	}

	if len(query.patterns) == 0 {
		return nil, fmt.Errorf("%w: no patterns", ErrQuerySyntax)
	}

	return query, nil
}

type queryParser struct {
	src string
	pos int
}

func (p *queryParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *queryParser) fail(format string, args ...any) error {
	return fmt.Errorf("%w at %d: %s", ErrQuerySyntax, p.pos, fmt.Sprintf(format, args...))
}

func (p *queryParser) skip() {
	for !p.eof() {
		switch c := p.src[p.pos]; {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			p.pos++
		case c == ';':
			for !p.eof() && p.src[p.pos] != '\n' {
				p.pos++
			}
		default:
			return
		}
	}
}

func (p *queryParser) pattern() (*pattern, error) {
	var node *pattern
	var err error

	switch c := p.src[p.pos]; {
	case c == '(':
		node, err = p.list()
	case c == '"':
		var lit string
		lit, err = p.literal()
		node = &pattern{typ: patternLiteral, kind: lit}
	case p.wildcard():
		p.pos++
		node = &pattern{typ: patternWildcard}
	default:
		return nil, p.fail("unexpected %q", c)
	}

	if err != nil {
		return nil, err
	}

	p.skip()

	if !p.eof() && p.src[p.pos] == '@' {
		p.pos++

		name := p.ident()

		if name == "" {
			return nil, p.fail("empty capture name")
		}

		node.capture = name
	}

	return node, nil
}

func (p *queryParser) list() (*pattern, error) {
	p.pos++
	p.skip()

	if p.eof() {
		return nil, p.fail("unterminated pattern")
	}

	node := &pattern{}

	if p.wildcard() {
		p.pos++
		node.typ = patternWildcard
	} else {
		kind := p.ident()

		switch kind {
		case "":
			return nil, p.fail("expected node kind")
		case KindError:
			node.typ = patternError
		case "MISSING":
			node.typ = patternMissing
			p.skip()

			if !p.eof() && p.src[p.pos] == '"' {
				lit, err := p.literal()

				if err != nil {
					return nil, err
				}

				node.kind = lit
			} else {
				node.kind = p.ident()
			}
		default:
			node.typ = patternKind
			node.kind = kind
		}
	}

	for {
		p.skip()

		if p.eof() {
			return nil, p.fail("unterminated pattern")
		}

		if p.src[p.pos] == ')' {
			p.pos++
			return node, nil
		}

		if node.typ == patternMissing {
			return nil, p.fail("MISSING takes no child patterns")
		}

		child, err := p.pattern()

		if err != nil {
			return nil, err
		}

		node.children = append(node.children, child)
	}
}

func (p *queryParser) literal() (string, error) {
	p.pos++

	var b strings.Builder

	for !p.eof() {
		c := p.src[p.pos]
		p.pos++

		switch c {
		case '"':
			return b.String(), nil
		case '\\':
			if p.eof() {
				return "", p.fail("unterminated string")
			}

			b.WriteByte(p.src[p.pos])
			p.pos++
		default:
			b.WriteByte(c)
		}
	}

	return "", p.fail("unterminated string")
}

func (p *queryParser) wildcard() bool {
	return p.src[p.pos] == '_' && (p.pos+1 == len(p.src) || !isIdentByte(p.src[p.pos+1]))
}

func (p *queryParser) ident() string {
	start := p.pos

	for !p.eof() && isIdentByte(p.src[p.pos]) {
		p.pos++
	}

	return p.src[start:p.pos]
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '-' || c == '.' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
