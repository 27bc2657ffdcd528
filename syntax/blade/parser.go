// Package blade parses Laravel Blade templates into syntax trees. HTML and
// embedded PHP are kept as opaque text and expression nodes.
package blade

import (
	"bytes"
	"context"

	"github.com/blase-lsp/blase/syntax"
)

const Language = "blade"

const (
	KindDocument      = "document"
	KindText          = "text"
	KindComment       = "comment"
	KindEcho          = "echo"
	KindRawEcho       = "raw_echo"
	KindExpression    = "php_expression"
	KindDirective     = "directive"
	KindDirectiveName = "directive_name"
	KindParameter     = "parameter"
	KindConditional   = "conditional"
	KindLoop          = "loop"
	KindSwitch        = "switch"
	KindSection       = "section"
	KindStack         = "stack"
	KindComponent     = "component"
	KindSlot          = "slot"
	KindOnce          = "once"
	KindFragment      = "fragment"
	KindPHPBlock      = "php_block"
	KindPHPCode       = "php_code"
	KindVerbatimBlock = "verbatim_block"
	KindVerbatimText  = "verbatim_text"
)

type Parser struct{}

func New() (syntax.Parser, error) {
	return &Parser{}, nil
}

func (*Parser) Close() {}

// Parse never fails on malformed input; problems become ERROR and MISSING
// nodes. The previous tree is not reused.
func (*Parser) Parse(ctx context.Context, src []byte, previous *syntax.Tree) (*syntax.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := &parser{src: src}

	children, _ := p.nodes(nil)

	root := &syntax.Node{
		Kind:     KindDocument,
		Named:    true,
		EndByte:  uint32(len(src)),
		Children: children,
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return syntax.NewTree(Language, root), nil
}

type parser struct {
	src []byte
	pos int
}

type directive struct {
	name     string
	start    int
	nameEnd  int
	end      int
	hasArgs  bool
	argCount int
	// closed is false when the argument list never found its ")"
	closed bool
}

func (p *parser) has(prefix string) bool {
	return bytes.HasPrefix(p.src[p.pos:], []byte(prefix))
}

// nodes collects siblings until EOF or a directive that belongs to one of
// the open blocks on stack; that directive is returned unconsumed.
func (p *parser) nodes(stack []*block) ([]*syntax.Node, *directive) {
	var list []*syntax.Node

	for p.pos < len(p.src) {
		switch {
		case p.has("{{--"):
			list = append(list, p.comment())
			continue
		case p.has("{{"):
			list = append(list, p.echo(KindEcho, "{{", "}}"))
			continue
		case p.has("{!!"):
			list = append(list, p.echo(KindRawEcho, "{!!", "!!}"))
			continue
		}

		d := p.directiveAt(p.pos)

		if d == nil {
			if text := p.text(); text != nil {
				list = append(list, text)
			}

			continue
		}

		if owned(stack, d) {
			return list, d
		}

		if b := opener(d); b != nil {
			list = append(list, p.block(d, b, stack))
			continue
		}

		p.pos = d.end
		node := p.directiveNode(d)

		if dependents[d.name] {
			node = errorNode(node.StartByte, node.EndByte, node)
		}

		list = append(list, node)
	}

	return list, nil
}

func owned(stack []*block, d *directive) bool {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].accepts(d) {
			return true
		}
	}

	return false
}

func (p *parser) block(open *directive, b *block, stack []*block) *syntax.Node {
	p.pos = open.end

	children := []*syntax.Node{p.directiveNode(open)}

	if b.raw != "" {
		return p.rawBlock(open, b, children)
	}

	inner := append(stack[:len(stack):len(stack)], b)

	for {
		body, next := p.nodes(inner)
		children = append(children, body...)

		if next == nil {
			return errorNode(uint32(open.start), uint32(len(p.src)), children...)
		}

		if !b.accepts(next) {
			last := children[len(children)-1]
			return errorNode(uint32(open.start), last.EndByte, children...)
		}

		p.pos = next.end
		children = append(children, p.directiveNode(next))

		if b.closes(next) {
			return &syntax.Node{
				Kind:      b.kind,
				Named:     true,
				StartByte: uint32(open.start),
				EndByte:   uint32(next.end),
				Children:  children,
			}
		}
	}
}

func (p *parser) rawBlock(open *directive, b *block, children []*syntax.Node) *syntax.Node {
	bodyStart := p.pos

	for i := bodyStart; i < len(p.src); i++ {
		if p.src[i] != '@' {
			continue
		}

		d := p.directiveAt(i)

		if d == nil || !b.closes(d) {
			continue
		}

		if code := opaque(p.src, b.raw, bodyStart, i); code != nil {
			children = append(children, code)
		}

		p.pos = d.end
		children = append(children, p.directiveNode(d))

		return &syntax.Node{
			Kind:      b.kind,
			Named:     true,
			StartByte: uint32(open.start),
			EndByte:   uint32(d.end),
			Children:  children,
		}
	}

	p.pos = len(p.src)

	if code := opaque(p.src, b.raw, bodyStart, len(p.src)); code != nil {
		children = append(children, code)
	}

	return errorNode(uint32(open.start), uint32(len(p.src)), children...)
}

// directiveAt recognizes @name at i. Escaped @@name, e-mail addresses and
// names Blade does not compile are not directives.
func (p *parser) directiveAt(i int) *directive {
	src := p.src

	if src[i] != '@' || i+1 >= len(src) || !isNameStart(src[i+1]) {
		return nil
	}

	if i > 0 && (isWord(src[i-1]) || src[i-1] == '@') {
		return nil
	}

	j := i + 1

	for j < len(src) && isWord(src[j]) {
		j++
	}

	d := &directive{
		name:    string(src[i+1 : j]),
		start:   i,
		nameEnd: j,
		end:     j,
	}

	if !known[d.name] {
		return nil
	}

	k := j

	for k < len(src) && (src[k] == ' ' || src[k] == '\t') {
		k++
	}

	if k < len(src) && src[k] == '(' {
		d.hasArgs = true
		d.end, d.argCount, d.closed = arguments(src, k)
	}

	return d
}

// arguments scans a parenthesized list starting at open. Without a
// matching ")" the list ends with the line.
func arguments(src []byte, open int) (end int, count int, closed bool) {
	depth := 0
	count = 0
	content := false
	var quote byte

	for i := open; i < len(src); i++ {
		c := src[i]

		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}

			continue
		}

		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--

			if depth == 0 {
				if content {
					count++
				}

				return i + 1, count, true
			}
		case ',':
			if depth == 1 {
				count++
				content = false
				continue
			}
		}

		if i > open && depth >= 1 && !isSpace(c) {
			content = true
		}
	}

	eol := bytes.IndexByte(src[open:], '\n')

	if eol < 0 {
		return len(src), count, false
	}

	return open + eol, count, false
}

func (p *parser) directiveNode(d *directive) *syntax.Node {
	node := &syntax.Node{
		Kind:      KindDirective,
		Named:     true,
		StartByte: uint32(d.start),
		EndByte:   uint32(d.end),
		Children: []*syntax.Node{{
			Kind:      KindDirectiveName,
			Named:     true,
			StartByte: uint32(d.start),
			EndByte:   uint32(d.nameEnd),
		}},
	}

	if !d.hasArgs {
		return node
	}

	open := d.nameEnd + bytes.IndexByte(p.src[d.nameEnd:d.end], '(')

	param := &syntax.Node{
		Kind:      KindParameter,
		Named:     true,
		StartByte: uint32(open),
		EndByte:   uint32(d.end),
	}

	param.Children = append(param.Children, &syntax.Node{
		Kind:      "(",
		StartByte: uint32(open),
		EndByte:   uint32(open + 1),
	})

	innerEnd := d.end

	if d.closed {
		innerEnd--
	}

	if expr := opaque(p.src, KindExpression, open+1, innerEnd); expr != nil {
		param.Children = append(param.Children, expr)
	}

	if d.closed {
		param.Children = append(param.Children, &syntax.Node{
			Kind:      ")",
			StartByte: uint32(innerEnd),
			EndByte:   uint32(d.end),
		})
	} else {
		param.Children = append(param.Children, missing(")", d.end))
	}

	node.Children = append(node.Children, param)

	return node
}

func (p *parser) comment() *syntax.Node {
	start := p.pos
	end := bytes.Index(p.src[start+4:], []byte("--}}"))

	node := &syntax.Node{
		Kind:      KindComment,
		Named:     true,
		StartByte: uint32(start),
	}

	if end < 0 {
		p.pos = len(p.src)
		node.Children = []*syntax.Node{missing("--}}", p.pos)}
	} else {
		p.pos = start + 4 + end + 4
	}

	node.EndByte = uint32(p.pos)

	return node
}

func (p *parser) echo(kind string, open string, close string) *syntax.Node {
	start := p.pos
	bodyStart := start + len(open)

	node := &syntax.Node{
		Kind:      kind,
		Named:     true,
		StartByte: uint32(start),
		Children: []*syntax.Node{{
			Kind:      open,
			StartByte: uint32(start),
			EndByte:   uint32(bodyStart),
		}},
	}

	var closing *syntax.Node
	bodyEnd := bytes.Index(p.src[bodyStart:], []byte(close))

	if bodyEnd >= 0 {
		bodyEnd += bodyStart
		p.pos = bodyEnd + len(close)
		closing = &syntax.Node{
			Kind:      close,
			StartByte: uint32(bodyEnd),
			EndByte:   uint32(p.pos),
		}
	} else {
		bodyEnd = lineEnd(p.src, bodyStart)
		p.pos = bodyEnd
		closing = missing(close, bodyEnd)
	}

	if expr := opaque(p.src, KindExpression, bodyStart, bodyEnd); expr != nil {
		node.Children = append(node.Children, expr)
	}

	node.Children = append(node.Children, closing)
	node.EndByte = uint32(p.pos)

	return node
}

// text consumes template text up to the next Blade construct. Whitespace
// only text produces no node.
func (p *parser) text() *syntax.Node {
	start := p.pos
	i := start

	for i < len(p.src) {
		c := p.src[i]

		if i > start && c == '{' && (bytes.HasPrefix(p.src[i:], []byte("{{")) || bytes.HasPrefix(p.src[i:], []byte("{!!"))) {
			break
		}

		if c == '@' {
			if i > start && p.directiveAt(i) != nil {
				break
			}

			if bytes.HasPrefix(p.src[i:], []byte("@{{")) {
				end := bytes.Index(p.src[i+3:], []byte("}}"))

				if end < 0 {
					i = len(p.src)
				} else {
					i += 3 + end + 2
				}

				continue
			}

			if bytes.HasPrefix(p.src[i:], []byte("@@")) {
				i += 2

				for i < len(p.src) && isWord(p.src[i]) {
					i++
				}

				continue
			}
		}

		i++
	}

	p.pos = i

	return opaque(p.src, KindText, start, i)
}

func opaque(src []byte, kind string, start int, end int) *syntax.Node {
	if start >= end || len(bytes.TrimSpace(src[start:end])) == 0 {
		return nil
	}

	return &syntax.Node{
		Kind:      kind,
		Named:     true,
		StartByte: uint32(start),
		EndByte:   uint32(end),
	}
}

func missing(kind string, at int) *syntax.Node {
	return &syntax.Node{
		Kind:      kind,
		Missing:   true,
		StartByte: uint32(at),
		EndByte:   uint32(at),
	}
}

func errorNode(start uint32, end uint32, children ...*syntax.Node) *syntax.Node {
	return &syntax.Node{
		Kind:      syntax.KindError,
		Error:     true,
		Named:     true,
		StartByte: start,
		EndByte:   end,
		Children:  children,
	}
}

func lineEnd(src []byte, from int) int {
	i := bytes.IndexByte(src[from:], '\n')

	if i < 0 {
		return len(src)
	}

	return from + i
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWord(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
