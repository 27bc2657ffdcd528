// Package syntax is the parser capability the analysis layer consumes:
// immutable trees of kinded nodes over byte ranges, shape signatures and
// pattern queries, independent of the grammar engine that produced them.
package syntax

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	KindError = "ERROR"
)

// Node is one immutable syntax node. Byte offsets are relative to the
// source the tree was parsed from.
type Node struct {
	Kind      string
	StartByte uint32
	EndByte   uint32
	Error     bool
	Missing   bool
	Named     bool
	Children  []*Node
}

func (n *Node) IsError() bool {
	return n.Error || n.Kind == KindError
}

func (n *Node) ChildCount() int {
	return len(n.Children)
}

func (n *Node) Content(src []byte) string {
	if int(n.EndByte) > len(src) || n.StartByte > n.EndByte {
		return ""
	}

	return string(src[n.StartByte:n.EndByte])
}

// Walk visits n and its descendants in document order. Returning false
// from fn skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}

	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// HasError reports whether n or any descendant is an error or missing node.
func (n *Node) HasError() bool {
	found := false

	n.Walk(func(node *Node) bool {
		if found {
			return false
		}

		if node.IsError() || node.Missing {
			found = true
			return false
		}

		return true
	})

	return found
}

// String prints named nodes as an S-expression, the way tree-sitter does.
func (n *Node) String() string {
	var b strings.Builder

	writeSExpr(&b, n, false)

	return b.String()
}

// SameShape compares node kinds, markers and nesting, ignoring byte offsets.
func (n *Node) SameShape(other *Node) bool {
	if n == other {
		return true
	}

	if n == nil || other == nil {
		return false
	}

	if n.Kind != other.Kind ||
		n.IsError() != other.IsError() ||
		n.Missing != other.Missing ||
		n.Named != other.Named ||
		len(n.Children) != len(other.Children) {
		return false
	}

	for i, child := range n.Children {
		if !child.SameShape(other.Children[i]) {
			return false
		}
	}

	return true
}

func writeSExpr(b *strings.Builder, n *Node, anonymous bool) {
	if n.Missing {
		b.WriteString("(MISSING ")
		writeKind(b, n)
		b.WriteByte(')')
		return
	}

	if !n.Named && !n.IsError() {
		writeKind(b, n)
		return
	}

	b.WriteByte('(')
	b.WriteString(n.Kind)

	for _, child := range n.Children {
		if !anonymous && !child.Named && !child.Missing && !child.IsError() {
			continue
		}

		b.WriteByte(' ')
		writeSExpr(b, child, anonymous)
	}

	b.WriteByte(')')
}

func writeKind(b *strings.Builder, n *Node) {
	if n.Named {
		b.WriteString(n.Kind)
	} else {
		b.WriteString(strconv.Quote(n.Kind))
	}
}

// shapeHash fingerprints the full shape, anonymous nodes included.
func shapeHash(n *Node) uint64 {
	if n == nil {
		return 0
	}

	var b strings.Builder

	writeSExpr(&b, n, true)

	return xxhash.Sum64String(b.String())
}
