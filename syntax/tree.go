package syntax

// Querier runs a pattern query natively in the engine that built a tree.
// Implementations must be safe for concurrent calls.
type Querier interface {
	Query(pattern string) ([]Match, error)
}

// Tree is the immutable result of one parse. It is safe to share between
// goroutines.
type Tree struct {
	Language string
	Root     *Node

	shape   uint64
	querier Querier
}

func NewTree(language string, root *Node) *Tree {
	return &Tree{
		Language: language,
		Root:     root,
		shape:    shapeHash(root),
	}
}

// WithQuerier returns a copy of t whose queries run through q instead of
// the built-in matcher.
func (t *Tree) WithQuerier(q Querier) *Tree {
	clone := *t
	clone.querier = q

	return &clone
}

// Shape is a fingerprint of node kinds and nesting; byte offsets do not
// contribute to it.
func (t *Tree) Shape() uint64 {
	if t == nil {
		return 0
	}

	return t.shape
}

// Equal is structural: two trees are equal when they have the same shape,
// whatever text they were parsed from.
func (t *Tree) Equal(other *Tree) bool {
	if t == other {
		return true
	}

	if t == nil || other == nil {
		return false
	}

	return t.Language == other.Language &&
		t.shape == other.shape &&
		t.Root.SameShape(other.Root)
}

func (t *Tree) HasError() bool {
	return t != nil && t.Root != nil && t.Root.HasError()
}

func (t *Tree) String() string {
	if t == nil || t.Root == nil {
		return ""
	}

	return t.Root.String()
}

func (t *Tree) Query(pattern string) ([]Match, error) {
	if t.querier != nil {
		return t.querier.Query(pattern)
	}

	query, err := ParseQuery(pattern)

	if err != nil {
		return nil, err
	}

	return query.Exec(t.Root), nil
}
