package analysis

import (
	"context"
	"sync"
	"sync/atomic"

	. "github.com/blase-lsp/blase/types"
)

// Dependency selects which revision of the parsed document a derived
// query is keyed on.
type Dependency uint8

const (
	// OnShape reuses the value while the tree shape is unchanged, even
	// when the text changed. Only for values computed from the shape.
	OnShape Dependency = iota
	// OnText recomputes whenever the text changed.
	OnText
)

type derived[T any] struct {
	at    Revision
	value T
}

// Query is a computation over a parsed document, memoized per uri.
type Query[T any] struct {
	name    string
	dep     Dependency
	compute func(context.Context, *ParsedDocument) (T, error)

	mu   sync.Mutex
	memo map[Uri]derived[T]

	computed atomic.Int64
}

func NewQuery[T any](name string, dep Dependency, compute func(context.Context, *ParsedDocument) (T, error)) *Query[T] {
	return &Query[T]{
		name:    name,
		dep:     dep,
		compute: compute,
		memo:    make(map[Uri]derived[T]),
	}
}

func (q *Query[T]) Name() string {
	return q.name
}

// Computed is the number of times compute ran.
func (q *Query[T]) Computed() int64 {
	return q.computed.Load()
}

func (q *Query[T]) Get(ctx context.Context, snap *Snapshot, uri Uri) (T, error) {
	var zero T

	doc, err := snap.Parse(ctx, uri)

	if err != nil {
		return zero, err
	}

	at := doc.Revision

	if q.dep == OnShape {
		at = doc.ChangedAt
	}

	q.mu.Lock()
	memo, ok := q.memo[uri]
	q.mu.Unlock()

	if ok && memo.at == at {
		return memo.value, nil
	}

	value, err := q.compute(ctx, doc)

	if err != nil {
		return zero, err
	}

	q.computed.Add(1)

	q.mu.Lock()
	if cur, ok := q.memo[uri]; !ok || cur.at <= at {
		q.memo[uri] = derived[T]{at: at, value: value}
	}
	q.mu.Unlock()

	log.Debugf("%s computed for %s at revision %d", q.name, uri, at)

	return value, nil
}

func (q *Query[T]) Forget(uri Uri) {
	q.mu.Lock()
	delete(q.memo, uri)
	q.mu.Unlock()
}

// Reset drops every memoized value, for when compute itself changed
// behavior, as after a locale switch.
func (q *Query[T]) Reset() {
	q.mu.Lock()
	q.memo = make(map[Uri]derived[T])
	q.mu.Unlock()
}
