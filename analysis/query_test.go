package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryOnShape(t *testing.T) {
	db, _ := newDatabase(t)
	ctx := context.Background()

	tree := NewQuery("tree", OnShape, func(ctx context.Context, doc *ParsedDocument) (string, error) {
		return doc.Tree.String(), nil
	})

	db.SetText(uri, "<p>{{ $a }}</p>")

	value, err := tree.Get(ctx, db.Snapshot(), uri)
	require.NoError(t, err)
	assert.Equal(t, "(document (text) (echo (php_expression)) (text))", value)
	assert.Equal(t, int64(1), tree.Computed())

	// same shape, different text
	db.SetText(uri, "<div>{{ $b + 1 }}</div>")

	value, err = tree.Get(ctx, db.Snapshot(), uri)
	require.NoError(t, err)
	assert.Equal(t, "(document (text) (echo (php_expression)) (text))", value)
	assert.Equal(t, int64(1), tree.Computed())

	db.SetText(uri, "<div>{{ $b + 1 </div>")

	value, err = tree.Get(ctx, db.Snapshot(), uri)
	require.NoError(t, err)
	assert.Equal(t, `(document (text) (echo (php_expression) (MISSING "}}")))`, value)
	assert.Equal(t, int64(2), tree.Computed())
}

func TestQueryOnText(t *testing.T) {
	db, _ := newDatabase(t)
	ctx := context.Background()

	length := NewQuery("length", OnText, func(ctx context.Context, doc *ParsedDocument) (int, error) {
		return len(doc.Text), nil
	})

	db.SetText(uri, "<p>{{ $a }}</p>")

	value, err := length.Get(ctx, db.Snapshot(), uri)
	require.NoError(t, err)
	assert.Equal(t, 15, value)

	value, err = length.Get(ctx, db.Snapshot(), uri)
	require.NoError(t, err)
	assert.Equal(t, 15, value)
	assert.Equal(t, int64(1), length.Computed())

	db.SetText(uri, "<p>{{  $a }}</p>")

	value, err = length.Get(ctx, db.Snapshot(), uri)
	require.NoError(t, err)
	assert.Equal(t, 16, value)
	assert.Equal(t, int64(2), length.Computed())

	length.Forget(uri)

	_, err = length.Get(ctx, db.Snapshot(), uri)
	require.NoError(t, err)
	assert.Equal(t, int64(3), length.Computed())
}

func TestQueryUnknownFile(t *testing.T) {
	db, _ := newDatabase(t)

	q := NewQuery("noop", OnText, func(ctx context.Context, doc *ParsedDocument) (bool, error) {
		return true, nil
	})

	_, err := q.Get(context.Background(), db.Snapshot(), uri)
	assert.ErrorIs(t, err, ErrUnknownFile)
}
