package sitter

import (
	"context"
	"sync"
	"testing"

	"github.com/blase-lsp/blase/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHTML(t *testing.T) {
	parser, err := New(HTML)
	require.NoError(t, err)
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), []byte("<p>Hello</p>\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, HTML, tree.Language)
	assert.Equal(t, "document", tree.Root.Kind)
	assert.False(t, tree.HasError())

	matches, err := tree.Query("(ERROR) @error")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestParsePHPError(t *testing.T) {
	parser, err := New(PHP)
	require.NoError(t, err)
	defer parser.Close()

	src := []byte("<?php\n$x = ;\n")

	tree, err := parser.Parse(context.Background(), src, nil)
	require.NoError(t, err)
	assert.True(t, tree.HasError())

	same, err := parser.Parse(context.Background(), []byte("<?php\n$y = ;\n"), tree)
	require.NoError(t, err)
	assert.True(t, tree.Equal(same))
}

func TestQuerySyntaxError(t *testing.T) {
	parser, err := New(HTML)
	require.NoError(t, err)
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), []byte("<p></p>"), nil)
	require.NoError(t, err)

	_, err = tree.Query("(not_a_node_kind) @x")
	assert.ErrorIs(t, err, syntax.ErrQuerySyntax)
}

func TestUnknownGrammar(t *testing.T) {
	_, err := New("cobol")
	assert.Error(t, err)

	_, err = Factory(PHP)()
	assert.NoError(t, err)
}

func TestConcurrentQueries(t *testing.T) {
	parser, err := New(PHP)
	require.NoError(t, err)
	defer parser.Close()

	tree, err := parser.Parse(context.Background(), []byte("<?php\n$x = ;\n$y = ;\n"), nil)
	require.NoError(t, err)

	expected, err := tree.Query("(ERROR) @error")
	require.NoError(t, err)
	require.NotEmpty(t, expected)

	var wg sync.WaitGroup

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 50; j++ {
				matches, err := tree.Query("(ERROR) @error")

				if assert.NoError(t, err) {
					assert.Equal(t, expected, matches)
				}
			}
		}()
	}

	wg.Wait()
}
