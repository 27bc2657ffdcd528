package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/blase-lsp/blase/syntax"
	"github.com/blase-lsp/blase/syntax/blade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingParser struct {
	inner syntax.Parser
	count *atomic.Int32
}

func (p *countingParser) Parse(ctx context.Context, src []byte, previous *syntax.Tree) (*syntax.Tree, error) {
	p.count.Add(1)

	return p.inner.Parse(ctx, src, previous)
}

func (p *countingParser) Close() {}

func newDatabase(t *testing.T) (*Database, *atomic.Int32) {
	t.Helper()

	var count atomic.Int32

	pool, err := syntax.NewPool(2, func() (syntax.Parser, error) {
		inner, err := blade.New()

		return &countingParser{inner: inner, count: &count}, err
	})

	require.NoError(t, err)

	registry := syntax.NewRegistry()
	registry.Register(&syntax.Language{Name: blade.Language, Suffixes: []string{".blade.php"}, Pool: pool})

	t.Cleanup(func() {
		registry.Close()
	})

	return New(registry), &count
}

const uri = "file:///views/home.blade.php"

func TestSetTextSameBytesDoesNotReparse(t *testing.T) {
	db, count := newDatabase(t)
	ctx := context.Background()

	rev, changed := db.SetText(uri, "@if($a) x @endif")
	assert.True(t, changed)
	assert.Equal(t, Revision(1), rev)

	first, err := db.Snapshot().Parse(ctx, uri)
	require.NoError(t, err)
	assert.Equal(t, int32(1), count.Load())

	rev, changed = db.SetText(uri, "@if($a) x @endif")
	assert.False(t, changed)
	assert.Equal(t, Revision(1), rev)

	second, err := db.Snapshot().Parse(ctx, uri)
	require.NoError(t, err)

	assert.Equal(t, int32(1), count.Load())
	assert.Same(t, first, second)
}

func TestParseAfterChange(t *testing.T) {
	db, count := newDatabase(t)
	ctx := context.Background()

	db.SetText(uri, "@if($a) x @endif")
	_, err := db.Snapshot().Parse(ctx, uri)
	require.NoError(t, err)

	db.SetText(uri, "@if($a) x")

	doc, err := db.Snapshot().Parse(ctx, uri)
	require.NoError(t, err)

	assert.Equal(t, int32(2), count.Load())
	assert.Equal(t, "@if($a) x", doc.Text)
	assert.True(t, doc.Tree.HasError())
	assert.Equal(t, Revision(2), doc.Revision)
	assert.Equal(t, Revision(2), doc.ChangedAt)
}

func TestParseBackdatesEqualShape(t *testing.T) {
	db, _ := newDatabase(t)
	ctx := context.Background()

	db.SetText(uri, "@if($a)\n  x\n@endif")
	first, err := db.Snapshot().Parse(ctx, uri)
	require.NoError(t, err)

	db.SetText(uri, "@if($a)\n\n      x\n@endif")
	second, err := db.Snapshot().Parse(ctx, uri)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, Revision(2), second.Revision)
	assert.Equal(t, Revision(1), second.ChangedAt)
	assert.Equal(t, "@if($a)\n\n      x\n@endif", second.Text)
}

func TestSnapshotIsolation(t *testing.T) {
	db, _ := newDatabase(t)
	ctx := context.Background()

	db.SetText(uri, "old")
	snap := db.Snapshot()

	db.SetText(uri, "{{ new")
	db.SetText("file:///views/other.blade.php", "other")

	text, ok := snap.Text(uri)
	assert.True(t, ok)
	assert.Equal(t, "old", text)
	assert.False(t, snap.Contains("file:///views/other.blade.php"))
	assert.Equal(t, Revision(1), snap.Revision())

	old, err := snap.Parse(ctx, uri)
	require.NoError(t, err)
	assert.False(t, old.Tree.HasError())

	latest, err := db.Snapshot().Parse(ctx, uri)
	require.NoError(t, err)
	assert.True(t, latest.Tree.HasError())

	assert.Equal(t, []string{"file:///views/home.blade.php", "file:///views/other.blade.php"}, db.Snapshot().Files())
}

func TestParseOlderSnapshotKeepsNewerMemo(t *testing.T) {
	db, count := newDatabase(t)
	ctx := context.Background()

	db.SetText(uri, "a")
	old := db.Snapshot()

	db.SetText(uri, "b")
	_, err := db.Snapshot().Parse(ctx, uri)
	require.NoError(t, err)

	_, err = old.Parse(ctx, uri)
	require.NoError(t, err)

	_, err = db.Snapshot().Parse(ctx, uri)
	require.NoError(t, err)

	assert.Equal(t, int32(2), count.Load())
}

func TestRemove(t *testing.T) {
	db, _ := newDatabase(t)

	assert.False(t, db.Remove(uri))

	db.SetText(uri, "x")
	assert.True(t, db.Remove(uri))

	_, err := db.Snapshot().Parse(context.Background(), uri)
	assert.True(t, errors.Is(err, ErrUnknownFile))
}

func TestConcurrentParse(t *testing.T) {
	db, count := newDatabase(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		db.SetText(fmt.Sprintf("file:///v/%d.blade.php", i), fmt.Sprintf("{{ $v%d }}", i))
	}

	snap := db.Snapshot()
	wg := sync.WaitGroup{}

	for i := 0; i < 50; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			doc, err := snap.Parse(ctx, fmt.Sprintf("file:///v/%d.blade.php", i%10))

			assert.NoError(t, err)
			assert.False(t, doc.Tree.HasError())
		}(i)
	}

	wg.Wait()

	assert.LessOrEqual(t, count.Load(), int32(50))
	assert.GreaterOrEqual(t, count.Load(), int32(10))

	before := count.Load()

	for i := 0; i < 10; i++ {
		_, err := db.Snapshot().Parse(ctx, fmt.Sprintf("file:///v/%d.blade.php", i))
		require.NoError(t, err)
	}

	assert.Equal(t, before, count.Load())
}

func TestSnapshotsShareWorkspaceInputs(t *testing.T) {
	db, _ := newDatabase(t)

	for i := 0; i < 1000; i++ {
		db.SetText(fmt.Sprintf("file:///views/%04d.blade.php", i), "x")
	}

	before := db.Snapshot()

	db.SetText("file:///views/0001.blade.php", "y")
	db.Remove("file:///views/0002.blade.php")
	db.SetText("file:///views/new.blade.php", "z")

	after := db.Snapshot()

	text, ok := before.Text("file:///views/0001.blade.php")
	assert.True(t, ok)
	assert.Equal(t, "x", text)
	assert.True(t, before.Contains("file:///views/0002.blade.php"))
	assert.False(t, before.Contains("file:///views/new.blade.php"))
	assert.Len(t, before.Files(), 1000)

	text, _ = after.Text("file:///views/0001.blade.php")
	assert.Equal(t, "y", text)
	assert.False(t, after.Contains("file:///views/0002.blade.php"))

	files := after.Files()
	assert.Len(t, files, 1000)
	assert.Equal(t, "file:///views/0000.blade.php", files[0])
	assert.Equal(t, "file:///views/new.blade.php", files[len(files)-1])

	rev, ok := after.InputRevision("file:///views/0003.blade.php")
	assert.True(t, ok)
	assert.EqualValues(t, 4, rev)
}
