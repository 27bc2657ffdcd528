package utils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/blase-lsp/blase/syntax"
)

func TestNormalizeUri(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("posix paths")
	}

	list := []struct {
		Uri  string
		Test string
	}{
		{"file:///app/resources/views/a.blade.php", "file:///app/resources/views/a.blade.php"},
		{"/app/resources/views/../views/a.blade.php", "file:///app/resources/views/a.blade.php"},
		{"file:///app/my%20views/a.blade.php", "file:///app/my%20views/a.blade.php"},
		{"untitled:Untitled-1", "untitled:Untitled-1"},
	}

	for i, item := range list {
		res, err := NormalizeUri(item.Uri)

		if err != nil {
			t.Errorf("%d - error: %s", i+1, err)
			continue
		}

		if res != item.Test {
			t.Errorf("%d - got: %s; expect: %s", i+1, res, item.Test)
		}
	}
}

func TestReadUri(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "home.blade.php")

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if text, err := ReadUri(ToUri(path)); err != nil || text != "x" {
		t.Errorf("got %q, %v; expect: x", text, err)
	}

	if _, err := ReadUri(ToUri(dir)); err == nil {
		t.Errorf("directory read as file")
	}

	if _, err := ReadUri(ToUri(filepath.Join(dir, "missing.blade.php"))); err == nil {
		t.Errorf("missing file read")
	}
}

func TestNodesIter(t *testing.T) {
	root := &syntax.Node{
		Kind: "document",
		Children: []*syntax.Node{
			{Kind: syntax.KindError, Error: true, Children: []*syntax.Node{
				{Kind: syntax.KindError, Error: true},
			}},
			{Kind: "text"},
			{Kind: syntax.KindError, Error: true},
		},
	}

	count := 0

	for range NodesIter(root, (*syntax.Node).IsError) {
		count++
	}

	if count != 2 {
		t.Errorf("got: %d; expect: 2", count)
	}

	count = 0

	for range NodesIter(root, (*syntax.Node).IsError) {
		count++
		break
	}

	if count != 1 {
		t.Errorf("got: %d; expect: 1", count)
	}
}
