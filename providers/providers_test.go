package providers

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/blase-lsp/blase/config"
	"github.com/blase-lsp/blase/state"
	"github.com/blase-lsp/blase/syntax"
	"github.com/blase-lsp/blase/syntax/blade"
	. "github.com/blase-lsp/blase/types"
	. "github.com/blase-lsp/blase/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tliron/glsp"
	proto "github.com/tliron/glsp/protocol_3_16"
)

type client struct {
	mu        sync.Mutex
	published []proto.PublishDiagnosticsParams
	progress  []any
}

func (c *client) context() *Ctx {
	return &glsp.Context{
		Notify: func(method string, params any) {
			c.mu.Lock()
			defer c.mu.Unlock()

			switch method {
			case proto.ServerTextDocumentPublishDiagnostics:
				c.published = append(c.published, params.(proto.PublishDiagnosticsParams))
			case proto.MethodProgress:
				c.progress = append(c.progress, params.(proto.ProgressParams).Value)
			}
		},
	}
}

func (c *client) count(uri Uri) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0

	for _, p := range c.published {
		if p.URI == uri {
			n++
		}
	}

	return n
}

func (c *client) last(uri Uri) (proto.PublishDiagnosticsParams, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.published) - 1; i >= 0; i-- {
		if c.published[i].URI == uri {
			return c.published[i], true
		}
	}

	return proto.PublishDiagnosticsParams{}, false
}

func initialize(t *testing.T, ctx *Ctx, offered []string) InitializeResult {
	t.Helper()

	cfg := config.Default()
	cfg.DiagnosticsDelay = 0
	cfg.LoadWorkspace = false

	Configure(cfg)

	clientEncodings = offered

	res, err := Initialize(ctx, &proto.InitializeParams{
		Capabilities: proto.ClientCapabilities{
			TextDocument: &proto.TextDocumentClientCapabilities{
				PublishDiagnostics: &proto.PublishDiagnosticsClientCapabilities{},
			},
		},
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = shutdown()
	})

	return res.(InitializeResult)
}

func TestPositionEncodings(t *testing.T) {
	list := []struct {
		Params string
		Expect []string
	}{
		{`{"capabilities":{"general":{"positionEncodings":["utf-32","utf-16"]}}}`, []string{"utf-32", "utf-16"}},
		{`{"capabilities":{}}`, nil},
		{`{"capabilities":{"general":{}}}`, nil},
		{`not json`, nil},
	}

	for i, item := range list {
		res := positionEncodings(json.RawMessage(item.Params))

		if !assert.Equal(t, item.Expect, res) {
			t.Errorf("%d - params: %s", i+1, item.Params)
		}
	}
}

func TestInitializeCapabilities(t *testing.T) {
	c := &client{}
	res := initialize(t, c.context(), []string{"utf-32", "utf-8"})

	assert.Equal(t, "utf-8", res.Capabilities.PositionEncoding)
	assert.Equal(t, Name, res.ServerInfo.Name)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var reply map[string]any
	require.NoError(t, json.Unmarshal(data, &reply))

	caps := reply["capabilities"].(map[string]any)
	assert.Equal(t, "utf-8", caps["positionEncoding"])

	textSync := caps["textDocumentSync"].(map[string]any)
	assert.Equal(t, true, textSync["openClose"])
	assert.EqualValues(t, 2, textSync["change"])
	assert.Equal(t, map[string]any{"includeText": true}, textSync["save"])

	res = initialize(t, c.context(), nil)
	assert.Equal(t, "utf-16", res.Capabilities.PositionEncoding)
}

func TestInitializeFolders(t *testing.T) {
	_, err := workspaceFolder(&proto.InitializeParams{
		WorkspaceFolders: []proto.WorkspaceFolder{
			{URI: "file:///a", Name: "a"},
			{URI: "file:///b", Name: "b"},
		},
	})
	assert.ErrorIs(t, err, ErrMultipleFolders)

	rootUri := "file:///project"

	folder, err := workspaceFolder(&proto.InitializeParams{RootURI: &rootUri})
	require.NoError(t, err)
	assert.Equal(t, rootUri, folder)

	folder, err = workspaceFolder(&proto.InitializeParams{
		WorkspaceFolders: []proto.WorkspaceFolder{{URI: "file:///single", Name: "single"}},
		RootURI:          &rootUri,
	})
	require.NoError(t, err)
	assert.Equal(t, "file:///single", folder)
}

func TestDocumentLifecycle(t *testing.T) {
	c := &client{}
	ctx := c.context()

	initialize(t, ctx, nil)

	uri := "file:///views/home.blade.php"

	require.NoError(t, DocOpen(ctx, &proto.DidOpenTextDocumentParams{
		TextDocument: proto.TextDocumentItem{
			URI:        uri,
			LanguageID: "blade",
			Version:    1,
			Text:       "@if($a)\n",
		},
	}))

	assert.Eventually(t, func() bool {
		last, ok := c.last(uri)
		return ok && len(last.Diagnostics) == 1 && last.Version != nil && *last.Version == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, DocChange(ctx, &proto.DidChangeTextDocumentParams{
		TextDocument: proto.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: proto.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{
			proto.TextDocumentContentChangeEvent{
				Range: &proto.Range{
					Start: proto.Position{Line: 1, Character: 0},
					End:   proto.Position{Line: 1, Character: 0},
				},
				Text: "@endif",
			},
		},
	}))

	assert.Eventually(t, func() bool {
		last, ok := c.last(uri)
		return ok && len(last.Diagnostics) == 0 && last.Version != nil && *last.Version == 2
	}, time.Second, 5*time.Millisecond)

	tree, err := SyntaxTree(ctx, &SyntaxTreeParams{URI: uri})
	require.NoError(t, err)
	assert.Equal(t, uri, tree.URI)
	assert.Contains(t, tree.Tree, "(conditional")

	saved := "{{ $a"

	require.NoError(t, DocSave(ctx, &proto.DidSaveTextDocumentParams{
		TextDocument: proto.TextDocumentIdentifier{URI: uri},
		Text:         &saved,
	}))

	assert.Eventually(t, func() bool {
		last, ok := c.last(uri)
		return ok && len(last.Diagnostics) == 1 && last.Diagnostics[0].Message == "Missing }}"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, DocClose(ctx, &proto.DidCloseTextDocumentParams{
		TextDocument: proto.TextDocumentIdentifier{URI: uri},
	}))

	last, ok := c.last(uri)
	require.True(t, ok)
	assert.Empty(t, last.Diagnostics)
	assert.Nil(t, last.Version)

	// unknown documents are not errors
	assert.NoError(t, DocChange(ctx, &proto.DidChangeTextDocumentParams{
		TextDocument: proto.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: proto.TextDocumentIdentifier{URI: uri},
			Version:                3,
		},
		ContentChanges: []any{proto.TextDocumentContentChangeEventWhole{Text: "x"}},
	}))
}

func TestSyntaxTreeHandler(t *testing.T) {
	c := &client{}
	ctx := c.context()

	initialize(t, ctx, nil)

	uri := "file:///views/list.blade.php"

	require.NoError(t, DocOpen(ctx, &proto.DidOpenTextDocumentParams{
		TextDocument: proto.TextDocumentItem{URI: uri, Version: 1, Text: "{{ $a }}"},
	}))

	ctx.Method = SyntaxTreeMethod
	ctx.Params = json.RawMessage(`{"uri":"` + uri + `"}`)

	res, validMethod, validParams, err := CreateRequestHandler().Handle(ctx)
	require.NoError(t, err)
	assert.True(t, validMethod)
	assert.True(t, validParams)
	assert.Contains(t, res.(*SyntaxTreeResult).Tree, "(echo")

	ctx.Params = json.RawMessage(`[`)

	_, validMethod, validParams, _ = CreateRequestHandler().Handle(ctx)
	assert.True(t, validMethod)
	assert.False(t, validParams)
}

func TestConfigurationChange(t *testing.T) {
	c := &client{}
	ctx := c.context()

	initialize(t, ctx, nil)

	err := ConfigurationChange(ctx, &proto.DidChangeConfigurationParams{
		Settings: map[string]any{"blase": map[string]any{"locale": "xx"}},
	})
	assert.Error(t, err)

	require.NoError(t, ConfigurationChange(ctx, &proto.DidChangeConfigurationParams{
		Settings: map[string]any{"blase": map[string]any{"locale": "en", "diagnosticsDelay": 10}},
	}))

	assert.Equal(t, 10*time.Millisecond, settings.DiagnosticsDelay)
}

func TestWorkspaceLoad(t *testing.T) {
	c := &client{}
	ctx := c.context()

	initialize(t, ctx, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "resources", "views", "welcome.blade.php")

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("@extends('layout')"), 0o644))

	workspaceRoot = dir
	supportProgress = true
	settings.LoadWorkspace = true

	t.Cleanup(func() {
		supportProgress = false
	})

	require.NoError(t, Initialized(ctx, &proto.InitializedParams{}))

	uri := ToUri(path)

	assert.Eventually(t, func() bool {
		return root.DB.Snapshot().Contains(uri)
	}, 2*time.Second, 10*time.Millisecond)

	<-views.Done()

	c.mu.Lock()
	defer c.mu.Unlock()

	require.NotEmpty(t, c.progress)

	begin, ok := c.progress[0].(proto.WorkDoneProgressBegin)
	require.True(t, ok)
	assert.Equal(t, "Loading files", begin.Title)

	end, ok := c.progress[len(c.progress)-1].(proto.WorkDoneProgressEnd)
	require.True(t, ok)
	assert.Equal(t, "Loaded 1 files", *end.Message)
}

// slowParser stalls on texts containing "SLOW".
type slowParser struct {
	inner syntax.Parser
}

func (p *slowParser) Parse(ctx context.Context, src []byte, previous *syntax.Tree) (*syntax.Tree, error) {
	if strings.Contains(string(src), "SLOW") {
		time.Sleep(300 * time.Millisecond)
	}

	return p.inner.Parse(ctx, src, previous)
}

func (p *slowParser) Close() {}

func useSlowParser(t *testing.T) {
	t.Helper()

	pool, err := syntax.NewPool(2, func() (syntax.Parser, error) {
		inner, err := blade.New()

		return &slowParser{inner: inner}, err
	})
	require.NoError(t, err)

	_ = registry.Close()

	registry = syntax.NewRegistry()
	registry.Register(&syntax.Language{Name: blade.Language, Suffixes: []string{".blade.php"}, Pool: pool})

	root = state.CreateRoot(registry, state.Options{Encoding: encoding})
}

func TestSaveDoesNotPublishSupersededText(t *testing.T) {
	c := &client{}
	ctx := c.context()

	initialize(t, ctx, nil)
	useSlowParser(t)

	uri := "file:///views/save.blade.php"

	require.NoError(t, DocOpen(ctx, &proto.DidOpenTextDocumentParams{
		TextDocument: proto.TextDocumentItem{URI: uri, Version: 1, Text: "ok"},
	}))

	assert.Eventually(t, func() bool {
		_, ok := c.last(uri)
		return ok
	}, time.Second, 5*time.Millisecond)

	saved := "SLOW {{ $a"

	require.NoError(t, DocSave(ctx, &proto.DidSaveTextDocumentParams{
		TextDocument: proto.TextDocumentIdentifier{URI: uri},
		Text:         &saved,
	}))

	time.Sleep(50 * time.Millisecond)

	require.NoError(t, DocChange(ctx, &proto.DidChangeTextDocumentParams{
		TextDocument: proto.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: proto.TextDocumentIdentifier{URI: uri},
			Version:                5,
		},
		ContentChanges: []any{proto.TextDocumentContentChangeEventWhole{Text: "fine"}},
	}))

	// outlast the stalled parse of the saved text
	time.Sleep(500 * time.Millisecond)

	last, ok := c.last(uri)
	require.True(t, ok)
	require.NotNil(t, last.Version)
	assert.EqualValues(t, 5, *last.Version)
	assert.Empty(t, last.Diagnostics)
}

func TestSaveWithoutTextRepublishes(t *testing.T) {
	c := &client{}
	ctx := c.context()

	initialize(t, ctx, nil)

	uri := "file:///views/plain.blade.php"

	require.NoError(t, DocOpen(ctx, &proto.DidOpenTextDocumentParams{
		TextDocument: proto.TextDocumentItem{URI: uri, Version: 3, Text: "{{ $a"},
	}))

	assert.Eventually(t, func() bool {
		return c.count(uri) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, DocSave(ctx, &proto.DidSaveTextDocumentParams{
		TextDocument: proto.TextDocumentIdentifier{URI: uri},
	}))

	assert.Eventually(t, func() bool {
		return c.count(uri) == 2
	}, time.Second, 5*time.Millisecond)

	last, _ := c.last(uri)
	require.Len(t, last.Diagnostics, 1)
	assert.Equal(t, "Missing }}", last.Diagnostics[0].Message)
	assert.EqualValues(t, 3, *last.Version)
}
