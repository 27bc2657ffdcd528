package state

import (
	"context"
	"errors"

	"github.com/blase-lsp/blase/analysis"
	"github.com/blase-lsp/blase/diagnostics"
	"github.com/blase-lsp/blase/metrics"
	"github.com/blase-lsp/blase/syntax"
	"github.com/blase-lsp/blase/text"
	. "github.com/blase-lsp/blase/types"
	. "github.com/blase-lsp/blase/utils"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("blase.state")

// Root ties the document store to the analysis database for one session.
type Root struct {
	Store     *Store
	DB        *analysis.Database
	Registry  *syntax.Registry
	Encoding  text.Encoding
	Extractor *diagnostics.Extractor

	diagnostics *analysis.Query[[]Diagnostic]
	syntaxTree  *analysis.Query[string]
}

type Options struct {
	Encoding   text.Encoding
	StrictOpen bool
}

func CreateRoot(registry *syntax.Registry, options Options) *Root {
	root := &Root{
		Store:     NewStore(options.StrictOpen),
		DB:        analysis.New(registry),
		Registry:  registry,
		Encoding:  options.Encoding,
		Extractor: diagnostics.New(options.Encoding),
	}

	root.diagnostics = analysis.NewQuery("diagnostics", analysis.OnText, func(ctx context.Context, doc *analysis.ParsedDocument) ([]Diagnostic, error) {
		return root.Extractor.Extract(doc), nil
	})

	root.syntaxTree = analysis.NewQuery("syntaxTree", analysis.OnShape, func(ctx context.Context, doc *analysis.ParsedDocument) (string, error) {
		return doc.Tree.String(), nil
	})

	root.Store.OnCommit = func(doc *Document) {
		root.DB.SetText(doc.Uri, doc.Text)
	}

	return root
}

func (root *Root) OnOpen(uri Uri, version *int32, body string) error {
	uri, err := NormalizeUri(uri)

	if err != nil {
		return err
	}

	_, err = root.Store.Open(uri, body, version)

	if err != nil {
		return err
	}

	metrics.OpenDocuments.Set(float64(root.Store.Len()))

	log.Debugf("opened %s", uri)

	return nil
}

// ApplyChanges folds a change batch into the open document. The store
// commit hook updates the database input under the document lock. Unknown
// documents are ignored.
func (root *Root) ApplyChanges(uri Uri, version *int32, changes []text.Change) (*Document, error) {
	uri, err := NormalizeUri(uri)

	if err != nil {
		return nil, err
	}

	doc, err := root.Store.Mutate(uri, func(doc Document) (Document, error) {
		res := text.Apply(root.Encoding, doc.Text, changes)

		if res.Dropped > 0 {
			metrics.ChangesDropped.Add(float64(res.Dropped))
		}

		doc.Text = res.Text

		if version != nil {
			doc.Version = version
		}

		return doc, nil
	})

	if errors.Is(err, ErrNotFound) {
		log.Warningf("change for unknown document %s", uri)
		return nil, nil
	}

	return doc, err
}

func (root *Root) OnChange(ctx context.Context, uri Uri, version *int32, changes []text.Change) ([]Diagnostic, error) {
	doc, err := root.ApplyChanges(uri, version, changes)

	if err != nil || doc == nil {
		return nil, err
	}

	return root.Diagnostics(ctx, doc.Uri)
}

// OnSave replaces the buffer with text when the client sent it.
func (root *Root) OnSave(ctx context.Context, uri Uri, saved *string) ([]Diagnostic, error) {
	uri, err := NormalizeUri(uri)

	if err != nil {
		return nil, err
	}

	if !root.Store.Has(uri) {
		log.Warningf("save for unknown document %s", uri)
		return nil, nil
	}

	if saved != nil {
		_, err = root.ApplyChanges(uri, nil, fullReplace(*saved))

		if err != nil {
			return nil, err
		}
	}

	return root.Diagnostics(ctx, uri)
}

// OnClose drops the editor buffer. A file that still exists on disk gets
// its saved text back as analysis input; unsaved edits are discarded.
func (root *Root) OnClose(uri Uri) error {
	uri, err := NormalizeUri(uri)

	if err != nil {
		return err
	}

	_, err = root.Store.Close(uri)

	if errors.Is(err, ErrNotFound) {
		log.Warningf("close for unknown document %s", uri)
		return nil
	}

	if err != nil {
		return err
	}

	metrics.OpenDocuments.Set(float64(root.Store.Len()))

	body, err := ReadUri(uri)

	if err != nil {
		root.RemoveFile(uri)
		return nil
	}

	root.LoadFile(uri, body)

	return nil
}

func (root *Root) Diagnostics(ctx context.Context, uri Uri) ([]Diagnostic, error) {
	uri, err := NormalizeUri(uri)

	if err != nil {
		return nil, err
	}

	return root.diagnostics.Get(ctx, root.DB.Snapshot(), uri)
}

func (root *Root) SyntaxTree(ctx context.Context, uri Uri) (string, error) {
	uri, err := NormalizeUri(uri)

	if err != nil {
		return "", err
	}

	return root.syntaxTree.Get(ctx, root.DB.Snapshot(), uri)
}

// LoadFile sets the input of a workspace file that is not open in the
// editor. It reports whether the input changed.
func (root *Root) LoadFile(uri Uri, body string) bool {
	if root.Store.Has(uri) {
		return false
	}

	_, changed := root.DB.SetText(uri, body)

	// opened meanwhile: the editor buffer wins
	root.Store.Sync(uri, func(doc *Document) {
		root.DB.SetText(uri, doc.Text)
		changed = false
	})

	return changed
}

// RemoveFile drops a deleted workspace file unless the editor has it open.
func (root *Root) RemoveFile(uri Uri) bool {
	if root.Store.Has(uri) {
		return false
	}

	return root.forget(uri)
}

func (root *Root) forget(uri Uri) bool {
	root.diagnostics.Forget(uri)
	root.syntaxTree.Forget(uri)

	return root.DB.Remove(uri)
}

// ResetDiagnostics recomputes diagnostics on next request, as needed after
// the message locale changed.
func (root *Root) ResetDiagnostics() {
	root.diagnostics.Reset()
}

// Version returns the client version of an open document.
func (root *Root) Version(uri Uri) *int32 {
	doc, err := root.Store.Get(uri)

	if err != nil {
		return nil
	}

	return doc.Version
}

func fullReplace(body string) []text.Change {
	return []text.Change{text.FullReplace{Text: body}}
}
