package providers

import (
	"errors"

	"github.com/blase-lsp/blase/state"
	. "github.com/blase-lsp/blase/utils"
	proto "github.com/tliron/glsp/protocol_3_16"
)

var ErrNotInitialized = errors.New("server not initialized")

func DocOpen(ctx *Ctx, params *proto.DidOpenTextDocumentParams) error {
	if root == nil {
		return ErrNotInitialized
	}

	doc := params.TextDocument
	uri, err := NormalizeUri(doc.URI)

	if err != nil {
		return err
	}

	err = root.OnOpen(uri, P(doc.Version), doc.Text)

	if errors.Is(err, state.ErrAlreadyOpen) {
		log.Warningf("%s", err)
		return nil
	}

	if err != nil {
		return err
	}

	publisher.Schedule(ctx, uri)

	return nil
}

func DocChange(ctx *Ctx, params *proto.DidChangeTextDocumentParams) error {
	if root == nil {
		return ErrNotInitialized
	}

	uri, err := NormalizeUri(params.TextDocument.URI)

	if err != nil {
		return err
	}

	doc, err := root.ApplyChanges(uri, P(params.TextDocument.Version), toChanges(params.ContentChanges))

	if err != nil {
		log.Errorf("applying changes to %s: %s", uri, err)
		return nil
	}

	if doc != nil {
		publisher.Schedule(ctx, uri)
	}

	return nil
}

func DocSave(ctx *Ctx, params *proto.DidSaveTextDocumentParams) error {
	if root == nil {
		return ErrNotInitialized
	}

	uri, err := NormalizeUri(params.TextDocument.URI)

	if err != nil {
		return err
	}

	if params.Text != nil {
		// replace in dispatch order; publication reads the revision after it
		if _, err = root.ApplyChanges(uri, nil, fullReplace(*params.Text)); err != nil {
			log.Errorf("saving %s: %s", uri, err)
			return nil
		}
	}

	publisher.Schedule(ctx, uri)

	return nil
}

func DocClose(ctx *Ctx, params *proto.DidCloseTextDocumentParams) error {
	if root == nil {
		return ErrNotInitialized
	}

	uri, err := NormalizeUri(params.TextDocument.URI)

	if err != nil {
		return err
	}

	if err = root.OnClose(uri); err != nil {
		return err
	}

	publisher.Forget(uri)
	clearDiagnostics(ctx, uri)

	return nil
}
