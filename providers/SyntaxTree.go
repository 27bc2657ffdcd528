package providers

import (
	"context"
	"encoding/json"

	. "github.com/blase-lsp/blase/types"
	. "github.com/blase-lsp/blase/utils"
)

const SyntaxTreeMethod = "blase/syntaxTree"

type SyntaxTreeParams struct {
	URI Uri `json:"uri"`
}

type SyntaxTreeResult struct {
	URI  Uri    `json:"uri"`
	Tree string `json:"tree"`
}

type SyntaxTreeFunc func(ctx *Ctx, params *SyntaxTreeParams) (*SyntaxTreeResult, error)

type SyntaxTreeHandlers struct {
	SyntaxTree SyntaxTreeFunc
}

func (req *SyntaxTreeHandlers) Handle(ctx *Ctx) (res any, validMethod bool, validParams bool, err error) {
	switch ctx.Method {
	case SyntaxTreeMethod:
		validMethod = true

		var params SyntaxTreeParams
		if err = json.Unmarshal(ctx.Params, &params); err == nil {
			validParams = true
			res, err = req.SyntaxTree(ctx, &params)
		}
	}

	return
}

// SyntaxTree returns the S-expression of the parsed document. The value is
// memoized on the tree shape, so edits that keep the shape reuse it.
func SyntaxTree(_ *Ctx, params *SyntaxTreeParams) (*SyntaxTreeResult, error) {
	if root == nil {
		return nil, ErrNotInitialized
	}

	uri, err := NormalizeUri(params.URI)

	if err != nil {
		return nil, err
	}

	tree, err := root.SyntaxTree(context.Background(), uri)

	if err != nil {
		return nil, err
	}

	return &SyntaxTreeResult{URI: uri, Tree: tree}, nil
}
