// Package diagnostics turns ERROR and MISSING nodes of a parsed document
// into protocol diagnostics.
package diagnostics

import (
	"cmp"
	"slices"

	"github.com/blase-lsp/blase/analysis"
	. "github.com/blase-lsp/blase/i18n"
	"github.com/blase-lsp/blase/metrics"
	"github.com/blase-lsp/blase/syntax"
	"github.com/blase-lsp/blase/text"
	. "github.com/blase-lsp/blase/types"
	. "github.com/blase-lsp/blase/utils"
	"github.com/tliron/commonlog"
	proto "github.com/tliron/glsp/protocol_3_16"
)

var log = commonlog.GetLogger("blase.diagnostics")

const (
	Source     = "blase"
	ErrorQuery = "(ERROR) @error"

	// error leaves shorter than this are quoted in the message
	tokenLimit = 50
)

type Extractor struct {
	Encoding text.Encoding
	Query    string
}

func New(enc text.Encoding) *Extractor {
	return &Extractor{
		Encoding: enc,
		Query:    ErrorQuery,
	}
}

// Extract never fails. A query that cannot run yields no diagnostics and
// is logged and counted.
func (e *Extractor) Extract(doc *analysis.ParsedDocument) []Diagnostic {
	list := make([]Diagnostic, 0)

	if doc == nil || doc.Tree == nil || doc.Tree.Root == nil {
		return list
	}

	matches, err := doc.Tree.Query(e.Query)

	if err != nil {
		log.Errorf("diagnostic query %q for %s: %s", e.Query, doc.Uri, err)
		metrics.DiagnosticQueryErrors.Inc()
		return list
	}

	codec := text.NewCodec(e.Encoding, doc.Text)
	src := []byte(doc.Text)

	for _, match := range matches {
		for _, capture := range match.Captures {
			list = append(list, diagnostic(codec, capture.Node, errorMessage(capture.Node, src)))
		}
	}

	for node := range NodesIter(doc.Tree.Root, isMissing) {
		list = append(list, diagnostic(codec, node, L("missing", node.Kind)))
	}

	slices.SortStableFunc(list, func(a, b Diagnostic) int {
		return cmp.Or(
			cmp.Compare(a.Range.Start.Line, b.Range.Start.Line),
			cmp.Compare(a.Range.Start.Character, b.Range.Start.Character),
		)
	})

	return list
}

func isMissing(node *syntax.Node) bool {
	return node.Missing
}

func errorMessage(node *syntax.Node, src []byte) string {
	size := node.EndByte - node.StartByte

	if node.ChildCount() == 0 && size > 0 && size < tokenLimit {
		return L("unexpected_token", node.Content(src))
	}

	return L("syntax_error")
}

func diagnostic(codec text.Codec, node *syntax.Node, message string) Diagnostic {
	return Diagnostic{
		Range: codec.Range(text.Span{
			Start: node.StartByte,
			End:   node.EndByte,
		}),
		Severity: P(proto.DiagnosticSeverityError),
		Source:   P(Source),
		Message:  message,
	}
}
