package text

import (
	"fmt"
	"math"
	"strings"

	. "github.com/blase-lsp/blase/types"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("blase.text")

// Change is one content change event of a didChange batch: either a
// FullReplace or a RangeReplace.
type Change interface {
	isChange()
}

// FullReplace replaces the whole document.
type FullReplace struct {
	Text string
}

// RangeReplace replaces Range, expressed against the state left by the
// previous changes of the same batch.
type RangeReplace struct {
	Range Range
	Text  string
}

func (FullReplace) isChange()  {}
func (RangeReplace) isChange() {}

// Result reports what ApplyChanges did besides producing the text.
type Result struct {
	Text    string
	Applied int
	Dropped int
	Rebuilt int
}

// ApplyChanges folds a batch of changes into original and returns the new text.
func ApplyChanges(enc Encoding, original string, changes []Change) string {
	return Apply(enc, original, changes).Text
}

// Apply folds changes into original. Everything up to and including the
// last FullReplace is discarded except that replacement's text. Ranged
// changes after it are applied in order; a change whose range cannot be
// resolved is dropped and the batch continues.
func Apply(enc Encoding, original string, changes []Change) Result {
	text := original
	rest := changes

	for i := len(changes) - 1; i >= 0; i-- {
		if full, ok := changes[i].(FullReplace); ok {
			text = full.Text
			rest = changes[i+1:]
			break
		}
	}

	res := Result{Text: text}

	if len(rest) == 0 {
		return res
	}

	codec := NewCodec(enc, text)

	// Lowest line whose entry in codec.Index is still trustworthy. Edits
	// at or below a previous edit's start line invalidate the index.
	valid := uint32(math.MaxUint32)

	for _, change := range rest {
		var ranged RangeReplace

		switch c := change.(type) {
		case RangeReplace:
			ranged = c
		case FullReplace:
			// unreachable: rest starts after the last full replace
			continue
		default:
			panic(fmt.Sprintf("unexpected change type %T", change))
		}

		if valid <= ranged.Range.End.Line {
			codec.Index = NewLineIndex(text)
			res.Rebuilt++
		}

		valid = ranged.Range.Start.Line

		span, err := codec.Span(ranged.Range)

		if err != nil {
			log.Warningf("dropping change %v: %s", ranged.Range, err)
			res.Dropped++
			continue
		}

		text = splice(text, span, ranged.Text)
		res.Applied++
	}

	res.Text = text

	return res
}

func splice(text string, span Span, insert string) string {
	var b strings.Builder

	b.Grow(len(text) - int(span.Len()) + len(insert))
	b.WriteString(text[:span.Start])
	b.WriteString(insert)
	b.WriteString(text[span.End:])

	return b.String()
}
