package text

import (
	"errors"
	"fmt"

	. "github.com/blase-lsp/blase/types"
)

var (
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidRange    = errors.New("invalid range")
)

// Span is a half-open byte range [Start, End).
type Span struct {
	Start uint32
	End   uint32
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

// Codec converts positions in one negotiated encoding against one LineIndex.
type Codec struct {
	Encoding Encoding
	Index    *LineIndex
}

func NewCodec(enc Encoding, text string) Codec {
	return Codec{
		Encoding: enc,
		Index:    NewLineIndex(text),
	}
}

// Offset converts pos to a byte offset. A column past the end of the line
// is clamped to the line length (newline included); an unknown line fails.
func (c Codec) Offset(pos Position) (uint32, error) {
	start, end, ok := c.Index.Line(pos.Line)

	if !ok {
		return 0, fmt.Errorf("%w: line %d of %d", ErrInvalidPosition, pos.Line, c.Index.LineCount())
	}

	col := c.Index.toByteColumn(c.Encoding, pos.Line, pos.Character)

	return start + min(col, end-start), nil
}

// Span converts r to a byte span; an end before the start is an error.
func (c Codec) Span(r Range) (Span, error) {
	start, err := c.Offset(r.Start)

	if err != nil {
		return Span{}, err
	}

	end, err := c.Offset(r.End)

	if err != nil {
		return Span{}, err
	}

	if end < start {
		return Span{}, fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, end, start)
	}

	return Span{Start: start, End: end}, nil
}

// Position converts a byte offset back to a position in the codec encoding.
// Offsets past the end of the text are clamped to the end.
func (c Codec) Position(offset uint32) Position {
	line, lineStart := c.Index.LineOf(offset)

	offset = min(offset, c.Index.Len())

	return Position{
		Line:      line,
		Character: c.Index.toWideColumn(c.Encoding, line, offset-lineStart),
	}
}

// Range converts a byte span back to a range in the codec encoding.
func (c Codec) Range(span Span) Range {
	return Range{
		Start: c.Position(span.Start),
		End:   c.Position(span.End),
	}
}
