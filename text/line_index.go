package text

import (
	"sort"
	"unicode/utf8"
)

// wideChar is a multi-byte character, located by byte offsets relative to
// the start of its line.
type wideChar struct {
	start uint32
	end   uint32
	r     rune
}

func (c wideChar) len() uint32 {
	return c.end - c.start
}

// LineIndex maps line numbers to byte offsets of one immutable text.
// It must be rebuilt whenever the text it was built from changes.
type LineIndex struct {
	length uint32
	starts []uint32
	wide   map[uint32][]wideChar
}

func NewLineIndex(text string) *LineIndex {
	index := &LineIndex{
		length: uint32(len(text)),
		starts: []uint32{0},
	}

	line := uint32(0)
	lineStart := uint32(0)

	for i := 0; i < len(text); {
		b := text[i]

		if b == '\n' {
			i++
			line++
			lineStart = uint32(i)
			index.starts = append(index.starts, lineStart)
			continue
		}

		if b < utf8.RuneSelf {
			i++
			continue
		}

		r, size := utf8.DecodeRuneInString(text[i:])

		if size > 1 {
			if index.wide == nil {
				index.wide = make(map[uint32][]wideChar)
			}

			index.wide[line] = append(index.wide[line], wideChar{
				start: uint32(i) - lineStart,
				end:   uint32(i+size) - lineStart,
				r:     r,
			})
		}

		i += size
	}

	return index
}

// Len is the byte length of the indexed text.
func (index *LineIndex) Len() uint32 {
	return index.length
}

// LineCount is the number of lines; a trailing newline opens an empty last line.
func (index *LineIndex) LineCount() uint32 {
	return uint32(len(index.starts))
}

// Line returns the byte span of a line including its terminating newline.
func (index *LineIndex) Line(line uint32) (start uint32, end uint32, ok bool) {
	if line >= uint32(len(index.starts)) {
		return 0, 0, false
	}

	start = index.starts[line]

	if line+1 < uint32(len(index.starts)) {
		end = index.starts[line+1]
	} else {
		end = index.length
	}

	return start, end, true
}

// LineOf returns the line containing offset and the offset of that line's start.
func (index *LineIndex) LineOf(offset uint32) (line uint32, lineStart uint32) {
	if offset > index.length {
		offset = index.length
	}

	i := sort.Search(len(index.starts), func(i int) bool {
		return index.starts[i] > offset
	})

	line = uint32(i - 1)

	return line, index.starts[line]
}

// toByteColumn translates a column counted in enc units into a byte column
// of the given line. A column that lands inside a multi-unit character
// snaps to the start of that character.
func (index *LineIndex) toByteColumn(enc Encoding, line uint32, col uint32) uint32 {
	if !enc.Wide() {
		return col
	}

	delta := uint32(0)

	for _, c := range index.wide[line] {
		unitStart := c.start - delta

		if col <= unitStart {
			break
		}

		units := enc.RuneUnits(c.r)

		if col < unitStart+units {
			return c.start
		}

		delta += c.len() - units
	}

	return col + delta
}

// toWideColumn is the inverse of toByteColumn.
func (index *LineIndex) toWideColumn(enc Encoding, line uint32, byteCol uint32) uint32 {
	if !enc.Wide() {
		return byteCol
	}

	delta := uint32(0)

	for _, c := range index.wide[line] {
		if byteCol <= c.start {
			break
		}

		if byteCol < c.end {
			byteCol = c.start
			break
		}

		delta += c.len() - enc.RuneUnits(c.r)
	}

	return byteCol - delta
}
