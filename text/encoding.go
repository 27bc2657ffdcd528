// Package text converts between editor positions and byte offsets and folds
// batches of content changes into new document bodies.
package text

import (
	"fmt"
	"unicode/utf8"
)

// Encoding is the code-unit system a client uses for Position.Character.
type Encoding uint8

const (
	UTF16 Encoding = iota
	UTF8
	UTF32
)

// Names as they appear in the positionEncoding capability.
const (
	KindUTF8  = "utf-8"
	KindUTF16 = "utf-16"
	KindUTF32 = "utf-32"
)

func (enc Encoding) String() string {
	switch enc {
	case UTF8:
		return KindUTF8
	case UTF32:
		return KindUTF32
	default:
		return KindUTF16
	}
}

func ParseEncoding(kind string) (Encoding, error) {
	switch kind {
	case KindUTF8:
		return UTF8, nil
	case KindUTF16:
		return UTF16, nil
	case KindUTF32:
		return UTF32, nil
	}

	return UTF16, fmt.Errorf("unsupported position encoding %q", kind)
}

// Negotiate picks the session encoding from the kinds a client offers.
// UTF-8 wins, then UTF-32. UTF-16 is the mandatory fallback and is chosen
// only when nothing better is offered.
func Negotiate(offered []string) Encoding {
	best := UTF16

	for _, kind := range offered {
		switch kind {
		case KindUTF8:
			return UTF8
		case KindUTF32:
			best = UTF32
		}
	}

	return best
}

// Wide reports whether columns are counted in units other than bytes.
func (enc Encoding) Wide() bool {
	return enc != UTF8
}

// RuneUnits is the number of code units r occupies in enc.
func (enc Encoding) RuneUnits(r rune) uint32 {
	switch enc {
	case UTF8:
		n := utf8.RuneLen(r)
		if n < 0 {
			return 1
		}
		return uint32(n)
	case UTF32:
		return 1
	default:
		if r >= 0x10000 {
			return 2
		}
		return 1
	}
}
