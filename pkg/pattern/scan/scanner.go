// Package scan provides the low-level tokenization primitives used by the
// pattern compiler: literal matching, terminator scanning with escape and
// quote handling, identifiers and quoted literals.
package scan

import (
	"fmt"
	"strings"
)

// Escape is the character that makes the following byte literal inside
// ScanTo and ScanLiteral.
const Escape = '\\'

// Quote and DoubleQuote delimit a literal section that ScanTo steps over as
// a whole.
const (
	Quote       = '\''
	DoubleQuote = '"'
)

// Scanner walks a source string byte by byte. The zero value is not usable;
// create one with New.
type Scanner struct {
	src string
	pos int
}

// New creates a scanner positioned at the start of src.
func New(src string) *Scanner {
	return &Scanner{src: src}
}

// Pos returns the current byte offset.
func (s *Scanner) Pos() int {
	return s.pos
}

// EOF reports whether the whole input has been consumed.
func (s *Scanner) EOF() bool {
	return s.pos >= len(s.src)
}

// Peek returns the current byte without consuming it, or 0 at end of input.
func (s *Scanner) Peek() byte {
	if s.pos >= len(s.src) {
		return 0
	}
	return s.src[s.pos]
}

// PeekAt returns the byte at offset n from the current position, or 0.
func (s *Scanner) PeekAt(n int) byte {
	if s.pos+n >= len(s.src) || s.pos+n < 0 {
		return 0
	}
	return s.src[s.pos+n]
}

// Advance consumes n bytes.
func (s *Scanner) Advance(n int) {
	s.pos += n
	if s.pos > len(s.src) {
		s.pos = len(s.src)
	}
}

// Rest returns the unconsumed input.
func (s *Scanner) Rest() string {
	return s.src[s.pos:]
}

// Match consumes tok if the input continues with it.
func (s *Scanner) Match(tok string) bool {
	if strings.HasPrefix(s.src[s.pos:], tok) {
		s.pos += len(tok)
		return true
	}
	return false
}

// SkipSpace consumes spaces, tabs and line breaks.
func (s *Scanner) SkipSpace() {
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

// ScanUntil consumes input up to (not including) the next occurrence of tok
// and returns it. found is false when tok never occurs; the rest of the input
// is consumed in that case.
func (s *Scanner) ScanUntil(tok string) (text string, found bool) {
	idx := strings.Index(s.src[s.pos:], tok)
	if idx < 0 {
		text = s.src[s.pos:]
		s.pos = len(s.src)
		return text, false
	}
	text = s.src[s.pos : s.pos+idx]
	s.pos += idx
	return text, true
}

// ScanTo consumes input up to the first byte contained in terms that is not
// escaped and not inside a quoted section. A section opened by ' or " closes
// only on the same character. The terminator itself is left unconsumed and
// returned; term is 0 at end of input. Escapes and quotes are kept verbatim in
// text.
func (s *Scanner) ScanTo(terms string) (text string, term byte) {
	start := s.pos
	var open byte
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch {
		case c == Escape:
			s.pos += 2
			continue
		case open != 0:
			if c == open {
				open = 0
			}
		case c == Quote || c == DoubleQuote:
			open = c
		case strings.IndexByte(terms, c) >= 0:
			return s.src[start:s.pos], c
		}
		s.pos++
	}
	s.pos = len(s.src)
	return s.src[start:], 0
}

// ScanText is ScanTo for free text: quotes have no meaning and only escapes
// protect a terminator.
func (s *Scanner) ScanText(terms string) (text string, term byte) {
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if c == Escape {
			s.pos += 2
			continue
		}
		if strings.IndexByte(terms, c) >= 0 {
			return s.src[start:s.pos], c
		}
		s.pos++
	}
	s.pos = len(s.src)
	return s.src[start:], 0
}

// ScanIdentifier consumes an identifier: a letter or underscore followed by
// letters, digits or underscores.
func (s *Scanner) ScanIdentifier() (string, bool) {
	start := s.pos
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		if isIdentStart(c) || (s.pos > start && isDigit(c)) {
			s.pos++
			continue
		}
		break
	}
	if s.pos == start {
		return "", false
	}
	return s.src[start:s.pos], true
}

// ScanLiteral consumes a literal delimited by quote and returns its content
// with escapes resolved. The scanner must be positioned on the opening quote.
func (s *Scanner) ScanLiteral(quote byte) (string, error) {
	if s.Peek() != quote {
		return "", fmt.Errorf("expected %q at offset %d", quote, s.pos)
	}
	start := s.pos
	s.pos++
	var b strings.Builder
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case Escape:
			if s.pos+1 >= len(s.src) {
				return "", fmt.Errorf("unterminated escape at offset %d", s.pos)
			}
			b.WriteByte(unescape(s.src[s.pos+1]))
			s.pos += 2
		case quote:
			s.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
			s.pos++
		}
	}
	return "", fmt.Errorf("unterminated literal starting at offset %d", start)
}

// LineCol maps a byte offset in src to a 1-based line and column.
func LineCol(src string, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}
	line = 1 + strings.Count(src[:offset], "\n")
	col = offset - strings.LastIndexByte(src[:offset], '\n')
	return line, col
}

// IsIdentifier reports whether s is a complete identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isIdentStart(s[i]) && !(i > 0 && isDigit(s[i])) {
			return false
		}
	}
	return true
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
