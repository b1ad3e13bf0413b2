// Package contentstream tokenizes and edits PDF page content streams at
// the byte level. Tokens are lossless: every byte of the input, including
// whitespace and comments, lands in exactly one token, so an unmodified
// token sequence reassembles to the original stream. That round-trip
// guarantee is what makes snapshot-and-revert editing safe.
package contentstream

import "bytes"

type TokenKind int

const (
	KindWhitespace TokenKind = iota
	KindComment
	KindLiteralString
	KindHexString
	KindDict
	KindArray
	KindName
	KindNumber
	KindOperator
	KindOther
)

func (k TokenKind) String() string {
	switch k {
	case KindWhitespace:
		return "whitespace"
	case KindComment:
		return "comment"
	case KindLiteralString:
		return "string"
	case KindHexString:
		return "hexstring"
	case KindDict:
		return "dict"
	case KindArray:
		return "array"
	case KindName:
		return "name"
	case KindNumber:
		return "number"
	case KindOperator:
		return "operator"
	default:
		return "other"
	}
}

// Token holds the raw bytes of one lexical element, unmodified.
type Token struct {
	Kind TokenKind
	Raw  []byte
}

func (t Token) Is(kind TokenKind, text string) bool {
	return t.Kind == kind && string(t.Raw) == text
}

func isWS(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0x00
}

func isDelim(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	default:
		return isWS(c)
	}
}

// Tokenize splits stream bytes into tokens. It never fails: malformed
// constructs degrade to Operator or Other tokens, and the raw bytes are
// always preserved.
func Tokenize(stream []byte) []Token {
	var tokens []Token
	i, n := 0, len(stream)
	for i < n {
		c := stream[i]
		switch {
		case isWS(c):
			j := i + 1
			for j < n && isWS(stream[j]) {
				j++
			}
			tokens = append(tokens, Token{KindWhitespace, stream[i:j]})
			i = j
		case c == '%':
			j := bytes.IndexByte(stream[i:], '\n')
			if j < 0 {
				j = n
			} else {
				j += i
			}
			tokens = append(tokens, Token{KindComment, stream[i:j]})
			i = j
		case c == '(':
			j := scanLiteral(stream, i)
			tokens = append(tokens, Token{KindLiteralString, stream[i:j]})
			i = j
		case c == '<' && i+1 < n && stream[i+1] == '<':
			j := scanDict(stream, i)
			tokens = append(tokens, Token{KindDict, stream[i:j]})
			i = j
		case c == '<':
			j := scanHex(stream, i)
			tokens = append(tokens, Token{KindHexString, stream[i:j]})
			i = j
		case c == '[':
			j := scanArray(stream, i)
			tokens = append(tokens, Token{KindArray, stream[i:j]})
			i = j
		case c == '/':
			j := i + 1
			for j < n && !isDelim(stream[j]) {
				j++
			}
			tokens = append(tokens, Token{KindName, stream[i:j]})
			i = j
		case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
			j, ok := scanNumber(stream, i)
			if ok {
				tokens = append(tokens, Token{KindNumber, stream[i:j]})
				i = j
				break
			}
			// Numeric-looking run with a second dot or stray letter:
			// keep the whole run as an operator so nothing is lost.
			j = i
			for j < n && !isDelim(stream[j]) {
				j++
			}
			tokens = append(tokens, Token{KindOperator, stream[i:j]})
			i = j
		default:
			j := i
			for j < n && !isDelim(stream[j]) {
				j++
			}
			if j > i {
				tokens = append(tokens, Token{KindOperator, stream[i:j]})
				i = j
			} else {
				tokens = append(tokens, Token{KindOther, stream[i : i+1]})
				i++
			}
		}
	}
	return tokens
}

// Reassemble concatenates token bytes. For an unmodified sequence the
// result equals the original input exactly.
func Reassemble(tokens []Token) []byte {
	size := 0
	for _, t := range tokens {
		size += len(t.Raw)
	}
	out := make([]byte, 0, size)
	for _, t := range tokens {
		out = append(out, t.Raw...)
	}
	return out
}

// scanLiteral returns the index just past a balanced literal string,
// honoring backslash escapes and unescaped nested parens.
func scanLiteral(stream []byte, start int) int {
	n := len(stream)
	depth := 1
	j := start + 1
	for j < n && depth > 0 {
		switch stream[j] {
		case '\\':
			j += 2
			continue
		case '(':
			depth++
		case ')':
			depth--
		}
		j++
	}
	if j > n {
		j = n
	}
	return j
}

func scanHex(stream []byte, start int) int {
	j := bytes.IndexByte(stream[start:], '>')
	if j < 0 {
		return len(stream)
	}
	return start + j + 1
}

func scanDict(stream []byte, start int) int {
	n := len(stream)
	depth := 1
	j := start + 2
	for j < n && depth > 0 {
		if stream[j] == '(' {
			j = scanLiteral(stream, j)
			continue
		}
		if j+1 < n && stream[j] == '<' && stream[j+1] == '<' {
			depth++
			j += 2
			continue
		}
		if j+1 < n && stream[j] == '>' && stream[j+1] == '>' {
			depth--
			j += 2
			continue
		}
		j++
	}
	if j > n {
		j = n
	}
	return j
}

// scanArray balances brackets while skipping over the contents of nested
// literal and hex strings, which may themselves contain brackets.
func scanArray(stream []byte, start int) int {
	n := len(stream)
	depth := 1
	j := start + 1
	for j < n && depth > 0 {
		switch stream[j] {
		case '[':
			depth++
			j++
		case ']':
			depth--
			j++
		case '(':
			j = scanLiteral(stream, j)
		case '<':
			if j+1 < n && stream[j+1] == '<' {
				j = scanDict(stream, j)
			} else {
				j = scanHex(stream, j)
			}
		default:
			j++
		}
	}
	if j > n {
		j = n
	}
	return j
}

// scanNumber accepts an optional sign and at most one decimal point. A
// second dot disqualifies the run (the caller reclassifies it).
func scanNumber(stream []byte, start int) (int, bool) {
	n := len(stream)
	j := start
	sawDot := false
	sawDigit := false
	if stream[j] == '+' || stream[j] == '-' {
		j++
	}
	for j < n && !isDelim(stream[j]) {
		c := stream[j]
		switch {
		case c == '.':
			if sawDot {
				return start, false
			}
			sawDot = true
		case c >= '0' && c <= '9':
			sawDigit = true
		default:
			return start, false
		}
		j++
	}
	return j, sawDigit
}
