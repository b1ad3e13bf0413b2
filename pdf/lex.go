package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// lexer walks raw file bytes and decodes object-level PDF syntax. Content
// streams have their own lossless tokenizer in package contentstream; this
// one is allowed to normalize because parsed objects are re-serialized from
// the value model, never from their original spelling.
type lexer struct {
	data []byte
	pos  int
}

func isWhitespaceByte(c byte) bool {
	return c == 0x00 || c == 0x09 || c == 0x0A || c == 0x0C || c == 0x0D || c == 0x20
}

func isDelimiterByte(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	default:
		return isWhitespaceByte(c)
	}
}

func (l *lexer) eof() bool { return l.pos >= len(l.data) }

func (l *lexer) peek() byte {
	if l.eof() {
		return 0
	}
	return l.data[l.pos]
}

func (l *lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.data) {
		return 0
	}
	return l.data[l.pos+n]
}

func (l *lexer) skipWS() {
	for !l.eof() {
		c := l.data[l.pos]
		if isWhitespaceByte(c) {
			l.pos++
			continue
		}
		if c == '%' {
			for !l.eof() && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// parseValue decodes the next object. Indirect references are recognized by
// two-integer-plus-R lookahead, the same trick the file format forces on
// every reader.
func (l *lexer) parseValue() (Object, error) {
	l.skipWS()
	if l.eof() {
		return nil, errors.New("unexpected end of data")
	}
	c := l.peek()
	switch {
	case c == '<' && l.peekAt(1) == '<':
		return l.parseDict()
	case c == '<':
		return l.parseHexString()
	case c == '(':
		return l.parseLiteralString()
	case c == '[':
		return l.parseArray()
	case c == '/':
		return l.parseName()
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		return l.parseNumberOrRef()
	default:
		return l.parseKeyword()
	}
}

func (l *lexer) parseDict() (Object, error) {
	l.pos += 2 // <<
	d := NewDict()
	for {
		l.skipWS()
		if l.eof() {
			return nil, errors.New("unterminated dictionary")
		}
		if l.peek() == '>' && l.peekAt(1) == '>' {
			l.pos += 2
			return d, nil
		}
		if l.peek() != '/' {
			return nil, fmt.Errorf("dictionary key must be a name at offset %d", l.pos)
		}
		keyObj, err := l.parseName()
		if err != nil {
			return nil, err
		}
		val, err := l.parseValue()
		if err != nil {
			return nil, err
		}
		d.Set(string(keyObj.(Name)), val)
	}
}

func (l *lexer) parseArray() (Object, error) {
	l.pos++ // [
	a := NewArray()
	for {
		l.skipWS()
		if l.eof() {
			return nil, errors.New("unterminated array")
		}
		if l.peek() == ']' {
			l.pos++
			return a, nil
		}
		val, err := l.parseValue()
		if err != nil {
			return nil, err
		}
		a.Append(val)
	}
}

func (l *lexer) parseName() (Object, error) {
	l.pos++ // '/'
	var out bytes.Buffer
	for !l.eof() {
		c := l.peek()
		if isDelimiterByte(c) {
			break
		}
		if c == '#' && l.pos+2 < len(l.data) {
			hi := fromHexDigit(l.data[l.pos+1])
			lo := fromHexDigit(l.data[l.pos+2])
			out.WriteByte(hi<<4 | lo)
			l.pos += 3
			continue
		}
		out.WriteByte(c)
		l.pos++
	}
	return Name(out.String()), nil
}

func fromHexDigit(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}

func (l *lexer) parseLiteralString() (Object, error) {
	l.pos++ // '('
	var out bytes.Buffer
	depth := 1
	for !l.eof() {
		c := l.data[l.pos]
		if c == '\\' {
			l.pos++
			if l.eof() {
				break
			}
			esc := l.data[l.pos]
			switch {
			case esc == 'n':
				out.WriteByte('\n')
				l.pos++
			case esc == 'r':
				out.WriteByte('\r')
				l.pos++
			case esc == 't':
				out.WriteByte('\t')
				l.pos++
			case esc == 'b':
				out.WriteByte('\b')
				l.pos++
			case esc == 'f':
				out.WriteByte('\f')
				l.pos++
			case esc == '\r':
				// Line continuation; swallow optional LF.
				l.pos++
				if !l.eof() && l.data[l.pos] == '\n' {
					l.pos++
				}
			case esc == '\n':
				l.pos++
			case esc >= '0' && esc <= '7':
				val := 0
				for k := 0; k < 3 && !l.eof(); k++ {
					d := l.data[l.pos]
					if d < '0' || d > '7' {
						break
					}
					val = val<<3 | int(d-'0')
					l.pos++
				}
				out.WriteByte(byte(val))
			default:
				out.WriteByte(esc)
				l.pos++
			}
			continue
		}
		if c == '(' {
			depth++
		}
		if c == ')' {
			depth--
			if depth == 0 {
				l.pos++
				return String{Bytes: out.Bytes()}, nil
			}
		}
		out.WriteByte(c)
		l.pos++
	}
	return nil, errors.New("unterminated literal string")
}

func (l *lexer) parseHexString() (Object, error) {
	l.pos++ // '<'
	var nibbles []byte
	for !l.eof() {
		c := l.data[l.pos]
		if c == '>' {
			l.pos++
			if len(nibbles)%2 == 1 {
				nibbles = append(nibbles, '0')
			}
			out := make([]byte, 0, len(nibbles)/2)
			for i := 0; i+1 < len(nibbles); i += 2 {
				out = append(out, fromHexDigit(nibbles[i])<<4|fromHexDigit(nibbles[i+1]))
			}
			return String{Bytes: out, Hex: true}, nil
		}
		if !isWhitespaceByte(c) {
			nibbles = append(nibbles, c)
		}
		l.pos++
	}
	return nil, errors.New("unterminated hex string")
}

func (l *lexer) parseNumberOrRef() (Object, error) {
	first, isInt, err := l.scanNumber()
	if err != nil {
		return nil, err
	}
	if isInt {
		// Lookahead for "gen R".
		after := l.pos
		l.skipWS()
		second, secondInt, err2 := l.scanNumber()
		if err2 == nil && secondInt {
			l.skipWS()
			if !l.eof() && l.peek() == 'R' && (l.pos+1 >= len(l.data) || isDelimiterByte(l.peekAt(1))) {
				l.pos++
				return Ref{Num: int(first.(Integer)), Gen: int(second.(Integer))}, nil
			}
		}
		l.pos = after
	}
	return first, nil
}

func (l *lexer) scanNumber() (Object, bool, error) {
	start := l.pos
	seenDigit := false
	for !l.eof() {
		c := l.peek()
		if c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9') {
			if c >= '0' && c <= '9' {
				seenDigit = true
			}
			l.pos++
			continue
		}
		break
	}
	if !seenDigit {
		l.pos = start
		return nil, false, fmt.Errorf("invalid number at offset %d", start)
	}
	text := string(l.data[start:l.pos])
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Integer(i), true, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, false, fmt.Errorf("invalid number %q at offset %d", text, start)
	}
	return Real(f), false, nil
}

func (l *lexer) parseKeyword() (Object, error) {
	start := l.pos
	for !l.eof() && !isDelimiterByte(l.peek()) {
		l.pos++
	}
	kw := string(l.data[start:l.pos])
	switch kw {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "null":
		return Null{}, nil
	case "":
		return nil, fmt.Errorf("unexpected byte %q at offset %d", l.peek(), l.pos)
	default:
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", kw, start)
	}
}

// expectKeyword consumes the given bare keyword, or fails.
func (l *lexer) expectKeyword(kw string) error {
	l.skipWS()
	if l.pos+len(kw) > len(l.data) || string(l.data[l.pos:l.pos+len(kw)]) != kw {
		return fmt.Errorf("expected %q at offset %d", kw, l.pos)
	}
	l.pos += len(kw)
	return nil
}
