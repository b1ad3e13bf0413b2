package pdf

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"
)

// AppendObject serializes obj in PDF syntax onto buf.
func AppendObject(buf *bytes.Buffer, obj Object) {
	switch v := obj.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Integer:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case Real:
		// 'f' format: PDF has no exponent syntax.
		buf.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 64))
	case Name:
		buf.WriteByte('/')
		appendNameBytes(buf, string(v))
	case String:
		if v.Hex {
			buf.WriteByte('<')
			for _, b := range v.Bytes {
				fmt.Fprintf(buf, "%02X", b)
			}
			buf.WriteByte('>')
		} else {
			buf.WriteByte('(')
			appendEscapedLiteral(buf, v.Bytes)
			buf.WriteByte(')')
		}
	case Ref:
		fmt.Fprintf(buf, "%d %d R", v.Num, v.Gen)
	case *Array:
		buf.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			AppendObject(buf, it)
		}
		buf.WriteByte(']')
	case *Dict:
		appendDict(buf, v)
	case *Stream:
		appendDict(buf, v.Dict)
		buf.WriteString("\nstream\n")
		buf.Write(v.Raw)
		buf.WriteString("\nendstream")
	default:
		buf.WriteString("null")
	}
}

func appendDict(buf *bytes.Buffer, d *Dict) {
	buf.WriteString("<<")
	keys := d.Keys()
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := d.Get(k)
		buf.WriteByte('/')
		appendNameBytes(buf, k)
		buf.WriteByte(' ')
		AppendObject(buf, v)
	}
	buf.WriteString(">>")
}

func appendNameBytes(buf *bytes.Buffer, name string) {
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c > '~' || c == '#' || isDelimiterByte(c) {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

func appendEscapedLiteral(buf *bytes.Buffer, s []byte) {
	for _, c := range s {
		switch c {
		case '(':
			buf.WriteString(`\(`)
		case ')':
			buf.WriteString(`\)`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			buf.WriteByte(c)
		}
	}
}

// TextString encodes text the way a viewer expects to read it back: a
// parenthesized literal when every rune fits in Latin-1, otherwise a
// UTF-16BE hex string with a FEFF BOM.
func TextString(text string) String {
	latin1 := true
	for _, r := range text {
		if r > 0xFF {
			latin1 = false
			break
		}
	}
	if latin1 {
		out := make([]byte, 0, len(text))
		for _, r := range text {
			out = append(out, byte(r))
		}
		return String{Bytes: out}
	}
	units := utf16.Encode([]rune(text))
	out := make([]byte, 0, 2+len(units)*2)
	out = append(out, 0xFE, 0xFF)
	for _, u := range units {
		out = append(out, byte(u>>8), byte(u))
	}
	return String{Bytes: out, Hex: true}
}

// DecodeTextString decodes PDF string bytes: UTF-16BE when the BOM is
// present, Latin-1 otherwise.
func DecodeTextString(s String) string {
	b := s.Bytes
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		b = b[2:]
		units := make([]uint16, 0, len(b)/2)
		for i := 0; i+1 < len(b); i += 2 {
			units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(units))
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// SerializeIndirect renders "num gen obj ... endobj" for one arena entry.
func SerializeIndirect(num, gen int, obj Object) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", num, gen)
	AppendObject(&buf, obj)
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}
