package contentstream

import (
	"bytes"
	"unicode/utf16"
)

// DecodeText extracts readable text from a LiteralString or HexString
// token. Literal escapes follow PDF 7.3.4.2; hex strings decode as
// UTF-16BE when they carry a FEFF BOM and as Latin-1 otherwise. Tokens of
// any other kind decode to "".
func DecodeText(tok Token) string {
	switch tok.Kind {
	case KindLiteralString:
		return decodeLiteral(tok.Raw)
	case KindHexString:
		return decodeHex(tok.Raw)
	default:
		return ""
	}
}

func decodeLiteral(raw []byte) string {
	if len(raw) < 2 || raw[0] != '(' {
		return ""
	}
	inner := raw[1:]
	if inner[len(inner)-1] == ')' {
		inner = inner[:len(inner)-1]
	}
	var out bytes.Buffer
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			out.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) {
			break
		}
		switch esc := inner[i]; {
		case esc == 'n':
			out.WriteByte('\n')
		case esc == 'r':
			out.WriteByte('\r')
		case esc == 't':
			out.WriteByte('\t')
		case esc == 'b':
			out.WriteByte('\b')
		case esc == 'f':
			out.WriteByte('\f')
		case esc >= '0' && esc <= '7':
			val := int(esc - '0')
			for k := 0; k < 2 && i+1 < len(inner); k++ {
				d := inner[i+1]
				if d < '0' || d > '7' {
					break
				}
				val = val<<3 | int(d-'0')
				i++
			}
			out.WriteByte(byte(val))
		case esc == '\r':
			if i+1 < len(inner) && inner[i+1] == '\n' {
				i++
			}
		case esc == '\n':
			// line continuation
		default:
			out.WriteByte(esc)
		}
	}
	return latin1String(out.Bytes())
}

func decodeHex(raw []byte) string {
	if len(raw) < 2 || raw[0] != '<' {
		return ""
	}
	inner := raw[1:]
	if inner[len(inner)-1] == '>' {
		inner = inner[:len(inner)-1]
	}
	var nibbles []byte
	for _, c := range inner {
		if hexVal(c) >= 0 {
			nibbles = append(nibbles, c)
		}
	}
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, '0')
	}
	decoded := make([]byte, 0, len(nibbles)/2)
	for i := 0; i+1 < len(nibbles); i += 2 {
		decoded = append(decoded, byte(hexVal(nibbles[i]))<<4|byte(hexVal(nibbles[i+1])))
	}
	if len(decoded) >= 2 && decoded[0] == 0xFE && decoded[1] == 0xFF {
		decoded = decoded[2:]
		units := make([]uint16, 0, len(decoded)/2)
		for i := 0; i+1 < len(decoded); i += 2 {
			units = append(units, uint16(decoded[i])<<8|uint16(decoded[i+1]))
		}
		return string(utf16.Decode(units))
	}
	return latin1String(decoded)
}

func hexVal(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return -1
	}
}

func latin1String(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// DecodeTJArray concatenates the decoded string elements of a TJ operand
// array token, skipping the kerning numbers.
func DecodeTJArray(tok Token) string {
	if tok.Kind != KindArray {
		return ""
	}
	var parts []string
	raw := tok.Raw
	i, n := 0, len(raw)
	for i < n {
		switch raw[i] {
		case '(':
			j := scanLiteral(raw, i)
			parts = append(parts, decodeLiteral(raw[i:j]))
			i = j
		case '<':
			j := scanHex(raw, i)
			parts = append(parts, decodeHex(raw[i:j]))
			i = j
		default:
			i++
		}
	}
	var out bytes.Buffer
	for _, p := range parts {
		out.WriteString(p)
	}
	return out.String()
}
