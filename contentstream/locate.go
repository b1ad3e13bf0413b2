package contentstream

import "strings"

// Span marks the token range of a text-showing operation: the string (or
// array) operand through the Tj/TJ operator, inclusive.
type Span struct {
	Start int
	End   int
}

// FindText returns the spans whose shown text contains target,
// case-insensitively. For Tj the operand is the immediately preceding
// non-whitespace string token; for TJ it is the preceding array operand.
func FindText(tokens []Token, target string) []Span {
	if target == "" {
		return nil
	}
	needle := strings.ToLower(target)
	var spans []Span
	for i, tok := range tokens {
		if tok.Kind != KindOperator {
			continue
		}
		switch string(tok.Raw) {
		case "Tj":
			j := prevNonWS(tokens, i)
			if j < 0 {
				continue
			}
			if tokens[j].Kind == KindLiteralString || tokens[j].Kind == KindHexString {
				if strings.Contains(strings.ToLower(DecodeText(tokens[j])), needle) {
					spans = append(spans, Span{Start: j, End: i})
				}
			}
		case "TJ":
			j := prevNonWS(tokens, i)
			if j < 0 {
				continue
			}
			if tokens[j].Kind == KindArray {
				if strings.Contains(strings.ToLower(DecodeTJArray(tokens[j])), needle) {
					spans = append(spans, Span{Start: j, End: i})
				}
			}
		}
	}
	return spans
}

func prevNonWS(tokens []Token, i int) int {
	for j := i - 1; j >= 0; j-- {
		if tokens[j].Kind == KindWhitespace {
			continue
		}
		return j
	}
	return -1
}
