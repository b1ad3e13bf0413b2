package contentstream

import "fmt"

// WrapMarkedContent returns a new token sequence with the span enclosed in
// a marked-content region: "/<tag> <</MCID n>> BDC" before and "EMC" after.
// The input slice is not modified.
func WrapMarkedContent(tokens []Token, span Span, tag string, mcid int) []Token {
	bdc := []Token{
		{KindName, []byte("/" + tag)},
		{KindWhitespace, []byte(" ")},
		{KindDict, []byte(fmt.Sprintf("<</MCID %d>>", mcid))},
		{KindWhitespace, []byte(" ")},
		{KindOperator, []byte("BDC")},
		{KindWhitespace, []byte("\n")},
	}
	emc := []Token{
		{KindWhitespace, []byte("\n")},
		{KindOperator, []byte("EMC")},
		{KindWhitespace, []byte("\n")},
	}
	out := make([]Token, 0, len(tokens)+len(bdc)+len(emc))
	out = append(out, tokens[:span.Start]...)
	out = append(out, bdc...)
	out = append(out, tokens[span.Start:span.End+1]...)
	out = append(out, emc...)
	out = append(out, tokens[span.End+1:]...)
	return out
}
