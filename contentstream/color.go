package contentstream

import (
	"fmt"
	"math"
	"strconv"
)

// ColorTolerance is the per-channel absolute tolerance when matching
// operand values against a target color. Writers round 8-bit channel
// values differently (0.2 vs 0.2000 vs 0.19922), so exact comparison
// would miss real matches.
const ColorTolerance = 0.02

// RGB is a color in the 0-1 float range, as content streams spell it.
type RGB [3]float64

// colorOps are the operators whose three preceding numeric operands set an
// RGB color: nonstroking (rg, scn) and stroking (RG, SCN).
func isColorOp(raw []byte) bool {
	switch string(raw) {
	case "rg", "RG", "scn", "SCN":
		return true
	default:
		return false
	}
}

// ReplaceColor rewrites the operands of color operators matching orig with
// fixed, formatted to four decimal places. It edits tokens in place and
// reports whether any replacement happened. Operators with fewer than
// three numeric operands are skipped: scn/SCN take other operand shapes
// for non-RGB color spaces, and rewriting those would corrupt the page.
func ReplaceColor(tokens []Token, orig, fixed RGB) bool {
	replaced := false
	for i, tok := range tokens {
		if tok.Kind != KindOperator || !isColorOp(tok.Raw) {
			continue
		}
		idx, ok := precedingNumbers(tokens, i, 3)
		if !ok {
			continue
		}
		match := true
		for c := 0; c < 3; c++ {
			v, err := strconv.ParseFloat(string(tokens[idx[c]].Raw), 64)
			if err != nil || math.Abs(v-orig[c]) >= ColorTolerance {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		for c := 0; c < 3; c++ {
			tokens[idx[c]] = Token{KindNumber, []byte(fmt.Sprintf("%.4f", fixed[c]))}
		}
		replaced = true
	}
	return replaced
}

// precedingNumbers walks backward from the operator at i, over whitespace
// only, collecting exactly want Number tokens in operand order.
func precedingNumbers(tokens []Token, i, want int) ([]int, bool) {
	idx := make([]int, 0, want)
	for j := i - 1; j >= 0 && len(idx) < want; j-- {
		switch tokens[j].Kind {
		case KindWhitespace:
			continue
		case KindNumber:
			idx = append(idx, j)
		default:
			return nil, false
		}
	}
	if len(idx) != want {
		return nil, false
	}
	// Collected right-to-left; flip to operand order.
	for a, b := 0, len(idx)-1; a < b; a, b = a+1, b-1 {
		idx[a], idx[b] = idx[b], idx[a]
	}
	return idx, true
}
