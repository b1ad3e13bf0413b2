// Package render rasterizes pages into RGBA images for before/after
// comparison. It is not a viewer: text runs are drawn as filled boxes and
// curves are flattened to their endpoints. What matters is that the
// rendering is deterministic and color-faithful, so an edit that should be
// invisible produces an identical image and a color change produces a
// proportional pixel difference.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"golang.org/x/image/vector"

	"github.com/jenniferbk/WCAGproject-sub000/contentstream"
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
)

// DefaultDPI is the comparison resolution. Higher resolutions only slow
// the diff down without changing its verdict.
const DefaultDPI = 72

type matrix [6]float64 // a b c d e f, row-major PDF convention

var identity = matrix{1, 0, 0, 1, 0, 0}

func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func translation(tx, ty float64) matrix { return matrix{1, 0, 0, 1, tx, ty} }

type gstate struct {
	ctm    matrix
	fill   [3]float64
	stroke [3]float64
}

type interp struct {
	dst    *image.RGBA
	ras    *vector.Rasterizer
	scale  float64
	height float64 // page height in device pixels, for the y flip

	gs    gstate
	stack []gstate

	// text state
	tm       matrix
	tlm      matrix
	fontSize float64
	leading  float64

	// current path, flattened
	paths   [][][2]float64
	current [][2]float64

	operands []contentstream.Token
}

// PageImage renders the page at pageNum to an RGBA image at the given DPI
// on a white background.
func PageImage(doc *pdf.Document, pageNum int, dpi float64) (*image.RGBA, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	box, err := mediaBox(doc, pageNum)
	if err != nil {
		return nil, err
	}
	scale := dpi / 72.0
	w := int((box[2] - box[0]) * scale)
	h := int((box[3] - box[1]) * scale)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("render: page %d has degenerate media box", pageNum)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	content, err := doc.Content(pageNum)
	if err != nil {
		return nil, err
	}
	it := &interp{
		dst:    dst,
		ras:    vector.NewRasterizer(w, h),
		scale:  scale,
		height: float64(h),
		gs:     gstate{ctm: translation(-box[0], -box[1])},
		tm:     identity,
		tlm:    identity,
	}
	it.run(contentstream.Tokenize(content))
	return dst, nil
}

func mediaBox(doc *pdf.Document, pageNum int) ([4]float64, error) {
	var box [4]float64
	arr, ok := pdf.AsArray(doc.Resolve(doc.PageAttr(pageNum, "MediaBox")))
	if !ok || arr.Len() != 4 {
		return box, fmt.Errorf("render: page %d has no media box", pageNum)
	}
	for i, it := range arr.Items {
		switch v := doc.Resolve(it).(type) {
		case pdf.Integer:
			box[i] = float64(v)
		case pdf.Real:
			box[i] = float64(v)
		default:
			return box, fmt.Errorf("render: page %d media box is malformed", pageNum)
		}
	}
	if box[2] < box[0] {
		box[0], box[2] = box[2], box[0]
	}
	if box[3] < box[1] {
		box[1], box[3] = box[3], box[1]
	}
	return box, nil
}

func (it *interp) run(tokens []contentstream.Token) {
	for _, tok := range tokens {
		switch tok.Kind {
		case contentstream.KindWhitespace, contentstream.KindComment:
			continue
		case contentstream.KindOperator:
			it.exec(string(tok.Raw))
			it.operands = it.operands[:0]
		default:
			it.operands = append(it.operands, tok)
		}
	}
}

func (it *interp) exec(op string) {
	switch op {
	case "q":
		it.stack = append(it.stack, it.gs)
	case "Q":
		if n := len(it.stack); n > 0 {
			it.gs = it.stack[n-1]
			it.stack = it.stack[:n-1]
		}
	case "cm":
		if m, ok := it.matrixOperands(); ok {
			it.gs.ctm = m.mul(it.gs.ctm)
		}
	case "rg":
		if v, ok := it.numOperands(3); ok {
			it.gs.fill = [3]float64{v[0], v[1], v[2]}
		}
	case "RG":
		if v, ok := it.numOperands(3); ok {
			it.gs.stroke = [3]float64{v[0], v[1], v[2]}
		}
	case "g":
		if v, ok := it.numOperands(1); ok {
			it.gs.fill = [3]float64{v[0], v[0], v[0]}
		}
	case "G":
		if v, ok := it.numOperands(1); ok {
			it.gs.stroke = [3]float64{v[0], v[0], v[0]}
		}
	case "k":
		if v, ok := it.numOperands(4); ok {
			it.gs.fill = cmyk(v)
		}
	case "K":
		if v, ok := it.numOperands(4); ok {
			it.gs.stroke = cmyk(v)
		}
	case "scn", "sc":
		if v, ok := it.numOperands(3); ok {
			it.gs.fill = [3]float64{v[0], v[1], v[2]}
		}
	case "SCN", "SC":
		if v, ok := it.numOperands(3); ok {
			it.gs.stroke = [3]float64{v[0], v[1], v[2]}
		}

	case "m":
		if v, ok := it.numOperands(2); ok {
			it.flushSubpath()
			it.current = append(it.current, [2]float64{v[0], v[1]})
		}
	case "l":
		if v, ok := it.numOperands(2); ok {
			it.current = append(it.current, [2]float64{v[0], v[1]})
		}
	case "c":
		if v, ok := it.numOperands(6); ok {
			it.current = append(it.current, [2]float64{v[4], v[5]})
		}
	case "v", "y":
		if v, ok := it.numOperands(4); ok {
			it.current = append(it.current, [2]float64{v[2], v[3]})
		}
	case "h":
		// closepath is implicit when filling
	case "re":
		if v, ok := it.numOperands(4); ok {
			it.flushSubpath()
			x, y, w, h := v[0], v[1], v[2], v[3]
			it.paths = append(it.paths, [][2]float64{
				{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h},
			})
		}
	case "f", "F", "f*", "b", "b*", "B", "B*":
		it.flushSubpath()
		for _, poly := range it.paths {
			it.fillPolygon(poly, it.gs.fill)
		}
		it.paths = it.paths[:0]
	case "S", "s", "n":
		// strokes are below diff resolution at 72 DPI; drop the path
		it.flushSubpath()
		it.paths = it.paths[:0]

	case "BT":
		it.tm, it.tlm = identity, identity
	case "ET":
	case "Tf":
		if n := len(it.operands); n >= 1 {
			if v, ok := numToken(it.operands[n-1]); ok {
				it.fontSize = v
			}
		}
	case "TL":
		if v, ok := it.numOperands(1); ok {
			it.leading = v[0]
		}
	case "Td":
		if v, ok := it.numOperands(2); ok {
			it.tlm = translation(v[0], v[1]).mul(it.tlm)
			it.tm = it.tlm
		}
	case "TD":
		if v, ok := it.numOperands(2); ok {
			it.leading = -v[1]
			it.tlm = translation(v[0], v[1]).mul(it.tlm)
			it.tm = it.tlm
		}
	case "Tm":
		if m, ok := it.matrixOperands(); ok {
			it.tm, it.tlm = m, m
		}
	case "T*":
		it.tlm = translation(0, -it.leading).mul(it.tlm)
		it.tm = it.tlm
	case "Tj", "'", "\"":
		if op != "Tj" {
			it.tlm = translation(0, -it.leading).mul(it.tlm)
			it.tm = it.tlm
		}
		if n := len(it.operands); n >= 1 {
			it.showText(contentstream.DecodeText(it.operands[n-1]))
		}
	case "TJ":
		if n := len(it.operands); n >= 1 && it.operands[n-1].Kind == contentstream.KindArray {
			it.showTJ(it.operands[n-1])
		}
	}
}

func cmyk(v []float64) [3]float64 {
	return [3]float64{
		(1 - v[0]) * (1 - v[3]),
		(1 - v[1]) * (1 - v[3]),
		(1 - v[2]) * (1 - v[3]),
	}
}

func (it *interp) flushSubpath() {
	if len(it.current) >= 3 {
		it.paths = append(it.paths, it.current)
	}
	it.current = nil
}

// showText draws the run as a filled box: full em height, a fixed half-em
// advance per character. Crude, but stable, which is all the diff needs.
func (it *interp) showText(text string) {
	if text == "" || it.fontSize <= 0 {
		return
	}
	w := 0.5 * it.fontSize * float64(len([]rune(text)))
	it.drawGlyphBox(w)
	it.tm = translation(w, 0).mul(it.tm)
}

func (it *interp) showTJ(arrayTok contentstream.Token) {
	raw := arrayTok.Raw
	if len(raw) < 2 {
		return
	}
	for _, el := range contentstream.Tokenize(raw[1 : len(raw)-1]) {
		switch el.Kind {
		case contentstream.KindLiteralString, contentstream.KindHexString:
			it.showText(contentstream.DecodeText(el))
		case contentstream.KindNumber:
			if v, ok := numToken(el); ok {
				it.tm = translation(-v/1000*it.fontSize, 0).mul(it.tm)
			}
		}
	}
}

func (it *interp) drawGlyphBox(w float64) {
	trm := it.tm.mul(it.gs.ctm)
	h := it.fontSize
	poly := [][2]float64{{0, 0}, {w, 0}, {w, h}, {0, h}}
	it.ras.Reset(it.dst.Bounds().Dx(), it.dst.Bounds().Dy())
	for i, p := range poly {
		x, y := trm.apply(p[0], p[1])
		dx, dy := it.device(x, y)
		if i == 0 {
			it.ras.MoveTo(dx, dy)
		} else {
			it.ras.LineTo(dx, dy)
		}
	}
	it.ras.ClosePath()
	it.ras.Draw(it.dst, it.dst.Bounds(), image.NewUniform(rgba(it.gs.fill)), image.Point{})
}

func (it *interp) fillPolygon(poly [][2]float64, col [3]float64) {
	if len(poly) < 3 {
		return
	}
	it.ras.Reset(it.dst.Bounds().Dx(), it.dst.Bounds().Dy())
	for i, p := range poly {
		x, y := it.gs.ctm.apply(p[0], p[1])
		dx, dy := it.device(x, y)
		if i == 0 {
			it.ras.MoveTo(dx, dy)
		} else {
			it.ras.LineTo(dx, dy)
		}
	}
	it.ras.ClosePath()
	it.ras.Draw(it.dst, it.dst.Bounds(), image.NewUniform(rgba(col)), image.Point{})
}

// device maps user space to device pixels, flipping the y axis.
func (it *interp) device(x, y float64) (float32, float32) {
	return float32(x * it.scale), float32(it.height - y*it.scale)
}

func rgba(c [3]float64) color.RGBA {
	return color.RGBA{
		R: clamp8(c[0]),
		G: clamp8(c[1]),
		B: clamp8(c[2]),
		A: 255,
	}
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func (it *interp) matrixOperands() (matrix, bool) {
	v, ok := it.numOperands(6)
	if !ok {
		return identity, false
	}
	return matrix{v[0], v[1], v[2], v[3], v[4], v[5]}, true
}

// numOperands returns the last n numeric operands, in operand order.
func (it *interp) numOperands(n int) ([]float64, bool) {
	vals := make([]float64, 0, n)
	for i := len(it.operands) - 1; i >= 0 && len(vals) < n; i-- {
		v, ok := numToken(it.operands[i])
		if !ok {
			return nil, false
		}
		vals = append(vals, v)
	}
	if len(vals) != n {
		return nil, false
	}
	for a, b := 0, len(vals)-1; a < b; a, b = a+1, b-1 {
		vals[a], vals[b] = vals[b], vals[a]
	}
	return vals, true
}

func numToken(t contentstream.Token) (float64, bool) {
	if t.Kind != contentstream.KindNumber {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(t.Raw), 64)
	return v, err == nil
}
