package pdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// ErrUnsupportedFilter is returned for stream filters the engine does not
// decode. Tagging only ever needs to read content streams and xref streams,
// which are Flate (or raw) in practice.
var ErrUnsupportedFilter = fmt.Errorf("pdf: unsupported stream filter")

func decodeFlate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pdf: flate: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("pdf: flate: %w", err)
	}
	// Truncated tails happen in the wild; keep what decoded.
	return out, nil
}

func encodeFlate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

// applyPNGPredictor undoes PNG row predictors (10-15) used by xref streams.
func applyPNGPredictor(data []byte, columns, colors, bpc int) ([]byte, error) {
	if columns <= 0 {
		return nil, fmt.Errorf("pdf: predictor: bad columns %d", columns)
	}
	bpp := (colors*bpc + 7) / 8
	if bpp < 1 {
		bpp = 1
	}
	rowLen := (columns*colors*bpc + 7) / 8
	stride := rowLen + 1
	if len(data)%stride != 0 {
		return nil, fmt.Errorf("pdf: predictor: data length %d not a multiple of row size %d", len(data), stride)
	}
	rows := len(data) / stride
	out := make([]byte, 0, rows*rowLen)
	prev := make([]byte, rowLen)
	cur := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		ft := data[r*stride]
		copy(cur, data[r*stride+1:(r+1)*stride])
		switch ft {
		case 0: // None
		case 1: // Sub
			for i := bpp; i < rowLen; i++ {
				cur[i] += cur[i-bpp]
			}
		case 2: // Up
			for i := 0; i < rowLen; i++ {
				cur[i] += prev[i]
			}
		case 3: // Average
			for i := 0; i < rowLen; i++ {
				left := 0
				if i >= bpp {
					left = int(cur[i-bpp])
				}
				cur[i] += byte((left + int(prev[i])) / 2)
			}
		case 4: // Paeth
			for i := 0; i < rowLen; i++ {
				var a, c int
				if i >= bpp {
					a = int(cur[i-bpp])
					c = int(prev[i-bpp])
				}
				b := int(prev[i])
				p := a + b - c
				pa, pb, pc := abs(p-a), abs(p-b), abs(p-c)
				switch {
				case pa <= pb && pa <= pc:
					cur[i] += byte(a)
				case pb <= pc:
					cur[i] += byte(b)
				default:
					cur[i] += byte(c)
				}
			}
		default:
			return nil, fmt.Errorf("pdf: predictor: unknown row filter %d", ft)
		}
		out = append(out, cur...)
		prev, cur = cur, prev
	}
	return out, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// decodeStreamData applies the stream's /Filter chain to its raw payload.
// resolve dereferences indirect values (DecodeParms entries can be refs).
func decodeStreamData(s *Stream, resolve func(Object) Object) ([]byte, error) {
	filterObj, ok := s.Dict.Get("Filter")
	if !ok {
		return s.Raw, nil
	}
	var names []string
	switch v := resolve(filterObj).(type) {
	case Name:
		names = []string{string(v)}
	case *Array:
		for _, it := range v.Items {
			if n, ok := AsName(resolve(it)); ok {
				names = append(names, n)
			}
		}
	}
	var parms []*Dict
	if dp, ok := s.Dict.Get("DecodeParms"); ok {
		switch v := resolve(dp).(type) {
		case *Dict:
			parms = append(parms, v)
		case *Array:
			for _, it := range v.Items {
				d, _ := AsDict(resolve(it))
				parms = append(parms, d) // nil placeholders keep positions aligned
			}
		}
	}
	data := s.Raw
	for i, name := range names {
		switch name {
		case "FlateDecode", "Fl":
			decoded, err := decodeFlate(data)
			if err != nil {
				return nil, err
			}
			data = decoded
			if i < len(parms) && parms[i] != nil {
				pred := dictInt(parms[i], "Predictor", 1, resolve)
				if pred >= 10 {
					columns := dictInt(parms[i], "Columns", 1, resolve)
					colors := dictInt(parms[i], "Colors", 1, resolve)
					bpc := dictInt(parms[i], "BitsPerComponent", 8, resolve)
					data, err = applyPNGPredictor(data, columns, colors, bpc)
					if err != nil {
						return nil, err
					}
				}
			}
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFilter, name)
		}
	}
	return data, nil
}

func dictInt(d *Dict, key string, def int, resolve func(Object) Object) int {
	if v, ok := d.Get(key); ok {
		if n, ok := AsInt(resolve(v)); ok {
			return int(n)
		}
	}
	return def
}
