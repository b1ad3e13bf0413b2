package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/jenniferbk/WCAGproject-sub000/recovery"
)

var (
	ErrNotPDF      = errors.New("pdf: missing %PDF header")
	ErrEncrypted   = errors.New("pdf: document is encrypted")
	ErrNoStartXref = errors.New("pdf: startxref not found")
)

type xrefEntry struct {
	offset    int64
	gen       int
	inStream  bool
	streamNum int
	streamIdx int
}

// parseBytes resolves the xref chain and loads every reachable object into
// the arena. Entries from newer sections shadow older ones.
func parseBytes(data []byte, rec recovery.Strategy) (map[int]Object, map[int]int, *Dict, int64, int, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, nil, nil, 0, 0, ErrNotPDF
	}
	start, err := findStartXref(data)
	if err != nil {
		return nil, nil, nil, 0, 0, err
	}

	entries := make(map[int]xrefEntry)
	trailer := NewDict()
	maxNum := 0

	seen := make(map[int64]bool)
	pending := []int64{start}
	for len(pending) > 0 {
		off := pending[0]
		pending = pending[1:]
		if off <= 0 || off >= int64(len(data)) || seen[off] {
			continue
		}
		seen[off] = true

		var sectionTrailer *Dict
		if bytes.HasPrefix(bytes.TrimLeft(data[off:], "\x00\t\n\f\r "), []byte("xref")) {
			sectionTrailer, err = parseClassicSection(data, off, entries)
		} else {
			sectionTrailer, err = parseXrefStreamSection(data, off, entries)
		}
		if err != nil {
			if rec == nil || rec.OnError(err, recovery.Location{ByteOffset: off, Component: "xref"}) == recovery.ActionFail {
				return nil, nil, nil, 0, 0, err
			}
			continue
		}
		// Newest section wins for trailer keys.
		for _, k := range sectionTrailer.Keys() {
			if _, ok := trailer.Get(k); !ok {
				v, _ := sectionTrailer.Get(k)
				trailer.Set(k, v)
			}
		}
		// Hybrid-reference files carry a parallel xref stream whose entries
		// take priority over the /Prev section.
		if xs, ok := sectionTrailer.Get("XRefStm"); ok {
			if n, ok := AsInt(xs); ok {
				pending = append(pending, int64(n))
			}
		}
		if prev, ok := sectionTrailer.Get("Prev"); ok {
			if n, ok := AsInt(prev); ok {
				pending = append(pending, int64(n))
			}
		}
	}

	if _, ok := trailer.Get("Encrypt"); ok {
		return nil, nil, nil, 0, 0, ErrEncrypted
	}

	objects := make(map[int]Object)
	gens := make(map[int]int)

	// Pass 1: objects stored at file offsets.
	for num, e := range entries {
		if e.inStream {
			continue
		}
		gotNum, gotGen, obj, err := parseIndirectAt(data, e.offset, entries)
		if err != nil {
			if rec != nil && rec.OnError(err, recovery.Location{ByteOffset: e.offset, ObjectNum: num, Component: "object"}) != recovery.ActionFail {
				continue
			}
			return nil, nil, nil, 0, 0, fmt.Errorf("pdf: object %d: %w", num, err)
		}
		if gotNum != num {
			// Offset points at a different object; trust the file body.
			num = gotNum
		}
		objects[num] = obj
		gens[num] = gotGen
		if num > maxNum {
			maxNum = num
		}
	}

	// Pass 2: compressed objects inside object streams.
	byContainer := make(map[int][]int)
	for num, e := range entries {
		if e.inStream {
			byContainer[e.streamNum] = append(byContainer[e.streamNum], num)
		}
	}
	for container, nums := range byContainer {
		loaded, err := parseObjectStream(objects, container)
		if err != nil {
			if rec != nil && rec.OnError(err, recovery.Location{ObjectNum: container, Component: "objstm"}) != recovery.ActionFail {
				continue
			}
			return nil, nil, nil, 0, 0, fmt.Errorf("pdf: object stream %d: %w", container, err)
		}
		for _, num := range nums {
			if obj, ok := loaded[num]; ok {
				objects[num] = obj
				gens[num] = 0
				if num > maxNum {
					maxNum = num
				}
			}
		}
	}

	if sz, ok := trailer.Get("Size"); ok {
		if n, ok := AsInt(sz); ok && int(n)-1 > maxNum {
			maxNum = int(n) - 1
		}
	}
	return objects, gens, trailer, start, maxNum, nil
}

func findStartXref(data []byte) (int64, error) {
	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return 0, ErrNoStartXref
	}
	l := &lexer{data: data, pos: idx + len("startxref")}
	obj, _, err := l.scanNumberAfterWS()
	if err != nil {
		return 0, fmt.Errorf("pdf: bad startxref value: %w", err)
	}
	n, ok := AsInt(obj)
	if !ok {
		return 0, ErrNoStartXref
	}
	return n, nil
}

func (l *lexer) scanNumberAfterWS() (Object, bool, error) {
	l.skipWS()
	return l.scanNumber()
}

// parseClassicSection reads an "xref ... trailer <<...>>" section. Existing
// entries are never overwritten: the chain is walked newest-first.
func parseClassicSection(data []byte, off int64, entries map[int]xrefEntry) (*Dict, error) {
	l := &lexer{data: data, pos: int(off)}
	if err := l.expectKeyword("xref"); err != nil {
		return nil, err
	}
	for {
		l.skipWS()
		if l.pos+7 <= len(l.data) && string(l.data[l.pos:l.pos+7]) == "trailer" {
			l.pos += 7
			obj, err := l.parseValue()
			if err != nil {
				return nil, fmt.Errorf("trailer: %w", err)
			}
			d, ok := obj.(*Dict)
			if !ok {
				return nil, errors.New("trailer is not a dictionary")
			}
			return d, nil
		}
		startObj, ok1, err := l.scanNumber()
		if err != nil {
			return nil, fmt.Errorf("subsection header: %w", err)
		}
		l.skipWS()
		count, ok2, err := l.scanNumber()
		if err != nil || !ok1 || !ok2 {
			return nil, errors.New("invalid xref subsection header")
		}
		first := int(startObj.(Integer))
		n := int(count.(Integer))
		for i := 0; i < n; i++ {
			l.skipWS()
			if l.pos+18 > len(l.data) {
				return nil, errors.New("truncated xref entry")
			}
			entry := string(l.data[l.pos : l.pos+18])
			l.pos += 18
			var offVal int64
			var genVal int
			var typ byte
			if _, err := fmt.Sscanf(entry, "%10d %5d %c", &offVal, &genVal, &typ); err != nil {
				return nil, fmt.Errorf("invalid xref entry %q", entry)
			}
			num := first + i
			if typ != 'n' {
				continue
			}
			if _, exists := entries[num]; !exists {
				entries[num] = xrefEntry{offset: offVal, gen: genVal}
			}
		}
	}
}

// parseXrefStreamSection reads a /Type /XRef stream section.
func parseXrefStreamSection(data []byte, off int64, entries map[int]xrefEntry) (*Dict, error) {
	_, _, obj, err := parseIndirectAt(data, off, nil)
	if err != nil {
		return nil, err
	}
	st, ok := obj.(*Stream)
	if !ok {
		return nil, errors.New("xref offset does not point at a stream")
	}
	ident := func(o Object) Object { return o }
	decoded, err := decodeStreamData(st, ident)
	if err != nil {
		return nil, err
	}
	wObj, ok := st.Dict.Get("W")
	if !ok {
		return nil, errors.New("xref stream missing /W")
	}
	wArr, ok := AsArray(wObj)
	if !ok || wArr.Len() < 3 {
		return nil, errors.New("xref stream /W malformed")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		v, _ := wArr.Get(i)
		n, _ := AsInt(v)
		w[i] = int(n)
	}
	size := dictInt(st.Dict, "Size", 0, ident)
	var index []int
	if idxObj, ok := st.Dict.Get("Index"); ok {
		if arr, ok := AsArray(idxObj); ok {
			for _, it := range arr.Items {
				if n, ok := AsInt(it); ok {
					index = append(index, int(n))
				}
			}
		}
	}
	if len(index) == 0 {
		index = []int{0, size}
	}
	rowLen := w[0] + w[1] + w[2]
	pos := 0
	readField := func(width int) int64 {
		var v int64
		for i := 0; i < width; i++ {
			v = v<<8 | int64(decoded[pos])
			pos++
		}
		return v
	}
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowLen > len(decoded) {
				return st.Dict, nil // truncated table; keep what we have
			}
			typ := int64(1)
			if w[0] > 0 {
				typ = readField(w[0])
			}
			f2 := readField(w[1])
			f3 := readField(w[2])
			num := first + j
			if _, exists := entries[num]; exists {
				continue
			}
			switch typ {
			case 1:
				entries[num] = xrefEntry{offset: f2, gen: int(f3)}
			case 2:
				entries[num] = xrefEntry{inStream: true, streamNum: int(f2), streamIdx: int(f3)}
			}
		}
	}
	return st.Dict, nil
}

// parseIndirectAt parses "num gen obj ... endobj" at the given offset.
// Stream payload extraction prefers a literal /Length and falls back to
// scanning for endstream when the length is indirect or wrong.
func parseIndirectAt(data []byte, off int64, entries map[int]xrefEntry) (int, int, Object, error) {
	if off < 0 || off >= int64(len(data)) {
		return 0, 0, nil, fmt.Errorf("offset %d out of range", off)
	}
	l := &lexer{data: data, pos: int(off)}
	l.skipWS()
	numObj, ok1, err := l.scanNumber()
	if err != nil {
		return 0, 0, nil, fmt.Errorf("object header: %w", err)
	}
	l.skipWS()
	genObj, ok2, err := l.scanNumber()
	if err != nil || !ok1 || !ok2 {
		return 0, 0, nil, errors.New("malformed object header")
	}
	if err := l.expectKeyword("obj"); err != nil {
		return 0, 0, nil, err
	}
	num := int(numObj.(Integer))
	gen := int(genObj.(Integer))
	obj, err := l.parseValue()
	if err != nil {
		return 0, 0, nil, err
	}
	d, isDict := obj.(*Dict)
	if !isDict {
		return num, gen, obj, nil
	}
	save := l.pos
	l.skipWS()
	if l.pos+6 <= len(l.data) && string(l.data[l.pos:l.pos+6]) == "stream" {
		l.pos += 6
		if !l.eof() && l.data[l.pos] == '\r' {
			l.pos++
		}
		if !l.eof() && l.data[l.pos] == '\n' {
			l.pos++
		}
		dataStart := l.pos
		length := -1
		if lv, ok := d.Get("Length"); ok {
			switch v := lv.(type) {
			case Integer:
				length = int(v)
			case Ref:
				if entries != nil {
					if e, ok := entries[v.Num]; ok && !e.inStream {
						if _, _, lo, err := parseIndirectAt(data, e.offset, nil); err == nil {
							if n, ok := AsInt(lo); ok {
								length = int(n)
							}
						}
					}
				}
			}
		}
		var payload []byte
		if length >= 0 && dataStart+length <= len(data) &&
			bytes.Contains(data[dataStart+length:min(len(data), dataStart+length+32)], []byte("endstream")) {
			payload = append([]byte(nil), data[dataStart:dataStart+length]...)
		} else {
			end := bytes.Index(data[dataStart:], []byte("endstream"))
			if end < 0 {
				return 0, 0, nil, errors.New("endstream not found")
			}
			stop := dataStart + end
			for stop > dataStart && (data[stop-1] == '\n' || data[stop-1] == '\r') {
				stop--
			}
			payload = append([]byte(nil), data[dataStart:stop]...)
		}
		return num, gen, &Stream{Dict: d, Raw: payload}, nil
	}
	l.pos = save
	return num, gen, obj, nil
}

// parseObjectStream expands a /Type /ObjStm container already in the arena.
func parseObjectStream(objects map[int]Object, containerNum int) (map[int]Object, error) {
	container, ok := objects[containerNum]
	if !ok {
		return nil, errors.New("container object missing")
	}
	st, ok := container.(*Stream)
	if !ok {
		return nil, errors.New("container is not a stream")
	}
	ident := func(o Object) Object { return o }
	data, err := decodeStreamData(st, ident)
	if err != nil {
		return nil, err
	}
	n := dictInt(st.Dict, "N", 0, ident)
	first := dictInt(st.Dict, "First", 0, ident)
	if first > len(data) {
		return nil, errors.New("First exceeds stream length")
	}
	head := &lexer{data: data[:first]}
	var pairs []int
	for len(pairs) < n*2 {
		obj, isInt, err := head.scanNumberAfterWS()
		if err != nil {
			return nil, fmt.Errorf("object stream header: %w", err)
		}
		if !isInt {
			return nil, errors.New("object stream header: non-integer")
		}
		pairs = append(pairs, int(obj.(Integer)))
	}
	out := make(map[int]Object, n)
	for i := 0; i < n; i++ {
		num, off := pairs[2*i], pairs[2*i+1]
		if first+off > len(data) {
			return nil, errors.New("object offset exceeds stream length")
		}
		l := &lexer{data: data, pos: first + off}
		obj, err := l.parseValue()
		if err != nil {
			return nil, fmt.Errorf("compressed object %d: %w", num, err)
		}
		out[num] = obj
	}
	return out, nil
}
