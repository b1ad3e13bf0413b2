package pdf

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/jenniferbk/WCAGproject-sub000/observability"
	"github.com/jenniferbk/WCAGproject-sub000/recovery"
)

var (
	ErrClosed      = errors.New("pdf: document is closed")
	ErrNotFound    = errors.New("pdf: object not found")
	ErrNoStream    = errors.New("pdf: object is not a stream")
	ErrNoCatalog   = errors.New("pdf: catalog not found")
	ErrPageRange   = errors.New("pdf: page index out of range")
	errResolveLoop = errors.New("pdf: reference chain too deep")
)

const maxResolveDepth = 32

// Document is one open PDF: the bytes as read from disk plus a mutable
// object arena. One Document is owned by exactly one write session; there
// is no internal locking.
type Document struct {
	path     string
	data     []byte
	objects  map[int]Object
	gens     map[int]int
	dirty    map[int]bool
	maxNum   int
	trailer  *Dict
	prevXref int64
	pages    []int
	catalog  int
	log      observability.Logger
	rec      recovery.Strategy
	closed   bool
}

type Option func(*Document)

func WithLogger(l observability.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.log = l
		}
	}
}

func WithRecovery(s recovery.Strategy) Option {
	return func(d *Document) { d.rec = s }
}

// Open reads and parses the file at path. The file itself is not kept open;
// SaveIncremental rewrites it in one shot.
func Open(path string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	d, err := ReadBytes(data, opts...)
	if err != nil {
		return nil, err
	}
	d.path = path
	return d, nil
}

// ReadBytes parses an in-memory PDF.
func ReadBytes(data []byte, opts ...Option) (*Document, error) {
	d := &Document{
		data:  data,
		dirty: make(map[int]bool),
		log:   observability.NopLogger{},
	}
	for _, o := range opts {
		o(d)
	}
	if d.rec == nil {
		d.rec = recovery.NewLenientStrategy()
	}
	objects, gens, trailer, start, maxNum, err := parseBytes(data, d.rec)
	if err != nil {
		return nil, err
	}
	d.objects = objects
	d.gens = gens
	d.trailer = trailer
	d.prevXref = start
	d.maxNum = maxNum
	if err := d.locateCatalog(); err != nil {
		return nil, err
	}
	d.collectPages()
	d.log.Debug("pdf parsed",
		observability.Int("objects", len(objects)),
		observability.Int("pages", len(d.pages)))
	return d, nil
}

func (d *Document) locateCatalog() error {
	rootObj, ok := d.trailer.Get("Root")
	if !ok {
		return ErrNoCatalog
	}
	ref, ok := AsRef(rootObj)
	if !ok {
		return ErrNoCatalog
	}
	if _, ok := AsDict(d.object(ref.Num)); !ok {
		return ErrNoCatalog
	}
	d.catalog = ref.Num
	return nil
}

func (d *Document) collectPages() {
	d.pages = d.pages[:0]
	rootObj := d.GetKey(d.catalog, "Pages")
	ref, ok := AsRef(rootObj)
	if !ok {
		return
	}
	visited := make(map[int]bool)
	var walk func(num, depth int)
	walk = func(num, depth int) {
		if depth > 64 || visited[num] {
			return
		}
		visited[num] = true
		dict, ok := AsDict(d.object(num))
		if !ok {
			return
		}
		typ, _ := AsName(d.Resolve(getOr(dict, "Type", Null{})))
		if typ == "Page" {
			d.pages = append(d.pages, num)
			return
		}
		kids, ok := AsArray(d.Resolve(getOr(dict, "Kids", Null{})))
		if !ok {
			return
		}
		for _, kid := range kids.Items {
			if r, ok := AsRef(kid); ok {
				walk(r.Num, depth+1)
			}
		}
	}
	walk(ref.Num, 0)
}

func getOr(d *Dict, key string, def Object) Object {
	if v, ok := d.Get(key); ok {
		return v
	}
	return def
}

// Path returns the file path this document was opened from.
func (d *Document) Path() string { return d.path }

func (d *Document) object(num int) Object {
	obj, ok := d.objects[num]
	if !ok {
		return Null{}
	}
	return obj
}

// Object returns the arena entry for the given object number.
func (d *Document) Object(num int) (Object, bool) {
	obj, ok := d.objects[num]
	return obj, ok
}

// Resolve follows reference chains to a direct object, bounded to avoid
// cycles in hostile files.
func (d *Document) Resolve(obj Object) Object {
	for depth := 0; depth < maxResolveDepth; depth++ {
		ref, ok := AsRef(obj)
		if !ok {
			return obj
		}
		obj = d.object(ref.Num)
	}
	return Null{}
}

// GetKey reads a key from the dictionary (or stream dictionary) stored at
// object num. Missing object, non-dict, or missing key all yield Null.
func (d *Document) GetKey(num int, key string) Object {
	dict, ok := AsDict(d.object(num))
	if !ok {
		return Null{}
	}
	v, ok := dict.Get(key)
	if !ok {
		return Null{}
	}
	return v
}

// SetKey writes a key into the dictionary stored at object num and marks
// the object dirty for the next incremental save.
func (d *Document) SetKey(num int, key string, value Object) error {
	if d.closed {
		return ErrClosed
	}
	dict, ok := AsDict(d.object(num))
	if !ok {
		return fmt.Errorf("%w: object %d is not a dictionary", ErrNotFound, num)
	}
	if _, isNull := value.(Null); isNull {
		dict.Delete(key)
	} else {
		dict.Set(key, value)
	}
	d.dirty[num] = true
	return nil
}

// NewObject allocates a fresh object number for obj.
func (d *Document) NewObject(obj Object) int {
	d.maxNum++
	num := d.maxNum
	d.objects[num] = obj
	d.gens[num] = 0
	d.dirty[num] = true
	return num
}

// UpdateObject replaces the arena entry at num.
func (d *Document) UpdateObject(num int, obj Object) {
	d.objects[num] = obj
	d.dirty[num] = true
	if num > d.maxNum {
		d.maxNum = num
	}
}

// Catalog returns the catalog object number.
func (d *Document) Catalog() int { return d.catalog }

// Trailer exposes the merged trailer dictionary (newest keys win).
func (d *Document) Trailer() *Dict { return d.trailer }

func (d *Document) PageCount() int { return len(d.pages) }

// PageRef returns the object number of the i-th page (0-based).
func (d *Document) PageRef(i int) (int, error) {
	if i < 0 || i >= len(d.pages) {
		return 0, fmt.Errorf("%w: %d of %d", ErrPageRange, i, len(d.pages))
	}
	return d.pages[i], nil
}

// PageIndex returns the 0-based index of the page with the given object
// number, or -1.
func (d *Document) PageIndex(pageNum int) int {
	for i, p := range d.pages {
		if p == pageNum {
			return i
		}
	}
	return -1
}

// PageAttr reads a page attribute, walking /Parent for inheritable keys
// like MediaBox and Resources.
func (d *Document) PageAttr(pageNum int, key string) Object {
	num := pageNum
	for depth := 0; depth < 64; depth++ {
		v := d.GetKey(num, key)
		if _, isNull := v.(Null); !isNull {
			return v
		}
		parent, ok := AsRef(d.GetKey(num, "Parent"))
		if !ok {
			return Null{}
		}
		num = parent.Num
	}
	return Null{}
}

// DecodedStream returns the decoded payload of the stream at num.
func (d *Document) DecodedStream(num int) ([]byte, error) {
	st, ok := d.object(num).(*Stream)
	if !ok {
		return nil, fmt.Errorf("%w: object %d", ErrNoStream, num)
	}
	return decodeStreamData(st, d.Resolve)
}

// UpdateStream replaces the payload of the stream at num with data,
// Flate-compressed, updating /Length and /Filter. A non-stream target is
// promoted to a stream with a fresh dictionary.
func (d *Document) UpdateStream(num int, data []byte) error {
	if d.closed {
		return ErrClosed
	}
	st, ok := d.object(num).(*Stream)
	if !ok {
		st = &Stream{Dict: NewDict()}
	}
	compressed := encodeFlate(data)
	st.Dict.Set("Length", Integer(len(compressed)))
	st.Dict.Set("Filter", Name("FlateDecode"))
	st.Dict.Delete("DecodeParms")
	st.Raw = compressed
	d.objects[num] = st
	d.dirty[num] = true
	return nil
}

// Content returns the page's full content stream bytes, concatenating
// /Contents arrays the way a viewer would.
func (d *Document) Content(pageNum int) ([]byte, error) {
	contents := d.PageAttr(pageNum, "Contents")
	switch v := contents.(type) {
	case Ref:
		return d.DecodedStream(v.Num)
	case *Array:
		var out []byte
		for _, it := range v.Items {
			ref, ok := AsRef(it)
			if !ok {
				continue
			}
			part, err := d.DecodedStream(ref.Num)
			if err != nil {
				return nil, err
			}
			if len(out) > 0 {
				out = append(out, '\n')
			}
			out = append(out, part...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("pdf: page %d has no contents", pageNum)
	}
}

// SetContent replaces the page's content with data. A single /Contents
// reference is updated in place; an array is collapsed to one new stream
// so later edits have a single target.
func (d *Document) SetContent(pageNum int, data []byte) error {
	contents := d.PageAttr(pageNum, "Contents")
	switch v := contents.(type) {
	case Ref:
		return d.UpdateStream(v.Num, data)
	case *Array:
		if v.Len() == 1 {
			if ref, ok := AsRef(v.Items[0]); ok {
				return d.UpdateStream(ref.Num, data)
			}
		}
		compressed := encodeFlate(data)
		dict := NewDict()
		dict.Set("Length", Integer(len(compressed)))
		dict.Set("Filter", Name("FlateDecode"))
		num := d.NewObject(&Stream{Dict: dict, Raw: compressed})
		return d.SetKey(pageNum, "Contents", Ref{Num: num})
	default:
		return fmt.Errorf("pdf: page %d has no contents", pageNum)
	}
}

// InfoKey reads a text value from the /Info dictionary.
func (d *Document) InfoKey(key string) (string, bool) {
	infoRef, ok := AsRef(getOr(d.trailer, "Info", Null{}))
	if !ok {
		return "", false
	}
	v := d.Resolve(d.GetKey(infoRef.Num, key))
	if s, ok := AsString(v); ok {
		return DecodeTextString(s), true
	}
	return "", false
}

// SetInfoKey writes a text value into the /Info dictionary, creating the
// dictionary on first use.
func (d *Document) SetInfoKey(key, text string) error {
	if d.closed {
		return ErrClosed
	}
	infoRef, ok := AsRef(getOr(d.trailer, "Info", Null{}))
	if !ok {
		num := d.NewObject(NewDict())
		infoRef = Ref{Num: num}
		d.trailer.Set("Info", infoRef)
	}
	return d.SetKey(infoRef.Num, key, TextString(text))
}

// Dirty returns the object numbers modified since open, sorted.
func (d *Document) Dirty() []int {
	nums := make([]int, 0, len(d.dirty))
	for n := range d.dirty {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Close invalidates the handle. Closing twice is an error so sessions
// notice double-close bugs; the underlying bytes are already on disk.
func (d *Document) Close() error {
	if d.closed {
		return ErrClosed
	}
	d.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (d *Document) Closed() bool { return d.closed }
