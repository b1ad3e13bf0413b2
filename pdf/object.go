// Package pdf provides a mutable in-memory model of a PDF file: an arena of
// indirect objects keyed by object number, a typed value model, and an
// append-only incremental save. It is deliberately low level: the
// remediation engine edits catalog keys, structure elements, and content
// streams directly, the way the file format addresses them.
package pdf

import "fmt"

// Kind discriminates PDF value types so call sites can switch exhaustively
// instead of string-sniffing.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindName
	KindString
	KindDict
	KindArray
	KindRef
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindName:
		return "name"
	case KindString:
		return "string"
	case KindDict:
		return "dict"
	case KindArray:
		return "array"
	case KindRef:
		return "ref"
	case KindStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Object is the union of all PDF value kinds.
type Object interface{ Kind() Kind }

type Null struct{}

func (Null) Kind() Kind { return KindNull }

type Bool bool

func (Bool) Kind() Kind { return KindBool }

type Integer int64

func (Integer) Kind() Kind { return KindInt }

type Real float64

func (Real) Kind() Kind { return KindReal }

// Name is a PDF name with the leading slash and #xx escapes already removed.
type Name string

func (Name) Kind() Kind { return KindName }

// String holds decoded string bytes. Hex records the original spelling so a
// rewrite keeps the author's form.
type String struct {
	Bytes []byte
	Hex   bool
}

func (String) Kind() Kind { return KindString }

// Ref is an indirect reference "N G R".
type Ref struct {
	Num int
	Gen int
}

func (Ref) Kind() Kind       { return KindRef }
func (r Ref) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Dict is a PDF dictionary.
type Dict struct {
	kv map[string]Object
}

func NewDict() *Dict { return &Dict{kv: make(map[string]Object)} }

func (*Dict) Kind() Kind { return KindDict }

func (d *Dict) Get(key string) (Object, bool) {
	o, ok := d.kv[key]
	return o, ok
}

func (d *Dict) Set(key string, value Object) {
	if d.kv == nil {
		d.kv = make(map[string]Object)
	}
	d.kv[key] = value
}

func (d *Dict) Delete(key string) { delete(d.kv, key) }

func (d *Dict) Len() int { return len(d.kv) }

// Keys returns key names in unspecified order; serialization sorts.
func (d *Dict) Keys() []string {
	keys := make([]string, 0, len(d.kv))
	for k := range d.kv {
		keys = append(keys, k)
	}
	return keys
}

type Array struct {
	Items []Object
}

func NewArray(items ...Object) *Array { return &Array{Items: items} }

func (*Array) Kind() Kind { return KindArray }

func (a *Array) Len() int { return len(a.Items) }

func (a *Array) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}

func (a *Array) Append(obj Object) { a.Items = append(a.Items, obj) }

// Stream is a stream object: its dictionary plus the raw (still encoded)
// payload bytes.
type Stream struct {
	Dict *Dict
	Raw  []byte
}

func (*Stream) Kind() Kind { return KindStream }

// Convenience accessors used all over the structure-tree and applier code.

// AsInt returns the integer value of o, following Integer and Real kinds.
func AsInt(o Object) (int64, bool) {
	switch v := o.(type) {
	case Integer:
		return int64(v), true
	case Real:
		return int64(v), true
	default:
		return 0, false
	}
}

// AsName returns the name value of o.
func AsName(o Object) (string, bool) {
	if n, ok := o.(Name); ok {
		return string(n), true
	}
	return "", false
}

// AsDict returns the dictionary of o, unwrapping streams.
func AsDict(o Object) (*Dict, bool) {
	switch v := o.(type) {
	case *Dict:
		return v, true
	case *Stream:
		return v.Dict, true
	default:
		return nil, false
	}
}

// AsArray returns o as an array.
func AsArray(o Object) (*Array, bool) {
	a, ok := o.(*Array)
	return a, ok
}

// AsRef returns o as an indirect reference.
func AsRef(o Object) (Ref, bool) {
	r, ok := o.(Ref)
	return r, ok
}

// AsString returns o as a string object.
func AsString(o Object) (String, bool) {
	s, ok := o.(String)
	return s, ok
}
