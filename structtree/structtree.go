// Package structtree manages the logical structure tree of a tagged PDF:
// locating or creating /StructTreeRoot, attaching structure elements, and
// querying the tree by structure type. All mutation goes through the
// document arena so changes ride the next incremental save.
package structtree

import (
	"fmt"

	"github.com/jenniferbk/WCAGproject-sub000/observability"
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
)

// BreadcrumbKey is a private key written onto Figure elements to record
// which image XObject the element was matched against, so a later pass can
// re-associate alt text without re-running the matching heuristics.
const BreadcrumbKey = "A11yXref"

// maxDepth bounds tree traversal. Real structure trees are shallow;
// anything deeper is cyclic or corrupt.
const maxDepth = 8

// Manager wraps one document's structure tree.
type Manager struct {
	doc *pdf.Document
	log observability.Logger
}

func NewManager(doc *pdf.Document, log observability.Logger) *Manager {
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Manager{doc: doc, log: log}
}

// EnsureRoot returns the /StructTreeRoot object number, creating the root
// (with an empty /K array) and /MarkInfo when the document is untagged.
// Calling it on an already tagged document changes nothing.
func (m *Manager) EnsureRoot() (int, error) {
	cat := m.doc.Catalog()
	if ref, ok := pdf.AsRef(m.doc.GetKey(cat, "StructTreeRoot")); ok {
		if _, isDict := pdf.AsDict(m.doc.Resolve(ref)); isDict {
			return ref.Num, nil
		}
		m.log.Warn("StructTreeRoot reference is dangling, rebuilding",
			observability.Int("object", ref.Num))
	}
	root := pdf.NewDict()
	root.Set("Type", pdf.Name("StructTreeRoot"))
	root.Set("K", pdf.NewArray())
	num := m.doc.NewObject(root)
	if err := m.doc.SetKey(cat, "StructTreeRoot", pdf.Ref{Num: num}); err != nil {
		return 0, err
	}
	markInfo := pdf.NewDict()
	markInfo.Set("Marked", pdf.Bool(true))
	if err := m.doc.SetKey(cat, "MarkInfo", markInfo); err != nil {
		return 0, err
	}
	m.log.Info("created structure tree root", observability.Int("object", num))
	return num, nil
}

// AppendKid attaches kid under the element at parentNum, normalizing the
// three legal /K shapes. A bare reference or inline dictionary is promoted
// to an array with the existing kid first, so document order is preserved.
func (m *Manager) AppendKid(parentNum int, kid pdf.Ref) error {
	existing := m.doc.GetKey(parentNum, "K")
	switch v := existing.(type) {
	case pdf.Null:
		return m.doc.SetKey(parentNum, "K", pdf.NewArray(kid))
	case *pdf.Array:
		v.Append(kid)
		return m.doc.SetKey(parentNum, "K", v)
	case pdf.Ref:
		return m.doc.SetKey(parentNum, "K", pdf.NewArray(v, kid))
	case *pdf.Dict, pdf.Integer:
		return m.doc.SetKey(parentNum, "K", pdf.NewArray(v, kid))
	default:
		return fmt.Errorf("structtree: object %d has unusable /K (%s)", parentNum, existing.Kind())
	}
}

// ElementSpec describes a structure element to create. MCID below zero
// means the element carries no marked-content reference.
type ElementSpec struct {
	Type string // structure type name: H1..H6, Figure, Table, TR, TH, TD, Link
	Page int    // page object number for /Pg; zero for none
	MCID int
	Alt  string
}

// NewElement creates a structure element, links it under parentNum, and
// returns its object number. When the spec carries an MCID the element's
// /K is an MCR dictionary pointing at the page.
func (m *Manager) NewElement(parentNum int, spec ElementSpec) (int, error) {
	elem := pdf.NewDict()
	elem.Set("Type", pdf.Name("StructElem"))
	elem.Set("S", pdf.Name(spec.Type))
	elem.Set("P", pdf.Ref{Num: parentNum})
	if spec.Page > 0 {
		elem.Set("Pg", pdf.Ref{Num: spec.Page})
	}
	if spec.MCID >= 0 {
		mcr := pdf.NewDict()
		mcr.Set("Type", pdf.Name("MCR"))
		mcr.Set("MCID", pdf.Integer(spec.MCID))
		if spec.Page > 0 {
			mcr.Set("Pg", pdf.Ref{Num: spec.Page})
		}
		elem.Set("K", mcr)
	}
	if spec.Alt != "" {
		elem.Set("Alt", pdf.TextString(spec.Alt))
	}
	num := m.doc.NewObject(elem)
	if err := m.AppendKid(parentNum, pdf.Ref{Num: num}); err != nil {
		return 0, err
	}
	return num, nil
}

// SetAlt writes /Alt on an existing element.
func (m *Manager) SetAlt(elemNum int, alt string) error {
	return m.doc.SetKey(elemNum, "Alt", pdf.TextString(alt))
}

// Alt reads /Alt from an element, resolving an indirect value.
func (m *Manager) Alt(elemNum int) (string, bool) {
	v := m.doc.Resolve(m.doc.GetKey(elemNum, "Alt"))
	if s, ok := pdf.AsString(v); ok {
		return pdf.DecodeTextString(s), true
	}
	return "", false
}

// SetBreadcrumb records the matched image object number on a Figure
// element under BreadcrumbKey.
func (m *Manager) SetBreadcrumb(elemNum, imageNum int) error {
	return m.doc.SetKey(elemNum, BreadcrumbKey, pdf.Integer(imageNum))
}

// Breadcrumb reads a previously written image match, or -1.
func (m *Manager) Breadcrumb(elemNum int) int {
	if n, ok := pdf.AsInt(m.doc.Resolve(m.doc.GetKey(elemNum, BreadcrumbKey))); ok {
		return int(n)
	}
	return -1
}

// Strip removes the structure tree wholesale: the catalog's
// /StructTreeRoot and /MarkInfo keys are deleted. The element objects
// themselves stay in the file (incremental saves cannot reclaim them) but
// nothing references them, so viewers treat the document as untagged.
func (m *Manager) Strip() error {
	cat := m.doc.Catalog()
	if err := m.doc.SetKey(cat, "StructTreeRoot", pdf.Null{}); err != nil {
		return err
	}
	if err := m.doc.SetKey(cat, "MarkInfo", pdf.Null{}); err != nil {
		return err
	}
	m.log.Info("stripped structure tree")
	return nil
}
