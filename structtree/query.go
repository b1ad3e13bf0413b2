package structtree

import (
	"sort"

	"github.com/jenniferbk/WCAGproject-sub000/observability"
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
)

// FindByType walks the structure tree and returns the object numbers of
// indirect structure elements whose /S matches structType, in traversal
// order. Inline kid dictionaries are descended into but cannot be returned;
// they have no object number to address later edits at.
func (m *Manager) FindByType(structType string) []int {
	rootRef, ok := pdf.AsRef(m.doc.GetKey(m.doc.Catalog(), "StructTreeRoot"))
	if !ok {
		return nil
	}
	var found []int
	visited := make(map[int]bool)

	var walkObj func(num, depth int)
	var walkKids func(kids pdf.Object, depth int)

	walkObj = func(num, depth int) {
		if depth > maxDepth || visited[num] {
			return
		}
		visited[num] = true
		dict, ok := pdf.AsDict(m.doc.Resolve(pdf.Ref{Num: num}))
		if !ok {
			return
		}
		if s, _ := pdf.AsName(dictGet(dict, "S")); s == structType {
			found = append(found, num)
		}
		walkKids(dictGet(dict, "K"), depth+1)
	}
	walkKids = func(kids pdf.Object, depth int) {
		if depth > maxDepth {
			return
		}
		switch v := kids.(type) {
		case pdf.Ref:
			walkObj(v.Num, depth)
		case *pdf.Array:
			for _, it := range v.Items {
				walkKids(it, depth)
			}
		case *pdf.Dict:
			// Inline element: match is unreportable, kids still count.
			walkKids(dictGet(v, "K"), depth+1)
		}
	}
	walkObj(rootRef.Num, 0)
	return found
}

func dictGet(d *pdf.Dict, key string) pdf.Object {
	if v, ok := d.Get(key); ok {
		return v
	}
	return pdf.Null{}
}

// MatchFiguresToImages pairs each Figure element with an image XObject.
// An OBJR kid naming an image wins outright; otherwise the figure's /Pg
// page is searched for image XObjects and each figure consumes the next
// unclaimed one, in resource-name order. Figures with no candidate are
// absent from the result.
func (m *Manager) MatchFiguresToImages(figures []int) map[int]int {
	matched := make(map[int]int)
	claimed := make(map[int]bool)

	for _, fig := range figures {
		if num, ok := m.objrImage(fig); ok {
			matched[fig] = num
			claimed[num] = true
		}
	}
	for _, fig := range figures {
		if _, done := matched[fig]; done {
			continue
		}
		pgRef, ok := pdf.AsRef(m.doc.GetKey(fig, "Pg"))
		if !ok {
			continue
		}
		for _, num := range m.pageImages(pgRef.Num) {
			if !claimed[num] {
				matched[fig] = num
				claimed[num] = true
				break
			}
		}
	}
	m.log.Debug("figure matching",
		observability.Int("figures", len(figures)),
		observability.Int("matched", len(matched)))
	return matched
}

// objrImage scans a figure's /K kids for an OBJR whose /Obj resolves to an
// image XObject stream.
func (m *Manager) objrImage(figNum int) (int, bool) {
	var check func(obj pdf.Object) (int, bool)
	check = func(obj pdf.Object) (int, bool) {
		switch v := obj.(type) {
		case *pdf.Dict:
			if t, _ := pdf.AsName(dictGet(v, "Type")); t != "OBJR" {
				return 0, false
			}
			ref, ok := pdf.AsRef(dictGet(v, "Obj"))
			if !ok {
				return 0, false
			}
			if m.isImage(ref.Num) {
				return ref.Num, true
			}
		case *pdf.Array:
			for _, it := range v.Items {
				if d, ok := pdf.AsDict(m.doc.Resolve(it)); ok {
					if num, hit := check(d); hit {
						return num, true
					}
				}
			}
		}
		return 0, false
	}
	kids := m.doc.GetKey(figNum, "K")
	if r, ok := pdf.AsRef(kids); ok {
		kids = m.doc.Resolve(r)
	}
	return check(kids)
}

func (m *Manager) isImage(num int) bool {
	dict, ok := pdf.AsDict(m.doc.Resolve(pdf.Ref{Num: num}))
	if !ok {
		return false
	}
	sub, _ := pdf.AsName(m.doc.Resolve(dictGet(dict, "Subtype")))
	return sub == "Image"
}

// PageOfImage returns the object number of the first page whose resources
// reference the image, or -1.
func (m *Manager) PageOfImage(imageNum int) int {
	for i := 0; i < m.doc.PageCount(); i++ {
		pageNum, err := m.doc.PageRef(i)
		if err != nil {
			continue
		}
		for _, num := range m.pageImages(pageNum) {
			if num == imageNum {
				return pageNum
			}
		}
	}
	return -1
}

// pageImages lists the image XObject numbers in a page's resources, sorted
// by resource name so matching is deterministic across runs.
func (m *Manager) pageImages(pageNum int) []int {
	res, ok := pdf.AsDict(m.doc.Resolve(m.doc.PageAttr(pageNum, "Resources")))
	if !ok {
		return nil
	}
	xobj, ok := pdf.AsDict(m.doc.Resolve(dictGet(res, "XObject")))
	if !ok {
		return nil
	}
	names := xobj.Keys()
	sort.Strings(names)
	var images []int
	for _, name := range names {
		ref, ok := pdf.AsRef(dictGet(xobj, name))
		if !ok {
			continue
		}
		if m.isImage(ref.Num) {
			images = append(images, ref.Num)
		}
	}
	return images
}
