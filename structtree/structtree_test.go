package structtree

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/jenniferbk/WCAGproject-sub000/pdf"
)

// makeDoc builds a one-page document with a font and one image XObject.
func makeDoc(t *testing.T) *pdf.Document {
	t.Helper()
	content := "BT /F1 12 Tf (text) Tj ET"
	bodies := []string{
		"<</Type /Catalog /Pages 2 0 R>>",
		"<</Type /Pages /Kids [3 0 R] /Count 1>>",
		"<</Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources <</Font <</F1 5 0 R>> /XObject <</Im1 6 0 R>>>> /Contents 4 0 R>>",
		fmt.Sprintf("<</Length %d>>\nstream\n%s\nendstream", len(content), content),
		"<</Type /Font /Subtype /Type1 /BaseFont /Helvetica>>",
		"<</Type /XObject /Subtype /Image /Width 1 /Height 1 /BitsPerComponent 8 /ColorSpace /DeviceGray /Length 1>>\nstream\nA\nendstream",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	offsets := make([]int, len(bodies)+1)
	for i, body := range bodies {
		offsets[i+1] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(bodies)+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= len(bodies); i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d /Root 1 0 R>>\nstartxref\n%d\n%%%%EOF\n",
		len(bodies)+1, xref)

	doc, err := pdf.ReadBytes(buf.Bytes())
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return doc
}

const (
	fixturePage  = 3
	fixtureImage = 6
)

func TestEnsureRootCreatesAndReuses(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)

	root, err := mgr.EnsureRoot()
	if err != nil {
		t.Fatal(err)
	}
	mi, ok := pdf.AsDict(doc.Resolve(doc.GetKey(doc.Catalog(), "MarkInfo")))
	if !ok {
		t.Fatal("MarkInfo not written")
	}
	if marked, _ := mi.Get("Marked"); marked != pdf.Bool(true) {
		t.Error("MarkInfo/Marked should be true")
	}

	again, err := mgr.EnsureRoot()
	if err != nil {
		t.Fatal(err)
	}
	if again != root {
		t.Errorf("second EnsureRoot allocated a new root: %d vs %d", again, root)
	}
}

func TestAppendKidPromotesBareRef(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)
	root, _ := mgr.EnsureRoot()

	first := doc.NewObject(pdf.NewDict())
	second := doc.NewObject(pdf.NewDict())

	// Simulate a root whose /K is a single bare reference.
	if err := doc.SetKey(root, "K", pdf.Ref{Num: first}); err != nil {
		t.Fatal(err)
	}
	if err := mgr.AppendKid(root, pdf.Ref{Num: second}); err != nil {
		t.Fatal(err)
	}
	kids, ok := pdf.AsArray(doc.GetKey(root, "K"))
	if !ok || kids.Len() != 2 {
		t.Fatalf("expected a two-element /K array, got %v", doc.GetKey(root, "K"))
	}
	r0, _ := pdf.AsRef(kids.Items[0])
	r1, _ := pdf.AsRef(kids.Items[1])
	if r0.Num != first || r1.Num != second {
		t.Errorf("promotion lost order: [%d %d], want [%d %d]", r0.Num, r1.Num, first, second)
	}
}

func TestAppendKidGrowsArray(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)
	root, _ := mgr.EnsureRoot()

	for i := 0; i < 3; i++ {
		kid := doc.NewObject(pdf.NewDict())
		if err := mgr.AppendKid(root, pdf.Ref{Num: kid}); err != nil {
			t.Fatal(err)
		}
	}
	kids, ok := pdf.AsArray(doc.GetKey(root, "K"))
	if !ok || kids.Len() != 3 {
		t.Fatalf("expected 3 kids, got %v", doc.GetKey(root, "K"))
	}
}

func TestNewElementShape(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)
	root, _ := mgr.EnsureRoot()

	elem, err := mgr.NewElement(root, ElementSpec{Type: "H2", Page: fixturePage, MCID: 7})
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := pdf.AsName(doc.GetKey(elem, "S")); s != "H2" {
		t.Errorf("S = %q, want H2", s)
	}
	if p, _ := pdf.AsRef(doc.GetKey(elem, "P")); p.Num != root {
		t.Errorf("P = %d, want %d", p.Num, root)
	}
	mcr, ok := pdf.AsDict(doc.GetKey(elem, "K"))
	if !ok {
		t.Fatal("K should be an MCR dictionary")
	}
	if typ, _ := mcr.Get("Type"); typ != pdf.Name("MCR") {
		t.Error("MCR /Type missing")
	}
	if mcid, _ := mcr.Get("MCID"); mcid != pdf.Integer(7) {
		t.Errorf("MCID = %v, want 7", mcid)
	}
	if pg, _ := mcr.Get("Pg"); pg != (pdf.Ref{Num: fixturePage}) {
		t.Errorf("Pg = %v", pg)
	}
}

func TestFindByType(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)
	root, _ := mgr.EnsureRoot()

	h1, _ := mgr.NewElement(root, ElementSpec{Type: "H1", Page: fixturePage, MCID: 0})
	fig, _ := mgr.NewElement(root, ElementSpec{Type: "Figure", Page: fixturePage, MCID: -1, Alt: "chart"})
	h1b, _ := mgr.NewElement(root, ElementSpec{Type: "H1", Page: fixturePage, MCID: 1})

	got := mgr.FindByType("H1")
	if len(got) != 2 || got[0] != h1 || got[1] != h1b {
		t.Errorf("FindByType(H1) = %v, want [%d %d]", got, h1, h1b)
	}
	figs := mgr.FindByType("Figure")
	if len(figs) != 1 || figs[0] != fig {
		t.Errorf("FindByType(Figure) = %v, want [%d]", figs, fig)
	}
	if alt, ok := mgr.Alt(fig); !ok || alt != "chart" {
		t.Errorf("Alt = %q (%v)", alt, ok)
	}
}

func TestFindByTypeBoundsCycles(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)
	root, _ := mgr.EnsureRoot()

	// A self-referencing element must not loop the traversal.
	elem, _ := mgr.NewElement(root, ElementSpec{Type: "H1", Page: fixturePage, MCID: 0})
	if err := doc.SetKey(elem, "K", pdf.Ref{Num: elem}); err != nil {
		t.Fatal(err)
	}
	if got := mgr.FindByType("H1"); len(got) != 1 {
		t.Errorf("cycle traversed more than once: %v", got)
	}
}

func TestMatchFigureByPage(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)
	root, _ := mgr.EnsureRoot()

	figA, _ := mgr.NewElement(root, ElementSpec{Type: "Figure", Page: fixturePage, MCID: -1})
	figB, _ := mgr.NewElement(root, ElementSpec{Type: "Figure", Page: fixturePage, MCID: -1})

	matched := mgr.MatchFiguresToImages([]int{figA, figB})
	if matched[figA] != fixtureImage {
		t.Errorf("first figure should claim the page's image, got %v", matched)
	}
	if _, ok := matched[figB]; ok {
		t.Error("one image must not satisfy two figures")
	}
}

func TestMatchFigureByOBJR(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)
	root, _ := mgr.EnsureRoot()

	fig, _ := mgr.NewElement(root, ElementSpec{Type: "Figure", MCID: -1})
	objr := pdf.NewDict()
	objr.Set("Type", pdf.Name("OBJR"))
	objr.Set("Obj", pdf.Ref{Num: fixtureImage})
	if err := doc.SetKey(fig, "K", objr); err != nil {
		t.Fatal(err)
	}
	matched := mgr.MatchFiguresToImages([]int{fig})
	if matched[fig] != fixtureImage {
		t.Errorf("OBJR match failed: %v", matched)
	}
}

func TestPageOfImage(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)
	if got := mgr.PageOfImage(fixtureImage); got != fixturePage {
		t.Errorf("PageOfImage = %d, want %d", got, fixturePage)
	}
	if got := mgr.PageOfImage(99); got != -1 {
		t.Errorf("unknown image should yield -1, got %d", got)
	}
}

func TestStrip(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)
	if _, err := mgr.EnsureRoot(); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Strip(); err != nil {
		t.Fatal(err)
	}
	if _, ok := pdf.AsRef(doc.GetKey(doc.Catalog(), "StructTreeRoot")); ok {
		t.Error("StructTreeRoot still referenced after strip")
	}
	if _, ok := pdf.AsDict(doc.Resolve(doc.GetKey(doc.Catalog(), "MarkInfo"))); ok {
		t.Error("MarkInfo survived strip")
	}
}

func TestBreadcrumb(t *testing.T) {
	doc := makeDoc(t)
	mgr := NewManager(doc, nil)
	root, _ := mgr.EnsureRoot()
	fig, _ := mgr.NewElement(root, ElementSpec{Type: "Figure", MCID: -1})
	if got := mgr.Breadcrumb(fig); got != -1 {
		t.Errorf("unset breadcrumb = %d, want -1", got)
	}
	if err := mgr.SetBreadcrumb(fig, fixtureImage); err != nil {
		t.Fatal(err)
	}
	if got := mgr.Breadcrumb(fig); got != fixtureImage {
		t.Errorf("breadcrumb = %d, want %d", got, fixtureImage)
	}
}
