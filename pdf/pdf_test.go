package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

// buildFixture assembles a minimal classic-xref PDF with one uncompressed
// content stream per page. Offsets are computed while writing, so the
// fixture is always internally consistent.
func buildFixture(pageContents []string) []byte {
	fontNum := 3 + 2*len(pageContents)
	var kids []string
	for i := range pageContents {
		kids = append(kids, fmt.Sprintf("%d 0 R", 3+2*i))
	}

	bodies := []string{
		"<</Type /Catalog /Pages 2 0 R>>",
		fmt.Sprintf("<</Type /Pages /Kids [%s] /Count %d>>",
			strings.Join(kids, " "), len(pageContents)),
	}
	for i, content := range pageContents {
		bodies = append(bodies, fmt.Sprintf(
			"<</Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources <</Font <</F1 %d 0 R>>>> /Contents %d 0 R>>",
			fontNum, 4+2*i))
		bodies = append(bodies, fmt.Sprintf(
			"<</Length %d>>\nstream\n%s\nendstream", len(content), content))
	}
	bodies = append(bodies, "<</Type /Font /Subtype /Type1 /BaseFont /Helvetica>>")

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
	return buf.Bytes()
}

const fixtureContent = "BT /F1 12 Tf 50 150 Td (Course Description) Tj ET"

func TestReadBytes(t *testing.T) {
	doc, err := ReadBytes(buildFixture([]string{fixtureContent, "BT /F1 9 Tf (p2) Tj ET"}))
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if got := doc.PageCount(); got != 2 {
		t.Errorf("PageCount = %d, want 2", got)
	}
	if doc.Catalog() != 1 {
		t.Errorf("catalog object = %d, want 1", doc.Catalog())
	}
	page, err := doc.PageRef(0)
	if err != nil {
		t.Fatal(err)
	}
	content, err := doc.Content(page)
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if string(content) != fixtureContent {
		t.Errorf("content = %q, want %q", content, fixtureContent)
	}
}

func TestReadBytesRejectsGarbage(t *testing.T) {
	if _, err := ReadBytes([]byte("not a pdf at all")); err == nil {
		t.Error("expected an error for a non-PDF input")
	}
}

func TestPageAttrInheritance(t *testing.T) {
	doc, err := ReadBytes(buildFixture([]string{fixtureContent}))
	if err != nil {
		t.Fatal(err)
	}
	page, _ := doc.PageRef(0)
	box, ok := AsArray(doc.Resolve(doc.PageAttr(page, "MediaBox")))
	if !ok || box.Len() != 4 {
		t.Fatal("MediaBox not readable through PageAttr")
	}
}

func TestSaveIncrementalRoundTrip(t *testing.T) {
	original := buildFixture([]string{fixtureContent})
	doc, err := ReadBytes(original)
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.SetInfoKey("Title", "Syllabus"); err != nil {
		t.Fatal(err)
	}
	if err := doc.SetKey(doc.Catalog(), "Lang", TextString("en")); err != nil {
		t.Fatal(err)
	}
	if err := doc.SaveIncremental(); err != nil {
		t.Fatalf("SaveIncremental: %v", err)
	}

	saved := doc.Bytes()
	if !bytes.HasPrefix(saved, original) {
		t.Error("incremental save must keep the original bytes intact as a prefix")
	}

	reread, err := ReadBytes(saved)
	if err != nil {
		t.Fatalf("re-parse after save: %v", err)
	}
	if got := reread.PageCount(); got != 1 {
		t.Errorf("PageCount after save = %d, want 1", got)
	}
	if title, ok := reread.InfoKey("Title"); !ok || title != "Syllabus" {
		t.Errorf("Title = %q (%v), want Syllabus", title, ok)
	}
	lang, ok := AsString(reread.Resolve(reread.GetKey(reread.Catalog(), "Lang")))
	if !ok || DecodeTextString(lang) != "en" {
		t.Errorf("Lang not readable back")
	}
}

func TestSaveIncrementalNoDirtyIsNoop(t *testing.T) {
	doc, err := ReadBytes(buildFixture([]string{fixtureContent}))
	if err != nil {
		t.Fatal(err)
	}
	before := len(doc.Bytes())
	if err := doc.SaveIncremental(); err != nil {
		t.Fatal(err)
	}
	if len(doc.Bytes()) != before {
		t.Error("save without edits must not grow the file")
	}
}

func TestSetContentRereadable(t *testing.T) {
	doc, err := ReadBytes(buildFixture([]string{fixtureContent}))
	if err != nil {
		t.Fatal(err)
	}
	page, _ := doc.PageRef(0)
	edited := []byte("BT /F1 12 Tf (edited) Tj ET")
	if err := doc.SetContent(page, edited); err != nil {
		t.Fatal(err)
	}
	if err := doc.SaveIncremental(); err != nil {
		t.Fatal(err)
	}
	reread, err := ReadBytes(doc.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	page, _ = reread.PageRef(0)
	content, err := reread.Content(page)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(content, edited) {
		t.Errorf("content = %q, want %q", content, edited)
	}
}

func TestCloseExactlyOnce(t *testing.T) {
	doc, err := ReadBytes(buildFixture([]string{fixtureContent}))
	if err != nil {
		t.Fatal(err)
	}
	if err := doc.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := doc.Close(); err == nil {
		t.Error("second close must fail")
	}
	if err := doc.SetKey(doc.Catalog(), "Lang", TextString("en")); err == nil {
		t.Error("writes after close must fail")
	}
}

func TestTextStringEncoding(t *testing.T) {
	plain := TextString("Syllabus")
	if plain.Hex {
		t.Error("ASCII text should serialize as a literal string")
	}
	unicode := TextString("Résumé – ökologie")
	if !unicode.Hex {
		t.Error("non-Latin-1 text should serialize as UTF-16BE hex")
	}
	if got := DecodeTextString(unicode); got != "Résumé – ökologie" {
		t.Errorf("round trip = %q", got)
	}
	var buf bytes.Buffer
	AppendObject(&buf, unicode)
	if !bytes.HasPrefix(buf.Bytes(), []byte("<FEFF")) {
		t.Errorf("UTF-16 string must carry the BOM: %q", buf.String())
	}
}

func TestLiteralStringEscaping(t *testing.T) {
	var buf bytes.Buffer
	AppendObject(&buf, String{Bytes: []byte("a(b)c\\d\ne")})
	got := buf.String()
	for _, want := range []string{`\(`, `\)`, `\\`, `\n`} {
		if !strings.Contains(got, want) {
			t.Errorf("serialized literal %q missing escape %q", got, want)
		}
	}
}
