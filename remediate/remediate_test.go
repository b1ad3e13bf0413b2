package remediate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenniferbk/WCAGproject-sub000/contentstream"
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
)

// buildFixture assembles a classic-xref PDF: one content stream per page,
// a shared font, and optionally one image XObject on the first page.
func buildFixture(pageContents []string, withImage bool) []byte {
	fontNum := 3 + 2*len(pageContents)
	imageNum := fontNum + 1
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
		res := fmt.Sprintf("<</Font <</F1 %d 0 R>>>>", fontNum)
		if withImage && i == 0 {
			res = fmt.Sprintf("<</Font <</F1 %d 0 R>> /XObject <</Im1 %d 0 R>>>>", fontNum, imageNum)
		}
		bodies = append(bodies, fmt.Sprintf(
			"<</Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources %s /Contents %d 0 R>>",
			res, 4+2*i))
		bodies = append(bodies, fmt.Sprintf(
			"<</Length %d>>\nstream\n%s\nendstream", len(content), content))
	}
	bodies = append(bodies, "<</Type /Font /Subtype /Type1 /BaseFont /Helvetica>>")
	if withImage {
		bodies = append(bodies,
			"<</Type /XObject /Subtype /Image /Width 1 /Height 1 /BitsPerComponent 8 /ColorSpace /DeviceGray /Length 1>>\nstream\nA\nendstream")
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
	return buf.Bytes()
}

func writeFixture(t *testing.T, withImage bool, pageContents ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.pdf")
	require.NoError(t, os.WriteFile(path, buildFixture(pageContents, withImage), 0o644))
	return path
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := New(DefaultConfig())
	require.NoError(t, err)
	return engine
}

func pageContent(t *testing.T, path string, index int) string {
	t.Helper()
	doc, err := pdf.Open(path)
	require.NoError(t, err)
	defer doc.Close()
	page, err := doc.PageRef(index)
	require.NoError(t, err)
	content, err := doc.Content(page)
	require.NoError(t, err)
	return string(content)
}

func TestApplyEndToEnd(t *testing.T) {
	source := writeFixture(t, false,
		"BT /F1 12 Tf 50 150 Td (Course Description) Tj ET",
		"BT /F1 12 Tf 50 150 Td (Second Page) Tj ET")
	output := filepath.Join(t.TempDir(), "out.pdf")

	engine := newEngine(t)
	res := engine.Apply(context.Background(), Request{
		Source:   source,
		Output:   output,
		Metadata: Metadata{Title: "Syllabus", Language: "en"},
		Headings: []HeadingAction{{Level: 2, Text: "Course Description", Page: 0}},
	})

	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, 1, res.HeadingTagsApplied)
	assert.NotEmpty(t, res.Changes)

	doc, err := pdf.Open(output)
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, 2, doc.PageCount())
	title, ok := doc.InfoKey("Title")
	require.True(t, ok)
	assert.Equal(t, "Syllabus", title)
	lang, ok := pdf.AsString(doc.Resolve(doc.GetKey(doc.Catalog(), "Lang")))
	require.True(t, ok)
	assert.Equal(t, "en", pdf.DecodeTextString(lang))

	content := pageContent(t, output, 0)
	assert.Contains(t, content, "/H2 <</MCID 0>> BDC")
	assert.Contains(t, content, "EMC")
	assert.Contains(t, content, "(Course Description) Tj")

	audit, err := AuditFile(output, nil)
	require.NoError(t, err)
	assert.True(t, audit.Tagged)
	assert.True(t, audit.Marked)
	assert.Equal(t, 1, audit.Headings)
}

func TestApplyMetadataIdempotent(t *testing.T) {
	source := writeFixture(t, false, "BT /F1 12 Tf (x) Tj ET")
	dir := t.TempDir()
	first := filepath.Join(dir, "first.pdf")
	second := filepath.Join(dir, "second.pdf")

	engine := newEngine(t)
	md := Metadata{Title: "Syllabus", Language: "en"}

	res1 := engine.Apply(context.Background(), Request{Source: source, Output: first, Metadata: md})
	require.True(t, res1.Success)
	assert.Len(t, res1.Changes, 2)

	res2 := engine.Apply(context.Background(), Request{Source: first, Output: second, Metadata: md})
	require.True(t, res2.Success)
	assert.Empty(t, res2.Changes, "second pass must be a semantic no-op")
	assert.Len(t, res2.Warnings, 2)

	title, ok := mustOpen(t, second).InfoKey("Title")
	require.True(t, ok)
	assert.Equal(t, "Syllabus", title)
}

func mustOpen(t *testing.T, path string) *pdf.Document {
	t.Helper()
	doc, err := pdf.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })
	return doc
}

func TestHeadingTextNotFound(t *testing.T) {
	source := writeFixture(t, false, "BT /F1 12 Tf (something else) Tj ET")
	output := filepath.Join(t.TempDir(), "out.pdf")

	res := newEngine(t).Apply(context.Background(), Request{
		Source:   source,
		Output:   output,
		Headings: []HeadingAction{{Level: 1, Text: "Missing Heading", Page: 0}},
	})
	require.True(t, res.Success, "a missing target is a warning, not a failure")
	assert.Equal(t, 0, res.HeadingTagsApplied)
	assert.NotEmpty(t, res.Warnings)
}

func TestHeadingGivenUpWhenGateNeverPasses(t *testing.T) {
	// An impossible diff limit rejects every attempt, so the loop must
	// revert the wrap each time, burn through all attempts, and give up
	// without leaving a structure element behind.
	content := "BT /F1 12 Tf 50 150 Td (Course Description) Tj ET"
	path := writeFixture(t, false, content)

	cfg := DefaultConfig()
	cfg.HeadingDiffLimit = -1
	engine := &Engine{cfg: cfg, log: cfg.Logger}

	doc := mustOpen(t, path)
	res := newResult(path)
	engine.applyHeadings(doc, []HeadingAction{{Level: 2, Text: "Course Description", Page: 0}}, res)

	assert.Equal(t, 0, res.HeadingTagsApplied)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "gave up after 5 attempts")

	page, err := doc.PageRef(0)
	require.NoError(t, err)
	got, err := doc.Content(page)
	require.NoError(t, err)
	assert.Equal(t, content, string(got), "revert must restore the snapshot verbatim")
	assert.IsType(t, pdf.Null{}, doc.GetKey(doc.Catalog(), "StructTreeRoot"),
		"a rejected heading must not create a structure tree")
}

func TestDeferTier2(t *testing.T) {
	source := writeFixture(t, false, "BT /F1 12 Tf (Course Description) Tj ET")
	output := filepath.Join(t.TempDir(), "out.pdf")

	cfg := DefaultConfig()
	cfg.DeferTier2 = true
	engine, err := New(cfg)
	require.NoError(t, err)

	res := engine.Apply(context.Background(), Request{
		Source:     source,
		Output:     output,
		Headings:   []HeadingAction{{Level: 1, Text: "Course Description", Page: 0}},
		ColorFixes: []ColorFix{{OriginalHex: "#808080", FixedHex: "#333333"}},
	})
	require.True(t, res.Success)
	assert.Equal(t, 0, res.HeadingTagsApplied)
	assert.Equal(t, 0, res.ContrastFixesApplied)
	assert.Len(t, res.Warnings, 2)
	assert.NotContains(t, pageContent(t, output, 0), "BDC")
}

func TestContrastApplied(t *testing.T) {
	source := writeFixture(t, false,
		"BT /F1 12 Tf 50 150 Td 0.5000 0.5000 0.5000 rg (Hello) Tj ET")
	output := filepath.Join(t.TempDir(), "out.pdf")

	res := newEngine(t).Apply(context.Background(), Request{
		Source:     source,
		Output:     output,
		ColorFixes: []ColorFix{{OriginalHex: "#808080", FixedHex: "#333333"}},
	})
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Equal(t, 1, res.ContrastFixesApplied)

	content := pageContent(t, output, 0)
	assert.Contains(t, content, "0.2000 0.2000 0.2000 rg")
	assert.NotContains(t, content, "0.5000")
}

func TestContrastRevertedWhenPageChangesTooMuch(t *testing.T) {
	// The gray here paints the whole page, so the fix legitimately matches
	// but the diff blows past the gate and the batch must roll back.
	content := "0.5000 0.5000 0.5000 rg 0 0 200 200 re f"
	source := writeFixture(t, false, content)
	output := filepath.Join(t.TempDir(), "out.pdf")

	res := newEngine(t).Apply(context.Background(), Request{
		Source:     source,
		Output:     output,
		ColorFixes: []ColorFix{{OriginalHex: "#808080", FixedHex: "#000000"}},
	})
	require.True(t, res.Success)
	assert.Equal(t, 0, res.ContrastFixesApplied)
	assert.NotEmpty(t, res.Warnings)
	assert.Equal(t, content, pageContent(t, output, 0), "revert must restore the snapshot verbatim")
}

func TestApplyContrastFixesInPlace(t *testing.T) {
	path := writeFixture(t, false,
		"BT /F1 12 Tf 50 150 Td 0.5000 0.5000 0.5000 rg (Hello) Tj ET")

	res := newEngine(t).ApplyContrastFixes(path, []ColorFix{
		{OriginalHex: "#808080", FixedHex: "#333333"},
	})
	require.True(t, res.Success)
	assert.Equal(t, 1, res.ContrastFixesApplied)
	assert.Contains(t, pageContent(t, path, 0), "0.2000")
}

func TestAltTextUntagged(t *testing.T) {
	source := writeFixture(t, true, "BT /F1 12 Tf (x) Tj ET")
	output := filepath.Join(t.TempDir(), "out.pdf")
	const imageNum = 6

	res := newEngine(t).Apply(context.Background(), Request{
		Source:   source,
		Output:   output,
		AltTexts: []AltTextAction{{ImageID: imageNum, AltText: "Bar chart showing enrollment trends"}},
	})
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.NotEmpty(t, res.Changes)

	audit, err := AuditFile(output, nil)
	require.NoError(t, err)
	assert.True(t, audit.Tagged)
	assert.Equal(t, 1, audit.Figures)
	assert.Equal(t, 0, audit.FiguresMissingAlt)
}

func TestUpdateFigureAltTextsReplacesFilenames(t *testing.T) {
	source := writeFixture(t, true, "BT /F1 12 Tf (x) Tj ET")
	output := filepath.Join(t.TempDir(), "out.pdf")
	const imageNum = 6

	engine := newEngine(t)
	res := engine.Apply(context.Background(), Request{
		Source:   source,
		Output:   output,
		AltTexts: []AltTextAction{{ImageID: imageNum, AltText: "chart.png"}},
	})
	require.True(t, res.Success)

	res = engine.UpdateFigureAltTexts(output, []AltTextAction{
		{ImageID: imageNum, AltText: "Bar chart showing enrollment trends"},
	})
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.NotEmpty(t, res.Changes)

	audit, err := AuditFile(output, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, audit.FiguresMissingAlt)
}

func TestDecorativeImage(t *testing.T) {
	source := writeFixture(t, true, "BT /F1 12 Tf (x) Tj ET")
	output := filepath.Join(t.TempDir(), "out.pdf")

	res := newEngine(t).Apply(context.Background(), Request{
		Source:     source,
		Output:     output,
		Decorative: []DecorativeAction{{ImageID: 6}},
	})
	require.True(t, res.Success)
	require.Len(t, res.Changes, 1)
	assert.Contains(t, res.Changes[0], "decorative")
}

func TestTablesAndLinks(t *testing.T) {
	source := writeFixture(t, false, "BT /F1 12 Tf (x) Tj ET")
	output := filepath.Join(t.TempDir(), "out.pdf")

	res := newEngine(t).Apply(context.Background(), Request{
		Source: source,
		Output: output,
		Tables: []TableAction{{
			Page:       0,
			HeaderRows: 1,
			Rows: []TableRow{
				{Cells: []TableCell{{Text: "Week"}, {Text: "Topic"}}},
				{Cells: []TableCell{{Text: "1"}, {Text: "Intro", GridSpan: 2}}},
			},
		}},
		Links: []LinkAction{{Page: 0, Text: "Course site", URL: "https://example.edu/course"}},
	})
	require.True(t, res.Success, "errors: %v", res.Errors)
	assert.Len(t, res.Changes, 2)

	doc := mustOpen(t, output)
	audit := AuditDocument(doc, nil)
	assert.True(t, audit.Tagged)
}

func TestStripStructTree(t *testing.T) {
	source := writeFixture(t, true, "BT /F1 12 Tf (x) Tj ET")
	tagged := filepath.Join(t.TempDir(), "tagged.pdf")
	stripped := filepath.Join(t.TempDir(), "stripped.pdf")

	engine := newEngine(t)
	res := engine.Apply(context.Background(), Request{
		Source:   source,
		Output:   tagged,
		AltTexts: []AltTextAction{{ImageID: 6, AltText: "Bar chart showing enrollment trends"}},
	})
	require.True(t, res.Success)

	require.NoError(t, engine.StripStructTree(tagged, stripped))
	audit, err := AuditFile(stripped, nil)
	require.NoError(t, err)
	assert.False(t, audit.Tagged)
	assert.False(t, audit.Marked)
}

func TestApplyBatch(t *testing.T) {
	dir := t.TempDir()
	var reqs []Request
	for i := 0; i < 3; i++ {
		source := writeFixture(t, false, "BT /F1 12 Tf (Course Description) Tj ET")
		reqs = append(reqs, Request{
			Source:   source,
			Output:   filepath.Join(dir, fmt.Sprintf("out-%d.pdf", i)),
			Metadata: Metadata{Title: "Syllabus"},
		})
	}
	results := newEngine(t).ApplyBatch(context.Background(), reqs, 2)
	require.Len(t, results, 3)
	for i, res := range results {
		require.NotNil(t, res, "result %d missing", i)
		assert.True(t, res.Success)
	}
}

func TestApplyUnreadableSource(t *testing.T) {
	res := newEngine(t).Apply(context.Background(), Request{
		Source: filepath.Join(t.TempDir(), "missing.pdf"),
		Output: filepath.Join(t.TempDir(), "out.pdf"),
	})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Errors)
	assert.NoFileExists(t, res.OutputPath)
}

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan(strings.NewReader(`{
		"input_path": "in.pdf",
		"output_path": "out.pdf",
		"metadata": {"title": "Syllabus", "language": "en"},
		"elements": [
			{"type": "heading", "level": 2, "text": "Overview", "page": 0},
			{"type": "image_alt", "xref": 12, "alt_text": "Campus map"},
			{"type": "table", "header_rows": 1, "rows": [{"cells": [{"text": "A"}]}]},
			{"type": "link", "link_text": "Site", "link_url": "https://example.edu"}
		]
	}`))
	require.NoError(t, err)

	req := plan.Request()
	assert.Equal(t, "in.pdf", req.Source)
	assert.Equal(t, "out.pdf", req.Output)
	assert.Equal(t, "Syllabus", req.Metadata.Title)
	require.Len(t, req.Headings, 1)
	assert.Equal(t, 2, req.Headings[0].Level)
	require.Len(t, req.AltTexts, 1)
	assert.Equal(t, 12, req.AltTexts[0].ImageID)
	require.Len(t, req.Tables, 1)
	require.Len(t, req.Links, 1)
}

func TestParsePlanRejectsUnknownFields(t *testing.T) {
	_, err := ParsePlan(strings.NewReader(`{
		"input_path": "in.pdf",
		"output_path": "out.pdf",
		"metadtaa": {"title": "Syllabus"}
	}`))
	require.Error(t, err, "a misspelled key must not be dropped silently")
	assert.Contains(t, err.Error(), "metadtaa")
}

func TestRequestRejectsDeepHeadingLevel(t *testing.T) {
	err := (&Request{
		Source:   "in.pdf",
		Output:   "out.pdf",
		Headings: []HeadingAction{{Level: 7, Text: "Appendix", Page: 0}},
	}).Validate()
	assert.Error(t, err)
}

func TestIsFilenameAlt(t *testing.T) {
	cases := map[string]bool{
		"":                                    true,
		"chart.png":                           true,
		"IMG_2041.JPEG":                       true,
		"Screen Shot 2024-01-05 at 9.12.03":   true,
		"image004":                            true,
		"logo.v2.final.webp":                  true,
		"diagram":                             true, // short, no spaces
		"Bar chart showing enrollment trends": false,
		"A campus map with building numbers":  false,
	}
	for alt, want := range cases {
		assert.Equal(t, want, IsFilenameAlt(alt), "alt %q", alt)
	}
}

func TestHeadingTagClamp(t *testing.T) {
	assert.Equal(t, "H1", headingTag(0))
	assert.Equal(t, "H1", headingTag(1))
	assert.Equal(t, "H6", headingTag(6))
	assert.Equal(t, "H6", headingTag(9))
}

func TestColorFixRGB(t *testing.T) {
	orig, fixed, err := ColorFix{OriginalHex: "#808080", FixedHex: "#333333"}.RGB()
	require.NoError(t, err)
	assert.InDelta(t, 0.50196, orig[0], 1e-4)
	assert.InDelta(t, 0.2, fixed[0], 1e-3)

	_, _, err = ColorFix{OriginalHex: "nope", FixedHex: "#000000"}.RGB()
	assert.Error(t, err)
}

func TestReplaceColorThenReassembleKeepsRest(t *testing.T) {
	raw := []byte("q 1 0 0 1 10 10 cm 0.5000 0.5000 0.5000 rg (Body) Tj Q")
	tokens := contentstream.Tokenize(raw)
	require.True(t, contentstream.ReplaceColor(tokens,
		contentstream.RGB{0.5, 0.5, 0.5}, contentstream.RGB{0.2, 0.2, 0.2}))
	out := string(contentstream.Reassemble(tokens))
	assert.Contains(t, out, "q 1 0 0 1 10 10 cm ")
	assert.Contains(t, out, "(Body) Tj Q")
}
