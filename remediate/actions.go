// Package remediate applies accessibility fixes to PDF files: document
// metadata, figure alt text, heading tags, table and link structure, and
// text-color contrast. Fixes arrive as typed actions planned upstream; this
// package is responsible only for applying them safely and for reporting
// exactly what happened: every content edit is verified by rendering and
// reverted if it visibly changes the page.
package remediate

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jenniferbk/WCAGproject-sub000/contentstream"
)

// HeadingAction tags one run of text as a heading. Page is 0-based.
// Level is bounded 1 to 6; PDF has no deeper heading type.
type HeadingAction struct {
	ElementID string      `json:"element_id,omitempty"`
	Level     int         `json:"level" validate:"min=1,max=6"`
	Text      string      `json:"text" validate:"required"`
	Page      int         `json:"page" validate:"min=0"`
	BBox      *[4]float64 `json:"bbox,omitempty"`
}

// AltTextAction sets alt text on the figure for one image XObject.
type AltTextAction struct {
	ImageID int    `json:"image_id" validate:"min=1"`
	AltText string `json:"alt_text" validate:"required"`
}

// DecorativeAction marks an image as decorative: its figure gets an empty
// /Alt so assistive tech skips it.
type DecorativeAction struct {
	ImageID int `json:"image_id" validate:"min=1"`
}

// ColorFix replaces one text color with a contrast-corrected one. The
// fixed color is computed upstream against the WCAG contrast-ratio target;
// here both are just literal hex pairs.
type ColorFix struct {
	OriginalHex string `json:"original_hex" validate:"required,hexcolor"`
	FixedHex    string `json:"fixed_hex" validate:"required,hexcolor"`
}

// RGB converts both hex colors to the 0-1 float triples content streams
// use.
func (f ColorFix) RGB() (orig, fixed contentstream.RGB, err error) {
	orig, err = parseHexColor(f.OriginalHex)
	if err != nil {
		return
	}
	fixed, err = parseHexColor(f.FixedHex)
	return
}

func parseHexColor(s string) (contentstream.RGB, error) {
	var rgb contentstream.RGB
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return rgb, fmt.Errorf("remediate: bad hex color %q", s)
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(h[i*2:i*2+2], 16, 8)
		if err != nil {
			return rgb, fmt.Errorf("remediate: bad hex color %q: %w", s, err)
		}
		rgb[i] = float64(v) / 255.0
	}
	return rgb, nil
}

// TableAction builds a Table/TR/TH/TD structure subtree. The first
// HeaderRows rows get TH cells, the rest TD.
type TableAction struct {
	TableID    string     `json:"table_id,omitempty"`
	Page       int        `json:"page" validate:"min=0"`
	HeaderRows int        `json:"header_rows" validate:"min=0"`
	Rows       []TableRow `json:"rows" validate:"required,min=1"`
}

type TableRow struct {
	Cells []TableCell `json:"cells"`
}

type TableCell struct {
	Text     string `json:"text"`
	GridSpan int    `json:"grid_span,omitempty"`
}

// LinkAction creates a Link structure element with the link text as /Alt.
type LinkAction struct {
	LinkID string `json:"link_id,omitempty"`
	Page   int    `json:"page" validate:"min=0"`
	Text   string `json:"link_text"`
	URL    string `json:"link_url" validate:"omitempty,url"`
}

// Metadata carries the document-level fixes.
type Metadata struct {
	Title    string `json:"title"`
	Language string `json:"language"`
}

// TaggingPlan is the JSON contract shared with the external tagger
// subprocess; either backend consumes the same plan.
type TaggingPlan struct {
	InputPath  string        `json:"input_path" validate:"required"`
	OutputPath string        `json:"output_path" validate:"required"`
	Metadata   Metadata      `json:"metadata"`
	Elements   []PlanElement `json:"elements"`
}

// PlanElement is one entry in a TaggingPlan; Type selects which of the
// per-kind fields are meaningful.
type PlanElement struct {
	Type string `json:"type" validate:"required,oneof=heading image_alt table link"`

	// heading
	Level int       `json:"level,omitempty"`
	Text  string    `json:"text,omitempty"`
	Page  int       `json:"page,omitempty"`
	BBox  []float64 `json:"bbox,omitempty"`

	// image_alt
	ImageXref int    `json:"xref,omitempty"`
	AltText   string `json:"alt_text,omitempty"`

	// table
	TableID    string     `json:"table_id,omitempty"`
	HeaderRows int        `json:"header_rows,omitempty"`
	Rows       []TableRow `json:"rows,omitempty"`

	// link
	LinkID   string `json:"link_id,omitempty"`
	LinkText string `json:"link_text,omitempty"`
	LinkURL  string `json:"link_url,omitempty"`
}

// ParsePlan decodes a TaggingPlan, rejecting unknown fields so a schema
// drift between backends fails loudly instead of silently dropping fixes.
func ParsePlan(r io.Reader) (*TaggingPlan, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var plan TaggingPlan
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("remediate: parse plan: %w", err)
	}
	return &plan, nil
}

// Request converts the plan into the engine's native request.
func (p *TaggingPlan) Request() Request {
	req := Request{
		Source:   p.InputPath,
		Output:   p.OutputPath,
		Metadata: p.Metadata,
	}
	for _, el := range p.Elements {
		switch el.Type {
		case "heading":
			act := HeadingAction{Level: el.Level, Text: el.Text, Page: el.Page}
			if len(el.BBox) == 4 {
				act.BBox = &[4]float64{el.BBox[0], el.BBox[1], el.BBox[2], el.BBox[3]}
			}
			req.Headings = append(req.Headings, act)
		case "image_alt":
			req.AltTexts = append(req.AltTexts, AltTextAction{
				ImageID: el.ImageXref,
				AltText: el.AltText,
			})
		case "table":
			req.Tables = append(req.Tables, TableAction{
				TableID:    el.TableID,
				Page:       el.Page,
				HeaderRows: el.HeaderRows,
				Rows:       el.Rows,
			})
		case "link":
			req.Links = append(req.Links, LinkAction{
				LinkID: el.LinkID,
				Page:   el.Page,
				Text:   el.LinkText,
				URL:    el.LinkURL,
			})
		}
	}
	return req
}

// imageExtensions mark alt text that is really a filename.
var imageExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".svg", ".webp",
}

// IsFilenameAlt reports whether existing alt text is a placeholder worth
// replacing: empty, a filename, an auto-generated screenshot name, or a
// short dotted string with no spaces. Anything longer than 20 characters
// of prose is assumed to be deliberate.
func IsFilenameAlt(alt string) bool {
	a := strings.ToLower(strings.TrimSpace(alt))
	if a == "" {
		return true
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(a, ext) {
			return true
		}
	}
	if strings.HasPrefix(a, "screen shot") || strings.HasPrefix(a, "image") {
		return true
	}
	if strings.Contains(a, ".") && !strings.Contains(a, " ") && len(a) < 30 {
		return true
	}
	return len(a) <= 20 && !strings.Contains(a, " ")
}
