package remediate

import (
	"github.com/jenniferbk/WCAGproject-sub000/observability"
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
	"github.com/jenniferbk/WCAGproject-sub000/structtree"
)

// Audit is a quick accessibility snapshot of one file: the checks a
// reviewer looks at first when deciding whether a document needs another
// remediation pass.
type Audit struct {
	Pages             int    `json:"pages"`
	Tagged            bool   `json:"tagged"`
	Marked            bool   `json:"marked"`
	Title             string `json:"title,omitempty"`
	HasTitle          bool   `json:"has_title"`
	Language          string `json:"language,omitempty"`
	HasLanguage       bool   `json:"has_language"`
	Figures           int    `json:"figures"`
	FiguresMissingAlt int    `json:"figures_missing_alt"`
	Headings          int    `json:"headings"`
}

// AuditFile opens path read-only and reports its accessibility state.
func AuditFile(path string, log observability.Logger) (*Audit, error) {
	doc, err := pdf.Open(path, pdf.WithLogger(log))
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	return AuditDocument(doc, log), nil
}

// AuditDocument inspects an open document without mutating it.
func AuditDocument(doc *pdf.Document, log observability.Logger) *Audit {
	a := &Audit{Pages: doc.PageCount()}
	cat := doc.Catalog()

	if _, ok := pdf.AsRef(doc.GetKey(cat, "StructTreeRoot")); ok {
		a.Tagged = true
	}
	if mi, ok := pdf.AsDict(doc.Resolve(doc.GetKey(cat, "MarkInfo"))); ok {
		if marked, ok := mi.Get("Marked"); ok {
			if b, isBool := marked.(pdf.Bool); isBool {
				a.Marked = bool(b)
			}
		}
	}
	if title, ok := doc.InfoKey("Title"); ok && title != "" {
		a.Title, a.HasTitle = title, true
	}
	if s, ok := pdf.AsString(doc.Resolve(doc.GetKey(cat, "Lang"))); ok {
		if lang := pdf.DecodeTextString(s); lang != "" {
			a.Language, a.HasLanguage = lang, true
		}
	}

	if a.Tagged {
		mgr := structtree.NewManager(doc, log)
		figures := mgr.FindByType("Figure")
		a.Figures = len(figures)
		for _, fig := range figures {
			if alt, ok := mgr.Alt(fig); !ok || IsFilenameAlt(alt) {
				a.FiguresMissingAlt++
			}
		}
		for level := 1; level <= 6; level++ {
			a.Headings += len(mgr.FindByType(headingTag(level)))
		}
	}
	return a
}
