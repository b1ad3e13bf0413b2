package remediate

import (
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
)

// applyMetadata sets the document title (both /Info /Title and the
// viewer-preference to display it) and the catalog /Lang. Writing a value
// that is already present is a no-op: nothing is marked dirty and no
// change is recorded, so re-running the same fix set is idempotent.
func (e *Engine) applyMetadata(doc *pdf.Document, md Metadata, res *Result) {
	if md.Title != "" {
		cur, _ := doc.InfoKey("Title")
		if cur == md.Title {
			res.warn("title already set, no change")
		} else {
			if err := doc.SetInfoKey("Title", md.Title); err != nil {
				res.warn("set title: %v", err)
			} else {
				e.setDisplayDocTitle(doc, res)
				res.change("set document title to %q", md.Title)
			}
		}
	}
	if md.Language != "" {
		cat := doc.Catalog()
		cur := ""
		if s, ok := pdf.AsString(doc.Resolve(doc.GetKey(cat, "Lang"))); ok {
			cur = pdf.DecodeTextString(s)
		}
		if cur == md.Language {
			res.warn("language already set, no change")
		} else {
			if err := doc.SetKey(cat, "Lang", pdf.TextString(md.Language)); err != nil {
				res.warn("set language: %v", err)
			} else {
				res.change("set document language to %q", md.Language)
			}
		}
	}
}

// setDisplayDocTitle flips /ViewerPreferences /DisplayDocTitle so readers
// announce the title instead of the filename.
func (e *Engine) setDisplayDocTitle(doc *pdf.Document, res *Result) {
	cat := doc.Catalog()
	prefs, ok := pdf.AsDict(doc.Resolve(doc.GetKey(cat, "ViewerPreferences")))
	if !ok {
		prefs = pdf.NewDict()
	}
	prefs.Set("DisplayDocTitle", pdf.Bool(true))
	if err := doc.SetKey(cat, "ViewerPreferences", prefs); err != nil {
		res.warn("set viewer preferences: %v", err)
	}
}
