package remediate

import (
	"os"

	"github.com/jenniferbk/WCAGproject-sub000/observability"
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
	"github.com/jenniferbk/WCAGproject-sub000/structtree"
)

type altEntry struct {
	imageNum int
	alt      string // empty marks the image decorative
}

// applyAltText writes alt text onto figure elements. An already tagged
// document gets its existing /Figure elements updated in place; images
// that cannot be matched to an existing figure, and all images in an
// untagged document, get brand-new Figure elements under the root.
func (e *Engine) applyAltText(doc *pdf.Document, alts []AltTextAction, decorative []DecorativeAction, res *Result) {
	entries := make([]altEntry, 0, len(alts)+len(decorative))
	for _, a := range alts {
		entries = append(entries, altEntry{a.ImageID, a.AltText})
	}
	for _, d := range decorative {
		entries = append(entries, altEntry{d.ImageID, ""})
	}
	if len(entries) == 0 {
		return
	}

	mgr := structtree.NewManager(doc, e.log)
	figureFor := make(map[int]int)
	if _, ok := pdf.AsRef(doc.GetKey(doc.Catalog(), "StructTreeRoot")); ok {
		figures := mgr.FindByType("Figure")
		for fig, img := range mgr.MatchFiguresToImages(figures) {
			figureFor[img] = fig
		}
	}

	for _, entry := range entries {
		if fig, ok := figureFor[entry.imageNum]; ok {
			if err := mgr.SetAlt(fig, entry.alt); err != nil {
				res.warn("alt text for image %d: %v", entry.imageNum, err)
				continue
			}
			mgr.SetBreadcrumb(fig, entry.imageNum)
			e.recordAlt(res, entry, "updated")
			continue
		}
		if err := e.newFigure(doc, mgr, entry); err != nil {
			res.warn("alt text for image %d: %v", entry.imageNum, err)
			continue
		}
		e.recordAlt(res, entry, "tagged")
	}
}

func (e *Engine) recordAlt(res *Result, entry altEntry, verb string) {
	if entry.alt == "" {
		res.change("%s image %d as decorative", verb, entry.imageNum)
	} else {
		res.change("%s alt text for image %d", verb, entry.imageNum)
	}
}

// newFigure creates a Figure element for an image that has no existing
// tag, attaching it to the page the image is used on when that page can
// be found.
func (e *Engine) newFigure(doc *pdf.Document, mgr *structtree.Manager, entry altEntry) error {
	root, err := mgr.EnsureRoot()
	if err != nil {
		return err
	}
	page := mgr.PageOfImage(entry.imageNum)
	if page < 0 {
		page = 0
	}
	fig, err := mgr.NewElement(root, structtree.ElementSpec{
		Type: "Figure",
		Page: page,
		MCID: -1,
		Alt:  entry.alt,
	})
	if err != nil {
		return err
	}
	if entry.alt == "" {
		// ElementSpec skips empty Alt; decorative needs it present.
		if err := mgr.SetAlt(fig, ""); err != nil {
			return err
		}
	}
	return mgr.SetBreadcrumb(fig, entry.imageNum)
}

// UpdateFigureAltTexts is the post-tagging repair pass: it opens path in
// place and rewrites /Alt on every Figure whose current alt text is
// missing or looks like a filename. Figures previously matched by this
// engine are found through their breadcrumb; the rest fall back to image
// matching, each alt consumed at most once.
func (e *Engine) UpdateFigureAltTexts(path string, alts []AltTextAction) *Result {
	res := newResult(path)
	if _, err := os.Stat(path); err != nil {
		res.fail("input: %v", err)
		return res
	}
	doc, err := pdf.Open(path, pdf.WithLogger(e.log))
	if err != nil {
		res.fail("open: %v", err)
		return res
	}

	altFor := make(map[int]string, len(alts))
	for _, a := range alts {
		altFor[a.ImageID] = a.AltText
	}
	consumed := make(map[int]bool)

	mgr := structtree.NewManager(doc, e.log)
	figures := mgr.FindByType("Figure")
	var unmatched []int
	for _, fig := range figures {
		cur, ok := mgr.Alt(fig)
		if ok && !IsFilenameAlt(cur) {
			continue
		}
		if img := mgr.Breadcrumb(fig); img >= 0 {
			if alt, have := altFor[img]; have && !consumed[img] {
				if err := mgr.SetAlt(fig, alt); err != nil {
					res.warn("figure %d: %v", fig, err)
					continue
				}
				consumed[img] = true
				res.change("updated alt text for image %d", img)
				continue
			}
		}
		unmatched = append(unmatched, fig)
	}
	for fig, img := range mgr.MatchFiguresToImages(unmatched) {
		alt, have := altFor[img]
		if !have || consumed[img] {
			continue
		}
		if err := mgr.SetAlt(fig, alt); err != nil {
			res.warn("figure %d: %v", fig, err)
			continue
		}
		mgr.SetBreadcrumb(fig, img)
		consumed[img] = true
		res.change("updated alt text for image %d", img)
	}

	e.log.Info("alt text pass",
		observability.Int("figures", len(figures)),
		observability.Int("updated", len(res.Changes)))

	if err := doc.SaveIncremental(); err != nil {
		res.fail("save: %v", err)
	}
	if err := doc.Close(); err != nil {
		res.fail("close: %v", err)
	}
	return res
}
