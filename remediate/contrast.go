package remediate

import (
	"os"

	"github.com/jenniferbk/WCAGproject-sub000/contentstream"
	"github.com/jenniferbk/WCAGproject-sub000/observability"
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
	"github.com/jenniferbk/WCAGproject-sub000/render"
)

type colorPair struct {
	orig, fixed contentstream.RGB
	label       string
}

// applyContrast rewrites matching color operands page by page. All fixes
// for one page are applied as a batch, then verified together; a batch
// whose render diverges too far is reverted whole and its changes dropped,
// since a large diff means some matched operator was painting geometry
// rather than text.
func (e *Engine) applyContrast(doc *pdf.Document, fixes []ColorFix, res *Result) {
	if len(fixes) == 0 {
		return
	}
	pairs := make([]colorPair, 0, len(fixes))
	for _, f := range fixes {
		orig, fixed, err := f.RGB()
		if err != nil {
			res.warn("contrast fix %s: %v", f.OriginalHex, err)
			continue
		}
		pairs = append(pairs, colorPair{orig, fixed, f.OriginalHex + " -> " + f.FixedHex})
	}
	if len(pairs) == 0 {
		return
	}

	for i := 0; i < doc.PageCount(); i++ {
		page, err := doc.PageRef(i)
		if err != nil {
			continue
		}
		if err := e.contrastPage(doc, page, i, pairs, res); err != nil {
			res.warn("contrast on page %d: %v", i, err)
		}
	}
}

func (e *Engine) contrastPage(doc *pdf.Document, page, index int, pairs []colorPair, res *Result) error {
	snapshot, err := doc.Content(page)
	if err != nil {
		return err
	}
	tokens := contentstream.Tokenize(snapshot)

	var applied []string
	for _, p := range pairs {
		if contentstream.ReplaceColor(tokens, p.orig, p.fixed) {
			applied = append(applied, p.label)
		}
	}
	if len(applied) == 0 {
		return nil
	}

	if e.cfg.Verify {
		before, err := e.renderPage(doc, page)
		if err != nil {
			return err
		}
		if err := doc.SetContent(page, contentstream.Reassemble(tokens)); err != nil {
			return err
		}
		after, err := e.renderPage(doc, page)
		if err != nil {
			doc.SetContent(page, snapshot)
			return err
		}
		diff := render.PixelDiff(before, after)
		if diff > e.cfg.ContrastDiffLimit {
			if err := doc.SetContent(page, snapshot); err != nil {
				return err
			}
			res.warn("contrast batch on page %d reverted: %.1f%% of pixels changed", index, diff)
			e.log.Warn("contrast batch reverted",
				observability.Int("page", index),
				observability.Float64("diff_pct", diff),
				observability.Int(observability.MetricEditsReverted, len(applied)))
			return nil
		}
	} else {
		if err := doc.SetContent(page, contentstream.Reassemble(tokens)); err != nil {
			return err
		}
	}

	for _, label := range applied {
		res.change("replaced color %s on page %d", label, index)
	}
	res.ContrastFixesApplied += len(applied)
	e.log.Info("contrast fixes applied",
		observability.Int("page", index),
		observability.Int(observability.MetricContrastFixes, len(applied)))
	return nil
}

// ApplyContrastFixes operates in place on an already remediated file, for
// pipelines that run contrast as a separate late pass. The same per-page
// batch-and-verify rules apply.
func (e *Engine) ApplyContrastFixes(path string, fixes []ColorFix) *Result {
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
	e.applyContrast(doc, fixes, res)
	if err := doc.SaveIncremental(); err != nil {
		res.fail("save: %v", err)
	}
	if err := doc.Close(); err != nil {
		res.fail("close: %v", err)
	}
	return res
}
