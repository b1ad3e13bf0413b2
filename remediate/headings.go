package remediate

import (
	"fmt"
	"image"
	"time"

	"github.com/jenniferbk/WCAGproject-sub000/contentstream"
	"github.com/jenniferbk/WCAGproject-sub000/observability"
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
	"github.com/jenniferbk/WCAGproject-sub000/render"
	"github.com/jenniferbk/WCAGproject-sub000/structtree"
)

// applyHeadings runs the inject-verify-revert state machine per action:
// locate the text span, wrap it in a BDC/EMC marked-content region, render
// the page, and accept only if the page looks unchanged. A rejected
// attempt restores the snapshot bytes verbatim and retries with a fresh
// MCID; once attempts run out the heading is given up as a warning.
// The structure element is created only after an attempt is accepted, so
// reverts never leave orphan elements behind.
func (e *Engine) applyHeadings(doc *pdf.Document, actions []HeadingAction, res *Result) {
	if len(actions) == 0 {
		return
	}
	mgr := structtree.NewManager(doc, e.log)
	for _, act := range actions {
		if err := e.applyHeading(doc, mgr, act, res); err != nil {
			res.warn("heading %q: %v", act.Text, err)
		}
	}
}

func (e *Engine) applyHeading(doc *pdf.Document, mgr *structtree.Manager, act HeadingAction, res *Result) error {
	tag := headingTag(act.Level)
	page, err := doc.PageRef(act.Page)
	if err != nil {
		return err
	}
	snapshot, err := doc.Content(page)
	if err != nil {
		return err
	}
	tokens := contentstream.Tokenize(snapshot)
	spans := contentstream.FindText(tokens, act.Text)
	if len(spans) == 0 {
		res.warn("heading %q: text not found on page %d", act.Text, act.Page)
		return nil
	}
	span := spans[0]

	// The baseline is rendered once, before any edit, and never again:
	// every attempt is compared against the same pre-edit image.
	var baseline *image.RGBA
	if e.cfg.Verify {
		baseline, err = e.renderPage(doc, page)
		if err != nil {
			return fmt.Errorf("baseline render: %w", err)
		}
	}

	for attempt := 0; attempt < e.cfg.MaxHeadingAttempts; attempt++ {
		mcid := attempt
		wrapped := contentstream.WrapMarkedContent(tokens, span, tag, mcid)
		if err := doc.SetContent(page, contentstream.Reassemble(wrapped)); err != nil {
			return err
		}
		if e.cfg.Verify {
			after, err := e.renderPage(doc, page)
			if err != nil {
				doc.SetContent(page, snapshot)
				return fmt.Errorf("verify render: %w", err)
			}
			diff := render.PixelDiff(baseline, after)
			if diff > e.cfg.HeadingDiffLimit {
				if err := doc.SetContent(page, snapshot); err != nil {
					return fmt.Errorf("revert: %w", err)
				}
				e.log.Warn("heading attempt reverted",
					observability.String("text", act.Text),
					observability.Int("attempt", attempt),
					observability.Float64("diff_pct", diff))
				continue
			}
		}
		root, err := mgr.EnsureRoot()
		if err != nil {
			return err
		}
		if _, err := mgr.NewElement(root, structtree.ElementSpec{
			Type: tag,
			Page: page,
			MCID: mcid,
		}); err != nil {
			return err
		}
		res.HeadingTagsApplied++
		res.change("tagged %q as %s on page %d", act.Text, tag, act.Page)
		e.log.Info("heading tagged",
			observability.String("tag", tag),
			observability.Int(observability.MetricHeadingsTagged, res.HeadingTagsApplied))
		return nil
	}
	res.warn("heading %q: gave up after %d attempts, page changed visibly each time",
		act.Text, e.cfg.MaxHeadingAttempts)
	e.log.Warn("heading given up",
		observability.String("text", act.Text),
		observability.Int("attempts", e.cfg.MaxHeadingAttempts))
	return nil
}

func (e *Engine) renderPage(doc *pdf.Document, page int) (*image.RGBA, error) {
	start := time.Now()
	img, err := render.PageImage(doc, page, e.cfg.RenderDPI)
	if err == nil {
		e.log.Debug("page rendered",
			observability.Float64(observability.MetricRenderTime, time.Since(start).Seconds()))
	}
	return img, err
}

// headingTag maps a level to its structure type, clamping deep outlines
// to H6 since PDF has no deeper heading type.
func headingTag(level int) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return fmt.Sprintf("H%d", level)
}
