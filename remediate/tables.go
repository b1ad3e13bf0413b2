package remediate

import (
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
	"github.com/jenniferbk/WCAGproject-sub000/structtree"
)

// applyTables builds Table/TR/TH/TD structure subtrees. Tables are
// structure-only: no marked content is injected, so they are Tier-1 safe
// and need no render verification.
func (e *Engine) applyTables(doc *pdf.Document, tables []TableAction, res *Result) {
	if len(tables) == 0 {
		return
	}
	mgr := structtree.NewManager(doc, e.log)
	root, err := mgr.EnsureRoot()
	if err != nil {
		res.warn("tables: %v", err)
		return
	}
	for _, t := range tables {
		page, err := doc.PageRef(t.Page)
		if err != nil {
			res.warn("table %s: %v", t.TableID, err)
			continue
		}
		if err := e.buildTable(doc, mgr, root, page, t); err != nil {
			res.warn("table %s: %v", t.TableID, err)
			continue
		}
		res.change("tagged table with %d row(s) on page %d", len(t.Rows), t.Page)
	}
}

func (e *Engine) buildTable(doc *pdf.Document, mgr *structtree.Manager, root, page int, t TableAction) error {
	tableNum, err := mgr.NewElement(root, structtree.ElementSpec{
		Type: "Table", Page: page, MCID: -1,
	})
	if err != nil {
		return err
	}
	for rowIdx, row := range t.Rows {
		cellType := "TD"
		if rowIdx < t.HeaderRows {
			cellType = "TH"
		}
		rowNum, err := mgr.NewElement(tableNum, structtree.ElementSpec{
			Type: "TR", Page: page, MCID: -1,
		})
		if err != nil {
			return err
		}
		for _, cell := range row.Cells {
			cellNum, err := mgr.NewElement(rowNum, structtree.ElementSpec{
				Type: cellType, Page: page, MCID: -1,
			})
			if err != nil {
				return err
			}
			if cell.Text != "" {
				if err := doc.SetKey(cellNum, "ActualText", pdf.TextString(cell.Text)); err != nil {
					return err
				}
			}
			if cell.GridSpan > 1 {
				attrs := pdf.NewDict()
				attrs.Set("O", pdf.Name("Table"))
				attrs.Set("ColSpan", pdf.Integer(cell.GridSpan))
				if err := doc.SetKey(cellNum, "A", attrs); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// applyLinks creates Link structure elements carrying the link text as
// /Alt, which is what screen readers announce.
func (e *Engine) applyLinks(doc *pdf.Document, links []LinkAction, res *Result) {
	if len(links) == 0 {
		return
	}
	mgr := structtree.NewManager(doc, e.log)
	root, err := mgr.EnsureRoot()
	if err != nil {
		res.warn("links: %v", err)
		return
	}
	for _, l := range links {
		page, err := doc.PageRef(l.Page)
		if err != nil {
			res.warn("link %s: %v", l.LinkID, err)
			continue
		}
		if _, err := mgr.NewElement(root, structtree.ElementSpec{
			Type: "Link", Page: page, MCID: -1, Alt: l.Text,
		}); err != nil {
			res.warn("link %s: %v", l.LinkID, err)
			continue
		}
		res.change("tagged link %q on page %d", l.Text, l.Page)
	}
}
