package remediate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/jenniferbk/WCAGproject-sub000/observability"
	"github.com/jenniferbk/WCAGproject-sub000/pdf"
	"github.com/jenniferbk/WCAGproject-sub000/structtree"
)

// Engine applies fix requests. One Engine is safe to share across
// concurrent Apply calls because each call owns its own document handle
// and output file.
type Engine struct {
	cfg Config
	log observability.Logger
}

func New(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// Apply runs one write session: copy source to output, apply Tier-1 fixes
// (metadata, alt text, tables, links) unconditionally and Tier-2 fixes
// (headings, contrast) through the verified paths, then perform exactly
// one incremental save and one close. Per-fix failures become warnings;
// only unreadable input or a failed save/close makes Success false.
func (e *Engine) Apply(ctx context.Context, req Request) *Result {
	res := newResult(req.Output)
	if err := req.Validate(); err != nil {
		res.fail("%v", err)
		return res
	}

	data, err := os.ReadFile(req.Source)
	if err != nil {
		res.fail("read source: %v", err)
		return res
	}
	if err := os.WriteFile(req.Output, data, 0o644); err != nil {
		res.fail("create output: %v", err)
		return res
	}
	doc, err := pdf.Open(req.Output, pdf.WithLogger(e.log))
	if err != nil {
		os.Remove(req.Output)
		res.fail("open: %v", err)
		return res
	}

	e.applyAll(ctx, doc, req, res)

	start := time.Now()
	if err := doc.SaveIncremental(); err != nil {
		res.fail("save: %v", err)
	}
	if err := doc.Close(); err != nil {
		res.fail("close: %v", err)
	}
	e.log.Info("session finished",
		observability.String("output", req.Output),
		observability.Bool("success", res.Success),
		observability.Int("changes", len(res.Changes)),
		observability.Int("warnings", len(res.Warnings)),
		observability.Float64(observability.MetricSaveTime, time.Since(start).Seconds()))

	if res.Success && e.cfg.ValidateOutput {
		e.validateOutput(res)
	}
	return res
}

func (e *Engine) applyAll(ctx context.Context, doc *pdf.Document, req Request, res *Result) {
	tier1 := []struct {
		name string
		run  func()
	}{
		{"metadata", func() { e.applyMetadata(doc, req.Metadata, res) }},
		{"alt text", func() { e.applyAltText(doc, req.AltTexts, req.Decorative, res) }},
		{"tables", func() { e.applyTables(doc, req.Tables, res) }},
		{"links", func() { e.applyLinks(doc, req.Links, res) }},
	}
	for _, step := range tier1 {
		if err := ctx.Err(); err != nil {
			res.warn("%s skipped: %v", step.name, err)
			return
		}
		step.run()
	}

	if e.cfg.DeferTier2 {
		if len(req.Headings) > 0 {
			res.warn("%d heading action(s) deferred to external tagger", len(req.Headings))
		}
		if len(req.ColorFixes) > 0 {
			res.warn("%d contrast fix(es) deferred to external tagger", len(req.ColorFixes))
		}
		return
	}
	if err := ctx.Err(); err != nil {
		res.warn("tier-2 fixes skipped: %v", err)
		return
	}
	e.applyHeadings(doc, req.Headings, res)
	if err := ctx.Err(); err != nil {
		res.warn("contrast fixes skipped: %v", err)
		return
	}
	e.applyContrast(doc, req.ColorFixes, res)
}

func (e *Engine) validateOutput(res *Result) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(res.OutputPath, conf); err != nil {
		res.warn("output validation: %v", err)
	}
}

// StripStructTree copies source to output and removes the structure tree
// from the copy. Pipelines run this before handing a document to the
// external tagger, which refuses to retag an already tagged file.
func (e *Engine) StripStructTree(source, output string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("remediate: read source: %w", err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("remediate: create output: %w", err)
	}
	doc, err := pdf.Open(output, pdf.WithLogger(e.log))
	if err != nil {
		os.Remove(output)
		return fmt.Errorf("remediate: open: %w", err)
	}
	mgr := structtree.NewManager(doc, e.log)
	stripErr := mgr.Strip()
	saveErr := doc.SaveIncremental()
	closeErr := doc.Close()
	for _, err := range []error{stripErr, saveErr, closeErr} {
		if err != nil {
			return fmt.Errorf("remediate: strip: %w", err)
		}
	}
	return nil
}
