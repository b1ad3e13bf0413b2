package remediate

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/jenniferbk/WCAGproject-sub000/observability"
)

// Defaults for the verification gates. The heading limit is tight because
// a BDC/EMC wrapper must not move a single glyph; the contrast limit is
// loose because recoloring text legitimately changes pixels, and exists to
// catch a color operator that turned out to paint a background.
const (
	DefaultMaxHeadingAttempts = 5
	DefaultHeadingDiffLimit   = 0.5
	DefaultContrastDiffLimit  = 15.0
)

// Config tunes one engine instance. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// MaxHeadingAttempts bounds the inject-verify-revert loop per heading.
	MaxHeadingAttempts int `validate:"min=1,max=50"`
	// HeadingDiffLimit is the accept threshold (percent) for heading tags.
	HeadingDiffLimit float64 `validate:"gt=0,lte=100"`
	// ContrastDiffLimit is the accept threshold (percent) for a page's
	// batch of contrast edits.
	ContrastDiffLimit float64 `validate:"gt=0,lte=100"`
	// RenderDPI is the comparison resolution.
	RenderDPI float64 `validate:"gt=0,lte=300"`
	// Verify enables render-and-diff checks. Off, content edits apply
	// blind; only tests and trusted pipelines should turn this off.
	Verify bool
	// DeferTier2 records heading and contrast actions as warnings instead
	// of applying them, for pipelines that hand those to the external
	// tagger.
	DeferTier2 bool
	// ValidateOutput runs a relaxed structural validation of the saved
	// file and downgrades findings to warnings.
	ValidateOutput bool

	Logger observability.Logger `validate:"-"`
}

func DefaultConfig() Config {
	return Config{
		MaxHeadingAttempts: DefaultMaxHeadingAttempts,
		HeadingDiffLimit:   DefaultHeadingDiffLimit,
		ContrastDiffLimit:  DefaultContrastDiffLimit,
		RenderDPI:          72,
		Verify:             true,
		Logger:             observability.NopLogger{},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("remediate: config: %w", err)
	}
	return nil
}

// Request is the full fix set for one document. Source is never opened
// for writing; all edits land in a copy at Output.
type Request struct {
	Source string `validate:"required"`
	Output string `validate:"required,nefield=Source"`

	Metadata   Metadata
	AltTexts   []AltTextAction    `validate:"dive"`
	Decorative []DecorativeAction `validate:"dive"`
	Headings   []HeadingAction    `validate:"dive"`
	ColorFixes []ColorFix         `validate:"dive"`
	Tables     []TableAction      `validate:"dive"`
	Links      []LinkAction       `validate:"dive"`
}

func (r *Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("remediate: request: %w", err)
	}
	return nil
}
