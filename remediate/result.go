package remediate

import "fmt"

// Result reports what one write session did. Partial application is the
// normal case: per-fix failures land in Warnings and Success stays true;
// only input and save/close failures flip Success off. Changes accumulated
// before a fatal error are still reported.
type Result struct {
	Success    bool     `json:"success"`
	OutputPath string   `json:"output_path"`
	Changes    []string `json:"changes"`
	Warnings   []string `json:"warnings"`
	Errors     []string `json:"errors"`

	HeadingTagsApplied   int `json:"heading_tags_applied"`
	ContrastFixesApplied int `json:"contrast_fixes_applied"`
}

func newResult(outputPath string) *Result {
	return &Result{Success: true, OutputPath: outputPath}
}

func (r *Result) change(format string, args ...any) {
	r.Changes = append(r.Changes, fmt.Sprintf(format, args...))
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Result) fail(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Success = false
}
