package recovery

// Strategy decides how the parser reacts to malformed structures in
// heterogeneous course PDFs (scanned syllabi, office exports, etc.).
type Strategy interface {
	OnError(err error, location Location) Action
}

// Location pinpoints where in the file the problem was found.
type Location struct {
	ByteOffset int64
	ObjectNum  int
	ObjectGen  int
	Component  string
}

type Action int

const (
	ActionFail Action = iota
	ActionSkip
	ActionFix
	ActionWarn
)
