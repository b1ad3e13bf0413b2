package recovery

import "fmt"

// StrictStrategy fails on the first malformed structure.
type StrictStrategy struct{}

func NewStrictStrategy() *StrictStrategy { return &StrictStrategy{} }

func (s *StrictStrategy) OnError(err error, location Location) Action {
	return ActionFail
}

// LenientStrategy patches what it can and collects everything it saw.
// Course documents are frequently produced by office-suite exporters with
// sloppy writers; a failed parse is worse than a noted irregularity.
type LenientStrategy struct {
	errs []error
}

func NewLenientStrategy() *LenientStrategy { return &LenientStrategy{} }

func (s *LenientStrategy) OnError(err error, location Location) Action {
	s.errs = append(s.errs, fmt.Errorf("[%s] object %d gen %d offset %d: %w",
		location.Component, location.ObjectNum, location.ObjectGen, location.ByteOffset, err))
	return ActionFix
}

// Errors returns everything recovered from so far, in encounter order.
func (s *LenientStrategy) Errors() []error { return s.errs }
