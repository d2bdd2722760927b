package viewer

import (
	"errors"
	"fmt"
)

var (
	ErrViewerDeleted = errors.New("viewer has been deleted")
	ErrNoTable       = errors.New("no table loaded")
)

// EngineError reports a failed engine call. The viewer keeps its previous
// view when one fails.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s failed: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}
