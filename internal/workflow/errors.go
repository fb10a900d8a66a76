package workflow

import (
	"fmt"

	"github.com/spigell/smart-applier/internal/state"
)

// GraphValidationError reports a malformed workflow definition. It is only
// returned by Compile.
type GraphValidationError struct {
	Graph  string
	Stage  string
	Reason string
}

func (e *GraphValidationError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("workflow %q: %s", e.Graph, e.Reason)
	}
	return fmt.Sprintf("workflow %q: stage %q: %s", e.Graph, e.Stage, e.Reason)
}

// StageExecutionError reports a failed stage. Partial holds the record as it
// was before the failing stage ran.
type StageExecutionError struct {
	Graph   string
	Stage   string
	Err     error
	Partial state.Record
}

func (e *StageExecutionError) Error() string {
	return fmt.Sprintf("workflow %q: stage %q: %v", e.Graph, e.Stage, e.Err)
}

func (e *StageExecutionError) Unwrap() error {
	return e.Err
}
