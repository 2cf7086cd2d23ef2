package branch

import (
	"errors"
	"fmt"
	"strings"
)

// Cancelled is the sentinel error a branch's children are terminated with
// when a sibling's failure cancels the subtree. Mirrors the
// scope.Cancelled / scope.TimedOut pair in euphoria.io/scope.
var Cancelled = errors.New("branch: cancelled")

// TimedOut is returned by RunRoot when the root-level drain does not
// complete within the caller's deadline.
var TimedOut = errors.New("branch: timed out")

// BranchError wraps an error with the worker id that raised it and the
// path of ancestor worker ids, outermost first, so a caller can tell
// which branch of the tree actually failed.
type BranchError struct {
	Worker WorkerID
	Path   []WorkerID
	Err    error
}

func (e *BranchError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("branch %s: %s", e.Worker, e.Err)
	}
	parts := make([]string, len(e.Path))
	for i, id := range e.Path {
		parts[i] = id.String()
	}
	return fmt.Sprintf("branch %s (via %s): %s", e.Worker, strings.Join(parts, ">"), e.Err)
}

func (e *BranchError) Unwrap() error { return e.Err }

// newBranchError is called once per workerFrame hop, with id the worker
// whose drain just surfaced err. If err already names the worker that
// actually failed (a grandchild's error, wrapped by a deeper hop), id is
// an ancestor of it and is prepended to the existing path; otherwise id
// is itself the failing worker and the path starts empty.
func newBranchError(id WorkerID, err error) error {
	if err == nil {
		return nil
	}
	var be *BranchError
	if errors.As(err, &be) {
		path := make([]WorkerID, 0, len(be.Path)+1)
		path = append(path, id)
		path = append(path, be.Path...)
		return &BranchError{Worker: be.Worker, Path: path, Err: be.Err}
	}
	return &BranchError{Worker: id, Err: err}
}
