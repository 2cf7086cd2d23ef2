package branch

// Run drives ctx's saved continuation to completion, recovering any panic
// into the same error path an explicit return would take. On success, if
// ctx is non-root and has accumulated leaf values, it forwards them to the
// parent as a single PassOnResult; root contexts keep their values in the
// accumulator, where RunRoot collects them. Used directly for the sync
// fallback and for the root; spawned workers instead go through the
// worker frame in fork.go, which sends a ChildDone instead of a
// PassOnResult.
func Run[T any](ctx *Context[T]) error {
	if err := safeRunContinuation(ctx); err != nil {
		return err
	}
	if !ctx.IsRoot() {
		if vs := ctx.takeResults(); len(vs) > 0 {
			ctx.parent.push(PassOnResult(okResult(vs)))
		}
	}
	return nil
}
