package branch

import "context"

// RunRoot drives a root Context to completion and returns the multiset of
// leaf values that reached it (their order is unspecified, since they may
// arrive from sibling branches racing each other) along with the first
// error observed anywhere in the tree, if any.
//
// deadline bounds how long RunRoot will wait for outstanding children to
// report back once the top-level continuation itself has returned.
// drainAll itself has no such escape hatch: a worker that never reports
// back would stall it forever. A root boundary can instead refuse to wait
// past its caller's deadline. Branches that are still outstanding when
// the deadline fires are asked to cancel, but RunRoot does not wait to
// confirm they actually do.
func RunRoot[T any](deadline context.Context, ctx *Context[T]) ([]T, error) {
	if !ctx.IsRoot() {
		panic("branch: RunRoot called with a non-root Context")
	}

	err := Run(ctx)
	if err != nil {
		ctx.cancelPending(Cancelled)
	}

	if drainErr := drainAllBounded(deadline, ctx, err); drainErr != nil {
		return nil, drainErr
	}
	return ctx.takeResults(), nil
}

// drainAllBounded behaves like drainAll — including draining any
// already-buffered event regardless of whether pendingChildren is
// non-empty, so results pushed by an in-line sync-fallback branch are
// never stranded — but also gives up with TimedOut if deadline expires
// before every pending child has reported in.
func drainAllBounded[T any](deadline context.Context, ctx *Context[T], initialErr error) error {
	recorded := initialErr
	if recorded != nil {
		ctx.cancelPending(Cancelled)
	}
	for {
		ev, ok := ctx.inbox.tryPop()
		if !ok {
			if !ctx.hasPending() {
				return recorded
			}
			ev, ok = ctx.inbox.popUntil(deadline.Done())
			if !ok {
				ctx.cancelPending(TimedOut)
				return TimedOut
			}
		}
		if recorded != nil {
			if ev.kind == childDone {
				ctx.removePending(ev.worker)
			}
			continue
		}
		forward, err := reapEvent(ctx, ev)
		if err != nil {
			recorded = err
			ctx.cancelPending(Cancelled)
			continue
		}
		if forward != nil {
			deliverForward(ctx, *forward)
		}
	}
}
