package branch

// reapEvent applies the single dispatch rule to one child event: update
// the pending set (ChildDone only), and report whether a
// result should be forwarded toward the parent, or the error that should
// be recorded.
func reapEvent[T any](ctx *Context[T], ev ChildEvent[T]) (forward *Result[T], recordedErr error) {
	childrenReapedCounter.Inc()
	switch ev.kind {
	case childDone:
		ctx.removePending(ev.worker)
		if ev.result.Err != nil {
			branchErrorsCounter.Inc()
			return nil, ev.result.Err
		}
		if len(ev.result.Values) == 0 {
			return nil, nil
		}
		r := okResult(ev.result.Values)
		return &r, nil
	case passOnResult:
		if ev.result.Err != nil {
			branchErrorsCounter.Inc()
			return nil, ev.result.Err
		}
		r := ev.result
		return &r, nil
	default:
		return nil, nil
	}
}

// deliverForward sends a forwarded result up ctx's parent channel, or, at
// the root (which has no parent to surface through), folds it straight
// into the root's own accumulator.
func deliverForward[T any](ctx *Context[T], r Result[T]) {
	if ctx.IsRoot() {
		ctx.addResults(r.Values...)
		return
	}
	ctx.parent.push(PassOnResult(r))
}

// tryReclaim drains ctx.inbox without blocking. It keeps going for as
// long as an event is ready — not only while pendingChildren is
// non-empty, since a child run in-line by the sync fallback (see gate in
// fork.go) was never added to pending and its PassOnResult would
// otherwise sit unread forever — and returns as soon as the inbox has
// nothing left. Any error observed is re-thrown immediately (the caller
// is itself inside a branch, so its own worker frame will catch it).
func tryReclaim[T any](ctx *Context[T]) error {
	for {
		ev, ok := ctx.inbox.tryPop()
		if !ok {
			return nil
		}
		forward, err := reapEvent(ctx, ev)
		if err != nil {
			ctx.cancelPending(Cancelled)
			return err
		}
		if forward != nil {
			deliverForward(ctx, *forward)
		}
	}
}

// waitOne blocks for exactly one child event, processes it, and re-throws
// on error. Used by the sync fallback of the credit-governed fork to make
// forward progress when no credit is free and a sibling is outstanding.
func waitOne[T any](ctx *Context[T]) error {
	ev := ctx.inbox.pop()
	forward, err := reapEvent(ctx, ev)
	if err != nil {
		ctx.cancelPending(Cancelled)
		return err
	}
	if forward != nil {
		deliverForward(ctx, *forward)
	}
	return nil
}

// drainAll blocks until pendingChildren is empty *and* the inbox has
// nothing left buffered, applying the reaper's error policy: once an
// error has been recorded (either passed in as initialErr, or observed
// during this drain), every subsequent event's payload is discarded, its
// worker id is still removed from pending, and the recorded error is
// what's ultimately returned. The first time an error is recorded, every
// other still-pending child is cancelled.
//
// An in-line branch (the sync fallback in gate, fork.go) never appears
// in pendingChildren, but still pushes its PassOnResult onto this same
// inbox; draining only while pending is non-empty would strand that
// event forever once no spawned child is outstanding, so every already-
// buffered event is drained unconditionally before falling back to a
// blocking wait on the next pending child.
func drainAll[T any](ctx *Context[T], initialErr error) error {
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
			ev = ctx.inbox.pop()
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
