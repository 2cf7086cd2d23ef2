package branch

import (
	"context"
	"log"
	"sync"
)

// Location tags where a branch currently stands in the fork/delegate state
// machine.
type Location int

const (
	// Worker is the default: the branch is running on its own worker and
	// may delegate further work to new workers.
	Worker Location = iota
	// WaitingParent marks a branch that has forked its continuation onto a
	// child worker and is now just a producer waiting for the tree below
	// it to report back.
	WaitingParent
	// RemoteNode marks a branch running inside Sync: it must not delegate,
	// regardless of available credit.
	RemoteNode
)

// Continuation is a resumable computation over a *Context. Running it
// drives the branch to completion (filling accumResults) or to a fork
// point (saving itself into the mailbox and returning). A returned error
// is the explicit-control-flow path for a failure inside the continuation;
// Run and the worker frame both also recover any panic and fold it into
// the same path.
type Continuation[T any] func(ctx *Context[T]) error

// mailboxKind distinguishes the two mailbox states: a captured
// continuation waiting to be forked, or a value ready to feed a resumed
// continuation.
type mailboxKind int

const (
	mailboxEmpty mailboxKind = iota
	mailboxSuspended
	mailboxResumed
)

// Mailbox is the one-slot hand-off between a generator and the
// continuation it resumes. It holds either the captured Context
// (pre-fork) or the next StreamData input (post-fork), never both.
type Mailbox[T any] struct {
	kind      mailboxKind
	suspended *Context[T]
	resumed   StreamData[T]
}

// PutSuspended stores the context-to-be-forked into the mailbox.
func (m *Mailbox[T]) PutSuspended(ctx *Context[T]) {
	m.kind = mailboxSuspended
	m.suspended = ctx
	m.resumed = StreamData[T]{}
}

// PutResumed stores the next input value into the mailbox.
func (m *Mailbox[T]) PutResumed(v StreamData[T]) {
	m.kind = mailboxResumed
	m.resumed = v
	m.suspended = nil
}

// TakeSuspended removes and returns the captured continuation, if any.
func (m *Mailbox[T]) TakeSuspended() (*Context[T], bool) {
	if m.kind != mailboxSuspended {
		return nil, false
	}
	ctx := m.suspended
	m.kind = mailboxEmpty
	m.suspended = nil
	return ctx, true
}

// TakeResumed removes and returns the pending input value, if any.
func (m *Mailbox[T]) TakeResumed() (StreamData[T], bool) {
	if m.kind != mailboxResumed {
		return StreamData[T]{}, false
	}
	v := m.resumed
	m.kind = mailboxEmpty
	m.resumed = StreamData[T]{}
	return v, true
}

// Context is the per-branch state carried along a computation: its saved
// continuation, mailbox, channels to its parent and children, the set of
// still-running children, the shared credit handle, and the values it has
// accumulated so far. A Context is exclusively owned by the worker running
// it; every other branch only ever sees it through its channels.
type Context[T any] struct {
	id           WorkerID
	continuation Continuation[T]
	mailbox      Mailbox[T]

	parent *eventQueue[T] // nil at the root
	inbox  *eventQueue[T]

	mu              sync.Mutex
	pendingChildren map[WorkerID]struct{}
	cancelFuncs     map[WorkerID]context.CancelCauseFunc
	accumResults    []T
	location        Location

	credit *CreditHandle
	logger *log.Logger

	stdctx context.Context
	cancel context.CancelCauseFunc
}

// NewRoot creates a fresh root Context with no parent, funded by credit
// units of fan-out budget. continuation is the top-level computation to
// drive; see [RunRoot].
func NewRoot[T any](continuation Continuation[T], credit int64) *Context[T] {
	stdctx, cancel := context.WithCancelCause(context.Background())
	return &Context[T]{
		id:              nextWorkerID(),
		continuation:    continuation,
		inbox:           newEventQueue[T](),
		pendingChildren: map[WorkerID]struct{}{},
		cancelFuncs:     map[WorkerID]context.CancelCauseFunc{},
		credit:          NewCreditHandle(credit),
		logger:          defaultLogger(),
		stdctx:          stdctx,
		cancel:          cancel,
	}
}

// Done returns a channel closed once this branch has been cancelled by an
// ancestor's error. User I/O actions may select on it to abandon work
// early; the core never requires this, it only offers it. Cancellation is
// best-effort against code that ignores it.
func (ctx *Context[T]) Done() <-chan struct{} { return ctx.stdctx.Done() }

// Err returns the cause this branch was cancelled with, or nil.
func (ctx *Context[T]) Err() error { return context.Cause(ctx.stdctx) }

// ID returns the worker id this context will run (or is running) under.
func (ctx *Context[T]) ID() WorkerID { return ctx.id }

// IsRoot reports whether this context has no parent queue.
func (ctx *Context[T]) IsRoot() bool { return ctx.parent == nil }

// childContext creates a new child Context of ctx: fresh pending set,
// fresh inbox, parent queue set to ctx's own inbox, same credit handle,
// empty accumulator.
func (ctx *Context[T]) childContext(continuation Continuation[T]) *Context[T] {
	stdctx, cancel := context.WithCancelCause(ctx.stdctx)
	return &Context[T]{
		id:              nextWorkerID(),
		continuation:    continuation,
		parent:          ctx.inbox,
		inbox:           newEventQueue[T](),
		pendingChildren: map[WorkerID]struct{}{},
		cancelFuncs:     map[WorkerID]context.CancelCauseFunc{},
		credit:          ctx.credit,
		logger:          ctx.logger,
		stdctx:          stdctx,
		cancel:          cancel,
	}
}

// addResults appends leaf values to this branch's accumulator. Only the
// owning worker may call this.
func (ctx *Context[T]) addResults(vs ...T) {
	ctx.accumResults = append(ctx.accumResults, vs...)
}

// takeResults drains and returns the accumulator.
func (ctx *Context[T]) takeResults() []T {
	vs := ctx.accumResults
	ctx.accumResults = nil
	return vs
}

// setLocation mutates the branch's state-machine tag. Only the owning
// worker may call this.
func (ctx *Context[T]) setLocation(loc Location) { ctx.location = loc }

func (ctx *Context[T]) getLocation() Location { return ctx.location }

// addPending records that worker id id has been spawned and its ChildDone
// has not yet been processed.
func (ctx *Context[T]) addPending(id WorkerID, cancel context.CancelCauseFunc) {
	ctx.mu.Lock()
	ctx.pendingChildren[id] = struct{}{}
	ctx.cancelFuncs[id] = cancel
	ctx.mu.Unlock()
}

func (ctx *Context[T]) removePending(id WorkerID) {
	ctx.mu.Lock()
	delete(ctx.pendingChildren, id)
	delete(ctx.cancelFuncs, id)
	ctx.mu.Unlock()
}

// cancelPending signals every still-pending child of ctx by invoking its
// cancel function. Called both by the reaper, when one sibling's failure
// should cancel the rest, and by a worker frame cancelling its own
// children on error.
func (ctx *Context[T]) cancelPending(cause error) {
	ctx.mu.Lock()
	cancels := make([]context.CancelCauseFunc, 0, len(ctx.cancelFuncs))
	for _, cancel := range ctx.cancelFuncs {
		cancels = append(cancels, cancel)
	}
	ctx.mu.Unlock()
	for _, cancel := range cancels {
		cancel(cause)
	}
}

func (ctx *Context[T]) hasPending() bool {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return len(ctx.pendingChildren) > 0
}

func (ctx *Context[T]) pendingCount() int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return len(ctx.pendingChildren)
}

// pendingIDs returns a snapshot of the still-outstanding child worker ids.
func (ctx *Context[T]) pendingIDs() []WorkerID {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ids := make([]WorkerID, 0, len(ctx.pendingChildren))
	for id := range ctx.pendingChildren {
		ids = append(ids, id)
	}
	return ids
}

// PendingCount reports the number of children spawned and not yet reaped.
// Exported for introspection tooling; the core itself only ever needs
// hasPending/pendingCount.
func (ctx *Context[T]) PendingCount() int { return ctx.pendingCount() }

// CreditAvailable reports the free fan-out budget visible to this branch.
// Exported for introspection tooling.
func (ctx *Context[T]) CreditAvailable() int64 { return ctx.credit.Available() }
