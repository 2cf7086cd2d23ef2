package branch

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Action produces the next StreamData event for a Parallel generator. It
// is called repeatedly on the producer's own worker until it returns a
// terminal event (Last, Done, or Error).
type Action[T any] func() StreamData[T]

// IO is a plain user I/O action: it returns a value or an error. The
// convenience generators WaitEvents and Async wrap an IO into an Action.
type IO[T any] func() (T, error)

func toStreamData[T any](v T, err error, onValue func(T) StreamData[T]) StreamData[T] {
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Done[T]()
		}
		return Error[T](err)
	}
	return onValue(v)
}

// WaitEvents builds an infinite stream from a repeated I/O action:
// waitEvents(io) := parallel(More <$> io). fn returning io.EOF ends the
// stream with Done rather than an error.
func WaitEvents[T any](fn IO[T]) Action[T] {
	return func() StreamData[T] {
		v, err := fn()
		return toStreamData(v, err, More[T])
	}
}

// Async wraps a single deferred I/O action: async(io) := parallel(Last <$> io).
func Async[T any](fn IO[T]) Action[T] {
	return func() StreamData[T] {
		v, err := fn()
		return toStreamData(v, err, Last[T])
	}
}

// Sample emits an initial value immediately, then polls fn every interval,
// emitting only when the freshly polled value differs from the last one
// emitted. Equivalent to waitEvents(pollLoop) combined with async(initial)
// via the surrounding library's alternative operator (out of scope here),
// collapsed into a single self-contained Action since that combinator
// isn't part of this core.
func Sample[T comparable](fn IO[T], interval time.Duration) Action[T] {
	first := true
	var prev T
	return func() StreamData[T] {
		if first {
			first = false
			v, err := fn()
			if err != nil {
				return toStreamData(v, err, More[T])
			}
			prev = v
			return More(v)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			<-ticker.C
			v, err := fn()
			if err != nil {
				return toStreamData(v, err, More[T])
			}
			if v != prev {
				prev = v
				return More(v)
			}
		}
	}
}

// safeAction calls action, converting any panic into a StreamData.Error
// the same way a continuation's panic is folded into a branch error.
func safeAction[T any](action Action[T]) (sd StreamData[T]) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				sd = Error[T](e)
			} else {
				sd = Error[T](fmt.Errorf("branch: action panic: %v", r))
			}
		}
	}()
	return action()
}

// Parallel builds the Continuation driving a Action to completion: each call
// to action yields a StreamData event. More and Last events start a new
// branch that receives the carried value; the loop continues on More and
// stops on Last, Done, or Error. A fresh Context installed with this
// Continuation (see NewParallelRoot) plays the "producer" role on first
// entry; the same Continuation also plays the "resumed leaf" role when
// installed on a forked child whose mailbox already carries the event to
// feed it, so one function serves both sides of the fork.
func Parallel[T any](action Action[T]) Continuation[T] {
	return func(ctx *Context[T]) error {
		if sd, ok := ctx.mailbox.TakeResumed(); ok {
			return resumeParallel(ctx, sd)
		}
		// No resumed value waiting: this is the producer's first entry,
		// whether or not its mailbox was explicitly marked Suspended.
		ctx.mailbox.TakeSuspended()
		return driveParallel(ctx, action)
	}
}

func driveParallel[T any](ctx *Context[T], action Action[T]) error {
	for {
		sd := safeAction(action)
		child := ctx.childContext(Parallel(action))
		child.mailbox.PutResumed(sd)

		if sd.tag == streamError {
			// The child is responsible for surfacing an action error; it
			// always runs synchronously so the error isn't lost to an
			// in-flight fork decision.
			err := Run(child)
			restoreProducerLocation(ctx)
			return err
		}

		if err := gate(ctx, child); err != nil {
			return err
		}
		if sd.IsTerminal() {
			break
		}
	}
	restoreProducerLocation(ctx)
	return nil
}

func restoreProducerLocation[T any](ctx *Context[T]) {
	if ctx.getLocation() != RemoteNode {
		ctx.setLocation(WaitingParent)
	}
}

func resumeParallel[T any](ctx *Context[T], sd StreamData[T]) error {
	switch sd.tag {
	case streamError:
		return sd.Err()
	case streamMore, streamLast:
		ctx.addResults(sd.Value())
		return nil
	default: // streamDone
		return nil
	}
}

// NewParallelRoot constructs a root Context driving Parallel(action),
// funded with credit units of fan-out budget.
func NewParallelRoot[T any](action Action[T], credit int64) *Context[T] {
	root := NewRoot(Parallel(action), credit)
	root.mailbox.PutSuspended(root)
	return root
}

// Sync forces fn to run without delegating any of its own Parallel forks
// to a new worker, regardless of available credit. The prior location is
// restored on both normal and panicking exit.
func Sync[T any](ctx *Context[T], fn func() error) error {
	prev := ctx.getLocation()
	ctx.setLocation(RemoteNode)
	defer ctx.setLocation(prev)
	return fn()
}

// Threads bounds the concurrency available to fn's own Parallel forks to
// n extra workers, by swapping in a fresh CreditHandle for the duration of
// fn and restoring the enclosing one afterward; the restored handle's
// counter is unaffected by whatever happened inside. n == 0 forces every
// nested Parallel fork to use the sync fallback.
func Threads[T any](ctx *Context[T], n int64, fn func() error) error {
	prev := ctx.credit
	ctx.credit = NewCreditHandle(n)
	defer func() { ctx.credit = prev }()
	return fn()
}
