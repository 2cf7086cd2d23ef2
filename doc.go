/*
Package branch turns a sequential computation into a tree of concurrently
executing branches.

Lifecycle

A branch is born either by forking from an existing branch's saved
continuation (becoming a child of that node in the tree), or a new tree is
started by calling [NewRoot]. Each branch owns a [Context]: its saved
continuation, a one-slot mailbox, an inbox for child events, a handle to the
parent's inbox, the set of its own still-running children, and a shared
credit handle that bounds how many siblings may run concurrently.

A branch spawned onto its own worker terminates by sending exactly one
ChildDone event to its parent's inbox, whether it succeeded, failed, or was
cancelled. When such a branch fails, its own children are cancelled and the
failure propagates toward the root as the branch's own ChildDone. A branch
run in-line on its parent's worker sends no ChildDone: it forwards its leaf
values as a PassOnResult, and its error is returned directly to the caller.

Fan-out and credit

Forking a branch onto its own worker costs one unit of credit, taken from a
[CreditHandle] shared by the whole [Threads] scope. When no credit is free,
the fork either runs the branch in-line on the current worker (if nothing
is currently pending) or blocks on the next sibling to finish and retries.
This makes concurrency degrade gracefully to sequential execution under
credit pressure rather than deadlocking.

Generators

[Parallel], [WaitEvents], [Async], and [Sample] are the user-facing
constructs built on top of the core fork/reap machinery; [Sync] and
[Threads] adjust, respectively, whether a sub-computation may delegate to a
new worker and how many workers a sub-computation may use.
*/
package branch
