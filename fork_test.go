package branch

import (
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

// TestFirstErrorCancelsSiblingAndRestoresCredit covers two concurrent
// branches where one fails: the reaper cancels every still-pending
// sibling on the first recorded error, and every acquired credit unit is
// still released exactly once.
func TestFirstErrorCancelsSiblingAndRestoresCredit(t *testing.T) {
	Convey("a sibling error cancels its still-pending sibling", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 2)

		boom := errors.New("boom")
		child1 := root.childContext(func(*Context[int]) error {
			return boom
		})

		var mu sync.Mutex
		cancelled2 := false
		child2 := root.childContext(func(ctx *Context[int]) error {
			<-ctx.Done()
			mu.Lock()
			cancelled2 = true
			mu.Unlock()
			return ctx.Err()
		})

		So(gate(root, child1), ShouldBeNil)
		So(gate(root, child2), ShouldBeNil)

		err := drainAll(root, nil)

		So(errors.Is(err, boom), ShouldBeTrue)
		mu.Lock()
		So(cancelled2, ShouldBeTrue)
		mu.Unlock()
		So(root.credit.Available(), ShouldEqual, int64(2))
		So(root.pendingCount(), ShouldEqual, 0)
	})
}

// TestCreditNeverNegative checks credit availability stays within bounds
// across many forks.
func TestCreditNeverNegative(t *testing.T) {
	Convey("credit never goes negative across many forks", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 3)

		for i := 0; i < 20; i++ {
			child := root.childContext(func(*Context[int]) error { return nil })
			So(gate(root, child), ShouldBeNil)
			So(root.credit.Available(), ShouldBeGreaterThanOrEqualTo, int64(0))
		}

		So(drainAll(root, nil), ShouldBeNil)
		So(root.credit.Available(), ShouldEqual, int64(3))
	})
}

// TestSyncForcesInline checks that inside Sync, no new worker is ever
// spawned regardless of available credit.
func TestSyncForcesInline(t *testing.T) {
	Convey("Sync forces every fork in its scope to run in-line", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 8)

		var ran []int
		var mu sync.Mutex
		action := sequenceAction([]StreamData[int]{More(1), More(2), Last(3)})

		spawnedBefore := testutil.ToFloat64(forksSpawnedCounter)

		err := Sync(root, func() error {
			return Parallel(func() StreamData[int] {
				sd := action()
				mu.Lock()
				ran = append(ran, sd.Value())
				mu.Unlock()
				return sd
			})(root)
		})

		So(err, ShouldBeNil)
		So(root.credit.Available(), ShouldEqual, int64(8))
		So(ran, ShouldResemble, []int{1, 2, 3})
		So(testutil.ToFloat64(forksSpawnedCounter), ShouldEqual, spawnedBefore)
	})
}

// TestInlineForkResultReachesParentWithoutPending checks that a child run
// by the sync fallback (zero credit, nothing pending) still gets folded
// into the parent's accumulator, even though that child is never added to
// pendingChildren — regression test for the in-line PassOnResult getting
// stranded in the inbox when draining was gated solely on hasPending().
func TestInlineForkResultReachesParentWithoutPending(t *testing.T) {
	Convey("an in-line fork's result is not stranded in the parent's inbox", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 0)

		child := root.childContext(func(ctx *Context[int]) error {
			ctx.addResults(7)
			return nil
		})

		So(root.hasPending(), ShouldBeFalse)
		So(gate(root, child), ShouldBeNil)
		So(root.hasPending(), ShouldBeFalse)

		So(drainAll(root, nil), ShouldBeNil)
		So(root.accumResults, ShouldResemble, []int{7})
	})
}

func sequenceAction(events []StreamData[int]) Action[int] {
	i := 0
	return func() StreamData[int] {
		sd := events[i]
		i++
		return sd
	}
}
