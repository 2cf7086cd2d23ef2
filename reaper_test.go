package branch

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestReapEventChildDoneRemovesPending(t *testing.T) {
	Convey("reapEvent removes a ChildDone's worker from pending and forwards its values", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 1)
		child := root.childContext(func(*Context[int]) error { return nil })
		root.addPending(child.id, child.cancel)

		forward, err := reapEvent(root, ChildDone(child.id, okResult([]int{9})))
		So(err, ShouldBeNil)
		So(forward, ShouldNotBeNil)
		So(forward.Values, ShouldResemble, []int{9})
		So(root.hasPending(), ShouldBeFalse)
	})

	Convey("reapEvent on an empty-result ChildDone forwards nothing", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 1)
		child := root.childContext(func(*Context[int]) error { return nil })
		root.addPending(child.id, child.cancel)

		forward, err := reapEvent(root, ChildDone(child.id, okResult[int](nil)))
		So(err, ShouldBeNil)
		So(forward, ShouldBeNil)
	})

	Convey("reapEvent on an errored ChildDone returns the error and still removes pending", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 1)
		child := root.childContext(func(*Context[int]) error { return nil })
		root.addPending(child.id, child.cancel)

		boom := errors.New("boom")
		forward, err := reapEvent(root, ChildDone(child.id, errResult[int](boom)))
		So(err, ShouldEqual, boom)
		So(forward, ShouldBeNil)
		So(root.hasPending(), ShouldBeFalse)
	})

	Convey("reapEvent on PassOnResult does not touch pending", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 1)
		child := root.childContext(func(*Context[int]) error { return nil })
		root.addPending(child.id, child.cancel)

		forward, err := reapEvent(root, PassOnResult(okResult([]int{1, 2})))
		So(err, ShouldBeNil)
		So(forward.Values, ShouldResemble, []int{1, 2})
		So(root.pendingCount(), ShouldEqual, 1)
	})
}

func TestTryReclaimDoesNotBlockWhenEmpty(t *testing.T) {
	Convey("tryReclaim returns immediately when the inbox is empty", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 1)
		child := root.childContext(func(*Context[int]) error { return nil })
		root.addPending(child.id, child.cancel)

		So(tryReclaim(root), ShouldBeNil)
		So(root.pendingCount(), ShouldEqual, 1)
	})

	Convey("tryReclaim drains every event already queued", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 1)
		childA := root.childContext(func(*Context[int]) error { return nil })
		childB := root.childContext(func(*Context[int]) error { return nil })
		root.addPending(childA.id, childA.cancel)
		root.addPending(childB.id, childB.cancel)

		root.inbox.push(ChildDone(childA.id, okResult([]int{1})))
		root.inbox.push(ChildDone(childB.id, okResult([]int{2})))

		So(tryReclaim(root), ShouldBeNil)
		So(root.pendingCount(), ShouldEqual, 0)
		So(root.accumResults, ShouldResemble, []int{1, 2})
	})
}

func TestDrainAllCancelsSiblingsOnFirstError(t *testing.T) {
	Convey("drainAll records only the first error and cancels remaining pending", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 1)
		childA := root.childContext(func(*Context[int]) error { return nil })
		childB := root.childContext(func(*Context[int]) error { return nil })
		root.addPending(childA.id, childA.cancel)
		root.addPending(childB.id, childB.cancel)

		boom := errors.New("boom")
		other := errors.New("other")
		root.inbox.push(ChildDone(childA.id, errResult[int](boom)))
		root.inbox.push(ChildDone(childB.id, errResult[int](other)))

		err := drainAll(root, nil)
		So(err, ShouldEqual, boom)
		So(root.hasPending(), ShouldBeFalse)
	})
}

func TestDrainAllWithInitialErrorDiscardsFurtherResults(t *testing.T) {
	Convey("drainAll seeded with an initial error still drains pending and keeps that error", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 1)
		child := root.childContext(func(*Context[int]) error { return nil })
		root.addPending(child.id, child.cancel)

		root.inbox.push(ChildDone(child.id, okResult([]int{42})))

		boom := errors.New("boom")
		err := drainAll(root, boom)
		So(err, ShouldEqual, boom)
		So(root.hasPending(), ShouldBeFalse)
		So(root.accumResults, ShouldBeEmpty)
	})
}
