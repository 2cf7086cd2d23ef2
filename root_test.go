package branch

import (
	"context"
	"sort"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRunRootSuccessPath(t *testing.T) {
	Convey("RunRoot returns every leaf value and a nil error on success", t, func() {
		action := sequenceAction([]StreamData[int]{More(1), More(2), Last(3)})
		root := NewParallelRoot(action, 4)

		deadline, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		values, err := RunRoot(deadline, root)
		So(err, ShouldBeNil)

		sort.Ints(values)
		So(values, ShouldResemble, []int{1, 2, 3})
	})
}

func TestRunRootPropagatesFirstError(t *testing.T) {
	Convey("RunRoot surfaces the first error raised anywhere in the tree", t, func() {
		boom := Error[int](errBoom)
		action := sequenceAction([]StreamData[int]{More(1), boom})
		root := NewParallelRoot(action, 4)

		deadline, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_, err := RunRoot(deadline, root)
		So(err, ShouldEqual, errBoom)
	})
}

func TestRunRootTimesOutOnStuckChild(t *testing.T) {
	Convey("RunRoot gives up with TimedOut when a child never reports back", t, func() {
		root := NewRoot(func(ctx *Context[int]) error {
			stuck := ctx.childContext(func(c *Context[int]) error {
				<-make(chan struct{}) // never fires; simulates an unreclaimable worker
				return nil
			})
			return gate(ctx, stuck)
		}, 4)

		deadline, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := RunRoot(deadline, root)
		So(err, ShouldEqual, TimedOut)
	})
}

func TestRunRootPanicsOnNonRoot(t *testing.T) {
	Convey("RunRoot rejects a non-root Context", t, func() {
		root := NewRoot(func(*Context[int]) error { return nil }, 1)
		child := root.childContext(func(*Context[int]) error { return nil })

		deadline, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		So(func() { RunRoot(deadline, child) }, ShouldPanic)
	})
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
