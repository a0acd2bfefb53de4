package tunable

import (
	"testing"

	"github.com/edaniels/golog"
	"go.viam.com/test"
)

func TestTunables(t *testing.T) {
	ts := New(golog.NewTestLogger(t))
	test.That(t, ts.Current(), test.ShouldBeNil)
	test.That(t, ts.AdjustCurrent(1), test.ShouldBeNil)
	ts.SelectNext() // No-op when empty.

	kp := ts.Create("kp", 0.02, 0.001)
	ki := ts.Create("ki", 0.5, 0.1)
	test.That(t, kp.Get(), test.ShouldEqual, 20)
	test.That(t, kp.Float(), test.ShouldAlmostEqual, 0.02)

	test.That(t, ts.Current(), test.ShouldEqual, kp)
	ts.AdjustCurrent(5)
	test.That(t, kp.Float(), test.ShouldAlmostEqual, 0.025)

	ts.SelectNext()
	test.That(t, ts.Current(), test.ShouldEqual, ki)
	ts.SelectNext()
	test.That(t, ts.Current(), test.ShouldEqual, kp)
	ts.SelectPrev()
	test.That(t, ts.Current(), test.ShouldEqual, ki)
	ts.AdjustCurrent(-2)
	test.That(t, ki.Float(), test.ShouldAlmostEqual, 0.3)
}

func TestTunableFloorsAtZero(t *testing.T) {
	ts := New(golog.NewTestLogger(t))
	tol := ts.Create("tolerance", 1, 0.5)
	test.That(t, tol.Get(), test.ShouldEqual, 2)
	for i := 0; i < 5; i++ {
		ts.AdjustCurrent(-1)
	}
	test.That(t, tol.Get(), test.ShouldEqual, 0)
	test.That(t, tol.Float(), test.ShouldEqual, 0.0)
	ts.AdjustCurrent(1)
	test.That(t, tol.Float(), test.ShouldEqual, 0.5)

	neg := ts.Create("negative", -3, 1)
	test.That(t, neg.Get(), test.ShouldEqual, 0)
}
