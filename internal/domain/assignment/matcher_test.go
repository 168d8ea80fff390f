package assignment_test

import (
	"errors"
	"testing"

	"github.com/okian/roster/internal/domain/assignment"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseStrategy(t *testing.T) {
	Convey("Given strategy names", t, func() {
		cases := []struct {
			in   string
			want assignment.Strategy
			ok   bool
		}{
			{"strength", assignment.Strength, true},
			{"Optimal", assignment.Optimal, true},
			{" MIRROR ", assignment.Mirror, true},
			{"", assignment.Strength, false},
			{"hungarian", assignment.Strength, false},
		}

		Convey("Then they should resolve case-insensitively with a strength default", func() {
			for _, tc := range cases {
				got, ok := assignment.ParseStrategy(tc.in)
				So(got, ShouldEqual, tc.want)
				So(ok, ShouldEqual, tc.ok)
			}
		})
	})
}

func TestClampSize(t *testing.T) {
	Convey("Given requested sizes", t, func() {
		So(assignment.ClampSize(-1), ShouldEqual, 5)
		So(assignment.ClampSize(0), ShouldEqual, 5)
		So(assignment.ClampSize(5), ShouldEqual, 5)
		So(assignment.ClampSize(15), ShouldEqual, 15)
		So(assignment.ClampSize(50), ShouldEqual, 50)
		So(assignment.ClampSize(51), ShouldEqual, 50)
	})
}

func TestTargetCurve(t *testing.T) {
	Convey("Given a spread of weights", t, func() {
		Convey("Then the curve should interpolate linearly with floor", func() {
			So(assignment.TargetCurve(1000, 0, 5), ShouldResemble, []int{1000, 750, 500, 250, 0})
			So(assignment.TargetCurve(10, 0, 4), ShouldResemble, []int{10, 6, 3, 0})
			So(assignment.TargetCurve(16082, 15000, 3), ShouldResemble, []int{16082, 15541, 15000})
		})

		Convey("And equal extremes should give a flat curve", func() {
			So(assignment.TargetCurve(7, 7, 3), ShouldResemble, []int{7, 7, 7})
		})

		Convey("And degenerate sizes should be handled", func() {
			So(assignment.TargetCurve(9, 1, 1), ShouldResemble, []int{9})
			So(assignment.TargetCurve(9, 1, 0), ShouldBeEmpty)
		})
	})
}

func TestCostMatrix(t *testing.T) {
	Convey("Given weights and targets", t, func() {
		m := assignment.BuildCostMatrix([]int{10, 6, 1}, []int{10, 5, 0})

		Convey("Then entries should be absolute differences", func() {
			So(m, ShouldResemble, assignment.CostMatrix{
				{0, 5, 10},
				{4, 1, 6},
				{9, 4, 1},
			})
		})

		Convey("When reduced", func() {
			orig := m.Clone()
			m.Reduce()

			Convey("Then rows then columns should be shifted to zero minima", func() {
				So(m, ShouldResemble, assignment.CostMatrix{
					{0, 5, 10},
					{3, 0, 5},
					{8, 3, 0},
				})
			})

			Convey("And the clone should be untouched", func() {
				So(orig[1], ShouldResemble, []int{4, 1, 6})
			})
		})
	})

	Convey("Given an empty matrix", t, func() {
		m := assignment.BuildCostMatrix(nil, nil)
		So(func() { m.Reduce() }, ShouldNotPanic)
		So(m.Size(), ShouldEqual, 0)
	})
}

func TestMatch(t *testing.T) {
	Convey("Given a matrix with a unique zero matching", t, func() {
		m := assignment.CostMatrix{
			{1, 0, 1},
			{0, 1, 1},
			{1, 1, 0},
		}

		Convey("Then Match should return it", func() {
			got, err := assignment.Match(m)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []int{1, 0, 2})
		})
	})

	Convey("Given a matrix that needs an augmenting path", t, func() {
		m := assignment.CostMatrix{
			{0, 0, 1},
			{0, 1, 1},
			{1, 0, 0},
		}

		Convey("Then earlier rows should be moved to make room", func() {
			got, err := assignment.Match(m)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []int{1, 0, 2})
		})
	})

	Convey("Given an all-zero matrix", t, func() {
		m := make(assignment.CostMatrix, 6)
		for i := range m {
			m[i] = make([]int, 6)
		}

		Convey("Then every row should be matched to a distinct column", func() {
			got, err := assignment.Match(m)
			So(err, ShouldBeNil)
			seen := map[int]bool{}
			for _, c := range got {
				seen[c] = true
			}
			So(len(seen), ShouldEqual, 6)
		})
	})

	Convey("Given a matrix where two rows share their only zero", t, func() {
		m := assignment.CostMatrix{
			{0, 1, 1},
			{0, 1, 1},
			{1, 0, 0},
		}

		Convey("Then Match should report an incomplete matching", func() {
			got, err := assignment.Match(m)
			So(got, ShouldBeNil)
			So(errors.Is(err, assignment.ErrMatchIncomplete), ShouldBeTrue)
		})
	})

	Convey("Given an empty matrix", t, func() {
		got, err := assignment.Match(nil)
		So(err, ShouldBeNil)
		So(got, ShouldBeEmpty)
	})
}
