package scenario

import (
	"math"

	"github.com/aretw0/graff/pkg/domain"
)

// HexagonOptions shapes the hexagonal loop.
type HexagonOptions struct {
	Robot   string
	Session string
	// Side is the length of each edge in metres.
	Side float64
	Mock bool
}

// DefaultHexagonOptions drives 10m sides.
func DefaultHexagonOptions() HexagonOptions {
	return HexagonOptions{Robot: "krakenoid", Session: "hexagonal", Side: 10}
}

// Hexagon builds a loop of six Pose2Pose2 odometry legs, each turning 60
// degrees, so x6 lands back on x0. A prior anchors x0 and one landmark is
// seen with bearing-range factors from x0 and x6, closing the loop.
func Hexagon(opts HexagonOptions) (*Plan, error) {
	robot, err := domain.NewRobot(opts.Robot, "ground robot driving a hexagon")
	if err != nil {
		return nil, err
	}
	b := &builder{plan: &Plan{Robot: robot, Session: opts.Session, Mock: opts.Mock, Solve: true}}

	odometry := diag(0.01, 0.01, 0.01)
	b.variable(pose(0), "Pose2")
	for i := 1; i <= 6; i++ {
		b.variable(pose(i), "Pose2")
		b.factor("Pose2Pose2", []string{pose(i - 1), pose(i)}, b.normal([]float64{opts.Side, 0, math.Pi / 3}, odometry))
	}
	b.factor("PriorPose2", []string{pose(0)}, b.normal([]float64{0, 0, 0}, odometry))

	b.variable("l1", "Point2")
	b.factor("Pose2Point2BearingRange", []string{pose(0), "l1"},
		domain.NewNormal(0, 0.1), domain.NewNormal(opts.Side, 1))
	// Same landmark, observed again once the loop is closed.
	b.factor("Pose2Point2BearingRange", []string{pose(6), "l1"},
		domain.NewNormal(0, 0.1), domain.NewNormal(opts.Side, 1))
	return b.done()
}
