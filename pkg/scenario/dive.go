package scenario

import (
	"fmt"
	"math"

	"github.com/aretw0/graff/pkg/domain"
)

// DiveOptions shapes the lawn-mower survey.
type DiveOptions struct {
	Robot   string
	Session string
	// Legs is the number of constant-depth legs; depth grows 1m per leg.
	Legs int
	// PosesPerLeg is the number of poses on each leg.
	PosesPerLeg int
	// GridSize is the number of sonar returns per side of the square grid
	// observed from every pose. Zero disables landmarks.
	GridSize int
	// Standoff is the distance in metres from the vehicle to the wall.
	Standoff float64
	Mock     bool
}

// DefaultDiveOptions is three legs of ten poses with an 11x11 sonar grid.
func DefaultDiveOptions() DiveOptions {
	return DiveOptions{
		Robot:       "krakenoid3000",
		Session:     "first dive",
		Legs:        3,
		PosesPerLeg: 10,
		GridSize:    11,
		Standoff:    5,
		Mock:        true,
	}
}

// Dive builds a vertical lawn-mower survey of a wall with a hovering vehicle.
// Every pose gets a Pose3PriorZPR (depth, pitch and roll are measured
// directly) and an XYH odometry factor from the previous pose; the first pose
// of each leg is a pure dive. Each pose ranges a grid of Point3 returns with
// RangeAzimuthElevation factors, and the centre return of consecutive poses
// is matched with a Point3Point3 factor.
func Dive(opts DiveOptions) (*Plan, error) {
	if opts.Legs <= 0 || opts.PosesPerLeg <= 0 {
		return nil, fmt.Errorf("dive needs at least one leg and one pose per leg, got %d and %d", opts.Legs, opts.PosesPerLeg)
	}
	if opts.GridSize < 0 || opts.GridSize == 1 {
		return nil, fmt.Errorf("grid size must be 0 or at least 2, got %d", opts.GridSize)
	}
	robot, err := domain.NewRobot(opts.Robot, "hovering AUV surveying a wall")
	if err != nil {
		return nil, err
	}

	b := &builder{plan: &Plan{Robot: robot, Session: opts.Session, Mock: opts.Mock, Solve: true}}

	b.variable(pose(0), "Pose3")
	b.factor("PriorPose3", []string{pose(0)}, b.normal(make([]float64, 6), diag(0.01, 0.01, 0.01, 0.01, 0.01, 0.01)))

	direction := 1.0
	for leg := 0; leg < opts.Legs; leg++ {
		direction = -direction
		for j := 0; j < opts.PosesPerLeg; j++ {
			idx := leg*opts.PosesPerLeg + j + 1
			label := pose(idx)
			b.variable(label, "Pose3")

			b.factor("Pose3PriorZPR", []string{label}, b.normal([]float64{0, 0, 0}, diag(0.0001, 0.0001, 0.0001)))

			step := []float64{0, direction, 0}
			if j == 0 {
				step = []float64{0, 0, 0}
			}
			b.factor("Pose3Pose3PartialXYH", []string{pose(idx - 1), label}, b.normal(step, diag(0.01, 0.01, 0.0001)))

			sonarGrid(b, idx, opts.GridSize, opts.Standoff)
		}
	}
	return b.done()
}

func returnName(pose, id int) string { return fmt.Sprintf("p%d_%d", pose, id) }

// sonarGrid adds the returns seen from pose idx on a square grid spanning
// [-1, 1] metres in y and z at the given standoff.
func sonarGrid(b *builder, idx, size int, standoff float64) {
	if size == 0 {
		return
	}
	spacing := 2.0 / float64(size-1)
	id := 0
	for iz := 0; iz < size; iz++ {
		z := -1 + float64(iz)*spacing
		for iy := 0; iy < size; iy++ {
			y := -1 + float64(iy)*spacing
			pt := returnName(idx, id)
			b.variable(pt, "Point3")

			azimuth := math.Atan2(y, standoff)
			elevation := math.Atan2(z, math.Hypot(standoff, y))
			r := math.Sqrt(standoff*standoff + y*y + z*z)
			b.factor("RangeAzimuthElevation", []string{pose(idx), pt},
				domain.NewNormal(r, 0.01),
				domain.NewNormal(azimuth, 0.0001),
				domain.NewNormal(elevation, 0.0001),
			)
			id++
		}
	}

	// The vehicle moves one grid column per pose, so the centre return
	// of the previous pose is seen one column over.
	if idx > 1 && size > 2 {
		centre := (size/2)*size + size/2
		b.factor("Point3Point3", []string{returnName(idx-1, centre), returnName(idx, centre-1)},
			b.normal([]float64{0, 0, 0}, diag(0.01, 0.01, 0.01)))
	}
}
