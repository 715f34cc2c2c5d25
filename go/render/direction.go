package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type Direction int

const (
	Down Direction = iota
	Up
	North
	South
	West
	East
	NumDirections
)

var Directions = [NumDirections]Direction{Down, Up, North, South, West, East}

var directionNames = [NumDirections]string{"down", "up", "north", "south", "west", "east"}

var unitVecs = [NumDirections][3]int{
	Down:  {0, -1, 0},
	Up:    {0, 1, 0},
	North: {0, 0, -1},
	South: {0, 0, 1},
	West:  {-1, 0, 0},
	East:  {1, 0, 0},
}

func (d Direction) String() string {
	if d < 0 || d >= NumDirections {
		return "invalid"
	}
	return directionNames[d]
}

func (d Direction) UnitVec() [3]int {
	return unitVecs[d]
}

func (d Direction) Opposite() Direction {
	return d ^ 1
}

func FromUnitVec(v [3]int) (Direction, bool) {
	for d, u := range unitVecs {
		if u == v {
			return Direction(d), true
		}
	}
	return 0, false
}

// parseDirection accepts the face names used in model files, including the
// `bottom` alias for down.
func parseDirection(s string) (Direction, error) {
	if s == "bottom" {
		return Down, nil
	}
	for d, name := range directionNames {
		if name == s {
			return Direction(d), nil
		}
	}
	return 0, errors.Errorf("unknown direction `%s`, expected one of down, up, north, south, west, east", s)
}

// rotate turns d by a model rotation and snaps it back to an axis.
func (d Direction) rotate(q mgl32.Quat) Direction {
	u := d.UnitVec()
	r := q.Rotate(mgl32.Vec3{float32(u[0]), float32(u[1]), float32(u[2])})
	rd, ok := FromUnitVec([3]int{
		int(math.Round(float64(r[0]))),
		int(math.Round(float64(r[1]))),
		int(math.Round(float64(r[2]))),
	})
	if !ok {
		// only right-angle rotations reach here
		panic("direction rotated off axis")
	}
	return rd
}
