package voxel

import (
	"fmt"
	"strings"
)

// A Direction is one of the six axis-aligned unit vectors.
type Direction uint8

const (
	North Direction = iota // -Z
	South                  // +Z
	East                   // +X
	West                   // -X
	Up                     // +Y
	Down                   // -Y
)

var directionNames = [...]string{"NORTH", "SOUTH", "EAST", "WEST", "UP", "DOWN"}

// Horizontals lists the four directions a door can face.
var Horizontals = [4]Direction{North, East, South, West}

func (d Direction) Valid() bool { return d <= Down }

func (d Direction) Horizontal() bool { return d <= West }

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return directionNames[d]
}

func ParseDirection(s string) (Direction, error) {
	u := strings.ToUpper(strings.TrimSpace(s))
	for i, n := range directionNames {
		if n == u {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

func (d Direction) Offset() Vec3i {
	switch d {
	case North:
		return Vec3i{Z: -1}
	case South:
		return Vec3i{Z: 1}
	case East:
		return Vec3i{X: 1}
	case West:
		return Vec3i{X: -1}
	case Up:
		return Vec3i{Y: 1}
	case Down:
		return Vec3i{Y: -1}
	}
	return Vec3i{}
}

func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	case West:
		return East
	case Up:
		return Down
	case Down:
		return Up
	}
	return d
}

// RotateRight turns d a quarter clockwise about the vertical axis (seen from above).
// Up and Down are returned unchanged.
func (d Direction) RotateRight() Direction {
	switch d {
	case North:
		return East
	case East:
		return South
	case South:
		return West
	case West:
		return North
	}
	return d
}

// RotateLeft turns d a quarter counter-clockwise about the vertical axis.
func (d Direction) RotateLeft() Direction {
	switch d {
	case North:
		return West
	case West:
		return South
	case South:
		return East
	case East:
		return North
	}
	return d
}

// Yaw returns the look angle in degrees of an entity facing d:
// south 0, west 90, north 180, east 270. Vertical directions have no yaw.
func (d Direction) Yaw() (float64, bool) {
	switch d {
	case South:
		return 0, true
	case West:
		return 90, true
	case North:
		return 180, true
	case East:
		return 270, true
	}
	return 0, false
}
