package voxel

import "fmt"

// Vec3i is a block position in world space.
type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

// Move returns v shifted n blocks along d.
func (v Vec3i) Move(d Direction, n int) Vec3i {
	off := d.Offset()
	return Vec3i{X: v.X + off.X*n, Y: v.Y + off.Y*n, Z: v.Z + off.Z*n}
}

func (v Vec3i) Up(n int) Vec3i   { return v.Move(Up, n) }
func (v Vec3i) Down(n int) Vec3i { return v.Move(Down, n) }

// Center returns the point at the middle of the block's floor.
func (v Vec3i) Center() (x, y, z float64) {
	return float64(v.X) + 0.5, float64(v.Y), float64(v.Z) + 0.5
}

func (v Vec3i) String() string { return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z) }

// Less orders positions by X, then Y, then Z.
func (v Vec3i) Less(o Vec3i) bool {
	if v.X != o.X {
		return v.X < o.X
	}
	if v.Y != o.Y {
		return v.Y < o.Y
	}
	return v.Z < o.Z
}

func Manhattan(a, b Vec3i) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dy + dz
}
