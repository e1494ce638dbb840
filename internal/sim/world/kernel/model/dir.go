package model

import (
	"fmt"
	"strings"
)

// Dir is a cardinal facing on the XZ plane.
type Dir uint8

const (
	North Dir = iota // -Z
	East             // +X
	South            // +Z
	West             // -X
)

var CardinalDirs = [4]Dir{North, East, South, West}

func (d Dir) Offset() Vec3i {
	switch d & 3 {
	case North:
		return Vec3i{Z: -1}
	case East:
		return Vec3i{X: 1}
	case South:
		return Vec3i{Z: 1}
	default:
		return Vec3i{X: -1}
	}
}

// Rotate turns d clockwise by rot quarter turns.
func (d Dir) Rotate(rot int) Dir {
	rot %= 4
	if rot < 0 {
		rot += 4
	}
	return (d + Dir(rot)) & 3
}

func (d Dir) String() string {
	switch d & 3 {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	default:
		return "W"
	}
}

func ParseDir(s string) (Dir, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "N", "NORTH":
		return North, nil
	case "E", "EAST":
		return East, nil
	case "S", "SOUTH":
		return South, nil
	case "W", "WEST":
		return West, nil
	}
	return North, fmt.Errorf("bad direction %q", s)
}

// NormalizeRotation converts a rotation value into a quarter-turn count in
// [0,3]. It accepts either quarter-turns (0..3) or degrees (multiples of 90).
func NormalizeRotation(r int) int {
	if r%90 == 0 && (r > 3 || r < -3) {
		r = r / 90
	}
	r %= 4
	if r < 0 {
		r += 4
	}
	return r
}

// RotateXZ rotates an (x,z) offset around the Y axis by rot*90 degrees
// clockwise. rot must be a normalized quarter-turn count in [0,3].
func RotateXZ(x, z, rot int) (rx, rz int) {
	switch rot & 3 {
	case 0:
		return x, z
	case 1:
		return -z, x
	case 2:
		return -x, -z
	default: // 3
		return z, -x
	}
}

func RotateOffset(off Vec3i, rot int) Vec3i {
	rx, rz := RotateXZ(off.X, off.Z, rot)
	return Vec3i{X: rx, Y: off.Y, Z: rz}
}
