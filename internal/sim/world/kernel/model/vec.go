package model

import "sort"

// Vec3i is a grid cell. Networks live on the XZ plane; Y is carried so that
// stacked layers never alias each other.
type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(o Vec3i) Vec3i { return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z} }

func VecFromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

// Less orders cells X, then Y, then Z.
func Less(a, b Vec3i) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

func SortCells(cells []Vec3i) {
	sort.Slice(cells, func(i, j int) bool { return Less(cells[i], cells[j]) })
}

// Neighbors returns the four cardinal neighbors of p in Dir order.
func Neighbors(p Vec3i) [4]Vec3i {
	var out [4]Vec3i
	for i, d := range CardinalDirs {
		out[i] = p.Add(d.Offset())
	}
	return out
}
