package mathutil

import "math"

// Bounds is an axis-aligned box. An empty box has Min > Max.
type Bounds struct {
	Min, Max Vec3
}

// EmptyBounds returns a box that any point extends.
func EmptyBounds() Bounds {
	inf := float32(math.Inf(1))
	return Bounds{Min: Vec3{inf, inf, inf}, Max: Vec3{-inf, -inf, -inf}}
}

// Extend returns b grown to include p.
func (b Bounds) Extend(p Vec3) Bounds {
	for k := 0; k < 3; k++ {
		if p[k] < b.Min[k] {
			b.Min[k] = p[k]
		}
		if p[k] > b.Max[k] {
			b.Max[k] = p[k]
		}
	}
	return b
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool {
	return b.Min[0] > b.Max[0]
}

// Size returns the extent along each axis, zero for an empty box.
func (b Bounds) Size() Vec3 {
	if b.Empty() {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}
