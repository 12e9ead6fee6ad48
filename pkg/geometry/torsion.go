package geometry

import "math"

// Angle returns the angle a-b-c at vertex b, in degrees.
// Degenerate input (coincident points) yields 0.
func Angle(a, b, c Vector3) float64 {
	u := a.Sub(b)
	w := c.Sub(b)
	denom := u.Length() * w.Length()
	if denom == 0 {
		return 0
	}
	cos := u.Dot(w) / denom
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// Dihedral returns the signed torsion angle a-b-c-d in degrees, in (-180, 180].
// It follows the IUPAC convention: looking along b->c, positive is clockwise.
func Dihedral(a, b, c, d Vector3) float64 {
	b1 := b.Sub(a)
	b2 := c.Sub(b)
	b3 := d.Sub(c)

	n1 := b1.Cross(b2)
	n2 := b2.Cross(b3)

	x := n1.Dot(n2)
	y := b2.Length() * b1.Dot(n2)
	if x == 0 && y == 0 {
		return 0
	}
	return math.Atan2(y, x) * 180 / math.Pi
}
