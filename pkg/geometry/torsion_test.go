package geometry

import (
	"math"
	"testing"
)

func TestAngleRightAngle(t *testing.T) {
	got := Angle(NewVector3(1, 0, 0), NewVector3(0, 0, 0), NewVector3(0, 1, 0))
	if math.Abs(got-90) > 1e-9 {
		t.Errorf("Angle failed: expected 90, got %v", got)
	}
}

func TestAngleStraight(t *testing.T) {
	got := Angle(NewVector3(-1, 0, 0), NewVector3(0, 0, 0), NewVector3(3, 0, 0))
	if math.Abs(got-180) > 1e-9 {
		t.Errorf("Angle failed: expected 180, got %v", got)
	}
}

func TestAngleDegenerate(t *testing.T) {
	p := NewVector3(1, 1, 1)
	if got := Angle(p, p, NewVector3(0, 0, 0)); got != 0 {
		t.Errorf("expected 0 for coincident points, got %v", got)
	}
}

func TestDihedralSign(t *testing.T) {
	a := NewVector3(1, 0, 0)
	b := NewVector3(0, 0, 0)
	c := NewVector3(0, 0, 1)

	plus := Dihedral(a, b, c, NewVector3(0, 1, 1))
	if math.Abs(plus-90) > 1e-9 {
		t.Errorf("expected +90, got %v", plus)
	}

	minus := Dihedral(a, b, c, NewVector3(0, -1, 1))
	if math.Abs(minus+90) > 1e-9 {
		t.Errorf("expected -90, got %v", minus)
	}

	cis := Dihedral(a, b, c, NewVector3(1, 0, 1))
	if math.Abs(cis) > 1e-9 {
		t.Errorf("expected 0 for cis, got %v", cis)
	}

	trans := Dihedral(a, b, c, NewVector3(-1, 0, 1))
	if math.Abs(math.Abs(trans)-180) > 1e-9 {
		t.Errorf("expected 180 for trans, got %v", trans)
	}
}

func TestBoundingBox(t *testing.T) {
	bbox := NewBoundingBox()
	if !bbox.IsEmpty() {
		t.Fatal("new bounding box should be empty")
	}
	bbox.Extend(NewVector3(-1, -2, -3))
	bbox.Extend(NewVector3(1, 2, 3))

	if bbox.Center() != NewVector3(0, 0, 0) {
		t.Errorf("Center failed: got %v", bbox.Center())
	}
	if bbox.Size() != NewVector3(2, 4, 6) {
		t.Errorf("Size failed: got %v", bbox.Size())
	}
	if math.Abs(bbox.Radius()-math.Sqrt(56)/2) > 1e-9 {
		t.Errorf("Radius failed: got %v", bbox.Radius())
	}
}
