// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package transform

import (
	"image"
	"math"
	"testing"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/valyala/fastrand"
)

func TestAffineRoundTrip(t *testing.T) {
	a := NewAffine(geom.Transform2D{A: 0.5, B: 0.1, C: 10, D: -0.2, E: 0.75, F: -3})
	if !a.IsValid() {
		t.Fatalf("transform should be valid")
	}
	pts := []geom.Point2D{{X: 0, Y: 0}, {X: 100, Y: 7}, {X: -5.5, Y: 1e4}}
	for _, p := range pts {
		q := a.ViewToImage(a.ImageToView(p))
		if geom.Dist2D(p, q) > 1e-9 {
			t.Errorf("round trip of %v gave %v", p, q)
		}
	}
}

func TestAffineSingular(t *testing.T) {
	a := NewAffine(geom.Transform2D{A: 1, B: 2, D: 2, E: 4})
	if a.IsValid() {
		t.Errorf("singular transform reported valid")
	}
	if p := a.ViewToImage(geom.Point2D{X: 1, Y: 1}); !p.IsNaN() {
		t.Errorf("ViewToImage=%v; want NaN", p)
	}
	if b := a.ImageToViewBounds(image.Rect(0, 0, 10, 10)); !b.Empty() {
		t.Errorf("bounds=%v; want empty", b)
	}
}

func TestImageToViewBounds(t *testing.T) {
	tests := []struct {
		t    ImageViewTransform
		r    image.Rectangle
		want image.Rectangle
	}{
		{NewIdentity(), image.Rect(0, 0, 4096, 4096), image.Rect(0, 0, 4096, 4096)},
		{NewScale(2, 2), image.Rect(0, 0, 10, 5), image.Rect(0, 0, 19, 9)},
		{NewScale(0.5, 0.5), image.Rect(0, 0, 8, 8), image.Rect(0, 0, 5, 5)},
		{NewScale(-1, 1), image.Rect(0, 0, 4, 4), image.Rect(-3, 0, 1, 4)},
	}
	for _, test := range tests {
		if got := test.t.ImageToViewBounds(test.r); got != test.want {
			t.Errorf("%v bounds of %v=%v; want %v", test.t, test.r, got, test.want)
		}
	}
}

func TestScaled(t *testing.T) {
	s := NewScaled(NewIdentity(), 2)
	if p := s.ImageToView(geom.Point2D{X: 8, Y: 4}); p.X != 2 || p.Y != 1 {
		t.Errorf("ImageToView=%v; want (2,1)", p)
	}
	if p := s.ViewToImage(geom.Point2D{X: 2, Y: 1}); p.X != 8 || p.Y != 4 {
		t.Errorf("ViewToImage=%v; want (8,4)", p)
	}
	if b := s.ImageToViewBounds(image.Rect(0, 0, 16, 16)); b != image.Rect(0, 0, 5, 5) {
		t.Errorf("bounds=%v; want (0,0)-(5,5)", b)
	}
	if id := NewIdentity(); NewScaled(id, 0) != ImageViewTransform(id) {
		t.Errorf("level 0 should return the transform itself")
	}
}

func TestFitAffineExact(t *testing.T) {
	want := geom.Transform2D{A: 1.5, B: -0.25, C: 100, D: 0.3, E: 2, F: -50}
	rng := fastrand.RNG{}
	var img, view []geom.Point2D
	for i := 0; i < 20; i++ {
		p := geom.Point2D{X: float64(rng.Uint32n(1000)), Y: float64(rng.Uint32n(1000))}
		img = append(img, p)
		view = append(view, want.Apply(p))
	}
	a, rms, err := FitAffine(img, view, false)
	if err != nil {
		t.Fatal(err)
	}
	if rms > 1e-6 {
		t.Errorf("rms=%g; want 0", rms)
	}
	got := a.Fwd
	for i, pair := range [][2]float64{{got.A, want.A}, {got.B, want.B}, {got.C, want.C}, {got.D, want.D}, {got.E, want.E}, {got.F, want.F}} {
		if math.Abs(pair[0]-pair[1]) > 1e-6 {
			t.Errorf("coefficient %d=%f; want %f", i, pair[0], pair[1])
		}
	}
}

func TestFitAffineRobust(t *testing.T) {
	// unit grid with one gross outlier
	var img, view []geom.Point2D
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			p := geom.Point2D{X: float64(10 * x), Y: float64(10 * y)}
			img = append(img, p)
			view = append(view, geom.Point2D{X: p.X + 5, Y: p.Y - 5})
		}
	}
	view[5] = geom.Point2D{X: 500, Y: 500}

	plain, _, err := FitAffine(img, view, false)
	if err != nil {
		t.Fatal(err)
	}
	robust, _, err := FitAffine(img, view, true)
	if err != nil {
		t.Fatal(err)
	}
	probe := geom.Point2D{X: 30, Y: 30}
	wantP := geom.Point2D{X: 35, Y: 25}
	dPlain := geom.Dist2D(plain.ImageToView(probe), wantP)
	dRobust := geom.Dist2D(robust.ImageToView(probe), wantP)
	if !(dRobust < dPlain) {
		t.Errorf("robust error %f not below least squares error %f", dRobust, dPlain)
	}
}

func TestFitAffineErrors(t *testing.T) {
	p := []geom.Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}}
	if _, _, err := FitAffine(p, p, false); err == nil {
		t.Errorf("two points: want error")
	}
	collinear := []geom.Point2D{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}}
	if _, _, err := FitAffine(collinear, collinear, false); err == nil {
		t.Errorf("collinear points: want error")
	}
	if _, _, err := FitAffine(collinear, collinear[:3], false); err == nil {
		t.Errorf("count mismatch: want error")
	}
}

func TestMercator(t *testing.T) {
	// one degree per pixel, whole world
	m := NewMercator(GeoGrid{OriginLon: -180, OriginLat: 90, DegPerPixelX: 1, DegPerPixelY: -1}, 0, 256)
	if !m.IsValid() {
		t.Fatalf("mercator should be valid")
	}

	// lon 0, lat 0 maps to the view centre
	p := m.ImageToView(geom.Point2D{X: 180, Y: 90})
	if math.Abs(p.X-128) > 1e-9 || math.Abs(p.Y-128) > 1e-9 {
		t.Errorf("equator/meridian=%v; want (128,128)", p)
	}

	// beyond the latitude limit
	if p := m.ImageToView(geom.Point2D{X: 0, Y: 2}); !p.IsNaN() {
		t.Errorf("lat 88=%v; want NaN", p)
	}
	if p := m.ViewToImage(geom.Point2D{X: 10, Y: -1}); !p.IsNaN() {
		t.Errorf("above the map=%v; want NaN", p)
	}

	// round trip inside the valid band
	for _, q := range []geom.Point2D{{X: 10, Y: 20}, {X: 300, Y: 150}, {X: 180, Y: 6}} {
		r := m.ViewToImage(m.ImageToView(q))
		if geom.Dist2D(q, r) > 1e-6 {
			t.Errorf("round trip of %v gave %v", q, r)
		}
	}

	// bounds skip the NaN rows near the poles
	b := m.ImageToViewBounds(image.Rect(0, 0, 361, 181))
	if b.Empty() || b.Min.Y < -1 || b.Max.Y > 258 {
		t.Errorf("bounds=%v; want within the world square", b)
	}
}
