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
	"fmt"
	"image"

	"github.com/mlnoga/georender/internal/geom"
)

// An affine mapping from image to view space, with its precomputed inverse
type Affine struct {
	Fwd   geom.Transform2D // image to view
	Inv   geom.Transform2D // view to image
	valid bool
}

// Creates the identity transform
func NewIdentity() *Affine {
	return NewAffine(geom.IdentityTransform2D())
}

// Creates an affine transform from its forward image-to-view mapping.
// A singular mapping yields an invalid transform
func NewAffine(fwd geom.Transform2D) *Affine {
	a := &Affine{Fwd: fwd}
	inv, err := fwd.Invert()
	if err == nil {
		a.Inv, a.valid = inv, true
	}
	return a
}

// Creates a transform scaling image coordinates by sx and sy into view space
func NewScale(sx, sy float64) *Affine {
	return NewAffine(geom.ScaleTransform2D(sx, sy))
}

func (a *Affine) String() string {
	return fmt.Sprintf("affine fwd %v inv %v valid %v", a.Fwd, a.Inv, a.valid)
}

func (a *Affine) ImageToView(p geom.Point2D) geom.Point2D {
	if p.IsNaN() {
		return p
	}
	return a.Fwd.Apply(p)
}

func (a *Affine) ViewToImage(p geom.Point2D) geom.Point2D {
	if !a.valid || p.IsNaN() {
		return geom.NaNPoint()
	}
	return a.Inv.Apply(p)
}

func (a *Affine) IsValid() bool {
	return a.valid
}

// Maps the four corner pixel centres and rounds the result outward
func (a *Affine) ImageToViewBounds(r image.Rectangle) image.Rectangle {
	if !a.valid || r.Empty() {
		return image.Rectangle{}
	}
	ul, ur, lr, ll := geom.CornerPoints(r)
	b, _ := geom.BoundingRect2D(a.Fwd.Apply(ul), a.Fwd.Apply(ur), a.Fwd.Apply(lr), a.Fwd.Apply(ll))
	return b.RoundOut()
}
