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
	"errors"
	"fmt"
	"math"

	"github.com/mlnoga/georender/internal/geom"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Maximum condition number of the tie-point design matrix
const maxTiePointCondition = 1e10

var errTooFewTiePoints = errors.New("need at least three tie points")

// Fits an affine image-to-view transform to pairs of tie points by least squares,
// and returns it with the root mean square residual in view pixels. With robust
// set, the least squares solution is refined to minimize the sum of absolute
// residuals, which reduces the influence of outliers. Fails for fewer than three
// pairs or collinear image points
func FitAffine(imagePts, viewPts []geom.Point2D, robust bool) (a *Affine, rms float64, err error) {
	if len(imagePts) != len(viewPts) {
		return nil, 0, fmt.Errorf("tie point count mismatch: %d image, %d view", len(imagePts), len(viewPts))
	}
	n := len(imagePts)
	if n < 3 {
		return nil, 0, errTooFewTiePoints
	}

	// design matrix rows (x, y, 1), right hand side columns (x', y')
	design := mat.NewDense(n, 3, nil)
	rhs := mat.NewDense(n, 2, nil)
	for i := range imagePts {
		design.SetRow(i, []float64{imagePts[i].X, imagePts[i].Y, 1})
		rhs.SetRow(i, []float64{viewPts[i].X, viewPts[i].Y})
	}
	if c := mat.Cond(design, 2); math.IsInf(c, 1) || c > maxTiePointCondition {
		return nil, 0, fmt.Errorf("tie points are collinear (condition %.3g)", c)
	}

	var qr mat.QR
	qr.Factorize(design)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, rhs); err != nil {
		return nil, 0, fmt.Errorf("least squares solve: %w", err)
	}
	t := geom.Transform2D{
		A: sol.At(0, 0), B: sol.At(1, 0), C: sol.At(2, 0),
		D: sol.At(0, 1), E: sol.At(1, 1), F: sol.At(2, 1),
	}

	if robust && n > 3 {
		t, err = refineL1(t, imagePts, viewPts)
		if err != nil {
			return nil, 0, err
		}
	}

	a = NewAffine(t)
	if !a.IsValid() {
		return nil, 0, errors.New("fitted transform is singular")
	}
	return a, residualRMS(&t, imagePts, viewPts), nil
}

// Refines an affine transform by minimizing the sum of absolute residual distances
// with Nelder-Mead, starting from t
func refineL1(t geom.Transform2D, imagePts, viewPts []geom.Point2D) (geom.Transform2D, error) {
	x0 := []float64{t.A, t.B, t.C, t.D, t.E, t.F}
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			tt := geom.Transform2D{A: x[0], B: x[1], C: x[2], D: x[3], E: x[4], F: x[5]}
			sum := 0.0
			for i, p := range imagePts {
				sum += geom.Dist2D(tt.Apply(p), viewPts[i])
			}
			return sum
		},
	}
	result, err := optimize.Minimize(problem, x0, &optimize.Settings{
		Converger: &optimize.FunctionConverge{Absolute: 1e-10, Iterations: 200},
	}, &optimize.NelderMead{})
	if err != nil {
		return t, fmt.Errorf("robust refinement: %w", err)
	}
	x := result.X
	return geom.Transform2D{A: x[0], B: x[1], C: x[2], D: x[3], E: x[4], F: x[5]}, nil
}

func residualRMS(t *geom.Transform2D, imagePts, viewPts []geom.Point2D) float64 {
	sum := 0.0
	for i, p := range imagePts {
		sum += geom.Dist2DSquared(t.Apply(p), viewPts[i])
	}
	return math.Sqrt(sum / float64(len(imagePts)))
}
