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

package ops

import (
	"context"

	"github.com/mlnoga/georender/internal/render"
)

// A fixed size pool of renderer clones, one per concurrent worker
type Pool struct {
	clones chan *render.Renderer
}

// Creates a pool of n clones of r. The prototype itself is not handed out
func NewPool(r *render.Renderer, n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{clones: make(chan *render.Renderer, n)}
	for i := 0; i < n; i++ {
		p.clones <- r.Clone()
	}
	return p
}

func (p *Pool) Size() int {
	return cap(p.clones)
}

// Takes a renderer from the pool, blocking until one is free or ctx is done
func (p *Pool) Get(ctx context.Context) (*render.Renderer, error) {
	select {
	case r := <-p.clones:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Returns a renderer to the pool
func (p *Pool) Put(r *render.Renderer) {
	p.clones <- r
}

// Sums the counters of all idle renderers
func (p *Pool) Stats() render.Stats {
	var sum render.Stats
	n := cap(p.clones)
	taken := make([]*render.Renderer, 0, n)
	for i := 0; i < n; i++ {
		select {
		case r := <-p.clones:
			taken = append(taken, r)
		default:
		}
	}
	for _, r := range taken {
		s := r.Stats()
		sum.Tiles += s.Tiles
		sum.Bypasses += s.Bypasses
		sum.Blanks += s.Blanks
		sum.Fills += s.Fills
		sum.Splits += s.Splits
		sum.Synthesized += s.Synthesized
		p.clones <- r
	}
	return sum
}
