// seehuhn.de/go/bounce - render a bouncing ball straight into a video encoder
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
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

// Package raster computes anti-aliased pixel coverage for filled paths.
//
// Coverage is the fraction of a pixel's area inside the path, from 0 to 1.
// The result is delivered one scanline at a time to a callback, so the
// caller decides how coverage turns into colour.
package raster

import (
	"cmp"
	"math"
	"slices"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// EmitFunc receives the coverage of scanline y, starting at pixel xMin.
// The slice is only valid during the call.
type EmitFunc func(y, xMin int, coverage []float32)

// edge is a line segment in device coordinates, with y0 != y1.
type edge struct {
	x0, y0 float64
	x1, y1 float64
	dxdy   float64
}

func (e *edge) top() float64    { return min(e.y0, e.y1) }
func (e *edge) bottom() float64 { return max(e.y0, e.y1) }

// Filler turns closed paths into coverage values.
// Buffers are kept between calls, so a Filler reused for every frame does
// not allocate once it has seen the largest path.
//
// A Filler is not safe for concurrent use.
type Filler struct {
	// CTM maps user space to device space. Must be non-singular.
	CTM matrix.Matrix

	// Clip bounds the output. Coordinates must be integers.
	Clip rect.Rect

	// Flatness is the maximum distance, in device pixels, between a curve
	// and the line segments replacing it. Must be positive.
	Flatness float64

	edges  []edge
	active []int
	cover  []float32
	area   []float32

	bboxEmpty    bool
	bxMin, bxMax float64
	byMin, byMax float64
}

// NewFiller returns a Filler with the identity transformation.
func NewFiller(clip rect.Rect) *Filler {
	return &Filler{
		CTM:      matrix.Identity,
		Clip:     clip,
		Flatness: defaultFlatness,
	}
}

// Reset prepares the Filler for a new clip rectangle, keeping the
// allocated buffers.
func (f *Filler) Reset(clip rect.Rect) {
	f.CTM = matrix.Identity
	f.Clip = clip
	f.Flatness = defaultFlatness
	f.edges = f.edges[:0]
	f.active = f.active[:0]
}

// FillNonZero fills p using the nonzero winding rule.
func (f *Filler) FillNonZero(p *path.Data, emit EmitFunc) {
	f.fill(p, nonZero, emit)
}

// FillEvenOdd fills p using the even-odd rule.
func (f *Filler) FillEvenOdd(p *path.Data, emit EmitFunc) {
	f.fill(p, evenOdd, emit)
}

type fillRule int

const (
	nonZero fillRule = iota
	evenOdd
)

func (f *Filler) fill(p *path.Data, rule fillRule, emit EmitFunc) {
	xMin, xMax, yMin, yMax, ok := f.collect(p)
	if !ok {
		return
	}
	width := xMax - xMin

	f.cover = slices.Grow(f.cover[:0], width)[:width]
	f.area = slices.Grow(f.area[:0], width)[:width]

	slices.SortFunc(f.edges, func(a, b edge) int {
		return cmp.Compare(a.top(), b.top())
	})
	f.active = f.active[:0]
	next := 0

	for y := yMin; y < yMax; y++ {
		yTop, yBot := float64(y), float64(y+1)

		for next < len(f.edges) && f.edges[next].top() < yBot {
			f.active = append(f.active, next)
			next++
		}
		// drop edges which ended above this row
		f.active = slices.DeleteFunc(f.active, func(i int) bool {
			return f.edges[i].bottom() <= yTop
		})
		if len(f.active) == 0 {
			continue
		}

		clear(f.cover)
		clear(f.area)
		for _, i := range f.active {
			f.accumulate(&f.edges[i], y, xMin, xMax)
		}

		if rule == nonZero {
			integrateNonZero(f.cover, f.area)
		} else {
			integrateEvenOdd(f.cover, f.area)
		}
		if row, offs := trimZeros(f.cover); row != nil {
			emit(y, xMin+offs, row)
		}
	}
}

// collect flattens p into device space edges. The returned box is
// clipped and may be empty, in which case ok is false.
func (f *Filler) collect(p *path.Data) (xMin, xMax, yMin, yMax int, ok bool) {
	f.edges = f.edges[:0]
	f.bboxEmpty = true

	var cur, start vec.Vec2
	k := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			if cur != start {
				f.addEdge(cur, start)
			}
			cur = p.Coords[k]
			start = cur
			k++
		case path.CmdLineTo:
			f.addEdge(cur, p.Coords[k])
			cur = p.Coords[k]
			k++
		case path.CmdQuadTo:
			f.flattenQuad(cur, p.Coords[k], p.Coords[k+1])
			cur = p.Coords[k+1]
			k += 2
		case path.CmdCubeTo:
			f.flattenCube(cur, p.Coords[k], p.Coords[k+1], p.Coords[k+2])
			cur = p.Coords[k+2]
			k += 3
		case path.CmdClose:
			if cur != start {
				f.addEdge(cur, start)
			}
			cur = start
		}
	}
	// Open subpaths are closed implicitly.
	if cur != start {
		f.addEdge(cur, start)
	}

	if len(f.edges) == 0 {
		return 0, 0, 0, 0, false
	}

	// Clamp in floating point first, so that huge coordinates cannot
	// overflow the conversion to int.
	bxMin := min(max(math.Floor(f.bxMin), f.Clip.LLx), f.Clip.URx)
	bxMax := max(min(math.Floor(f.bxMax)+1, f.Clip.URx), f.Clip.LLx)
	byMin := min(max(math.Floor(f.byMin), f.Clip.LLy), f.Clip.URy)
	byMax := max(min(math.Floor(f.byMax)+1, f.Clip.URy), f.Clip.LLy)
	xMin, xMax = int(bxMin), int(bxMax)
	yMin, yMax = int(byMin), int(byMax)
	if xMin >= xMax || yMin >= yMax {
		return 0, 0, 0, 0, false
	}
	return xMin, xMax, yMin, yMax, true
}

func (f *Filler) toDevice(p vec.Vec2) (float64, float64) {
	m := f.CTM
	return m[0]*p.X + m[2]*p.Y + m[4], m[1]*p.X + m[3]*p.Y + m[5]
}

func (f *Filler) addEdge(a, b vec.Vec2) {
	x0, y0 := f.toDevice(a)
	x1, y1 := f.toDevice(b)

	if f.bboxEmpty {
		f.bxMin, f.bxMax = min(x0, x1), max(x0, x1)
		f.byMin, f.byMax = min(y0, y1), max(y0, y1)
		f.bboxEmpty = false
	} else {
		f.bxMin = min(f.bxMin, x0, x1)
		f.bxMax = max(f.bxMax, x0, x1)
		f.byMin = min(f.byMin, y0, y1)
		f.byMax = max(f.byMax, y0, y1)
	}

	dy := y1 - y0
	if math.Abs(dy) < horizontalEdgeThreshold {
		return // no contribution to coverage
	}
	f.edges = append(f.edges, edge{
		x0: x0, y0: y0,
		x1: x1, y1: y1,
		dxdy: (x1 - x0) / dy,
	})
}

// deviceLength measures a user space vector after the linear part of the
// CTM is applied.
func (f *Filler) deviceLength(v vec.Vec2) float64 {
	m := f.CTM
	return vec.Vec2{X: m[0]*v.X + m[2]*v.Y, Y: m[1]*v.X + m[3]*v.Y}.Length()
}

func (f *Filler) flattenQuad(p0, p1, p2 vec.Vec2) {
	d := f.deviceLength(p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25))
	n := 1
	if d > f.Flatness {
		n = int(math.Ceil(math.Sqrt(d / f.Flatness)))
	}

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s).Add(p1.Mul(2 * s * t)).Add(p2.Mul(t * t))
		f.addEdge(prev, pt)
		prev = pt
	}
}

func (f *Filler) flattenCube(p0, p1, p2, p3 vec.Vec2) {
	// Wang's formula
	d := max(
		f.deviceLength(p0.Sub(p1.Mul(2)).Add(p2)),
		f.deviceLength(p1.Sub(p2.Mul(2)).Add(p3)),
	)
	n := 1
	if d > 0 {
		n = max(1, int(math.Ceil(math.Sqrt(3*d/(4*f.Flatness)))))
	}

	prev := p0
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		s := 1 - t
		pt := p0.Mul(s * s * s).
			Add(p1.Mul(3 * s * s * t)).
			Add(p2.Mul(3 * s * t * t)).
			Add(p3.Mul(t * t * t))
		f.addEdge(prev, pt)
		prev = pt
	}
}

// accumulate adds the part of e inside scanline y to the cover and area
// buffers, which are indexed by x - xMin.
//
// For each pixel column crossed, cover receives the signed height of the
// crossing and area the part of that height lying to the right of the
// edge. Everything left of the clip box folds into column 0 as a single
// piece, so the work per scanline is bounded by the clip width.
func (f *Filler) accumulate(e *edge, y, xMin, xMax int) {
	yTop := max(float64(y), e.top())
	yBot := min(float64(y+1), e.bottom())
	if yBot <= yTop {
		return
	}

	sign := float32(1)
	if e.y1 < e.y0 {
		sign = -1
	}

	xa := e.x0 + e.dxdy*(yTop-e.y0)
	xb := e.x0 + e.dxdy*(yBot-e.y0)
	left, right := min(xa, xb), max(xa, xb)

	if math.Floor(right) < float64(xMin) {
		// entirely left of the box
		c := sign * float32(yBot-yTop)
		f.cover[0] += c
		f.area[0] += c
		return
	}
	if left >= float64(xMax) {
		return
	}

	if math.Floor(left) == math.Floor(right) {
		f.addPiece(e, yTop, yBot, sign, int(math.Floor(left)), xMin, xMax)
		return
	}
	// Column xMin-1 stands for everything left of the box.
	colLeft := int(max(math.Floor(left), float64(xMin-1)))
	colRight := int(min(math.Floor(right), float64(xMax-1)))

	dydx := 1 / e.dxdy
	for col := colLeft; col <= colRight; col++ {
		xl := float64(col)
		if col < xMin {
			xl = left
		}
		ya := e.y0 + dydx*(xl-e.x0)
		yb := e.y0 + dydx*(float64(col+1)-e.x0)
		lo := max(min(ya, yb), yTop)
		hi := min(max(ya, yb), yBot)
		if hi <= lo {
			continue
		}
		f.addPiece(e, lo, hi, sign, col, xMin, xMax)
	}
}

func (f *Filler) addPiece(e *edge, lo, hi float64, sign float32, col, xMin, xMax int) {
	c := sign * float32(hi-lo)
	switch {
	case col < xMin:
		f.cover[0] += c
		f.area[0] += c
	case col < xMax:
		xMid := e.x0 + e.dxdy*((lo+hi)/2-e.y0)
		frac := xMid - float64(col)
		i := col - xMin
		f.cover[i] += c
		f.area[i] += c * float32(1-frac)
	}
}

// integrateNonZero turns cover and area into coverage, in place in cover.
func integrateNonZero(cover, area []float32) {
	var acc float32
	for i := range cover {
		v := acc + area[i]
		acc += cover[i]
		if v < 0 {
			v = -v
		}
		cover[i] = min(v, 1)
	}
}

// integrateEvenOdd is the even-odd version of integrateNonZero.
func integrateEvenOdd(cover, area []float32) {
	var acc float32
	for i := range cover {
		v := acc + area[i]
		acc += cover[i]
		if v < 0 {
			v = -v
		}
		v -= 2 * float32(int(v/2))
		if v > 1 {
			v = 2 - v
		}
		cover[i] = v
	}
}

// trimZeros strips zero coverage at both ends of a row.
func trimZeros(row []float32) ([]float32, int) {
	lo := 0
	for lo < len(row) && row[lo] == 0 {
		lo++
	}
	if lo == len(row) {
		return nil, 0
	}
	hi := len(row)
	for row[hi-1] == 0 {
		hi--
	}
	return row[lo:hi], lo
}

const (
	// defaultFlatness is below what the eye can see.
	defaultFlatness = 0.25

	// horizontalEdgeThreshold is the smallest vertical extent for which an
	// edge is kept.
	horizontalEdgeThreshold = 1e-10
)
