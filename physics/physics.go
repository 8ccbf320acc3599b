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

// Package physics moves a ball across a rectangle, bouncing off the walls.
package physics

// Body is a disk with position (X, Y), velocity (DX, DY) in units per
// second, and radius R.
type Body struct {
	X, Y   float64
	DX, DY float64
	R      float64
}

// Stepper advances a Body in fixed time steps inside [0, Width)×[0, Height).
//
// On each axis, a step which would bring the rim of the body onto or past a
// wall is not taken: the position on that axis stays where it is and the
// velocity component changes sign. Motion is lossless and deterministic.
// The body must not move more than Width-2R (Height-2R) per step.
type Stepper struct {
	Body

	Width, Height float64

	// DT is the duration of one tick in seconds.
	DT float64

	ticks       int
	reflections int
}

// NewStepper returns a Stepper for a canvas of the given size, stepping
// at fps ticks per second.
func NewStepper(b Body, width, height, fps int) *Stepper {
	return &Stepper{
		Body:   b,
		Width:  float64(width),
		Height: float64(height),
		DT:     1 / float64(fps),
	}
}

// Step advances the body by one tick and returns the position at which
// the body should be drawn.
//
// The returned position is the committed one: on an axis where the body
// bounced, this is the position before the step. The drawn ball thus
// never leaves the canvas.
func (s *Stepper) Step() (x, y float64) {
	if advance(&s.X, &s.DX, s.R, s.Width, s.DT) {
		s.reflections++
	}
	if advance(&s.Y, &s.DY, s.R, s.Height, s.DT) {
		s.reflections++
	}
	s.ticks++
	return s.X, s.Y
}

// advance moves pos by vel*dt if the disk stays strictly inside (0, dim).
// Otherwise vel is negated and true is returned.
func advance(pos, vel *float64, r, dim, dt float64) bool {
	next := *pos + *vel*dt
	if 0 < next-r && next+r < dim {
		*pos = next
		return false
	}
	*vel = -*vel
	return true
}

// Ticks returns the number of completed steps.
func (s *Stepper) Ticks() int {
	return s.ticks
}

// Reflections returns the number of wall hits so far. A corner hit counts
// twice.
func (s *Stepper) Reflections() int {
	return s.reflections
}
