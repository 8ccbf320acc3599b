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

// Package storyboard draws the path of the ball as a one-page PDF.
//
// The page has the size of the video frame (one point per pixel). Every
// sampled ball position is drawn as a circle outline on top of the
// trajectory line, so wall hits are easy to spot.
package storyboard

import (
	"errors"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics"
	"seehuhn.de/go/pdf/graphics/color"

	"seehuhn.de/go/bounce/canvas"
	"seehuhn.de/go/bounce/physics"
)

// Trajectory runs s for the given number of ticks and returns the ball
// position of tick 0, every, 2*every, and so on.
func Trajectory(s *physics.Stepper, ticks, every int) []vec.Vec2 {
	if every < 1 {
		every = 1
	}
	var res []vec.Vec2
	for tick := range ticks {
		x, y := s.Step()
		if tick%every == 0 {
			res = append(res, vec.Vec2{X: x, Y: y})
		}
	}
	return res
}

// Write creates a PDF file showing the given ball positions on a
// width×height frame.
func Write(fname string, width, height int, positions []vec.Vec2, radius float64) error {
	if width <= 0 || height <= 0 {
		return errors.New("storyboard: invalid page size")
	}

	paper := &pdf.Rectangle{
		URx: float64(width),
		URy: float64(height),
	}
	page, err := document.CreateSinglePage(fname, paper, pdf.V1_7, nil)
	if err != nil {
		return err
	}

	// frame background, the same dark grey as the video
	page.SetFillColor(color.DeviceGray(0.094))
	page.Rectangle(0, 0, float64(width), float64(height))
	page.Fill()

	// PDF has the origin at the bottom left, the canvas at the top left.
	page.Transform(matrix.Matrix{1, 0, 0, -1, 0, float64(height)})

	page.SetLineCap(graphics.LineCapRound)
	page.SetLineJoin(graphics.LineJoinRound)

	if len(positions) > 1 {
		page.SetStrokeColor(color.DeviceGray(0.4))
		page.SetLineWidth(1)
		page.MoveTo(positions[0].X, positions[0].Y)
		for _, p := range positions[1:] {
			page.LineTo(p.X, p.Y)
		}
		page.Stroke()
	}

	page.SetStrokeColor(color.DeviceGray(0.85))
	page.SetLineWidth(2)
	for _, p := range positions {
		c := canvas.CirclePath(p.X, p.Y, radius)
		k := 0
		for _, cmd := range c.Cmds {
			switch cmd {
			case path.CmdMoveTo:
				page.MoveTo(c.Coords[k].X, c.Coords[k].Y)
				k++
			case path.CmdLineTo:
				page.LineTo(c.Coords[k].X, c.Coords[k].Y)
				k++
			case path.CmdCubeTo:
				p1, p2, p3 := c.Coords[k], c.Coords[k+1], c.Coords[k+2]
				page.CurveTo(p1.X, p1.Y, p2.X, p2.Y, p3.X, p3.Y)
				k += 3
			case path.CmdClose:
				page.ClosePath()
			}
		}
		page.Stroke()
	}

	return page.Close()
}
