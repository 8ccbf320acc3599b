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

// Package anim renders the bouncing ball animation frame by frame.
package anim

import (
	"fmt"
	"log/slog"

	"seehuhn.de/go/bounce/canvas"
	"seehuhn.de/go/bounce/physics"
)

// Sink consumes finished frames. Submit must not return before it is done
// with the frame, since the buffer is redrawn for the next tick.
type Sink interface {
	Submit(frame []byte) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(frame []byte) error

// Submit implements the Sink interface.
func (f SinkFunc) Submit(frame []byte) error {
	return f(frame)
}

// Driver runs the simulation and sends one frame per tick to Sink.
// Frames are produced on the calling goroutine, strictly in tick order.
type Driver struct {
	Canvas  *canvas.Canvas
	Stepper *physics.Stepper
	Sink    Sink

	Background, Foreground canvas.Color

	// Antialias draws the ball with smooth edges instead of the plain
	// pixel-centre test.
	Antialias bool

	// OnFrame, if set, is called after each frame has been accepted.
	OnFrame func(tick int)

	// Logger receives debug messages. Nil disables logging.
	Logger *slog.Logger
}

// Run simulates the given number of ticks. It stops at the first frame
// the sink rejects and returns the sink's error.
func (d *Driver) Run(ticks int) error {
	for tick := range ticks {
		x, y := d.Stepper.Step()
		d.Draw(x, y)
		if err := d.Sink.Submit(d.Canvas.Bytes()); err != nil {
			return fmt.Errorf("tick %d: %w", tick, err)
		}
		if d.OnFrame != nil {
			d.OnFrame(tick)
		}
	}
	if d.Logger != nil {
		d.Logger.Debug("animation finished",
			"ticks", ticks, "reflections", d.Stepper.Reflections())
	}
	return nil
}

// Draw paints one frame with the ball at (x, y).
func (d *Driver) Draw(x, y float64) {
	d.Canvas.Fill(d.Background)
	if d.Antialias {
		d.Canvas.FillPath(canvas.CirclePath(x, y, d.Stepper.R), d.Foreground)
	} else {
		d.Canvas.Circle(x, y, d.Stepper.R, d.Foreground)
	}
}
