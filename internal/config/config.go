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

// Package config holds the fixed parameters of the rendered video.
//
// The producer and the encoder must agree on every value here; the raw
// frame stream carries no header, so a mismatch silently corrupts the
// output file.
package config

// Video geometry and timing.
const (
	Width    = 800
	Height   = 600
	FPS      = 60
	Duration = 10 // seconds

	// BytesPerPixel is the size of one packed colour in the raw stream.
	BytesPerPixel = 4

	// FrameSize is the length in bytes of one raw frame.
	FrameSize = Width * Height * BytesPerPixel

	// Ticks is the total number of frames in the video.
	Ticks = FPS * Duration
)

// Colours, packed as 0xAARRGGBB.
const (
	Background = 0xFF181818
	Foreground = 0xFF00FF00
)

// Initial state of the ball, in pixels and pixels per second.
const (
	StartX = float64(Width) / 2
	StartY = float64(Height) / 2
	Radius = float64(Height) / 8
	SpeedX = 500
	SpeedY = 500
)

// Encoder defaults.
const (
	Program = "ffmpeg"
	Output  = "output.mp4"
	Codec   = "libx264"
)
