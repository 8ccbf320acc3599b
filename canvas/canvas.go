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

// Package canvas implements a fixed-size pixel buffer in the layout
// expected by a raw video encoder.
//
// Every pixel is a 32-bit packed colour stored in host byte order, which
// is what ffmpeg calls "rgb32". Rows follow each other without padding.
package canvas

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"

	"seehuhn.de/go/bounce/raster"
)

// BytesPerPixel is the size of one packed colour.
const BytesPerPixel = 4

// Color is a packed colour 0xAARRGGBB with straight (non-premultiplied)
// alpha.
type Color uint32

// RGBA packs the given channels into a Color.
func RGBA(r, g, b, a uint8) Color {
	return Color(a)<<24 | Color(r)<<16 | Color(g)<<8 | Color(b)
}

// Channels unpacks c.
func (c Color) Channels() (r, g, b, a uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c), uint8(c >> 24)
}

// NRGBA converts c to the standard library representation.
func (c Color) NRGBA() color.NRGBA {
	r, g, b, a := c.Channels()
	return color.NRGBA{R: r, G: g, B: b, A: a}
}

// Canvas is a Width×Height grid of packed colours, row-major with a stride
// equal to the width. The backing slice never changes size.
//
// A Canvas is not safe for concurrent use.
type Canvas struct {
	// Pix holds Width*Height*BytesPerPixel bytes.
	Pix []byte

	Width, Height int

	filler *raster.Filler
}

// New allocates a canvas. All pixels start as transparent black.
func New(width, height int) *Canvas {
	if width <= 0 || height <= 0 {
		panic("canvas: invalid dimensions")
	}
	return &Canvas{
		Pix:    make([]byte, width*height*BytesPerPixel),
		Width:  width,
		Height: height,
	}
}

// Bytes returns the raw frame, ready to be handed to an encoder.
// The slice aliases the canvas.
func (c *Canvas) Bytes() []byte {
	return c.Pix
}

func (c *Canvas) offset(x, y int) int {
	return (y*c.Width + x) * BytesPerPixel
}

// PixelAt returns the colour at (x, y). The coordinates must be in range.
func (c *Canvas) PixelAt(x, y int) Color {
	return Color(binary.NativeEndian.Uint32(c.Pix[c.offset(x, y):]))
}

// Set changes one pixel. Coordinates outside the canvas are ignored.
func (c *Canvas) Set(x, y int, col Color) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return
	}
	binary.NativeEndian.PutUint32(c.Pix[c.offset(x, y):], uint32(col))
}

// Fill sets every pixel to col.
func (c *Canvas) Fill(col Color) {
	binary.NativeEndian.PutUint32(c.Pix, uint32(col))
	for n := BytesPerPixel; n < len(c.Pix); n *= 2 {
		copy(c.Pix[n:], c.Pix[:n])
	}
}

// Circle paints a filled disk. A pixel belongs to the disk if its centre
// is at most r away from (cx, cy). Parts outside the canvas are clipped.
func (c *Canvas) Circle(cx, cy, r float64, col Color) {
	if !(r >= 0) || math.IsNaN(cx) || math.IsNaN(cy) {
		return
	}

	x0 := max(math.Floor(cx-r), 0)
	x1 := min(math.Ceil(cx+r), float64(c.Width))
	y0 := max(math.Floor(cy-r), 0)
	y1 := min(math.Ceil(cy+r), float64(c.Height))
	if x0 >= x1 || y0 >= y1 {
		return
	}

	v := uint32(col)
	r2 := r * r
	for y := int(y0); y < int(y1); y++ {
		dy := float64(y) + 0.5 - cy
		row := c.Pix[c.offset(0, y):]
		for x := int(x0); x < int(x1); x++ {
			dx := float64(x) + 0.5 - cx
			if dx*dx+dy*dy <= r2 {
				binary.NativeEndian.PutUint32(row[x*BytesPerPixel:], v)
			}
		}
	}
}

// FillPath paints the interior of p (nonzero winding rule) with
// anti-aliased edges, blending col over the existing pixels by coverage.
func (c *Canvas) FillPath(p *path.Data, col Color) {
	clip := rect.Rect{URx: float64(c.Width), URy: float64(c.Height)}
	if c.filler == nil {
		c.filler = raster.NewFiller(clip)
	} else {
		c.filler.Reset(clip)
	}

	sr, sg, sb, sa := col.Channels()
	c.filler.FillNonZero(p, func(y, xMin int, coverage []float32) {
		row := c.Pix[c.offset(xMin, y):]
		for i, cov := range coverage {
			a := cov * float32(sa) / 255
			if a <= 0 {
				continue
			}
			px := row[i*BytesPerPixel:]
			old := Color(binary.NativeEndian.Uint32(px))
			dr, dg, db, da := old.Channels()
			out := RGBA(blend(sr, dr, a), blend(sg, dg, a), blend(sb, db, a), blend(sa, da, a))
			binary.NativeEndian.PutUint32(px, uint32(out))
		}
	})
}

func blend(src, dst uint8, a float32) uint8 {
	v := float32(src)*a + float32(dst)*(1-a)
	return uint8(min(max(v+0.5, 0), 255))
}

// kappa places the control points of a cubic Bézier quarter circle.
const kappa = 0.5522847498

// CirclePath returns a circle built from four cubic Bézier curves.
func CirclePath(cx, cy, r float64) *path.Data {
	k := r * kappa
	pt := func(x, y float64) vec.Vec2 { return vec.Vec2{X: x, Y: y} }

	return (&path.Data{}).
		MoveTo(pt(cx+r, cy)).
		CubeTo(pt(cx+r, cy-k), pt(cx+k, cy-r), pt(cx, cy-r)).
		CubeTo(pt(cx-k, cy-r), pt(cx-r, cy-k), pt(cx-r, cy)).
		CubeTo(pt(cx-r, cy+k), pt(cx-k, cy+r), pt(cx, cy+r)).
		CubeTo(pt(cx+k, cy+r), pt(cx+r, cy+k), pt(cx+r, cy)).
		Close()
}

// ColorModel implements the image.Image interface.
func (c *Canvas) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements the image.Image interface.
func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// At implements the image.Image interface.
func (c *Canvas) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return color.NRGBA{}
	}
	return c.PixelAt(x, y).NRGBA()
}
