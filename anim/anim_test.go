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

package anim

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"testing"

	"seehuhn.de/go/bounce/canvas"
	"seehuhn.de/go/bounce/internal/config"
	"seehuhn.de/go/bounce/physics"
)

// recorder is a Sink which remembers a digest of every frame.
type recorder struct {
	sizes   []int
	digests [][32]byte
	failAt  int // reject this submission, if > 0
	err     error
}

func (r *recorder) Submit(frame []byte) error {
	r.sizes = append(r.sizes, len(frame))
	r.digests = append(r.digests, sha256.Sum256(frame))
	if r.failAt > 0 && len(r.sizes) == r.failAt {
		return r.err
	}
	return nil
}

func newDriver(w, h int, sink Sink) *Driver {
	body := physics.Body{X: float64(w) / 2, Y: float64(h) / 2, DX: 500, DY: 500, R: float64(h) / 8}
	return &Driver{
		Canvas:     canvas.New(w, h),
		Stepper:    physics.NewStepper(body, w, h, 60),
		Sink:       sink,
		Background: config.Background,
		Foreground: config.Foreground,
	}
}

func TestRunCounts(t *testing.T) {
	for _, ticks := range []int{0, 1, 7, 120} {
		rec := &recorder{}
		d := newDriver(80, 60, rec)

		var order []int
		d.OnFrame = func(tick int) { order = append(order, tick) }

		if err := d.Run(ticks); err != nil {
			t.Fatal(err)
		}
		if len(rec.sizes) != ticks {
			t.Errorf("%d ticks: %d frames submitted", ticks, len(rec.sizes))
		}
		for i, n := range rec.sizes {
			if n != 80*60*4 {
				t.Errorf("frame %d has %d bytes", i, n)
			}
		}
		for i, tick := range order {
			if tick != i {
				t.Fatalf("frame %d reported as tick %d", i, tick)
			}
		}
		if d.Stepper.Ticks() != ticks {
			t.Errorf("stepper advanced %d times, expected %d", d.Stepper.Ticks(), ticks)
		}
	}
}

func TestRunStopsOnError(t *testing.T) {
	broken := errors.New("broken pipe")
	rec := &recorder{failAt: 4, err: broken}
	d := newDriver(80, 60, rec)

	err := d.Run(100)
	if !errors.Is(err, broken) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if len(rec.sizes) != 4 {
		t.Errorf("expected 4 submissions, got %d", len(rec.sizes))
	}
}

func TestDeterministic(t *testing.T) {
	for _, aa := range []bool{false, true} {
		r1, r2 := &recorder{}, &recorder{}
		d1, d2 := newDriver(80, 60, r1), newDriver(80, 60, r2)
		d1.Antialias, d2.Antialias = aa, aa

		if err := d1.Run(90); err != nil {
			t.Fatal(err)
		}
		if err := d2.Run(90); err != nil {
			t.Fatal(err)
		}
		for i := range r1.digests {
			if r1.digests[i] != r2.digests[i] {
				t.Fatalf("antialias=%t: frame %d differs", aa, i)
			}
		}
		if r1.digests[0] == r1.digests[1] {
			t.Errorf("antialias=%t: ball did not move", aa)
		}
	}
}

func TestFrameContent(t *testing.T) {
	var frame []byte
	d := newDriver(80, 60, SinkFunc(func(f []byte) error {
		frame = bytes.Clone(f)
		return nil
	}))
	if err := d.Run(1); err != nil {
		t.Fatal(err)
	}

	want := canvas.New(80, 60)
	want.Fill(config.Background)
	want.Circle(d.Stepper.X, d.Stepper.Y, d.Stepper.R, config.Foreground)
	if !bytes.Equal(frame, want.Bytes()) {
		t.Error("submitted frame does not match the ball at the committed position")
	}
}

// TestFullVideo runs the real video parameters against a counting sink.
func TestFullVideo(t *testing.T) {
	if testing.Short() {
		t.Skip("renders 600 full-size frames")
	}

	body := physics.Body{
		X: config.StartX, Y: config.StartY,
		DX: config.SpeedX, DY: config.SpeedY,
		R: config.Radius,
	}
	frames := 0
	d := &Driver{
		Canvas:  canvas.New(config.Width, config.Height),
		Stepper: physics.NewStepper(body, config.Width, config.Height, config.FPS),
		Sink: SinkFunc(func(f []byte) error {
			if len(f) != 1_920_000 {
				t.Fatalf("frame %d has %d bytes", frames, len(f))
			}
			frames++
			return nil
		}),
		Background: config.Background,
		Foreground: config.Foreground,
	}
	if err := d.Run(config.Ticks); err != nil {
		t.Fatal(err)
	}
	if frames != 600 {
		t.Errorf("expected 600 frames, got %d", frames)
	}
}
