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

// Command bounce renders a ball bouncing around an 800×600 frame for ten
// seconds and pipes the raw frames into ffmpeg, which writes the video.
//
// Usage:
//
//	bounce [-o output.mp4] [-ffmpeg path] [-aa] [-poster file.png] [-storyboard file.pdf] [-v|-q]
package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/term"

	"seehuhn.de/go/bounce/anim"
	"seehuhn.de/go/bounce/canvas"
	"seehuhn.de/go/bounce/encoder"
	"seehuhn.de/go/bounce/internal/config"
	"seehuhn.de/go/bounce/physics"
	"seehuhn.de/go/bounce/storyboard"
)

func main() {
	err := run(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	output     string
	program    string
	poster     string
	storyboard string
	antialias  bool
	verbose    bool
	quiet      bool
}

func parseFlags(args []string) (*options, error) {
	opt := &options{}
	fs := flag.NewFlagSet("bounce", flag.ContinueOnError)
	fs.StringVar(&opt.output, "o", config.Output, "output video file")
	fs.StringVar(&opt.program, "ffmpeg", config.Program, "encoder program")
	fs.StringVar(&opt.poster, "poster", "", "also write the first frame, half size, to this PNG file")
	fs.StringVar(&opt.storyboard, "storyboard", "", "also draw the ball's path into this PDF file")
	fs.BoolVar(&opt.antialias, "aa", false, "draw the ball with anti-aliased edges")
	fs.BoolVar(&opt.verbose, "v", false, "show debug messages")
	fs.BoolVar(&opt.quiet, "q", false, "only show warnings and errors")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if opt.verbose && opt.quiet {
		return nil, errors.New("-v and -q are mutually exclusive")
	}
	return opt, nil
}

func newLogger(opt *options, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case opt.verbose:
		level = slog.LevelDebug
	case opt.quiet:
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(args []string) error {
	opt, err := parseFlags(args)
	if err != nil {
		return err
	}
	logger := newLogger(opt, os.Stderr)

	ffmpegLog := "verbose"
	if opt.quiet {
		ffmpegLog = "warning"
	}
	params := encoder.Params{
		Width:    config.Width,
		Height:   config.Height,
		FPS:      config.FPS,
		LogLevel: ffmpegLog,
		Codec:    config.Codec,
		Output:   opt.output,
	}
	return supervise(opt, encoder.FFmpeg(opt.program, params), logger, os.Stdout)
}

func initialBody() physics.Body {
	return physics.Body{
		X:  config.StartX,
		Y:  config.StartY,
		DX: config.SpeedX,
		DY: config.SpeedY,
		R:  config.Radius,
	}
}

// supervise starts the encoder, streams all frames into it, and waits for
// it to finish. The encoder is always waited for, also after a failed
// frame, so that no zombie process is left behind.
func supervise(opt *options, sp encoder.Spawner, logger *slog.Logger, stdout io.Writer) error {
	bridge, err := encoder.Start(sp)
	if err != nil {
		return err
	}
	bridge.Logger = logger
	logger.Debug("encoder started", "output", opt.output)

	d := &anim.Driver{
		Canvas:     canvas.New(config.Width, config.Height),
		Stepper:    physics.NewStepper(initialBody(), config.Width, config.Height, config.FPS),
		Sink:       bridge,
		Background: config.Background,
		Foreground: config.Foreground,
		Antialias:  opt.antialias,
		Logger:     logger,
	}
	showProgress := !opt.quiet && term.IsTerminal(int(os.Stderr.Fd()))
	if showProgress {
		d.OnFrame = func(tick int) {
			if (tick+1)%config.FPS == 0 {
				fmt.Fprintf(os.Stderr, "\rrendered %2d/%d s", (tick+1)/config.FPS, config.Duration)
			}
		}
	}

	runErr := d.Run(config.Ticks)
	if showProgress {
		fmt.Fprintln(os.Stderr)
	}
	if runErr != nil {
		logger.Error("streaming failed, waiting for encoder", "frames", bridge.Frames())
	}
	waitErr := bridge.Wait()
	if runErr != nil {
		return runErr
	}
	if waitErr != nil {
		return waitErr
	}
	logger.Info("video written", "file", opt.output, "frames", bridge.Frames(), "bytes", bridge.Bytes())

	if opt.poster != "" {
		if err := writePoster(opt.poster, opt.antialias); err != nil {
			return fmt.Errorf("poster: %w", err)
		}
		logger.Info("poster written", "file", opt.poster)
	}
	if opt.storyboard != "" {
		s := physics.NewStepper(initialBody(), config.Width, config.Height, config.FPS)
		positions := storyboard.Trajectory(s, config.Ticks, config.FPS/4)
		err := storyboard.Write(opt.storyboard, config.Width, config.Height, positions, config.Radius)
		if err != nil {
			return fmt.Errorf("storyboard: %w", err)
		}
		logger.Info("storyboard written", "file", opt.storyboard, "positions", len(positions))
	}

	fmt.Fprintln(stdout, "Done rendering the video!")
	return nil
}

// writePoster saves the first frame of the video, scaled to half size,
// as a PNG image.
func writePoster(fname string, antialias bool) (err error) {
	d := &anim.Driver{
		Canvas:     canvas.New(config.Width, config.Height),
		Stepper:    physics.NewStepper(initialBody(), config.Width, config.Height, config.FPS),
		Background: config.Background,
		Foreground: config.Foreground,
		Antialias:  antialias,
	}
	d.Draw(d.Stepper.Step())

	dst := image.NewRGBA(image.Rect(0, 0, config.Width/2, config.Height/2))
	draw.CatmullRom.Scale(dst, dst.Bounds(), d.Canvas, d.Canvas.Bounds(), draw.Src, nil)

	f, err := os.Create(fname)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, dst)
}
