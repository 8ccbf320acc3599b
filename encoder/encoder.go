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

// Package encoder streams raw video frames into an external encoder process.
//
// A Bridge owns the write end of an operating system pipe whose read end
// is the standard input of the encoder. Frames are written in order, with
// no framing; the encoder splits the stream using the frame size it was
// told on its command line.
package encoder

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

// Failure kinds. All of them are fatal for a run; use errors.Is to tell
// them apart.
var (
	// ErrChannelCreate means the pipe could not be created.
	ErrChannelCreate = errors.New("cannot create pipe")

	// ErrSpawn means the encoder program could not be found, the child
	// process could not be created, or the program could not be executed.
	ErrSpawn = errors.New("cannot start encoder")

	// ErrRemap means the child process was created, but its file
	// descriptors could not be set up, for example because the
	// descriptor table was full.
	ErrRemap = errors.New("cannot attach pipe to encoder input")

	// ErrChannel means a frame could not be delivered, usually because the
	// encoder exited or closed its input early.
	ErrChannel = errors.New("encoder pipe broken")

	// ErrEncoderExit means the encoder terminated unsuccessfully.
	ErrEncoderExit = errors.New("encoder failed")
)

// Params describes the raw stream and the requested output.
type Params struct {
	Width, Height int
	FPS           int

	// LogLevel is passed to ffmpeg's -loglevel option.
	LogLevel string

	// Codec is the output video codec, for example "libx264".
	Codec string

	// Output is the path of the video file to write.
	Output string
}

// Args returns the ffmpeg command line (without the program name) which
// reads Params' raw stream from standard input.
func Args(p Params) []string {
	return []string{
		"-loglevel", p.LogLevel,
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgb32",
		"-s", strconv.Itoa(p.Width) + "x" + strconv.Itoa(p.Height),
		"-r", strconv.Itoa(p.FPS),
		"-an",
		"-i", "-",
		"-c:v", p.Codec,
		p.Output,
	}
}

// Process is a started child process.
type Process interface {
	// Wait blocks until the process has exited.
	Wait() error
}

// Spawner starts a process reading from stdin.
//
// The spawner must give the process its own reference to stdin; the
// caller closes stdin as soon as Spawn returns.
type Spawner interface {
	Spawn(stdin *os.File) (Process, error)
}

// Command spawns a program with os/exec.
type Command struct {
	Path string
	Args []string

	// Env is added to the environment of the current process.
	Env []string

	// Stdout and Stderr receive the output of the program. Nil discards it.
	Stdout, Stderr io.Writer
}

// FFmpeg returns a Command running the given ffmpeg binary with Args(p).
// The encoder's diagnostics go to our standard error.
func FFmpeg(program string, p Params) *Command {
	return &Command{
		Path:   program,
		Args:   Args(p),
		Stderr: os.Stderr,
	}
}

// Spawn implements the Spawner interface.
func (c *Command) Spawn(stdin *os.File) (Process, error) {
	path, err := exec.LookPath(c.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	cmd := exec.Command(path, c.Args...)
	cmd.Stdin = stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if err := cmd.Start(); err != nil {
		return nil, startError(err)
	}
	return cmd, nil
}

// startError classifies a failure of exec.Cmd.Start. Descriptor errors
// mean the pipe could not be installed as standard input; everything
// else, including fork failures like EAGAIN or ENOMEM, is a spawn error.
func startError(err error) error {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.EBADF, syscall.EMFILE, syscall.ENFILE:
			return fmt.Errorf("%w: %w", ErrRemap, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrSpawn, err)
}

// Bridge is the producer side of the pipe to a running encoder.
//
// The methods must be called from a single goroutine: any number of
// Submit calls, then CloseWriter, then Wait.
type Bridge struct {
	// Logger receives debug messages. Nil disables logging.
	Logger *slog.Logger

	w    *os.File
	proc Process

	err    error
	closed bool
	waited bool

	frames int
	bytes  int64
}

// Start creates the pipe and starts the encoder with the read end as its
// standard input. Our copy of the read end is closed before Start returns.
func Start(sp Spawner) (*Bridge, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrChannelCreate, err)
	}

	proc, err := sp.Spawn(r)
	r.Close()
	if err != nil {
		w.Close()
		return nil, err
	}

	return &Bridge{w: w, proc: proc}, nil
}

func (b *Bridge) log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Submit writes one frame to the encoder, blocking until every byte has
// been accepted by the pipe.
//
// After the first failure the bridge is broken: all further calls return
// the same error without writing.
func (b *Bridge) Submit(frame []byte) error {
	if b.err != nil {
		return b.err
	}
	if b.closed {
		return fmt.Errorf("%w: %w", ErrChannel, os.ErrClosed)
	}

	n, err := b.w.Write(frame)
	b.bytes += int64(n)
	if err != nil {
		b.err = fmt.Errorf("%w: frame %d: %w", ErrChannel, b.frames, err)
		b.log().Debug("frame rejected", "frame", b.frames, "written", n, "err", err)
		return b.err
	}
	b.frames++
	return nil
}

// CloseWriter closes the write end of the pipe, which signals end of
// stream to the encoder. Calls after the first have no effect.
func (b *Bridge) CloseWriter() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.log().Debug("closing encoder input", "frames", b.frames, "bytes", b.bytes)
	if err := b.w.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrChannel, err)
	}
	return nil
}

// Wait blocks until the encoder has exited. If CloseWriter was not called
// yet, Wait calls it first, since the encoder only exits after it has seen
// the end of its input.
//
// The error wraps ErrEncoderExit if the encoder did not exit cleanly.
func (b *Bridge) Wait() error {
	if b.waited {
		return errors.New("encoder: Wait called twice")
	}
	b.waited = true

	closeErr := b.CloseWriter()

	err := b.proc.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// ProcessState reports both exit codes and signals.
			err = fmt.Errorf("%w: %s", ErrEncoderExit, exitErr.ProcessState)
		} else {
			err = fmt.Errorf("%w: %w", ErrEncoderExit, err)
		}
		b.log().Debug("encoder exited", "err", err)
		return err
	}
	b.log().Debug("encoder exited", "status", 0)
	return closeErr
}

// Frames returns the number of frames delivered so far.
func (b *Bridge) Frames() int {
	return b.frames
}

// Bytes returns the number of bytes written to the pipe, including the
// partial write of a rejected frame.
func (b *Bridge) Bytes() int64 {
	return b.bytes
}
