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

package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"
)

// TestHelperProcess is not a real test. It is the fake encoder started by
// the other tests; BOUNCE_HELPER selects its behaviour.
func TestHelperProcess(t *testing.T) {
	mode := os.Getenv("BOUNCE_HELPER")
	if mode == "" {
		return
	}

	switch mode {
	case "count":
		n, err := io.Copy(io.Discard, os.Stdin)
		if err != nil {
			os.Exit(4)
		}
		fmt.Print(n)
		os.Exit(0)
	case "crash":
		limit, _ := strconv.ParseInt(os.Getenv("BOUNCE_HELPER_READ"), 10, 64)
		io.CopyN(io.Discard, os.Stdin, limit)
		os.Exit(3)
	case "fail":
		io.Copy(io.Discard, os.Stdin)
		os.Exit(2)
	case "kill":
		p, err := os.FindProcess(os.Getpid())
		if err == nil {
			p.Kill()
			time.Sleep(time.Minute)
		}
	}
	os.Exit(5)
}

// helper returns a Command which runs TestHelperProcess in the given mode.
func helper(t *testing.T, mode string, env ...string) (*Command, *bytes.Buffer) {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("cannot locate test binary: %v", err)
	}
	out := &bytes.Buffer{}
	return &Command{
		Path:   exe,
		Args:   []string{"-test.run=^TestHelperProcess$"},
		Env:    append([]string{"BOUNCE_HELPER=" + mode}, env...),
		Stdout: out,
	}, out
}

func TestArgs(t *testing.T) {
	got := Args(Params{
		Width:    800,
		Height:   600,
		FPS:      60,
		LogLevel: "verbose",
		Codec:    "libx264",
		Output:   "output.mp4",
	})
	want := strings.Fields("-loglevel verbose -y -f rawvideo -pix_fmt rgb32 " +
		"-s 800x600 -r 60 -an -i - -c:v libx264 output.mp4")
	if !slices.Equal(got, want) {
		t.Errorf("expected\n  %q\ngot\n  %q", want, got)
	}
}

func TestStream(t *testing.T) {
	cmd, out := helper(t, "count")
	b, err := Start(cmd)
	if err != nil {
		t.Fatal(err)
	}

	frame := bytes.Repeat([]byte{1, 2, 3, 4}, 25_000)
	for range 10 {
		if err := b.Submit(frame); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.CloseWriter(); err != nil {
		t.Fatal(err)
	}
	if err := b.Wait(); err != nil {
		t.Fatal(err)
	}

	if b.Frames() != 10 || b.Bytes() != 1_000_000 {
		t.Errorf("expected 10 frames / 1000000 bytes, got %d / %d", b.Frames(), b.Bytes())
	}
	if got := out.String(); got != "1000000" {
		t.Errorf("encoder read %s bytes, expected 1000000", got)
	}
}

func TestWaitClosesWriter(t *testing.T) {
	cmd, out := helper(t, "count")
	b, err := Start(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Submit(make([]byte, 100)); err != nil {
		t.Fatal(err)
	}
	if err := b.Wait(); err != nil {
		t.Fatal(err)
	}
	if out.String() != "100" {
		t.Errorf("encoder read %q bytes, expected 100", out.String())
	}
	if err := b.Wait(); err == nil {
		t.Error("second Wait succeeded")
	}
}

func TestSubmitAfterClose(t *testing.T) {
	cmd, _ := helper(t, "count")
	b, err := Start(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.CloseWriter(); err != nil {
		t.Fatal(err)
	}
	if err := b.CloseWriter(); err != nil {
		t.Errorf("second CloseWriter: %v", err)
	}
	if err := b.Submit([]byte{0}); !errors.Is(err, ErrChannel) {
		t.Errorf("expected ErrChannel, got %v", err)
	}
	if err := b.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestEncoderCrash(t *testing.T) {
	cmd, _ := helper(t, "crash", "BOUNCE_HELPER_READ=4096")
	b, err := Start(cmd)
	if err != nil {
		t.Fatal(err)
	}

	frame := make([]byte, 64*1024)
	var submitErr error
	for range 1000 {
		if submitErr = b.Submit(frame); submitErr != nil {
			break
		}
	}
	if !errors.Is(submitErr, ErrChannel) {
		t.Fatalf("expected ErrChannel, got %v", submitErr)
	}

	written := b.Bytes()
	if err := b.Submit(frame); !errors.Is(err, ErrChannel) {
		t.Errorf("expected ErrChannel after failure, got %v", err)
	}
	if b.Bytes() != written {
		t.Error("broken bridge kept writing")
	}

	err = b.Wait()
	if !errors.Is(err, ErrEncoderExit) || !strings.Contains(err.Error(), "exit status 3") {
		t.Errorf("expected exit status 3, got %v", err)
	}
}

func TestEncoderFailure(t *testing.T) {
	cmd, _ := helper(t, "fail")
	b, err := Start(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Submit(make([]byte, 10)); err != nil {
		t.Fatal(err)
	}
	if err := b.Wait(); !errors.Is(err, ErrEncoderExit) {
		t.Errorf("expected ErrEncoderExit, got %v", err)
	}
}

func TestMissingProgram(t *testing.T) {
	_, err := Start(&Command{Path: "/nonexistent/bounce-encoder"})
	if !errors.Is(err, ErrSpawn) {
		t.Errorf("expected ErrSpawn, got %v", err)
	}
}

type failingSpawner struct {
	stdin *os.File
}

func (s *failingSpawner) Spawn(stdin *os.File) (Process, error) {
	s.stdin = stdin
	return nil, ErrRemap
}

func TestSpawnFailureReleasesPipe(t *testing.T) {
	sp := &failingSpawner{}
	_, err := Start(sp)
	if !errors.Is(err, ErrRemap) {
		t.Fatalf("expected ErrRemap, got %v", err)
	}
	if sp.stdin == nil {
		t.Fatal("spawner did not receive the read end")
	}
	if err := sp.stdin.Close(); !errors.Is(err, os.ErrClosed) {
		t.Errorf("read end still open after failed spawn: %v", err)
	}
}

func TestStartError(t *testing.T) {
	cases := []struct {
		errno syscall.Errno
		want  error
	}{
		{syscall.EAGAIN, ErrSpawn},
		{syscall.ENOMEM, ErrSpawn},
		{syscall.EACCES, ErrSpawn},
		{syscall.EBADF, ErrRemap},
		{syscall.EMFILE, ErrRemap},
		{syscall.ENFILE, ErrRemap},
	}
	for _, c := range cases {
		cause := &os.PathError{Op: "fork/exec", Path: "/usr/bin/ffmpeg", Err: c.errno}
		err := startError(cause)
		if !errors.Is(err, c.want) {
			t.Errorf("%v: expected %v, got %v", c.errno, c.want, err)
		}
		if !errors.Is(err, c.errno) {
			t.Errorf("%v: cause lost in %v", c.errno, err)
		}
	}

	if err := startError(errors.New("stdin copy failed")); !errors.Is(err, ErrSpawn) {
		t.Errorf("expected ErrSpawn, got %v", err)
	}
}
