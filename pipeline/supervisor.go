// RTLPAGER - An rtl-sdr receiver for POCSAG and FLEX pagers.
// Copyright (C) 2015 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package pipeline runs the demodulator and decoder processes and exposes
// the decoder's text output without pipe buffering.
package pipeline

import (
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// SampleRate rtl_fm resamples to, multimon-ng's raw input rate.
	SampleRate = 22050

	DefaultSettle = time.Second
)

// DemodulatorArgs builds the rtl_fm argument list, writing samples to stdout.
func DemodulatorArgs(freq, gain, device string) []string {
	return []string{
		"-f", freq,
		"-s", strconv.Itoa(SampleRate),
		"-g", gain,
		"-d", device,
		"-",
	}
}

// DecoderArgs builds the multimon-ng argument list for the given modes,
// reading raw samples from stdin.
func DecoderArgs(modes []string) (args []string) {
	for _, mode := range modes {
		args = append(args, "-a", mode)
	}
	return append(args, "-t", "raw", "/dev/stdin")
}

type Config struct {
	DemodPath string
	DemodArgs []string

	DecoderPath string
	DecoderArgs []string

	// Kill names a process to terminate before starting, empty to skip.
	Kill string

	// Settle is how long to wait after Kill for the device to be released.
	Settle time.Duration
}

// Supervisor owns the demodulator and decoder processes. The decoder's
// stdout and stderr are attached to a pty so it line-buffers its output.
type Supervisor struct {
	cfg Config
	log logrus.FieldLogger

	demod   *exec.Cmd
	decoder *exec.Cmd
	ptmx    *os.File

	stopOnce sync.Once
}

func NewSupervisor(cfg Config, log logrus.FieldLogger) *Supervisor {
	return &Supervisor{cfg: cfg, log: log}
}

// Start launches the pipeline. If the decoder cannot be started the
// demodulator is terminated before the error is returned.
func (s *Supervisor) Start() (err error) {
	if s.cfg.Kill != "" {
		// Best effort, pkill exits non-zero when nothing matched.
		exec.Command("pkill", s.cfg.Kill).Run()
		time.Sleep(s.cfg.Settle)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return errors.Wrap(err, "create pipe")
	}
	defer pr.Close()

	s.demod = exec.Command(s.cfg.DemodPath, s.cfg.DemodArgs...)
	s.demod.Stdout = pw

	err = s.demod.Start()
	pw.Close()
	if err != nil {
		s.demod = nil
		return errors.Wrapf(err, "start %s", s.cfg.DemodPath)
	}

	ptmx, tty, err := OpenPty()
	if err != nil {
		s.terminate(s.demod)
		return err
	}

	s.decoder = exec.Command(s.cfg.DecoderPath, s.cfg.DecoderArgs...)
	s.decoder.Stdin = pr
	s.decoder.Stdout = tty
	s.decoder.Stderr = tty

	err = s.decoder.Start()
	tty.Close()
	if err != nil {
		ptmx.Close()
		s.terminate(s.demod)
		s.decoder = nil
		return errors.Wrapf(err, "start %s", s.cfg.DecoderPath)
	}

	s.ptmx = ptmx

	return nil
}

// OpenPty allocates a pty whose master supports read deadlines. The master
// pty.Open returns is in blocking mode, where deadlines are silently ignored.
func OpenPty() (ptmx, tty *os.File, err error) {
	master, tty, err := pty.Open()
	if err != nil {
		return nil, nil, errors.Wrap(err, "open pty")
	}
	defer master.Close()

	// The duplicate shares the open file description, so O_NONBLOCK set on
	// it applies to both. Fd must not be called on the result afterwards.
	fd, err := syscall.Dup(int(master.Fd()))
	if err != nil {
		tty.Close()
		return nil, nil, errors.Wrap(err, "dup pty master")
	}

	if err := syscall.SetNonblock(fd, true); err != nil {
		syscall.Close(fd)
		tty.Close()
		return nil, nil, errors.Wrap(err, "set pty master nonblocking")
	}

	return os.NewFile(uintptr(fd), master.Name()), tty, nil
}

// Output is the master side of the decoder's pty.
func (s *Supervisor) Output() *os.File {
	return s.ptmx
}

// Stop asks the decoder and then the demodulator to terminate. It neither
// waits for them to exit nor escalates, and is safe to call more than once.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		s.terminate(s.decoder)
		s.terminate(s.demod)

		if s.ptmx != nil {
			s.ptmx.Close()
		}
	})
}

// Wait reaps both processes. It is only useful after Stop.
func (s *Supervisor) Wait() {
	for _, cmd := range []*exec.Cmd{s.decoder, s.demod} {
		if cmd != nil && cmd.Process != nil {
			cmd.Wait()
		}
	}
}

func (s *Supervisor) terminate(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil && err != os.ErrProcessDone {
		s.log.Debugf("terminate %s: %v", cmd.Path, err)
	}
}
