package pipeline

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/creack/pty"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemodulatorArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-f", "153.350M", "-s", "22050", "-g", "49.6", "-d", "0", "-"},
		DemodulatorArgs("153.350M", "49.6", "0"),
	)
}

func TestDecoderArgs(t *testing.T) {
	assert.Equal(t,
		[]string{"-a", "POCSAG512", "-a", "POCSAG1200", "-a", "POCSAG2400", "-a", "FLEX", "-t", "raw", "/dev/stdin"},
		DecoderArgs([]string{"POCSAG512", "POCSAG1200", "POCSAG2400", "FLEX"}),
	)
}

func requireTools(t *testing.T) {
	t.Helper()

	for _, name := range []string{"sh", "cat", "sleep"} {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("%s not available: %v", name, err)
		}
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	ptmx.Close()
	tty.Close()
}

func TestSupervisor(t *testing.T) {
	requireTools(t)

	log, _ := test.NewNullLogger()
	s := NewSupervisor(Config{
		DemodPath: "sh",
		DemodArgs: []string{"-c", "printf 'FLEX...[12345] hello world\\n'; exec sleep 30"},

		DecoderPath: "cat",
	}, log)

	require.NoError(t, s.Start())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lineCh := make(chan string, 16)
	done := make(chan error, 1)
	go func() {
		done <- NewLineReader(s.Output()).Run(ctx, func(line string) {
			lineCh <- strings.TrimRight(line, "\r")
		})
	}()

	select {
	case line := <-lineCh:
		assert.Equal(t, "FLEX...[12345] hello world", line)
	case <-time.After(5 * time.Second):
		t.Error("no line from decoder")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("read loop did not observe cancellation")
	}

	s.Stop()
	s.Stop()
	s.Wait()

	assert.NotNil(t, s.demod.ProcessState)
	assert.NotNil(t, s.decoder.ProcessState)
}

func TestSupervisorDemodMissing(t *testing.T) {
	log, _ := test.NewNullLogger()
	s := NewSupervisor(Config{
		DemodPath:   "/nonexistent/rtl_fm",
		DecoderPath: "cat",
	}, log)

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/rtl_fm")

	assert.NotPanics(t, s.Stop)
}

func TestSupervisorDecoderMissing(t *testing.T) {
	requireTools(t)

	log, _ := test.NewNullLogger()
	s := NewSupervisor(Config{
		DemodPath:   "sleep",
		DemodArgs:   []string{"30"},
		DecoderPath: "/nonexistent/multimon-ng",
	}, log)

	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/multimon-ng")

	// The demodulator was already running and must have been terminated.
	done := make(chan error, 1)
	go func() { done <- s.demod.Wait() }()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(5 * time.Second):
		s.demod.Process.Kill()
		t.Fatal("demodulator still running")
	}
}

func TestRunCancelSilentPty(t *testing.T) {
	ptmx, tty, err := OpenPty()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	defer ptmx.Close()
	// The slave stays open and nothing is ever written to it.
	defer tty.Close()

	r := NewLineReader(ptmx)
	r.timeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, func(string) {}) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("read loop blocked after cancellation")
	}
}

func TestOpenPtyLines(t *testing.T) {
	ptmx, tty, err := OpenPty()
	if err != nil {
		t.Skipf("pty not available: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	_, err = tty.Write([]byte("POCSAG512: Address: 1  Function: 0\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var lines []string
	NewLineReader(ptmx).Run(ctx, func(line string) {
		lines = append(lines, strings.TrimRight(line, "\r"))
		cancel()
	})

	assert.Equal(t, []string{"POCSAG512: Address: 1  Function: 0"}, lines)
}
