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

package pipeline

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

const (
	ChunkSize   = 4096
	PollTimeout = time.Second
)

// DeadlineReader is satisfied by *os.File for pollable descriptors such as a
// pty master or a pipe.
type DeadlineReader interface {
	io.Reader
	SetReadDeadline(time.Time) error
}

// LineReader splits a byte stream into newline terminated lines. A partial
// line is held until its newline arrives.
type LineReader struct {
	src     DeadlineReader
	timeout time.Duration

	chunk   []byte
	pending bytes.Buffer
	dec     *encoding.Decoder
}

func NewLineReader(src DeadlineReader) *LineReader {
	return &LineReader{
		src:     src,
		timeout: PollTimeout,
		chunk:   make([]byte, ChunkSize),
		dec:     unicode.UTF8.NewDecoder(),
	}
}

// Run reads until ctx is done or the source fails, calling fn once per
// complete line without its trailing newline. Each read waits at most one
// poll timeout so cancellation is noticed promptly. Cancellation returns nil,
// a read error is returned as is.
func (r *LineReader) Run(ctx context.Context, fn func(line string)) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := r.src.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
			return errors.Wrap(err, "set read deadline")
		}

		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.Feed(r.chunk[:n], fn)
		}

		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Feed appends data to the pending buffer and dispatches every complete line.
func (r *LineReader) Feed(data []byte, fn func(line string)) {
	r.pending.Write(data)

	for {
		idx := bytes.IndexByte(r.pending.Bytes(), '\n')
		if idx < 0 {
			return
		}

		line := r.pending.Next(idx + 1)
		fn(r.decode(line[:idx]))
	}
}

// Pending returns the buffered partial line.
func (r *LineReader) Pending() string {
	return r.decode(r.pending.Bytes())
}

// decode replaces invalid UTF-8 with U+FFFD instead of failing.
func (r *LineReader) decode(b []byte) string {
	out, err := r.dec.Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}
