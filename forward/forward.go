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

// Package forward delivers decoded pages to external sinks.
//
// Delivery is best effort: each message gets a single attempt bounded by a
// timeout. Failures are logged and the message is dropped.
package forward

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/bemasher/rtlpager/metrics"
	"github.com/bemasher/rtlpager/parse"
)

const (
	DefaultTimeout = 2 * time.Second

	// Content is shortened to this many characters in log lines only.
	logContentLen = 80
)

// A Sender makes a single delivery attempt for a message.
type Sender interface {
	Send(ctx context.Context, msg parse.Message) error

	// Name labels the sink in log lines and metrics.
	Name() string
}

// Forwarder pushes messages through a Sender and counts successful
// deliveries.
type Forwarder struct {
	sender  Sender
	timeout time.Duration
	log     logrus.FieldLogger
	metrics *metrics.Metrics

	// Quiet demotes success lines to debug level.
	Quiet bool

	count uint64
}

func NewForwarder(sender Sender, timeout time.Duration, log logrus.FieldLogger, m *metrics.Metrics) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Forwarder{
		sender:  sender,
		timeout: timeout,
		log:     log,
		metrics: m,
	}
}

// Forward delivers msg once. The returned error has already been logged,
// callers only need it to make decisions of their own.
func (f *Forwarder) Forward(ctx context.Context, msg parse.Message) error {
	// An in-flight delivery is bounded by the timeout, not by shutdown.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
	defer cancel()

	sink := strings.ToLower(f.sender.Name())

	if err := f.sender.Send(ctx, msg); err != nil {
		f.metrics.Failed(sink)
		f.log.Printf("%s error: %v", f.sender.Name(), err)
		return err
	}

	f.count++
	f.metrics.Forwarded(sink)

	logf := f.log.Infof
	if f.Quiet {
		logf = f.log.Debugf
	}

	logf("#%d %s Addr:%d Func:%d \"%s\"",
		f.count, msg.Mode(), msg.Address, msg.Function, Truncate(msg.Content, logContentLen),
	)

	return nil
}

// Count is the number of messages delivered successfully so far.
func (f *Forwarder) Count() uint64 {
	return f.count
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	r := []rune(s)
	return string(r[:n])
}
