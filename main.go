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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/bemasher/rtlpager/forward"
	"github.com/bemasher/rtlpager/metrics"
	"github.com/bemasher/rtlpager/parse"
	"github.com/bemasher/rtlpager/pipeline"

	_ "github.com/bemasher/rtlpager/flex"
	_ "github.com/bemasher/rtlpager/pocsag"
)

// Receiver turns decoder output lines into forwarded messages.
type Receiver struct {
	chain      parse.Chain
	fc         parse.FilterChain
	forwarders []*forward.Forwarder
	encoder    Encoder
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
}

func NewReceiver(chain parse.Chain, log logrus.FieldLogger, m *metrics.Metrics) *Receiver {
	return &Receiver{
		chain:   chain,
		metrics: m,
		log:     log,
	}
}

func (rcvr *Receiver) AddForwarder(f *forward.Forwarder) {
	rcvr.forwarders = append(rcvr.forwarders, f)
}

// Dispatch handles a single line of decoder output. Lines that aren't pages
// are dropped silently.
func (rcvr *Receiver) Dispatch(ctx context.Context, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	rcvr.metrics.LineRead()

	msg, ok := rcvr.chain.Parse(line)
	if !ok {
		return
	}
	rcvr.metrics.Decoded(string(msg.Protocol), strconv.Itoa(msg.BaudRate))

	// If the filterchain rejects the message, skip it.
	if !rcvr.fc.Match(msg) {
		return
	}

	if rcvr.encoder != nil {
		if err := rcvr.encoder.Encode(parse.LogMessage{Time: time.Now(), Message: msg}); err != nil {
			rcvr.log.Printf("Error encoding message: %v", err)
		}
	}

	// Failures are logged by the forwarder and the message is dropped.
	for _, f := range rcvr.forwarders {
		f.Forward(ctx, msg)
	}
}

// Run starts the pipeline and dispatches decoder output until ctx is done or
// the decoder goes away. Only a failure to start the pipeline is returned.
func (rcvr *Receiver) Run(ctx context.Context, sup *pipeline.Supervisor) error {
	if err := sup.Start(); err != nil {
		return err
	}
	defer sup.Stop()

	rcvr.log.Println("Pipeline running")

	err := pipeline.NewLineReader(sup.Output()).Run(ctx, func(line string) {
		rcvr.Dispatch(ctx, line)
	})
	if err != nil {
		rcvr.log.Printf("Decoder output closed: %v", err)
	}

	rcvr.log.Println("Shutting down...")

	return nil
}

func init() {
	logrus.SetFormatter(LineFormatter{})
	logrus.SetOutput(os.Stdout)
}

var (
	buildTag   = "dev"     // v#.#.#
	buildDate  = "unknown" // date -u '+%Y-%m-%d'
	commitHash = "unknown" // git rev-parse HEAD
)

func main() {
	log := logrus.StandardLogger()

	RegisterFlags()
	EnvOverride(flag.CommandLine, log)
	flag.Parse()

	if *version {
		fmt.Println("Build Tag: ", buildTag)
		fmt.Println("Build Date:", buildDate)
		fmt.Println("Commit:    ", commitHash)
		os.Exit(0)
	}

	HandleFlags()
	defer logFile.Close()

	chain, err := parse.NewChain(MessageTypes(*msgType)...)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *timeLimit != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeLimit)
		defer cancel()
	}

	m := metrics.New()
	if *metricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, *metricsAddr, log); err != nil {
				log.Printf("Metrics error: %v", err)
			}
		}()
	}

	rcvr := NewReceiver(chain, log, m)
	rcvr.encoder = encoder

	if len(capcodes.UintMap) > 0 {
		rcvr.fc.Add(capcodes)
	}
	if *unique {
		rcvr.fc.Add(NewUniqueFilter())
	}

	httpSender := forward.NewHTTPSender(*endpoint, *timeout, log)
	rcvr.AddForwarder(forward.NewForwarder(httpSender, *timeout, log, m))

	if *mqttBroker != "" {
		sender, err := forward.NewMQTTSender(*mqttBroker, *mqttTopic, *timeout)
		if err != nil {
			log.Fatal(err)
		}
		defer sender.Close()

		fwd := forward.NewForwarder(sender, *timeout, log, m)
		fwd.Quiet = true
		rcvr.AddForwarder(fwd)
	}

	sup := pipeline.NewSupervisor(pipeline.Config{
		DemodPath:   *rtlfmPath,
		DemodArgs:   pipeline.DemodulatorArgs(*centerFreq, *gain, *device),
		DecoderPath: *multimonPath,
		DecoderArgs: pipeline.DecoderArgs(chain.Modes()),
		Kill:        *killName,
		Settle:      *settle,
	}, log)

	log.Printf("Starting pager decoder: %s gain=%s", *centerFreq, *gain)

	if !*quiet {
		log.Println("Device:", *device)
		log.Println("Modes:", strings.Join(chain.Modes(), " "))
		log.Println("Endpoint:", httpSender.URL())
		log.Println("LogFile:", *logFilename)
		log.Println("TimeLimit:", *timeLimit)
	}

	if err := rcvr.Run(ctx, sup); err != nil {
		log.Fatal(err)
	}
}
