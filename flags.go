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
	"encoding/json"
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/bemasher/rtlpager/csv"
	"github.com/bemasher/rtlpager/forward"
	"github.com/bemasher/rtlpager/parse"
	"github.com/bemasher/rtlpager/pipeline"
)

const envPrefix = "PAGER_"

var centerFreq = flag.String("freq", "153.350M", "frequency to tune rtl_fm to")
var gain = flag.String("gain", "49.6", "tuner gain in dB")
var device = flag.String("device", "0", "rtl-sdr device index")

var rtlfmPath = flag.String("rtlfm", "rtl_fm", "path to the rtl_fm executable")
var multimonPath = flag.String("multimon", "multimon-ng", "path to the multimon-ng executable")
var killName = flag.String("kill", "rtl_tcp", "process holding the device to kill before starting, empty to disable")
var settle = flag.Duration("settle", pipeline.DefaultSettle, "time to wait for the device to be released after -kill")

var endpoint = flag.String("url", "http://localhost:3401/api/pager/messages", "endpoint decoded messages are posted to")
var timeout = flag.Duration("timeout", forward.DefaultTimeout, "delivery timeout for each message")

var mqttBroker = flag.String("mqtt", "", "also publish messages to this mqtt broker, ex. tcp://localhost:1883")
var mqttTopic = flag.String("mqtttopic", forward.DefaultTopic, "mqtt topic to publish messages to")

var logFilename = flag.String("logfile", "pager-decoder.log", "file log lines are appended to, in addition to stdout")

var msgType = flag.String("msgtype", "pocsag,flex", "comma-separated message types to decode, tried in the order given")

var timeLimit = flag.Duration("duration", 0, "time to run for, 0 for infinite, ex. 1h5m10s")
var capcodes CapcodeFilter

var unique = flag.Bool("unique", false, "suppress repeated messages to each capcode")

var encoder Encoder
var format = flag.String("format", "", "also write decoded messages to stdout: plain, csv, json, or xml")

var metricsAddr = flag.String("metrics", "", "serve prometheus metrics on this address, ex. :9100")

var quiet = flag.Bool("quiet", false, "suppress state information printed at startup")

var version = flag.Bool("version", false, "display build date and commit hash")

var logFile *os.File

func RegisterFlags() {
	capcodes = CapcodeFilter{make(UintMap)}

	flag.Var(capcodes, "filtercapcode", "forward only messages to a capcode in a comma-separated list of capcodes.")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		flag.CommandLine.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(os.Stderr, "  -%s=%s: %s\n", f.Name, f.Value, f.Usage)
		})

		fmt.Fprintln(os.Stderr)
		fmt.Fprintf(os.Stderr, "Every flag may also be set by the environment as %s<FLAG>, ex. %sFREQ.\n", envPrefix, envPrefix)
	}
}

// EnvOverride sets flags from PAGER_<NAME> environment variables. Call it
// before parsing so the command line still wins.
func EnvOverride(fs *flag.FlagSet, log logrus.FieldLogger) {
	fs.VisitAll(func(f *flag.Flag) {
		envName := envPrefix + strings.ToUpper(f.Name)
		flagValue := os.Getenv(envName)
		if flagValue == "" {
			return
		}

		if err := fs.Set(f.Name, flagValue); err != nil {
			// A failed Set may still have clobbered the value.
			fs.Set(f.Name, f.DefValue)
			log.Printf(
				"Environment variable %q failed to override flag %q with value %q: %q",
				envName, f.Name, flagValue, err,
			)
		} else {
			log.Printf("Environment variable %q overrides flag %q with %q", envName, f.Name, flagValue)
		}
	})
}

func HandleFlags() {
	var err error

	logFile, err = os.OpenFile(*logFilename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		logrus.Fatal("Error opening log file: ", err)
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, logFile))

	encoder, err = NewEncoder(*format, os.Stdout)
	if err != nil {
		logrus.Fatal(err)
	}
}

// MessageTypes splits the -msgtype value.
func MessageTypes(value string) (names []string) {
	for _, name := range strings.Split(value, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			names = append(names, name)
		}
	}
	return
}

// JSON, XML and CSV all implement this interface so we can simplify message
// output formatting.
type Encoder interface {
	Encode(interface{}) error
}

// NewEncoder returns nil for an empty format.
func NewEncoder(format string, w io.Writer) (Encoder, error) {
	switch strings.ToLower(format) {
	case "":
		return nil, nil
	case "plain":
		return PlainEncoder{w}, nil
	case "csv":
		return csv.NewEncoder(w), nil
	case "json":
		return json.NewEncoder(w), nil
	case "xml":
		return LineEncoder{xml.NewEncoder(w), w}, nil
	}

	return nil, fmt.Errorf("invalid format: %q", format)
}

type UintMap map[uint]bool

func (m UintMap) String() (s string) {
	var values []string
	for k := range m {
		values = append(values, strconv.FormatUint(uint64(k), 10))
	}
	return strings.Join(values, ",")
}

func (m UintMap) Set(value string) error {
	values := strings.Split(value, ",")

	for _, v := range values {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return err
		}

		m[uint(n)] = true
	}

	return nil
}

type CapcodeFilter struct {
	UintMap
}

func (m CapcodeFilter) Filter(msg parse.Message) bool {
	return m.UintMap[uint(msg.Address)]
}

// UniqueFilter drops a message when the previous message to the same
// capcode had identical content. Pagers are commonly sent the same page
// more than once.
type UniqueFilter map[uint32]string

func NewUniqueFilter() UniqueFilter {
	return make(UniqueFilter)
}

func (uf UniqueFilter) Filter(msg parse.Message) bool {
	if content, ok := uf[msg.Address]; ok && content == msg.Content {
		return false
	}

	uf[msg.Address] = msg.Content
	return true
}

type PlainEncoder struct {
	w io.Writer
}

func (pe PlainEncoder) Encode(msg interface{}) (err error) {
	_, err = fmt.Fprintln(pe.w, msg)
	return
}

// LineEncoder terminates each encoded element with a newline.
type LineEncoder struct {
	enc Encoder
	w   io.Writer
}

func (le LineEncoder) Encode(msg interface{}) error {
	if err := le.enc.Encode(msg); err != nil {
		return err
	}

	_, err := io.WriteString(le.w, "\n")
	return err
}
