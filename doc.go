/*
RTLPAGER is an rtl-sdr receiver for POCSAG and FLEX pagers.

Samples are demodulated by rtl_fm and decoded by multimon-ng. RTLPAGER runs
both, reads multimon-ng's output through a pty so it is never held in a pipe
buffer, and posts every page it recognizes to an HTTP endpoint as JSON:

	{"protocol":"POCSAG","capcode":1234567,"address":1234567,"function":3,"content":"Call 555-0100","baudRate":1200}

Capcode and address always carry the same value. FLEX messages always report
function 0 and a baud rate of 1600.

Delivery is attempted once per message. If the endpoint is slow or down the
message is dropped and the failure is logged.

Every flag may be set from the environment by prefixing its upper case name
with PAGER_, ex. PAGER_FREQ=152.480M. Flags given on the command line take
precedence.

	-freq="153.350M"

Frequency rtl_fm is tuned to. Passed to rtl_fm unmodified so suffixes like M
and k are accepted.

	-gain="49.6"

Tuner gain in dB.

	-device="0"

rtl-sdr device index.

	-kill="rtl_tcp"

Name of a process to kill before starting, usually something else holding
the dongle. The receiver then waits -settle (default 1s) for the device to
be released. Empty disables.

	-rtlfm="rtl_fm"
	-multimon="multimon-ng"

Executables for the demodulator and the decoder. rtl_fm is always run at a
sample rate of 22050 which is what multimon-ng expects of raw input.

	-msgtype="pocsag,flex"

Message types to decode. pocsag enables POCSAG512, POCSAG1200 and POCSAG2400,
flex enables FLEX. Lines are matched against the types in the order given.

	-url="http://localhost:3401/api/pager/messages"
	-timeout=2s

Endpoint messages are posted to, and how long each delivery may take.

	-mqtt=""
	-mqtttopic="rtlpager/messages"

Optionally publish the same JSON document to an mqtt broker, ex.
tcp://localhost:1883.

	-logfile="pager-decoder.log"

Log lines are appended to this file and echoed to stdout:

	[2024-01-02 15:04:05] Starting pager decoder: 153.350M gain=49.6
	[2024-01-02 15:04:06] Pipeline running
	[2024-01-02 15:04:31] #1 POCSAG1200 Addr:1234567 Func:3 "Call 555-0100"
	[2024-01-02 15:04:40] POST error: Post "http://localhost:3401/api/pager/messages": dial tcp [::1]:3401: connect: connection refused

Content is shortened to 80 characters in the log only.

	-format=""

Also write decoded messages to stdout as plain, csv, json or xml.

	-filtercapcode=""

Forward only messages to a capcode in the given comma-separated list.

	-unique=false

Drop a message if the previous message to the same capcode had identical
content.

	-metrics=""

Serve prometheus metrics at /metrics on the given address, ex. :9100.

	-duration=0

Time to run for, 0 for infinite.

	-quiet=false

Omits state information logged on startup.

SIGINT and SIGTERM ask both child processes to terminate and exit with
status 0.
*/
package main
