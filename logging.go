package main

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

const logTimeFormat = "2006-01-02 15:04:05"

// LineFormatter renders one human readable line per entry:
//
//	[2024-01-02 15:04:05] Pipeline running
type LineFormatter struct{}

func (LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	fmt.Fprintf(&b, "[%s] %s", entry.Time.Format(logTimeFormat), entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}

	b.WriteByte('\n')

	return b.Bytes(), nil
}
