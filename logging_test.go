package main

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineFormatter(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2024, 1, 2, 15, 4, 5, 0, time.Local),
		Message: `#1 POCSAG1200 Addr:1234567 Func:3 "hello"`,
		Data:    logrus.Fields{},
	}

	out, err := LineFormatter{}.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2024-01-02 15:04:05] #1 POCSAG1200 Addr:1234567 Func:3 \"hello\"\n", string(out))

	entry.Data = logrus.Fields{"sink": "mqtt", "attempt": 1}
	out, err = LineFormatter{}.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[2024-01-02 15:04:05] #1 POCSAG1200 Addr:1234567 Func:3 \"hello\" attempt=1 sink=mqtt\n", string(out))
}
