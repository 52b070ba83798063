package main

import (
	"bytes"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bemasher/rtlpager/parse"
)

func TestEnvOverride(t *testing.T) {
	fs := flag.NewFlagSet("rtlpager", flag.ContinueOnError)
	freq := fs.String("freq", "153.350M", "")
	gain := fs.String("gain", "49.6", "")
	settle := fs.Duration("settle", time.Second, "")
	device := fs.String("device", "0", "")

	t.Setenv("PAGER_FREQ", "152.480M")
	t.Setenv("PAGER_GAIN", "40")
	t.Setenv("PAGER_SETTLE", "not a duration")

	log, hook := test.NewNullLogger()
	EnvOverride(fs, log)

	assert.Equal(t, "152.480M", *freq)
	assert.Equal(t, "40", *gain)
	assert.Equal(t, time.Second, *settle)
	assert.Equal(t, "0", *device)
	assert.Len(t, hook.AllEntries(), 3)

	// The command line takes precedence over the environment.
	require.NoError(t, fs.Parse([]string{"-gain", "20"}))
	assert.Equal(t, "20", *gain)
	assert.Equal(t, "152.480M", *freq)
}

func TestMessageTypes(t *testing.T) {
	assert.Equal(t, []string{"pocsag", "flex"}, MessageTypes("pocsag,flex"))
	assert.Equal(t, []string{"flex", "pocsag"}, MessageTypes(" FLEX , pocsag,"))
	assert.Empty(t, MessageTypes(""))
}

func TestUintMap(t *testing.T) {
	m := make(UintMap)
	require.NoError(t, m.Set("1234567, 42"))
	assert.True(t, m[1234567])
	assert.True(t, m[42])
	assert.Error(t, m.Set("nope"))

	single := UintMap{7: true}
	assert.Equal(t, "7", single.String())
}

func TestUniqueFilter(t *testing.T) {
	uf := NewUniqueFilter()

	a := parse.Message{Address: 1, Content: "a"}
	assert.True(t, uf.Filter(a))
	assert.False(t, uf.Filter(a))
	assert.True(t, uf.Filter(parse.Message{Address: 2, Content: "a"}))
	assert.True(t, uf.Filter(parse.Message{Address: 1, Content: "b"}))
	assert.True(t, uf.Filter(a))
}

func TestNewEncoder(t *testing.T) {
	msg := parse.LogMessage{
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Message: parse.Message{Protocol: parse.POCSAG, Address: 5, Function: 2, BaudRate: 1200, Content: "hi"},
	}

	enc, err := NewEncoder("", &bytes.Buffer{})
	assert.NoError(t, err)
	assert.Nil(t, enc)

	_, err = NewEncoder("gob", &bytes.Buffer{})
	assert.Error(t, err)

	for format, expected := range map[string]string{
		"plain": "{Time:2024-01-02T03:04:05.000 POCSAG1200:{Address:       5 Function:2 Content:\"hi\"}}\n",
		"csv":   "2024-01-02T03:04:05Z,POCSAG,1200,5,2,hi\n",
	} {
		buf := &bytes.Buffer{}
		enc, err := NewEncoder(format, buf)
		require.NoError(t, err)
		require.NoError(t, enc.Encode(msg))
		assert.Equal(t, expected, buf.String(), format)
	}

	buf := &bytes.Buffer{}
	enc, err = NewEncoder("XML", buf)
	require.NoError(t, err)
	require.NoError(t, enc.Encode(msg))
	assert.True(t, strings.HasSuffix(buf.String(), "</LogMessage>\n"), buf.String())
	assert.Contains(t, buf.String(), `Protocol="POCSAG"`)
}
