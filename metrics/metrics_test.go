package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()

	m.LineRead()
	m.LineRead()
	m.Decoded("POCSAG", "1200")
	m.Forwarded("http")
	m.Failed("http")
	m.Failed("http")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.lines))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decoded.WithLabelValues("POCSAG", "1200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forwarded.WithLabelValues("http")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.failed.WithLabelValues("http")))
}

func TestNil(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.LineRead()
		m.Decoded("FLEX", "1600")
		m.Forwarded("mqtt")
		m.Failed("mqtt")
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.Forwarded("http")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `rtlpager_messages_forwarded_total{sink="http"} 1`), body)
}
