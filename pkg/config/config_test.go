package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetawatch/pkg/publish"
	"zetawatch/pkg/sweep"
	"zetawatch/pkg/zeta"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, sweep.DefaultConfig(), c.Sweep)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, publish.DefaultPrefix, c.NATS.Prefix)
	assert.Equal(t, 300.0, c.Render.Width)
	require.NoError(t, c.Validate())
}

func TestLoadFile(t *testing.T) {
	yml := `
sweep:
  step: 0.1
  period: 50ms
  zero_threshold: 0.02
  method: auto
  digits: 12
log:
  level: debug
  format: json
nats:
  url: nats://localhost:4222
  format: proto
http:
  addr: ":8080"
render:
  frame_dir: /tmp/frames
`
	path := filepath.Join(t.TempDir(), "zetawatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.1, c.Sweep.Step)
	assert.Equal(t, 50*time.Millisecond, c.Sweep.Period)
	assert.Equal(t, 0.02, c.Sweep.ZeroThreshold)
	assert.Equal(t, 0.3, c.Sweep.ApproachThreshold, "unset fields take defaults")
	assert.Equal(t, zeta.MethodAuto, c.Sweep.Method)
	assert.Equal(t, 12, c.Sweep.Digits)
	assert.Equal(t, publish.FormatProto, c.NATS.Format)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, 10, c.Render.FrameEvery)
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"threshold order": "sweep:\n  zero_threshold: 0.5\n",
		"precision":       "sweep:\n  digits: 40\n",
		"log level":       "log:\n  level: loud\n",
		"log format":      "log:\n  format: xml\n",
		"nats format":     "nats:\n  format: avro\n",
		"distributed":     "nats:\n  distributed: true\n",
		"yaml":            "sweep: [",
		"negative step":   "sweep:\n  step: -0.2\n",
		"zero step":       "sweep:\n  step: 0\n",
		"negative zero":   "sweep:\n  zero_threshold: -1\n",
		"negative sep":    "sweep:\n  min_separation: -5\n",
		"negative fade":   "sweep:\n  fade_window: -1\n",
		"negative period": "sweep:\n  period: -1s\n",
		"zero tolerance":  "sweep:\n  tolerance: 0\n",
		"zero trail":      "sweep:\n  trail_capacity: 0\n",
		"chunk size":      "nats:\n  chunk_size: -1\n",
		"timeout":         "nats:\n  timeout: 0s\n",
		"render size":     "render:\n  width: -10\n",
		"stride":          "render:\n  stride: 0\n",
		"frame every":     "render:\n  frame_every: -2\n",
	}
	for name, yml := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(yml))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("sweep:\n  zero_threshold: 0.5\n"))
	assert.ErrorIs(t, err, sweep.ErrInvalidConfig)
	_, err = Parse([]byte("sweep:\n  step: -0.2\n"))
	assert.ErrorIs(t, err, sweep.ErrInvalidConfig)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	c, err := Parse([]byte("sweep:\n  fade_window: 0\n  step: 0.5\n"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Sweep.FadeWindow)
	assert.Equal(t, 0.5, c.Sweep.Step)
	assert.Equal(t, sweep.DefaultConfig().MinSeparation, c.Sweep.MinSeparation)

	c, err = Parse([]byte("log:\n  level: warn\n"))
	require.NoError(t, err)
	want := *Default()
	want.Log.Level = "warn"
	assert.Equal(t, want, *c)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())

	l.Info("hidden")
	l.WithField("t", 21.0).Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"t":21`)
}
