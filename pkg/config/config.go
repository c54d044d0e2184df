// Package config loads zetawatch settings from a YAML file.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"zetawatch/pkg/publish"
	"zetawatch/pkg/sweep"
	"zetawatch/pkg/zeta"
)

// Config is the top-level zetawatch configuration.
type Config struct {
	Sweep   sweep.Config  `yaml:"sweep"`
	Log     LogConfig     `yaml:"log"`
	NATS    NATSConfig    `yaml:"nats"`
	HTTP    HTTPConfig    `yaml:"http"`
	Render  RenderConfig  `yaml:"render"`
	Archive ArchiveConfig `yaml:"archive"`
}

// LogConfig selects logrus level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// NATSConfig controls publishing and the partial sum service.
type NATSConfig struct {
	URL            string         `yaml:"url"` // empty disables NATS
	Prefix         string         `yaml:"prefix"`
	Format         publish.Format `yaml:"format"` // json | proto
	ZerosOnly      bool           `yaml:"zeros_only"`
	PartialSubject string         `yaml:"partial_subject"`
	Queue          string         `yaml:"queue"`
	// Distributed sends the direct sum of every evaluation to workers.
	Distributed bool          `yaml:"distributed"`
	ChunkSize   int           `yaml:"chunk_size"`
	Timeout     time.Duration `yaml:"timeout"`
}

// HTTPConfig controls the API server.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the server
}

// RenderConfig controls frame output.
type RenderConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Stride int     `yaml:"stride"`
	// FrameDir receives a PNG every FrameEvery ticks. Empty disables it.
	FrameDir   string `yaml:"frame_dir"`
	FrameEvery int    `yaml:"frame_every"`
}

// ArchiveConfig names the file written when a run stops.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := Config{Sweep: sweep.DefaultConfig()}
	c.applyDefaults()
	return &c
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates. Keys absent from the
// document keep their default; keys present are taken as written, so an
// out-of-range value is an error rather than silently replaced.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.NATS.Prefix == "" {
		c.NATS.Prefix = publish.DefaultPrefix
	}
	if c.NATS.Format == "" {
		c.NATS.Format = publish.FormatJSON
	}
	if c.NATS.PartialSubject == "" {
		c.NATS.PartialSubject = publish.DefaultPartialSubject
	}
	if c.NATS.Queue == "" {
		c.NATS.Queue = "workers"
	}
	if c.NATS.ChunkSize == 0 {
		c.NATS.ChunkSize = zeta.DefaultChunkSize
	}
	if c.NATS.Timeout == 0 {
		c.NATS.Timeout = 10 * time.Second
	}

	if c.Render.Width == 0 {
		c.Render.Width = sweep.DefaultViewportSize
	}
	if c.Render.Height == 0 {
		c.Render.Height = sweep.DefaultViewportSize
	}
	if c.Render.Stride == 0 {
		c.Render.Stride = 4
	}
	if c.Render.FrameEvery == 0 {
		c.Render.FrameEvery = 10
	}
}

// Validate checks the sweep settings and the enumerated fields.
func (c *Config) Validate() error {
	if err := c.Sweep.Validate(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("config: log format %q is not text or json", c.Log.Format)
	}
	if c.NATS.Format != publish.FormatJSON && c.NATS.Format != publish.FormatProto {
		return fmt.Errorf("config: %w: %q", publish.ErrUnknownFormat, c.NATS.Format)
	}
	if c.NATS.Distributed && c.NATS.URL == "" {
		return fmt.Errorf("config: nats.distributed needs nats.url")
	}
	switch {
	case c.NATS.ChunkSize < 1:
		return fmt.Errorf("config: nats.chunk_size must be positive, got %d", c.NATS.ChunkSize)
	case c.NATS.Timeout <= 0:
		return fmt.Errorf("config: nats.timeout must be positive, got %s", c.NATS.Timeout)
	case c.Render.Width < 0 || c.Render.Height < 0:
		return fmt.Errorf("config: render size %gx%g is negative", c.Render.Width, c.Render.Height)
	case c.Render.Stride < 1:
		return fmt.Errorf("config: render.stride must be positive, got %d", c.Render.Stride)
	case c.Render.FrameEvery < 1:
		return fmt.Errorf("config: render.frame_every must be positive, got %d", c.Render.FrameEvery)
	}
	return nil
}

// Logger builds the logrus logger described by c, writing to out.
func (c LogConfig) Logger(out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	if c.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}
