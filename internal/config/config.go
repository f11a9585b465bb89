// Package config loads fingerspell settings from an optional YAML file,
// FINGERSPELL_* environment variables and command line overrides.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FINGERSPELL_LOG_LEVEL.
const EnvPrefix = "FINGERSPELL"

// Classifier kinds.
const (
	KindTFLite   = "tflite"
	KindCentroid = "centroid"
)

type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type Detector struct {
	Script        string  `mapstructure:"script"`
	Python        string  `mapstructure:"python"`
	MinConfidence float64 `mapstructure:"min_confidence"`
}

type Dataset struct {
	Workers      int    `mapstructure:"workers"`
	NothingLabel string `mapstructure:"nothing_label"`
}

type Classifier struct {
	// Kind is "tflite" or "centroid".
	Kind string `mapstructure:"kind"`
	// Model is a .tflite file or, for the centroid classifier, a dataset CSV.
	Model       string  `mapstructure:"model"`
	Labels      string  `mapstructure:"labels"`
	Threads     int     `mapstructure:"threads"`
	Temperature float64 `mapstructure:"temperature"`
}

type Inference struct {
	Source        string  `mapstructure:"source"`
	Mirror        bool    `mapstructure:"mirror"`
	FPS           int     `mapstructure:"fps"`
	MinConfidence float64 `mapstructure:"min_confidence"`
	Window        int     `mapstructure:"window"`
	Preview       bool    `mapstructure:"preview"`
}

type Server struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"static_dir"`
}

type Practice struct {
	Hold time.Duration `mapstructure:"hold"`
	// Targets are labels to practice in order. A single word is split
	// into letters.
	Targets []string `mapstructure:"targets"`
}

// Config is the full application configuration.
type Config struct {
	DataDir    string     `mapstructure:"data_dir"`
	Log        Log        `mapstructure:"log"`
	Detector   Detector   `mapstructure:"detector"`
	Dataset    Dataset    `mapstructure:"dataset"`
	Classifier Classifier `mapstructure:"classifier"`
	Inference  Inference  `mapstructure:"inference"`
	Server     Server     `mapstructure:"server"`
	Practice   Practice   `mapstructure:"practice"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// DBPath returns the sqlite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "fingerspell.db")
}

func setDefaults(v *viper.Viper) {
	dataDir := ".fingerspell"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".fingerspell")
	}

	v.SetDefault("data_dir", dataDir)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("detector.script", "")
	v.SetDefault("detector.python", "")
	v.SetDefault("detector.min_confidence", 0.5)
	v.SetDefault("dataset.workers", 0)
	v.SetDefault("dataset.nothing_label", "nothing")
	v.SetDefault("classifier.kind", KindTFLite)
	v.SetDefault("classifier.model", "")
	v.SetDefault("classifier.labels", "")
	v.SetDefault("classifier.threads", 1)
	v.SetDefault("classifier.temperature", 0.1)
	v.SetDefault("inference.source", "0")
	v.SetDefault("inference.mirror", true)
	v.SetDefault("inference.fps", 30)
	v.SetDefault("inference.min_confidence", 0.0)
	v.SetDefault("inference.window", 30)
	v.SetDefault("inference.preview", true)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.static_dir", "")
	v.SetDefault("practice.hold", 800*time.Millisecond)
	v.SetDefault("practice.targets", []string{})
}

// Load reads configuration. When file is empty, fingerspell.yaml is looked
// up in the working directory and $HOME/.fingerspell; a missing file is
// not an error. Overrides take precedence over every other source.
func Load(file string, overrides map[string]interface{}) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("fingerspell")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".fingerspell"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	switch c.Classifier.Kind {
	case KindTFLite, KindCentroid:
	default:
		return errors.Errorf("classifier.kind must be %q or %q, got %q", KindTFLite, KindCentroid, c.Classifier.Kind)
	}
	if c.Inference.MinConfidence < 0 || c.Inference.MinConfidence > 1 {
		return errors.Errorf("inference.min_confidence must be within [0, 1], got %v", c.Inference.MinConfidence)
	}
	if c.Dataset.Workers < 0 {
		return errors.Errorf("dataset.workers must not be negative, got %d", c.Dataset.Workers)
	}
	if strings.TrimSpace(c.Dataset.NothingLabel) == "" {
		return errors.New("dataset.nothing_label must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	return nil
}
