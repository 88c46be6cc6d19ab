package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level"`

	Server  ServerConfig  `yaml:"server"`
	Metrics MetricsConfig `yaml:"metrics"`
	Healthz HealthzConfig `yaml:"healthz"`

	Storage       StorageConfig       `yaml:"storage"`
	Collaborators CollaboratorsConfig `yaml:"collaborators"`
	Runs          RunsConfig          `yaml:"runs"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Debug   bool   `yaml:"debug"`
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
}

type HealthzConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
}

type StorageConfig struct {
	AudioDir string `yaml:"audio_dir"`
	TempDir  string `yaml:"temp_dir"`
}

type CollaboratorConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type CollaboratorsConfig struct {
	Synthesis     CollaboratorConfig `yaml:"synthesis"`
	Transcription CollaboratorConfig `yaml:"transcription"`
	Analysis      CollaboratorConfig `yaml:"analysis"`
}

type RunsConfig struct {
	// MaxConcurrent caps how many pipeline runs execute at once; runs
	// beyond the cap wait their turn in the background.
	MaxConcurrent int64         `yaml:"max_concurrent"`
	Retention     time.Duration `yaml:"retention"`
}

func New(file string) (*Config, error) {
	cfg := &Config{}
	contents, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}

	if c.Metrics.Enabled {
		if c.Metrics.Host == "" || c.Metrics.Port == "" {
			return errors.New("metrics is enabled but host or port are missing")
		}
	}
	if c.Healthz.Enabled {
		if c.Healthz.Host == "" || c.Healthz.Port == "" {
			return errors.New("healthz is enabled but host or port are missing")
		}
	}

	if c.Storage.AudioDir == "" {
		c.Storage.AudioDir = "storage/audio"
	}
	if c.Storage.TempDir == "" {
		c.Storage.TempDir = "storage/temp"
	}

	if c.Collaborators.Synthesis.Endpoint == "" {
		return errors.New("synthesis collaborator endpoint is missing")
	}
	if c.Collaborators.Transcription.Endpoint == "" {
		return errors.New("transcription collaborator endpoint is missing")
	}
	if c.Collaborators.Analysis.Endpoint == "" {
		return errors.New("analysis collaborator endpoint is missing")
	}
	if c.Collaborators.Synthesis.Timeout == 0 {
		c.Collaborators.Synthesis.Timeout = 60 * time.Second
	}
	if c.Collaborators.Transcription.Timeout == 0 {
		c.Collaborators.Transcription.Timeout = 120 * time.Second
	}
	if c.Collaborators.Analysis.Timeout == 0 {
		c.Collaborators.Analysis.Timeout = 120 * time.Second
	}

	if c.Runs.MaxConcurrent <= 0 {
		c.Runs.MaxConcurrent = 4
	}
	if c.Runs.Retention == 0 {
		c.Runs.Retention = 7 * 24 * time.Hour
	}

	return nil
}
