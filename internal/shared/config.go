package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Tempo       TempoConfig       `toml:"tempo"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Session     SessionConfig     `toml:"session"`
	Database    DatabaseConfig    `toml:"database"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials.
//
// ClientID/ClientSecret authorize catalog search (client credentials).
// RefreshToken authorizes player control on behalf of the user and is obtained with `cadence auth`.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	RefreshToken string `toml:"refresh_token"`
	DeviceID     string `toml:"device_id"`
	Market       string `toml:"market"`
}

// TempoConfig contains tempo provider endpoints and pacing.
type TempoConfig struct {
	IntervalMS            int    `toml:"interval_ms"`
	SoundStatURL          string `toml:"soundstat_url"`
	SoundStatAPIKey       string `toml:"soundstat_api_key"`
	MusicBrainzURL        string `toml:"musicbrainz_url"`
	MusicBrainzIntervalMS int    `toml:"musicbrainz_interval_ms"`
	AcousticBrainzURL     string `toml:"acousticbrainz_url"`
	UserAgent             string `toml:"user_agent"`
	TimeoutMS             int    `toml:"timeout_ms"`
}

// CatalogConfig controls candidate pool assembly.
type CatalogConfig struct {
	Batches   int `toml:"batches"`
	BatchSize int `toml:"batch_size"`
	MaxOffset int `toml:"max_offset"`
}

// SessionConfig contains playback session defaults.
type SessionConfig struct {
	Tolerance      int `toml:"tolerance"`
	PollIntervalMS int `toml:"poll_interval_ms"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Interval returns the primary tempo provider spacing.
func (c TempoConfig) Interval() time.Duration {
	return millis(c.IntervalMS, time.Second)
}

// MusicBrainzInterval returns the MusicBrainz request spacing.
func (c TempoConfig) MusicBrainzInterval() time.Duration {
	return millis(c.MusicBrainzIntervalMS, time.Second)
}

// Timeout returns the per-request HTTP timeout for tempo providers.
func (c TempoConfig) Timeout() time.Duration {
	return millis(c.TimeoutMS, 10*time.Second)
}

// PollInterval returns the player watcher polling interval.
func (c SessionConfig) PollInterval() time.Duration {
	return millis(c.PollIntervalMS, time.Second)
}

func millis(ms int, fallback time.Duration) time.Duration {
	if ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values absent from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
