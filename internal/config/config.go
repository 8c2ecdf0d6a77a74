package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for tripcache.
type Config struct {
	UserID     string           `toml:"user_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Client     ClientConfig     `toml:"client"`
	Registry   RegistryConfig   `toml:"registry"`
	Gateway    GatewayConfig    `toml:"gateway"`
	Geocoder   GeocoderConfig   `toml:"geocoder"`
	Tiles      TileConfig       `toml:"tiles"`
	Source     SourceConfig     `toml:"source"`
	Encryption EncryptionConfig `toml:"encryption"`
}

// ClientConfig holds settings for the on-device cache.
type ClientConfig struct {
	DataDir          string `toml:"data_dir"`            // sqlite database location
	BlobDir          string `toml:"blob_dir"`            // materialized blob URLs
	CacheSizeLimitMB int64  `toml:"cache_size_limit_mb"` // advisory, 0 disables the warning
}

// RegistryConfig holds the registry server and client settings. DSN may be
// left empty and supplied through the DATABASE_URL environment variable.
type RegistryConfig struct {
	BaseURL     string   `toml:"base_url"` // client-side endpoint
	DSN         string   `toml:"dsn"`
	ListenAddr  string   `toml:"listen_addr"`
	CorsOrigins []string `toml:"cors_origins"`
}

// GatewayConfig holds the caching gateway settings.
type GatewayConfig struct {
	ListenAddr       string   `toml:"listen_addr"`
	Upstream         string   `toml:"upstream"`
	Version          string   `toml:"version"` // cache partition version
	ShellPaths       []string `toml:"shell_paths"`
	APIPrefixes      []string `toml:"api_prefixes"`
	StaticExtensions []string `toml:"static_extensions"`
}

// GeocoderConfig holds the Nominatim-compatible geocoding endpoint settings.
type GeocoderConfig struct {
	BaseURL   string `toml:"base_url"`
	UserAgent string `toml:"user_agent"`
}

// TileConfig holds the slippy-map tile source settings.
type TileConfig struct {
	URLTemplate string `toml:"url_template"` // {z}/{x}/{y} placeholders
	UserAgent   string `toml:"user_agent"`
	DelayMs     int    `toml:"delay_ms"` // pause between tile requests
}

// SourceConfig holds the document bucket settings. Credentials may be left
// empty to use the ambient AWS credential chain.
type SourceConfig struct {
	Bucket          string `toml:"bucket"`
	Prefix          string `toml:"prefix,omitempty"`
	Region          string `toml:"region,omitempty"`
	Endpoint        string `toml:"endpoint,omitempty"`
	AccessKeyID     string `toml:"access_key_id,omitempty"`
	SecretAccessKey string `toml:"secret_access_key,omitempty"`
	SignedURLTTLSec int    `toml:"signed_url_ttl_sec"`
}

// EncryptionConfig holds paths to the age key pair used to seal document
// blobs at rest.
type EncryptionConfig struct {
	Type          string `toml:"type"` // "age" (default), "none", or "test"
	RecipientPath string `toml:"recipient_path"`
	IdentityPath  string `toml:"identity_path"`
}

// NewConfig creates a Config with the provided values and sensible defaults.
func NewConfig(userID, baseDir string) *Config {
	return &Config{
		UserID:  userID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Client: ClientConfig{
			DataDir:          filepath.Join(baseDir, "db"),
			BlobDir:          filepath.Join(baseDir, "blobs"),
			CacheSizeLimitMB: 500,
		},
		Registry: RegistryConfig{
			BaseURL:    "http://localhost:8080",
			ListenAddr: ":8080",
		},
		Gateway: GatewayConfig{
			ListenAddr: ":8081",
			Version:    "v1",
			ShellPaths: []string{"/", "/index.html", "/manifest.json"},
		},
		Geocoder: GeocoderConfig{
			BaseURL:   "https://nominatim.openstreetmap.org",
			UserAgent: "tripcache/1.0",
		},
		Tiles: TileConfig{
			URLTemplate: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
			UserAgent:   "tripcache/1.0",
			DelayMs:     50,
		},
		Encryption: EncryptionConfig{
			RecipientPath: filepath.Join(baseDir, "keys", "tripcache.pub"),
			IdentityPath:  filepath.Join(baseDir, "keys", "tripcache.key"),
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
