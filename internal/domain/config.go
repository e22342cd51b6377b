package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Netease  NeteaseConfig  `mapstructure:"netease"`
	Download DownloadConfig `mapstructure:"download"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// NeteaseConfig contains upstream service credentials and endpoints
type NeteaseConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	InterfaceURL string        `mapstructure:"interface_url"`
	Cookie       string        `mapstructure:"cookie"`
	CookieFile   string        `mapstructure:"cookie_file"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// DownloadConfig contains download engine configuration
type DownloadConfig struct {
	Dir              string        `mapstructure:"dir"`
	Quality          string        `mapstructure:"quality"`
	ConcurrentLimit  int           `mapstructure:"concurrent_limit"`
	StreamTimeout    time.Duration `mapstructure:"stream_timeout"`
	NameWithMetadata bool          `mapstructure:"name_with_metadata"`
}

// CatalogConfig contains catalog persistence configuration
type CatalogConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// MirrorConfig configures the optional aggregator fallback resolver
type MirrorConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url"`
	Source  string        `mapstructure:"source"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 5000,
		},
		Netease: NeteaseConfig{
			BaseURL:      "https://music.163.com",
			InterfaceURL: "https://interface.music.163.com",
			CookieFile:   "$HOME/.ncm-fetch/cookie",
			Timeout:      30 * time.Second,
		},
		Download: DownloadConfig{
			Dir:              "$HOME/Music/ncm",
			Quality:          string(LevelExHigh),
			ConcurrentLimit:  4,
			StreamTimeout:    60 * time.Second,
			NameWithMetadata: true,
		},
		Catalog: CatalogConfig{
			DatabasePath: "$HOME/Music/ncm/catalog.db",
		},
		Mirror: MirrorConfig{
			Enabled: false,
			Source:  "netease",
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
