package lumend

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration for lumend.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Modules ModulesConfig `toml:"modules"`
}

// ServerConfig defines shared daemon settings.
type ServerConfig struct {
	AssetRoot string `toml:"asset_root"`
	StateDir  string `toml:"state_dir"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
	LogOutput string `toml:"log_output"`
}

// ModulesConfig holds module configurations.
type ModulesConfig struct {
	MediaServer  MediaServerConfig  `toml:"media_server"`
	Player       PlayerConfig       `toml:"player"`
	EmbeddedMQTT EmbeddedMQTTConfig `toml:"embedded_mqtt"`
}

// MediaServerConfig configures the local asset HTTP server.
type MediaServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
}

// PlayerConfig configures the remote player module.
type PlayerConfig struct {
	Enabled        bool   `toml:"enabled"`
	BackendURL     string `toml:"backend_url"`
	APIKey         string `toml:"api_key"`
	CacheDir       string `toml:"cache_dir"`
	PollIntervalMS int64  `toml:"poll_interval_ms"`
	CrossfadeMS    int64  `toml:"crossfade_ms"`
	LocalBaseURL   string `toml:"local_base_url"`
	Hostname       string `toml:"hostname"`
	ImagePipeline  string `toml:"image_pipeline"`
	VideoPipeline  string `toml:"video_pipeline"`
	Broker         string `toml:"broker"`
	TopicBase      string `toml:"topic_base"`
	BrokerUser     string `toml:"broker_user"`
	BrokerPass     string `toml:"broker_pass"`
}

// EmbeddedMQTTConfig configures the embedded change-feed broker.
type EmbeddedMQTTConfig struct {
	Enabled        bool   `toml:"enabled"`
	Listen         string `toml:"listen"`
	AllowAnonymous bool   `toml:"allow_anonymous"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
}

// LoadConfig loads a config file from path.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, err
	}
	if info.IsDir() {
		return Config{}, errors.New("config path is a directory")
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DefaultConfigPath returns the default config location.
func DefaultConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "lumen", "lumend.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lumen", "lumend.toml"), nil
}

// DefaultStateDir returns where device identity and caches live.
func DefaultStateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "lumen"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "lumen"), nil
}

// DefaultAssetRoot returns the default confined media root.
func DefaultAssetRoot() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "lumen", "Assets"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "lumen", "Assets"), nil
}
