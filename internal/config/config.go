package config

import (
	"os"
	"strings"
	"time"

	"github.com/packwright/packwright/pkg/logger"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Build     BuildConfig     `mapstructure:"build"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	GitHub    GitHubConfig    `mapstructure:"github"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// BuildConfig holds build output configuration
type BuildConfig struct {
	DistDir string `mapstructure:"dist_dir"`
	Workers int    `mapstructure:"workers"`
}

// ArtifactsConfig holds the artifact store configuration
type ArtifactsConfig struct {
	Root string `mapstructure:"root"`
}

// GitHubConfig holds the release publishing configuration.
// Token is never read from the pipeline file, only from config or environment.
type GitHubConfig struct {
	Owner      string        `mapstructure:"owner"`
	Repo       string        `mapstructure:"repo"`
	APIBase    string        `mapstructure:"api_base"`
	UploadBase string        `mapstructure:"upload_base"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Default values. Every key needs a default, otherwise environment-only
	// values are invisible to Unmarshal.
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")

	v.SetDefault("build.dist_dir", "dist")
	v.SetDefault("build.workers", 4)

	v.SetDefault("artifacts.root", ".packwright/artifacts")

	v.SetDefault("github.owner", "")
	v.SetDefault("github.repo", "")
	v.SetDefault("github.token", "")
	v.SetDefault("github.api_base", "https://api.github.com")
	v.SetDefault("github.upload_base", "https://uploads.github.com")
	v.SetDefault("github.timeout", "5m")

	// Configuration file name and path
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.packwright")
	}

	// Read environment variables, PACKWRIGHT_BUILD_DIST_DIR overrides
	// build.dist_dir and so on
	v.AutomaticEnv()
	v.SetEnvPrefix("PACKWRIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read configuration file
	err := v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Bind configuration to struct
	var config Config
	err = v.Unmarshal(&config)
	if err != nil {
		return nil, err
	}

	resolveToken(&config)

	// Initialize logger
	err = initLogger(&config.Logging)
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// resolveToken falls back to the conventional environment variables when the
// config file does not carry a token
func resolveToken(cfg *Config) {
	if cfg.GitHub.Token != "" {
		return
	}
	if token := os.Getenv("PACKWRIGHT_GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
		return
	}
	cfg.GitHub.Token = os.Getenv("GITHUB_TOKEN")
}

// initLogger initializes the logger with the provided configuration
func initLogger(cfg *LoggingConfig) error {
	logConfig := logger.Config{
		Level:  cfg.Level,
		Format: cfg.Format,
		File:   cfg.File,
		Module: "main",
	}

	return logger.Init(logConfig)
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Build: BuildConfig{
			DistDir: "dist",
			Workers: 4,
		},
		Artifacts: ArtifactsConfig{
			Root: ".packwright/artifacts",
		},
		GitHub: GitHubConfig{
			APIBase:    "https://api.github.com",
			UploadBase: "https://uploads.github.com",
			Timeout:    5 * time.Minute,
		},
	}
	resolveToken(cfg)
	return cfg
}
