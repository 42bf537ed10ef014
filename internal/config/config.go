// Package config handles loading and validating the voicebox configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for voicebox.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Transports TransportsConfig `mapstructure:"transports" yaml:"transports"`
	Auth       AuthConfig       `mapstructure:"auth" yaml:"auth"`
	Media      MediaConfig      `mapstructure:"media" yaml:"media"`
	Models     ModelsConfig     `mapstructure:"models" yaml:"models"`
	Whisper    WhisperConfig    `mapstructure:"whisper" yaml:"whisper"`
	Language   LanguageConfig   `mapstructure:"language" yaml:"language"`
	TTS        TTSConfig        `mapstructure:"tts" yaml:"tts"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port" yaml:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc" yaml:"grpc"`
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`
}

// GRPCConfig configures the gRPC health transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// HTTPConfig configures the HTTP/WebSocket transport.
type HTTPConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	Port        int  `mapstructure:"port" yaml:"port"`
	RateLimit   int  `mapstructure:"rate_limit" yaml:"rate_limit"`       // requests per minute per IP, 0 = unlimited
	MaxUploadMB int  `mapstructure:"max_upload_mb" yaml:"max_upload_mb"` // multipart upload cap
}

// AuthConfig holds the shared API key settings.
type AuthConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	KeyFile string `mapstructure:"key_file" yaml:"key_file"`
}

// MediaConfig configures audio normalization.
type MediaConfig struct {
	FFmpegPath   string `mapstructure:"ffmpeg_path" yaml:"ffmpeg_path"`
	ProbeSeconds int    `mapstructure:"probe_seconds" yaml:"probe_seconds"`
}

// ModelsConfig selects the speech models per tier and the cache location.
type ModelsConfig struct {
	CacheDir         string `mapstructure:"cache_dir" yaml:"cache_dir"`
	Download         bool   `mapstructure:"download" yaml:"download"`
	BaseURL          string `mapstructure:"base_url" yaml:"base_url"`
	Fast             string `mapstructure:"fast" yaml:"fast"`
	FullEnglish      string `mapstructure:"full_english" yaml:"full_english"`
	FullMultilingual string `mapstructure:"full_multilingual" yaml:"full_multilingual"`
	PurgeFastCache   bool   `mapstructure:"purge_fast_cache" yaml:"purge_fast_cache"`
	VADModel         string `mapstructure:"vad_model" yaml:"vad_model"` // empty disables VAD
}

// WhisperConfig configures the whisper.cpp engine.
type WhisperConfig struct {
	Binary  string `mapstructure:"binary" yaml:"binary"`
	Threads int    `mapstructure:"threads" yaml:"threads"`
}

// LanguageConfig holds language detection policy.
type LanguageConfig struct {
	Fallback string `mapstructure:"fallback" yaml:"fallback"` // ISO-639-1, used when detection reports nothing
}

// TTSConfig selects and configures the text-to-speech backend.
type TTSConfig struct {
	Backend string       `mapstructure:"backend" yaml:"backend"` // "espeak" or "piper"
	Espeak  EspeakConfig `mapstructure:"espeak" yaml:"espeak"`
	Piper   PiperConfig  `mapstructure:"piper" yaml:"piper"`
}

// EspeakConfig holds espeak-ng settings.
type EspeakConfig struct {
	Binary string `mapstructure:"binary" yaml:"binary"`
	Voice  string `mapstructure:"voice" yaml:"voice"`
}

// PiperConfig holds Piper TTS settings (Wyoming protocol).
type PiperConfig struct {
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"` // Wyoming TCP endpoint (host:port)
	Voice    string `mapstructure:"voice" yaml:"voice"`       // Piper voice model name, empty = server default
}

// StorageConfig selects where finished transcripts are archived.
type StorageConfig struct {
	Backend string     `mapstructure:"backend" yaml:"backend"` // "none", "file" or "s3"
	File    FileConfig `mapstructure:"file" yaml:"file"`
	S3      S3Config   `mapstructure:"s3" yaml:"s3"`
}

// FileConfig configures the local transcript archive.
type FileConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// S3Config configures an S3-compatible transcript archive.
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./voicebox.yaml, ./configs/voicebox.yaml, /etc/voicebox/voicebox.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", false)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8000)
	v.SetDefault("transports.http.rate_limit", 0)
	v.SetDefault("transports.http.max_upload_mb", 512)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("auth.key_file", ".api_key")
	v.SetDefault("media.ffmpeg_path", "ffmpeg")
	v.SetDefault("media.probe_seconds", 30)
	v.SetDefault("models.cache_dir", "")
	v.SetDefault("models.download", true)
	v.SetDefault("models.base_url", "https://huggingface.co/ggerganov/whisper.cpp/resolve/main")
	v.SetDefault("models.fast", "tiny")
	v.SetDefault("models.full_english", "small.en")
	v.SetDefault("models.full_multilingual", "small")
	v.SetDefault("models.purge_fast_cache", true)
	v.SetDefault("models.vad_model", "silero-v5.1.2")
	v.SetDefault("whisper.binary", "whisper-cli")
	v.SetDefault("whisper.threads", 0)
	v.SetDefault("language.fallback", "en")
	v.SetDefault("tts.backend", "espeak")
	v.SetDefault("tts.espeak.binary", "espeak-ng")
	v.SetDefault("tts.espeak.voice", "")
	v.SetDefault("tts.piper.endpoint", "localhost:10200")
	v.SetDefault("tts.piper.voice", "")
	v.SetDefault("storage.backend", "none")
	v.SetDefault("storage.file.dir", "transcripts")
	v.SetDefault("storage.s3.endpoint", "localhost:9000")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.use_ssl", false)
	v.SetDefault("storage.s3.prefix", "transcripts/")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("voicebox")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/voicebox")
	}

	// Environment variables: VOICEBOX_SERVER_HEALTH_PORT, VOICEBOX_MODELS_FAST, etc.
	v.SetEnvPrefix("VOICEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The bare API_KEY variable is honoured for compatibility with existing deployments.
	if err := v.BindEnv("auth.api_key", "VOICEBOX_AUTH_API_KEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("binding api key env: %w", err)
	}

	// Read config file (optional; env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${MINIO_SECRET}")
	cfg.Auth.APIKey = resolveEnvRef(cfg.Auth.APIKey)
	cfg.Storage.S3.AccessKey = resolveEnvRef(cfg.Storage.S3.AccessKey)
	cfg.Storage.S3.SecretKey = resolveEnvRef(cfg.Storage.S3.SecretKey)

	cfg.Models.CacheDir = expandTilde(cfg.Models.CacheDir)
	cfg.Auth.KeyFile = expandTilde(cfg.Auth.KeyFile)

	return &cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	for name, port := range map[string]int{
		"server.health_port":   c.Server.HealthPort,
		"transports.http.port": c.Transports.HTTP.Port,
		"transports.grpc.port": c.Transports.GRPC.Port,
	} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s must be between 0 and 65535, got %d", name, port)
		}
	}

	if c.Media.ProbeSeconds <= 0 {
		return fmt.Errorf("media.probe_seconds must be > 0")
	}
	if c.Transports.HTTP.RateLimit < 0 {
		return fmt.Errorf("transports.http.rate_limit must be >= 0")
	}
	if c.Transports.HTTP.MaxUploadMB <= 0 {
		return fmt.Errorf("transports.http.max_upload_mb must be > 0")
	}
	if c.Models.Fast == "" || c.Models.FullEnglish == "" || c.Models.FullMultilingual == "" {
		return fmt.Errorf("models.fast, models.full_english and models.full_multilingual must not be empty")
	}

	switch c.TTS.Backend {
	case "espeak", "piper":
	default:
		return fmt.Errorf("tts.backend must be \"espeak\" or \"piper\", got %q", c.TTS.Backend)
	}

	switch c.Storage.Backend {
	case "none", "file":
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket must not be empty when storage.backend is \"s3\"")
		}
	default:
		return fmt.Errorf("storage.backend must be \"none\", \"file\" or \"s3\", got %q", c.Storage.Backend)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}

	return nil
}

// Redacted returns a copy of the config with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Auth.APIKey = mask(c.Auth.APIKey)
	c.Storage.S3.AccessKey = mask(c.Storage.S3.AccessKey)
	c.Storage.S3.SecretKey = mask(c.Storage.S3.SecretKey)
	return c
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// expandTilde replaces a leading ~ with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	SetupLoggingTo(os.Stdout, cfg)
}

// SetupLoggingTo is SetupLogging with an explicit destination. The CLI logs
// to stderr so stdout carries only command output.
func SetupLoggingTo(w io.Writer, cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}
