// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Content ContentConfig
	Server  ServerConfig
	TTS     TTSConfig
	Storage StorageConfig
	Watcher WatcherConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `validate:"required,oneof=development staging production"`
	// DataPath is the base directory for the KV store, search index, and caches.
	DataPath string `validate:"required"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string `validate:"required,oneof=debug info warn error"`
}

// ContentConfig holds blog content configuration.
type ContentConfig struct {
	// PostsPath is the directory containing the MDX posts, one file per slug.
	PostsPath string `validate:"required"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        `validate:"required"`
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	// AllowedOrigins restricts CORS; "*" during development.
	AllowedOrigins []string
}

// TTSConfig holds the speech synthesis provider configuration.
type TTSConfig struct {
	// APIKey authenticates against the provider. Required only for generation,
	// so not validated at server startup.
	APIKey string
	// VoiceID is the default narration voice.
	VoiceID string
	ModelID string `validate:"required"`
	// PronunciationDictID and PronunciationDictVersion pin the pronunciation
	// dictionary applied to every synthesis request. Optional.
	PronunciationDictID      string
	PronunciationDictVersion string
	RequestTimeout           time.Duration
}

// StorageConfig holds narration artifact storage configuration.
type StorageConfig struct {
	// Backend selects the blob store implementation: "badger" or "nats".
	Backend string `validate:"required,oneof=badger nats"`
	// PublicURL is the base URL clients use to stream audio objects.
	PublicURL string `validate:"required,url"`
	// NATSURL and NATSBucket configure the JetStream object store backend.
	NATSURL    string
	NATSBucket string
}

// WatcherConfig holds content watcher configuration.
type WatcherConfig struct {
	// Enabled turns on staleness watching of the posts directory.
	Enabled bool
	// Debounce is how long a file must stay quiet before it is checked.
	Debounce time.Duration
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(args []string) (*Config, error) {
	fs := newFlagSet(args)

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(fs.envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(fs.env, "ENV", "development"),
			DataPath:    getConfigValue(fs.dataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(fs.logLevel, "LOG_LEVEL", "info"),
		},
		Content: ContentConfig{
			PostsPath: getConfigValue(fs.postsPath, "POSTS_PATH", ""),
		},
		Server: ServerConfig{
			Port:           getConfigValue(fs.port, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(fs.allowedOrigins, "ALLOWED_ORIGINS", "*")),
		},
		TTS: TTSConfig{
			APIKey:                   getConfigValue("", "ELEVENLABS_API_KEY", ""),
			VoiceID:                  getConfigValue(fs.voiceID, "ELEVENLABS_VOICE_ID", ""),
			ModelID:                  getConfigValue(fs.modelID, "ELEVENLABS_MODEL_ID", "eleven_turbo_v2_5"),
			PronunciationDictID:      getConfigValue("", "ELEVENLABS_PRONUNCIATION_DICT_ID", ""),
			PronunciationDictVersion: getConfigValue("", "ELEVENLABS_PRONUNCIATION_DICT_VERSION", ""),
		},
		Storage: StorageConfig{
			Backend:    getConfigValue(fs.storageBackend, "STORAGE_BACKEND", "badger"),
			PublicURL:  getConfigValue(fs.publicURL, "STORAGE_PUBLIC_URL", "http://localhost:8080/objects"),
			NATSURL:    getConfigValue("", "NATS_URL", ""),
			NATSBucket: getConfigValue("", "NATS_BUCKET", "narration"),
		},
		Watcher: WatcherConfig{
			Enabled: getBoolConfigValue(fs.watcherEnabled, "WATCHER_ENABLED", true),
		},
	}

	// Parse durations.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(fs.readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(fs.writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(fs.idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.TTS.RequestTimeout, err = parseDurationValue("", "TTS_REQUEST_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.Watcher.Debounce, err = parseDurationValue("", "WATCHER_DEBOUNCE", "2s"); err != nil {
		return nil, err
	}

	// Expand filesystem paths.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.expandPostsPath(); err != nil {
		return nil, fmt.Errorf("invalid posts path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	v := validator.New()
	for _, section := range []any{c.App, c.Logger, c.Content, c.Server, c.TTS, c.Storage} {
		if err := v.Struct(section); err != nil {
			return err
		}
	}
	if c.Storage.Backend == "nats" && c.Storage.NATSURL == "" {
		return fmt.Errorf("NATS_URL is required when STORAGE_BACKEND=nats")
	}
	return nil
}

// flagValues collects the parsed command-line flags.
type flagValues struct {
	env            string
	logLevel       string
	dataPath       string
	postsPath      string
	port           string
	readTimeout    string
	writeTimeout   string
	idleTimeout    string
	allowedOrigins string
	voiceID        string
	modelID        string
	storageBackend string
	publicURL      string
	watcherEnabled string
	envFile        string
}

func newFlagSet(args []string) *flagValues {
	fv := &flagValues{}
	fs := flag.NewFlagSet("narrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&fv.env, "env", "", "Environment (development, staging, production)")
	fs.StringVar(&fv.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&fv.dataPath, "data-path", "", "Base path for data storage")
	fs.StringVar(&fv.postsPath, "posts-path", "", "Path to the MDX posts directory")
	fs.StringVar(&fv.port, "port", "", "Server port (default: 8080)")
	fs.StringVar(&fv.readTimeout, "read-timeout", "", "HTTP read timeout (default: 15s)")
	fs.StringVar(&fv.writeTimeout, "write-timeout", "", "HTTP write timeout (default: 15s)")
	fs.StringVar(&fv.idleTimeout, "idle-timeout", "", "HTTP idle timeout (default: 60s)")
	fs.StringVar(&fv.allowedOrigins, "allowed-origins", "", "Comma-separated CORS origins (default: *)")
	fs.StringVar(&fv.voiceID, "voice-id", "", "Default narration voice ID")
	fs.StringVar(&fv.modelID, "model-id", "", "TTS model ID")
	fs.StringVar(&fv.storageBackend, "storage-backend", "", "Blob store backend (badger, nats)")
	fs.StringVar(&fv.publicURL, "public-url", "", "Public base URL for stored audio")
	fs.StringVar(&fv.watcherEnabled, "watcher-enabled", "", "Watch the posts directory for stale narrations (default: true)")
	fs.StringVar(&fv.envFile, "env-file", ".env", "Path to .env file")
	_ = fs.Parse(args)
	return fv
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/narrate/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "narrate", "data")

	expanded, err := expandPath(c.App.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.App.DataPath = expanded
	return nil
}

// expandPostsPath expands ~ and makes the path absolute.
// Defaults to ./content/posts relative to the working directory.
func (c *Config) expandPostsPath() error {
	expanded, err := expandPath(c.Content.PostsPath, "content/posts")
	if err != nil {
		return err
	}
	c.Content.PostsPath = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		path = defaultPath
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// parseDurationValue parses a duration from flag, env var, or default.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// splitList splits a comma-separated value into trimmed entries.
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
