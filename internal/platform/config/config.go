package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile = ".env"

	defaultPort         = "8080"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 120 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultCatalogCacheTTL = 300 * time.Second

	defaultImageFetchTimeout = 10 * time.Second
	defaultImageWorkers      = 10

	defaultArtifactTTL              = 30 * time.Minute
	defaultArtifactCleanupInterval  = 5 * time.Minute
	defaultArtifactCleanupBatchSize = 200
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Catalog   CatalogConfig
	Images    ImageConfig
	Artifacts ArtifactConfig
}

// ServerConfig configures HTTP server parameters. Write timeout is generous
// because a render job may fetch dozens of thumbnails before responding.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds the catalog source connection parameters.
type DatabaseConfig struct {
	DSN string
}

// CatalogConfig controls catalog cache behaviour.
type CatalogConfig struct {
	CacheTTL time.Duration
}

// ImageConfig controls thumbnail fetching.
type ImageConfig struct {
	FetchTimeout time.Duration
	Workers      int
}

// ArtifactConfig controls the rendered-document handoff store.
type ArtifactConfig struct {
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// ValidationError is returned when configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups.
// Values in the map take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Environ, relying only on provided
// maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load resolves configuration with the precedence dotenv < OS env < explicit
// env map, applies defaults, and validates the result.
func Load(opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	values, err := environmentValues(options)
	if err != nil {
		return Config{}, err
	}

	var invalid []string

	lookup := func(key string) string {
		return strings.TrimSpace(values[key])
	}
	duration := func(key string, fallback time.Duration) time.Duration {
		raw := lookup(key)
		if raw == "" {
			return fallback
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, key)
			return fallback
		}
		return parsed
	}
	integer := func(key string, fallback int) int {
		raw := lookup(key)
		if raw == "" {
			return fallback
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			invalid = append(invalid, key)
			return fallback
		}
		return parsed
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         lookup("PORT"),
			ReadTimeout:  duration("SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: duration("SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  duration("SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Database: DatabaseConfig{
			DSN: lookup("DATABASE_DSN"),
		},
		Catalog: CatalogConfig{
			CacheTTL: duration("CATALOG_CACHE_TTL", defaultCatalogCacheTTL),
		},
		Images: ImageConfig{
			FetchTimeout: duration("IMAGE_FETCH_TIMEOUT", defaultImageFetchTimeout),
			Workers:      integer("IMAGE_FETCH_WORKERS", defaultImageWorkers),
		},
		Artifacts: ArtifactConfig{
			TTL:              duration("ARTIFACT_TTL", defaultArtifactTTL),
			CleanupInterval:  duration("ARTIFACT_CLEANUP_INTERVAL", defaultArtifactCleanupInterval),
			CleanupBatchSize: integer("ARTIFACT_CLEANUP_BATCH_SIZE", defaultArtifactCleanupBatchSize),
		},
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = defaultPort
	}
	if cfg.Database.DSN == "" {
		invalid = append(invalid, "DATABASE_DSN")
	}

	if len(invalid) > 0 {
		return Config{}, &ValidationError{fields: invalid}
	}
	return cfg, nil
}

func environmentValues(options loaderOptions) (map[string]string, error) {
	values := make(map[string]string)

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return nil, err
	}
	for key, value := range dotEnvValues {
		values[key] = value
	}

	if options.useSystemEnv {
		for _, entry := range os.Environ() {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			if key == "" {
				continue
			}
			values[key] = parts[1]
		}
	}

	for key, value := range options.envMap {
		values[key] = value
	}

	return values, nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: open env file %s: %w", path, err)
	}
	defer func() {
		_ = file.Close()
	}()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read env file %s: %w", path, err)
	}
	return values, nil
}
