// Package config assembles runtime settings from CLI flags with environment
// fallbacks. Each command registers the flags it needs via RegisterFlags and
// reads them back with FromCLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/dshills/skout-mcp/internal/embedder"
	"github.com/dshills/skout-mcp/internal/synergy"
)

const (
	APIKeyFlag           = "api-key"
	BaseURLFlag          = "base-url"
	LeagueFlag           = "league"
	DBPathFlag           = "db-path"
	VectorDBPathFlag     = "vector-db-path"
	MaxRetriesFlag       = "max-retries"
	BackoffBaseFlag      = "backoff-base"
	ServerErrorDelayFlag = "server-error-delay"
	RequestIntervalFlag  = "request-interval"
	RequestTimeoutFlag   = "request-timeout"
	PeriodLengthFlag     = "period-length"
	RedisURLFlag         = "redis-url"
	ClipsDirFlag         = "clips-dir"
	FFmpegFlag           = "ffmpeg"
	LogLevelFlag         = "log-level"
	EmbeddingFlag        = "embedding-provider"
	JinaKeyFlag          = "jina-api-key"
	OpenAIKeyFlag        = "openai-api-key"
)

// Defaults
const (
	DefaultBaseURL          = "https://api.sportradar.com/synergy/basketball"
	DefaultLeague           = "ncaamb"
	DefaultDBPath           = "~/.skout/skout.db"
	DefaultVectorDBPath     = "~/.skout/vectors.db"
	DefaultClipsDir         = "~/.skout/clips"
	DefaultMaxRetries       = 4
	DefaultBackoffBase      = 2500 * time.Millisecond
	DefaultServerErrorDelay = 2 * time.Second
	DefaultRequestInterval  = 500 * time.Millisecond
	DefaultRequestTimeout   = 30 * time.Second
	DefaultPeriodLength     = 1200
)

var (
	ErrInvalidRetries      = errors.New("max retries must be positive")
	ErrInvalidPeriodLength = errors.New("period length must be positive")
	ErrNegativeDuration    = errors.New("durations must not be negative")
)

// Config is the resolved runtime configuration.
type Config struct {
	APIKey  string
	BaseURL string
	League  string

	DBPath       string
	VectorDBPath string

	MaxRetries       int
	BackoffBase      time.Duration
	ServerErrorDelay time.Duration
	RequestInterval  time.Duration
	RequestTimeout   time.Duration

	PeriodLength int

	RedisURL string
	ClipsDir string
	FFmpeg   string
	LogLevel string

	EmbeddingProvider string
	JinaAPIKey        string
	OpenAIAPIKey      string
}

// Default returns a configuration populated with built-in defaults.
func Default() *Config {
	return &Config{
		BaseURL:          DefaultBaseURL,
		League:           DefaultLeague,
		DBPath:           DefaultDBPath,
		VectorDBPath:     DefaultVectorDBPath,
		MaxRetries:       DefaultMaxRetries,
		BackoffBase:      DefaultBackoffBase,
		ServerErrorDelay: DefaultServerErrorDelay,
		RequestInterval:  DefaultRequestInterval,
		RequestTimeout:   DefaultRequestTimeout,
		PeriodLength:     DefaultPeriodLength,
		ClipsDir:         DefaultClipsDir,
		FFmpeg:           "ffmpeg",
		LogLevel:         "info",
	}
}

func RegisterFlags(f []cli.Flag) []cli.Flag {
	return append(f,
		cli.StringFlag{
			Name:   APIKeyFlag,
			Usage:  "synergy api key",
			EnvVar: "SYNERGY_API_KEY",
		},
		cli.StringFlag{
			Name:   BaseURLFlag,
			Usage:  "synergy api base url",
			Value:  DefaultBaseURL,
			EnvVar: "SYNERGY_BASE_URL",
		},
		cli.StringFlag{
			Name:   LeagueFlag,
			Usage:  "league code",
			Value:  DefaultLeague,
			EnvVar: "SKOUT_LEAGUE",
		},
		cli.StringFlag{
			Name:   DBPathFlag,
			Usage:  "relational cache path",
			Value:  DefaultDBPath,
			EnvVar: "SKOUT_DB_PATH",
		},
		cli.StringFlag{
			Name:   VectorDBPathFlag,
			Usage:  "vector index path",
			Value:  DefaultVectorDBPath,
			EnvVar: "SKOUT_VECTOR_DB_PATH",
		},
		cli.IntFlag{
			Name:   MaxRetriesFlag,
			Usage:  "max attempts per remote call",
			Value:  DefaultMaxRetries,
			EnvVar: "SYNERGY_MAX_RETRIES",
		},
		cli.DurationFlag{
			Name:   BackoffBaseFlag,
			Usage:  "base delay for rate limited backoff",
			Value:  DefaultBackoffBase,
			EnvVar: "SYNERGY_BACKOFF_BASE",
		},
		cli.DurationFlag{
			Name:   ServerErrorDelayFlag,
			Usage:  "delay after server or network errors",
			Value:  DefaultServerErrorDelay,
			EnvVar: "SYNERGY_SERVER_ERROR_DELAY",
		},
		cli.DurationFlag{
			Name:   RequestIntervalFlag,
			Usage:  "minimum interval between remote calls (0 disables pacing)",
			Value:  DefaultRequestInterval,
			EnvVar: "SYNERGY_REQUEST_INTERVAL",
		},
		cli.DurationFlag{
			Name:   RequestTimeoutFlag,
			Usage:  "http timeout per attempt",
			Value:  DefaultRequestTimeout,
			EnvVar: "SYNERGY_REQUEST_TIMEOUT",
		},
		cli.IntFlag{
			Name:   PeriodLengthFlag,
			Usage:  "period length in seconds",
			Value:  DefaultPeriodLength,
			EnvVar: "SKOUT_PERIOD_LENGTH",
		},
		cli.StringFlag{
			Name:   RedisURLFlag,
			Usage:  "redis url for progress stream (empty disables)",
			EnvVar: "SKOUT_REDIS_URL",
		},
		cli.StringFlag{
			Name:   ClipsDirFlag,
			Usage:  "output directory for sliced clips",
			Value:  DefaultClipsDir,
			EnvVar: "SKOUT_CLIPS_DIR",
		},
		cli.StringFlag{
			Name:   FFmpegFlag,
			Usage:  "ffmpeg binary",
			Value:  "ffmpeg",
			EnvVar: "SKOUT_FFMPEG",
		},
		cli.StringFlag{
			Name:   LogLevelFlag,
			Usage:  "log level (debug, info, warn, error)",
			Value:  "info",
			EnvVar: "SKOUT_LOG_LEVEL",
		},
		cli.StringFlag{
			Name:   EmbeddingFlag,
			Usage:  "embedding provider (jina, openai, local)",
			EnvVar: "SKOUT_EMBEDDING_PROVIDER",
		},
		cli.StringFlag{
			Name:   JinaKeyFlag,
			Usage:  "jina api key",
			EnvVar: "JINA_API_KEY",
		},
		cli.StringFlag{
			Name:   OpenAIKeyFlag,
			Usage:  "openai api key",
			EnvVar: "OPENAI_API_KEY",
		},
	)
}

// FromCLI reads the flags registered by RegisterFlags.
func FromCLI(c *cli.Context) (*Config, error) {
	cfg := &Config{
		APIKey:            c.String(APIKeyFlag),
		BaseURL:           c.String(BaseURLFlag),
		League:            c.String(LeagueFlag),
		DBPath:            c.String(DBPathFlag),
		VectorDBPath:      c.String(VectorDBPathFlag),
		MaxRetries:        c.Int(MaxRetriesFlag),
		BackoffBase:       c.Duration(BackoffBaseFlag),
		ServerErrorDelay:  c.Duration(ServerErrorDelayFlag),
		RequestInterval:   c.Duration(RequestIntervalFlag),
		RequestTimeout:    c.Duration(RequestTimeoutFlag),
		PeriodLength:      c.Int(PeriodLengthFlag),
		RedisURL:          c.String(RedisURLFlag),
		ClipsDir:          c.String(ClipsDirFlag),
		FFmpeg:            c.String(FFmpegFlag),
		LogLevel:          c.String(LogLevelFlag),
		EmbeddingProvider: c.String(EmbeddingFlag),
		JinaAPIKey:        c.String(JinaKeyFlag),
		OpenAIAPIKey:      c.String(OpenAIKeyFlag),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate expands home-relative paths and rejects unusable bounds.
func (c *Config) Validate() error {
	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidRetries, c.MaxRetries)
	}
	if c.PeriodLength <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidPeriodLength, c.PeriodLength)
	}
	if c.BackoffBase < 0 || c.ServerErrorDelay < 0 || c.RequestInterval < 0 || c.RequestTimeout < 0 {
		return ErrNegativeDuration
	}
	if c.League == "" {
		c.League = DefaultLeague
	}

	var err error
	for _, p := range []*string{&c.DBPath, &c.VectorDBPath, &c.ClipsDir} {
		if *p, err = ExpandPath(*p); err != nil {
			return err
		}
	}
	return nil
}

// ConfigureLogging applies the log level and routes output to stderr.
// Stdout is reserved for the MCP stdio transport.
func (c *Config) ConfigureLogging() {
	log.SetOutput(os.Stderr)
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithError(err).Warnf("unknown log level %q, using info", c.LogLevel)
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// SynergyConfig returns the fetcher settings.
func (c *Config) SynergyConfig() synergy.Config {
	return synergy.Config{
		APIKey:           c.APIKey,
		BaseURL:          c.BaseURL,
		MaxRetries:       c.MaxRetries,
		BackoffBase:      c.BackoffBase,
		ServerErrorDelay: c.ServerErrorDelay,
		RequestInterval:  c.RequestInterval,
		RequestTimeout:   c.RequestTimeout,
	}
}

// EmbedderConfig returns the embedding provider settings. The API key
// matches the chosen provider; an empty provider is auto-detected.
func (c *Config) EmbedderConfig() embedder.Config {
	cfg := embedder.Config{
		Provider:  c.EmbeddingProvider,
		CacheSize: embedder.DefaultCacheSize,
	}
	provider := strings.ToLower(c.EmbeddingProvider)
	switch {
	case provider == embedder.ProviderJina:
		cfg.APIKey = c.JinaAPIKey
	case provider == embedder.ProviderOpenAI:
		cfg.APIKey = c.OpenAIAPIKey
	case provider == "" && c.JinaAPIKey != "":
		cfg.Provider, cfg.APIKey = embedder.ProviderJina, c.JinaAPIKey
	case provider == "" && c.OpenAIAPIKey != "":
		cfg.Provider, cfg.APIKey = embedder.ProviderOpenAI, c.OpenAIAPIKey
	}
	return cfg
}

// ExpandPath resolves a leading "~" to the user's home directory.
// ":memory:" and empty paths pass through untouched.
func ExpandPath(p string) (string, error) {
	if p == "" || p == ":memory:" || !strings.HasPrefix(p, "~") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// EnsureDir creates the parent directory of a database path.
func EnsureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}
