package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the partscan server.
type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	OCR    OCRConfig
	Token  TokenConfig
	Match  MatchConfig
	Raster RasterConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

// RedisConfig is optional: rate limiting is disabled when URL is empty.
type RedisConfig struct {
	URL string
}

type OCRConfig struct {
	// DefaultBackend is used when a job submission names none. Defaulting
	// happens at the boundary, never inside the pipeline.
	DefaultBackend string
	// FallbackOrder is the fixed priority list of alternates tried when the
	// requested backend fails.
	FallbackOrder []string
	// MinTextChars is the threshold below which a backend response counts
	// as degraded.
	MinTextChars int
	// Timeout bounds one recognition call against one backend.
	Timeout   time.Duration
	Tesseract TesseractConfig
	Remote    RemoteConfig
	CLI       CLIConfig
}

type TesseractConfig struct {
	Languages      []string
	TessdataPrefix string
}

type RemoteConfig struct {
	BaseURL string
	APIKey  string
}

type CLIConfig struct {
	Path string
}

type TokenConfig struct {
	MinLength  int
	MaxLength  int
	Separators string
}

type MatchConfig struct {
	CandidateLimit  int
	MaxEditDistance int
}

type RasterConfig struct {
	DPI float64
}

var validBackends = map[string]bool{
	"remote":    true,
	"tesseract": true,
	"cli":       true,
}

// ValidBackend reports whether name is a configurable OCR backend.
func ValidBackend(name string) bool {
	return validBackends[name]
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any value is invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PARTSCAN_PORT", 8080),
			Env:  envString("PARTSCAN_ENV", "development"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		OCR: OCRConfig{
			DefaultBackend: envString("OCR_DEFAULT_BACKEND", "remote"),
			FallbackOrder:  envList("OCR_FALLBACK_ORDER", []string{"remote", "tesseract", "cli"}),
			MinTextChars:   envInt("OCR_MIN_TEXT_CHARS", 20),
			Timeout:        envDurationSecs("OCR_TIMEOUT_SECS", 60*time.Second),
			Tesseract: TesseractConfig{
				Languages:      envList("TESSERACT_LANGUAGES", []string{"jpn", "eng"}),
				TessdataPrefix: os.Getenv("TESSDATA_PREFIX"),
			},
			Remote: RemoteConfig{
				BaseURL: os.Getenv("REMOTE_OCR_BASE_URL"),
				APIKey:  os.Getenv("REMOTE_OCR_API_KEY"),
			},
			CLI: CLIConfig{
				Path: os.Getenv("CLI_OCR_PATH"),
			},
		},
		Token: TokenConfig{
			MinLength:  envInt("TOKEN_MIN_LENGTH", 3),
			MaxLength:  envInt("TOKEN_MAX_LENGTH", 32),
			Separators: envString("TOKEN_SEPARATORS", "-/._"),
		},
		Match: MatchConfig{
			CandidateLimit:  envInt("MATCH_CANDIDATE_LIMIT", 5),
			MaxEditDistance: envInt("MATCH_MAX_EDIT_DISTANCE", 3),
		},
		Raster: RasterConfig{
			DPI: envFloat("RASTER_DPI", 350),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if !ValidBackend(c.OCR.DefaultBackend) {
		return fmt.Errorf("OCR_DEFAULT_BACKEND must be one of remote, tesseract, cli; got %q", c.OCR.DefaultBackend)
	}
	for _, name := range c.OCR.FallbackOrder {
		if !ValidBackend(name) {
			return fmt.Errorf("OCR_FALLBACK_ORDER contains unknown backend %q", name)
		}
	}
	if len(c.OCR.FallbackOrder) == 0 {
		return fmt.Errorf("OCR_FALLBACK_ORDER must name at least one backend")
	}
	if c.OCR.Remote.BaseURL != "" &&
		!strings.HasPrefix(c.OCR.Remote.BaseURL, "http://") &&
		!strings.HasPrefix(c.OCR.Remote.BaseURL, "https://") {
		return fmt.Errorf("REMOTE_OCR_BASE_URL must start with http:// or https://, got %q", c.OCR.Remote.BaseURL)
	}
	if c.Token.MinLength < 1 {
		return fmt.Errorf("TOKEN_MIN_LENGTH must be at least 1")
	}
	if c.Token.MaxLength < c.Token.MinLength {
		return fmt.Errorf("TOKEN_MAX_LENGTH must be >= TOKEN_MIN_LENGTH")
	}
	if c.Raster.DPI <= 0 {
		return fmt.Errorf("RASTER_DPI must be positive")
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
