package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-zip2pdf/internal/dateutil"
	"github.com/alnah/go-zip2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// Field length limits.
const (
	MaxAddrLength        = 100
	MaxCompanyLength     = 100
	MaxSubtitleLength    = 200
	MaxURLLength         = 2048 // Browser limit
	MaxPathLength        = 4096
	MaxTOCTitleLength    = 100
	MaxStyleLength       = 64
	MaxPageFormatLength  = 10
	MaxOriginLength      = 253
	MaxEnvironmentLength = 30
)

// Defaults for a config that sets nothing.
const (
	DefaultAddr             = ":8000"
	DefaultEnvironment      = "development"
	DefaultMaxUploadSize    = 50 << 20
	DefaultMaxExtractedSize = 200 << 20
	DefaultMaxEntries       = 10000
	DefaultCompanyName      = "Your Company Name"
	DefaultPageFormat       = "A4"
	DefaultTimeout          = "5m"
	DefaultStyle            = "default"
	DefaultTOCTitle         = "Table of Contents"
	DefaultTOCMinDepth      = 1
	DefaultTOCMaxDepth      = 3
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultHistoryLimit     = 1000
	DefaultSweepAge         = "1h"
)

// PageFormats lists the page sizes the renderer accepts.
var PageFormats = []string{"A4", "Letter", "Legal", "A3", "A5"}

// Config holds all configuration for the converter and its HTTP service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Limits    LimitsConfig    `yaml:"limits"`
	Branding  BrandingConfig  `yaml:"branding"`
	Render    RenderConfig    `yaml:"render"`
	TOC       TOCConfig       `yaml:"toc"`
	Assets    AssetsConfig    `yaml:"assets"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Logging   LoggingConfig   `yaml:"logging"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	Workers        int      `yaml:"workers"` // 0 = derive from GOMAXPROCS
	AllowedOrigins []string `yaml:"allowedOrigins"`
	Env            string   `yaml:"env"` // "development", "production"
}

// LimitsConfig bounds what an upload may contain. Sizes are bytes.
type LimitsConfig struct {
	MaxUploadSize    int64 `yaml:"maxUploadSize"`
	MaxExtractedSize int64 `yaml:"maxExtractedSize"`
	MaxEntries       int   `yaml:"maxEntries"`
}

// BrandingConfig defines what the cover page and stylesheet carry.
type BrandingConfig struct {
	CompanyName string `yaml:"companyName"`
	Logo        string `yaml:"logo"` // Path, URL or embedded asset name; empty = embedded logo
	Subtitle    string `yaml:"subtitle"`
	DateFormat  string `yaml:"dateFormat"` // Token format or preset name
}

// RenderConfig defines PDF rendering.
type RenderConfig struct {
	PageFormat      string `yaml:"pageFormat"`
	Timeout         string `yaml:"timeout"` // Go duration, per conversion
	SyntaxHighlight bool   `yaml:"syntaxHighlight"`
	Style           string `yaml:"style"`
}

// TOCConfig defines table of contents options.
type TOCConfig struct {
	Title    string `yaml:"title"`
	MinDepth int    `yaml:"minDepth"` // 1-6
	MaxDepth int    `yaml:"maxDepth"` // 1-6, >= minDepth
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// WorkspaceConfig defines where conversions unpack archives.
type WorkspaceConfig struct {
	BaseDir  string `yaml:"baseDir"`  // Empty = os.TempDir()
	SweepAge string `yaml:"sweepAge"` // Stale workspaces older than this are removed at startup
}

// LoggingConfig defines the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// HistoryConfig defines the conversion log.
type HistoryConfig struct {
	Path  string `yaml:"path"`  // SQLite file; empty disables history
	Limit int    `yaml:"limit"` // Rows kept
}

// DefaultConfig returns a configuration usable without any file.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           DefaultAddr,
			AllowedOrigins: []string{"*"},
			Env:            DefaultEnvironment,
		},
		Limits: LimitsConfig{
			MaxUploadSize:    DefaultMaxUploadSize,
			MaxExtractedSize: DefaultMaxExtractedSize,
			MaxEntries:       DefaultMaxEntries,
		},
		Branding: BrandingConfig{
			CompanyName: DefaultCompanyName,
			DateFormat:  dateutil.DefaultDateFormat,
		},
		Render: RenderConfig{
			PageFormat: DefaultPageFormat,
			Timeout:    DefaultTimeout,
			Style:      DefaultStyle,
		},
		TOC: TOCConfig{
			Title:    DefaultTOCTitle,
			MinDepth: DefaultTOCMinDepth,
			MaxDepth: DefaultTOCMaxDepth,
		},
		Workspace: WorkspaceConfig{SweepAge: DefaultSweepAge},
		Logging:   LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		History:   HistoryConfig{Limit: DefaultHistoryLimit},
	}
}

// Validate checks lengths and ranges. Called automatically by LoadConfig,
// but available for consumers who construct Config manually.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"server.addr", c.Server.Addr, MaxAddrLength},
		{"server.env", c.Server.Env, MaxEnvironmentLength},
		{"branding.companyName", c.Branding.CompanyName, MaxCompanyLength},
		{"branding.logo", c.Branding.Logo, MaxURLLength},
		{"branding.subtitle", c.Branding.Subtitle, MaxSubtitleLength},
		{"render.pageFormat", c.Render.PageFormat, MaxPageFormatLength},
		{"render.style", c.Render.Style, MaxStyleLength},
		{"toc.title", c.TOC.Title, MaxTOCTitleLength},
		{"assets.basePath", c.Assets.BasePath, MaxPathLength},
		{"workspace.baseDir", c.Workspace.BaseDir, MaxPathLength},
		{"history.path", c.History.Path, MaxPathLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}
	for i, origin := range c.Server.AllowedOrigins {
		if err := validateFieldLength(fmt.Sprintf("server.allowedOrigins[%d]", i), origin, MaxOriginLength); err != nil {
			return err
		}
	}

	if c.Server.Workers < 0 {
		return fmt.Errorf("%w: server.workers must not be negative, got %d", ErrInvalidValue, c.Server.Workers)
	}
	if c.Limits.MaxUploadSize <= 0 {
		return fmt.Errorf("%w: limits.maxUploadSize must be positive", ErrInvalidValue)
	}
	if c.Limits.MaxExtractedSize <= 0 {
		return fmt.Errorf("%w: limits.maxExtractedSize must be positive", ErrInvalidValue)
	}
	if c.Limits.MaxEntries <= 0 {
		return fmt.Errorf("%w: limits.maxEntries must be positive", ErrInvalidValue)
	}

	if c.Branding.DateFormat != "" {
		if err := dateutil.Validate(c.Branding.DateFormat); err != nil {
			return fmt.Errorf("branding.dateFormat: %w", err)
		}
	}

	if c.Render.PageFormat != "" && !IsPageFormat(c.Render.PageFormat) {
		return fmt.Errorf("%w: render.pageFormat %q (must be one of %s)",
			ErrInvalidValue, c.Render.PageFormat, strings.Join(PageFormats, ", "))
	}
	if c.Render.Timeout != "" {
		d, err := time.ParseDuration(c.Render.Timeout)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: render.timeout %q", ErrInvalidValue, c.Render.Timeout)
		}
	}
	if c.Workspace.SweepAge != "" {
		if d, err := time.ParseDuration(c.Workspace.SweepAge); err != nil || d < 0 {
			return fmt.Errorf("%w: workspace.sweepAge %q", ErrInvalidValue, c.Workspace.SweepAge)
		}
	}

	if c.TOC.MinDepth != 0 && (c.TOC.MinDepth < 1 || c.TOC.MinDepth > 6) {
		return fmt.Errorf("%w: toc.minDepth must be between 1 and 6, got %d", ErrInvalidValue, c.TOC.MinDepth)
	}
	if c.TOC.MaxDepth != 0 && (c.TOC.MaxDepth < 1 || c.TOC.MaxDepth > 6) {
		return fmt.Errorf("%w: toc.maxDepth must be between 1 and 6, got %d", ErrInvalidValue, c.TOC.MaxDepth)
	}
	if c.TOC.MinDepth != 0 && c.TOC.MaxDepth != 0 && c.TOC.MinDepth > c.TOC.MaxDepth {
		return fmt.Errorf("%w: toc.minDepth (%d) exceeds toc.maxDepth (%d)", ErrInvalidValue, c.TOC.MinDepth, c.TOC.MaxDepth)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: logging.format %q (must be text or json)", ErrInvalidValue, c.Logging.Format)
	}

	if c.History.Limit < 0 {
		return fmt.Errorf("%w: history.limit must not be negative", ErrInvalidValue)
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// IsPageFormat reports whether name is a supported page format.
func IsPageFormat(name string) bool {
	for _, f := range PageFormats {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// ParseLevel maps a level name to slog. Empty means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: logging.level %q", ErrInvalidValue, name)
}

// RenderTimeout returns the per-conversion timeout.
func (c *Config) RenderTimeout() time.Duration {
	d, err := time.ParseDuration(c.Render.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}

// SweepAge returns the age past which leftover workspaces are removed.
// Zero disables the sweep.
func (c *Config) SweepAge() time.Duration {
	if c.Workspace.SweepAge == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Workspace.SweepAge)
	if err != nil {
		return 0
	}
	return d
}

// DateFormat resolves preset names ("iso", "long") to token formats.
func (c *Config) DateFormat() string {
	if preset, ok := dateutil.Presets[strings.ToLower(c.Branding.DateFormat)]; ok {
		return preset
	}
	if c.Branding.DateFormat == "" {
		return dateutil.DefaultDateFormat
	}
	return c.Branding.DateFormat
}

// LoadConfig loads configuration from a file path or config name, layered
// over DefaultConfig. If nameOrPath contains a path separator, it's treated
// as a file path. Otherwise, it's treated as a config name and searched in
// standard locations. Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if isFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// resolveConfigPath searches for a config file by name in standard locations.
// Tries extensions in order: .yaml, .yml
// Tries locations in order: current directory, ~/.config/go-zip2pdf/
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-zip2pdf", name+ext)
			if fileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// EnvPrefix starts every environment override.
const EnvPrefix = "ZIP2PDF_"

// ApplyEnv overlays ZIP2PDF_* variables read through lookup (os.LookupEnv in
// production) and re-validates. Unset variables leave the field alone.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, set func(int64)) {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s%s=%q", ErrInvalidValue, EnvPrefix, key, v))
			return
		}
		set(n)
	}

	str("ADDR", &c.Server.Addr)
	str("ENV", &c.Server.Env)
	num("WORKERS", func(n int64) { c.Server.Workers = int(n) })
	if v, ok := lookup(EnvPrefix + "ALLOWED_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitList(v)
	}
	num("MAX_FILE_SIZE", func(n int64) { c.Limits.MaxUploadSize = n })
	num("MAX_EXTRACTED_SIZE", func(n int64) { c.Limits.MaxExtractedSize = n })
	num("MAX_ENTRIES", func(n int64) { c.Limits.MaxEntries = int(n) })
	str("COMPANY_NAME", &c.Branding.CompanyName)
	str("COMPANY_LOGO", &c.Branding.Logo)
	str("DATE_FORMAT", &c.Branding.DateFormat)
	str("PAGE_FORMAT", &c.Render.PageFormat)
	str("TIMEOUT", &c.Render.Timeout)
	str("ASSETS_PATH", &c.Assets.BasePath)
	str("WORKSPACE_DIR", &c.Workspace.BaseDir)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("HISTORY_PATH", &c.History.Path)

	if err := errors.Join(errs...); err != nil {
		return err
	}
	return c.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
