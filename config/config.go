// Package config loads the application configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/georgepadayatti/firma/capture"
)

// Common errors
var (
	ErrConfigurationError   = errors.New("configuration error")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrUnexpectedField      = errors.New("unexpected field in configuration")
	ErrInvalidConfigType    = errors.New("configuration must be a dictionary")
)

// ConfigError represents a configuration error with context.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrConfigurationError
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error).
	Level string `yaml:"level" json:"level,omitempty"`

	// Format is the log format (text, json).
	Format string `yaml:"format" json:"format,omitempty"`

	// Output is the log output (stdout, stderr, or file path).
	Output string `yaml:"output" json:"output,omitempty"`
}

// SetDefaults sets default values for logging configuration.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// Validate validates the logging configuration.
func (c *LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return NewConfigError("logging.level", fmt.Sprintf("unknown level %q", c.Level))
	}
	switch strings.ToLower(c.Format) {
	case "text", "json":
	default:
		return NewConfigError("logging.format", fmt.Sprintf("unknown format %q", c.Format))
	}
	return nil
}

// PadConfig describes the signature pad.
type PadConfig struct {
	// Width and Height are the displayed size in device-independent pixels.
	Width  float64 `yaml:"width" json:"width,omitempty"`
	Height float64 `yaml:"height" json:"height,omitempty"`

	// PixelRatio is the device pixel ratio of the display.
	PixelRatio float64 `yaml:"pixel-ratio" json:"pixel_ratio,omitempty"`

	// Color is the initial stroke color: a palette name, a CSS name or a hex
	// value.
	Color string `yaml:"color" json:"color,omitempty"`

	// StrokeWidth is the initial stroke width.
	StrokeWidth float64 `yaml:"stroke-width" json:"stroke_width,omitempty"`
}

// SetDefaults sets default values for the pad.
func (c *PadConfig) SetDefaults() {
	if c.Width == 0 {
		c.Width = 400
	}
	if c.Height == 0 {
		c.Height = 200
	}
	if c.PixelRatio == 0 {
		c.PixelRatio = 1
	}
	if c.Color == "" {
		c.Color = capture.Palette[0].Hex
	}
	if c.StrokeWidth == 0 {
		c.StrokeWidth = capture.DefaultStrokeWidth
	}
}

// Validate validates the pad configuration.
func (c *PadConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return NewConfigError("pad", "width and height must be positive")
	}
	if c.PixelRatio <= 0 {
		return NewConfigError("pad.pixel-ratio", "must be positive")
	}
	if c.StrokeWidth < capture.MinStrokeWidth || c.StrokeWidth > capture.MaxStrokeWidth {
		return NewConfigError("pad.stroke-width",
			fmt.Sprintf("must be between %g and %g", capture.MinStrokeWidth, capture.MaxStrokeWidth))
	}
	if _, err := capture.ParseColor(c.Color); err != nil {
		return &ConfigError{Field: "pad.color", Message: err.Error(), Err: err}
	}
	return nil
}

// ViewerConfig describes the page preview.
type ViewerConfig struct {
	MinZoom  float64 `yaml:"min-zoom" json:"min_zoom,omitempty"`
	MaxZoom  float64 `yaml:"max-zoom" json:"max_zoom,omitempty"`
	ZoomStep float64 `yaml:"zoom-step" json:"zoom_step,omitempty"`

	// PixelsPerPoint is the raster resolution at zoom 1.
	PixelsPerPoint float64 `yaml:"pixels-per-point" json:"pixels_per_point,omitempty"`
}

// SetDefaults sets default values for the viewer.
func (c *ViewerConfig) SetDefaults() {
	if c.MinZoom == 0 {
		c.MinZoom = 0.5
	}
	if c.MaxZoom == 0 {
		c.MaxZoom = 3
	}
	if c.ZoomStep == 0 {
		c.ZoomStep = 0.25
	}
	if c.PixelsPerPoint == 0 {
		c.PixelsPerPoint = 1
	}
}

// Validate validates the viewer configuration.
func (c *ViewerConfig) Validate() error {
	if c.MinZoom <= 0 {
		return NewConfigError("viewer.min-zoom", "must be positive")
	}
	if c.MaxZoom < c.MinZoom {
		return NewConfigError("viewer.max-zoom", "must not be below min-zoom")
	}
	if c.ZoomStep <= 0 {
		return NewConfigError("viewer.zoom-step", "must be positive")
	}
	if c.PixelsPerPoint <= 0 {
		return NewConfigError("viewer.pixels-per-point", "must be positive")
	}
	return nil
}

// OutputConfig describes the signed file.
type OutputConfig struct {
	// Suffix is appended to the base name of the source file.
	Suffix string `yaml:"suffix" json:"suffix,omitempty"`
}

// SetDefaults sets default values for the output.
func (c *OutputConfig) SetDefaults() {
	if c.Suffix == "" {
		c.Suffix = "_firmado"
	}
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	if strings.ContainsAny(c.Suffix, `/\`) {
		return NewConfigError("output.suffix", "must not contain path separators")
	}
	return nil
}

// AppConfig contains the complete application configuration.
type AppConfig struct {
	// Logging contains logging configuration.
	Logging *LoggingConfig `yaml:"logging" json:"logging,omitempty"`

	// Pad contains signature pad configuration.
	Pad *PadConfig `yaml:"pad" json:"pad,omitempty"`

	// Viewer contains page preview configuration.
	Viewer *ViewerConfig `yaml:"viewer" json:"viewer,omitempty"`

	// Output contains output file configuration.
	Output *OutputConfig `yaml:"output" json:"output,omitempty"`
}

// DefaultAppConfig returns a configuration with every default applied.
func DefaultAppConfig() *AppConfig {
	c := &AppConfig{}
	c.SetDefaults()
	return c
}

// SetDefaults fills in missing sections and values.
func (c *AppConfig) SetDefaults() {
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if c.Pad == nil {
		c.Pad = &PadConfig{}
	}
	if c.Viewer == nil {
		c.Viewer = &ViewerConfig{}
	}
	if c.Output == nil {
		c.Output = &OutputConfig{}
	}
	c.Logging.SetDefaults()
	c.Pad.SetDefaults()
	c.Viewer.SetDefaults()
	c.Output.SetDefaults()
}

// Validate validates every section.
func (c *AppConfig) Validate() error {
	for _, v := range []interface{ Validate() error }{c.Logging, c.Pad, c.Viewer, c.Output} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

var knownKeys = map[string][]string{
	"":        {"logging", "pad", "viewer", "output"},
	"logging": {"level", "format", "output"},
	"pad":     {"width", "height", "pixel-ratio", "color", "stroke-width"},
	"viewer":  {"min-zoom", "max-zoom", "zoom-step", "pixels-per-point"},
	"output":  {"suffix"},
}

// LoadAppConfig loads the complete application configuration from a file.
func LoadAppConfig(filename string) (*AppConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseAppConfig(data)
}

// ParseAppConfig parses, defaults and validates configuration from YAML
// data. Unknown keys are rejected.
func ParseAppConfig(data []byte) (*AppConfig, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := checkKeys(raw); err != nil {
		return nil, err
	}

	// Re-encode with dashed keys so snake_case spellings decode too.
	normalized, err := yaml.Marshal(normalizeKeys(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	var config AppConfig
	if err := yaml.Unmarshal(normalized, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadConfigFromMap loads configuration from a map.
func LoadConfigFromMap(data map[string]any) (*AppConfig, error) {
	// Marshal to YAML then unmarshal to struct
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config map: %w", err)
	}
	return ParseAppConfig(yamlData)
}

func checkKeys(raw map[string]any) error {
	if err := CheckConfigKeys("firma", knownKeys[""], sortedKeys(raw)); err != nil {
		return err
	}
	for _, section := range knownKeys[""] {
		value, ok := raw[section]
		if !ok || value == nil {
			continue
		}
		m, ok := value.(map[string]any)
		if !ok {
			return &ConfigError{Field: section, Message: "section must be a dictionary", Err: ErrInvalidConfigType}
		}
		if err := CheckConfigKeys(section, knownKeys[section], sortedKeys(m)); err != nil {
			return err
		}
	}
	return nil
}

func normalizeKeys(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if m, ok := v.(map[string]any); ok {
			v = normalizeKeys(m)
		}
		out[normalizeKey(k)] = v
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CheckConfigKeys checks if all provided keys are valid for a given configuration type.
func CheckConfigKeys(configName string, expectedKeys, suppliedKeys []string) error {
	expectedSet := make(map[string]bool)
	for _, k := range expectedKeys {
		// Normalize to use dashes
		expectedSet[normalizeKey(k)] = true
	}

	var unexpected []string
	for _, k := range suppliedKeys {
		normalized := normalizeKey(k)
		if !expectedSet[normalized] {
			unexpected = append(unexpected, k)
		}
	}

	if len(unexpected) > 0 {
		keyWord := "key"
		if len(unexpected) > 1 {
			keyWord = "keys"
		}
		return fmt.Errorf("%w: unexpected %s in configuration for %s: %s",
			ErrUnexpectedField, keyWord, configName, strings.Join(unexpected, ", "))
	}

	return nil
}

// normalizeKey normalizes a configuration key (underscores to dashes).
func normalizeKey(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}
