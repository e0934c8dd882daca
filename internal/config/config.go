package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"mh-asset-tools/internal/ge"
	"mh-asset-tools/internal/texture"
)

// Config holds conversion paths and decode settings.
type Config struct {
	// Paths
	InputDir  string `json:"input_dir" yaml:"input_dir"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	Manifest  string `json:"manifest" yaml:"manifest"`

	// Output settings
	ImageFormat    string `json:"image_format" yaml:"image_format"`
	MaxTextureSize int    `json:"max_texture_size" yaml:"max_texture_size"`
	FlipTextures   bool   `json:"flip_textures" yaml:"flip_textures"`

	// Decode settings
	MaxCommands int    `json:"max_commands" yaml:"max_commands"`
	Workers     int    `json:"workers" yaml:"workers"`
	LogLevel    string `json:"log_level" yaml:"log_level"`

	// ArcKey is the Blowfish key for encrypted (ARCC) archives.
	ArcKey string `json:"arc_key" yaml:"arc_key"`
}

// Load reads a JSON or YAML config file, chosen by extension.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	InputDir    string
	OutputDir   string
	Format      string
	Workers     int
	MaxCommands int
	LogLevel    string
	ArcKey      string
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.InputDir != "" {
		c.InputDir = flags.InputDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Format != "" {
		c.ImageFormat = flags.Format
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.MaxCommands > 0 {
		c.MaxCommands = flags.MaxCommands
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}
	if flags.ArcKey != "" {
		c.ArcKey = flags.ArcKey
	}

	if c.InputDir == "" {
		c.InputDir = "."
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.InputDir, "converted")
	}
	if c.Manifest != "" && !filepath.IsAbs(c.Manifest) {
		c.Manifest = filepath.Join(c.OutputDir, c.Manifest)
	}

	if c.ImageFormat == "" {
		c.ImageFormat = string(texture.PNG)
	}
	if c.MaxCommands <= 0 {
		c.MaxCommands = ge.DefaultMaxCommands
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// Format returns the parsed output image format.
func (c *Config) Format() (texture.Format, error) {
	f, err := texture.ParseFormat(c.ImageFormat)
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return f, nil
}
