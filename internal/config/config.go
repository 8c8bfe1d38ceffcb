// Package config loads and validates texforge configuration.
//
// The classification keyword tables and the UDIM convention priority are part
// of the configuration rather than hard-coded, so tests and site pipelines can
// substitute their own vocabularies without rebuilding the tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"texforge/internal/errors"
	"texforge/internal/paths"
)

// Config represents the complete texforge configuration
type Config struct {
	Version int `json:"version" mapstructure:"version" toml:"version"`

	Scan      ScanConfig      `json:"scan" mapstructure:"scan" toml:"scan"`
	Channels  ChannelsConfig  `json:"channels" mapstructure:"channels" toml:"channels"`
	Udim      UdimConfig      `json:"udim" mapstructure:"udim" toml:"udim"`
	Assembler AssemblerConfig `json:"assembler" mapstructure:"assembler" toml:"assembler"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging" toml:"logging"`
}

// ScanConfig controls the directory scanner
type ScanConfig struct {
	// Extensions lists recognized texture file extensions (with leading dot)
	Extensions []string `json:"extensions" mapstructure:"extensions" toml:"extensions"`
	// IgnoreDirs lists directory names skipped during the walk
	IgnoreDirs []string `json:"ignoreDirs" mapstructure:"ignoreDirs" toml:"ignoreDirs"`
	// Workers bounds the per-mesh classification worker pool
	Workers int `json:"workers" mapstructure:"workers" toml:"workers"`
}

// ChannelsConfig controls the channel role classifier
type ChannelsConfig struct {
	// Keywords maps a channel role name to its keyword list. Role names must
	// match the channel.Role identifiers (basecolor, roughness, ...).
	Keywords map[string][]string `json:"keywords" mapstructure:"keywords" toml:"keywords"`
	// Order fixes the role evaluation order of the keyword table. Classification
	// outcome depends on it, so it is explicit configuration, not map iteration.
	Order []string `json:"order" mapstructure:"order" toml:"order"`
	// Strict disables the low-confidence default to base color. Unmatched
	// textures surface as unknown-channel warnings and are excluded.
	Strict bool `json:"strict" mapstructure:"strict" toml:"strict"`
}

// UdimConfig controls the UDIM pattern resolver
type UdimConfig struct {
	// Conventions fixes the recognition priority order. Valid names:
	// placeholder, substance, mari, standard.
	Conventions []string `json:"conventions" mapstructure:"conventions" toml:"conventions"`
}

// AssemblerConfig controls shading graph assembly and materialization
type AssemblerConfig struct {
	// MaterialPrefix is prepended to backend material node names
	MaterialPrefix string `json:"materialPrefix" mapstructure:"materialPrefix" toml:"materialPrefix"`
	// Policy is the default existing-material policy: skip, overwrite, or rename
	Policy string `json:"policy" mapstructure:"policy" toml:"policy"`
	// GroupPerMaterial creates a folder node per material when true
	GroupPerMaterial bool `json:"groupPerMaterial" mapstructure:"groupPerMaterial" toml:"groupPerMaterial"`
	// CallTimeoutMs bounds each individual backend call
	CallTimeoutMs int `json:"callTimeoutMs" mapstructure:"callTimeoutMs" toml:"callTimeoutMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level" toml:"level"`
	Format string `json:"format" mapstructure:"format" toml:"format"`
}

// DefaultConfig returns the built-in configuration.
// The keyword lists and their order reproduce the authoring-tool vocabularies
// the scanner has to cope with in the wild; reordering them changes
// classification results for ambiguous names.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Scan: ScanConfig{
			Extensions: []string{
				".jpg", ".jpeg", ".png", ".tif", ".tiff", ".exr", ".hdr", ".tx",
			},
			IgnoreDirs: []string{paths.DataDirName, ".git"},
			Workers:    4,
		},
		Channels: ChannelsConfig{
			Keywords: map[string][]string{
				"basecolor":    {"basecolor", "diffuse", "albedo", "col", "color", "diff"},
				"roughness":    {"roughness", "rough", "rgh"},
				"metallic":     {"metallic", "metal", "metalness", "mtl"},
				"normal":       {"normal", "nrm", "norm"},
				"bump":         {"bump", "bmp"},
				"displacement": {"displacement", "disp", "displace", "height", "displaceheightfield"},
				"emission":     {"emission", "emissive", "emissioncolor", "emit"},
				"ao":           {"ao", "ambient", "occlusion"},
				"translucency": {"translucency", "translucent", "sss"},
				"alpha":        {"alpha", "opacity", "transparency"},
			},
			Order: []string{
				"basecolor", "roughness", "metallic", "normal", "bump",
				"displacement", "emission", "ao", "translucency", "alpha",
			},
			Strict: false,
		},
		Udim: UdimConfig{
			Conventions: []string{"placeholder", "substance", "mari", "standard"},
		},
		Assembler: AssemblerConfig{
			MaterialPrefix:   "MAT_",
			Policy:           "skip",
			GroupPerMaterial: false,
			CallTimeoutMs:    30000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "human",
		},
	}
}

// LoadConfig loads configuration from <projectRoot>/.texforge/config.toml,
// falling back to defaults when no config file exists.
func LoadConfig(projectRoot string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(paths.DataDir(projectRoot))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, errors.New(errors.ConfigInvalid, "failed to read config file", err)
	}

	// Start from defaults so a sparse config file only overrides what it sets.
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New(errors.ConfigInvalid, "failed to parse config file", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants
func (c *Config) Validate() error {
	for _, role := range c.Channels.Order {
		if _, ok := c.Channels.Keywords[role]; !ok {
			return errors.New(errors.ConfigInvalid,
				fmt.Sprintf("channel order names unknown role %q", role), nil)
		}
	}
	for _, ext := range c.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return errors.New(errors.ConfigInvalid,
				fmt.Sprintf("extension %q must start with a dot", ext), nil)
		}
	}
	switch c.Assembler.Policy {
	case "skip", "overwrite", "rename":
	default:
		return errors.New(errors.ConfigInvalid,
			fmt.Sprintf("unknown policy %q (want skip, overwrite, or rename)", c.Assembler.Policy), nil)
	}
	if c.Scan.Workers < 1 {
		c.Scan.Workers = 1
	}
	return nil
}

// WriteTemplate writes the default configuration as a TOML template to
// <projectRoot>/.texforge/config.toml. Fails if the file exists unless force
// is set.
func WriteTemplate(projectRoot string, force bool) (string, error) {
	if _, err := paths.EnsureDataDir(projectRoot); err != nil {
		return "", err
	}
	path := paths.ConfigPath(projectRoot)

	if !force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.WriteString("# texforge configuration\n# Generated defaults; delete any section to fall back to built-ins.\n\n"); err != nil {
		return "", err
	}
	if err := toml.NewEncoder(f).Encode(DefaultConfig()); err != nil {
		return "", err
	}
	return path, nil
}

// FindProjectRoot walks upward from start looking for an existing .texforge
// directory. Returns start itself when none is found.
func FindProjectRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(paths.DataDir(dir)); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start
		}
		dir = parent
	}
}
