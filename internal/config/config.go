// Package config loads gallery settings from defaults, gallery.yaml,
// GALLERY_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory and in Dir.
const FileName = "gallery"

// Official describes where the official examples live.
type Official struct {
	Repository  string   `mapstructure:"repository"`
	Branch      string   `mapstructure:"branch"`
	ExamplesDir string   `mapstructure:"examples_dir"`
	Authors     []string `mapstructure:"authors"`
}

// Container configures the sandbox.
type Container struct {
	Runtime string        `mapstructure:"runtime"`
	Image   string        `mapstructure:"image"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Config is the resolved configuration of one invocation.
type Config struct {
	OutputDir    string `mapstructure:"output_dir"`
	ExamplesDir  string `mapstructure:"examples_dir"`
	TemplatesDir string `mapstructure:"templates_dir"`
	StaticDir    string `mapstructure:"static_dir"`
	CacheDir     string `mapstructure:"cache_dir"`
	DB           string `mapstructure:"db"`
	Jobs         int    `mapstructure:"jobs"`
	ReuseOutput  bool   `mapstructure:"reuse_output"`
	LibraryDir   string `mapstructure:"library_dir"`
	// StatusFile, when set, supplies the validation badges instead of the
	// run history.
	StatusFile string `mapstructure:"status_file"`

	Official  Official  `mapstructure:"official"`
	Container Container `mapstructure:"container"`
}

// SetDefaults registers every key, which also lets AutomaticEnv see them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output_dir", "target/website")
	v.SetDefault("examples_dir", "examples")
	v.SetDefault("templates_dir", "")
	v.SetDefault("static_dir", "static")
	v.SetDefault("cache_dir", "")
	v.SetDefault("db", "")
	v.SetDefault("jobs", 1)
	v.SetDefault("reuse_output", false)
	v.SetDefault("library_dir", "nutils")
	v.SetDefault("status_file", "")

	v.SetDefault("official.repository", "https://github.com/evalf/nutils.git")
	v.SetDefault("official.branch", "release/7")
	v.SetDefault("official.examples_dir", "examples")
	v.SetDefault("official.authors", []string{"Evalf", "other Nutils contributors"})

	v.SetDefault("container.runtime", "podman")
	v.SetDefault("container.image", "ghcr.io/evalf/nutils:7")
	v.SetDefault("container.timeout", 30*time.Minute)

	v.SetEnvPrefix("GALLERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadFile reads path, or gallery.yaml from the working directory or Dir
// when path is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load decodes v into a validated Config and fills derived paths.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.CacheDir == "" {
		dir, err := CacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate cache directory: %w", err)
		}
		cfg.CacheDir = filepath.Join(dir, "repos")
	}
	if cfg.DB == "" && cfg.OutputDir != "" {
		cfg.DB = filepath.Join(filepath.Dir(filepath.Clean(cfg.OutputDir)), "gallery.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations no command can work with.
func (c *Config) Validate() error {
	required := map[string]string{
		"output_dir":        c.OutputDir,
		"examples_dir":      c.ExamplesDir,
		"container.runtime": c.Container.Runtime,
		"container.image":   c.Container.Image,
	}
	// An empty official.repository disables the official examples.
	if c.Official.Repository != "" {
		required["official.branch"] = c.Official.Branch
	}
	var missing []string
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("invalid config: %s must not be empty", strings.Join(missing, ", "))
	}
	if c.Jobs < 1 {
		return fmt.Errorf("invalid config: jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Container.Timeout <= 0 {
		return fmt.Errorf("invalid config: container.timeout must be positive, got %s", c.Container.Timeout)
	}
	return nil
}

// Dir returns the gallery config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/gallery if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// CacheDir returns the gallery cache directory, respecting XDG_CACHE_HOME.
// Defaults to ~/.cache/gallery if XDG_CACHE_HOME is not set.
func CacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

func xdgDir(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	return filepath.Join(base, "gallery"), nil
}
