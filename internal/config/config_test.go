package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(t.TempDir(), "cache"))
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	v := newViper(t)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutputDir != "target/website" || cfg.ExamplesDir != "examples" {
		t.Errorf("paths = %q %q", cfg.OutputDir, cfg.ExamplesDir)
	}
	if cfg.Jobs != 1 || cfg.ReuseOutput {
		t.Errorf("Jobs = %d ReuseOutput = %v", cfg.Jobs, cfg.ReuseOutput)
	}
	if cfg.Official.Branch != "release/7" || cfg.Official.Repository != "https://github.com/evalf/nutils.git" {
		t.Errorf("Official = %+v", cfg.Official)
	}
	if !reflect.DeepEqual(cfg.Official.Authors, []string{"Evalf", "other Nutils contributors"}) {
		t.Errorf("Official.Authors = %v", cfg.Official.Authors)
	}
	if cfg.Container.Timeout != 30*time.Minute || cfg.Container.Runtime != "podman" {
		t.Errorf("Container = %+v", cfg.Container)
	}
	if cfg.DB != filepath.Join("target", "gallery.db") {
		t.Errorf("DB = %q, want next to the output directory", cfg.DB)
	}
	if !strings.HasSuffix(cfg.CacheDir, filepath.Join("gallery", "repos")) {
		t.Errorf("CacheDir = %q", cfg.CacheDir)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	v := newViper(t)
	path := filepath.Join(t.TempDir(), "gallery.yaml")
	content := `output_dir: public
jobs: 4
container:
  image: ghcr.io/evalf/nutils:8
  timeout: 5m
official:
  authors: [Someone]
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GALLERY_JOBS", "2")
	t.Setenv("GALLERY_CONTAINER_RUNTIME", "docker")

	if err := ReadFile(v, path); err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.OutputDir != "public" {
		t.Errorf("OutputDir = %q", cfg.OutputDir)
	}
	if cfg.Jobs != 2 {
		t.Errorf("Jobs = %d, environment should win over the file", cfg.Jobs)
	}
	if cfg.Container.Runtime != "docker" || cfg.Container.Image != "ghcr.io/evalf/nutils:8" {
		t.Errorf("Container = %+v", cfg.Container)
	}
	if cfg.Container.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v", cfg.Container.Timeout)
	}
	if !reflect.DeepEqual(cfg.Official.Authors, []string{"Someone"}) {
		t.Errorf("Authors = %v", cfg.Official.Authors)
	}
	if cfg.Official.Branch != "release/7" {
		t.Errorf("unset nested key lost its default: %q", cfg.Official.Branch)
	}
}

func TestReadFileMissing(t *testing.T) {
	v := newViper(t)
	if err := ReadFile(v, filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("ReadFile() should fail for an explicit missing file")
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if err := ReadFile(viper.New(), ""); err != nil {
		t.Errorf("ReadFile() without a default file error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			OutputDir:   "out",
			ExamplesDir: "examples",
			Jobs:        1,
			Official:    Official{Repository: "r.git", Branch: "main"},
			Container:   Container{Runtime: "podman", Image: "img", Timeout: time.Minute},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero jobs", mutate: func(c *Config) { c.Jobs = 0 }, wantErr: "jobs"},
		{name: "zero timeout", mutate: func(c *Config) { c.Container.Timeout = 0 }, wantErr: "timeout"},
		{name: "empty image", mutate: func(c *Config) { c.Container.Image = " " }, wantErr: "container.image"},
		{
			name:    "several empty keys",
			mutate:  func(c *Config) { c.OutputDir = ""; c.Official.Branch = "" },
			wantErr: "official.branch, output_dir",
		},
		{
			name:   "official examples disabled",
			mutate: func(c *Config) { c.Official.Repository = ""; c.Official.Branch = "" },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_CACHE_HOME", "/xdg/cache")

	if dir, err := Dir(); err != nil || dir != filepath.Join("/xdg/config", "gallery") {
		t.Errorf("Dir() = %q, %v", dir, err)
	}
	if dir, err := CacheDir(); err != nil || dir != filepath.Join("/xdg/cache", "gallery") {
		t.Errorf("CacheDir() = %q, %v", dir, err)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/tester")
	if dir, err := Dir(); err != nil || dir != filepath.Join("/home/tester", ".config", "gallery") {
		t.Errorf("Dir() fallback = %q, %v", dir, err)
	}
}
