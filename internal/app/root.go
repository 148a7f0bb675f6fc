package app

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/evalf/examples-gallery/internal/config"
)

var (
	cfgFile string
	quiet   bool

	// v holds every configuration source: defaults, gallery.yaml, GALLERY_*
	// environment variables and the flags bound in init functions.
	v = viper.New()

	// RootCmd is the root command for gallery
	RootCmd = &cobra.Command{
		Use:   "gallery",
		Short: "Build a verified gallery of Nutils examples",
		Long: `gallery builds a static website of example simulations. Every example
is checked out at a pinned revision, run in an isolated container, and
published together with the images its script produced.

Examples are described either by YAML files in the examples directory or
by the comment header of scripts in the official Nutils repository.

Settings are read from gallery.yaml in the working directory (or the file
given with --config), GALLERY_* environment variables and flags, in
increasing order of precedence.

Examples:
  # Build the website into target/website
  gallery build

  # Check which descriptors resolve, without running anything
  gallery list

  # Run a single example
  gallery run user-cylinder-flow

  # Validate every example against two library versions
  gallery validate --image ghcr.io/evalf/nutils:7 --image ghcr.io/evalf/nutils:8

  # Show the latest result per example and version
  gallery status`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	config.SetDefaults(v)

	pf := RootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./gallery.yaml)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "only print results, no diagnostics or progress")
	pf.String("output", "", "website output directory (default: target/website)")
	pf.String("db", "", "run history database (default: gallery.db next to the output directory)")
	pf.IntP("jobs", "j", 1, "number of examples to process in parallel")
	pf.Bool("reuse-output", false, "reuse complete outputs for an unchanged commit and image")
	bindFlag("output_dir", pf.Lookup("output"))
	bindFlag("db", pf.Lookup("db"))
	bindFlag("jobs", pf.Lookup("jobs"))
	bindFlag("reuse_output", pf.Lookup("reuse-output"))

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig merges all configuration sources into a validated Config.
func loadConfig() (*config.Config, error) {
	if err := config.ReadFile(v, cfgFile); err != nil {
		return nil, err
	}
	return config.Load(v)
}

// newLogger returns the diagnostics logger, silenced by --quiet.
func newLogger() *log.Logger {
	if quiet {
		return log.New(io.Discard, "", 0)
	}
	return log.New(os.Stderr, "gallery: ", 0)
}

// progressWriter is where progress bars and spinners draw, nil when quiet.
func progressWriter() io.Writer {
	if quiet {
		return nil
	}
	return os.Stderr
}

// bindFlag makes a flag the highest-precedence source of a config key.
func bindFlag(key string, f *pflag.Flag) {
	if err := v.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("failed to bind flag for %s: %v", key, err))
	}
}
