// Package config loads turbine run options from environment variables, an
// optional turbine.yaml file and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for turbine environment variables.
const EnvPrefix = "TURBINE"

// EnvArtifactsDir is read without the prefix; build systems set it to a
// directory whose contents are published with the build.
const EnvArtifactsDir = "VIEWABLE_BUILD_ARTIFACTS_DIR"

// DefaultConfigName is the config file searched for in the working
// directory when no explicit path is given.
const DefaultConfigName = "turbine"

// Config keys.
const (
	KeyDebug        = "debug"
	KeyLogDir       = "log_dir"
	KeyLogLevel     = "log_level"
	KeyBuildDir     = "build_dir"
	KeyArtifactsDir = "artifacts_dir"
	KeyProcessor    = "processor"
)

// Options are the resolved run options. Options is a value type; Processor
// is copied on load and must not be mutated by generators.
type Options struct {
	// Debug enables extra notes such as "saw no new declarations".
	Debug bool

	// LogDir is the directory for turbine.log. Empty means log to the
	// host's message channel.
	LogDir string

	// LogLevel is the level name for the log file (trace, debug, info,
	// warn, error, off).
	LogLevel string

	// BuildDir is the build output root; timing reports go under
	// <BuildDir>/turbine-timings.
	BuildDir string

	// ArtifactsDir, when set, receives a copy of timing reports and takes
	// precedence over LogDir for the log file.
	ArtifactsDir string

	// Processor holds free-form generator options.
	Processor map[string]string
}

// Default returns the options used when nothing is configured.
func Default() Options {
	return Options{
		LogLevel:  "info",
		BuildDir:  "target",
		Processor: map[string]string{},
	}
}

// EffectiveLogDir returns the directory the log file should be written to,
// or "" when logs go to the host's message channel.
func (o Options) EffectiveLogDir() string {
	if o.ArtifactsDir != "" {
		return o.ArtifactsDir
	}
	return o.LogDir
}

// ProcessorOption returns a generator option.
func (o Options) ProcessorOption(key string) (string, bool) {
	v, ok := o.Processor[key]
	return v, ok
}

// NewViper returns a viper instance with turbine defaults and environment
// bindings applied. Callers may bind flags to it before calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	def := Default()
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyBuildDir, def.BuildDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about.
	_ = v.BindEnv(KeyDebug)
	_ = v.BindEnv(KeyLogDir)
	_ = v.BindEnv(KeyArtifactsDir, EnvArtifactsDir)
	return v
}

// Load reads configFile (or ./turbine.yaml when empty and present) into v
// and resolves Options. A missing default file is not an error; a missing
// explicit file is.
func Load(v *viper.Viper, configFile string) (Options, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Options{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Options{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	opts := Options{
		Debug:        parseDebug(v.GetString(KeyDebug)),
		LogDir:       strings.TrimSpace(v.GetString(KeyLogDir)),
		LogLevel:     strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		BuildDir:     strings.TrimSpace(v.GetString(KeyBuildDir)),
		ArtifactsDir: strings.TrimSpace(v.GetString(KeyArtifactsDir)),
		Processor:    map[string]string{},
	}
	for k, val := range v.GetStringMapString(KeyProcessor) {
		opts.Processor[k] = val
	}

	if opts.BuildDir == "" {
		opts.BuildDir = Default().BuildDir
	}
	if opts.LogLevel == "" {
		opts.LogLevel = Default().LogLevel
	}
	return opts, nil
}

// LoadFromEnv resolves options from the environment and ./turbine.yaml.
func LoadFromEnv() (Options, error) {
	return Load(NewViper(), "")
}

// EnsureArtifactsDir creates ArtifactsDir when set.
func (o Options) EnsureArtifactsDir() error {
	if o.ArtifactsDir == "" {
		return nil
	}
	if err := os.MkdirAll(o.ArtifactsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", o.ArtifactsDir, err)
	}
	return nil
}

// parseDebug treats any set value as enabled unless it parses as false.
func parseDebug(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	return true
}
