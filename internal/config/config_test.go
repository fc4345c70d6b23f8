package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir switches to an empty directory so ./turbine.yaml lookups are isolated.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TURBINE_DEBUG", "TURBINE_LOG_DIR", "TURBINE_LOG_LEVEL",
		"TURBINE_BUILD_DIR", EnvArtifactsDir,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t)

	opts, err := Load(NewViper(), "")
	require.NoError(t, err)

	assert.False(t, opts.Debug)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Equal(t, "target", opts.BuildDir)
	assert.Empty(t, opts.LogDir)
	assert.Empty(t, opts.ArtifactsDir)
	assert.NotNil(t, opts.Processor)
	assert.Empty(t, opts.EffectiveLogDir())
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	chdir(t)
	t.Setenv("TURBINE_DEBUG", "1")
	t.Setenv("TURBINE_LOG_DIR", "/tmp/logs")
	t.Setenv("TURBINE_LOG_LEVEL", "DEBUG")
	t.Setenv("TURBINE_BUILD_DIR", "out")

	opts, err := LoadFromEnv()
	require.NoError(t, err)

	assert.True(t, opts.Debug)
	assert.Equal(t, "/tmp/logs", opts.LogDir)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, "out", opts.BuildDir)
	assert.Equal(t, "/tmp/logs", opts.EffectiveLogDir())
}

// TestArtifactsDirOverridesLogDir tests that the build artifacts directory wins for logs.
func TestArtifactsDirOverridesLogDir(t *testing.T) {
	clearEnv(t)
	chdir(t)
	t.Setenv("TURBINE_LOG_DIR", "/tmp/logs")
	t.Setenv(EnvArtifactsDir, "/tmp/vba")

	opts, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/vba", opts.ArtifactsDir)
	assert.Equal(t, "/tmp/vba", opts.EffectiveLogDir())
}

func TestParseDebug(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", false},
		{"  ", false},
		{"true", true},
		{"1", true},
		{"false", false},
		{"0", false},
		{"yes", true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDebug(tt.raw))
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	dir := chdir(t)
	content := `
debug: true
build_dir: build
processor:
  autoservice-tag: Plugin
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "turbine.yaml"), []byte(content), 0o644))

	opts, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.True(t, opts.Debug)
	assert.Equal(t, "build", opts.BuildDir)

	v, ok := opts.ProcessorOption("autoservice-tag")
	require.True(t, ok)
	assert.Equal(t, "Plugin", v)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "turbine.yaml"), []byte("build_dir: build\n"), 0o644))
	t.Setenv("TURBINE_BUILD_DIR", "env-build")

	opts, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, "env-build", opts.BuildDir)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	clearEnv(t)
	dir := chdir(t)
	_, err := Load(NewViper(), filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBoundFlag(t *testing.T) {
	clearEnv(t)
	chdir(t)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String(KeyBuildDir, "", "")
	require.NoError(t, flags.Parse([]string{"--build_dir=flag-build"}))

	v := NewViper()
	require.NoError(t, v.BindPFlag(KeyBuildDir, flags.Lookup(KeyBuildDir)))

	opts, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, "flag-build", opts.BuildDir)
}

func TestEnsureArtifactsDir(t *testing.T) {
	assert.NoError(t, Options{}.EnsureArtifactsDir())

	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, Options{ArtifactsDir: dir}.EnsureArtifactsDir())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
