package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-studio/spls/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Empty(t, cfg.IncludesDirectories)
	assert.Empty(t, cfg.MainPath)
	assert.False(t, cfg.DisableSyntaxLinter)
}

func TestValidateRejectsDuplicateIncludeDirs(t *testing.T) {
	cfg := &config.Config{IncludesDirectories: []string{"include", "include"}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestValidateRejectsEmptyIncludeDir(t *testing.T) {
	cfg := &config.Config{IncludesDirectories: []string{""}}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestLoadNoFilesUsesDefaults(t *testing.T) {
	tmp := t.TempDir()
	cfg, err := config.Load(tmp, nil)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadProjectToml(t *testing.T) {
	tmp := t.TempDir()
	toml := "includes_directories = [\"include\"]\nmain_path = \"plugin.sp\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "sourcepawn.toml"), []byte(toml), 0o644))

	cfg, err := config.Load(tmp, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"include"}, cfg.IncludesDirectories)
	assert.Equal(t, "plugin.sp", cfg.MainPath)
}

func TestLoadProjectYamlFallback(t *testing.T) {
	tmp := t.TempDir()
	yml := "includes_directories:\n  - include\nmain_path: plugin.sp\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "sourcepawn.yaml"), []byte(yml), 0o644))

	cfg, err := config.Load(tmp, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"include"}, cfg.IncludesDirectories)
}

func TestLoadOverridesWinOverProjectFile(t *testing.T) {
	tmp := t.TempDir()
	toml := "main_path = \"plugin.sp\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "sourcepawn.toml"), []byte(toml), 0o644))

	cfg, err := config.Load(tmp, &config.Config{MainPath: "override.sp"})
	require.NoError(t, err)
	assert.Equal(t, "override.sp", cfg.MainPath)
}

func TestLoadInvalidTomlFails(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "sourcepawn.toml"), []byte("[broken"), 0o644))

	_, err := config.Load(tmp, nil)
	assert.Error(t, err)
}
