package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[renderer]
frame_arena_bytes = 65536
reflector = "wgsl"

[log]
level = "debug"
`))
	require.NoError(t, err)
	assert.Equal(t, uint32(65536), cfg.Renderer.FrameArenaBytes)
	assert.Equal(t, ReflectorWGSL, cfg.Renderer.Reflector)
	assert.Equal(t, uint32(256), cfg.Renderer.MinUniformAlignment)
	assert.Equal(t, 4, cfg.Renderer.CompileWorkers)
	assert.Equal(t, "assets/shaders", cfg.Assets.ShaderRoot)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("[renderer]\nframe_arena = 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Renderer.MinUniformAlignment = 96
	cfg.Renderer.Reflector = "hlsl"
	cfg.Renderer.CompileWorkers = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "power of two")
	assert.Contains(t, err.Error(), "hlsl")
	assert.Contains(t, err.Error(), "compile_workers")
}

func TestLoadRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Assets.TextureRoot = "textures"
	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "renderer.toml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
