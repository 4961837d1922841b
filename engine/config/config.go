// Package config loads renderer configuration from TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-renderstate/common"
	"github.com/pelletier/go-toml/v2"
)

// Reflector names accepted by RendererConfig.Reflector.
const (
	ReflectorSPIRV = "spirv"
	ReflectorWGSL  = "wgsl"
)

// Config is the root configuration document.
type Config struct {
	Renderer RendererConfig `toml:"renderer"`
	Assets   AssetsConfig   `toml:"assets"`
	Log      LogConfig      `toml:"log"`
}

// RendererConfig sizes the frame uniform arena and selects the shader toolchain.
type RendererConfig struct {
	// FrameArenaBytes is the capacity of the per-frame transient uniform buffer.
	FrameArenaBytes uint32 `toml:"frame_arena_bytes"`
	// MinUniformAlignment is the minimum dynamic uniform offset alignment. Zero uses the device limit.
	MinUniformAlignment uint32 `toml:"min_uniform_alignment"`
	// Reflector is "spirv" (bytecode reflection) or "wgsl" (source reflection).
	Reflector string `toml:"reflector"`
	// CompileWorkers bounds the number of stages compiled in parallel per shader asset.
	CompileWorkers int `toml:"compile_workers"`
}

// AssetsConfig holds the directories relative asset paths are resolved against.
type AssetsConfig struct {
	ShaderRoot  string `toml:"shader_root"`
	TextureRoot string `toml:"texture_root"`
}

// LogConfig configures the default logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Renderer: RendererConfig{
			FrameArenaBytes:     4 << 20,
			MinUniformAlignment: 256,
			Reflector:           ReflectorSPIRV,
			CompileWorkers:      4,
		},
		Assets: AssetsConfig{
			ShaderRoot:  "assets/shaders",
			TextureRoot: "assets/textures",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a TOML file and overlays it on Default. Unknown keys are rejected.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the merged and validated configuration
//   - error: error if the file cannot be read, decoded or validated
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML bytes on top of Default and validates the result.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - Config: the merged and validated configuration
//   - error: error if decoding or validation fails
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("unknown keys: %s", strict.String())
		}
		return Config{}, fmt.Errorf("failed to decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.Renderer.FrameArenaBytes == 0 {
		errs = append(errs, errors.New("renderer.frame_arena_bytes must be positive"))
	}
	if a := c.Renderer.MinUniformAlignment; a != 0 && !common.IsPowerOfTwo(a) {
		errs = append(errs, fmt.Errorf("renderer.min_uniform_alignment %d is not a power of two", a))
	}
	switch c.Renderer.Reflector {
	case ReflectorSPIRV, ReflectorWGSL:
	default:
		errs = append(errs, fmt.Errorf("renderer.reflector %q must be %q or %q", c.Renderer.Reflector, ReflectorSPIRV, ReflectorWGSL))
	}
	if c.Renderer.CompileWorkers < 1 {
		errs = append(errs, errors.New("renderer.compile_workers must be at least 1"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not a known level", c.Log.Level))
	}
	return errors.Join(errs...)
}

// Marshal encodes the configuration as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
