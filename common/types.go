// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureStagingData holds RGBA pixel data for an image binding pending GPU upload.
type TextureStagingData struct {
	// Label is a debug label forwarded to the backend.
	Label string
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SolidTexture returns 1x1 staging data filled with a single RGBA color.
// The renderer uses it for the placeholder images bound in place of unset material images.
//
// Parameters:
//   - label: the debug label of the texture
//   - r, g, b, a: the color channels
//
// Returns:
//   - TextureStagingData: a 1x1 texture
func SolidTexture(label string, r, g, b, a uint8) TextureStagingData {
	return TextureStagingData{
		Label:  label,
		Pixels: []byte{r, g, b, a},
		Width:  1,
		Height: 1,
	}
}

// ImportedTexture represents an image referenced by a material description.
// For embedded textures the Data field contains raw image bytes, for external textures the Path field contains the file path.
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "_MainTex").
	Name string

	// Path is the file path for external textures (empty for embedded).
	Path string

	// Data contains raw image bytes for embedded textures.
	Data []byte

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int
}

// Decode decodes the texture to raw RGBA pixel data.
// Uses either embedded Data bytes or loads from Path on disk.
// Supports PNG, JPEG, BMP, TIFF and WebP formats.
//
// Returns:
//   - TextureStagingData: raw RGBA pixel data (4 bytes per pixel, row-major order) with its dimensions
//   - error: error if decoding fails
func (t *ImportedTexture) Decode() (TextureStagingData, error) {
	if t == nil {
		return TextureStagingData{}, fmt.Errorf("texture is nil")
	}

	var img image.Image
	var err error

	if len(t.Data) > 0 {
		img, _, err = image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode embedded image: %w", err)
		}
	} else if t.Path != "" {
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return TextureStagingData{}, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	} else {
		return TextureStagingData{}, fmt.Errorf("texture has neither data nor path")
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	t.Width = bounds.Dx()
	t.Height = bounds.Dy()

	return TextureStagingData{
		Label:  Coalesce(t.Name, t.Path),
		Pixels: rgba.Pix,
		Width:  uint32(t.Width),
		Height: uint32(t.Height),
	}, nil
}
