package design

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"os"

	"gocv.io/x/gocv"
)

// Export failure kinds. Matched with errors.Is.
var (
	ErrInvalidDPI        = errors.New("invalid export DPI")
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Format tags the export artifact encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat maps a user-supplied format string to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPNG, FormatSVG:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Artifact describes a rendered export: the file, its declared physical
// size, and the DPI that links the two. pixel = mm * DPI / 25.4, exact.
type Artifact struct {
	Path     string  `json:"path"`
	Format   Format  `json:"format"`
	DPI      float64 `json:"dpi"`
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
	WidthPx  int     `json:"width_px"`
	HeightPx int     `json:"height_px"`
}

// PixelSize converts a physical length to pixels at the given DPI.
func PixelSize(mm, dpi float64) int {
	return int(math.Round(mm * dpi / 25.4))
}

// Export renders the design at its declared physical scale and writes the
// artifact. DPI metadata is embedded so downstream tools recover the
// physical size without re-deriving it.
func Export(spec Spec, dpi float64, format Format, outPath string) (*Artifact, error) {
	if dpi <= 0 {
		return nil, fmt.Errorf("%w: %g", ErrInvalidDPI, dpi)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if format != FormatPNG && format != FormatSVG {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	widthPx := PixelSize(spec.Rect.Width, dpi)
	heightPx := PixelSize(spec.Rect.Height, dpi)

	canvas, err := spec.Content.Render(widthPx, heightPx)
	if err != nil {
		return nil, fmt.Errorf("render design: %w", err)
	}
	defer canvas.Close()

	png, err := EncodePNGWithDPI(canvas, dpi)
	if err != nil {
		return nil, fmt.Errorf("encode design: %w", err)
	}

	var data []byte
	switch format {
	case FormatPNG:
		data = png
	case FormatSVG:
		data = []byte(svgDocument(png, spec.Rect.Width, spec.Rect.Height))
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	return &Artifact{
		Path:     outPath,
		Format:   format,
		DPI:      dpi,
		WidthMM:  spec.Rect.Width,
		HeightMM: spec.Rect.Height,
		WidthPx:  widthPx,
		HeightPx: heightPx,
	}, nil
}

// EncodePNGWithDPI encodes an image to PNG bytes carrying the physical
// scale in a pHYs chunk.
func EncodePNGWithDPI(img gocv.Mat, dpi float64) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, img)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return withDPIMetadata(buf.GetBytes(), dpi)
}

const pngSignatureLen = 8

// withDPIMetadata splices a pHYs chunk, declaring pixel density in pixels
// per metre, directly after the IHDR chunk of an encoded PNG.
func withDPIMetadata(png []byte, dpi float64) ([]byte, error) {
	if len(png) < pngSignatureLen+8 {
		return nil, fmt.Errorf("malformed PNG: %d bytes", len(png))
	}

	// IHDR is always first: signature, 4-byte length, 4-byte type, data, CRC.
	ihdrLen := int(binary.BigEndian.Uint32(png[pngSignatureLen:]))
	insertAt := pngSignatureLen + 8 + ihdrLen + 4
	if insertAt > len(png) {
		return nil, fmt.Errorf("malformed PNG: truncated IHDR")
	}

	ppm := uint32(math.Round(dpi * 1000 / 25.4))

	chunk := make([]byte, 0, 21)
	chunk = binary.BigEndian.AppendUint32(chunk, 9)
	chunk = append(chunk, 'p', 'H', 'Y', 's')
	chunk = binary.BigEndian.AppendUint32(chunk, ppm)
	chunk = binary.BigEndian.AppendUint32(chunk, ppm)
	chunk = append(chunk, 1) // unit: metre
	crc := crc32.ChecksumIEEE(chunk[4:])
	chunk = binary.BigEndian.AppendUint32(chunk, crc)

	out := make([]byte, 0, len(png)+len(chunk))
	out = append(out, png[:insertAt]...)
	out = append(out, chunk...)
	out = append(out, png[insertAt:]...)
	return out, nil
}

// svgDocument wraps an encoded PNG in an SVG that declares the physical
// size in millimeters, so importers place it at scale regardless of DPI
// handling.
func svgDocument(png []byte, widthMM, heightMM float64) string {
	encoded := base64.StdEncoding.EncodeToString(png)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8" standalone="no"?>
<svg
   width="%gmm"
   height="%gmm"
   viewBox="0 0 %g %g"
   version="1.1"
   xmlns="http://www.w3.org/2000/svg"
   xmlns:xlink="http://www.w3.org/1999/xlink">
  <image
     width="%g"
     height="%g"
     preserveAspectRatio="none"
     xlink:href="data:image/png;base64,%s"
     x="0"
     y="0" />
</svg>
`, widthMM, heightMM, widthMM, heightMM, widthMM, heightMM, encoded)
}
