// Package design places design content at an exact physical rectangle on
// the reference plane and renders it to a scaled export artifact. The
// authoritative transform for the export is the physical plane itself via
// the DPI scale factor; the image homography is used only for the
// verification preview.
package design

import (
	"fmt"
	"image"
	"image/draw"
	"sync"

	"laser-align/pkg/geometry"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Content is renderable design material: raster artwork or generated text.
// Render produces a BGR canvas of exactly the requested pixel size; the
// caller owns the returned Mat.
type Content interface {
	Render(widthPx, heightPx int) (gocv.Mat, error)
}

// Spec is a design placement: where the content goes on the reference plane
// (mm, origin at the plane's bottom-left) and what it is.
type Spec struct {
	Rect    geometry.Rect
	Content Content
}

// Validate checks the placement invariants. Lying outside the jig bounds is
// deliberately not checked here: that is a warning at orchestration level,
// since the device is the final arbiter of bed limits.
func (s Spec) Validate() error {
	if s.Rect.Width <= 0 || s.Rect.Height <= 0 {
		return fmt.Errorf("design size must be positive, got %.1fx%.1fmm",
			s.Rect.Width, s.Rect.Height)
	}
	if s.Content == nil {
		return fmt.Errorf("design content is required")
	}
	return nil
}

// Raster is design content loaded from an image file.
type Raster struct {
	Path string
}

// Render loads the file and resizes it to the requested canvas.
func (r Raster) Render(widthPx, heightPx int) (gocv.Mat, error) {
	src := gocv.IMRead(r.Path, gocv.IMReadColor)
	if src.Empty() {
		return gocv.Mat{}, fmt.Errorf("could not load design image: %s", r.Path)
	}
	defer src.Close()

	dst := gocv.NewMat()
	gocv.Resize(src, &dst, image.Pt(widthPx, heightPx), 0, 0, gocv.InterpolationLinear)
	return dst, nil
}

// Text is generated design content: black text centered on a white canvas,
// rasterized from a real vector font so engraved edges stay clean at any
// DPI.
type Text struct {
	Text      string
	SizeRatio float64 // text height as a fraction of the canvas, 0 means 0.5
}

var (
	textFont     *opentype.Font
	textFontErr  error
	textFontOnce sync.Once
)

func loadTextFont() (*opentype.Font, error) {
	textFontOnce.Do(func() {
		textFont, textFontErr = opentype.Parse(goregular.TTF)
	})
	return textFont, textFontErr
}

// Render draws the text centered on a white canvas of the requested size.
// The face is shrunk if the string would overflow the canvas width.
func (t Text) Render(widthPx, heightPx int) (gocv.Mat, error) {
	if t.Text == "" {
		return gocv.Mat{}, fmt.Errorf("empty text design")
	}

	fnt, err := loadTextFont()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("load text font: %w", err)
	}

	ratio := t.SizeRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.5
	}
	sizePx := float64(heightPx) * ratio

	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size: sizePx, DPI: 72, Hinting: font.HintingFull,
	})
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("size text font: %w", err)
	}

	width := font.MeasureString(face, t.Text).Ceil()
	if max := widthPx * 9 / 10; width > max {
		sizePx *= float64(max) / float64(width)
		face, err = opentype.NewFace(fnt, &opentype.FaceOptions{
			Size: sizePx, DPI: 72, Hinting: font.HintingFull,
		})
		if err != nil {
			return gocv.Mat{}, fmt.Errorf("size text font: %w", err)
		}
		width = font.MeasureString(face, t.Text).Ceil()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, widthPx, heightPx))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	metrics := face.Metrics()
	baseline := (heightPx + metrics.Ascent.Ceil() - metrics.Descent.Ceil()) / 2
	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P((widthPx-width)/2, baseline),
	}
	drawer.DrawString(t.Text)

	rgba, err := gocv.ImageToMatRGBA(canvas)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("convert text canvas: %w", err)
	}
	defer rgba.Close()

	out := gocv.NewMat()
	gocv.CvtColor(rgba, &out, gocv.ColorRGBAToBGR)
	return out, nil
}
