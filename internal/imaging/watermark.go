package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/edytjahyadi/AI-Fashion/internal/domain"
)

const (
	// Mark height is a fraction of image width, floored so the text stays
	// legible on small images.
	markHeightDivisor = 24
	markHeightFloor   = 13

	markMarginDivisor = 50
	markMarginFloor   = 8
)

// Watermarker stamps a fixed semi-transparent text mark into the lower-right
// corner of generated images.
type Watermarker struct {
	text    string
	opacity uint8
}

// NewWatermarker builds a Watermarker for the given mark text. An empty text
// falls back to the product name.
func NewWatermarker(text string) *Watermarker {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "AI-Fashion"
	}
	return &Watermarker{text: text, opacity: 0xb2}
}

// Text returns the configured mark text.
func (w *Watermarker) Text() string {
	return w.text
}

// Apply renders the source image unmodified onto a same-sized surface and
// overlays the mark. The output is re-encoded as PNG.
func (w *Watermarker) Apply(src domain.EncodedImage) (domain.EncodedImage, error) {
	img, err := Decode(src)
	if err != nil {
		return domain.EncodedImage{}, fmt.Errorf("%w: %v", domain.ErrWatermarkSource, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return domain.EncodedImage{}, fmt.Errorf("%w: %dx%d surface", domain.ErrWatermarkSurface, bounds.Dx(), bounds.Dy())
	}

	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, img, bounds.Min, draw.Src)

	mask := w.textMask()
	if mask == nil {
		return domain.EncodedImage{}, fmt.Errorf("%w: empty mark", domain.ErrWatermarkSurface)
	}

	height := bounds.Dx() / markHeightDivisor
	if height < markHeightFloor {
		height = markHeightFloor
	}
	margin := bounds.Dx() / markMarginDivisor
	if margin < markMarginFloor {
		margin = markMarginFloor
	}
	width := height * mask.Bounds().Dx() / mask.Bounds().Dy()

	scaled := image.NewAlpha(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)

	target := image.Rect(
		bounds.Max.X-margin-width,
		bounds.Max.Y-margin-height,
		bounds.Max.X-margin,
		bounds.Max.Y-margin,
	)
	fill := image.NewUniform(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: w.opacity})
	draw.DrawMask(canvas, target, fill, image.Point{}, scaled, scaled.Bounds().Min, draw.Over)

	return EncodePNG(canvas)
}

// textMask rasterizes the mark text at the base font size into an alpha mask
// that Apply scales to the final dimensions.
func (w *Watermarker) textMask() *image.Alpha {
	face := basicfont.Face7x13
	width := font.MeasureString(face, w.text).Ceil()
	if width <= 0 {
		return nil
	}
	mask := image.NewAlpha(image.Rect(0, 0, width, face.Ascent+face.Descent))
	drawer := font.Drawer{
		Dst:  mask,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(0, face.Ascent),
	}
	drawer.DrawString(w.text)
	return mask
}
