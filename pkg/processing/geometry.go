package processing

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	apperrors "github.com/menta2k/scene-analyzer/internal/errors"
	"github.com/menta2k/scene-analyzer/pkg/types"
)

// NormalizeBox converts a pixel box into percentage space, rounding each
// coordinate to two decimals. The box is neither clamped nor reordered.
func NormalizeBox(b types.PixelBox, width, height int) (types.Box, error) {
	if width <= 0 || height <= 0 {
		return types.Box{}, apperrors.Newf(apperrors.KindInput, "normalize",
			"invalid image dimensions %dx%d", width, height)
	}
	fw, fh := float64(width), float64(height)
	return types.Box{
		X1: round2(b.X1 / fw * 100),
		Y1: round2(b.Y1 / fh * 100),
		X2: round2(b.X2 / fw * 100),
		Y2: round2(b.Y2 / fh * 100),
	}, nil
}

// RectToPixels converts a percentage rect into a pixel box
func RectToPixels(r types.Rect, width, height int) types.PixelBox {
	fw, fh := float64(width), float64(height)
	x := r.X / 100 * fw
	y := r.Y / 100 * fh
	return types.PixelBox{
		X1: x,
		Y1: y,
		X2: x + r.Width/100*fw,
		Y2: y + r.Height/100*fh,
	}
}

// PaddedRegion grows a pixel box by pad on every side and clamps it to the
// image. Coordinates are truncated to whole pixels before padding. The result
// may be empty or inverted when the box lies outside the image.
func PaddedRegion(b types.PixelBox, pad, width, height int) image.Rectangle {
	return image.Rectangle{
		Min: image.Pt(max(0, int(b.X1)-pad), max(0, int(b.Y1)-pad)),
		Max: image.Pt(min(width, int(b.X2)+pad), min(height, int(b.Y2)+pad)),
	}
}

// Crop cuts region out of img. region is relative to the image origin.
func Crop(img image.Image, region image.Rectangle) image.Image {
	return imaging.Crop(img, region.Add(img.Bounds().Min))
}

// ToRGB returns an opaque copy of img with the alpha channel dropped, or img
// itself when it is already opaque.
func ToRGB(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// Round3 rounds to three decimals, used for confidences
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
