package covergen

import (
	"image"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// maskSupersample is the resolution multiple used when rasterizing rounded
// corners; the filtered downscale produces the antialiased arc boundary.
const maskSupersample = 4

// RoundedMask returns a w x h alpha mask that is fully opaque except for
// quarter-circle cutouts of the given radius at each corner. The radius is
// clamped to half the shorter dimension.
func RoundedMask(w, h, radius int) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	if w <= 0 || h <= 0 {
		return mask
	}
	if half := min(w, h) / 2; radius > half {
		radius = half
	}
	if radius <= 0 {
		for i := range mask.Pix {
			mask.Pix[i] = 0xFF
		}
		return mask
	}

	f := maskSupersample
	hi := image.NewAlpha(image.Rect(0, 0, w*f, h*f))
	fillRoundedRect(hi, w*f, h*f, radius*f)

	xdraw.CatmullRom.Scale(mask, mask.Bounds(), hi, hi.Bounds(), xdraw.Src, nil)
	return mask
}

// fillRoundedRect rasterizes a binary rounded rectangle covering the whole
// mask, testing pixel centers against the four corner circles.
func fillRoundedRect(mask *image.Alpha, w, h, r int) {
	rf := float64(r)
	r2 := rf * rf
	for y := 0; y < h; y++ {
		fy := float64(y) + 0.5
		var dy float64
		switch {
		case fy < rf:
			dy = rf - fy
		case fy > float64(h)-rf:
			dy = fy - (float64(h) - rf)
		}
		row := mask.Pix[y*mask.Stride : y*mask.Stride+w]
		for x := 0; x < w; x++ {
			fx := float64(x) + 0.5
			var dx float64
			switch {
			case fx < rf:
				dx = rf - fx
			case fx > float64(w)-rf:
				dx = fx - (float64(w) - rf)
			}
			if dx == 0 || dy == 0 || dx*dx+dy*dy <= r2 {
				row[x] = 0xFF
			}
		}
	}
}

// applyRoundedCorners multiplies the layer's alpha channel by a rounded-rect
// mask. A non-positive radius returns the layer unchanged.
func applyRoundedCorners(img *image.NRGBA, radius int) *image.NRGBA {
	if radius <= 0 {
		return img
	}
	b := img.Bounds()
	mask := RoundedMask(b.Dx(), b.Dy(), radius)
	out := imaging.Clone(img)
	for y := 0; y < b.Dy(); y++ {
		mrow := mask.Pix[y*mask.Stride : y*mask.Stride+b.Dx()]
		orow := out.Pix[y*out.Stride : y*out.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			a := uint16(orow[x*4+3]) * uint16(mrow[x])
			orow[x*4+3] = uint8(a / 0xFF)
		}
	}
	return out
}
