package covergen

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// FitPlacement describes how a source image maps into a destination box.
// For cover, SrcCrop selects the region of the source (box aspect ratio) that
// scales onto the whole box. For contain, SrcCrop is the full source and Dst
// is where the scaled image lands inside the box, in box-local coordinates.
type FitPlacement struct {
	SrcCrop image.Rectangle
	Dst     image.Rectangle
	// Empty marks a degenerate source or box; the caller places nothing.
	Empty bool
}

// ResolveFit computes crop and placement for a srcW x srcH image inside a
// boxW x boxH box under the given fit mode and alignment.
func ResolveFit(srcW, srcH, boxW, boxH int, fit FitMode, alignX, alignY Alignment) FitPlacement {
	if srcW <= 0 || srcH <= 0 || boxW <= 0 || boxH <= 0 {
		return FitPlacement{Empty: true}
	}

	if fit == FitContain {
		scale := math.Min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH))
		w := clampInt(int(math.Round(float64(srcW)*scale)), 1, boxW)
		h := clampInt(int(math.Round(float64(srcH)*scale)), 1, boxH)

		var x, y int
		switch alignX {
		case AlignLeft:
			x = 0
		case AlignRight:
			x = boxW - w
		default:
			x = (boxW - w) / 2
		}
		switch alignY {
		case AlignTop:
			y = 0
		case AlignBottom:
			y = boxH - h
		default:
			y = (boxH - h) / 2
		}
		return FitPlacement{
			SrcCrop: image.Rect(0, 0, srcW, srcH),
			Dst:     image.Rect(x, y, x+w, y+h),
		}
	}

	// Cover: crop the source to the box aspect ratio, keeping the edge the
	// alignment asks for, then scale onto the whole box.
	cropW, cropH := srcW, srcH
	if srcW*boxH > srcH*boxW {
		cropW = clampInt(int(math.Round(float64(srcH)*float64(boxW)/float64(boxH))), 1, srcW)
	} else {
		cropH = clampInt(int(math.Round(float64(srcW)*float64(boxH)/float64(boxW))), 1, srcH)
	}

	var cx, cy int
	switch alignX {
	case AlignLeft:
		cx = 0
	case AlignRight:
		cx = srcW - cropW
	default:
		cx = (srcW - cropW) / 2
	}
	switch alignY {
	case AlignTop:
		cy = 0
	case AlignBottom:
		cy = srcH - cropH
	default:
		cy = (srcH - cropH) / 2
	}

	return FitPlacement{
		SrcCrop: image.Rect(cx, cy, cx+cropW, cy+cropH),
		Dst:     image.Rect(0, 0, boxW, boxH),
	}
}

// fitImage produces a boxW x boxH layer holding src fitted per mode and
// alignment, resampled with Lanczos. A degenerate source yields a fully
// transparent layer.
func fitImage(src image.Image, boxW, boxH int, fit FitMode, alignX, alignY Alignment) *image.NRGBA {
	if boxW < 1 {
		boxW = 1
	}
	if boxH < 1 {
		boxH = 1
	}
	b := src.Bounds()
	p := ResolveFit(b.Dx(), b.Dy(), boxW, boxH, fit, alignX, alignY)
	if p.Empty {
		return imaging.New(boxW, boxH, color.NRGBA{})
	}

	if fit == FitContain {
		resized := imaging.Resize(src, p.Dst.Dx(), p.Dst.Dy(), imaging.Lanczos)
		canvas := imaging.New(boxW, boxH, color.NRGBA{})
		return imaging.Paste(canvas, resized, p.Dst.Min)
	}

	cropped := imaging.Crop(src, p.SrcCrop.Add(b.Min))
	return imaging.Resize(cropped, boxW, boxH, imaging.Lanczos)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
