package covergen

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Internal transform constants. Perspective strength is never a template
// parameter; the camera sits at a fixed distance of cameraDistanceFactor
// times the layer's longer side.
const (
	cameraDistanceFactor = 2.5
	// Tilts at ±90° put the layer edge-on to the camera; clamp just short.
	maxTiltDegrees = 89.0
	// Supersampling multiple for warp edges.
	warpSupersample = 2
)

type vec2 struct {
	X, Y float64
}

// projectQuad maps the four corners of a w x h layer through a 3D rotation
// about the layer center followed by a fixed-distance perspective projection
// back into 2D layer space. Rotation order is in-plane (rotation, positive =
// clockwise), then rotateX, then rotateY. Corner order: top-left, top-right,
// bottom-right, bottom-left.
func projectQuad(w, h, rotateX, rotateY, rotation float64) [4]vec2 {
	cx, cy := w/2, h/2

	rx := clampFloat(rotateX, -maxTiltDegrees, maxTiltDegrees)
	ry := clampFloat(rotateY, -maxTiltDegrees, maxTiltDegrees)

	ax := rx * math.Pi / 180
	ay := ry * math.Pi / 180
	az := rotation * math.Pi / 180
	cosX, sinX := math.Cos(ax), math.Sin(ax)
	cosY, sinY := math.Cos(ay), math.Sin(ay)
	cosZ, sinZ := math.Cos(az), math.Sin(az)

	d := math.Max(1, cameraDistanceFactor*math.Max(w, h))
	const eps = 1e-6

	corners := [4][3]float64{
		{-cx, -cy, 0},
		{cx, -cy, 0},
		{cx, cy, 0},
		{-cx, cy, 0},
	}

	var out [4]vec2
	for i, c := range corners {
		x, y, z := c[0], c[1], c[2]
		// In-plane rotation about the view axis.
		x, y = x*cosZ-y*sinZ, x*sinZ+y*cosZ
		// Tilt about the horizontal axis.
		y, z = y*cosX-z*sinX, y*sinX+z*cosX
		// Tilt about the vertical axis.
		x, z = x*cosY+z*sinY, -x*sinY+z*cosY

		den := d - z
		if math.Abs(den) < eps {
			if den >= 0 {
				den = eps
			} else {
				den = -eps
			}
		}
		s := d / den
		out[i] = vec2{X: x*s + cx, Y: y*s + cy}
	}
	return out
}

func quadBounds(q [4]vec2) (minX, minY, maxX, maxY float64) {
	minX, maxX = q[0].X, q[0].X
	minY, maxY = q[0].Y, q[0].Y
	for _, p := range q[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// perspectiveCoeffs solves for the eight projective coefficients mapping
// destination points to source points:
//
//	u = (c0*x + c1*y + c2) / (c6*x + c7*y + 1)
//	v = (c3*x + c4*y + c5) / (c6*x + c7*y + 1)
//
// given four corresponding corner pairs.
func perspectiveCoeffs(dst, src [4]vec2) ([8]float64, error) {
	var m [8][9]float64
	for i := 0; i < 4; i++ {
		x, y := dst[i].X, dst[i].Y
		u, v := src[i].X, src[i].Y
		m[2*i] = [9]float64{x, y, 1, 0, 0, 0, -u * x, -u * y, u}
		m[2*i+1] = [9]float64{0, 0, 0, x, y, 1, -v * x, -v * y, v}
	}

	// Gaussian elimination with partial pivoting.
	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return [8]float64{}, fmt.Errorf("degenerate quad: singular projection system")
		}
		m[col], m[pivot] = m[pivot], m[col]
		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			f := m[r][col] / m[col][col]
			for k := col; k < 9; k++ {
				m[r][k] -= f * m[col][k]
			}
		}
	}

	var coeffs [8]float64
	for i := 0; i < 8; i++ {
		coeffs[i] = m[i][8] / m[i][i]
	}
	return coeffs, nil
}

// affineRotationCoeffs builds the output-to-source coefficients for a pure
// in-plane rotation, in the same coefficient form with zero perspective
// terms. This is the degenerate rotateX = rotateY = 0 path.
func affineRotationCoeffs(rotation, dstCX, dstCY, srcCX, srcCY float64) [8]float64 {
	a := rotation * math.Pi / 180
	cos, sin := math.Cos(a), math.Sin(a)
	return [8]float64{
		cos, sin, srcCX - cos*dstCX - sin*dstCY,
		-sin, cos, srcCY + sin*dstCX - cos*dstCY,
		0, 0,
	}
}

// RotateLayer rotates a layer in-plane and/or tilts it out of plane,
// returning the warped axis-aligned layer plus the offset of its top-left
// corner relative to the layer's original position. All angles zero is a
// no-op that returns the layer unchanged with zero offsets.
func RotateLayer(layer *image.NRGBA, rotation, rotateX, rotateY float64) (*image.NRGBA, int, int, error) {
	if rotation == 0 && rotateX == 0 && rotateY == 0 {
		return layer, 0, 0, nil
	}

	b := layer.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return layer, 0, 0, nil
	}

	quad := projectQuad(float64(w), float64(h), rotateX, rotateY, rotation)
	minX, minY, maxX, maxY := quadBounds(quad)
	outW := max(1, int(math.Ceil(maxX-minX)))
	outH := max(1, int(math.Ceil(maxY-minY)))

	f := warpSupersample
	wHi, hHi := w*f, h*f
	outWHi, outHHi := outW*f, outH*f

	layerHi := imaging.Resize(layer, wHi, hHi, imaging.Lanczos)

	var dstHi [4]vec2
	for i, p := range quad {
		dstHi[i] = vec2{X: (p.X - minX) * float64(f), Y: (p.Y - minY) * float64(f)}
	}
	srcHi := [4]vec2{
		{0, 0},
		{float64(wHi), 0},
		{float64(wHi), float64(hHi)},
		{0, float64(hHi)},
	}

	var coeffs [8]float64
	if rotateX == 0 && rotateY == 0 {
		dstCX := (float64(w)/2 - minX) * float64(f)
		dstCY := (float64(h)/2 - minY) * float64(f)
		coeffs = affineRotationCoeffs(rotation, dstCX, dstCY, float64(wHi)/2, float64(hHi)/2)
	} else {
		var err error
		coeffs, err = perspectiveCoeffs(dstHi, srcHi)
		if err != nil {
			return nil, 0, 0, err
		}
	}

	warpedHi := warp(layerHi, outWHi, outHHi, coeffs)
	warped := imaging.Resize(warpedHi, outW, outH, imaging.Lanczos)
	return warped, int(math.Round(minX)), int(math.Round(minY)), nil
}

// warp inverse-maps each output pixel through the projective coefficients and
// samples the source bilinearly. Pixels mapping outside the source stay
// transparent.
func warp(src *image.NRGBA, outW, outH int, c [8]float64) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	sb := src.Bounds()
	sw, sh := float64(sb.Dx()), float64(sb.Dy())

	for y := 0; y < outH; y++ {
		fy := float64(y) + 0.5
		row := dst.Pix[y*dst.Stride : y*dst.Stride+outW*4]
		for x := 0; x < outW; x++ {
			fx := float64(x) + 0.5
			den := c[6]*fx + c[7]*fy + 1
			if math.Abs(den) < 1e-9 {
				continue
			}
			u := (c[0]*fx + c[1]*fy + c[2]) / den
			v := (c[3]*fx + c[4]*fy + c[5]) / den
			if u < -1 || v < -1 || u > sw+1 || v > sh+1 {
				continue
			}
			r, g, b, a := sampleBilinear(src, u-0.5, v-0.5)
			i := x * 4
			row[i] = r
			row[i+1] = g
			row[i+2] = b
			row[i+3] = a
		}
	}
	return dst
}

// sampleBilinear samples src at continuous coordinates (pixel centers at
// integer positions), treating out-of-bounds texels as transparent and
// weighting color channels by alpha to avoid halos at cut edges.
func sampleBilinear(src *image.NRGBA, x, y float64) (uint8, uint8, uint8, uint8) {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	tx := x - float64(x0)
	ty := y - float64(y0)

	b := src.Bounds()
	var sumR, sumG, sumB, sumA float64
	for dy := 0; dy <= 1; dy++ {
		for dx := 0; dx <= 1; dx++ {
			px, py := x0+dx, y0+dy
			if px < b.Min.X || py < b.Min.Y || px >= b.Max.X || py >= b.Max.Y {
				continue
			}
			wx := 1 - tx
			if dx == 1 {
				wx = tx
			}
			wy := 1 - ty
			if dy == 1 {
				wy = ty
			}
			wgt := wx * wy
			if wgt == 0 {
				continue
			}
			i := src.PixOffset(px, py)
			a := float64(src.Pix[i+3]) * wgt
			sumR += float64(src.Pix[i]) * a
			sumG += float64(src.Pix[i+1]) * a
			sumB += float64(src.Pix[i+2]) * a
			sumA += a
		}
	}
	if sumA == 0 {
		return 0, 0, 0, 0
	}
	a := math.Min(sumA+0.5, 255)
	return uint8(sumR/sumA + 0.5), uint8(sumG/sumA + 0.5), uint8(sumB/sumA + 0.5), uint8(a)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
