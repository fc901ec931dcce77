package covergen

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
)

// renderGradient synthesizes the per-pixel color field for a gradient
// background. Fewer than two stops yields a fully transparent buffer. Stops
// are stable-sorted by position before interpolation; positions outside the
// bracketing range clamp to the first or last stop.
func renderGradient(w, h int, cfg *BackgroundConfig) (*image.NRGBA, error) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	if len(cfg.GradientStops) < 2 {
		return img, nil
	}

	stops := make([]GradientStop, len(cfg.GradientStops))
	copy(stops, cfg.GradientStops)
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].Position < stops[j].Position })

	colors := make([]color.NRGBA, len(stops))
	for i, stop := range stops {
		c, err := parseOpaqueHex(stop.Color)
		if err != nil {
			return nil, fmt.Errorf("gradient stop %d: %w", i+1, err)
		}
		colors[i] = c
	}

	alpha := applyOpacity(0xFF, cfg.Opacity)

	var position func(fx, fy float64) float64
	if cfg.GradientType == GradientRadial {
		center := [2]float64{0.5, 0.5}
		if cfg.GradientCenter != nil {
			center = *cfg.GradientCenter
		}
		cx := center[0] * float64(w)
		cy := center[1] * float64(h)
		maxDist := 0.0
		for _, corner := range [4][2]float64{{0, 0}, {float64(w), 0}, {0, float64(h)}, {float64(w), float64(h)}} {
			maxDist = math.Max(maxDist, math.Hypot(corner[0]-cx, corner[1]-cy))
		}
		if maxDist == 0 {
			maxDist = 1
		}
		position = func(fx, fy float64) float64 {
			return clampFloat(math.Hypot(fx-cx, fy-cy)/maxDist, 0, 1)
		}
	} else {
		// Linear: project onto the angle's direction vector, normalized
		// across the canvas diagonal. 0 degrees points right, increasing
		// clockwise in image coordinates.
		angle := 90.0
		if cfg.GradientAngle != nil {
			angle = *cfg.GradientAngle
		}
		rad := angle * math.Pi / 180
		cos, sin := math.Cos(rad), math.Sin(rad)
		cx, cy := float64(w)/2, float64(h)/2
		maxDist := math.Hypot(float64(w), float64(h)) / 2
		position = func(fx, fy float64) float64 {
			d := (fx-cx)*cos + (fy-cy)*sin
			return clampFloat((d/maxDist+1)/2, 0, 1)
		}
	}

	for y := 0; y < h; y++ {
		fy := float64(y) + 0.5
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			pos := position(float64(x)+0.5, fy)
			r, g, b := gradientColorAt(stops, colors, pos)
			i := x * 4
			row[i] = r
			row[i+1] = g
			row[i+2] = b
			row[i+3] = alpha
		}
	}
	return img, nil
}

// gradientColorAt interpolates per-channel linearly between the two stops
// bracketing pos, clamping beyond the first and last stop.
func gradientColorAt(stops []GradientStop, colors []color.NRGBA, pos float64) (uint8, uint8, uint8) {
	if pos <= stops[0].Position {
		c := colors[0]
		return c.R, c.G, c.B
	}
	last := len(stops) - 1
	if pos >= stops[last].Position {
		c := colors[last]
		return c.R, c.G, c.B
	}
	for i := 0; i < last; i++ {
		p1, p2 := stops[i].Position, stops[i+1].Position
		if pos < p1 || pos > p2 {
			continue
		}
		if p2 <= p1 {
			// Duplicate positions: the later stop wins at the shared point.
			continue
		}
		t := (pos - p1) / (p2 - p1)
		c1, c2 := colors[i], colors[i+1]
		return lerpChannel(c1.R, c2.R, t), lerpChannel(c1.G, c2.G, t), lerpChannel(c1.B, c2.B, t)
	}
	c := colors[last]
	return c.R, c.G, c.B
}

func lerpChannel(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}
