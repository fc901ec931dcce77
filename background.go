package covergen

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// renderBackground builds the base canvas for a render call. overridePath,
// when non-empty, replaces the template background image regardless of kind.
// A background image that cannot be read is fatal for the render.
func renderBackground(t *TemplateDefinition, overridePath string) (*image.NRGBA, error) {
	w, h := t.Size.W, t.Size.H

	var canvas *image.NRGBA
	switch t.Background.Kind {
	case BackgroundGradient:
		g, err := renderGradient(w, h, &t.Background)
		if err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
		canvas = g
	case BackgroundColor:
		c, err := ParseHexColor(t.Background.Value)
		if err != nil {
			return nil, fmt.Errorf("background: %w", err)
		}
		c.A = applyOpacity(c.A, t.Background.Opacity)
		canvas = imaging.New(w, h, c)
	default:
		canvas = imaging.New(w, h, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
	}

	path := overridePath
	if path == "" && t.Background.Kind == BackgroundImage {
		path = t.Background.Value
	}
	if path != "" {
		bg, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("%w: background image %s: %v", ErrAssetMissing, path, err)
		}
		fitted := fitImage(bg, w, h, FitCover, AlignCenter, AlignCenter)
		compositeOver(canvas, fitted, image.Point{})
	}
	return canvas, nil
}
