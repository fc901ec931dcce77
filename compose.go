package covergen

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// RenderInput is one render request against a template: the text content,
// slot image paths, and optional overrides a single output needs. Text-block
// keys absent from Texts render empty; slot keys absent from SlotPaths are
// skipped, leaving the background visible.
type RenderInput struct {
	TemplateKey    string            `json:"template_key"`
	OutputName     string            `json:"output_name"`
	BackgroundPath string            `json:"background_path,omitempty"`
	Texts          map[string]string `json:"texts,omitempty"`
	TextColors     map[string]string `json:"text_colors,omitempty"`
	SlotPaths      map[string]string `json:"slot_paths,omitempty"`
}

// Engine renders templates to pixel buffers. It holds no state across calls
// beyond the font cache, which is safe to share between concurrent renders.
type Engine struct {
	fonts *FontCache
}

func NewEngine() *Engine {
	return &Engine{fonts: NewFontCache()}
}

// NewEngineWithFontCache shares a pre-warmed FontCache across engines.
func NewEngineWithFontCache(fc *FontCache) *Engine {
	if fc == nil {
		fc = NewFontCache()
	}
	return &Engine{fonts: fc}
}

// Compose renders the template with the given input into a buffer of exactly
// template.Size: background, then slots, then text blocks, in declaration
// order. Per-element failures (missing slot image, bad color, bad font) are
// joined into the returned error while the remaining elements still render;
// the buffer is non-nil in that case. A background failure is fatal and
// returns a nil buffer.
func (e *Engine) Compose(t *TemplateDefinition, in *RenderInput) (*image.NRGBA, error) {
	canvas, err := renderBackground(t, in.BackgroundPath)
	if err != nil {
		return nil, err
	}

	var elemErrs []error
	for i := range t.Slots {
		slot := &t.Slots[i]
		path := in.SlotPaths[slot.Key]
		if path == "" {
			continue
		}
		if err := e.placeSlot(canvas, slot, path); err != nil {
			elemErrs = append(elemErrs, fmt.Errorf("slot %q: %w", slot.Key, err))
		}
	}

	for i := range t.Texts {
		block := &t.Texts[i]
		if err := e.drawTextBlock(canvas, block, in.Texts[block.Key], in.TextColors[block.Key]); err != nil {
			elemErrs = append(elemErrs, fmt.Errorf("text %q: %w", block.Key, err))
		}
	}

	return canvas, errors.Join(elemErrs...)
}

// placeSlot fits, rounds, rotates, and composites one slot image.
func (e *Engine) placeSlot(canvas *image.NRGBA, slot *Slot, path string) error {
	w, h := slot.Box.W, slot.Box.H
	if w <= 0 || h <= 0 {
		return nil
	}

	src, err := imaging.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAssetMissing, path, err)
	}

	pad := slot.Padding
	fitted := fitImage(src, w-2*pad, h-2*pad, slot.Fit, slot.AlignX, slot.AlignY)
	rounded := applyRoundedCorners(fitted, slot.Radius)

	// Build a full slot-sized layer so rotation carries padding and corner
	// rounding with it.
	layer := imaging.Paste(imaging.New(w, h, color.NRGBA{}), rounded, image.Pt(pad, pad))

	warped, offX, offY, err := RotateLayer(layer, slot.Rotation, slot.RotateX, slot.RotateY)
	if err != nil {
		return err
	}
	compositeOver(canvas, warped, image.Pt(slot.Box.X+offX, slot.Box.Y+offY))
	return nil
}

// RenderToFile runs the full-resolution pipeline and writes the result as
// PNG, creating parent directories as needed. When per-element errors were
// reported the file is still written and the joined error is returned
// alongside the path.
func (e *Engine) RenderToFile(in *RenderInput, t *TemplateDefinition, path string) (string, error) {
	img, composeErr := e.Compose(t, in)
	if img == nil {
		return "", composeErr
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Join(composeErr, fmt.Errorf("create directory: %w", err))
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Join(composeErr, fmt.Errorf("create file: %w", err))
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", errors.Join(composeErr, fmt.Errorf("encode png: %w", err))
	}
	return path, composeErr
}

// BuildPreview renders a reduced-resolution preview whose longer dimension
// fits maxSize. The whole pipeline re-runs against a uniformly scaled
// template copy rather than downscaling a full-size render.
func (e *Engine) BuildPreview(in *RenderInput, t *TemplateDefinition, maxSize int) (*image.NRGBA, error) {
	if maxSize <= 0 {
		maxSize = 480
	}
	long := max(t.Size.W, t.Size.H)
	if long <= maxSize {
		return e.Compose(t, in)
	}
	return e.Compose(scaleTemplate(t, float64(maxSize)/float64(long)), in)
}

// scaleTemplate returns a deep copy of the template with every pixel
// dimension scaled by s. Ratios (opacity, line spacing, gradient geometry)
// are resolution-independent and stay unchanged.
func scaleTemplate(t *TemplateDefinition, s float64) *TemplateDefinition {
	out := *t
	out.Size = Size{W: max(1, scaleInt(t.Size.W, s)), H: max(1, scaleInt(t.Size.H, s))}

	out.Slots = make([]Slot, len(t.Slots))
	for i, slot := range t.Slots {
		slot.Box = scaleBox(slot.Box, s)
		slot.Radius = scaleInt(slot.Radius, s)
		slot.Padding = scaleInt(slot.Padding, s)
		out.Slots[i] = slot
	}

	out.Texts = make([]TextBlock, len(t.Texts))
	for i, block := range t.Texts {
		block.Box = scaleBox(block.Box, s)
		block.Style.Size = max(1, scaleInt(block.Style.Size, s))
		block.Style.MaxWidth = scaleInt(block.Style.MaxWidth, s)
		block.Style.StrokeWidth = scaleInt(block.Style.StrokeWidth, s)
		if block.Style.Shadow != nil {
			shadow := *block.Style.Shadow
			shadow.Offset = [2]int{scaleInt(shadow.Offset[0], s), scaleInt(shadow.Offset[1], s)}
			shadow.Blur *= s
			block.Style.Shadow = &shadow
		}
		out.Texts[i] = block
	}
	return &out
}

func scaleBox(b Box, s float64) Box {
	return Box{
		X: scaleInt(b.X, s),
		Y: scaleInt(b.Y, s),
		W: max(1, scaleInt(b.W, s)),
		H: max(1, scaleInt(b.H, s)),
	}
}

func scaleInt(v int, s float64) int {
	return int(math.Round(float64(v) * s))
}

// compositeOver alpha-blends src onto dst with src's top-left corner at the
// given point.
func compositeOver(dst *image.NRGBA, src image.Image, at image.Point) {
	sb := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
	draw.Draw(dst, r, src, sb.Min, draw.Over)
}
