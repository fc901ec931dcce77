package covergen

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// wrapText splits content at whitespace runs and packs the tokens greedily
// into lines whose measured width stays within maxWidth. A token wider than
// maxWidth still gets a line of its own; there is no mid-word breaking.
// Manual line breaks are not preserved, they count as ordinary whitespace.
func wrapText(content string, face font.Face, maxWidth int) []string {
	words := strings.Fields(content)
	var lines []string
	current := ""
	for _, word := range words {
		trial := word
		if current != "" {
			trial = current + " " + word
		}
		if current == "" || font.MeasureString(face, trial).Ceil() <= maxWidth {
			current = trial
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

// lineStartX positions a line of the given width inside the box span.
func lineStartX(boxX, boxW, lineW int, align Alignment) int {
	switch align {
	case AlignCenter:
		return boxX + (boxW-lineW)/2
	case AlignRight:
		return boxX + boxW - lineW
	default:
		return boxX
	}
}

// linePos is a laid-out line with its baseline origin.
type linePos struct {
	text string
	x, y int
}

// drawTextBlock lays out and renders one text block onto the canvas.
// Pass order: shadow (offset, optionally blurred), stroke outline, then fill.
func (e *Engine) drawTextBlock(canvas *image.NRGBA, block *TextBlock, content, colorOverride string) error {
	style := block.Style
	if colorOverride != "" {
		style.Color = colorOverride
	}

	fill, err := ParseHexColor(style.Color)
	if err != nil {
		return err
	}

	face, err := e.fonts.Face(style.Font, float64(style.Size))
	if err != nil {
		return err
	}
	measure, err := e.fonts.MeasureFace(style.Font, float64(style.Size))
	if err != nil {
		return err
	}

	maxWidth := style.MaxWidth
	if maxWidth <= 0 {
		maxWidth = block.Box.W
	}
	lines := wrapText(content, measure, maxWidth)

	pitch := int(math.Round(float64(style.Size) * style.LineSpacing))
	ascent := face.Metrics().Ascent.Ceil()

	layout := make([]linePos, 0, len(lines))
	for i, line := range lines {
		if line == "" {
			continue
		}
		w := font.MeasureString(measure, line).Ceil()
		layout = append(layout, linePos{
			text: line,
			x:    lineStartX(block.Box.X, block.Box.W, w, style.Align),
			y:    block.Box.Y + i*pitch + ascent,
		})
	}
	if len(layout) == 0 {
		return nil
	}

	if style.Shadow != nil {
		if err := drawShadow(canvas, layout, face, style.Shadow); err != nil {
			return err
		}
	}

	if style.StrokeWidth > 0 && style.StrokeFill != "" {
		stroke, err := ParseHexColor(style.StrokeFill)
		if err != nil {
			return err
		}
		drawStroke(canvas, layout, face, stroke, style.StrokeWidth)
	}

	for _, l := range layout {
		drawString(canvas, face, fill, l.x, l.y, l.text)
	}
	return nil
}

// drawShadow renders the block's lines in the shadow color at the configured
// offset, Gaussian-blurs them when requested, and composites the result.
func drawShadow(canvas *image.NRGBA, layout []linePos, face font.Face, shadow *Shadow) error {
	col, err := ParseHexColor(shadow.Color)
	if err != nil {
		return fmt.Errorf("shadow: %w", err)
	}
	dx, dy := shadow.Offset[0], shadow.Offset[1]

	if shadow.Blur <= 0 {
		for _, l := range layout {
			drawString(canvas, face, col, l.x+dx, l.y+dy, l.text)
		}
		return nil
	}

	layer := image.NewNRGBA(canvas.Bounds())
	for _, l := range layout {
		drawString(layer, face, col, l.x+dx, l.y+dy, l.text)
	}
	blurred := imaging.Blur(layer, shadow.Blur)
	compositeOver(canvas, blurred, canvas.Bounds().Min)
	return nil
}

// drawStroke approximates a glyph outline by stamping the text at every
// offset within a disc of the stroke radius.
func drawStroke(canvas *image.NRGBA, layout []linePos, face font.Face, col color.NRGBA, width int) {
	for dy := -width; dy <= width; dy++ {
		for dx := -width; dx <= width; dx++ {
			if dx*dx+dy*dy > width*width || (dx == 0 && dy == 0) {
				continue
			}
			for _, l := range layout {
				drawString(canvas, face, col, l.x+dx, l.y+dy, l.text)
			}
		}
	}
}

func drawString(dst draw.Image, face font.Face, col color.NRGBA, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  &image.Uniform{col},
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}
