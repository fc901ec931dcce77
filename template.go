package covergen

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// keySeparator is the CSV namespace separator. Slot and text-block keys must
// not contain it, or batch columns like "text.<key>" become ambiguous.
const keySeparator = "."

// Box is a rectangle in canvas pixels, serialized as [x, y, width, height].
type Box struct {
	X, Y, W, H int
}

func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X, b.Y, b.W, b.H})
}

func (b *Box) UnmarshalJSON(data []byte) error {
	var v [4]int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("box: %w", err)
	}
	*b = Box{X: v[0], Y: v[1], W: v[2], H: v[3]}
	return nil
}

// Size is a canvas size in pixels, serialized as [width, height].
type Size struct {
	W, H int
}

func (s Size) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{s.W, s.H})
}

func (s *Size) UnmarshalJSON(data []byte) error {
	var v [2]int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("size: %w", err)
	}
	*s = Size{W: v[0], H: v[1]}
	return nil
}

// BackgroundKind selects how the canvas background is produced.
type BackgroundKind string

const (
	BackgroundColor    BackgroundKind = "color"
	BackgroundImage    BackgroundKind = "image"
	BackgroundGradient BackgroundKind = "gradient"
)

// GradientType selects the gradient geometry.
type GradientType string

const (
	GradientLinear GradientType = "linear"
	GradientRadial GradientType = "radial"
)

// FitMode controls how a slot image fills its box.
type FitMode string

const (
	// FitCover fills the box completely, cropping the image as needed.
	FitCover FitMode = "cover"
	// FitContain fits the whole image inside the box, possibly leaving margin.
	FitContain FitMode = "contain"
)

// Alignment positions content inside a box. Left/center/right apply on the
// horizontal axis, top/center/bottom on the vertical axis.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
	AlignTop    Alignment = "top"
	AlignBottom Alignment = "bottom"
)

// GradientStop is a color control point along a gradient's parametric axis.
// Color is restricted to "#RRGGBB"; Position is normally in [0, 1]. Stops need
// not arrive sorted; the renderer stable-sorts them before interpolating.
type GradientStop struct {
	Color    string  `json:"color"`
	Position float64 `json:"position"`
}

// BackgroundConfig describes the canvas background layer.
type BackgroundConfig struct {
	Kind    BackgroundKind `json:"kind"`
	Value   string         `json:"value"`
	Opacity float64        `json:"opacity"`

	// Gradient-only fields.
	GradientType   GradientType   `json:"gradient_type,omitempty"`
	GradientAngle  *float64       `json:"gradient_angle,omitempty"`
	GradientCenter *[2]float64    `json:"gradient_center,omitempty"`
	GradientStops  []GradientStop `json:"gradient_stops,omitempty"`
}

func (b *BackgroundConfig) UnmarshalJSON(data []byte) error {
	type alias BackgroundConfig
	aux := alias{Kind: BackgroundColor, Value: "#ffffff", Opacity: 1}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*b = BackgroundConfig(aux)
	return nil
}

// Slot is a named rectangular region that displays a placed image layer.
type Slot struct {
	Key      string    `json:"key"`
	Box      Box       `json:"box"`
	Radius   int       `json:"radius"`
	Fit      FitMode   `json:"fit"`
	Padding  int       `json:"padding"`
	AlignX   Alignment `json:"align_x"`
	AlignY   Alignment `json:"align_y"`
	Rotation float64   `json:"rotation"`
	RotateX  float64   `json:"rotate_x"`
	RotateY  float64   `json:"rotate_y"`
}

func (s *Slot) UnmarshalJSON(data []byte) error {
	s.Fit = FitCover
	s.AlignX = AlignCenter
	s.AlignY = AlignCenter

	type alias Slot
	aux := struct {
		*alias
		// Perspective strength is a fixed internal constant of the
		// transform engine, never a template parameter.
		Perspective json.RawMessage `json:"perspective"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Perspective) > 0 {
		return fmt.Errorf(`%w: slot %q: field "perspective" is not supported`, ErrTemplateInvalid, s.Key)
	}
	return nil
}

// Shadow is an optional drop shadow behind text.
type Shadow struct {
	Offset [2]int  `json:"offset"`
	Color  string  `json:"color"`
	Blur   float64 `json:"blur"`
}

func (s *Shadow) UnmarshalJSON(data []byte) error {
	type alias Shadow
	aux := alias{Offset: [2]int{2, 2}, Color: "#00000088"}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Shadow(aux)
	return nil
}

// TextStyle describes how a text block is rendered.
type TextStyle struct {
	// Font is a TrueType/OpenType file path. Empty selects the built-in face.
	Font        string    `json:"font,omitempty"`
	Size        int       `json:"size"`
	Color       string    `json:"color"`
	Align       Alignment `json:"align"`
	MaxWidth    int       `json:"max_width,omitempty"`
	LineSpacing float64   `json:"line_spacing"`
	StrokeWidth int       `json:"stroke_width,omitempty"`
	StrokeFill  string    `json:"stroke_fill,omitempty"`
	Shadow      *Shadow   `json:"shadow,omitempty"`
}

func defaultTextStyle() TextStyle {
	return TextStyle{Size: 42, Color: "#000000", Align: AlignLeft, LineSpacing: 1.2}
}

func (t *TextStyle) UnmarshalJSON(data []byte) error {
	*t = defaultTextStyle()
	type alias TextStyle
	return json.Unmarshal(data, (*alias)(t))
}

// TextBlock is a named, styled text region.
type TextBlock struct {
	Key   string    `json:"key"`
	Box   Box       `json:"box"`
	Style TextStyle `json:"style"`
}

func (t *TextBlock) UnmarshalJSON(data []byte) error {
	t.Style = defaultTextStyle()
	type alias TextBlock
	return json.Unmarshal(data, (*alias)(t))
}

// TemplateDefinition is a complete, immutable cover template: a fixed canvas,
// one background layer, and ordered slot and text-block sequences. The render
// engine only reads templates; it never mutates them.
type TemplateDefinition struct {
	Key        string           `json:"key"`
	Name       string           `json:"name"`
	Size       Size             `json:"size"`
	Background BackgroundConfig `json:"background"`
	Slots      []Slot           `json:"slots"`
	Texts      []TextBlock      `json:"texts"`
}

func (t *TemplateDefinition) UnmarshalJSON(data []byte) error {
	t.Size = Size{W: 1080, H: 1920}
	t.Background = BackgroundConfig{Kind: BackgroundColor, Value: "#ffffff", Opacity: 1}
	type alias TemplateDefinition
	if err := json.Unmarshal(data, (*alias)(t)); err != nil {
		return err
	}
	if t.Name == "" {
		t.Name = t.Key
	}
	return nil
}

// ParseTemplate decodes and validates a JSON template.
func ParseTemplate(data []byte) (*TemplateDefinition, error) {
	var t TemplateDefinition
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateInvalid, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTemplate reads and validates a template file.
func LoadTemplate(path string) (*TemplateDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	t, err := ParseTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return t, nil
}

// SaveTemplate writes the template as indented JSON, creating parent
// directories as needed.
func SaveTemplate(t *TemplateDefinition, path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Validate checks the template for structural issues and returns an error
// describing all problems found, or nil if the template is valid.
func (t *TemplateDefinition) Validate() error {
	var errs []string

	if t.Key == "" {
		errs = append(errs, "template key is empty")
	}
	if t.Size.W <= 0 || t.Size.H <= 0 {
		errs = append(errs, fmt.Sprintf("canvas size must be positive, got %dx%d", t.Size.W, t.Size.H))
	}

	errs = append(errs, validateBackground(&t.Background)...)

	seenSlots := map[string]bool{}
	for i := range t.Slots {
		slot := &t.Slots[i]
		prefix := fmt.Sprintf("slot %d (%s)", i+1, slot.Key)
		errs = append(errs, validateKey(prefix, slot.Key, seenSlots)...)
		if slot.Fit != FitCover && slot.Fit != FitContain {
			errs = append(errs, fmt.Sprintf("%s: invalid fit %q", prefix, slot.Fit))
		}
		if !isHorizontal(slot.AlignX) {
			errs = append(errs, fmt.Sprintf("%s: invalid align_x %q", prefix, slot.AlignX))
		}
		if !isVertical(slot.AlignY) {
			errs = append(errs, fmt.Sprintf("%s: invalid align_y %q", prefix, slot.AlignY))
		}
		if slot.Radius < 0 {
			errs = append(errs, prefix+": radius is negative")
		}
		if slot.Padding < 0 {
			errs = append(errs, prefix+": padding is negative")
		}
	}

	seenTexts := map[string]bool{}
	for i := range t.Texts {
		block := &t.Texts[i]
		prefix := fmt.Sprintf("text %d (%s)", i+1, block.Key)
		errs = append(errs, validateKey(prefix, block.Key, seenTexts)...)
		errs = append(errs, validateTextStyle(prefix, &block.Style)...)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w:\n  %s", ErrTemplateInvalid, strings.Join(errs, "\n  "))
}

func validateKey(prefix, key string, seen map[string]bool) []string {
	var errs []string
	if key == "" {
		errs = append(errs, prefix+": key is empty")
		return errs
	}
	if strings.Contains(key, keySeparator) {
		errs = append(errs, fmt.Sprintf("%s: key contains %q", prefix, keySeparator))
	}
	lower := strings.ToLower(key)
	if seen[lower] {
		errs = append(errs, fmt.Sprintf("%s: duplicate key (case-insensitive)", prefix))
	}
	seen[lower] = true
	return errs
}

func validateBackground(b *BackgroundConfig) []string {
	var errs []string
	switch b.Kind {
	case BackgroundColor:
		if _, err := ParseHexColor(b.Value); err != nil {
			errs = append(errs, fmt.Sprintf("background: %v", err))
		}
	case BackgroundImage:
		// Value is a file path, checked at render time.
	case BackgroundGradient:
		if b.GradientType != GradientLinear && b.GradientType != GradientRadial {
			errs = append(errs, fmt.Sprintf("background: invalid gradient_type %q", b.GradientType))
		}
		for i, stop := range b.GradientStops {
			if _, err := parseOpaqueHex(stop.Color); err != nil {
				errs = append(errs, fmt.Sprintf("background: gradient stop %d: %v", i+1, err))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("background: invalid kind %q", b.Kind))
	}
	if b.Opacity < 0 || b.Opacity > 1 {
		errs = append(errs, fmt.Sprintf("background: opacity %v outside [0, 1]", b.Opacity))
	}
	return errs
}

func validateTextStyle(prefix string, s *TextStyle) []string {
	var errs []string
	if s.Size <= 0 {
		errs = append(errs, prefix+": font size must be positive")
	}
	if _, err := ParseHexColor(s.Color); err != nil {
		errs = append(errs, fmt.Sprintf("%s: %v", prefix, err))
	}
	if !isHorizontal(s.Align) {
		errs = append(errs, fmt.Sprintf("%s: invalid align %q", prefix, s.Align))
	}
	if s.LineSpacing <= 0 {
		errs = append(errs, prefix+": line_spacing must be positive")
	}
	if s.StrokeWidth < 0 {
		errs = append(errs, prefix+": stroke_width is negative")
	}
	if s.StrokeWidth > 0 && s.StrokeFill != "" {
		if _, err := ParseHexColor(s.StrokeFill); err != nil {
			errs = append(errs, fmt.Sprintf("%s: stroke_fill: %v", prefix, err))
		}
	}
	if s.Shadow != nil {
		if _, err := ParseHexColor(s.Shadow.Color); err != nil {
			errs = append(errs, fmt.Sprintf("%s: shadow: %v", prefix, err))
		}
		if s.Shadow.Blur < 0 {
			errs = append(errs, prefix+": shadow blur is negative")
		}
	}
	return errs
}

func isHorizontal(a Alignment) bool {
	return a == AlignLeft || a == AlignCenter || a == AlignRight
}

func isVertical(a Alignment) bool {
	return a == AlignTop || a == AlignCenter || a == AlignBottom
}

// DefaultTemplate returns the built-in 1080x1920 cover template registered
// when a template directory has no templates yet.
func DefaultTemplate() *TemplateDefinition {
	return &TemplateDefinition{
		Key:  "default",
		Name: "Default Cover",
		Size: Size{W: 1080, H: 1920},
		Background: BackgroundConfig{
			Kind:    BackgroundColor,
			Value:   "#f5f5f5",
			Opacity: 1,
		},
		Slots: []Slot{
			{
				Key:    "screenshot-1",
				Box:    Box{X: 90, Y: 420, W: 900, H: 1080},
				Radius: 32,
				Fit:    FitCover,
				AlignX: AlignCenter,
				AlignY: AlignCenter,
			},
		},
		Texts: []TextBlock{
			{
				Key:   "title",
				Box:   Box{X: 90, Y: 120, W: 900, H: 180},
				Style: TextStyle{Size: 64, Color: "#111111", Align: AlignLeft, LineSpacing: 1.2},
			},
			{
				Key:   "subtitle",
				Box:   Box{X: 90, Y: 280, W: 900, H: 100},
				Style: TextStyle{Size: 36, Color: "#444444", Align: AlignLeft, LineSpacing: 1.2},
			},
		},
	}
}
