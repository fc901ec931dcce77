package covergen

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestParseTemplate_Defaults(t *testing.T) {
	data := []byte(`{
		"key": "t1",
		"slots": [{"key": "main", "box": [10, 20, 300, 400]}],
		"texts": [{"key": "title", "box": [0, 0, 300, 100]}]
	}`)
	tpl, err := ParseTemplate(data)
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}

	if tpl.Size != (Size{W: 1080, H: 1920}) {
		t.Errorf("default size = %v, want 1080x1920", tpl.Size)
	}
	if tpl.Name != "t1" {
		t.Errorf("name defaults to key, got %q", tpl.Name)
	}
	if tpl.Background.Kind != BackgroundColor || tpl.Background.Value != "#ffffff" || tpl.Background.Opacity != 1 {
		t.Errorf("unexpected default background: %+v", tpl.Background)
	}

	slot := tpl.Slots[0]
	if slot.Fit != FitCover || slot.AlignX != AlignCenter || slot.AlignY != AlignCenter {
		t.Errorf("slot defaults = fit %q align %q/%q", slot.Fit, slot.AlignX, slot.AlignY)
	}
	if slot.Box != (Box{X: 10, Y: 20, W: 300, H: 400}) {
		t.Errorf("slot box = %+v", slot.Box)
	}

	style := tpl.Texts[0].Style
	if style.Size != 42 || style.Color != "#000000" || style.Align != AlignLeft || style.LineSpacing != 1.2 {
		t.Errorf("text style defaults = %+v", style)
	}
}

func TestParseTemplate_RejectsPerspective(t *testing.T) {
	data := []byte(`{
		"key": "t1",
		"slots": [{"key": "main", "box": [0, 0, 100, 100], "perspective": 1.5}]
	}`)
	_, err := ParseTemplate(data)
	if err == nil {
		t.Fatal("expected error for perspective field")
	}
	if !errors.Is(err, ErrTemplateInvalid) {
		t.Errorf("error kind = %v, want ErrTemplateInvalid", err)
	}
	if !strings.Contains(err.Error(), "perspective") {
		t.Errorf("error should mention perspective: %v", err)
	}
}

func TestValidate_DuplicateKeysCaseInsensitive(t *testing.T) {
	tpl := DefaultTemplate()
	tpl.Slots = append(tpl.Slots, Slot{
		Key: "Screenshot-1", Box: Box{W: 10, H: 10}, Fit: FitCover, AlignX: AlignCenter, AlignY: AlignCenter,
	})
	err := tpl.Validate()
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	if !strings.Contains(err.Error(), "duplicate key") {
		t.Errorf("error = %v", err)
	}
}

func TestValidate_KeyContainsSeparator(t *testing.T) {
	tpl := DefaultTemplate()
	tpl.Texts[0].Key = "title.main"
	err := tpl.Validate()
	if err == nil || !strings.Contains(err.Error(), `contains "."`) {
		t.Errorf("expected separator error, got %v", err)
	}
}

func TestValidate_BadEnumValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*TemplateDefinition)
		want   string
	}{
		{"bad fit", func(d *TemplateDefinition) { d.Slots[0].Fit = "stretch" }, "invalid fit"},
		{"bad align_x", func(d *TemplateDefinition) { d.Slots[0].AlignX = "middle" }, "invalid align_x"},
		{"bad align_y", func(d *TemplateDefinition) { d.Slots[0].AlignY = AlignLeft }, "invalid align_y"},
		{"bad text align", func(d *TemplateDefinition) { d.Texts[0].Style.Align = AlignTop }, "invalid align"},
		{"bad background kind", func(d *TemplateDefinition) { d.Background.Kind = "noise" }, "invalid kind"},
		{"non-positive size", func(d *TemplateDefinition) { d.Size.W = 0 }, "must be positive"},
		{"bad color", func(d *TemplateDefinition) { d.Texts[0].Style.Color = "#12" }, "invalid color"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tpl := DefaultTemplate()
			tc.mutate(tpl)
			err := tpl.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrTemplateInvalid) {
				t.Errorf("error kind = %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %v should contain %q", err, tc.want)
			}
		})
	}
}

func TestValidate_GradientStopColors(t *testing.T) {
	tpl := DefaultTemplate()
	tpl.Background = BackgroundConfig{
		Kind:         BackgroundGradient,
		Opacity:      1,
		GradientType: GradientLinear,
		GradientStops: []GradientStop{
			{Color: "#ff0000", Position: 0},
			{Color: "#00ff00aa", Position: 1}, // 8-digit alpha not allowed on stops
		},
	}
	err := tpl.Validate()
	if err == nil || !strings.Contains(err.Error(), "gradient stop 2") {
		t.Errorf("expected stop color error, got %v", err)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "default.json")

	orig := DefaultTemplate()
	if err := SaveTemplate(orig, path); err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	loaded, err := LoadTemplate(path)
	if err != nil {
		t.Fatalf("LoadTemplate: %v", err)
	}
	if !reflect.DeepEqual(orig, loaded) {
		t.Errorf("round trip mismatch:\noriginal: %+v\nloaded:   %+v", orig, loaded)
	}

	// A second pass must also be stable.
	path2 := filepath.Join(dir, "again.json")
	if err := SaveTemplate(loaded, path2); err != nil {
		t.Fatalf("SaveTemplate again: %v", err)
	}
	reloaded, err := LoadTemplate(path2)
	if err != nil {
		t.Fatalf("LoadTemplate again: %v", err)
	}
	if !reflect.DeepEqual(loaded, reloaded) {
		t.Error("second round trip mismatch")
	}
}

func TestRegistryLoadWithDefault(t *testing.T) {
	dir := t.TempDir()

	reg := NewTemplateRegistry()
	if err := reg.LoadWithDefault(dir); err != nil {
		t.Fatalf("LoadWithDefault: %v", err)
	}
	if _, ok := reg.Get("default"); !ok {
		t.Fatal("default template not registered")
	}
	if _, err := os.Stat(filepath.Join(dir, "default.json")); err != nil {
		t.Errorf("default template file not written: %v", err)
	}

	// A fresh registry over the same directory loads the written file.
	reg2 := NewTemplateRegistry()
	if err := reg2.LoadWithDefault(dir); err != nil {
		t.Fatalf("second LoadWithDefault: %v", err)
	}
	got, ok := reg2.Get("default")
	if !ok {
		t.Fatal("default template not loaded from disk")
	}
	if !reflect.DeepEqual(got, DefaultTemplate()) {
		t.Error("loaded default differs from built-in default")
	}
}

func TestRegistryLoadDir_CollectsBadTemplates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := SaveTemplate(DefaultTemplate(), filepath.Join(dir, "good.json")); err != nil {
		t.Fatal(err)
	}

	reg := NewTemplateRegistry()
	err := reg.LoadDir(dir)
	if err == nil {
		t.Error("expected an error for the malformed template")
	}
	if _, ok := reg.Get("default"); !ok {
		t.Error("valid template should still load")
	}
}
