package covergen

import (
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
)

func TestRoundedMask_Corners(t *testing.T) {
	w, h, r := 100, 80, 20
	mask := RoundedMask(w, h, r)

	corners := [][2]int{{0, 0}, {w - 1, 0}, {0, h - 1}, {w - 1, h - 1}}
	for _, c := range corners {
		if a := mask.AlphaAt(c[0], c[1]).A; a > 16 {
			t.Errorf("corner (%d,%d) alpha = %d, want near transparent", c[0], c[1], a)
		}
	}
	if a := mask.AlphaAt(w/2, h/2).A; a != 0xFF {
		t.Errorf("center alpha = %d, want 255", a)
	}
	// Edge midpoints are on the straight sides, outside any corner arc.
	if a := mask.AlphaAt(w/2, 0).A; a < 0xF0 {
		t.Errorf("top edge midpoint alpha = %d, want opaque", a)
	}
	if a := mask.AlphaAt(0, h/2).A; a < 0xF0 {
		t.Errorf("left edge midpoint alpha = %d, want opaque", a)
	}
}

func TestRoundedMask_RadiusClamped(t *testing.T) {
	// An oversized radius clamps to half the shorter dimension; the result
	// matches the explicitly clamped mask.
	big := RoundedMask(100, 50, 1000)
	clamped := RoundedMask(100, 50, 25)
	for i := range big.Pix {
		if big.Pix[i] != clamped.Pix[i] {
			t.Fatalf("pixel %d differs: %d vs %d", i, big.Pix[i], clamped.Pix[i])
		}
	}
}

func TestRoundedMask_ZeroRadius(t *testing.T) {
	mask := RoundedMask(30, 20, 0)
	for i, a := range mask.Pix {
		if a != 0xFF {
			t.Fatalf("pixel %d alpha = %d, want 255", i, a)
		}
	}
}

func TestApplyRoundedCorners(t *testing.T) {
	img := imaging.New(50, 50, color.NRGBA{R: 0xFF, A: 0xFF})
	out := applyRoundedCorners(img, 10)

	if c := out.NRGBAAt(0, 0); c.A > 16 {
		t.Errorf("corner alpha = %d, want near transparent", c.A)
	}
	if c := out.NRGBAAt(25, 25); c.A != 0xFF || c.R != 0xFF {
		t.Errorf("center = %+v, want opaque red", c)
	}
	// Original layer is untouched.
	if c := img.NRGBAAt(0, 0); c.A != 0xFF {
		t.Error("input layer was mutated")
	}

	same := applyRoundedCorners(img, 0)
	if same != img {
		t.Error("zero radius should return the layer unchanged")
	}
}
