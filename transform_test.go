package covergen

import (
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
)

func TestRotateLayer_ZeroIsNoop(t *testing.T) {
	layer := imaging.New(64, 48, color.NRGBA{R: 0xFF, A: 0xFF})
	out, offX, offY, err := RotateLayer(layer, 0, 0, 0)
	if err != nil {
		t.Fatalf("RotateLayer: %v", err)
	}
	if out != layer {
		t.Error("zero rotation should return the same layer")
	}
	if offX != 0 || offY != 0 {
		t.Errorf("offsets = (%d,%d), want (0,0)", offX, offY)
	}
}

func TestProjectQuad_BoundsContainCorners(t *testing.T) {
	angles := []float64{-180, -120, -60, 0, 45, 90, 135, 180}
	tilts := []float64{-75, -30, 0, 30, 75}
	for _, rot := range angles {
		for _, rx := range tilts {
			for _, ry := range tilts {
				q := projectQuad(200, 100, rx, ry, rot)
				minX, minY, maxX, maxY := quadBounds(q)
				for i, p := range q {
					if p.X < minX-1e-9 || p.X > maxX+1e-9 || p.Y < minY-1e-9 || p.Y > maxY+1e-9 {
						t.Fatalf("rot=%v rx=%v ry=%v: corner %d (%v) outside bounds [%v,%v]x[%v,%v]",
							rot, rx, ry, i, p, minX, maxX, minY, maxY)
					}
				}
			}
		}
	}
}

func TestProjectQuad_TiltClamped(t *testing.T) {
	// Past the clamp the projection must match the clamped angle exactly.
	a := projectQuad(200, 200, 0, 89, 0)
	b := projectQuad(200, 200, 0, 2000, 0)
	for i := range a {
		if math.Abs(a[i].X-b[i].X) > 1e-9 || math.Abs(a[i].Y-b[i].Y) > 1e-9 {
			t.Fatalf("corner %d differs after clamp: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestRotateLayer_45DegreeBounds(t *testing.T) {
	layer := imaging.New(200, 200, color.NRGBA{G: 0xFF, A: 0xFF})
	out, offX, offY, err := RotateLayer(layer, 45, 0, 0)
	if err != nil {
		t.Fatalf("RotateLayer: %v", err)
	}

	// A 200x200 square rotated 45 degrees spans 200*sqrt(2) = 282.8 pixels.
	b := out.Bounds()
	if b.Dx() < 282 || b.Dx() > 284 || b.Dy() < 282 || b.Dy() > 284 {
		t.Errorf("rotated bounds = %dx%d, want about 283x283", b.Dx(), b.Dy())
	}
	// The expanded layer is centered on the original, so offsets are negative
	// by half the growth.
	if offX < -43 || offX > -40 || offY < -43 || offY > -40 {
		t.Errorf("offsets = (%d,%d), want about (-41,-41)", offX, offY)
	}

	// Center survives, the new corners are transparent.
	if c := out.NRGBAAt(b.Dx()/2, b.Dy()/2); c.A != 0xFF || c.G < 0xF0 {
		t.Errorf("center = %+v, want opaque green", c)
	}
	if c := out.NRGBAAt(1, 1); c.A != 0 {
		t.Errorf("corner alpha = %d, want transparent", c.A)
	}
}

func TestRotateLayer_90DegreesClockwise(t *testing.T) {
	// Left half red, right half blue.
	layer := imaging.New(200, 100, color.NRGBA{B: 0xFF, A: 0xFF})
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			layer.SetNRGBA(x, y, color.NRGBA{R: 0xFF, A: 0xFF})
		}
	}

	out, _, _, err := RotateLayer(layer, 90, 0, 0)
	if err != nil {
		t.Fatalf("RotateLayer: %v", err)
	}
	b := out.Bounds()
	if b.Dx() < 99 || b.Dx() > 101 || b.Dy() < 199 || b.Dy() > 201 {
		t.Fatalf("rotated bounds = %dx%d, want about 100x200", b.Dx(), b.Dy())
	}

	// Positive rotation is clockwise on screen, so the left (red) half lands
	// on top.
	top := out.NRGBAAt(b.Dx()/2, 10)
	if top.R < 0xC0 || top.B > 0x40 {
		t.Errorf("top pixel = %+v, want red", top)
	}
	bottom := out.NRGBAAt(b.Dx()/2, b.Dy()-10)
	if bottom.B < 0xC0 || bottom.R > 0x40 {
		t.Errorf("bottom pixel = %+v, want blue", bottom)
	}
}

func TestRotateLayer_TiltNarrowsAxis(t *testing.T) {
	layer := imaging.New(200, 200, color.NRGBA{R: 0xFF, A: 0xFF})
	out, _, _, err := RotateLayer(layer, 0, 0, 60)
	if err != nil {
		t.Fatalf("RotateLayer: %v", err)
	}
	b := out.Bounds()
	if b.Dx() >= 200 {
		t.Errorf("tilted width = %d, want narrower than 200", b.Dx())
	}
	// The near edge grows under perspective.
	if b.Dy() <= 200 {
		t.Errorf("tilted height = %d, want taller than 200", b.Dy())
	}
	if c := out.NRGBAAt(b.Dx()/2, b.Dy()/2); c.A == 0 {
		t.Error("tilted layer center is transparent")
	}
}

func TestPerspectiveCoeffs_Identity(t *testing.T) {
	quad := [4]vec2{{0, 0}, {100, 0}, {100, 50}, {0, 50}}
	coeffs, err := perspectiveCoeffs(quad, quad)
	if err != nil {
		t.Fatalf("perspectiveCoeffs: %v", err)
	}
	want := [8]float64{1, 0, 0, 0, 1, 0, 0, 0}
	for i := range coeffs {
		if math.Abs(coeffs[i]-want[i]) > 1e-9 {
			t.Errorf("coeff %d = %v, want %v", i, coeffs[i], want[i])
		}
	}
}

func TestPerspectiveCoeffs_DegenerateQuad(t *testing.T) {
	// All four destination corners collinear: no projective solution.
	dst := [4]vec2{{0, 0}, {1, 0}, {2, 0}, {3, 0}}
	src := [4]vec2{{0, 0}, {100, 0}, {100, 50}, {0, 50}}
	if _, err := perspectiveCoeffs(dst, src); err == nil {
		t.Error("expected an error for a degenerate quad")
	}
}

func TestSampleBilinear_OutsideTransparent(t *testing.T) {
	src := imaging.New(10, 10, color.NRGBA{R: 0xFF, A: 0xFF})
	if _, _, _, a := sampleBilinear(src, -5, -5); a != 0 {
		t.Errorf("far outside alpha = %d, want 0", a)
	}
	if _, _, _, a := sampleBilinear(src, 4.5, 4.5); a != 0xFF {
		t.Errorf("interior alpha = %d, want 255", a)
	}
}
