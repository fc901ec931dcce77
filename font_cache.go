package covergen

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-fonts/latin-modern/lmroman10regular"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// maxFontFileSize limits the size of individual font files loaded into memory.
const maxFontFileSize = 20 << 20 // 20 MB

// fontKey uniquely identifies a cached face by source path and point size.
// An empty path selects the built-in default face.
type fontKey struct {
	path string
	size float64
}

// FontCache loads template-referenced font files and caches parsed fonts and
// rendered faces. Faces are cached separately for rendering (HintingFull) and
// for measuring (HintingNone): unhinted advances keep line wrapping stable
// regardless of the hinting applied at draw time.
type FontCache struct {
	mu           sync.RWMutex
	fonts        map[string]*opentype.Font // font file path -> parsed font
	faces        map[fontKey]font.Face
	measureFaces map[fontKey]font.Face
}

func NewFontCache() *FontCache {
	return &FontCache{
		fonts:        make(map[string]*opentype.Font),
		faces:        make(map[fontKey]font.Face),
		measureFaces: make(map[fontKey]font.Face),
	}
}

// Face returns a rendering face for the font at path at the given point size.
// An empty path selects the built-in default face; a path that cannot be read
// or parsed is an error, never a silent substitution.
func (fc *FontCache) Face(path string, sizePt float64) (font.Face, error) {
	return fc.face(path, sizePt, font.HintingFull, fc.faces)
}

// MeasureFace returns an unhinted face for text measurement.
func (fc *FontCache) MeasureFace(path string, sizePt float64) (font.Face, error) {
	return fc.face(path, sizePt, font.HintingNone, fc.measureFaces)
}

func (fc *FontCache) face(path string, sizePt float64, hinting font.Hinting, cache map[fontKey]font.Face) (font.Face, error) {
	if sizePt <= 0 {
		sizePt = 10
	}
	key := fontKey{path: path, size: sizePt}

	fc.mu.RLock()
	if face, ok := cache[key]; ok {
		fc.mu.RUnlock()
		return face, nil
	}
	fc.mu.RUnlock()

	f, err := fc.load(path)
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePt,
		DPI:     72,
		Hinting: hinting,
	})
	if err != nil {
		return nil, fmt.Errorf("font face %q at %gpt: %w", path, sizePt, err)
	}

	fc.mu.Lock()
	cache[key] = face
	fc.mu.Unlock()
	return face, nil
}

// load returns the parsed font for path, reading and parsing it on first use.
func (fc *FontCache) load(path string) (*opentype.Font, error) {
	if path == "" {
		return defaultFont()
	}

	fc.mu.RLock()
	f, ok := fc.fonts[path]
	fc.mu.RUnlock()
	if ok {
		return f, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: font %s: %v", ErrAssetMissing, path, err)
	}
	if info.Size() > maxFontFileSize {
		return nil, fmt.Errorf("%w: font %s: file too large (%d bytes, max %d)", ErrAssetMissing, path, info.Size(), maxFontFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: font %s: %v", ErrAssetMissing, path, err)
	}
	f, err = opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: font %s: %v", ErrAssetMissing, path, err)
	}

	fc.mu.Lock()
	fc.fonts[path] = f
	fc.mu.Unlock()
	return f, nil
}

var (
	defaultFontOnce sync.Once
	defaultFontVal  *opentype.Font
	defaultFontErr  error
)

// defaultFont parses the embedded Latin Modern face once per process.
func defaultFont() (*opentype.Font, error) {
	defaultFontOnce.Do(func() {
		defaultFontVal, defaultFontErr = opentype.Parse(lmroman10regular.TTF)
	})
	if defaultFontErr != nil {
		return nil, fmt.Errorf("parse built-in font: %w", defaultFontErr)
	}
	return defaultFontVal, nil
}
