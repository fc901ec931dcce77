package covergen

import "errors"

// Error kinds surfaced by the engine. Individual failures wrap one of these
// with fmt.Errorf("...: %w", ...) so callers can classify them with errors.Is.
var (
	// ErrTemplateInvalid reports a structurally broken template: duplicate
	// keys, bad enum values, non-positive canvas size. Fatal at load time.
	ErrTemplateInvalid = errors.New("template invalid")

	// ErrAssetMissing reports an unreadable image or font file. Reported per
	// slot or text block; a missing background image is fatal for the render.
	ErrAssetMissing = errors.New("asset missing")

	// ErrInvalidColor reports a malformed hex color string.
	ErrInvalidColor = errors.New("invalid color")

	// ErrOutputCollision reports a duplicate output filename within a batch.
	ErrOutputCollision = errors.New("output name collision")
)
