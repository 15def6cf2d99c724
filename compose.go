package postshot

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/k1LoW/errors"
)

// Anchor is the reference point of a fragment offset.
type Anchor int

const (
	AnchorTopLeft Anchor = iota
)

// Fragment is an image positioned on a canvas.
type Fragment struct {
	Image   *Image
	X, Y    int
	Opacity float64
	Anchor  Anchor
}

// At returns an opaque top-left anchored fragment.
func At(img *Image, x, y int) Fragment {
	return Fragment{Image: img, X: x, Y: y, Opacity: 1, Anchor: AnchorTopLeft}
}

// DefaultBatchSize is the largest number of fragments a single composite call accepts.
const DefaultBatchSize = 15

// Compositor layers fragments onto a canvas.
type Compositor struct {
	batchSize int
}

func NewCompositor(batchSize int) *Compositor {
	if batchSize < 2 {
		batchSize = DefaultBatchSize
	}
	return &Compositor{batchSize: batchSize}
}

// Compose layers fragments in order, later fragments over earlier ones.
// The list is folded in batches: the running canvas plus up to batchSize-1 new fragments per call.
func (c *Compositor) Compose(ctx context.Context, fragments []Fragment, width, height int, bg color.Color) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if len(fragments) == 0 {
		return nil, &RenderOracleError{Reason: "nothing to compose"}
	}
	running := fragments[0]
	rest := fragments[1:]
	var canvas image.Image
	for first := true; first || len(rest) > 0; first = false {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(c.batchSize-1, len(rest))
		batch := append([]Fragment{running}, rest[:n]...)
		rest = rest[n:]
		canvas, err = c.compositeBatch(batch, width, height, bg)
		if err != nil {
			return nil, err
		}
		running = Fragment{X: 0, Y: 0, Opacity: 1, Anchor: AnchorTopLeft, Image: &Image{i: canvas, width: width, height: height}}
	}
	return newImageFromRaster(canvas)
}

// compositeBatch draws at most batchSize fragments onto a fresh canvas filled with bg.
// Opaque fragments replace the pixels they cover; translucent ones are blended.
func (c *Compositor) compositeBatch(fragments []Fragment, width, height int, bg color.Color) (*image.NRGBA, error) {
	if len(fragments) > c.batchSize {
		return nil, &RenderOracleError{Reason: fmt.Sprintf("too many fragments: %d > %d", len(fragments), c.batchSize)}
	}
	if width <= 0 || height <= 0 {
		return nil, &RenderOracleError{Reason: fmt.Sprintf("invalid canvas size: %dx%d", width, height)}
	}
	canvas := imaging.New(width, height, bg)
	for _, f := range fragments {
		src, err := f.Image.Image()
		if err != nil {
			return nil, &RenderOracleError{Reason: err.Error()}
		}
		pos := image.Pt(f.X, f.Y)
		if f.Opacity >= 1 {
			canvas = imaging.Paste(canvas, src, pos)
			continue
		}
		canvas = imaging.Overlay(canvas, src, pos, f.Opacity)
	}
	return canvas, nil
}
