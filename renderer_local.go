package postshot

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/k1LoW/errors"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DefaultLocalMaxWidth mirrors the output width limit of the HTTP oracle.
const DefaultLocalMaxWidth = 1000

const localTextPadding = 2

// localRenderer rasterizes text in-process with the Go fonts.
type localRenderer struct {
	font     *opentype.Font
	maxWidth int

	mu    sync.Mutex
	faces map[int]font.Face
}

// NewLocalRenderer returns a TextRenderer that needs no network.
// Text wider than maxWidth is rejected like the HTTP oracle does.
func NewLocalRenderer(maxWidth int) (_ *localRenderer, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	if maxWidth <= 0 {
		maxWidth = DefaultLocalMaxWidth
	}
	return &localRenderer{
		font:     f,
		maxWidth: maxWidth,
		faces:    map[int]font.Face{},
	}, nil
}

func (r *localRenderer) face(size int) (font.Face, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if face, ok := r.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	r.faces[size] = face
	return face, nil
}

func (r *localRenderer) RenderText(ctx context.Context, req TextRequest) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if err := ctx.Err(); err != nil {
		return nil, &RenderOracleError{Reason: err.Error()}
	}
	if req.Size <= 0 {
		return nil, ErrRejected
	}
	fg, err := ParseHexColor(req.Color)
	if err != nil {
		return nil, ErrRejected
	}
	bg, err := ParseHexColor(req.Background)
	if err != nil {
		return nil, ErrRejected
	}
	var outline image.Image
	if req.Fill != "" {
		fill, err := ParseHexColor(req.Fill)
		if err != nil {
			return nil, ErrRejected
		}
		outline = image.NewUniform(fill)
	}
	face, err := r.face(req.Size)
	if err != nil {
		return nil, &RenderOracleError{Reason: err.Error()}
	}

	// The face is shared between requests; font.Face is not safe for concurrent use.
	r.mu.Lock()
	defer r.mu.Unlock()
	m := face.Metrics()
	width := font.MeasureString(face, req.Text).Ceil() + 2*localTextPadding
	height := (m.Ascent + m.Descent).Ceil() + 2*localTextPadding
	if width > r.maxWidth {
		return nil, ErrRejected
	}
	dst := imaging.New(width, height, bg)
	origin := fixed.Point26_6{
		X: fixed.I(localTextPadding),
		Y: fixed.I(localTextPadding) + m.Ascent,
	}
	d := &font.Drawer{Dst: dst, Face: face}
	if outline != nil {
		d.Src = outline
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				if dx == 0 && dy == 0 {
					continue
				}
				d.Dot = origin.Add(fixed.P(dx, dy))
				d.DrawString(req.Text)
			}
		}
	}
	d.Src = image.NewUniform(fg)
	d.Dot = origin
	d.DrawString(req.Text)
	return newImageFromRaster(dst)
}

// ParseHexColor parses "rrggbb" (with or without '#').
func ParseHexColor(s string) (color.NRGBA, error) {
	if len(s) > 0 && s[0] != '#' {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 0xff}, nil
}
