package postshot

import (
	"context"
	"image/color"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/disintegration/imaging"
)

const stubHeight = 20

// stubRenderer draws every character as a charWidth wide block of the requested color.
type stubRenderer struct {
	charWidth int
	// maxWidth rejects wider text like the HTTP oracle does. 0 means unlimited.
	maxWidth int

	mu    sync.Mutex
	calls []TextRequest
}

func newStubRenderer(charWidth, maxWidth int) *stubRenderer {
	return &stubRenderer{charWidth: charWidth, maxWidth: maxWidth}
}

func (r *stubRenderer) RenderText(ctx context.Context, req TextRequest) (*Image, error) {
	r.mu.Lock()
	r.calls = append(r.calls, req)
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := max(1, utf8.RuneCountInString(req.Text)*r.charWidth)
	if r.maxWidth > 0 && w > r.maxWidth {
		return nil, ErrRejected
	}
	c, err := ParseHexColor(req.Color)
	if err != nil {
		return nil, err
	}
	return newImageFromRaster(imaging.New(w, stubHeight, c))
}

func (r *stubRenderer) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	texts := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		texts = append(texts, c.Text)
	}
	return texts
}

func (r *stubRenderer) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func solidImage(t *testing.T, w, h int, c color.Color) *Image {
	t.Helper()
	img, err := newImageFromRaster(imaging.New(w, h, c))
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func pixel(t *testing.T, img *Image, x, y int) color.NRGBA {
	t.Helper()
	src, err := img.Image()
	if err != nil {
		t.Fatal(err)
	}
	return color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
}
