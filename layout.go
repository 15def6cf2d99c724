package postshot

import (
	"context"
	"image"
	"image/color"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/k1LoW/errors"
)

// LayoutConfig holds the card geometry. All coordinates are derived from it.
type LayoutConfig struct {
	Margin       int
	Padding      int
	LineHeight   int
	CardWidth    int
	FooterHeight int
	ProfileSize  int
	BatchSize    int
	MinWidth     int
	// DefaultBackground is used when the author has no valid background color.
	DefaultBackground color.NRGBA
}

func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Margin:            50,
		Padding:           25,
		LineHeight:        30,
		CardWidth:         600,
		FooterHeight:      110,
		ProfileSize:       48,
		BatchSize:         DefaultBatchSize,
		MinWidth:          300,
		DefaultBackground: color.NRGBA{A: 0xff},
	}
}

// MaxLineWidth is the widest a rendered text line may be.
func (c LayoutConfig) MaxLineWidth() int {
	return c.CardWidth - 2*c.Padding
}

// CardHeight is the height of the card template holding a single line.
func (c LayoutConfig) CardHeight() int {
	return c.Padding + c.LineHeight + c.FooterHeight
}

// LineBoxWidth is the width of a recomposed, colorized line.
func (c LayoutConfig) LineBoxWidth() int {
	return c.CardWidth - c.Padding
}

// CanvasSize returns the size of a card with n lines.
func (c LayoutConfig) CanvasSize(n int) (int, int) {
	return c.CardWidth + 2*c.Margin, c.CardHeight() + 2*c.Margin + (n-1)*c.LineHeight
}

// cornerInset is the size of the notch cut from each card corner.
const cornerInset = 3

// cardTemplate holds the pieces the card frame is assembled from.
// The top and bottom strips are sliced in two so the corners stay notched.
type cardTemplate struct {
	top1, top2       *Image
	lineBG           *Image
	bottom1, bottom2 *Image
	bar              *Image
	pix              *Image
}

func newCardTemplate(cfg LayoutConfig) (_ *cardTemplate, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	w, h := cfg.CardWidth, cfg.CardHeight()
	tmpl := imaging.New(w, h, color.White)
	p, l := cfg.Padding, cfg.LineHeight
	crop := func(r image.Rectangle) (*Image, error) {
		return newImageFromRaster(imaging.Crop(tmpl, r))
	}
	t := &cardTemplate{}
	if t.top1, err = crop(image.Rect(cornerInset, 0, w-cornerInset, p)); err != nil {
		return nil, err
	}
	if t.top2, err = crop(image.Rect(0, cornerInset, w, p)); err != nil {
		return nil, err
	}
	if t.lineBG, err = crop(image.Rect(0, p, w, p+l)); err != nil {
		return nil, err
	}
	if t.bottom1, err = crop(image.Rect(cornerInset, p+l, w-cornerInset, h)); err != nil {
		return nil, err
	}
	if t.bottom2, err = crop(image.Rect(0, p+l, w, h-cornerInset)); err != nil {
		return nil, err
	}
	if t.bar, err = newImageFromRaster(imaging.New(4, l, color.White)); err != nil {
		return nil, err
	}
	if t.pix, err = newImageFromRaster(imaging.New(1, 1, color.White)); err != nil {
		return nil, err
	}
	return t, nil
}

// Header is the author and metadata shown under the text.
type Header struct {
	Metadata        string
	ScreenName      string
	Name            string
	BackgroundColor string
}

// Layout assembles the card from rendered lines and header data.
type Layout struct {
	cfg        LayoutConfig
	renderer   TextRenderer
	compositor *Compositor
	tmpl       *cardTemplate
	logger     *slog.Logger
}

func NewLayout(cfg LayoutConfig, r TextRenderer, logger *slog.Logger) (_ *Layout, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tmpl, err := newCardTemplate(cfg)
	if err != nil {
		return nil, err
	}
	return &Layout{
		cfg:        cfg,
		renderer:   r,
		compositor: NewCompositor(cfg.BatchSize),
		tmpl:       tmpl,
		logger:     logger,
	}, nil
}

// Colorizer returns a Colorizer sized for this layout's lines.
func (l *Layout) Colorizer(rules []ColorRule) *Colorizer {
	return NewColorizer(l.renderer, l.compositor, rules, l.tmpl.bar, l.cfg.LineBoxWidth(), l.cfg.LineHeight)
}

// BuildCard composes the final card. The picture handles are awaited here, after all text is rendered.
func (l *Layout) BuildCard(ctx context.Context, lines []*Image, header Header, bg, profile *Deferred) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	metadata, err := l.renderer.RenderText(ctx, metadataStyle.with(header.Metadata))
	if err != nil {
		return nil, err
	}
	screenName, err := l.renderer.RenderText(ctx, handleStyle.with(header.ScreenName))
	if err != nil {
		return nil, err
	}
	var name *Image
	if header.Name != "" && header.Name != header.ScreenName {
		name, err = l.renderer.RenderText(ctx, nameStyle.with(header.Name))
		if err != nil {
			return nil, err
		}
	}

	bgImg, err := bg.Wait(ctx)
	if err != nil {
		l.logger.Warn("background download failed", slog.String("error", err.Error()))
		bgImg = nil
	}
	profileImg, err := profile.Wait(ctx)
	if err != nil {
		l.logger.Warn("profile picture download failed", slog.String("error", err.Error()))
		profileImg = nil
	}
	if profileImg != nil {
		profileImg, err = l.fitProfile(profileImg)
		if err != nil {
			l.logger.Warn("profile picture could not be resized", slog.String("error", err.Error()))
			profileImg = nil
		}
	}

	width, height := l.cfg.CanvasSize(len(lines))
	fragments := l.fragments(lines, metadata, screenName, name, bgImg, profileImg, width, height)
	return l.compositor.Compose(ctx, fragments, width, height, l.backgroundColor(header.BackgroundColor))
}

// fragments lists everything on the card in drawing order.
func (l *Layout) fragments(lines []*Image, metadata, screenName, name, bg, profile *Image, width, height int) []Fragment {
	m, p, lh := l.cfg.Margin, l.cfg.Padding, l.cfg.LineHeight
	footerY := m + p + len(lines)*lh
	textX := m + p
	nameX := textX + l.cfg.ProfileSize + 20

	var fs []Fragment
	if bg != nil {
		for x := 0; x < width; x += bg.Width() {
			for y := 0; y < height; y += bg.Height() {
				fs = append(fs, At(bg, x, y))
			}
		}
	}
	fs = append(fs,
		At(l.tmpl.top1, m+cornerInset, m),
		At(l.tmpl.top2, m, m+cornerInset),
	)
	for n := range lines {
		fs = append(fs, At(l.tmpl.lineBG, m, m+p+n*lh))
	}
	fs = append(fs,
		At(l.tmpl.bottom1, m+cornerInset, footerY),
		At(l.tmpl.bottom2, m, footerY),
	)
	for n, line := range lines {
		fs = append(fs, At(line, textX, m+p+n*lh))
	}
	fs = append(fs,
		At(metadata, textX, footerY+3),
		At(screenName, nameX, footerY+49),
	)
	if name != nil {
		fs = append(fs, At(name, nameX, footerY+49+26))
	}
	if profile != nil {
		fs = append(fs, At(profile, textX, footerY+48))
	}
	return append(fs, l.cornerDust(width, height)...)
}

// dust softens the notched card corners. Offsets are relative to the corner, x/y growing inwards.
var dust = []struct {
	x, y    int
	opacity float64
}{
	{1, 1, .8}, {2, 0, .5}, {0, 2, .5}, {2, 1, 1.}, {2, 2, 1.}, {1, 2, 1.},
}

func (l *Layout) cornerDust(width, height int) []Fragment {
	m := l.cfg.Margin
	corners := []struct {
		fx, fy func(int) int
	}{
		{func(x int) int { return m + x }, func(y int) int { return m + y }},
		{func(x int) int { return width - m - x - 1 }, func(y int) int { return m + y }},
		{func(x int) int { return m + x }, func(y int) int { return height - m - y - 1 }},
		{func(x int) int { return width - m - x - 1 }, func(y int) int { return height - m - y - 1 }},
	}
	fs := make([]Fragment, 0, len(corners)*len(dust))
	for _, c := range corners {
		for _, d := range dust {
			fs = append(fs, Fragment{
				Image:   l.tmpl.pix,
				X:       c.fx(d.x),
				Y:       c.fy(d.y),
				Opacity: d.opacity,
				Anchor:  AnchorTopLeft,
			})
		}
	}
	return fs
}

func (l *Layout) fitProfile(img *Image) (*Image, error) {
	size := l.cfg.ProfileSize
	if img.Width() == size && img.Height() == size {
		return img, nil
	}
	src, err := img.Image()
	if err != nil {
		return nil, err
	}
	return newImageFromRaster(imaging.Resize(src, size, size, imaging.Lanczos))
}

// backgroundColor parses the author's hex background color, falling back to the configured default.
func (l *Layout) backgroundColor(hex string) color.NRGBA {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return l.cfg.DefaultBackground
	}
	c, err := ParseHexColor(hex)
	if err != nil {
		return l.cfg.DefaultBackground
	}
	return c
}

// Scale resizes img to width, clamped between minWidth and the natural width, keeping the aspect ratio.
func Scale(img *Image, width, minWidth int) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	w := min(max(width, minWidth), img.Width())
	if w == img.Width() {
		return img, nil
	}
	src, err := img.Image()
	if err != nil {
		return nil, err
	}
	return newImageFromRaster(imaging.Resize(src, w, 0, imaging.Lanczos))
}
