package postshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/k1LoW/errors"
	"golang.org/x/sync/singleflight"
)

const AppName = "postshot"

// Shot renders post cards.
type Shot struct {
	renderer TextRenderer
	posts    *PostClient
	assets   *AssetFetcher
	cache    Cache
	cfg      LayoutConfig
	rules    []ColorRule
	location *time.Location
	logger   *slog.Logger

	breaker *LineBreaker
	layout  *Layout
	group   singleflight.Group
}

type Option func(*Shot) error

func WithRenderer(r TextRenderer) Option {
	return func(s *Shot) error {
		s.renderer = r
		return nil
	}
}

func WithPostClient(c *PostClient) Option {
	return func(s *Shot) error {
		s.posts = c
		return nil
	}
}

func WithAssetFetcher(f *AssetFetcher) Option {
	return func(s *Shot) error {
		s.assets = f
		return nil
	}
}

func WithCache(c Cache) Option {
	return func(s *Shot) error {
		s.cache = c
		return nil
	}
}

func WithLayoutConfig(cfg LayoutConfig) Option {
	return func(s *Shot) error {
		if cfg.Margin < 0 || cfg.Padding < 0 || cfg.LineHeight <= 0 {
			return fmt.Errorf("invalid layout: margin=%d padding=%d lineHeight=%d", cfg.Margin, cfg.Padding, cfg.LineHeight)
		}
		if cfg.MaxLineWidth() <= 0 {
			return fmt.Errorf("invalid layout: card width %d leaves no room for text", cfg.CardWidth)
		}
		s.cfg = cfg
		return nil
	}
}

func WithColorRules(rules []ColorRule) Option {
	return func(s *Shot) error {
		s.rules = rules
		return nil
	}
}

// WithLocation sets the time zone used for the post date.
func WithLocation(loc *time.Location) Option {
	return func(s *Shot) error {
		s.location = loc
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Shot) error {
		s.logger = logger
		return nil
	}
}

// New creates a Shot. A TextRenderer and a PostClient are required.
func New(opts ...Option) (_ *Shot, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	s := &Shot{
		cfg:      DefaultLayoutConfig(),
		rules:    DefaultColorRules,
		location: time.UTC,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.renderer == nil {
		return nil, fmt.Errorf("text renderer is required")
	}
	if s.posts == nil {
		return nil, fmt.Errorf("post client is required")
	}
	if s.assets == nil {
		s.assets = NewAssetFetcher(nil, 0, nil, s.logger)
	}
	if s.cache == nil {
		s.cache = noCache{}
	}
	s.breaker = NewLineBreaker(s.renderer, s.logger)
	s.layout, err = NewLayout(s.cfg, s.renderer, s.logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// LayoutConfig returns the card geometry in use.
func (s *Shot) LayoutConfig() LayoutConfig {
	return s.cfg
}

// Render returns the card for postID at its natural width.
// Cards are cached; concurrent calls for the same post share one rendering.
func (s *Shot) Render(ctx context.Context, postID string) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if b, ok := s.cache.Load(postID); ok {
		s.logger.Debug("card cache hit", slog.String("post_id", postID))
		return NewImageFromBytes(b)
	}
	v, err, shared := s.group.Do(postID, func() (any, error) {
		// Callers joining this rendering must not fail because the first caller went away.
		// Every outbound call carries its own deadline.
		img, err := s.render(context.WithoutCancel(ctx), postID)
		if err != nil {
			return nil, err
		}
		s.cache.Store(postID, img.Bytes())
		return img.Bytes(), nil
	})
	if err != nil {
		s.logger.Debug("card rendering failed", slog.String("post_id", postID), slog.String("error", err.Error()))
		return nil, err
	}
	if shared {
		s.logger.Debug("shared card rendering", slog.String("post_id", postID))
	}
	return NewImageFromBytes(v.([]byte))
}

// NaturalWidth requests a card at the width it is rendered at.
const NaturalWidth = -1

// RenderWidth renders the card and scales it to width, clamped to [MinWidth, natural width].
// NaturalWidth (or any negative width) skips scaling. Scaled cards are not cached.
func (s *Shot) RenderWidth(ctx context.Context, postID string, width int) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	img, err := s.Render(ctx, postID)
	if err != nil {
		return nil, err
	}
	if width < 0 {
		return img, nil
	}
	return Scale(img, width, s.cfg.MinWidth)
}

func (s *Shot) render(ctx context.Context, postID string) (*Image, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}

	// Pictures download while the text is laid out.
	bg := s.assets.Fetch(ctx, post.User.BackgroundImageURL())
	profile := s.assets.Fetch(ctx, post.User.ProfileImageURL)

	lines, err := s.breaker.BreakLines(ctx, Tokenize(post.Text), s.cfg.MaxLineWidth())
	if err != nil {
		return nil, err
	}
	colorizer := s.layout.Colorizer(s.rules)
	images := make([]*Image, 0, len(lines))
	for _, line := range lines {
		img, err := colorizer.Colorize(ctx, line)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}

	header := Header{
		Metadata:        post.Metadata(s.location),
		ScreenName:      post.User.ScreenName,
		Name:            post.User.Name,
		BackgroundColor: post.User.ProfileBackgroundColor,
	}
	img, err := s.layout.BuildCard(ctx, images, header, bg, profile)
	if err != nil {
		return nil, err
	}
	s.logger.Info("rendered card", slog.String("post_id", postID), slog.Int("lines", len(lines)))
	return img, nil
}

// ErrorURL returns an oracle URL rendering the error message for err, if the oracle is addressable.
func (s *Shot) ErrorURL(err error) (string, bool) {
	u, ok := s.renderer.(URLRenderer)
	if !ok {
		return "", false
	}
	return u.TextURL(errorStyle.with(errorText(err))), true
}

// ErrorImage renders the error message for err.
func (s *Shot) ErrorImage(ctx context.Context, err error) (*Image, error) {
	return s.renderer.RenderText(ctx, errorStyle.with(errorText(err)))
}

func errorText(err error) string {
	return fmt.Sprintf("%s: %s", AppName, ErrorMessage(err))
}
