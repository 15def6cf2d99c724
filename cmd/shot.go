/*
Copyright © 2025 Ken'ichiro Oyama <k1lowxb@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/k1LoW/errors"
	"github.com/k1LoW/postshot"
	"github.com/k1LoW/postshot/config"
)

// newShot builds a Shot from cfg.
func newShot(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *postshot.Shot, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	renderer, err := newRenderer(cfg, timeout, logger)
	if err != nil {
		return nil, err
	}
	apiClient, err := postshot.AuthorizedClient(ctx, credentials(cfg), cfg.RetryMax, logger)
	if err != nil {
		return nil, err
	}
	layout, err := layoutConfig(cfg)
	if err != nil {
		return nil, err
	}
	rules, err := colorRules(cfg)
	if err != nil {
		return nil, err
	}
	assets := postshot.NewAssetFetcher(
		postshot.NewHTTPClient(nil, cfg.RetryMax, logger),
		timeout,
		postshot.NewMemoryCache(cfg.CacheSize, postshot.DefaultAssetTTL),
		logger,
	)
	return postshot.New(
		postshot.WithRenderer(renderer),
		postshot.WithPostClient(postshot.NewPostClient(cfg.API.BaseURL, apiClient, timeout, logger)),
		postshot.WithAssetFetcher(assets),
		postshot.WithCache(postshot.NewMemoryCache(cfg.CacheSize, postshot.DefaultCardTTL)),
		postshot.WithLayoutConfig(layout),
		postshot.WithColorRules(rules),
		postshot.WithLocation(loc),
		postshot.WithLogger(logger),
	)
}

func newRenderer(cfg *config.Config, timeout time.Duration, logger *slog.Logger) (postshot.TextRenderer, error) {
	switch cfg.Oracle.Type {
	case "chart":
		return postshot.NewChartRenderer(cfg.Oracle.URL, postshot.NewHTTPClient(nil, cfg.RetryMax, logger), timeout, logger), nil
	case "local":
		r, err := postshot.NewLocalRenderer(cfg.Oracle.MaxWidth)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "command":
		if cfg.Oracle.Command == "" {
			return nil, fmt.Errorf("oracle.command is required for the command oracle")
		}
		return postshot.NewCommandRenderer(cfg.Oracle.Command, timeout), nil
	default:
		return nil, fmt.Errorf("unknown oracle type: %s", cfg.Oracle.Type)
	}
}

func credentials(cfg *config.Config) postshot.Credentials {
	return postshot.Credentials{
		ClientID:     cfg.API.ClientID,
		ClientSecret: cfg.API.ClientSecret,
		TokenURL:     cfg.API.TokenURL,
		Scopes:       cfg.API.Scopes,
		Token:        cfg.API.Token,
		TokenFile:    cfg.API.TokenFile,
	}
}

// layoutConfig applies the configured overrides to the default geometry.
func layoutConfig(cfg *config.Config) (postshot.LayoutConfig, error) {
	lc := postshot.DefaultLayoutConfig()
	o := cfg.Layout
	if o.Margin != nil {
		lc.Margin = *o.Margin
	}
	if o.Padding != nil {
		lc.Padding = *o.Padding
	}
	if o.LineHeight > 0 {
		lc.LineHeight = o.LineHeight
	}
	if o.CardWidth > 0 {
		lc.CardWidth = o.CardWidth
	}
	if o.MinWidth > 0 {
		lc.MinWidth = o.MinWidth
	}
	if o.DefaultBackground != "" {
		c, err := postshot.ParseHexColor(o.DefaultBackground)
		if err != nil {
			return lc, fmt.Errorf("invalid layout.defaultBackground %q: %w", o.DefaultBackground, err)
		}
		lc.DefaultBackground = c
	}
	return lc, nil
}

// colorRules compiles the configured rules. Without any, the default rules apply.
func colorRules(cfg *config.Config) ([]postshot.ColorRule, error) {
	if len(cfg.ColorRules) == 0 {
		return postshot.DefaultColorRules, nil
	}
	rules := make([]postshot.ColorRule, 0, len(cfg.ColorRules))
	for i, r := range cfg.ColorRules {
		rule, err := postshot.NewColorRule(r.Pattern, r.If, r.Color)
		if err != nil {
			return nil, fmt.Errorf("invalid colorRules[%d]: %w", i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
