package postshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/k1LoW/errors"
)

// TextRequest describes one call to the text rendering oracle.
// Colors are 6-digit hex strings without '#'.
type TextRequest struct {
	Text  string
	Size  int
	Color string
	// Fill outlines the glyphs. Empty means no outline.
	Fill       string
	Background string
}

// TextRenderer renders a run of text into an image.
// Implementations return ErrRejected when the text cannot be rendered within their output width.
type TextRenderer interface {
	RenderText(ctx context.Context, req TextRequest) (*Image, error)
}

// URLRenderer is implemented by oracles that can be addressed directly by a client.
type URLRenderer interface {
	TextURL(req TextRequest) string
}

const DefaultChartURL = "https://chart.apis.google.com/chart"

// Text styles used on the card.
var (
	lineStyle     = TextRequest{Size: 23, Color: "000000", Fill: "f7f7f7", Background: "ffffff"}
	metadataStyle = TextRequest{Size: 10, Color: "a0a0a0", Fill: "ffffff", Background: "ffffff"}
	handleStyle   = TextRequest{Size: 24, Color: "0000ff", Fill: "ffffff", Background: "ffffff"}
	nameStyle     = TextRequest{Size: 13, Color: "000000", Fill: "ffffff", Background: "ffffff"}
	errorStyle    = TextRequest{Size: 13, Color: "a00000", Fill: "ffffff", Background: "ffffff"}
)

func (r TextRequest) with(text string) TextRequest {
	r.Text = text
	return r
}

func (r TextRequest) withColor(c string) TextRequest {
	r.Color = c
	return r
}

// chartRenderer talks to a chart-style HTTP text oracle.
type chartRenderer struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

// NewChartRenderer returns a TextRenderer backed by the HTTP oracle at baseURL.
func NewChartRenderer(baseURL string, client *http.Client, timeout time.Duration, logger *slog.Logger) *chartRenderer {
	if baseURL == "" {
		baseURL = DefaultChartURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &chartRenderer{
		baseURL: baseURL,
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// TextURL returns the oracle URL that renders req.
// Literal '|' is the oracle's parameter delimiter so it is replaced with a broken bar.
func (c *chartRenderer) TextURL(req TextRequest) string {
	text := strings.ReplaceAll(req.Text, "|", "¦")
	return fmt.Sprintf("%s?chst=d_text_outline&chld=%s|%d|l|%s|_|%s&chf=bg,s,%s",
		c.baseURL, req.Color, req.Size, req.Fill, url.QueryEscape(text), req.Background)
}

func (c *chartRenderer) RenderText(ctx context.Context, req TextRequest) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	u := c.TextURL(req)
	c.logger.Debug("render oracle request", slog.String("url", u))
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create render request: %w", err)
	}
	hreq.Header.Set("User-Agent", userAgent)
	res, err := c.client.Do(hreq)
	if err != nil {
		return nil, &RenderOracleError{Reason: err.Error()}
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &RenderOracleError{Reason: err.Error()}
	}
	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusBadRequest:
		// Usually the text was wider than the oracle allows.
		c.logger.Debug("render oracle rejected request", slog.Int("status", res.StatusCode), slog.String("body", string(b)))
		return nil, ErrRejected
	default:
		c.logger.Debug("render oracle error", slog.Int("status", res.StatusCode), slog.String("body", string(b)))
		return nil, &RenderOracleError{Status: res.StatusCode}
	}
	img, err := NewImageFromBytes(b)
	if err != nil {
		return nil, &RenderOracleError{Status: res.StatusCode, Reason: err.Error()}
	}
	return img, nil
}
