package postshot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultAssetTTL is how long downloaded pictures are reused.
const DefaultAssetTTL = time.Hour

// Deferred is the pending result of an asset download.
// A nil *Deferred stands for an asset the post does not have.
type Deferred struct {
	url  string
	done chan struct{}
	img  *Image
	err  error
}

// Wait blocks until the download finishes or ctx is done.
func (d *Deferred) Wait(ctx context.Context) (*Image, error) {
	if d == nil {
		return nil, nil
	}
	select {
	case <-d.done:
		return d.img, d.err
	case <-ctx.Done():
		return nil, &AssetFetchWarning{URL: d.url, Err: ctx.Err()}
	}
}

func resolved(rawURL string, img *Image, err error) *Deferred {
	d := &Deferred{url: rawURL, done: make(chan struct{}), img: img, err: err}
	close(d.done)
	return d
}

// AssetFetcher downloads pictures in the background.
type AssetFetcher struct {
	client  *http.Client
	timeout time.Duration
	cache   Cache
	logger  *slog.Logger
	// allowPrivate disables the public URL check.
	allowPrivate bool
}

func NewAssetFetcher(client *http.Client, timeout time.Duration, cache Cache, logger *slog.Logger) *AssetFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if cache == nil {
		cache = noCache{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AssetFetcher{
		client:  client,
		timeout: timeout,
		cache:   cache,
		logger:  logger,
	}
}

// Fetch starts downloading rawURL and returns immediately.
// It returns nil when rawURL is empty.
func (f *AssetFetcher) Fetch(ctx context.Context, rawURL string) *Deferred {
	if rawURL == "" {
		return nil
	}
	if b, ok := f.cache.Load(rawURL); ok {
		img, err := NewImageFromBytes(b)
		if err == nil {
			return resolved(rawURL, img, nil)
		}
	}
	if !f.allowPrivate && !isPublicURL(rawURL) {
		return resolved(rawURL, nil, &AssetFetchWarning{URL: rawURL, Err: fmt.Errorf("not a public URL")})
	}
	d := &Deferred{url: rawURL, done: make(chan struct{})}
	f.logger.Debug("loading asset", slog.String("url", rawURL))
	go func() {
		defer close(d.done)
		d.img, d.err = f.fetch(ctx, rawURL)
	}()
	return d
}

func (f *AssetFetcher) fetch(ctx context.Context, rawURL string) (*Image, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &AssetFetchWarning{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	res, err := f.client.Do(req)
	if err != nil {
		return nil, &AssetFetchWarning{URL: rawURL, Err: err}
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, &AssetFetchWarning{URL: rawURL, Status: res.StatusCode}
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &AssetFetchWarning{URL: rawURL, Err: err}
	}
	img, err := NewImageFromBytes(b)
	if err != nil {
		return nil, &AssetFetchWarning{URL: rawURL, Status: res.StatusCode, Err: err}
	}
	f.cache.Store(rawURL, b)
	return img, nil
}

// isPublicURL checks whether a URL string is OK for direct public access.
// Since we only need to identify what appear to be public URLs, false negatives are acceptable.
func isPublicURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.User != nil || u.Port() != "" {
		return false
	}
	if ip := net.ParseIP(u.Host); ip != nil {
		return false
	}
	_, icann := publicsuffix.PublicSuffix(u.Host)
	return icann
}
