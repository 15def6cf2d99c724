package postshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/k1LoW/errors"
)

const DefaultAPIBaseURL = "https://api.twitter.com/1.1"

// Post is the subset of the post API response that is rendered.
type Post struct {
	Text                string `json:"text"`
	User                User   `json:"user"`
	CreatedAt           string `json:"created_at"`
	Source              string `json:"source"`
	Place               *Place `json:"place"`
	InReplyToScreenName string `json:"in_reply_to_screen_name"`
}

type User struct {
	ScreenName                string `json:"screen_name"`
	Name                      string `json:"name"`
	ProfileImageURL           string `json:"profile_image_url"`
	ProfileBackgroundImageURL string `json:"profile_background_image_url"`
	ProfileUseBackgroundImage bool   `json:"profile_use_background_image"`
	ProfileBackgroundColor    string `json:"profile_background_color"`
}

type Place struct {
	FullName string `json:"full_name"`
}

// BackgroundImageURL returns the background picture to tile, or "" when the author does not use one.
func (u User) BackgroundImageURL() string {
	if !u.ProfileUseBackgroundImage {
		return ""
	}
	return u.ProfileBackgroundImageURL
}

// PostClient fetches posts from the post API.
type PostClient struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewPostClient(baseURL string, client *http.Client, timeout time.Duration, logger *slog.Logger) *PostClient {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		timeout: timeout,
		logger:  logger,
	}
}

// Get fetches the post with id.
func (c *PostClient) Get(ctx context.Context, id string) (_ *Post, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	u := fmt.Sprintf("%s/statuses/show/%s.json", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create post request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	res, err := c.client.Do(req)
	if err != nil {
		return nil, &UpstreamAPIError{Message: err.Error()}
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &UpstreamAPIError{Status: res.StatusCode, Message: err.Error()}
	}
	if res.StatusCode != http.StatusOK {
		msg := "-"
		var e struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(b, &e); err != nil {
			c.logger.Debug("failed to parse error response", slog.String("error", err.Error()))
		} else if e.Error != "" {
			msg = e.Error
		}
		return nil, &UpstreamAPIError{Status: res.StatusCode, Message: msg}
	}
	p := &Post{}
	if err := json.Unmarshal(b, p); err != nil {
		return nil, &UpstreamAPIError{Status: res.StatusCode, Message: fmt.Sprintf("malformed post JSON: %v", err)}
	}
	c.logger.Debug("got post", slog.String("id", id), slog.String("text", p.Text))
	if strings.TrimSpace(p.Text) == "" {
		return nil, &NoContentError{PostID: id}
	}
	return p, nil
}
