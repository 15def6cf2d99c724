package postshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/k1LoW/errors"
	"github.com/k1LoW/postshot/version"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

var userAgent = "k1LoW-postshot/" + version.Version + " (+https://github.com/k1LoW/postshot)"

// Credentials authorize requests to the post API.
// Client credentials take precedence over a bearer token, which takes precedence over a token file.
type Credentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	Token        string
	TokenFile    string
}

// NewHTTPClient wraps base with retries. retryMax 0 disables retrying.
func NewHTTPClient(base *http.Client, retryMax int, logger *slog.Logger) *http.Client {
	retryClient := retryablehttp.NewClient()
	if base != nil {
		retryClient.HTTPClient = base
	}
	retryClient.RetryMax = retryMax
	retryClient.Logger = newAPILogger(logger)
	// Let callers see the real status code instead of a "giving up" error.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	return retryClient.StandardClient()
}

// AuthorizedClient returns a client that adds the post API authorization to each request.
func AuthorizedClient(ctx context.Context, creds Credentials, retryMax int, logger *slog.Logger) (_ *http.Client, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	// oauth2 uses the client in the context to fetch tokens.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, NewHTTPClient(nil, retryMax, logger))
	switch {
	case creds.ClientID != "" && creds.ClientSecret != "":
		if creds.TokenURL == "" {
			return nil, fmt.Errorf("token URL is required for client credentials")
		}
		cfg := &clientcredentials.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			TokenURL:     creds.TokenURL,
			Scopes:       creds.Scopes,
		}
		return NewHTTPClient(cfg.Client(ctx), retryMax, logger), nil
	case creds.Token != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token, TokenType: "Bearer"})
		return NewHTTPClient(oauth2.NewClient(ctx, ts), retryMax, logger), nil
	case creds.TokenFile != "":
		token, err := tokenFromFile(creds.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read token file %s: %w", creds.TokenFile, err)
		}
		return NewHTTPClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(token)), retryMax, logger), nil
	default:
		return nil, fmt.Errorf("no credentials configured")
	}
}

func tokenFromFile(file string) (_ *oauth2.Token, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token file has no access_token")
	}
	return token, nil
}

var _ retryablehttp.LeveledLogger = (*apiLogger)(nil)

type apiLogger struct {
	l *slog.Logger
}

func (l *apiLogger) Error(msg string, keysAndValues ...any) {
	l.l.Error(msg, append([]any{slog.String("original_log_level", "error")}, keysAndValues...)...)
}
func (l *apiLogger) Info(msg string, keysAndValues ...any) {
	l.l.Info(msg, append([]any{slog.String("original_log_level", "info")}, keysAndValues...)...)
}
func (l *apiLogger) Debug(msg string, keysAndValues ...any) {
	if strings.HasPrefix(msg, "retrying") {
		// Surface retries at info level so the console handler can show a spinner.
		l.l.Info(msg, append([]any{slog.String("original_log_level", "debug")}, keysAndValues...)...)
		return
	}
	l.l.Debug(msg, append([]any{slog.String("original_log_level", "debug")}, keysAndValues...)...)
}
func (l *apiLogger) Warn(msg string, keysAndValues ...any) {
	l.l.Warn(msg, append([]any{slog.String("original_log_level", "warn")}, keysAndValues...)...)
}

func newAPILogger(l *slog.Logger) retryablehttp.LeveledLogger {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	return &apiLogger{
		l: l.WithGroup("api"),
	}
}
