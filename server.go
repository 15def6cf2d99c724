package postshot

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/google/uuid"
	"github.com/k1LoW/errors"
)

// cardPathRe matches "<id>.png" and "<id>-<width>.png".
var cardPathRe = regexp.MustCompile(`^(\d+)(?:-(\d+))?\.png$`)

// parseCardPath extracts the post id and the requested width from the last path segment.
// The width is NaturalWidth when the segment carries none. Widths too large for an int saturate.
func parseCardPath(name string) (string, int, error) {
	m := cardPathRe.FindStringSubmatch(name)
	if m == nil {
		return "", 0, fmt.Errorf("invalid card path: %s", name)
	}
	if m[2] == "" {
		return m[1], NaturalWidth, nil
	}
	width, err := strconv.Atoi(m[2])
	if err != nil {
		if !errors.Is(err, strconv.ErrRange) {
			return "", 0, fmt.Errorf("invalid width: %s", m[2])
		}
		width = math.MaxInt
	}
	return m[1], width, nil
}

// Server serves rendered cards over HTTP.
type Server struct {
	shot   atomic.Pointer[Shot]
	maxAge time.Duration
	logger *slog.Logger
}

func NewServer(s *Shot, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{
		maxAge: DefaultCardTTL,
		logger: logger,
	}
	srv.shot.Store(s)
	return srv
}

// Swap replaces the Shot used for new requests.
func (srv *Server) Swap(s *Shot) {
	srv.shot.Store(s)
}

// Handler returns the HTTP handler with access logging.
func (srv *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /{name}", srv.handleCard)
	return srv.accessLog(mux)
}

func (srv *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	id, width, err := parseCardPath(r.PathValue("name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	shot := srv.shot.Load()
	img, err := shot.RenderWidth(r.Context(), id, width)
	if err != nil {
		srv.renderError(w, r, shot, err)
		return
	}
	w.Header().Set("Content-Type", string(MIMETypeImagePNG))
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(srv.maxAge.Seconds())))
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Bytes())))
	_, _ = w.Write(img.Bytes())
}

// renderError answers with an image describing err so that clients always receive image/png.
func (srv *Server) renderError(w http.ResponseWriter, r *http.Request, shot *Shot, err error) {
	if IsHandled(err) {
		srv.logger.Warn("failed to render card", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	} else {
		srv.logger.Error("failed to render card", slog.String("path", r.URL.Path), slog.String("error", fmt.Sprintf("%+v", err)))
	}
	w.Header().Set("Cache-Control", "no-store")
	if u, ok := shot.ErrorURL(err); ok {
		http.Redirect(w, r, u, http.StatusFound)
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 10*time.Second)
	defer cancel()
	img, rerr := shot.ErrorImage(ctx, err)
	if rerr != nil {
		srv.logger.Error("failed to render error image", slog.String("error", rerr.Error()))
		http.Error(w, ErrorMessage(err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", string(MIMETypeImagePNG))
	_, _ = w.Write(img.Bytes())
}

func (srv *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		w.Header().Set("X-Request-Id", reqID)
		m := httpsnoop.CaptureMetrics(next, w, r)
		srv.logger.Info("request",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", m.Code),
			slog.Int64("bytes", m.Written),
			slog.Duration("duration", m.Duration),
		)
	})
}
