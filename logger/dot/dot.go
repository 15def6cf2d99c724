package dot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/k1LoW/errors"
	"github.com/mattn/go-colorable"
)

var (
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

var _ slog.Handler = (*dotHandler)(nil)

// dotHandler prints one mark per rendered card instead of log lines.
type dotHandler struct {
	handler slog.Handler
	spinner *spinner.Spinner
	stdout  io.Writer
	prefix  *[]byte
}

func New(h slog.Handler) (_ *dotHandler, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()

	stdout := colorable.NewColorableStdout()
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(stdout))
	if err := s.Color("yellow"); err != nil {
		return nil, err
	}
	s.Start()
	s.Disable()
	return newHandler(h, s, stdout), nil
}

func newHandler(h slog.Handler, s *spinner.Spinner, stdout io.Writer) *dotHandler {
	return &dotHandler{
		handler: h,
		spinner: s,
		stdout:  stdout,
		prefix:  &[]byte{},
	}
}

func (h *dotHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *dotHandler) Handle(ctx context.Context, r slog.Record) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()

	if strings.HasPrefix(r.Message, "retrying") {
		if h.spinner != nil && !h.spinner.Enabled() {
			h.spinner.Enable()
		}
		return nil
	}
	if h.spinner != nil && h.spinner.Enabled() {
		h.spinner.Disable()
		_, _ = h.stdout.Write(*h.prefix)
	}
	switch {
	case r.Message == "rendered card":
		return h.write([]byte(yellow(".")))
	case strings.Contains(r.Message, "download failed"), strings.Contains(r.Message, "could not be resized"):
		return h.write([]byte(cyan("*")))
	case strings.Contains(r.Message, "failed to"):
		return h.write([]byte(red("!")))
	case r.Message == "render completed":
		_, _ = h.stdout.Write([]byte("\n"))
		*h.prefix = (*h.prefix)[:0]
	}
	return nil
}

func (h *dotHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dotHandler{handler: h.handler.WithAttrs(attrs), spinner: h.spinner, stdout: h.stdout, prefix: h.prefix}
}

func (h *dotHandler) WithGroup(name string) slog.Handler {
	return &dotHandler{handler: h.handler.WithGroup(name), spinner: h.spinner, stdout: h.stdout, prefix: h.prefix}
}

func (h *dotHandler) write(s []byte) (err error) {
	defer func() {
		err = errors.WithStack(err)
	}()

	_, err = h.stdout.Write(s)
	if err != nil {
		return err
	}
	*h.prefix = append(*h.prefix, s...)
	return nil
}
