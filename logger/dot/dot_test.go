package dot

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/fatih/color"
)

func TestHandle(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	tests := []struct {
		name     string
		messages []string
		want     string
	}{
		{"rendered", []string{"rendered card", "rendered card"}, ".."},
		{"warning", []string{"background download failed", "rendered card"}, "*."},
		{"failure", []string{"rendered card", "failed to render card"}, ".!"},
		{"completed", []string{"rendered card", "render completed"}, ".\n"},
		{"ignored", []string{"request", "got post"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := new(bytes.Buffer)
			h := newHandler(slog.NewTextHandler(new(bytes.Buffer), nil), nil, out)
			logger := slog.New(h).With(slog.String("cmd", "render"))
			for _, m := range tt.messages {
				logger.Info(m)
			}
			if got := out.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
