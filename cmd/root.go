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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/k1LoW/errors"
	"github.com/k1LoW/postshot/config"
	"github.com/k1LoW/postshot/version"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
)

var (
	profile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:          "postshot",
	Short:        "postshot renders posts as card images",
	Long:         `postshot renders posts as card images.`,
	SilenceUsage: true,
	Version:      fmt.Sprintf("%s (rev:%s)", version.Version, version.Revision),
}

type errorData struct {
	StackTraces any       `json:"stack_traces"`
	CreatedAt   time.Time `json:"created_at"`
	Version     string    `json:"version"`
	Revision    string    `json:"revision"`
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Write stack trace log to state directory
		d := &errorData{
			StackTraces: errors.StackTraces(err),
			CreatedAt:   time.Now(),
			Version:     version.Version,
			Revision:    version.Revision,
		}
		b, err := json.Marshal(d)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		} else {
			dumpPath := filepath.Join(config.StateHomePath(), "error.json")
			if err := os.MkdirAll(filepath.Dir(dumpPath), 0o700); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", filepath.Dir(dumpPath), err)
			} else if err := os.WriteFile(dumpPath, b, 0o600); err != nil {
				_, _ = fmt.Fprintf(os.Stderr, "failed to write error.json to %s: %v\n", dumpPath, err)
			}
		}
		os.Exit(1)
	}
}

// newLogger returns a logger writing to console and, when configured, to a JSON log file.
func newLogger(cfg *config.Config, console slog.Handler) (_ *slog.Logger, closer io.Closer, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	handlers := []slog.Handler{console}
	closer = io.NopCloser(nil)
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o700); err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
		closer = f
	}
	return slog.New(slogmulti.Fanout(handlers...)), closer, nil
}

func logLevel() slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "", "", "profile name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
