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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/k1LoW/errors"
	"github.com/k1LoW/postshot"
	"github.com/k1LoW/postshot/config"
	"github.com/k1LoW/postshot/logger/dot"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
)

var (
	out   string
	width int
	open  bool
)

var renderCmd = &cobra.Command{
	Use:   "render [POST_ID...]",
	Short: "render posts to PNG files",
	Long:  `render posts to PNG files.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.WithStack(err)
		}()
		ctx := cmd.Context()
		cfg, err := config.Load(profile)
		if err != nil {
			return err
		}
		console, err := dot.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel()}))
		if err != nil {
			return err
		}
		logger, closer, err := newLogger(cfg, console)
		if err != nil {
			return err
		}
		defer closer.Close()

		s, err := newShot(ctx, cfg, logger)
		if err != nil {
			return err
		}
		var (
			failed  []string
			written []string
		)
		w := postshot.NaturalWidth
		if cmd.Flags().Changed("width") {
			w = width
		}
		for _, id := range args {
			img, err := s.RenderWidth(ctx, id, w)
			if err != nil {
				logger.Error("failed to render card", slog.String("post_id", id), slog.String("error", err.Error()))
				failed = append(failed, fmt.Sprintf("%s: %v", id, err))
				continue
			}
			p := outputPath(out, id, width, len(args) > 1)
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(p, img.Bytes(), 0o644); err != nil {
				return err
			}
			written = append(written, p)
		}
		logger.Info("render completed", slog.Int("written", len(written)), slog.Int("failed", len(failed)))
		for _, p := range written {
			cmd.Println(p)
			if open {
				if err := browser.OpenFile(p); err != nil {
					return err
				}
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("failed to render %d post(s):\n%s", len(failed), strings.Join(failed, "\n"))
		}
		return nil
	},
}

// outputPath returns where the card for id is written.
// With several posts, or when out is empty or a directory, files are named after the post.
func outputPath(out, id string, width int, multiple bool) string {
	name := id + ".png"
	if width > 0 {
		name = fmt.Sprintf("%s-%d.png", id, width)
	}
	if out == "" {
		return name
	}
	if multiple || strings.HasSuffix(out, string(filepath.Separator)) {
		return filepath.Join(out, name)
	}
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		return filepath.Join(out, name)
	}
	return out
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&out, "out", "o", "", "output file or directory")
	renderCmd.Flags().IntVarP(&width, "width", "", 0, "scale the card to this width (at least the minimum card width)")
	renderCmd.Flags().BoolVarP(&open, "open", "", false, "open the rendered card")
}
