package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"strconv"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	padding         = 2
	defaultMaxWidth = 1000
	exitRejected    = 2
)

var errTooWide = fmt.Errorf("text too wide")

func main() {
	if err := _main(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		if err == errTooWide {
			os.Exit(exitRejected)
		}
		os.Exit(1)
	}
}

func _main() error {
	stdin, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	face := basicfont.Face7x13

	maxWidth := defaultMaxWidth
	if v := os.Getenv("TXT2IMG_MAX_WIDTH"); v != "" {
		maxWidth, err = strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TXT2IMG_MAX_WIDTH: %w", err)
		}
	}

	imgWidth := utf8.RuneCount(stdin)*7 + 2*padding
	if imgWidth > maxWidth {
		return errTooWide
	}
	imgHeight := face.Metrics().Height.Ceil() + 2*padding

	bg, err := hexColor(os.Getenv("POSTSHOT_TEXT_FILL"), color.White)
	if err != nil {
		return err
	}
	fg, err := hexColor(os.Getenv("POSTSHOT_TEXT_COLOR"), color.Black)
	if err != nil {
		return err
	}

	img := image.NewRGBA(image.Rect(0, 0, imgWidth, imgHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
	}
	d.Dot = fixed.Point26_6{
		X: fixed.I(padding),
		Y: fixed.I(padding + face.Metrics().Ascent.Ceil()),
	}
	d.DrawBytes(stdin)

	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if _, err := os.Stdout.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func hexColor(s string, def color.Color) (color.Color, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return nil, fmt.Errorf("invalid color: %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
