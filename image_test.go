package postshot

import (
	"image/color"
	"testing"
)

func TestNewImageFromBytes(t *testing.T) {
	src := solidImage(t, 12, 7, color.White)
	img, err := NewImageFromBytes(src.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if img.Width() != 12 || img.Height() != 7 || img.MIMEType() != MIMETypeImagePNG {
		t.Errorf("got %dx%d %s, want 12x7 image/png", img.Width(), img.Height(), img.MIMEType())
	}
	if _, err := NewImageFromBytes([]byte("not an image")); err == nil {
		t.Error("expected error for invalid data")
	}
}

func TestEquivalent(t *testing.T) {
	white := solidImage(t, 64, 64, color.White)
	white2 := solidImage(t, 64, 64, color.White)
	black := solidImage(t, 64, 64, color.Black)
	small := solidImage(t, 32, 32, color.White)
	tests := []struct {
		name string
		a, b *Image
		want bool
	}{
		{"same bytes", white, white2, true},
		{"different size", white, small, false},
		{"nil", white, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equivalent(tt.b); got != tt.want {
				t.Errorf("Equivalent() = %v, want %v", got, tt.want)
			}
		})
	}
	// uniform images share a perceptual hash, so only the checksum tells them apart
	if white.Checksum() == black.Checksum() {
		t.Error("different images have the same checksum")
	}
}
