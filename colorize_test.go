package postshot

import (
	"context"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSegment(t *testing.T) {
	tokens := []string{"hi", "#go", "@gopher", "and", "https://go.dev", "bye"}
	got := segment(tokens, DefaultColorRules)
	want := []colorRun{
		{Color: "", Tokens: []string{"hi"}},
		{Color: "0000ff", Tokens: []string{"#go", "@gopher"}},
		{Color: "", Tokens: []string{"and"}},
		{Color: "0000ff", Tokens: []string{"https://go.dev"}},
		{Color: "", Tokens: []string{"bye"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("segment() mismatch (-want +got):\n%s", diff)
	}
	var flat []string
	for _, r := range got {
		flat = append(flat, r.Tokens...)
	}
	if diff := cmp.Diff(tokens, flat); diff != "" {
		t.Errorf("segment() lost token order (-want +got):\n%s", diff)
	}
}

func TestSegmentCustomRules(t *testing.T) {
	red, err := NewColorRule("", `word.startsWith("!")`, "#ff0000")
	if err != nil {
		t.Fatal(err)
	}
	rules := append([]ColorRule{red}, DefaultColorRules...)
	got := segment([]string{"!alert", "#tag", "plain"}, rules)
	want := []colorRun{
		{Color: "ff0000", Tokens: []string{"!alert"}},
		{Color: "0000ff", Tokens: []string{"#tag"}},
		{Color: "", Tokens: []string{"plain"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("segment() mismatch (-want +got):\n%s", diff)
	}
}

func newTestLayout(t *testing.T, r TextRenderer) *Layout {
	t.Helper()
	l, err := NewLayout(DefaultLayoutConfig(), r, nil)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestColorizePlainLine(t *testing.T) {
	r := newStubRenderer(10, 0)
	z := newTestLayout(t, r).Colorizer(DefaultColorRules)
	img := solidImage(t, 110, stubHeight, color.Black)
	got, err := z.Colorize(context.Background(), &LineSpec{Tokens: []string{"hello", "world"}, Image: img})
	if err != nil {
		t.Fatal(err)
	}
	if got != img {
		t.Error("a line without highlights should be returned as rendered")
	}
	if len(r.texts()) != 0 {
		t.Errorf("unexpected oracle calls: %v", r.texts())
	}
}

func TestColorizeHighlight(t *testing.T) {
	r := newStubRenderer(10, 0)
	cfg := DefaultLayoutConfig()
	z := newTestLayout(t, r).Colorizer(DefaultColorRules)
	line := &LineSpec{Tokens: []string{"see", "#go"}, Image: solidImage(t, 70, stubHeight, color.Black)}
	img, err := z.Colorize(context.Background(), line)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"#go", "see"}, r.texts()); diff != "" {
		t.Errorf("oracle calls mismatch (-want +got):\n%s", diff)
	}
	if img.Width() != cfg.LineBoxWidth() || img.Height() != cfg.LineHeight {
		t.Errorf("size = %dx%d, want %dx%d", img.Width(), img.Height(), cfg.LineBoxWidth(), cfg.LineHeight)
	}
	black := color.NRGBA{A: 0xff}
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	blue := color.NRGBA{B: 0xff, A: 0xff}
	tests := []struct {
		name string
		x, y int
		want color.NRGBA
	}{
		{"default text", 10, 5, black},
		{"leading bar", 33, 5, white},
		{"highlighted run", 40, 5, blue},
		{"trailing bar", 66, 5, white},
		{"background", 100, 5, white},
	}
	for _, tt := range tests {
		if got := pixel(t, img, tt.x, tt.y); got != tt.want {
			t.Errorf("%s: pixel(%d, %d) = %v, want %v", tt.name, tt.x, tt.y, got, tt.want)
		}
	}
}
