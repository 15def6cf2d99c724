package cmd

import (
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/k1LoW/postshot"
	"github.com/k1LoW/postshot/config"
)

func intPtr(v int) *int {
	return &v
}

func TestLayoutConfig(t *testing.T) {
	cfg := &config.Config{
		Layout: config.Layout{
			Margin:            intPtr(0),
			CardWidth:         500,
			DefaultBackground: "336699",
		},
	}
	got, err := layoutConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := postshot.DefaultLayoutConfig()
	want.Margin = 0
	want.CardWidth = 500
	want.DefaultBackground = color.NRGBA{R: 0x33, G: 0x66, B: 0x99, A: 0xff}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("layoutConfig() mismatch (-want +got):\n%s", diff)
	}

	cfg.Layout.DefaultBackground = "nope"
	if _, err := layoutConfig(cfg); err == nil {
		t.Error("expected error for invalid background")
	}
}

func TestColorRules(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		got, err := colorRules(&config.Config{})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(postshot.DefaultColorRules) {
			t.Errorf("got %d rules, want %d", len(got), len(postshot.DefaultColorRules))
		}
	})
	t.Run("configured", func(t *testing.T) {
		got, err := colorRules(&config.Config{ColorRules: []config.ColorRule{
			{Pattern: "#.+", Color: "ff0000"},
			{If: `word.endsWith("!")`, Color: "00ff00"},
		}})
		if err != nil {
			t.Fatal(err)
		}
		if !got[0].Match("#go") || got[0].Match("go#") {
			t.Error("pattern rule does not match from the token start")
		}
		if !got[1].Match("wow!") || got[1].Match("wow") {
			t.Error("if rule mismatch")
		}
	})
	t.Run("invalid", func(t *testing.T) {
		if _, err := colorRules(&config.Config{ColorRules: []config.ColorRule{{Color: "ff0000"}}}); err == nil {
			t.Error("expected error for rule without pattern or if")
		}
	})
}

func TestNewRenderer(t *testing.T) {
	for _, typ := range []string{"chart", "local"} {
		if _, err := newRenderer(&config.Config{Oracle: config.Oracle{Type: typ}}, 0, nil); err != nil {
			t.Errorf("newRenderer(%s) error = %v", typ, err)
		}
	}
	if _, err := newRenderer(&config.Config{Oracle: config.Oracle{Type: "command"}}, 0, nil); err == nil {
		t.Error("expected error for command oracle without command")
	}
	if _, err := newRenderer(&config.Config{Oracle: config.Oracle{Type: "crayon"}}, 0, nil); err == nil {
		t.Error("expected error for unknown oracle")
	}
}
