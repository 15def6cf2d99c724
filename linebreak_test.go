package postshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/bits"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tenntenn/golden"
)

func lineTexts(lines []*LineSpec) []string {
	texts := make([]string, 0, len(lines))
	for _, l := range lines {
		texts = append(texts, l.Text())
	}
	return texts
}

// countingProber fits prefixes of at most fits tokens and records every probed length.
func countingProber(fits int, probes *[]int) prober {
	img := &Image{width: 1, height: 1}
	return func(ctx context.Context, tokens []string) (*Image, error) {
		*probes = append(*probes, len(tokens))
		if len(tokens) > fits {
			return nil, nil
		}
		return img, nil
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("  hello \n world\tfoo  ")
	want := []string{"hello", "world", "foo"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Tokenize() mismatch (-want +got):\n%s", diff)
	}
	if got := Tokenize(" \n\t"); len(got) != 0 {
		t.Errorf("Tokenize() = %v, want empty", got)
	}
}

func TestBreakLinesShortText(t *testing.T) {
	r := newStubRenderer(10, 0)
	b := NewLineBreaker(r, nil)
	lines, err := b.BreakLines(context.Background(), Tokenize("hello world"), DefaultLayoutConfig().MaxLineWidth())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"hello world"}, lineTexts(lines)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"hello world"}, r.texts()); diff != "" {
		t.Errorf("a short text should cost a single probe (-want +got):\n%s", diff)
	}
	if lines[0].Image.Width() != 110 {
		t.Errorf("line image width = %d, want 110", lines[0].Image.Width())
	}
}

func TestBreakLinesGreedy(t *testing.T) {
	const (
		charWidth = 10
		maxWidth  = 200
	)
	var tokens []string
	for i := range 30 {
		tokens = append(tokens, fmt.Sprintf("w%03d", i))
	}
	r := newStubRenderer(charWidth, 0)
	b := NewLineBreaker(r, nil)
	lines, err := b.BreakLines(context.Background(), tokens, maxWidth)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for i, l := range lines {
		got = append(got, l.Tokens...)
		w := len(l.Text()) * charWidth
		if w > maxWidth {
			t.Errorf("line %d is %dpx wide, want <= %d", i, w, maxWidth)
		}
		if i < len(lines)-1 {
			// one more token must not fit
			next := l.Text() + " " + lines[i+1].Tokens[0]
			if len(next)*charWidth <= maxWidth {
				t.Errorf("line %d is not maximal: %q still fits", i, next)
			}
		}
	}
	if diff := cmp.Diff(tokens, got); diff != "" {
		t.Errorf("tokens are not preserved in order (-want +got):\n%s", diff)
	}
	if len(lines) != 8 {
		t.Errorf("got %d lines, want 8", len(lines))
	}
}

func TestBreakLinesRejected(t *testing.T) {
	r := newStubRenderer(10, 100)
	b := NewLineBreaker(r, nil)
	lines, err := b.BreakLines(context.Background(), Tokenize("hello world foo"), 550)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"hello", "world foo"}, lineTexts(lines)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestBreakLinesSplitsLongToken(t *testing.T) {
	r := newStubRenderer(10, 0)
	b := NewLineBreaker(r, nil)
	token := strings.Repeat("a", 100)
	lines, err := b.BreakLines(context.Background(), []string{token}, 250)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		strings.Repeat("a", 25),
		strings.Repeat("a", 25),
		strings.Repeat("a", 25),
		strings.Repeat("a", 25),
	}
	if diff := cmp.Diff(want, lineTexts(lines)); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestBreakLinesUnprocessable(t *testing.T) {
	r := newStubRenderer(10, 0)
	b := NewLineBreaker(r, nil)
	_, err := b.BreakLines(context.Background(), []string{"ab"}, 5)
	var uerr *UnprocessableInputError
	if !errors.As(err, &uerr) {
		t.Fatalf("got %v, want UnprocessableInputError", err)
	}
	if uerr.Token != "a" {
		t.Errorf("token = %q, want %q", uerr.Token, "a")
	}
}

type failingRenderer struct{}

func (failingRenderer) RenderText(ctx context.Context, req TextRequest) (*Image, error) {
	return nil, &RenderOracleError{Status: 500}
}

func TestBreakLinesOracleError(t *testing.T) {
	b := NewLineBreaker(failingRenderer{}, nil)
	_, err := b.BreakLines(context.Background(), Tokenize("hello world"), 550)
	var oerr *RenderOracleError
	if !errors.As(err, &oerr) {
		t.Fatalf("got %v, want RenderOracleError", err)
	}
}

func TestFitLineProbeBound(t *testing.T) {
	for n := 1; n <= 64; n++ {
		limit := bits.Len(uint(n-1)) + 2
		for fits := 0; fits <= n; fits++ {
			var probes []int
			words := make([]string, n)
			got, img, err := fitLine(context.Background(), words, countingProber(fits, &probes))
			if err != nil {
				t.Fatal(err)
			}
			if fits == 0 {
				if img != nil {
					t.Errorf("n=%d fits=%d: got a fit, want none", n, fits)
				}
			} else if got != fits {
				t.Errorf("n=%d fits=%d: got %d tokens", n, fits, got)
			}
			if len(probes) > limit {
				t.Errorf("n=%d fits=%d: %d probes %v, want <= %d", n, fits, len(probes), probes, limit)
			}
		}
	}
}

func TestFitLineProbes(t *testing.T) {
	tests := []struct {
		n, fits int
	}{
		{10, 6},
		{10, 0},
		{10, 10},
		{1, 1},
		{1, 0},
		{2, 1},
		{16, 9},
	}
	buf := new(bytes.Buffer)
	for _, tt := range tests {
		var probes []int
		got, _, err := fitLine(context.Background(), make([]string, tt.n), countingProber(tt.fits, &probes))
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fmt.Fprintf(buf, "n=%d fits<=%d probes=%v result=%d\n", tt.n, tt.fits, probes, got)
	}
	if os.Getenv("UPDATE_GOLDEN") != "" {
		golden.Update(t, "testdata", "probes", buf.String())
		return
	}
	if diff := golden.Diff(t, "testdata", "probes", buf.String()); diff != "" {
		t.Error(diff)
	}
}

func TestSplitToken(t *testing.T) {
	tests := []struct {
		token    string
		wantHead string
		wantTail string
		wantOK   bool
	}{
		{"abcd", "ab", "cd", true},
		{"abc", "a", "bc", true},
		{"héllo", "hé", "llo", true},
		{"🇯🇵🇺🇸", "🇯🇵", "🇺🇸", true},
		{"a", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			head, tail, ok := splitToken(tt.token)
			if ok != tt.wantOK || head != tt.wantHead || tail != tt.wantTail {
				t.Errorf("splitToken(%q) = (%q, %q, %v), want (%q, %q, %v)", tt.token, head, tail, ok, tt.wantHead, tt.wantTail, tt.wantOK)
			}
		})
	}
}
