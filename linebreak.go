package postshot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/k1LoW/errors"
	"github.com/rivo/uniseg"
)

// LineSpec is the run of tokens assigned to one visual line together with its default rendering.
type LineSpec struct {
	Tokens []string
	Image  *Image
}

// Text returns the tokens joined by single spaces.
func (l *LineSpec) Text() string {
	return strings.Join(l.Tokens, " ")
}

// Tokenize splits text into whitespace-delimited tokens.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// fitState is the binary search over how many leading tokens fit on one line.
// mid is the prefix length to probe next; best is the widest rendering that fit, always for lo tokens.
type fitState struct {
	lo, hi, mid int
	best        *Image
}

// newFitState starts with the whole remainder so that a short text costs a single probe.
func newFitState(n int) fitState {
	return fitState{lo: 1, hi: n, mid: n}
}

// step consumes the result of probing s.mid. fit is nil when the prefix was rejected or too wide.
// It reports done once no further probe can improve the result.
func (s fitState) step(fit *Image) (fitState, bool) {
	if fit == nil {
		s.hi = s.mid
	} else {
		s.lo = s.mid
		s.best = fit
	}
	s.mid = max(1, s.lo+(s.hi-s.lo)/2)
	done := s.lo == s.hi || (s.mid == s.lo && s.best != nil)
	return s, done
}

// prober renders tokens as one line and returns the image if it fits, or nil if it does not.
type prober func(ctx context.Context, tokens []string) (*Image, error)

// LineBreaker partitions tokens into lines that fit a pixel width, measuring with a TextRenderer.
type LineBreaker struct {
	renderer TextRenderer
	style    TextRequest
	logger   *slog.Logger
}

func NewLineBreaker(r TextRenderer, logger *slog.Logger) *LineBreaker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LineBreaker{
		renderer: r,
		style:    lineStyle,
		logger:   logger,
	}
}

// BreakLines greedily takes the longest token prefix that fits maxWidth for each line.
// A token that does not fit alone is split in half until it does.
func (b *LineBreaker) BreakLines(ctx context.Context, tokens []string, maxWidth int) (_ []*LineSpec, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	probe := b.prober(maxWidth)
	words := make([]string, len(tokens))
	copy(words, tokens)
	var lines []*LineSpec
	for len(words) > 0 {
		b.logger.Debug("words left", slog.Int("count", len(words)))
		n, img, err := fitLine(ctx, words, probe)
		if err != nil {
			return nil, err
		}
		if img == nil {
			// Nothing fits, not even the first token alone.
			head, tail, ok := splitToken(words[0])
			if !ok {
				return nil, &UnprocessableInputError{Token: words[0]}
			}
			b.logger.Debug("split token", slog.String("head", head), slog.String("tail", tail))
			words = append([]string{head, tail}, words[1:]...)
			continue
		}
		lines = append(lines, &LineSpec{
			Tokens: words[:n:n],
			Image:  img,
		})
		words = words[n:]
	}
	return lines, nil
}

func (b *LineBreaker) prober(maxWidth int) prober {
	return func(ctx context.Context, tokens []string) (*Image, error) {
		img, err := b.renderer.RenderText(ctx, b.style.with(strings.Join(tokens, " ")))
		if err != nil {
			if isRejected(err) {
				return nil, nil
			}
			return nil, err
		}
		if img.Width() > maxWidth {
			return nil, nil
		}
		return img, nil
	}
}

// fitLine runs the search for one line. A nil image means that no prefix fits.
func fitLine(ctx context.Context, words []string, probe prober) (int, *Image, error) {
	s := newFitState(len(words))
	for {
		fit, err := probe(ctx, words[:s.mid])
		if err != nil {
			return 0, nil, err
		}
		var done bool
		s, done = s.step(fit)
		if done {
			break
		}
	}
	if s.best == nil {
		return 0, nil, nil
	}
	return s.lo, s.best, nil
}

// splitToken cuts a token at its grapheme cluster midpoint.
// It reports false when the token is too short to be split.
func splitToken(token string) (string, string, bool) {
	n := uniseg.GraphemeClusterCount(token)
	half := n / 2
	if half == 0 {
		return "", "", false
	}
	g := uniseg.NewGraphemes(token)
	var cut int
	for i := 0; i < half && g.Next(); i++ {
		_, cut = g.Positions()
	}
	return token[:cut], token[cut:], true
}
