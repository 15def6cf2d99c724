package postshot

import (
	"context"
	"image/color"
	"strings"

	"github.com/k1LoW/errors"
)

// runGap is the horizontal gap between the text preceding a colored run and the run itself.
const runGap = 5

// colorRun is a maximal run of consecutive tokens sharing one color.
type colorRun struct {
	Color  string
	Tokens []string
}

func (r colorRun) Text() string {
	return strings.Join(r.Tokens, " ")
}

// segment groups tokens into runs, splitting only where the color changes.
func segment(tokens []string, rules []ColorRule) []colorRun {
	var runs []colorRun
	for _, t := range tokens {
		c := tokenColor(t, rules)
		if len(runs) > 0 && runs[len(runs)-1].Color == c {
			runs[len(runs)-1].Tokens = append(runs[len(runs)-1].Tokens, t)
			continue
		}
		runs = append(runs, colorRun{Color: c, Tokens: []string{t}})
	}
	return runs
}

// Colorizer re-renders highlighted runs of a line over its default rendering.
type Colorizer struct {
	renderer   TextRenderer
	compositor *Compositor
	rules      []ColorRule
	bar        *Image
	width      int
	height     int
}

// NewColorizer returns a Colorizer producing width x height line images.
func NewColorizer(r TextRenderer, c *Compositor, rules []ColorRule, bar *Image, width, height int) *Colorizer {
	return &Colorizer{
		renderer:   r,
		compositor: c,
		rules:      rules,
		bar:        bar,
		width:      width,
		height:     height,
	}
}

// Colorize returns the final image of line. Lines without highlights are returned as rendered.
func (z *Colorizer) Colorize(ctx context.Context, line *LineSpec) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	runs := segment(line.Tokens, z.rules)
	if len(runs) == 1 && runs[0].Color == "" {
		return line.Image, nil
	}
	fragments := []Fragment{At(line.Image, 0, 0)}
	for i, run := range runs {
		if run.Color == "" {
			continue
		}
		part, err := z.renderer.RenderText(ctx, lineStyle.with(run.Text()).withColor(run.Color))
		if err != nil {
			return nil, err
		}
		offset := 0
		if i > 0 {
			before := make([]string, 0, i)
			for _, r := range runs[:i] {
				before = append(before, r.Text())
			}
			img, err := z.renderer.RenderText(ctx, lineStyle.with(strings.Join(before, " ")))
			if err != nil {
				return nil, err
			}
			offset = img.Width() + runGap
		}
		fragments = append(fragments,
			At(z.bar, offset-3, 0),
			At(z.bar, offset+part.Width()-1, 0),
			At(part, offset, 0),
		)
	}
	return z.compositor.Compose(ctx, fragments, z.width, z.height, color.White)
}
