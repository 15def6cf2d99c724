package postshot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/k1LoW/errors"
)

// ColorRule highlights the tokens it matches.
// A rule matches by regular expression, by CEL expression over `word`, or by both.
type ColorRule struct {
	Pattern *regexp.Regexp
	If      cel.Program
	Color   string
}

// DefaultColorRules highlights links, hashtags and mentions.
var DefaultColorRules = []ColorRule{
	{Pattern: regexp.MustCompile(`^https?://.+`), Color: "0000ff"},
	{Pattern: regexp.MustCompile(`^[#@].+`), Color: "0000ff"},
}

// NewColorRule compiles a rule. Either pattern or expr must be set.
func NewColorRule(pattern, expr, color string) (_ ColorRule, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if pattern == "" && expr == "" {
		return ColorRule{}, fmt.Errorf("color rule needs a pattern or an if expression")
	}
	c, err := ParseHexColor(color)
	if err != nil {
		return ColorRule{}, fmt.Errorf("invalid color %q: %w", color, err)
	}
	r := ColorRule{Color: fmt.Sprintf("%02x%02x%02x", c.R, c.G, c.B)}
	if pattern != "" {
		if !strings.HasPrefix(pattern, "^") {
			// Rules match from the beginning of a token.
			pattern = "^(?:" + pattern + ")"
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return ColorRule{}, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		r.Pattern = re
	}
	if expr != "" {
		prg, err := compileWordExpr(expr)
		if err != nil {
			return ColorRule{}, err
		}
		r.If = prg
	}
	return r, nil
}

func compileWordExpr(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(cel.Variable("word", cel.StringType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rule compilation error for '%s': %w", expr, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("rule '%s' must evaluate to bool, got %s", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rule program creation error for '%s': %w", expr, err)
	}
	return prg, nil
}

// Match reports whether word is highlighted by r. An expression that fails to evaluate does not match.
func (r ColorRule) Match(word string) bool {
	if r.Pattern != nil && !r.Pattern.MatchString(word) {
		return false
	}
	if r.If != nil {
		out, _, err := r.If.Eval(map[string]any{"word": word})
		if err != nil {
			return false
		}
		b, ok := out.Value().(bool)
		return ok && b
	}
	return r.Pattern != nil
}

// tokenColor returns the color of the first rule matching word, or "" for the default color.
func tokenColor(word string, rules []ColorRule) string {
	for _, r := range rules {
		if r.Match(word) {
			return r.Color
		}
	}
	return ""
}
