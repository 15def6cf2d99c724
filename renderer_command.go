package postshot

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/k1LoW/errors"
	"github.com/k1LoW/exec"
)

// Environment variable names passed to an external render command.
const (
	EnvTextSize       = "POSTSHOT_TEXT_SIZE"
	EnvTextColor      = "POSTSHOT_TEXT_COLOR"
	EnvTextFill       = "POSTSHOT_TEXT_FILL"
	EnvTextBackground = "POSTSHOT_TEXT_BACKGROUND"
)

// exitCodeRejected is the exit status a render command uses to reject the text.
const exitCodeRejected = 2

// commandRenderer renders text by running an external command.
// The text is written to stdin and the command writes the image to stdout.
type commandRenderer struct {
	command string
	timeout time.Duration
}

// NewCommandRenderer returns a TextRenderer that runs command through the user's shell.
func NewCommandRenderer(command string, timeout time.Duration) *commandRenderer {
	return &commandRenderer{
		command: command,
		timeout: timeout,
	}
}

func (r *commandRenderer) RenderText(ctx context.Context, req TextRequest) (_ *Image, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	c, args, err := buildCommand(r.command)
	if err != nil {
		return nil, fmt.Errorf("failed to build render command: %w", err)
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c, args...)
	cmd.Stdin = strings.NewReader(req.Text)
	cmd.Env = os.Environ()
	cmd.Env = append(cmd.Env,
		EnvTextSize+"="+strconv.Itoa(req.Size),
		EnvTextColor+"="+req.Color,
		EnvTextFill+"="+req.Fill,
		EnvTextBackground+"="+req.Background,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmd.ProcessState != nil && cmd.ProcessState.ExitCode() == exitCodeRejected {
			return nil, ErrRejected
		}
		return nil, &RenderOracleError{Reason: fmt.Sprintf("%v: %s", err, strings.TrimSpace(stderr.String()))}
	}
	img, err := NewImageFromBytes(stdout.Bytes())
	if err != nil {
		return nil, &RenderOracleError{Reason: err.Error()}
	}
	return img, nil
}

// buildCommand parses a command string and returns the command and arguments.
func buildCommand(cmdStr string) (string, []string, error) {
	shell, err := detectShell()
	if err != nil {
		return "", nil, err
	}
	return shell, []string{"-c", cmdStr}, nil
}

// detectShell detects the current shell.
func detectShell() (string, error) {
	shells := []string{
		os.Getenv("SHELL"),
		"/bin/bash",
		"/bin/sh",
	}
	for _, shell := range shells {
		if shell == "" {
			continue
		}
		if _, err := os.Stat(shell); err == nil {
			return shell, nil
		}
	}
	return "", fmt.Errorf("failed to detect shell")
}
