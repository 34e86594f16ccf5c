// Package runner executes external tool invocations for pipeline stages.
// It expands the named substitution parameters declared on an invocation,
// captures stdout/stderr, and surfaces non-zero exit status and timeouts as
// classified tool failures. Retry is deliberately not implemented here -
// retries, where they exist, are a policy of the calling stage.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/conveyor-ci/conveyor/domain"
)

// Result holds the captured output and exit status of one invocation.
// Output is preserved even when the invocation fails, so a graded-failed
// run can still be inspected.
type Result struct {
	Stdout   string
	Stderr   string
	Combined string
	ExitCode int
}

// Runner defines the interface for tool invocation execution.
type Runner interface {
	// Run executes the invocation with its placeholders expanded from subs.
	Run(ctx context.Context, inv domain.ToolInvocation, subs domain.Substitutions, opts ...Option) (*Result, error)
}

// CommandRunner implements Runner over os/exec.
type CommandRunner struct {
	options *Options
}

// Options configures invocation execution behavior.
type Options struct {
	// Output handling
	CaptureStdout     bool
	CaptureStderr     bool
	CaptureCombined   bool
	RedirectToConsole bool

	// Working directory
	WorkingDir string

	// Environment variables (appended to current env)
	Env map[string]string

	// Timeout bounds the invocation. Zero means no bound. Exceeding the
	// bound is treated identically to a non-zero exit.
	Timeout time.Duration

	// Custom stdout/stderr writers (for advanced use cases)
	StdoutWriter io.Writer
	StderrWriter io.Writer
}

// Option is a function that modifies Options.
type Option func(*Options)

// DefaultOptions returns default execution options.
func DefaultOptions() *Options {
	return &Options{
		CaptureStdout:     true,
		CaptureStderr:     true,
		CaptureCombined:   false,
		RedirectToConsole: false,
		Env:               make(map[string]string),
	}
}

// New creates a new CommandRunner.
func New(opts ...Option) *CommandRunner {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &CommandRunner{options: options}
}

// Run implements the Runner interface.
func (c *CommandRunner) Run(
	ctx context.Context,
	inv domain.ToolInvocation,
	subs domain.Substitutions,
	opts ...Option,
) (*Result, error) {
	options := c.mergeOptions(opts...)

	expanded, err := ExpandInvocation(inv, subs)
	if err != nil {
		return nil, err
	}

	if options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, expanded.Program, expanded.Args...)
	c.setupCommand(cmd, options)
	stdoutBuf, stderrBuf, combinedBuf := c.setupOutputCapture(cmd, options)

	runErr := cmd.Run()
	result := c.createResult(stdoutBuf, stderrBuf, combinedBuf, runErr)

	if runErr != nil {
		timedOut := ctx.Err() != nil
		return result, &ToolFailure{
			Invocation: inv.Name,
			ExitCode:   result.ExitCode,
			TimedOut:   timedOut,
			Output:     result,
			cause:      runErr,
		}
	}
	return result, nil
}

// setupCommand configures the exec.Cmd with working directory and environment.
func (c *CommandRunner) setupCommand(cmd *exec.Cmd, options *Options) {
	if options.WorkingDir != "" {
		cmd.Dir = options.WorkingDir
	}

	if len(options.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range options.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}
}

// setupOutputCapture configures stdout and stderr writers for the command.
func (c *CommandRunner) setupOutputCapture(
	cmd *exec.Cmd,
	options *Options,
) (*bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	var stdoutBuf, stderrBuf, combinedBuf bytes.Buffer

	stdoutWriters := []io.Writer{}
	if options.CaptureStdout || options.CaptureCombined {
		if options.CaptureCombined {
			stdoutWriters = append(stdoutWriters, &combinedBuf)
		} else {
			stdoutWriters = append(stdoutWriters, &stdoutBuf)
		}
	}
	if options.RedirectToConsole {
		stdoutWriters = append(stdoutWriters, os.Stdout)
	}
	if options.StdoutWriter != nil {
		stdoutWriters = append(stdoutWriters, options.StdoutWriter)
	}

	if len(stdoutWriters) > 0 {
		cmd.Stdout = io.MultiWriter(stdoutWriters...)
	}

	stderrWriters := []io.Writer{}
	if options.CaptureStderr || options.CaptureCombined {
		if options.CaptureCombined {
			stderrWriters = append(stderrWriters, &combinedBuf)
		} else {
			stderrWriters = append(stderrWriters, &stderrBuf)
		}
	}
	if options.RedirectToConsole {
		stderrWriters = append(stderrWriters, os.Stderr)
	}
	if options.StderrWriter != nil {
		stderrWriters = append(stderrWriters, options.StderrWriter)
	}

	if len(stderrWriters) > 0 {
		cmd.Stderr = io.MultiWriter(stderrWriters...)
	}

	return &stdoutBuf, &stderrBuf, &combinedBuf
}

// createResult creates a Result from command execution and error.
func (c *CommandRunner) createResult(
	stdoutBuf, stderrBuf, combinedBuf *bytes.Buffer,
	err error,
) *Result {
	result := &Result{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Combined: combinedBuf.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err != nil && errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case err == nil:
		result.ExitCode = 0
	default:
		result.ExitCode = -1
	}

	return result
}

func (c *CommandRunner) mergeOptions(opts ...Option) *Options {
	// Copy base options
	merged := *c.options

	for _, opt := range opts {
		opt(&merged)
	}

	return &merged
}

// Option functions for fluent configuration

// WithCapture configures output capture.
func WithCapture(stdout, stderr, combined bool) Option {
	return func(o *Options) {
		o.CaptureStdout = stdout
		o.CaptureStderr = stderr
		o.CaptureCombined = combined
	}
}

// WithConsoleRedirect enables/disables console output.
func WithConsoleRedirect(redirect bool) Option {
	return func(o *Options) {
		o.RedirectToConsole = redirect
	}
}

// WithWorkingDir sets the working directory.
func WithWorkingDir(dir string) Option {
	return func(o *Options) {
		o.WorkingDir = dir
	}
}

// WithTimeout bounds the invocation duration.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithEnv adds environment variables.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		for k, v := range env {
			o.Env[k] = v
		}
	}
}

// WithEnvVar adds a single environment variable.
func WithEnvVar(key, value string) Option {
	return func(o *Options) {
		if o.Env == nil {
			o.Env = make(map[string]string)
		}
		o.Env[key] = value
	}
}

// WithStdoutWriter sets a custom stdout writer.
func WithStdoutWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StdoutWriter = w
	}
}

// WithStderrWriter sets a custom stderr writer.
func WithStderrWriter(w io.Writer) Option {
	return func(o *Options) {
		o.StderrWriter = w
	}
}

// SilentMode captures output without console redirect.
func SilentMode() Option {
	return func(o *Options) {
		o.CaptureStdout = true
		o.CaptureStderr = true
		o.RedirectToConsole = false
	}
}
