package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/deploykit/internal/metrics"
)

const (
	// DefaultMaxAttempts is how many times a command is executed before
	// giving up.
	DefaultMaxAttempts = 5

	// DefaultBackoff is the fixed wait between attempts.
	DefaultBackoff = time.Second

	defaultShell = "/bin/sh"
)

// Options configures a Runner. Zero values fall back to the defaults above.
type Options struct {
	MaxAttempts int
	Backoff     time.Duration
	Shell       string
}

// Runner executes shell command lines with a bounded retry loop.
//
// Commands are passed to the shell verbatim ("sh -c <command>"), so quoting
// and metacharacters are the caller's responsibility. Combined stdout and
// stderr are captured into a fresh temporary file per attempt, mirroring how
// provisioning tools snapshot output for post-mortem diagnostics.
type Runner struct {
	logger      zerolog.Logger
	maxAttempts int
	backoff     time.Duration
	shell       string
}

// NewRunner creates a Runner with the given options.
func NewRunner(logger zerolog.Logger, opts Options) *Runner {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Shell == "" {
		opts.Shell = defaultShell
	}
	return &Runner{
		logger:      logger.With().Str("component", "shell-runner").Logger(),
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		shell:       opts.Shell,
	}
}

type runConfig struct {
	attempts int
	stdin    []byte
	hasStdin bool
}

// RunOption customizes a single Run invocation.
type RunOption func(*runConfig)

// WithStdin feeds the given bytes to the command's standard input on every
// attempt.
func WithStdin(stdin []byte) RunOption {
	return func(c *runConfig) {
		c.stdin = stdin
		c.hasStdin = true
	}
}

// WithAttempts overrides the runner's attempt count for one invocation.
// Values below 1 are ignored.
func WithAttempts(n int) RunOption {
	return func(c *runConfig) {
		if n >= 1 {
			c.attempts = n
		}
	}
}

// Run executes a shell command line and returns its combined stdout and
// stderr. A non-zero exit is retried with a fixed backoff until the attempt
// budget is spent, after which a *CommandError carrying the final attempt's
// output is returned. A process that cannot be started at all fails
// immediately with a *LaunchError and is never retried.
//
// The backoff sleep itself is not interruptible; ctx only bounds the
// subordinate process.
func (r *Runner) Run(ctx context.Context, command string, opts ...RunOption) ([]byte, error) {
	cfg := runConfig{attempts: r.maxAttempts}
	for _, opt := range opts {
		opt(&cfg)
	}

	triesLeft := cfg.attempts
	for {
		metrics.ShellAttempts.Inc()
		r.logger.Debug().Str("command", command).Msg("shell")

		output, exitErr, err := r.attempt(ctx, command, cfg)
		if err != nil {
			metrics.ShellLaunchFailures.Inc()
			return nil, &LaunchError{Command: command, Stdin: cfg.stdin, Err: err}
		}
		if exitErr == nil {
			return output, nil
		}

		triesLeft--
		if triesLeft == 0 {
			metrics.ShellFailures.Inc()
			return nil, &CommandError{Command: command, Stdin: cfg.stdin, Output: output}
		}

		r.logger.Debug().
			Str("command", command).
			Int("tries_left", triesLeft).
			Msg("command failed, trying again momentarily")
		time.Sleep(r.backoff)
	}
}

// attempt runs the command once. exitErr is non-nil when the process ran and
// exited non-zero; err is non-nil when the process could not run at all.
func (r *Runner) attempt(ctx context.Context, command string, cfg runConfig) (output []byte, exitErr, err error) {
	outFile, err := os.CreateTemp("", "deploykit-shell-*")
	if err != nil {
		return nil, nil, err
	}
	defer release(outFile)

	cmd := exec.CommandContext(ctx, r.shell, "-c", command)
	cmd.Stdout = outFile
	cmd.Stderr = outFile

	if cfg.hasStdin {
		stdinFile, err := os.CreateTemp("", "deploykit-stdin-*")
		if err != nil {
			return nil, nil, err
		}
		defer release(stdinFile)

		if _, err := stdinFile.Write(cfg.stdin); err != nil {
			return nil, nil, err
		}
		if _, err := stdinFile.Seek(0, io.SeekStart); err != nil {
			return nil, nil, err
		}
		cmd.Stdin = stdinFile

		r.logger.Debug().Bytes("stdin", cfg.stdin).Msg("shell stdin")
	}
	r.logger.Debug().Str("stdout_buffer", outFile.Name()).Msg("shell output buffer")

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	waitErr := cmd.Wait()
	if waitErr != nil {
		var ee *exec.ExitError
		if !errors.As(waitErr, &ee) {
			return nil, nil, waitErr
		}
	}

	if _, err := outFile.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(outFile); err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), waitErr, nil
}

// release closes and removes a temporary buffer file.
func release(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}
