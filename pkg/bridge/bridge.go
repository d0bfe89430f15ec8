// Package bridge invokes the external Modbus gateway process for exactly one
// acquisition cycle and recovers its result from standard output.
//
// The configuration payload travels to the child through MODBUS_CONFIG_JSON and
// RUN_ONCE=1 forces single-cycle execution. The child may print diagnostic lines
// freely; its final non-empty stdout line is the JSON result.
package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// defaultWaitDelay bounds how long Wait keeps draining pipes after the child is
// gone (or killed) while a grandchild still holds them open.
const defaultWaitDelay = 2 * time.Second

// Options configures how the gateway process is located and run.
type Options struct {
	// Interpreter runs the script (e.g. "python3"). Empty executes Script directly.
	Interpreter string
	// Script is the gateway executable. Relative paths resolve against BaseDir.
	Script string
	// Args are appended after the script path.
	Args []string
	// BaseDir overrides the directory of the running executable.
	BaseDir string
	// ResultPrefix, when set, marks the result line explicitly.
	ResultPrefix string
	// Timeout bounds a single run. Zero waits for natural termination.
	Timeout time.Duration
}

// Outcome is the raw result of one child process run.
type Outcome struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Result is the record returned for a successful invocation.
type Result struct {
	// Record is the parsed result line, or {"raw": stdout} when Fallback is set.
	Record   any
	Fallback bool
	Outcome  Outcome
}

// Bridge launches the gateway process. It holds no per-invocation state and is
// safe for concurrent use.
type Bridge struct {
	opts      Options
	environ   func() []string
	waitDelay time.Duration
}

// New creates a Bridge with the given options.
func New(opts Options) *Bridge {
	return &Bridge{
		opts:      opts,
		environ:   os.Environ,
		waitDelay: defaultWaitDelay,
	}
}

// Invoke runs one acquisition cycle with payload and returns its record.
// Exactly one of the return values is non-nil.
func (b *Bridge) Invoke(ctx context.Context, payload string) (*Result, error) {
	start := time.Now()

	target, err := b.resolveTarget()
	if err != nil {
		return nil, launchError(err, time.Since(start))
	}
	if _, err := os.Stat(target); err != nil {
		return nil, launchError(err, time.Since(start))
	}

	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}

	name, args := b.commandLine(target)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = BuildEnv(b.environ(), payload)
	cmd.WaitDelay = b.waitDelay
	configureProcess(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Launching gateway process", "component", "Bridge", "path", name, "args", args)
	runErr := cmd.Run()

	outcome := Outcome{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(cmd, runErr),
		Duration: time.Since(start),
	}

	// A clean exit whose pipes are held open by a leftover helper is still a
	// success; output written after the delay is not captured.
	if errors.Is(runErr, exec.ErrWaitDelay) && outcome.ExitCode == 0 && ctx.Err() == nil {
		slog.Warn("Gateway process exited but its output stayed open, stopped reading",
			"component", "Bridge", "wait_delay", b.waitDelay.String())
		runErr = nil
	}

	if runErr != nil {
		return nil, processError(ctx, outcome, runErr)
	}

	if outcome.Stderr != "" {
		slog.Warn("Gateway process wrote to stderr on success", "component", "Bridge", "stderr", strings.TrimSpace(outcome.Stderr))
	}

	record, fallback := ExtractRecord(outcome.Stdout, b.opts.ResultPrefix)
	if fallback {
		slog.Warn("Result line is not valid JSON, returning raw output", "component", "Bridge", "stdout_bytes", len(outcome.Stdout))
	}

	return &Result{
		Record:   record,
		Fallback: fallback,
		Outcome:  outcome,
	}, nil
}

// resolveTarget locates the script relative to the installation directory.
// It runs on every invocation so a redeployed script is picked up.
func (b *Bridge) resolveTarget() (string, error) {
	if b.opts.Script == "" {
		return "", errors.New("gateway script not configured")
	}
	if filepath.IsAbs(b.opts.Script) {
		return b.opts.Script, nil
	}

	baseDir := b.opts.BaseDir
	if baseDir == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locate executable: %w", err)
		}
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		baseDir = filepath.Dir(exe)
	}

	return filepath.Join(baseDir, b.opts.Script), nil
}

func (b *Bridge) commandLine(target string) (string, []string) {
	if b.opts.Interpreter == "" {
		return target, append([]string(nil), b.opts.Args...)
	}
	args := make([]string, 0, len(b.opts.Args)+1)
	args = append(args, target)
	args = append(args, b.opts.Args...)
	return b.opts.Interpreter, args
}

func exitCode(cmd *exec.Cmd, runErr error) int {
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitCode()
	}
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	return -1
}
