package apply

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrorKind classifies an apply failure.
type ErrorKind int

const (
	Failed ErrorKind = iota
	ToolUnavailable
	PermissionDenied
)

func (k ErrorKind) String() string {
	switch k {
	case ToolUnavailable:
		return "tool unavailable"
	case PermissionDenied:
		return "permission denied"
	default:
		return "failed"
	}
}

// Error reports a failed run. Output is the playbook's output, verbatim.
type Error struct {
	Kind     ErrorKind
	ExitCode int
	Output   string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("apply %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Request is one apply run.
type Request struct {
	Variables Variables
	// Password is the privilege escalation secret. Empty means none is passed.
	Password string
	// Output, when set, receives the playbook output as it is produced.
	Output io.Writer
}

type Result struct {
	Output   string
	Duration time.Duration
}

// Orchestrator runs the automation engine.
type Orchestrator interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// CommandRunner starts a process with combined output streamed to out.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, out io.Writer) (exitCode int, err error)
}

// ExecRunner runs commands on the local host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, out io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = out
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), err
	}
	return 127, err
}

// Defaults for AnsibleOrchestrator.
const (
	DefaultBinary    = "ansible-playbook"
	DefaultPlaybook  = "site.yml"
	DefaultInventory = "localhost,"
)

// AnsibleOrchestrator runs ansible-playbook against the local machine.
type AnsibleOrchestrator struct {
	Binary   string
	Playbook string
	// TempDir holds the variable and credential files. Empty uses os.TempDir.
	TempDir string
	Runner  CommandRunner
	Logger  zerolog.Logger
}

// NewAnsible returns an orchestrator with defaults filled in.
func NewAnsible(binary, playbook string, logger zerolog.Logger) *AnsibleOrchestrator {
	if binary == "" {
		binary = DefaultBinary
	}
	if playbook == "" {
		playbook = DefaultPlaybook
	}
	return &AnsibleOrchestrator{Binary: binary, Playbook: playbook, Runner: ExecRunner{}, Logger: logger}
}

// Run writes the variables and credential files, runs the playbook and
// removes the credential file as soon as the process exits.
func (a *AnsibleOrchestrator) Run(ctx context.Context, req Request) (Result, error) {
	if _, err := os.Stat(a.Playbook); err != nil {
		return Result{}, &Error{Kind: ToolUnavailable, Err: fmt.Errorf("playbook %s: %w", a.Playbook, err)}
	}

	data, err := req.Variables.Marshal()
	if err != nil {
		return Result{}, &Error{Kind: Failed, Err: fmt.Errorf("encoding variables: %w", err)}
	}
	varsPath, err := a.writeTemp("ubootu-vars-*.yml", data)
	if err != nil {
		return Result{}, fileError("writing variables", err)
	}
	defer os.Remove(varsPath)

	args := []string{"-i", DefaultInventory, "-c", "local", "--extra-vars", "@" + varsPath}
	var pwPath string
	if req.Password != "" {
		pwPath, err = a.writeTemp("ubootu-become-*", []byte(req.Password))
		if err != nil {
			return Result{}, fileError("writing credential", err)
		}
		defer os.Remove(pwPath)
		args = append(args, "--become-password-file", pwPath)
	}
	args = append(args, a.Playbook)

	var buf bytes.Buffer
	var out io.Writer = &buf
	if req.Output != nil {
		out = io.MultiWriter(&buf, req.Output)
	}

	a.Logger.Info().Str("binary", a.Binary).Str("playbook", a.Playbook).Msg("running playbook")
	start := time.Now()
	code, runErr := a.runner().Run(ctx, a.Binary, args, out)
	if pwPath != "" {
		if err := os.Remove(pwPath); err != nil && !os.IsNotExist(err) {
			a.Logger.Warn().Err(err).Msg("removing credential file")
		}
	}
	res := Result{Output: buf.String(), Duration: time.Since(start)}
	if runErr != nil {
		return res, classify(code, res.Output, runErr)
	}
	a.Logger.Info().Dur("duration", res.Duration).Msg("playbook finished")
	return res, nil
}

func (a *AnsibleOrchestrator) runner() CommandRunner {
	if a.Runner != nil {
		return a.Runner
	}
	return ExecRunner{}
}

// writeTemp creates an owner-only file holding data.
func (a *AnsibleOrchestrator) writeTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(a.TempDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func fileError(what string, err error) error {
	kind := Failed
	if errors.Is(err, os.ErrPermission) {
		kind = PermissionDenied
	}
	return &Error{Kind: kind, Err: fmt.Errorf("%s: %w", what, err)}
}

var sudoRejections = []string{
	"incorrect sudo password",
	"missing sudo password",
	"sudo: a password is required",
	"sudo: 1 incorrect password attempt",
	"incorrect password attempts",
}

func classify(code int, output string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return &Error{Kind: ToolUnavailable, ExitCode: code, Output: output, Err: err}
	}
	lower := strings.ToLower(output)
	for _, marker := range sudoRejections {
		if strings.Contains(lower, marker) {
			return &Error{Kind: PermissionDenied, ExitCode: code, Output: output, Err: err}
		}
	}
	return &Error{Kind: Failed, ExitCode: code, Output: output, Err: err}
}
