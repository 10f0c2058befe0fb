// Package runner spawns the reaction command for a changed file.
//
// In wait mode the command is started directly and waited on, so reactions
// are serialized with event observation. In detach mode the runner starts a
// short-lived helper (a re-exec of the current binary) which launches the
// command in a new session and exits immediately. The runner reaps the
// helper, leaving the command orphaned and reparented to init with no zombie
// attached to the watcher.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	kwerrors "github.com/Aman-CERP/kwatch/internal/errors"
)

// EnvTrigger names the environment variable carrying the canonical path of
// the file whose modification triggered the reaction.
const EnvTrigger = "KWATCH_FILE"

// State is a step of the per-trigger spawn protocol.
type State int

const (
	// StateSpawning is entered before the immediate child is created.
	StateSpawning State = iota
	// StateExecing means the immediate child is the command and is being waited on.
	StateExecing
	// StateDetaching means the immediate child is the detach helper.
	StateDetaching
	// StateDone is entered once the immediate child has been reaped or the
	// spawn failed.
	StateDone
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateSpawning:
		return "spawning"
	case StateExecing:
		return "execing"
	case StateDetaching:
		return "detaching"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Observer is notified of every state transition.
type Observer func(trigger string, state State)

// Runner runs a fixed command in reaction to file changes.
type Runner struct {
	command    []string
	wait       bool
	logger     *slog.Logger
	observer   Observer
	executable string
	stdin      *os.File
	stdout     *os.File
	stderr     *os.File
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers a state transition hook.
func WithObserver(fn Observer) Option {
	return func(r *Runner) {
		r.observer = fn
	}
}

// WithExecutable overrides the binary re-executed as the detach helper.
// Defaults to os.Executable().
func WithExecutable(path string) Option {
	return func(r *Runner) {
		r.executable = path
	}
}

// WithStdio sets the descriptors inherited by the command. They must be
// files: a pipe would keep the detach helper's Wait blocked until the
// command exits.
func WithStdio(stdin, stdout, stderr *os.File) Option {
	return func(r *Runner) {
		r.stdin = stdin
		r.stdout = stdout
		r.stderr = stderr
	}
}

// New creates a runner for command. When wait is false, reactions are
// detached.
func New(command []string, wait bool, opts ...Option) (*Runner, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, kwerrors.New(kwerrors.ErrCodeNoCommand, "no command given", nil).
			WithSuggestion("Pass the command after --, e.g. kwatch -d src -- make build")
	}

	r := &Runner{
		command: append([]string(nil), command...),
		wait:    wait,
		logger:  slog.Default(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Command returns a copy of the command argv.
func (r *Runner) Command() []string {
	return append([]string(nil), r.command...)
}

// Wait reports whether reactions are waited on.
func (r *Runner) Wait() bool {
	return r.wait
}

// Run reacts to a modification of trigger. The reaction command is never
// cancelled: ctx only prevents new spawns once it is done. A spawn failure
// is returned; the command's own exit status is not.
func (r *Runner) Run(ctx context.Context, trigger string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.transition(trigger, StateSpawning)
	var err error
	if r.wait {
		err = r.runAndWait(trigger)
	} else {
		err = r.runDetached(trigger)
	}
	r.transition(trigger, StateDone)
	return err
}

func (r *Runner) runAndWait(trigger string) error {
	cmd := exec.Command(r.command[0], r.command[1:]...)
	r.prepare(cmd, trigger)

	if err := cmd.Start(); err != nil {
		return kwerrors.SpawnError(kwerrors.ErrCodeSpawn, r.command[0], err).WithPath(trigger)
	}
	r.transition(trigger, StateExecing)

	err := cmd.Wait()
	r.logger.Debug("reaction exited",
		slog.String("command", r.command[0]),
		slog.String("trigger", trigger),
		slog.Int("exit_code", exitCode(err)))
	return nil
}

func (r *Runner) runDetached(trigger string) error {
	exe := r.executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return kwerrors.SpawnError(kwerrors.ErrCodeSpawn, r.command[0], err).WithPath(trigger)
		}
	}

	helper := exec.Command(exe, r.command...)
	r.prepare(helper, trigger)
	helper.Env = append(helper.Env, EnvDetachHelper+"=1")

	if err := helper.Start(); err != nil {
		return kwerrors.SpawnError(kwerrors.ErrCodeSpawn, r.command[0], err).WithPath(trigger)
	}
	r.transition(trigger, StateDetaching)

	err := helper.Wait()
	if code := exitCode(err); code != 0 {
		cause := fmt.Errorf("detach helper exited with status %d", code)
		if code == helperSpawnFailed {
			cause = errors.New("could not start command")
		}
		return kwerrors.SpawnError(kwerrors.ErrCodeDetachSpawn, r.command[0], cause).WithPath(trigger)
	}

	r.logger.Debug("reaction detached",
		slog.String("command", r.command[0]),
		slog.String("trigger", trigger))
	return nil
}

func (r *Runner) prepare(cmd *exec.Cmd, trigger string) {
	cmd.Stdin = r.stdin
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr
	cmd.Env = append(environWithout(EnvDetachHelper), EnvTrigger+"="+trigger)

	r.logger.Debug("spawning reaction",
		slog.String("command", strings.Join(r.command, " ")),
		slog.String("trigger", trigger),
		slog.Bool("wait", r.wait))
}

func (r *Runner) transition(trigger string, s State) {
	if r.observer != nil {
		r.observer(trigger, s)
	}
}

// exitCode returns 0 for a nil error, the process exit code for an
// *exec.ExitError, and -1 otherwise.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func environWithout(key string) []string {
	prefix := key + "="
	env := os.Environ()
	out := make([]string, 0, len(env))
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return out
}
