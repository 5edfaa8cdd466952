// Package runner invokes the external tools of the release pipeline.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/imagecompressor/tools/util"

	"github.com/pkg/errors"
)

// Command is one invocation of an external tool.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner runs a command to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExitError is returned when a tool exits with a non-zero code.
type ExitError struct {
	Command Command
	Code    int
	Output  string
}

// OutputTailLines bounds how much tool output an ExitError message carries.
const OutputTailLines = 10

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command.Name, e.Code)
	if tail := Tail(e.Output, OutputTailLines); tail != "" {
		msg += ":\n" + tail
	}
	return msg
}

// Tail returns the last n non-empty lines of out.
func Tail(out string, n int) string {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			kept = append(kept, lines[i])
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return strings.Join(kept, "\n")
}

// ExitCode returns the exit code carried by err, 0 for nil and 1
// when err did not come from a tool exiting.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := errors.Cause(err).(*ExitError); ok && e.Code > 0 {
		return e.Code
	}
	return 1
}

// Exec runs commands as local processes.
type Exec struct {
	// Stdout, when set, also receives the combined tool output.
	Stdout io.Writer
}

// Run blocks until the process exits. Output lines are logged as they
// arrive.
func (r Exec) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var out bytes.Buffer
	lw := &lineLogger{ctx: ctx}
	writers := []io.Writer{&out, lw}
	if r.Stdout != nil {
		writers = append(writers, r.Stdout)
	}
	// one writer for both streams keeps exec to a single copying goroutine
	w := io.MultiWriter(writers...)
	cmd.Stdout, cmd.Stderr = w, w

	util.Infof(ctx, "run %s\n", c)
	err := cmd.Run()
	lw.Flush()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &ExitError{Command: c, Code: exitErr.ExitCode(), Output: out.String()}
		}
		return errors.Wrapf(err, "could not run %s", c.Name)
	}
	return nil
}

// lineLogger logs every complete line written to it.
type lineLogger struct {
	ctx     context.Context
	pending []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.pending = append(l.pending, p...)
	for {
		i := bytes.IndexByte(l.pending, '\n')
		if i < 0 {
			break
		}
		l.log(l.pending[:i])
		l.pending = l.pending[i+1:]
	}
	return len(p), nil
}

// Flush logs a trailing line without a newline.
func (l *lineLogger) Flush() {
	if len(l.pending) > 0 {
		l.log(l.pending)
		l.pending = nil
	}
}

func (l *lineLogger) log(line []byte) {
	util.Infof(l.ctx, "| %s\n", bytes.TrimRight(line, "\r"))
}

// Recorder captures commands without running them. Fail maps a command
// name to the error its run returns; Hook runs before each command.
type Recorder struct {
	Commands []Command
	Fail     map[string]error
	Hook     func(Command) error
}

// Run records c.
func (r *Recorder) Run(ctx context.Context, c Command) error {
	r.Commands = append(r.Commands, c)
	if r.Hook != nil {
		if err := r.Hook(c); err != nil {
			return err
		}
	}
	if err, ok := r.Fail[c.Name]; ok {
		return err
	}
	return nil
}
