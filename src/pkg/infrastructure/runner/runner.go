// Package runner executes the external tools the release pipeline drives:
// cargo, rustup, lipo, sips, iconutil and hdiutil.
package runner

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"rs3.io/go/mserr/ntstatus"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
)

// Command is a single blocking invocation of an external tool.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the current environment
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner lets the pipeline stages be tested without real toolchains.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
	LookPath(name string) (string, error)
}

// Exec runs commands as real subprocesses, streaming their output.
type Exec struct {
	Output io.Writer
}

// New returns a Runner that streams subprocess output to w.
func New(w io.Writer) *Exec {
	if w == nil {
		w = os.Stdout
	}
	return &Exec{Output: w}
}

// LookPath finds name on PATH.
func (e *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes cmd and waits for it to exit. The last lines of stderr are
// attached to the returned error.
func (e *Exec) Run(ctx context.Context, c Command) error {
	print.Verb("running", c.String())

	cmd := exec.CommandContext(ctx, c.Name, c.Args...) //nolint:gas
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stderr bytes.Buffer
	cmd.Stdout = e.Output
	cmd.Stderr = io.MultiWriter(e.Output, &stderr)

	err := cmd.Run()
	if err == nil {
		return nil
	}
	return errors.Wrapf(describe(err), "%s failed%s", c.Name, tail(stderr.String(), 5))
}

func describe(err error) error {
	exitErr, ok := err.(*exec.ExitError)
	if !ok || runtime.GOOS != "windows" {
		return err
	}
	// crashes on windows surface as NTSTATUS values rather than small exit codes
	return errors.Errorf("exit status %s", ntstatus.NTStatus(exitErr.ExitCode()).String())
}

func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return ""
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return ":\n" + strings.Join(lines, "\n")
}
