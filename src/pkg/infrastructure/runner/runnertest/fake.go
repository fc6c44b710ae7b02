// Package runnertest provides a scriptable Runner for pipeline tests.
package runnertest

import (
	"context"
	"os/exec"
	"strings"
	"sync"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner"
)

// Handler reacts to a command, typically by writing the files the real tool
// would have produced, and returns the tool's error.
type Handler func(cmd runner.Command) error

// Fake records every command and dispatches to handlers keyed by the command
// line prefix, e.g. "cargo build" or "lipo".
type Fake struct {
	mu       sync.Mutex
	Tools    map[string]bool
	Handlers map[string]Handler
	Calls    []runner.Command
}

// New returns a Fake with the given tools available on PATH.
func New(tools ...string) *Fake {
	f := &Fake{Tools: map[string]bool{}, Handlers: map[string]Handler{}}
	for _, t := range tools {
		f.Tools[t] = true
	}
	return f
}

// On registers h for commands whose line starts with prefix.
func (f *Fake) On(prefix string, h Handler) *Fake {
	f.Handlers[prefix] = h
	return f
}

func (f *Fake) LookPath(name string) (string, error) {
	if f.Tools[name] {
		return "/usr/bin/" + name, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

func (f *Fake) Run(_ context.Context, cmd runner.Command) error {
	f.mu.Lock()
	f.Calls = append(f.Calls, cmd)
	f.mu.Unlock()

	line := cmd.String()
	best := ""
	for prefix := range f.Handlers {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil
	}
	return f.Handlers[best](cmd)
}

// Ran reports whether any recorded command line starts with prefix.
func (f *Fake) Ran(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.Calls {
		if strings.HasPrefix(c.String(), prefix) {
			return true
		}
	}
	return false
}
