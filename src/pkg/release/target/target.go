// Package target compiles the application once per configured target triple.
package target

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/jxl-ui/jxl-release/src/config"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner"
	"github.com/jxl-ui/jxl-release/src/pkg/project"
)

// ContainerBuilder runs a build command inside a container with the project
// directory mounted.
type ContainerBuilder interface {
	Build(ctx context.Context, image, projectDir string, cmd []string) error
}

// Built is a target that compiled successfully.
type Built struct {
	Target project.Target
	Binary string // absolute path of the produced executable
}

// Result is the outcome of building every target.
type Result struct {
	Built   []Built
	Skipped []project.Target
}

// Find returns the built entry for a triple.
func (r Result) Find(triple string) (Built, bool) {
	for _, b := range r.Built {
		if b.Target.Triple == triple {
			return b, true
		}
	}
	return Built{}, false
}

// Builder compiles targets with the configured strategies and failure policy.
type Builder struct {
	Runner    runner.Runner
	Project   project.Project
	Env       config.BuildEnv
	HostOS    string
	Policy    project.FailurePolicy
	Container ContainerBuilder // nil disables the container strategy
}

// BuildAll builds every target in order. A target that cannot be built is
// fatal when it is native or the policy is abort, otherwise it is skipped.
func (b Builder) BuildAll(ctx context.Context) (Result, error) {
	var result Result
	for _, t := range b.Project.Targets {
		print.Info("Building", t.String())

		binary, err := b.Build(ctx, t)
		if err == nil {
			result.Built = append(result.Built, Built{Target: t, Binary: binary})
			continue
		}

		if t.Native(b.HostOS) {
			return result, errors.Wrapf(err, "native target %s failed to build", t.Triple)
		}
		if b.Policy != project.OnFailureSkip {
			return result, errors.Wrapf(err, "target %s failed to build", t.Triple)
		}
		print.Warn("Skipping", t.String(), "-", err)
		result.Skipped = append(result.Skipped, t)
	}
	return result, nil
}

// Build compiles a single target, trying each strategy in order, and returns
// the path of the produced binary.
func (b Builder) Build(ctx context.Context, t project.Target) (string, error) {
	// adding the target is best-effort, the toolchain may already have it or
	// the strategy may bring its own
	if _, err := b.Runner.LookPath("rustup"); err == nil {
		if err := b.Runner.Run(ctx, runner.Command{Name: "rustup", Args: []string{"target", "add", t.Triple}}); err != nil {
			print.Verb("rustup target add", t.Triple, "failed:", err)
		}
	}

	output := t.CargoOutput(b.Project.Dir, b.Project.Binary)

	var failures []string
	for _, strategy := range t.Strategies {
		err := b.attempt(ctx, strategy, t)
		if err == nil && !fs.IsFile(output) {
			err = errors.Errorf("no binary at %s", output)
		}
		if err == nil {
			if err := fs.ChmodIfPosix(t.OS, output, fs.PermFileExec); err != nil {
				return "", errors.Wrap(err, "failed to mark binary executable")
			}
			print.Verb("built", t.Triple, "with", strategy)
			return output, nil
		}
		print.Verb("strategy", strategy, "failed for", t.Triple+":", err)
		failures = append(failures, strategy+": "+err.Error())
	}

	return "", errors.Errorf("all build strategies failed:\n  %s", strings.Join(failures, "\n  "))
}

// containerScript adds the target inside the container and then runs cargo
// with the remaining positional arguments, so no argument is re-parsed by the shell.
const containerScript = `rustup target add "$1" && shift && exec cargo "$@"`

func (b Builder) attempt(ctx context.Context, strategy string, t project.Target) error {
	args := append([]string{"build", "--release", "--target", t.Triple}, b.Env.CargoFlags...)
	// a global CARGO_TARGET_DIR would put the binary somewhere CargoOutput does not look
	env := []string{"CARGO_TARGET_DIR=" + filepath.Join(b.Project.Dir, "target")}

	switch strategy {
	case project.StrategyCargo:
		return b.Runner.Run(ctx, runner.Command{Name: b.Env.Cargo, Args: args, Dir: b.Project.Dir, Env: env})

	case project.StrategyCross:
		if _, err := b.Runner.LookPath(b.Env.Cross); err != nil {
			return errors.Errorf("%s is not installed", b.Env.Cross)
		}
		return b.Runner.Run(ctx, runner.Command{Name: b.Env.Cross, Args: args, Dir: b.Project.Dir, Env: env})

	case project.StrategyZigbuild:
		if _, err := b.Runner.LookPath("cargo-zigbuild"); err != nil {
			return errors.New("cargo-zigbuild is not installed")
		}
		args[0] = "zigbuild"
		return b.Runner.Run(ctx, runner.Command{Name: b.Env.Cargo, Args: args, Dir: b.Project.Dir, Env: env})

	case project.StrategyContainer:
		if b.Container == nil {
			return errors.New("container builds are not available")
		}
		cmd := append([]string{"sh", "-c", containerScript, "sh", t.Triple}, args...)
		return b.Container.Build(ctx, b.Project.ContainerImage, b.Project.Dir, cmd)
	}

	return errors.Errorf("unknown strategy %s", strategy)
}
