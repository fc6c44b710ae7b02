package target

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jxl-ui/jxl-release/src/config"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner/runnertest"
	"github.com/jxl-ui/jxl-release/src/pkg/project"
)

func testProject(t *testing.T, triples ...string) project.Project {
	t.Helper()
	p, err := project.Load(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, p.SelectTargets(triples))
	return p
}

// produces writes the binary cargo would have written for the --target argument.
func produces(p project.Project) runnertest.Handler {
	return func(cmd runner.Command) error {
		var triple string
		for i, a := range cmd.Args {
			if a == "--target" {
				triple = cmd.Args[i+1]
			}
		}
		for _, t := range p.Targets {
			if t.Triple == triple {
				out := t.CargoOutput(p.Dir, p.Binary)
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				return os.WriteFile(out, []byte("binary:"+triple), 0o644)
			}
		}
		return errors.New("unknown target")
	}
}

func failsFor(triple string, next runnertest.Handler) runnertest.Handler {
	return func(cmd runner.Command) error {
		if strings.Contains(cmd.String(), triple) {
			return errors.New("linker not found")
		}
		return next(cmd)
	}
}

func env() config.BuildEnv {
	return config.BuildEnv{Cargo: "cargo", Cross: "cross"}
}

func TestBuildAllSuccess(t *testing.T) {
	p := testProject(t, "x86_64-unknown-linux-gnu", "aarch64-unknown-linux-gnu")
	fake := runnertest.New("cargo", "rustup").On("cargo build", produces(p))

	b := Builder{Runner: fake, Project: p, Env: env(), HostOS: "linux", Policy: project.OnFailureAbort}
	result, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Built, 2)
	assert.Empty(t, result.Skipped)
	assert.True(t, fake.Ran("rustup target add x86_64-unknown-linux-gnu"))
	assert.True(t, fake.Ran("cargo build --release --target aarch64-unknown-linux-gnu"))

	built, ok := result.Find("x86_64-unknown-linux-gnu")
	require.True(t, ok)
	assert.FileExists(t, built.Binary)
}

func TestBuildRustupFailureIsIgnored(t *testing.T) {
	p := testProject(t, "x86_64-unknown-linux-gnu")
	fake := runnertest.New("cargo", "rustup").
		On("rustup", func(runner.Command) error { return errors.New("offline") }).
		On("cargo build", produces(p))

	b := Builder{Runner: fake, Project: p, Env: env(), HostOS: "linux", Policy: project.OnFailureAbort}
	_, err := b.BuildAll(context.Background())
	assert.NoError(t, err)
}

func TestBuildFallsBackToNextStrategy(t *testing.T) {
	p := testProject(t, "x86_64-pc-windows-msvc")
	fake := runnertest.New("cargo", "cross").
		On("cargo build", func(runner.Command) error { return errors.New("no msvc linker") }).
		On("cross build", produces(p))

	b := Builder{Runner: fake, Project: p, Env: env(), HostOS: "linux", Policy: project.OnFailureSkip}
	result, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Built, 1)
	assert.True(t, fake.Ran("cross build --release --target x86_64-pc-windows-msvc"))
	assert.False(t, fake.Ran("cargo zigbuild"), "later strategies are not tried once one succeeds")
}

func TestBuildSkipPolicySkipsForeignTarget(t *testing.T) {
	p := testProject(t, "x86_64-unknown-linux-gnu", "aarch64-apple-darwin")
	fake := runnertest.New("cargo").On("cargo build", failsFor("apple-darwin", produces(p)))

	b := Builder{Runner: fake, Project: p, Env: env(), HostOS: "linux", Policy: project.OnFailureSkip}
	result, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Built, 1)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "aarch64-apple-darwin", result.Skipped[0].Triple)
}

func TestBuildAbortPolicyStopsOnForeignFailure(t *testing.T) {
	p := testProject(t, "aarch64-apple-darwin", "x86_64-unknown-linux-gnu")
	fake := runnertest.New("cargo").On("cargo build", failsFor("apple-darwin", produces(p)))

	b := Builder{Runner: fake, Project: p, Env: env(), HostOS: "linux", Policy: project.OnFailureAbort}
	_, err := b.BuildAll(context.Background())
	require.Error(t, err)
	assert.False(t, fake.Ran("cargo build --release --target x86_64-unknown-linux-gnu"))
}

func TestBuildNativeFailureIsAlwaysFatal(t *testing.T) {
	p := testProject(t, "x86_64-unknown-linux-gnu")
	fake := runnertest.New("cargo").On("cargo build", failsFor("linux", produces(p)))

	b := Builder{Runner: fake, Project: p, Env: env(), HostOS: "linux", Policy: project.OnFailureSkip}
	_, err := b.BuildAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "native target")
}

func TestBuildSucceededWithoutBinaryIsAFailure(t *testing.T) {
	p := testProject(t, "aarch64-apple-darwin")
	fake := runnertest.New("cargo")

	b := Builder{Runner: fake, Project: p, Env: env(), HostOS: "linux", Policy: project.OnFailureSkip}
	result, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Skipped, 1)
}

type fakeContainer struct {
	image string
	cmd   []string
	then  func() error
}

func (f *fakeContainer) Build(ctx context.Context, image, projectDir string, cmd []string) error {
	f.image = image
	f.cmd = cmd
	return f.then()
}

func TestBuildContainerStrategy(t *testing.T) {
	p := testProject(t, "aarch64-unknown-linux-gnu")
	p.Targets[0].Strategies = []string{project.StrategyContainer}
	fake := runnertest.New()
	cnt := &fakeContainer{then: func() error {
		return produces(p)(runner.Command{Args: []string{"--target", "aarch64-unknown-linux-gnu"}})
	}}

	b := Builder{Runner: fake, Project: p, Env: env(), HostOS: "darwin", Policy: project.OnFailureAbort, Container: cnt}
	result, err := b.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Built, 1)
	assert.Equal(t, "rust:1-bookworm", cnt.image)
	assert.Equal(t, []string{
		"sh", "-c", containerScript, "sh", "aarch64-unknown-linux-gnu",
		"build", "--release", "--target", "aarch64-unknown-linux-gnu",
	}, cnt.cmd)
}

func TestBuildContainerKeepsCargoFlagsIntact(t *testing.T) {
	p := testProject(t, "aarch64-unknown-linux-gnu")
	p.Targets[0].Strategies = []string{project.StrategyContainer}
	cnt := &fakeContainer{then: func() error {
		return produces(p)(runner.Command{Args: []string{"--target", "aarch64-unknown-linux-gnu"}})
	}}
	e := env()
	e.CargoFlags = []string{"--features=avif jxl", "--config=build.rustflags='-C target-cpu=native'; rm -rf /"}

	b := Builder{Runner: runnertest.New(), Project: p, Env: e, HostOS: "darwin", Policy: project.OnFailureAbort, Container: cnt}
	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	// flags travel as separate positional arguments, never inside the script
	assert.Equal(t, e.CargoFlags, cnt.cmd[len(cnt.cmd)-2:])
	assert.NotContains(t, cnt.cmd[2], "avif")
}

func TestBuildPinsCargoTargetDir(t *testing.T) {
	p := testProject(t, "x86_64-unknown-linux-gnu")
	t.Setenv("CARGO_TARGET_DIR", filepath.Join(t.TempDir(), "elsewhere"))
	fake := runnertest.New("cargo").On("cargo build", produces(p))

	b := Builder{Runner: fake, Project: p, Env: env(), HostOS: "linux", Policy: project.OnFailureAbort}
	_, err := b.BuildAll(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, fake.Calls)
	build := fake.Calls[len(fake.Calls)-1]
	assert.Equal(t, "cargo build --release --target x86_64-unknown-linux-gnu", build.String())
	assert.Contains(t, build.Env, "CARGO_TARGET_DIR="+filepath.Join(p.Dir, "target"))
}
