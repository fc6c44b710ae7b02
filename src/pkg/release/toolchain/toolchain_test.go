package toolchain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner/runnertest"
	"github.com/jxl-ui/jxl-release/src/pkg/project"
)

type fakeAuth struct {
	login string
	err   error
	calls int
}

func (f *fakeAuth) Authenticate(ctx context.Context) (string, error) {
	f.calls++
	return f.login, f.err
}

func TestCheckMissingRequiredToolIsFatalBeforeAuth(t *testing.T) {
	auth := &fakeAuth{login: "octocat"}
	g := Gate{Runner: runnertest.New("rustup"), Required: []string{"cargo", "git"}, Auth: auth}

	_, err := g.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cargo, git")
	assert.Equal(t, 0, auth.calls)
}

func TestCheckFailedAuth(t *testing.T) {
	g := Gate{
		Runner:   runnertest.New("cargo"),
		Required: []string{"cargo"},
		Auth:     &fakeAuth{err: errors.New("401 Bad credentials")},
	}

	_, err := g.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not authenticated")
}

func TestCheckOptionalToolsAreReported(t *testing.T) {
	g := Gate{
		Runner:   runnertest.New("cargo", "lipo"),
		Required: []string{"cargo"},
		Optional: []string{"lipo", "hdiutil"},
		Auth:     &fakeAuth{login: "octocat"},
	}

	report, err := g.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Has("lipo"))
	assert.False(t, report.Has("hdiutil"))
	assert.Equal(t, "octocat", report.Account)
}

func TestCheckWithoutAuth(t *testing.T) {
	g := Gate{Runner: runnertest.New("cargo"), Required: []string{"cargo"}}
	_, err := g.Check(context.Background())
	assert.NoError(t, err)
}

func TestToolsFor(t *testing.T) {
	p, err := project.Load(t.TempDir())
	require.NoError(t, err)

	required, optional := ToolsFor(p)
	assert.Equal(t, []string{"cargo"}, required)
	assert.Contains(t, optional, "rustup")
	assert.Contains(t, optional, "cross")
	assert.Contains(t, optional, "cargo-zigbuild")
	assert.Contains(t, optional, "docker")
	assert.Contains(t, optional, "hdiutil")
}
