package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-github/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jxl-ui/jxl-release/src/config"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner/runnertest"
	"github.com/jxl-ui/jxl-release/src/pkg/project"
	"github.com/jxl-ui/jxl-release/src/pkg/release/checksum"
	"github.com/jxl-ui/jxl-release/src/pkg/release/publish"
)

const manifest = `[package]
name = "jxl-ui"
version = "1.2.0"
edition = "2021"

[dependencies]
eframe = { version = "0.27" }
`

type fakeAuth struct{ err error }

func (f fakeAuth) Authenticate(context.Context) (string, error) {
	return "releaser", f.err
}

type fakeAPI struct {
	existing *github.RepositoryRelease
	created  *github.RepositoryRelease
	uploaded []string
}

func (f *fakeAPI) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*github.RepositoryRelease, *github.Response, error) {
	if f.existing != nil {
		return f.existing, nil, nil
	}
	resp := &github.Response{Response: &http.Response{StatusCode: http.StatusNotFound}}
	return nil, resp, &github.ErrorResponse{Response: resp.Response}
}

func (f *fakeAPI) DeleteRelease(ctx context.Context, owner, repo string, id int64) (*github.Response, error) {
	return nil, errors.New("unexpected delete")
}

func (f *fakeAPI) DeleteTag(ctx context.Context, owner, repo, tag string) (*github.Response, error) {
	return nil, errors.New("unexpected delete")
}

func (f *fakeAPI) CreateRelease(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, *github.Response, error) {
	release.ID = github.Int64(1)
	f.created = release
	return release, nil, nil
}

func (f *fakeAPI) UploadReleaseAsset(ctx context.Context, owner, repo string, id int64, opt *github.UploadOptions, file *os.File) (*github.ReleaseAsset, *github.Response, error) {
	if _, err := io.Copy(io.Discard, file); err != nil {
		return nil, nil, err
	}
	f.uploaded = append(f.uploaded, opt.Name)
	return &github.ReleaseAsset{Name: github.String(opt.Name)}, nil, nil
}

type declined struct{}

func (declined) Confirm(string) (bool, error) { return false, nil }

// scenario is a project on a linux host with two linux targets and one macOS
// target that cannot be cross compiled.
func scenario(t *testing.T) (project.Project, *runnertest.Fake) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "LICENSE"), []byte("MIT"), 0o644))

	p, err := project.Load(dir)
	require.NoError(t, err)
	require.NoError(t, p.SelectTargets([]string{
		"x86_64-unknown-linux-gnu",
		"aarch64-unknown-linux-gnu",
		"x86_64-apple-darwin",
	}))

	fake := runnertest.New("cargo", "rustup").On("cargo build", func(cmd runner.Command) error {
		triple := cmd.Args[3]
		if strings.Contains(triple, "apple-darwin") {
			return errors.New("linker `cc` not found")
		}
		for _, tg := range p.Targets {
			if tg.Triple == triple {
				out := tg.CargoOutput(p.Dir, p.Binary)
				if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
					return err
				}
				return os.WriteFile(out, []byte("elf:"+triple), 0o755)
			}
		}
		return errors.New("unknown target")
	})
	return p, fake
}

func env() config.BuildEnv {
	return config.BuildEnv{Cargo: "cargo", Cross: "cross"}
}

func outputNames(t *testing.T, p project.Project) []string {
	t.Helper()
	infos, err := os.ReadDir(p.OutputDir())
	require.NoError(t, err)
	var names []string
	for _, info := range infos {
		if !info.IsDir() {
			names = append(names, info.Name())
		}
	}
	sort.Strings(names)
	return names
}

func TestRunSkipsForeignTarget(t *testing.T) {
	p, fake := scenario(t)
	var summary bytes.Buffer

	out, err := Pipeline{
		Project: p,
		Runner:  fake,
		Env:     env(),
		HostOS:  "linux",
		Summary: &summary,
	}.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1.2.0", out.Version)
	assert.Equal(t, "v1.2.0", out.Tag)
	assert.Len(t, out.Built.Built, 2)
	require.Len(t, out.Built.Skipped, 1)
	assert.Equal(t, "x86_64-apple-darwin", out.Built.Skipped[0].Triple)

	assert.Equal(t, []string{
		"RELEASE_NOTES.md",
		"SHA256SUMS.txt",
		"jxl-ui-1.2.0-linux-aarch64.tar.gz",
		"jxl-ui-1.2.0-linux-x86_64.tar.gz",
	}, outputNames(t, p))

	sums, err := os.ReadFile(out.Checksums)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(sums)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "  jxl-ui-1.2.0-linux-aarch64.tar.gz"))
	assert.True(t, strings.HasSuffix(lines[1], "  jxl-ui-1.2.0-linux-x86_64.tar.gz"))

	_, mismatches, err := checksum.Verify(p.OutputDir())
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	rows := 0
	for _, line := range strings.Split(out.Notes, "\n") {
		if strings.HasPrefix(line, "| Linux") {
			rows++
		}
	}
	assert.Equal(t, 2, rows)
	assert.NotContains(t, out.Notes, "macos")

	assert.Contains(t, summary.String(), "skipped")
}

func TestRunPublishes(t *testing.T) {
	p, fake := scenario(t)
	api := &fakeAPI{}

	out, err := Pipeline{
		Project:   p,
		Runner:    fake,
		Env:       env(),
		HostOS:    "linux",
		Auth:      fakeAuth{},
		Publisher: &publish.Publisher{API: api, Confirm: declined{}},
		Summary:   io.Discard,
	}.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, publish.StatePublished, out.State)
	require.NotNil(t, api.created)
	assert.Equal(t, "v1.2.0", api.created.GetTagName())
	assert.Equal(t, "JXL-UI v1.2.0", api.created.GetName())
	assert.Equal(t, []string{
		"jxl-ui-1.2.0-linux-x86_64.tar.gz",
		"jxl-ui-1.2.0-linux-aarch64.tar.gz",
		"SHA256SUMS.txt",
	}, api.uploaded)
}

func TestRunDeclinedOverwrite(t *testing.T) {
	p, fake := scenario(t)
	api := &fakeAPI{existing: &github.RepositoryRelease{ID: github.Int64(9), TagName: github.String("v1.2.0")}}

	out, err := Pipeline{
		Project:   p,
		Runner:    fake,
		Env:       env(),
		HostOS:    "linux",
		Auth:      fakeAuth{},
		Publisher: &publish.Publisher{API: api, Confirm: declined{}},
		Summary:   io.Discard,
	}.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, publish.StateAborted, out.State)
	assert.Nil(t, api.created)
	assert.Empty(t, api.uploaded)
}

func TestRunAbortPolicy(t *testing.T) {
	p, fake := scenario(t)
	p.OnTargetFailure = project.OnFailureAbort

	_, err := Pipeline{Project: p, Runner: fake, Env: env(), HostOS: "linux", Summary: io.Discard}.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x86_64-apple-darwin")
	assert.NoFileExists(t, filepath.Join(p.OutputDir(), checksum.Filename))
}

func TestRunNativeFailureIsFatalUnderSkip(t *testing.T) {
	p, fake := scenario(t)

	// on a macOS host the darwin target is native
	_, err := Pipeline{Project: p, Runner: fake, Env: env(), HostOS: "darwin", Summary: io.Discard}.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "native target")
}

func TestRunMissingToolHasNoSideEffects(t *testing.T) {
	p, _ := scenario(t)
	fake := runnertest.New()

	_, err := Pipeline{Project: p, Runner: fake, Env: env(), HostOS: "linux", Summary: io.Discard}.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cargo")
	assert.NoDirExists(t, p.OutputDir())
	assert.Empty(t, fake.Calls)
}

func TestRunBadCredentialHasNoSideEffects(t *testing.T) {
	p, fake := scenario(t)

	_, err := Pipeline{
		Project:   p,
		Runner:    fake,
		Env:       env(),
		HostOS:    "linux",
		Auth:      fakeAuth{err: errors.New("401 Bad credentials")},
		Publisher: &publish.Publisher{API: &fakeAPI{}, Confirm: declined{}},
		Summary:   io.Discard,
	}.Run(context.Background())
	require.Error(t, err)
	assert.NoDirExists(t, p.OutputDir())
	assert.Empty(t, fake.Calls)
}

func TestRunEmptyVersion(t *testing.T) {
	p, fake := scenario(t)
	require.NoError(t, os.WriteFile(filepath.Join(p.Dir, "Cargo.toml"), []byte("[package]\nversion = \"\"\n"), 0o644))

	_, err := Pipeline{Project: p, Runner: fake, Env: env(), HostOS: "linux", Summary: io.Discard}.Run(context.Background())
	require.Error(t, err)
	assert.NoDirExists(t, p.OutputDir())
}

func TestRunRefusesToWipeProject(t *testing.T) {
	p, fake := scenario(t)
	p.Output = "."

	_, err := Pipeline{Project: p, Runner: fake, Env: env(), HostOS: "linux", Summary: io.Discard}.Run(context.Background())
	require.Error(t, err)
	assert.FileExists(t, filepath.Join(p.Dir, "Cargo.toml"))
	assert.FileExists(t, filepath.Join(p.Dir, "LICENSE"))
	assert.False(t, fake.Ran("cargo build"))
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 KiB", humanSize(1536))
	assert.Equal(t, "2.0 MiB", humanSize(2<<20))
}
