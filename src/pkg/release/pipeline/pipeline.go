// Package pipeline runs the release stages in order: version, toolchain,
// build, assemble, checksum and publish.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/go-github/github"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"github.com/jxl-ui/jxl-release/src/config"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/versioning"
	"github.com/jxl-ui/jxl-release/src/pkg/project"
	"github.com/jxl-ui/jxl-release/src/pkg/release/bundle"
	"github.com/jxl-ui/jxl-release/src/pkg/release/checksum"
	"github.com/jxl-ui/jxl-release/src/pkg/release/notes"
	"github.com/jxl-ui/jxl-release/src/pkg/release/publish"
	"github.com/jxl-ui/jxl-release/src/pkg/release/target"
	"github.com/jxl-ui/jxl-release/src/pkg/release/toolchain"
	"github.com/jxl-ui/jxl-release/src/pkg/release/version"
)

// Pipeline is one configured release run.
type Pipeline struct {
	Project   project.Project
	Runner    runner.Runner
	Env       config.BuildEnv
	HostOS    string
	Container target.ContainerBuilder // nil disables the container strategy
	Auth      toolchain.Authenticator // required when Publisher is set
	Publisher *publish.Publisher      // nil stops after the checksum stage
	Summary   io.Writer               // receives the artifact table, stdout when nil
}

// Outcome is what a run produced.
type Outcome struct {
	Version   string
	Tag       string
	Built     target.Result
	Artifacts []bundle.Artifact
	Checksums string
	Notes     string
	Release   *github.RepositoryRelease
	State     publish.State
}

// Run executes every stage and stops at the first fatal error.
func (p Pipeline) Run(ctx context.Context) (out Outcome, err error) {
	if p.Publisher != nil && p.Auth == nil {
		return out, errors.New("publishing requires an authenticated GitHub client")
	}

	out.Version, err = version.Resolve(p.Project.Path(p.Project.Manifest))
	if err != nil {
		return out, errors.Wrap(err, "failed to resolve version")
	}
	out.Tag = version.Tag(out.Version)
	print.Info("Releasing", p.Project.AppName, out.Tag)

	repo, errRepo := versioning.Open(p.Project.Dir)
	if errRepo != nil {
		print.Verb("no git repository:", errRepo)
	}
	version.Check(out.Version, repo)

	required, optional := toolchain.ToolsFor(p.Project)
	if p.Env.Cargo != "" {
		required = []string{p.Env.Cargo}
	}
	gate := toolchain.Gate{Runner: p.Runner, Required: required, Optional: optional}
	if p.Publisher != nil {
		gate.Auth = p.Auth
	}
	if _, err = gate.Check(ctx); err != nil {
		return out, err
	}

	if err = p.Project.ValidateOutput(); err != nil {
		return out, err
	}
	if err = fs.ResetDir(p.Project.OutputDir(), fs.PermDirShared); err != nil {
		return out, errors.Wrap(err, "failed to reset output directory")
	}

	builder := target.Builder{
		Runner:    p.Runner,
		Project:   p.Project,
		Env:       p.Env,
		HostOS:    p.HostOS,
		Policy:    p.Project.OnTargetFailure,
		Container: p.Container,
	}
	out.Built, err = builder.BuildAll(ctx)
	if err != nil {
		return out, err
	}
	if len(out.Built.Built) == 0 {
		return out, errors.New("no targets were built")
	}

	assembler := bundle.Assembler{
		Runner:  p.Runner,
		Project: p.Project,
		Version: out.Version,
		MTime:   p.Env.ArchiveTime(),
	}
	out.Artifacts, err = assembler.Assemble(ctx, out.Built)
	if err != nil {
		return out, errors.Wrap(err, "failed to assemble artifacts")
	}

	out.Checksums, _, err = checksum.Generate(p.Project.OutputDir())
	if err != nil {
		return out, err
	}

	out.Notes, err = notes.Render(p.Project, out.Version, out.Artifacts)
	if err != nil {
		return out, err
	}
	if _, err = notes.WriteFile(p.Project, out.Notes); err != nil {
		return out, err
	}

	p.summarise(out)

	if p.Publisher == nil {
		print.Info("Skipping publish, artifacts are in", p.Project.OutputDir())
		return out, nil
	}

	owner, name, err := p.Project.OwnerRepo()
	if err != nil {
		return out, err
	}
	rel := publish.Release{
		Owner:  owner,
		Repo:   name,
		Tag:    out.Tag,
		Name:   p.Project.AppName + " " + out.Tag,
		Body:   out.Notes,
		Assets: append(artifactPaths(out.Artifacts), out.Checksums),
	}
	if repo != nil {
		if head, errHead := repo.Head(); errHead == nil {
			rel.Commitish = head
		}
	}

	out.Release, out.State, err = p.Publisher.Publish(ctx, rel)
	return out, err
}

func artifactPaths(artifacts []bundle.Artifact) (paths []string) {
	for _, a := range artifacts {
		paths = append(paths, a.Path)
	}
	return
}

func (p Pipeline) summarise(out Outcome) {
	w := p.Summary
	if w == nil {
		w = os.Stdout
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Platform", "Format", "File", "Size"})
	for _, a := range out.Artifacts {
		size := ""
		if info, err := os.Stat(a.Path); err == nil {
			size = humanSize(info.Size())
		}
		t.AppendRow(table.Row{a.Platform, a.Format, filepath.Base(a.Path), size})
	}
	for _, s := range out.Built.Skipped {
		t.AppendRow(table.Row{s.Platform, "-", "skipped", ""})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
