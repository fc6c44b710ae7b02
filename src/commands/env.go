package commands

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/jxl-ui/jxl-release/src/config"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner"
	"github.com/jxl-ui/jxl-release/src/pkg/project"
	"github.com/jxl-ui/jxl-release/src/pkg/release/pipeline"
	"github.com/jxl-ui/jxl-release/src/pkg/release/target"
)

var projectFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "dir",
		Value: ".",
		Usage: "working directory for the project - by default, uses the current directory",
	},
}

var buildFlags = append([]cli.Flag{
	cli.StringFlag{
		Name:  "on-target-failure",
		Usage: "`abort` the release on any failed target, or `skip` failed foreign targets - overrides release.yaml",
	},
	cli.StringSliceFlag{
		Name:  "target",
		Usage: "only build the given target triple, may be repeated",
	},
}, projectFlags...)

func applyVerboseFlag(c *cli.Context) bool {
	verbose := c.GlobalBool("verbose") || c.Bool("verbose")
	if verbose {
		print.SetVerbose()
	}
	return verbose
}

// loadProject reads the release definition and applies command line and user
// config overrides.
func loadProject(c *cli.Context) (project.Project, error) {
	applyVerboseFlag(c)

	dir, err := fs.Abs(c.String("dir"))
	if err != nil {
		return project.Project{}, errors.Wrap(err, "failed to resolve project directory")
	}

	p, err := project.Load(dir)
	if err != nil {
		return p, errors.Wrap(err, "failed to load release definition")
	}

	if policy := c.String("on-target-failure"); policy != "" {
		if p.OnTargetFailure, err = project.ParseFailurePolicy(policy); err != nil {
			return p, err
		}
	}
	if err = p.SelectTargets(c.StringSlice("target")); err != nil {
		return p, err
	}
	if cfg != nil && cfg.ContainerImage != "" {
		p.ContainerImage = cfg.ContainerImage
	}

	return p, nil
}

// newPipeline wires a pipeline with the real toolchain and no publisher.
func newPipeline(p project.Project) (pipeline.Pipeline, error) {
	env, err := config.ParseBuildEnv()
	if err != nil {
		return pipeline.Pipeline{}, err
	}
	return pipeline.Pipeline{
		Project:   p,
		Runner:    runner.New(os.Stdout),
		Env:       env,
		HostOS:    runtime.GOOS,
		Container: target.Docker{Host: env.DockerHost, Output: os.Stdout},
		Summary:   os.Stdout,
	}, nil
}
