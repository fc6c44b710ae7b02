package commands

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/jxl-ui/jxl-release/src/pkg/release/publish"
)

var releaseFlags = append([]cli.Flag{
	cli.BoolFlag{
		Name:  "yes, y",
		Usage: "replace an existing release with the same tag without asking",
	},
	cli.BoolFlag{
		Name:  "no-publish",
		Usage: "stop after writing the checksum manifest",
	},
}, buildFlags...)

func releaseCmd(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}

	pl, err := newPipeline(p)
	if err != nil {
		return err
	}

	if !c.Bool("no-publish") {
		if cfg == nil || cfg.GitHubToken == "" {
			return errors.New("no GitHub token configured - set JXL_RELEASE_GITHUB_TOKEN or GITHUB_TOKEN, or use --no-publish")
		}
		api := publish.GitHub{Client: gh}
		pl.Auth = api
		pl.Publisher = &publish.Publisher{
			API: api,
			Confirm: publish.Prompt{
				AssumeYes:      c.Bool("yes") || cfg.DefaultYes,
				NonInteractive: cfg.CI != "",
			},
		}
	}

	if _, err = pl.Run(context.Background()); err != nil {
		return errors.Wrap(err, "failed to release")
	}
	return nil
}

func buildCmd(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}

	pl, err := newPipeline(p)
	if err != nil {
		return err
	}

	if _, err = pl.Run(context.Background()); err != nil {
		return errors.Wrap(err, "failed to build")
	}
	return nil
}
