package commands

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/google/go-github/github"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"gopkg.in/urfave/cli.v1"

	"github.com/jxl-ui/jxl-release/src/config"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
)

var (
	cfg *config.Config // global config
	gh  *github.Client // a github client to use for API requests
)

func Run(args []string, version string) error {
	app := cli.NewApp()

	app.Authors = []cli.Author{
		{
			Name:  "JXL-UI contributors",
			Email: "maintainers@jxl-ui.dev",
		},
	}
	app.Name = "jxl-release"
	app.Usage = "Builds, packages and publishes JXL-UI releases for every supported platform."
	app.Version = version

	cli.VersionFlag = cli.BoolFlag{
		Name:  "appVersion, V",
		Usage: "jxl-release version",
	}

	globalFlags := []cli.Flag{
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "output all detailed information - useful for debugging",
		},
		cli.BoolFlag{
			Name:  "bare",
			Usage: "skip the user configuration file, only the environment is read",
		},
	}
	//nolint:lll
	app.Commands = []cli.Command{
		{
			Name:        "release",
			Usage:       "jxl-release release [--on-target-failure abort|skip] [--yes] [--no-publish]",
			Description: "Resolves the version from the manifest, builds every target, packages the archives, writes SHA256SUMS.txt and publishes a GitHub release.",
			Action:      releaseCmd,
			Flags:       append(globalFlags, releaseFlags...),
		},
		{
			Name:        "build",
			Usage:       "jxl-release build [--target triple]",
			Description: "Runs the release pipeline up to and including the checksum manifest without publishing anything.",
			Action:      buildCmd,
			Flags:       append(globalFlags, buildFlags...),
		},
		{
			Name:        "version-info",
			Usage:       "jxl-release version-info",
			Description: "Prints the version declared in the manifest and the tag it would be released as.",
			Action:      versionInfoCmd,
			Flags:       append(globalFlags, projectFlags...),
		},
		{
			Name:        "targets",
			Usage:       "jxl-release targets",
			Description: "Lists the configured targets with their build strategies and archive formats.",
			Action:      targetsCmd,
			Flags:       append(globalFlags, projectFlags...),
		},
		{
			Name:        "checksum",
			Usage:       "jxl-release checksum <subcommand>",
			Description: "Provides commands for the checksum manifest",
			Subcommands: []cli.Command{
				{
					Name:        "verify",
					Usage:       "jxl-release checksum verify",
					Description: "Recomputes the digest of every archive listed in SHA256SUMS.txt in the output directory.",
					Action:      checksumVerifyCmd,
					Flags:       append(globalFlags, projectFlags...),
				},
			},
		},
		{
			Name:        "notes",
			Usage:       "jxl-release notes > notes.md",
			Description: "Renders the release notes for the archives currently in the output directory.",
			Action:      notesCmd,
			Flags:       append(globalFlags, projectFlags...),
		},
		{
			Name:        "version",
			Description: "Show version number.",
			Action:      cli.VersionPrinter,
		},
		{
			Name:        "docs",
			Usage:       "jxl-release docs > documentation.md",
			Description: "Generate documentation in markdown format and print to standard out.",
			Action: func(c *cli.Context) error {
				docs := GenerateDocs(c.App)
				fmt.Print(docs)
				return nil
			},
		},
	}

	app.Flags = globalFlags
	app.Before = func(c *cli.Context) (err error) {
		err = godotenv.Load(".env")
		if err != nil {
			print.Verb(err)
		}

		verbose := c.GlobalBool("verbose")
		if verbose {
			print.SetVerbose()
			print.Verb("Verbose logging active")
		}
		if runtime.GOOS != "windows" && isatty.IsTerminal(os.Stdout.Fd()) {
			print.SetColoured()
		}

		// "bare" mode is for CI use: no config file is read or written
		if c.GlobalBool("bare") {
			cfg = &config.Config{GitHubToken: os.Getenv("GITHUB_TOKEN")}
		} else {
			configDir, err := fs.ConfigDir()
			if err != nil {
				return err
			}
			cfg, err = config.LoadOrCreateConfig(configDir)
			if err != nil {
				return errors.Wrapf(err, "Failed to load or create jxl-release config in %s", configDir)
			}
		}

		gh = newGitHubClient(cfg.GitHubToken)
		return nil
	}
	app.OnUsageError = func(c *cli.Context, err error, isSubcommand bool) error {
		return err
	}

	return app.Run(args)
}

func newGitHubClient(token string) *github.Client {
	if token == "" {
		return github.NewClient(nil)
	}
	return github.NewClient(
		oauth2.NewClient(context.Background(),
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
	)
}
