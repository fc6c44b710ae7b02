package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/urfave/cli.v1"
)

func TestGenerateDocs(t *testing.T) {
	app := cli.NewApp()
	app.Name = "jxl-release"
	app.Version = "1.0.0"
	app.Authors = []cli.Author{{Name: "JXL-UI contributors"}}
	app.Flags = []cli.Flag{cli.BoolFlag{Name: "verbose", Usage: "output all detailed information"}}
	app.Commands = []cli.Command{
		{
			Name:        "checksum",
			Description: "Provides commands for the checksum manifest",
			Subcommands: []cli.Command{
				{
					Name:  "verify",
					Usage: "jxl-release checksum verify",
					Flags: projectFlags,
				},
			},
		},
	}

	docs := GenerateDocs(app)

	assert.Contains(t, docs, "# `jxl-release`\n\n1.0.0 - JXL-UI contributors")
	assert.Contains(t, docs, "## Commands (1)")
	assert.Contains(t, docs, "### `jxl-release checksum verify`")
	assert.Contains(t, docs, "Usage: `jxl-release checksum verify`")
	assert.Contains(t, docs, "- `--dir value`: working directory for the project")
	assert.Contains(t, docs, "- `--verbose`: output all detailed information")
}
