package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"gopkg.in/urfave/cli.v1"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/versioning"
	"github.com/jxl-ui/jxl-release/src/pkg/release/checksum"
	"github.com/jxl-ui/jxl-release/src/pkg/release/notes"
	"github.com/jxl-ui/jxl-release/src/pkg/release/version"
)

func versionInfoCmd(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}

	v, err := version.Resolve(p.Path(p.Manifest))
	if err != nil {
		return err
	}

	repo, err := versioning.Open(p.Dir)
	if err != nil {
		print.Verb(err)
	}
	version.Check(v, repo)

	fmt.Println("version:", v)
	fmt.Println("tag:    ", version.Tag(v))
	return nil
}

func targetsCmd(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Triple", "Platform", "OS", "Arch", "Strategies", "Formats"})
	for _, target := range p.Targets {
		t.AppendRow(table.Row{
			target.Triple,
			target.Platform,
			target.DisplayOS(),
			target.Arch,
			strings.Join(target.Strategies, " > "),
			strings.Join(target.Formats, ", "),
		})
	}
	t.Render()

	print.Info("Failed foreign targets are handled with policy:", p.OnTargetFailure)
	return nil
}

func checksumVerifyCmd(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}

	entries, mismatches, err := checksum.Verify(p.OutputDir())
	if err != nil {
		return err
	}
	for _, m := range mismatches {
		if m.Actual == "" {
			print.Erro(m.Name, "is missing")
		} else {
			print.Erro(m.Name, "has digest", m.Actual, "expected", m.Expected)
		}
	}
	if len(mismatches) > 0 {
		return errors.Errorf("%d of %d archives failed verification", len(mismatches), len(entries))
	}

	print.Info("All", len(entries), "archives match", checksum.Filename)
	return nil
}

func notesCmd(c *cli.Context) error {
	p, err := loadProject(c)
	if err != nil {
		return err
	}
	if !notes.Exists(p) {
		return errors.Errorf("output directory %s does not exist, run 'jxl-release build' first", p.OutputDir())
	}

	v, err := version.Resolve(p.Path(p.Manifest))
	if err != nil {
		return err
	}

	artifacts, err := notes.Scan(p, v)
	if err != nil {
		return err
	}
	body, err := notes.Render(p, v, artifacts)
	if err != nil {
		return err
	}

	fmt.Print(body)
	return nil
}
