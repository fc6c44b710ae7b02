// Package notes renders the release description published with each release.
package notes

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
	"github.com/jxl-ui/jxl-release/src/pkg/project"
	"github.com/jxl-ui/jxl-release/src/pkg/release/bundle"
	"github.com/jxl-ui/jxl-release/src/pkg/release/checksum"
	"github.com/jxl-ui/jxl-release/src/pkg/release/version"
)

var notesTemplate = template.Must(template.New("notes").Parse(`## {{ .AppName }} {{ .Tag }}

### Downloads

{{ .Table }}

### Verifying downloads

Every file above is listed with its SHA-256 digest in ` + "`{{ .Checksums }}`" + `.
Download it next to the archives and run:

` + "```" + `
sha256sum --check --ignore-missing {{ .Checksums }}
` + "```" + `

On macOS use ` + "`shasum -a 256 --check --ignore-missing {{ .Checksums }}`" + `.
`))

// Render produces the markdown body for a release of version. Only artifacts
// that exist on disk get a row in the download table.
func Render(p project.Project, ver string, artifacts []bundle.Artifact) (string, error) {
	tag := version.Tag(ver)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Platform", "Architecture", "File"})
	rows := 0
	for _, a := range artifacts {
		if !fs.IsFile(a.Path) {
			continue
		}
		t.AppendRow(table.Row{platformLabel(a), archLabel(a.Arch), fileLink(p.Repository, tag, a.Name)})
		rows++
	}
	if rows == 0 {
		return "", errors.New("no artifacts to list in the release notes")
	}

	var buf bytes.Buffer
	err := notesTemplate.Execute(&buf, struct {
		AppName   string
		Tag       string
		Table     string
		Checksums string
	}{
		AppName:   p.AppName,
		Tag:       tag,
		Table:     t.RenderMarkdown(),
		Checksums: checksum.Filename,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to render release notes")
	}
	return buf.String(), nil
}

func platformLabel(a bundle.Artifact) string {
	if a.Format == project.FormatDMG {
		return a.OS + " (disk image)"
	}
	return a.OS
}

func archLabel(arch string) string {
	switch arch {
	case "x86_64":
		return "x86_64 (Intel/AMD)"
	case "aarch64":
		return "aarch64 (ARM64)"
	case "universal":
		return "Universal (Apple Silicon + Intel)"
	}
	return arch
}

func fileLink(repository, tag, name string) string {
	return fmt.Sprintf("[%s](https://github.com/%s/releases/download/%s/%s)", name, repository, tag, name)
}

// Scan rebuilds the artifact list of version from the archives already in
// the output directory, matching each file to a configured target by its
// platform label.
func Scan(p project.Project, ver string) ([]bundle.Artifact, error) {
	names, err := checksum.Archives(p.OutputDir())
	if err != nil {
		return nil, err
	}

	prefix := p.Binary + "-" + ver + "-"
	var artifacts []bundle.Artifact
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		platform, format := splitFormat(strings.TrimPrefix(name, prefix))
		a := bundle.Artifact{
			Path:     filepath.Join(p.OutputDir(), name),
			Name:     name,
			Platform: platform,
			Format:   format,
		}
		if platform == bundle.PlatformUniversal {
			a.OS, a.Arch, a.Universal = "macOS", "universal", true
		} else {
			found := false
			for _, t := range p.Targets {
				if t.Platform == platform {
					a.OS, a.Arch = t.DisplayOS(), t.Arch
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

func splitFormat(s string) (platform, format string) {
	for _, f := range []string{project.FormatTarGz, project.FormatZip, project.FormatDMG} {
		if strings.HasSuffix(s, "."+f) {
			return strings.TrimSuffix(s, "."+f), f
		}
	}
	return s, ""
}

// WriteFile saves rendered notes next to the archives for inspection.
func WriteFile(p project.Project, body string) (string, error) {
	path := filepath.Join(p.OutputDir(), "RELEASE_NOTES.md")
	if err := fs.WriteFileAtomic(path, []byte(body), fs.PermDirShared, fs.PermFileShared); err != nil {
		return "", errors.Wrap(err, "failed to write release notes")
	}
	return path, nil
}

// Exists reports whether an output directory has been produced for p.
func Exists(p project.Project) bool {
	info, err := os.Stat(p.OutputDir())
	return err == nil && info.IsDir()
}
