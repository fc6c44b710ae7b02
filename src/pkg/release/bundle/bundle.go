// Package bundle stages built binaries into per-platform directories, wraps
// macOS binaries in application bundles and compresses everything into the
// archives that get published.
package bundle

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/otiai10/copy"
	"github.com/pkg/errors"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner"
	"github.com/jxl-ui/jxl-release/src/pkg/project"
	"github.com/jxl-ui/jxl-release/src/pkg/release/target"
)

const (
	darwinArm   = "aarch64-apple-darwin"
	darwinIntel = "x86_64-apple-darwin"

	// PlatformUniversal labels the merged two-architecture macOS bundle
	PlatformUniversal = "macos-universal"
)

// Artifact is one archive file in the output directory.
type Artifact struct {
	Path      string
	Name      string
	Platform  string
	OS        string // display name, e.g. macOS
	Arch      string
	Format    string
	Universal bool
}

// Staged is a staging directory ready to be archived.
type Staged struct {
	Dir      string
	Platform string
	OS       string
	Arch     string
	Formats  []string
	App      string // path of the .app bundle inside Dir, darwin only
}

// Assembler turns build results into archives in the output directory.
type Assembler struct {
	Runner  runner.Runner
	Project project.Project
	Version string
	MTime   time.Time
}

// Assemble stages every built target, adds the universal macOS bundle when
// both architectures exist, and writes all archives plus the disk image.
func (a Assembler) Assemble(ctx context.Context, result target.Result) ([]Artifact, error) {
	var staged []Staged
	for _, b := range result.Built {
		s, err := a.stage(ctx, b.Target.Platform, b.Target, b.Binary)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stage %s", b.Target.Platform)
		}
		staged = append(staged, s)
	}

	universal, ok, err := a.universal(ctx, result)
	if err != nil {
		return nil, err
	}
	if ok {
		staged = append(staged, universal)
	}

	var artifacts []Artifact
	for _, s := range staged {
		for _, format := range s.Formats {
			art, err := a.archive(s, format)
			if err != nil {
				return nil, err
			}
			artifacts = append(artifacts, art)
		}
	}

	if ok {
		dmg, made, err := a.diskImage(ctx, universal)
		if err != nil {
			return nil, err
		}
		if made {
			artifacts = append(artifacts, dmg)
		}
	}

	return artifacts, nil
}

// BaseName is the shared stem of a staging directory and its archives.
func (a Assembler) BaseName(platform string) string {
	return a.Project.Binary + "-" + a.Version + "-" + platform
}

func (a Assembler) stage(ctx context.Context, platform string, t project.Target, binary string) (Staged, error) {
	dir := filepath.Join(a.Project.OutputDir(), a.BaseName(platform))
	if err := fs.ResetDir(dir, fs.PermDirShared); err != nil {
		return Staged{}, err
	}
	s := Staged{Dir: dir, Platform: platform, OS: t.DisplayOS(), Arch: t.Arch, Formats: t.Formats}

	if t.OS == "darwin" {
		app, err := a.appBundle(ctx, dir, binary)
		if err != nil {
			return Staged{}, err
		}
		s.App = app
	} else {
		if err := copy.Copy(binary, filepath.Join(dir, t.Executable(a.Project.Binary))); err != nil {
			return Staged{}, errors.Wrap(err, "failed to copy binary")
		}
	}

	for _, extra := range a.Project.Extras {
		src := a.Project.Path(extra)
		if !fs.IsFile(src) {
			print.Verb("extra file", extra, "not found, skipping")
			continue
		}
		if err := copy.Copy(src, filepath.Join(dir, filepath.Base(extra))); err != nil {
			return Staged{}, errors.Wrapf(err, "failed to copy %s", extra)
		}
	}

	print.Verb("staged", platform, "in", dir)
	return s, nil
}

// appBundle lays out <App>.app inside dir and returns its path.
func (a Assembler) appBundle(ctx context.Context, dir, binary string) (string, error) {
	app := filepath.Join(dir, a.Project.AppName+".app")
	contents := filepath.Join(app, "Contents")

	if err := copy.Copy(binary, filepath.Join(contents, "MacOS", a.Project.Binary)); err != nil {
		return "", errors.Wrap(err, "failed to copy binary into bundle")
	}
	if err := os.Chmod(filepath.Join(contents, "MacOS", a.Project.Binary), fs.PermFileExec); err != nil {
		return "", err
	}

	hasIcon := false
	icon := a.Project.Path(a.Project.Icon)
	if a.Project.Icon != "" && fs.IsFile(icon) {
		resources := filepath.Join(contents, "Resources")
		if err := fs.EnsureDir(resources, fs.PermDirShared); err != nil {
			return "", err
		}
		if err := makeIcon(ctx, a.Runner, icon, filepath.Join(resources, "AppIcon.icns")); err != nil {
			print.Warn("Continuing without an application icon:", err)
			if err := os.RemoveAll(resources); err != nil {
				return "", errors.Wrap(err, "failed to clean up icon resources")
			}
		} else {
			hasIcon = true
		}
	}

	plist, err := RenderPlist(PlistFields{
		Name:       a.Project.AppName,
		Identifier: a.Project.Identifier,
		Version:    a.Version,
		Executable: a.Project.Binary,
		HasIcon:    hasIcon,
	})
	if err != nil {
		return "", err
	}
	if err := fs.WriteFileAtomic(filepath.Join(contents, "Info.plist"), plist, fs.PermDirShared, fs.PermFileShared); err != nil {
		return "", errors.Wrap(err, "failed to write Info.plist")
	}

	return app, nil
}

// universal merges the two macOS binaries with lipo and stages the result.
// It reports false when either architecture is missing or lipo is unavailable.
func (a Assembler) universal(ctx context.Context, result target.Result) (Staged, bool, error) {
	arm, okArm := result.Find(darwinArm)
	intel, okIntel := result.Find(darwinIntel)
	if !okArm || !okIntel {
		return Staged{}, false, nil
	}
	if _, err := a.Runner.LookPath("lipo"); err != nil {
		print.Warn("lipo not found, skipping universal macOS bundle")
		return Staged{}, false, nil
	}

	merged := filepath.Join(a.Project.OutputDir(), ".universal", a.Project.Binary)
	if err := fs.EnsureDirForFile(merged, fs.PermDirShared); err != nil {
		return Staged{}, false, err
	}
	defer os.RemoveAll(filepath.Dir(merged))

	err := a.Runner.Run(ctx, runner.Command{
		Name: "lipo",
		Args: []string{"-create", "-output", merged, arm.Binary, intel.Binary},
	})
	if err != nil {
		print.Warn("Failed to create universal binary, skipping universal macOS bundle:", err)
		return Staged{}, false, nil
	}

	t := arm.Target
	t.Arch = "universal"
	s, err := a.stage(ctx, PlatformUniversal, t, merged)
	if err != nil {
		return Staged{}, false, errors.Wrap(err, "failed to stage universal bundle")
	}
	return s, true, nil
}

func (a Assembler) archive(s Staged, format string) (Artifact, error) {
	name := filepath.Base(s.Dir) + "." + format
	dest := filepath.Join(a.Project.OutputDir(), name)

	var err error
	switch format {
	case project.FormatTarGz:
		err = WriteTarGz(s.Dir, dest, a.MTime)
	case project.FormatZip:
		err = WriteZip(s.Dir, dest, a.MTime)
	default:
		err = errors.Errorf("unsupported archive format %s", format)
	}
	if err != nil {
		return Artifact{}, errors.Wrapf(err, "failed to write %s", name)
	}

	print.Info("Created", name)
	return Artifact{
		Path:      dest,
		Name:      name,
		Platform:  s.Platform,
		OS:        s.OS,
		Arch:      s.Arch,
		Format:    format,
		Universal: s.Platform == PlatformUniversal,
	}, nil
}

// diskImage wraps the universal bundle in a drag-install disk image. It is
// skipped when hdiutil is unavailable.
func (a Assembler) diskImage(ctx context.Context, s Staged) (Artifact, bool, error) {
	if _, err := a.Runner.LookPath("hdiutil"); err != nil {
		print.Verb("hdiutil not found, skipping disk image")
		return Artifact{}, false, nil
	}

	name := filepath.Base(s.Dir) + "." + project.FormatDMG
	dest := filepath.Join(a.Project.OutputDir(), name)

	err := fs.WithTempDir("jxl-release-dmg-*", func(tmp string) error {
		if err := copy.Copy(s.App, filepath.Join(tmp, filepath.Base(s.App))); err != nil {
			return errors.Wrap(err, "failed to copy bundle into disk image staging")
		}
		if err := os.Symlink("/Applications", filepath.Join(tmp, "Applications")); err != nil {
			return errors.Wrap(err, "failed to link Applications")
		}
		return a.Runner.Run(ctx, runner.Command{
			Name: "hdiutil",
			Args: []string{
				"create",
				"-volname", a.Project.AppName,
				"-srcfolder", tmp,
				"-ov",
				"-format", "UDZO",
				dest,
			},
		})
	})
	if err != nil {
		return Artifact{}, false, errors.Wrap(err, "failed to create disk image")
	}

	print.Info("Created", name)
	return Artifact{
		Path:      dest,
		Name:      name,
		Platform:  s.Platform,
		OS:        s.OS,
		Arch:      s.Arch,
		Format:    project.FormatDMG,
		Universal: true,
	}, true, nil
}

// IsArchive reports whether a filename in the output directory is a
// publishable archive.
func IsArchive(name string) bool {
	for _, ext := range []string{"." + project.FormatTarGz, "." + project.FormatZip, "." + project.FormatDMG} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
