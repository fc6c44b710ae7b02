// Package version resolves the release version from the project manifest.
package version

import (
	"bufio"
	"os"
	"regexp"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/versioning"
)

// version = "1.2.0"
var matchVersion = regexp.MustCompile(`^\s*version\s*=\s*"([^"]*)"`)

// ErrNoVersion is returned when the manifest has no usable version declaration.
var ErrNoVersion = errors.New("no version declaration found")

// Resolve returns the quoted value of the first version declaration in the
// manifest at path. The file is read on every call.
func Resolve(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open manifest '%s'", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		groups := matchVersion.FindStringSubmatch(scanner.Text())
		if len(groups) != 2 {
			continue
		}
		if groups[1] == "" {
			return "", errors.Wrapf(ErrNoVersion, "empty version in '%s'", path)
		}
		return groups[1], nil
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Wrapf(err, "failed to read manifest '%s'", path)
	}

	return "", errors.Wrapf(ErrNoVersion, "in '%s'", path)
}

// Tag derives the release tag from a version.
func Tag(version string) string {
	return "v" + version
}

// Check warns about versions that will probably produce a confusing release:
// versions that are not semver and versions not newer than the latest local
// tag. It never fails the release.
func Check(version string, repo *versioning.Repo) {
	v, err := semver.NewVersion(version)
	if err != nil {
		print.Warn("Version", version, "is not a semantic version:", err)
		return
	}
	if repo == nil {
		return
	}

	latest, err := repo.Latest()
	if err != nil {
		print.Verb("could not read local tags:", err)
		return
	}
	if latest == nil {
		return
	}
	if !v.GreaterThan(latest.Version) {
		print.Warn("Version", version, "is not newer than the latest local tag", latest.Name)
	}
}
