// Package project describes what gets released: the application, where its
// manifest lives, and which targets to build.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
)

// FailurePolicy decides what happens when a foreign target fails to build.
type FailurePolicy string

const (
	// OnFailureAbort stops the whole release on any target failure
	OnFailureAbort FailurePolicy = "abort"
	// OnFailureSkip omits a failed foreign target and carries on with the rest
	OnFailureSkip FailurePolicy = "skip"
)

// ParseFailurePolicy validates a policy from a flag or file.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case OnFailureAbort, OnFailureSkip:
		return p, nil
	}
	return "", errors.Errorf("invalid target failure policy '%s', expected 'abort' or 'skip'", s)
}

// Project is the release definition, read from release.yaml or release.json
// in the project directory and merged over Default().
// nolint:lll
type Project struct {
	AppName         string        `json:"app_name,omitempty" yaml:"app_name,omitempty"`                   // display name, used for the bundle and release title
	Binary          string        `json:"binary,omitempty" yaml:"binary,omitempty"`                       // cargo binary name, also the artifact name prefix
	Identifier      string        `json:"identifier,omitempty" yaml:"identifier,omitempty"`               // macOS bundle identifier
	Repository      string        `json:"repository,omitempty" yaml:"repository,omitempty"`               // owner/repo on GitHub
	Manifest        string        `json:"manifest,omitempty" yaml:"manifest,omitempty"`                   // file holding the version declaration
	Icon            string        `json:"icon,omitempty" yaml:"icon,omitempty"`                           // source png for the macOS icon set
	Output          string        `json:"output,omitempty" yaml:"output,omitempty"`                       // scratch output directory, wiped on every run
	Extras          []string      `json:"extras,omitempty" yaml:"extras,omitempty"`                       // files copied next to every binary
	OnTargetFailure FailurePolicy `json:"on_target_failure,omitempty" yaml:"on_target_failure,omitempty"` // abort or skip
	ContainerImage  string        `json:"container_image,omitempty" yaml:"container_image,omitempty"`     // image for the container build strategy
	Targets         []Target      `json:"targets,omitempty" yaml:"targets,omitempty"`

	Dir    string `json:"-" yaml:"-"` // absolute project directory
	Format string `json:"-" yaml:"-"` // format of the definition file, empty when none was found
}

// Default returns the definition that reproduces the JXL-UI release scripts.
func Default() Project {
	return Project{
		AppName:         "JXL-UI",
		Binary:          "jxl-ui",
		Identifier:      "com.jxl-ui.viewer",
		Repository:      "jxl-ui/jxl-ui",
		Manifest:        "Cargo.toml",
		Icon:            "assets/icon.png",
		Output:          "dist",
		Extras:          []string{"LICENSE", "README.md"},
		OnTargetFailure: OnFailureSkip,
		ContainerImage:  "rust:1-bookworm",
		Targets: []Target{
			{Triple: "x86_64-unknown-linux-gnu"},
			{Triple: "aarch64-unknown-linux-gnu", Strategies: []string{StrategyCargo, StrategyCross, StrategyContainer}},
			{Triple: "aarch64-apple-darwin"},
			{Triple: "x86_64-apple-darwin"},
			{Triple: "x86_64-pc-windows-msvc", Strategies: []string{StrategyCargo, StrategyCross, StrategyZigbuild}},
		},
	}
}

// Load reads the release definition from dir, if any, and fills unset fields
// from Default().
func Load(dir string) (p Project, err error) {
	jsonPath := filepath.Join(dir, "release.json")
	yamlPath := filepath.Join(dir, "release.yaml")
	jsonExists := fs.Exists(jsonPath)
	yamlExists := fs.Exists(yamlPath)

	switch {
	case jsonExists && yamlExists:
		return p, errors.New("found both release.json and release.yaml; please keep only one release definition file")
	case jsonExists:
		p, err = readDefinition(jsonPath, "json")
	case yamlExists:
		p, err = readDefinition(yamlPath, "yaml")
	default:
		print.Verb("no release definition file (release.{json|yaml}), using defaults")
	}
	if err != nil {
		return p, err
	}

	if err = mergo.Merge(&p, Default()); err != nil {
		return p, errors.Wrap(err, "failed to merge release definition with defaults")
	}

	p.Dir = dir
	for i := range p.Targets {
		p.Targets[i] = p.Targets[i].withDefaults()
	}

	return p, p.Validate()
}

func readDefinition(path, format string) (p Project, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return p, errors.Wrapf(err, "failed to read release definition from '%s'", path)
	}

	if format == "json" {
		err = json.Unmarshal(data, &p)
	} else {
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return p, errors.Wrapf(err, "failed to parse release definition from '%s'", path)
	}
	p.Format = format

	return p, nil
}

// Validate checks the merged definition for values the pipeline cannot work with.
func (p Project) Validate() error {
	if _, _, err := p.OwnerRepo(); err != nil {
		return err
	}
	if _, err := ParseFailurePolicy(string(p.OnTargetFailure)); err != nil {
		return err
	}
	if len(p.Targets) == 0 {
		return errors.New("no targets configured")
	}
	seen := map[string]bool{}
	for _, t := range p.Targets {
		if t.Triple == "" {
			return errors.New("target with empty triple")
		}
		if seen[t.Triple] {
			return errors.Errorf("target '%s' is listed twice", t.Triple)
		}
		seen[t.Triple] = true
		if t.OS != "linux" && t.OS != "darwin" && t.OS != "windows" {
			return errors.Errorf("target '%s' has unsupported os '%s'", t.Triple, t.OS)
		}
		for _, f := range t.Formats {
			if !validFormat(f) {
				return errors.Errorf("target '%s' has unsupported archive format '%s'", t.Triple, f)
			}
		}
		for _, s := range t.Strategies {
			if !validStrategy(s) {
				return errors.Errorf("target '%s' has unknown build strategy '%s'", t.Triple, s)
			}
		}
	}
	return p.ValidateOutput()
}

// ValidateOutput rejects output directories that would wipe the project when
// they are reset: the project directory itself, any of its parents, the
// filesystem root, or a directory holding the manifest.
func (p Project) ValidateOutput() error {
	if p.Output == "" {
		return errors.New("output directory is not set")
	}
	if p.Dir == "" {
		return nil
	}

	out, err := filepath.Abs(p.OutputDir())
	if err != nil {
		return errors.Wrap(err, "failed to resolve output directory")
	}
	dir, err := filepath.Abs(p.Dir)
	if err != nil {
		return errors.Wrap(err, "failed to resolve project directory")
	}

	switch {
	case filepath.Dir(out) == out:
		return errors.Errorf("output directory '%s' is the filesystem root", p.Output)
	case within(out, dir):
		return errors.Errorf("output directory '%s' contains the project directory", p.Output)
	case p.Manifest != "" && within(out, p.Path(p.Manifest)):
		return errors.Errorf("output directory '%s' contains the manifest '%s'", p.Output, p.Manifest)
	}
	return nil
}

// within reports whether path is parent or somewhere below it.
func within(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// OwnerRepo splits the repository field.
func (p Project) OwnerRepo() (owner, repo string, err error) {
	parts := strings.Split(p.Repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Errorf("repository '%s' is not in owner/repo form", p.Repository)
	}
	return parts[0], parts[1], nil
}

// Path resolves a project-relative path from the definition.
func (p Project) Path(rel string) string {
	return fs.Resolve(p.Dir, rel)
}

// OutputDir is the absolute scratch output directory.
func (p Project) OutputDir() string {
	return p.Path(p.Output)
}

// SelectTargets narrows the target list to the given triples, keeping the
// configured order. An empty selection keeps everything.
func (p *Project) SelectTargets(triples []string) error {
	if len(triples) == 0 {
		return nil
	}
	want := map[string]bool{}
	for _, t := range triples {
		want[t] = true
	}
	var selected []Target
	for _, t := range p.Targets {
		if want[t.Triple] {
			selected = append(selected, t)
			delete(want, t.Triple)
		}
	}
	for t := range want {
		return errors.Errorf("target '%s' is not configured", t)
	}
	p.Targets = selected
	return nil
}
