package versioning

import (
	"sort"

	"github.com/Masterminds/semver"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pkg/errors"
)

// VersionedTag represents a git tag ref with a valid semantic version number as a tag
type VersionedTag struct {
	Ref     *plumbing.Reference
	Name    string
	Version *semver.Version
}

// VersionedTags implements sort.Interface, ordering by semantic version
type VersionedTags []VersionedTag

func (c VersionedTags) Len() int           { return len(c) }
func (c VersionedTags) Less(i, j int) bool { return c[i].Version.LessThan(c[j].Version) }
func (c VersionedTags) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }

// Repo is the local view of the project's git repository.
type Repo struct {
	repo *git.Repository
}

// Open opens the repository containing dir, searching parent directories.
func Open(dir string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read project as git repository")
	}
	return &Repo{repo: repo}, nil
}

// Head returns the commit hash HEAD points at.
func (r *Repo) Head() (string, error) {
	head, err := r.repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "failed to get repo HEAD reference")
	}
	return head.Hash().String(), nil
}

// SemverTags returns the tags that parse as semantic versions, newest first.
func (r *Repo) SemverTags() (versionedTags VersionedTags, err error) {
	tags, err := r.repo.Tags()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get repo tags")
	}
	defer tags.Close()

	err = tags.ForEach(func(pr *plumbing.Reference) error {
		name := pr.Name().Short()
		v, errInner := semver.NewVersion(name)
		if errInner != nil {
			return nil
		}
		versionedTags = append(versionedTags, VersionedTag{Ref: pr, Name: name, Version: v})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to iterate tags")
	}

	sort.Sort(sort.Reverse(versionedTags))
	return versionedTags, nil
}

// Latest returns the highest semver tag, or nil when there are none.
func (r *Repo) Latest() (*VersionedTag, error) {
	tags, err := r.SemverTags()
	if err != nil || len(tags) == 0 {
		return nil, err
	}
	return &tags[0], nil
}
