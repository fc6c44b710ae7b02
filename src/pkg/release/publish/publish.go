// Package publish creates the GitHub release and uploads its assets.
package publish

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/go-github/github"
	"github.com/pkg/errors"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/print"
)

// State is where a release is in the publish flow.
type State int

const (
	StateAbsent State = iota
	StatePresent
	StateDeleted
	StatePublished
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePresent:
		return "present"
	case StateDeleted:
		return "deleted"
	case StatePublished:
		return "published"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrDeclined is returned when the operator refuses to replace an existing release.
var ErrDeclined = errors.New("release already exists")

// Release is everything needed to publish one version.
type Release struct {
	Owner     string
	Repo      string
	Tag       string
	Name      string
	Body      string
	Commitish string   // empty lets GitHub use the default branch
	Assets    []string // files uploaded in order
}

// Publisher drives a release from Absent or Present to Published.
type Publisher struct {
	API     ReleasesAPI
	Confirm Confirmer
}

// Publish creates the release, replacing an existing one with the same tag
// only after confirmation. The returned state is StatePublished on success
// and StateAborted when the operator declined.
func (p Publisher) Publish(ctx context.Context, rel Release) (*github.RepositoryRelease, State, error) {
	state, existing, err := p.lookup(ctx, rel)
	if err != nil {
		return nil, state, err
	}

	if state == StatePresent {
		ok, err := p.Confirm.Confirm(fmt.Sprintf("Release %s already exists. Delete and recreate it?", rel.Tag))
		if err != nil {
			return nil, state, err
		}
		if !ok {
			return nil, StateAborted, errors.Wrapf(ErrDeclined,
				"%s was not replaced, bump the version in the manifest and run the release again", rel.Tag)
		}
		if err := p.remove(ctx, rel, existing); err != nil {
			return nil, state, err
		}
		state = StateDeleted
	}

	created, err := p.create(ctx, rel)
	if err != nil {
		return nil, state, err
	}

	for _, asset := range rel.Assets {
		if err := p.upload(ctx, rel, created.GetID(), asset); err != nil {
			return created, state, err
		}
	}

	print.Info("Published", rel.Tag, created.GetHTMLURL())
	return created, StatePublished, nil
}

func (p Publisher) lookup(ctx context.Context, rel Release) (State, *github.RepositoryRelease, error) {
	existing, resp, err := p.API.GetReleaseByTag(ctx, rel.Owner, rel.Repo, rel.Tag)
	if isNotFound(resp, err) {
		print.Verb("no existing release for", rel.Tag)
		return StateAbsent, nil, nil
	}
	if err != nil {
		return StateAbsent, nil, errors.Wrapf(err, "failed to look up release %s", rel.Tag)
	}
	if existing == nil {
		return StateAbsent, nil, nil
	}
	return StatePresent, existing, nil
}

func (p Publisher) remove(ctx context.Context, rel Release, existing *github.RepositoryRelease) error {
	print.Info("Deleting release", rel.Tag)
	if _, err := p.API.DeleteRelease(ctx, rel.Owner, rel.Repo, existing.GetID()); err != nil {
		return errors.Wrapf(err, "failed to delete release %s", rel.Tag)
	}

	resp, err := p.API.DeleteTag(ctx, rel.Owner, rel.Repo, rel.Tag)
	switch status := statusOf(resp, err); {
	case err == nil:
		print.Verb("deleted remote tag", rel.Tag)
	case status == http.StatusNotFound || status == http.StatusUnprocessableEntity:
		print.Verb("remote tag", rel.Tag, "did not exist")
	default:
		return errors.Wrapf(err, "failed to delete tag %s", rel.Tag)
	}
	return nil
}

func (p Publisher) create(ctx context.Context, rel Release) (*github.RepositoryRelease, error) {
	req := &github.RepositoryRelease{
		TagName: github.String(rel.Tag),
		Name:    github.String(rel.Name),
		Body:    github.String(rel.Body),
	}
	if rel.Commitish != "" {
		req.TargetCommitish = github.String(rel.Commitish)
	}

	print.Info("Creating release", rel.Tag)
	created, _, err := p.API.CreateRelease(ctx, rel.Owner, rel.Repo, req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create release %s", rel.Tag)
	}
	return created, nil
}

func (p Publisher) upload(ctx context.Context, rel Release, id int64, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open asset %s", path)
	}
	defer f.Close()

	name := filepath.Base(path)
	print.Info("Uploading", name)
	if _, _, err := p.API.UploadReleaseAsset(ctx, rel.Owner, rel.Repo, id, &github.UploadOptions{Name: name}, f); err != nil {
		return errors.Wrapf(err, "failed to upload %s", name)
	}
	return nil
}
