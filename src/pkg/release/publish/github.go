package publish

import (
	"context"
	"net/http"
	"os"

	"github.com/google/go-github/github"
	"github.com/pkg/errors"
)

// ReleasesAPI wraps the go-github calls the publisher needs
type ReleasesAPI interface {
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*github.RepositoryRelease, *github.Response, error)
	DeleteRelease(ctx context.Context, owner, repo string, id int64) (*github.Response, error)
	DeleteTag(ctx context.Context, owner, repo, tag string) (*github.Response, error)
	CreateRelease(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, *github.Response, error)
	UploadReleaseAsset(ctx context.Context, owner, repo string, id int64, opt *github.UploadOptions, file *os.File) (*github.ReleaseAsset, *github.Response, error)
}

// GitHub adapts a go-github client to ReleasesAPI. It also verifies the
// credential for the toolchain gate.
type GitHub struct {
	Client *github.Client
}

func (g GitHub) GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*github.RepositoryRelease, *github.Response, error) {
	return g.Client.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
}

func (g GitHub) DeleteRelease(ctx context.Context, owner, repo string, id int64) (*github.Response, error) {
	return g.Client.Repositories.DeleteRelease(ctx, owner, repo, id)
}

func (g GitHub) DeleteTag(ctx context.Context, owner, repo, tag string) (*github.Response, error) {
	return g.Client.Git.DeleteRef(ctx, owner, repo, "tags/"+tag)
}

func (g GitHub) CreateRelease(ctx context.Context, owner, repo string, release *github.RepositoryRelease) (*github.RepositoryRelease, *github.Response, error) {
	return g.Client.Repositories.CreateRelease(ctx, owner, repo, release)
}

func (g GitHub) UploadReleaseAsset(ctx context.Context, owner, repo string, id int64, opt *github.UploadOptions, file *os.File) (*github.ReleaseAsset, *github.Response, error) {
	return g.Client.Repositories.UploadReleaseAsset(ctx, owner, repo, id, opt, file)
}

// Authenticate calls GET /user and returns the login the token belongs to.
func (g GitHub) Authenticate(ctx context.Context) (string, error) {
	if g.Client == nil {
		return "", errors.New("no GitHub client configured")
	}
	user, _, err := g.Client.Users.Get(ctx, "")
	if err != nil {
		return "", errors.Wrap(err, "GitHub token was rejected")
	}
	return user.GetLogin(), nil
}

func statusOf(resp *github.Response, err error) int {
	if resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	if e, ok := err.(*github.ErrorResponse); ok && e.Response != nil {
		return e.Response.StatusCode
	}
	return 0
}

func isNotFound(resp *github.Response, err error) bool {
	return statusOf(resp, err) == http.StatusNotFound
}
