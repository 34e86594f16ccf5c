package publish

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/conveyor-ci/conveyor/domain"
	"github.com/conveyor-ci/conveyor/errors"
)

// githubReleases is the slice of the GitHub API the publisher needs.
type githubReleases interface {
	CreateRelease(ctx context.Context, owner, repo string,
		rel *github.RepositoryRelease) (*github.RepositoryRelease, *github.Response, error)
	UploadReleaseAsset(ctx context.Context, owner, repo string, id int64,
		opt *github.UploadOptions, file *os.File) (*github.ReleaseAsset, *github.Response, error)
}

// GitHubPublisher publishes releases through the GitHub releases API.
type GitHubPublisher struct {
	releases githubReleases
	owner    string
	repo     string
}

// NewGitHubPublisher builds a publisher authenticated with a static token.
func NewGitHubPublisher(ctx context.Context, token, owner, repo string) (*GitHubPublisher, error) {
	if token == "" {
		return nil, errors.New(errors.CodeInvalidConfig, "publish.NewGitHubPublisher",
			"github token not set")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))
	return &GitHubPublisher{
		releases: client.Repositories,
		owner:    owner,
		repo:     repo,
	}, nil
}

// Publish implements Publisher: creates the release for the record's tag
// and uploads every asset. The returned identifier is the release ID.
func (p *GitHubPublisher) Publish(
	ctx context.Context,
	rel domain.ReleaseRecord,
	assets []domain.Asset,
) (string, error) {
	created, _, err := p.releases.CreateRelease(ctx, p.owner, p.repo, &github.RepositoryRelease{
		TagName:    github.String(rel.Tag.Label),
		Name:       github.String(rel.Title),
		Body:       github.String(rel.Body),
		Draft:      github.Bool(rel.Draft),
		Prerelease: github.Bool(rel.Prerelease),
	})
	if err != nil {
		return "", errors.Wrap(err, errors.CodePublishFailed, "publish.Publish",
			"creating release "+rel.Tag.Label)
	}

	for _, asset := range assets {
		if err := p.uploadAsset(ctx, created.GetID(), asset); err != nil {
			return "", err
		}
	}

	return strconv.FormatInt(created.GetID(), 10), nil
}

// uploadAsset stages the blob in a temp file; the upload API consumes
// *os.File.
func (p *GitHubPublisher) uploadAsset(ctx context.Context, releaseID int64, asset domain.Asset) error {
	dir, err := os.MkdirTemp("", "conveyor-asset-")
	if err != nil {
		return errors.Wrap(err, errors.CodePublishFailed, "publish.uploadAsset",
			"staging "+asset.Name)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	path := filepath.Join(dir, asset.Name)
	if err := os.WriteFile(path, asset.Data, 0o600); err != nil {
		return errors.Wrap(err, errors.CodePublishFailed, "publish.uploadAsset",
			"staging "+asset.Name)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, errors.CodePublishFailed, "publish.uploadAsset",
			"staging "+asset.Name)
	}
	defer func() {
		_ = f.Close()
	}()

	_, _, err = p.releases.UploadReleaseAsset(ctx, p.owner, p.repo, releaseID,
		&github.UploadOptions{Name: asset.Name}, f)
	if err != nil {
		return errors.Wrap(err, errors.CodePublishFailed, "publish.uploadAsset",
			"uploading "+asset.Name)
	}
	return nil
}

// Compile-time interface check.
var _ Publisher = (*GitHubPublisher)(nil)
