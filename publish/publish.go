// Package publish defines the outward-facing boundaries of the pipeline:
// the release publisher that turns a tag and an artifact bundle into a
// publicly visible release, and the image host that turns preview blobs
// into resolvable URLs for the release body.
package publish

import (
	"context"

	"github.com/conveyor-ci/conveyor/domain"
)

// Publisher accepts a release record and its asset blobs and returns the
// backend's identifier for the published release.
type Publisher interface {
	Publish(ctx context.Context, rel domain.ReleaseRecord, assets []domain.Asset) (string, error)
}

// ImageHost accepts a blob and returns a publicly resolvable URL for it.
// A failed upload is reported as an error; callers degrade by omitting the
// image reference - a hosting failure must never corrupt a release body or
// abort the pipeline.
type ImageHost interface {
	Upload(ctx context.Context, name string, blob []byte) (string, error)
}
