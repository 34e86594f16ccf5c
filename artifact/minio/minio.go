// Package minio implements the artifact store over an S3-compatible object
// store using the MinIO client. Objects live at
// <prefix>/<rev>/<category>/<name> inside one bucket, so stages running on
// different hosts push and pull the same bundle. A sealed category carries
// a zero-byte marker object.
package minio

import (
	"bytes"
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/conveyor-ci/conveyor/artifact"
)

const sealMarker = ".sealed"

// Config holds the connection settings for the object store backend.
type Config struct {
	// Endpoint is the S3 endpoint host:port.
	Endpoint string

	// AccessKey and SecretKey authenticate the client.
	AccessKey string
	SecretKey string

	// UseSSL enables TLS for the connection.
	UseSSL bool

	// Bucket is the bucket holding all artifact objects.
	Bucket string

	// Prefix namespaces this pipeline's objects within the bucket.
	Prefix string
}

// objectClient is the subset of the MinIO client the store needs, narrowed
// so the store logic can be exercised without a live endpoint.
type objectClient interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucket, key string,
		opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucket, key string,
		opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucket string,
		opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

// clientAdapter bridges *minio.Client to objectClient.
type clientAdapter struct {
	c *minio.Client
}

func (a clientAdapter) PutObject(ctx context.Context, bucket, key string, r io.Reader,
	size int64, opts minio.PutObjectOptions,
) (minio.UploadInfo, error) {
	return a.c.PutObject(ctx, bucket, key, r, size, opts)
}

func (a clientAdapter) GetObject(ctx context.Context, bucket, key string,
	opts minio.GetObjectOptions,
) (io.ReadCloser, error) {
	return a.c.GetObject(ctx, bucket, key, opts)
}

func (a clientAdapter) StatObject(ctx context.Context, bucket, key string,
	opts minio.StatObjectOptions,
) (minio.ObjectInfo, error) {
	return a.c.StatObject(ctx, bucket, key, opts)
}

func (a clientAdapter) ListObjects(ctx context.Context, bucket string,
	opts minio.ListObjectsOptions,
) <-chan minio.ObjectInfo {
	return a.c.ListObjects(ctx, bucket, opts)
}

// Store implements artifact.Store over an S3-compatible object store.
type Store struct {
	client objectClient
	bucket string
	prefix string
}

// NewStore connects to the object store described by cfg.
func NewStore(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, artifact.WrapErrorf(err, "minio: connect %q", cfg.Endpoint)
	}
	return &Store{client: clientAdapter{c: client}, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// key builds the object key for the given path segments.
func (s *Store) key(parts ...string) string {
	if s.prefix != "" {
		parts = append([]string{s.prefix}, parts...)
	}
	return path.Join(parts...)
}

// Put implements artifact.Store.Put.
func (s *Store) Put(ctx context.Context, rev, category, name string, data []byte) error {
	sealed, err := s.isSealed(ctx, rev, category)
	if err != nil {
		return err
	}
	if sealed {
		return artifact.WrapErrorf(artifact.ErrAlreadySealed,
			"minio: put %s/%s/%s", rev, category, name)
	}

	key := s.key(rev, category, name)
	_, err = s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return artifact.WrapErrorf(err, "minio: put %q", key)
	}
	return nil
}

// Seal implements artifact.Store.Seal.
func (s *Store) Seal(ctx context.Context, rev, category string) error {
	key := s.key(rev, category, sealMarker)
	_, err := s.client.PutObject(ctx, s.bucket, key,
		bytes.NewReader(nil), 0, minio.PutObjectOptions{})
	if err != nil {
		return artifact.WrapErrorf(err, "minio: seal %s/%s", rev, category)
	}
	return nil
}

// Get implements artifact.Store.Get.
func (s *Store) Get(ctx context.Context, rev, category string) ([]artifact.Blob, error) {
	dirKey := s.key(rev, category) + "/"

	var blobs []artifact.Blob
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    dirKey,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, artifact.WrapErrorf(info.Err, "minio: list %q", dirKey)
		}
		name := strings.TrimPrefix(info.Key, dirKey)
		if name == sealMarker {
			continue
		}

		obj, err := s.client.GetObject(ctx, s.bucket, info.Key, minio.GetObjectOptions{})
		if err != nil {
			return nil, artifact.WrapErrorf(err, "minio: get %q", info.Key)
		}
		data, err := io.ReadAll(obj)
		closeErr := obj.Close()
		if err != nil {
			return nil, artifact.WrapErrorf(err, "minio: read %q", info.Key)
		}
		if closeErr != nil {
			return nil, artifact.WrapErrorf(closeErr, "minio: close %q", info.Key)
		}
		blobs = append(blobs, artifact.Blob{Name: name, Data: data})
	}

	if len(blobs) == 0 {
		return nil, artifact.WrapErrorf(artifact.ErrArtifactNotFound,
			"minio: get %s/%s", rev, category)
	}
	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Name < blobs[j].Name })
	return blobs, nil
}

// List implements artifact.Store.List.
func (s *Store) List(ctx context.Context, rev string) ([]string, error) {
	revKey := s.key(rev) + "/"

	seen := make(map[string]struct{})
	for info := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    revKey,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, artifact.WrapErrorf(info.Err, "minio: list %q", revKey)
		}
		rest := strings.TrimPrefix(info.Key, revKey)
		if idx := strings.IndexByte(rest, '/'); idx > 0 {
			seen[rest[:idx]] = struct{}{}
		}
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories, nil
}

// isSealed reports whether the category carries the seal marker object.
func (s *Store) isSealed(ctx context.Context, rev, category string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, s.key(rev, category, sealMarker),
		minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return false, nil
	}
	return false, artifact.WrapErrorf(err, "minio: stat seal %s/%s", rev, category)
}

// Compile-time interface check.
var _ artifact.Store = (*Store)(nil)
