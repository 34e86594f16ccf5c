package minio

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conveyor-ci/conveyor/artifact"
	"github.com/conveyor-ci/conveyor/artifact/storetest"
)

// fakeClient is a map-backed objectClient, enough to exercise the store
// contract without a live endpoint.
type fakeClient struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: make(map[string][]byte)}
}

func (f *fakeClient) PutObject(_ context.Context, _, key string, r io.Reader, _ int64,
	_ miniogo.PutObjectOptions,
) (miniogo.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return miniogo.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return miniogo.UploadInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeClient) GetObject(_ context.Context, _, key string,
	_ miniogo.GetObjectOptions,
) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, miniogo.ErrorResponse{Code: "NoSuchKey", Key: key}
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeClient) StatObject(_ context.Context, _, key string,
	_ miniogo.StatObjectOptions,
) (miniogo.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return miniogo.ObjectInfo{}, miniogo.ErrorResponse{Code: "NoSuchKey", Key: key}
	}
	return miniogo.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeClient) ListObjects(_ context.Context, _ string,
	opts miniogo.ListObjectsOptions,
) <-chan miniogo.ObjectInfo {
	f.mu.Lock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	f.mu.Unlock()
	sort.Strings(keys)

	ch := make(chan miniogo.ObjectInfo, len(keys))
	for _, k := range keys {
		ch <- miniogo.ObjectInfo{Key: k}
	}
	close(ch)
	return ch
}

func newFakeStore(prefix string) *Store {
	return &Store{client: newFakeClient(), bucket: "artifacts", prefix: prefix}
}

func TestConformance(t *testing.T) {
	storetest.TestSuite(t, func() artifact.Store {
		return newFakeStore("ci")
	})
}

func TestConformanceWithoutPrefix(t *testing.T) {
	storetest.TestSuite(t, func() artifact.Store {
		return newFakeStore("")
	})
}

func TestKeyLayout(t *testing.T) {
	ctx := context.Background()
	fake := newFakeClient()
	s := &Store{client: fake, bucket: "artifacts", prefix: "boards/rev2"}

	require.NoError(t, s.Put(ctx, "abc1234", "fabrication", "gerbers.zip", []byte("data")))

	fake.mu.Lock()
	_, ok := fake.objects["boards/rev2/abc1234/fabrication/gerbers.zip"]
	fake.mu.Unlock()
	assert.True(t, ok, "object key must be prefix/rev/category/name")
}

func TestSealMarkerHiddenFromGet(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore("ci")

	require.NoError(t, s.Put(ctx, "abc1234", "netlist", "bom.csv", []byte("ref,qty")))
	require.NoError(t, s.Seal(ctx, "abc1234", "netlist"))

	blobs, err := s.Get(ctx, "abc1234", "netlist")
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, "bom.csv", blobs[0].Name)
}
