// Package artifact defines the content-addressed staging area that carries
// file bundles between pipeline stages. One stage writes a bundle keyed by
// revision and category; later stages read it back, possibly from another
// process or host. The contract is push/pull, never shared memory.
//
// Writes are disciplined: a category is open for Put calls until its
// producing stage seals it, after which the stored blobs are stable and any
// further write is rejected. Get on a key that was never written fails with
// ErrArtifactNotFound; whether that miss means a storage fault or merely an
// upstream stage that never ran is the scheduler's distinction to make, not
// the store's.
package artifact

import "context"

// Blob is one stored file: its name within the category and its content.
type Blob struct {
	// Name is the file name within the category.
	Name string

	// Data is the raw content.
	Data []byte
}

// Store is the push/pull contract between stages.
type Store interface {
	// Put stores one blob under (revision, category, name). Putting into
	// a sealed category fails with ErrAlreadySealed.
	Put(ctx context.Context, rev, category, name string, data []byte) error

	// Seal marks a (revision, category) pair complete. After Seal, the
	// blobs under the key are stable: Get always returns the same set,
	// and further Put calls are rejected. Seal is idempotent.
	Seal(ctx context.Context, rev, category string) error

	// Get returns every blob stored under (revision, category), sorted by
	// name. A key with no blobs fails with ErrArtifactNotFound.
	Get(ctx context.Context, rev, category string) ([]Blob, error)

	// List returns the categories stored for the revision, sorted.
	// A revision with no artifacts returns an empty list, not an error.
	List(ctx context.Context, rev string) ([]string, error)
}
