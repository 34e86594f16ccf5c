// Package storetest provides a conformance test suite for validating
// artifact store implementations against the artifact.Store contract.
//
// Backend packages import the suite and run it against a fresh store:
//
//	func TestConformance(t *testing.T) {
//	    storetest.TestSuite(t, func() artifact.Store {
//	        return local.NewInMemoryStore()
//	    })
//	}
//
// The suite validates the interface contract - write-once sealing, miss
// reporting, deterministic ordering - not backend-specific behavior.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/conveyor-ci/conveyor/artifact"
)

const (
	testRev      = "abc1234"
	testCategory = "fabrication"
)

// TestSuite runs all conformance tests against a store implementation.
// The newStore function should return a fresh, empty store for each test.
func TestSuite(t *testing.T, newStore func() artifact.Store) {
	t.Run("PutGetRoundTrip", func(t *testing.T) { testPutGetRoundTrip(t, newStore()) })
	t.Run("GetMissingKey", func(t *testing.T) { testGetMissingKey(t, newStore()) })
	t.Run("SealRejectsWrites", func(t *testing.T) { testSealRejectsWrites(t, newStore()) })
	t.Run("SealIsIdempotent", func(t *testing.T) { testSealIsIdempotent(t, newStore()) })
	t.Run("GetIsStableAfterSeal", func(t *testing.T) { testGetIsStableAfterSeal(t, newStore()) })
	t.Run("ListCategories", func(t *testing.T) { testListCategories(t, newStore()) })
	t.Run("ListEmptyRevision", func(t *testing.T) { testListEmptyRevision(t, newStore()) })
	t.Run("RevisionsAreIndependent", func(t *testing.T) { testRevisionsAreIndependent(t, newStore()) })
}

func testPutGetRoundTrip(t *testing.T, s artifact.Store) {
	ctx := context.Background()

	want := map[string][]byte{
		"board-top.gbr":    []byte("G04 top layer*"),
		"board-bottom.gbr": []byte("G04 bottom layer*"),
		"drill.drl":        {0x00, 0x01, 0xff, 0xfe},
	}
	for name, data := range want {
		if err := s.Put(ctx, testRev, testCategory, name, data); err != nil {
			t.Fatalf("put %q: %v", name, err)
		}
	}

	blobs, err := s.Get(ctx, testRev, testCategory)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(blobs) != len(want) {
		t.Fatalf("expected %d blobs, got %d", len(want), len(blobs))
	}
	for i, blob := range blobs {
		data, ok := want[blob.Name]
		if !ok {
			t.Errorf("unexpected blob %q", blob.Name)
			continue
		}
		if string(blob.Data) != string(data) {
			t.Errorf("blob %q content mismatch", blob.Name)
		}
		if i > 0 && blobs[i-1].Name > blob.Name {
			t.Errorf("blobs not sorted: %q after %q", blob.Name, blobs[i-1].Name)
		}
	}
}

func testGetMissingKey(t *testing.T, s artifact.Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, testRev, "no-such-category")
	if !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound, got: %v", err)
	}

	_, err = s.Get(ctx, "no-such-rev", testCategory)
	if !errors.Is(err, artifact.ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound for missing revision, got: %v", err)
	}
}

func testSealRejectsWrites(t *testing.T, s artifact.Store) {
	ctx := context.Background()

	if err := s.Put(ctx, testRev, testCategory, "a.bin", []byte("a")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Seal(ctx, testRev, testCategory); err != nil {
		t.Fatalf("seal: %v", err)
	}

	err := s.Put(ctx, testRev, testCategory, "late.bin", []byte("too late"))
	if !errors.Is(err, artifact.ErrAlreadySealed) {
		t.Errorf("expected ErrAlreadySealed, got: %v", err)
	}

	// other categories of the same revision stay writable
	if err := s.Put(ctx, testRev, "netlist", "bom.csv", []byte("ref,qty")); err != nil {
		t.Errorf("unrelated category rejected: %v", err)
	}
}

func testSealIsIdempotent(t *testing.T, s artifact.Store) {
	ctx := context.Background()

	if err := s.Put(ctx, testRev, testCategory, "a.bin", []byte("a")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Seal(ctx, testRev, testCategory); err != nil {
		t.Fatalf("first seal: %v", err)
	}
	if err := s.Seal(ctx, testRev, testCategory); err != nil {
		t.Errorf("second seal must be a no-op, got: %v", err)
	}
}

func testGetIsStableAfterSeal(t *testing.T, s artifact.Store) {
	ctx := context.Background()

	if err := s.Put(ctx, testRev, testCategory, "a.bin", []byte("stable")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Seal(ctx, testRev, testCategory); err != nil {
		t.Fatalf("seal: %v", err)
	}

	first, err := s.Get(ctx, testRev, testCategory)
	if err != nil {
		t.Fatalf("first get: %v", err)
	}
	second, err := s.Get(ctx, testRev, testCategory)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("get not stable: %d vs %d blobs", len(first), len(second))
	}
	for i := range first {
		if first[i].Name != second[i].Name || string(first[i].Data) != string(second[i].Data) {
			t.Errorf("blob %d differs between reads", i)
		}
	}
}

func testListCategories(t *testing.T, s artifact.Store) {
	ctx := context.Background()

	for _, category := range []string{"netlist", "fabrication", "3d-model"} {
		if err := s.Put(ctx, testRev, category, "f.bin", []byte("x")); err != nil {
			t.Fatalf("put %q: %v", category, err)
		}
	}

	categories, err := s.List(ctx, testRev)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"3d-model", "fabrication", "netlist"}
	if len(categories) != len(want) {
		t.Fatalf("expected %v, got %v", want, categories)
	}
	for i := range want {
		if categories[i] != want[i] {
			t.Errorf("expected %v, got %v", want, categories)
			break
		}
	}
}

func testListEmptyRevision(t *testing.T, s artifact.Store) {
	categories, err := s.List(context.Background(), "fffffff")
	if err != nil {
		t.Fatalf("list on empty revision must not error, got: %v", err)
	}
	if len(categories) != 0 {
		t.Errorf("expected no categories, got %v", categories)
	}
}

func testRevisionsAreIndependent(t *testing.T, s artifact.Store) {
	ctx := context.Background()

	if err := s.Put(ctx, "abc1234", testCategory, "a.bin", []byte("first")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "def5678", testCategory, "a.bin", []byte("second")); err != nil {
		t.Fatalf("put: %v", err)
	}

	blobs, err := s.Get(ctx, "abc1234", testCategory)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(blobs[0].Data) != "first" {
		t.Errorf("revision keys bleed: got %q", blobs[0].Data)
	}
}
