package state

import (
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/adaptive-select/go-controller/internal/controller"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshotAt(t *testing.T, iterations int) controller.Snapshot {
	t.Helper()
	cfg := controller.DefaultConfig([]string{"a", "b"})
	cfg.Seed = 42
	c, err := controller.New(cfg, nil)
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	batch := controller.Batch{
		Outputs: map[string]controller.Rows{
			"a": {{0.82, 0.18}},
			"b": {{0.3, 0.7}},
		},
		Target: controller.Rows{{0.8, 0.2}},
	}
	for i := 0; i < iterations; i++ {
		if _, err := c.ProcessBatch(batch); err != nil {
			t.Fatalf("batch %d: %v", i, err)
		}
	}
	return c.Snapshot()
}

func TestSaveAndGetCurrent(t *testing.T) {
	s := tempDB(t)

	rec, err := s.SaveSnapshot(snapshotAt(t, 3))
	if err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if rec.VersionID == "" {
		t.Fatal("expected non-empty version ID")
	}
	if rec.ParentID != "" {
		t.Fatalf("first version has parent %s", rec.ParentID)
	}
	if rec.Iteration != 3 {
		t.Fatalf("iteration = %d, want 3", rec.Iteration)
	}

	cur, err := s.GetCurrent()
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	if cur.VersionID != rec.VersionID {
		t.Fatalf("expected %s, got %s", rec.VersionID, cur.VersionID)
	}
	if cur.Snapshot.Iteration != 3 {
		t.Fatalf("restored snapshot iteration = %d", cur.Snapshot.Iteration)
	}
	if len(cur.Snapshot.Candidates) != 2 {
		t.Fatalf("restored candidates = %v", cur.Snapshot.Candidates)
	}
}

func TestLineageAndRollback(t *testing.T) {
	s := tempDB(t)

	v1, err := s.SaveSnapshot(snapshotAt(t, 1))
	if err != nil {
		t.Fatalf("save v1: %v", err)
	}
	v2, err := s.SaveSnapshot(snapshotAt(t, 2))
	if err != nil {
		t.Fatalf("save v2: %v", err)
	}
	if v2.ParentID != v1.VersionID {
		t.Fatalf("v2 parent = %s, want %s", v2.ParentID, v1.VersionID)
	}

	cur, _ := s.GetCurrent()
	if cur.VersionID != v2.VersionID {
		t.Fatalf("active = %s, want v2", cur.VersionID)
	}

	if err := s.Rollback(v1.VersionID); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	cur, _ = s.GetCurrent()
	if cur.VersionID != v1.VersionID {
		t.Fatalf("active after rollback = %s, want v1", cur.VersionID)
	}
	if cur.Snapshot.Iteration != 1 {
		t.Fatalf("rolled-back iteration = %d, want 1", cur.Snapshot.Iteration)
	}
}

func TestRollbackToMissingVersionFails(t *testing.T) {
	s := tempDB(t)
	if _, err := s.SaveSnapshot(snapshotAt(t, 1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Rollback("no-such-version"); err == nil {
		t.Fatal("expected error rolling back to unknown version")
	}
}

func TestListVersions(t *testing.T) {
	s := tempDB(t)
	for i := 1; i <= 4; i++ {
		if _, err := s.SaveSnapshot(snapshotAt(t, i)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	recs, err := s.ListVersions(3)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if recs[0].Iteration != 4 {
		t.Fatalf("newest first: got iteration %d", recs[0].Iteration)
	}
}

func TestRestoreControllerFromStoredSnapshot(t *testing.T) {
	s := tempDB(t)
	if _, err := s.SaveSnapshot(snapshotAt(t, 5)); err != nil {
		t.Fatalf("save: %v", err)
	}
	cur, err := s.GetCurrent()
	if err != nil {
		t.Fatalf("GetCurrent: %v", err)
	}
	c, err := controller.FromSnapshot(cur.Snapshot, 42, nil)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if c.Iteration() != 5 {
		t.Fatalf("restored controller iteration = %d", c.Iteration())
	}
}
