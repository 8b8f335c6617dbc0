package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) returned %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetAnalysis(t *testing.T) {
	s := openTestStore(t)

	a := Analysis{
		ID:           uuid.New().String(),
		CreatedAt:    time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Source:       "calls.csv",
		Status:       StatusCompleted,
		TotalCalls:   42,
		SnapshotJSON: `{"total_calls":42}`,
	}
	if err := s.SaveAnalysis(a); err != nil {
		t.Fatalf("SaveAnalysis returned %v", err)
	}

	got, err := s.GetAnalysis(a.ID)
	if err != nil {
		t.Fatalf("GetAnalysis returned %v", err)
	}
	if got.Source != "calls.csv" || got.Status != StatusCompleted || got.TotalCalls != 42 {
		t.Errorf("GetAnalysis = %+v", got)
	}
	if !got.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, a.CreatedAt)
	}
	if got.SnapshotJSON != a.SnapshotJSON {
		t.Errorf("SnapshotJSON = %q", got.SnapshotJSON)
	}
}

func TestGetAnalysisNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetAnalysis("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAnalysis(missing) returned %v, want ErrNotFound", err)
	}
}

func TestListAnalysesNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		a := Analysis{
			ID:        uuid.New().String(),
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Status:    StatusCompleted,
			Source:    "batch",
		}
		if err := s.SaveAnalysis(a); err != nil {
			t.Fatalf("SaveAnalysis returned %v", err)
		}
	}

	list, err := s.ListAnalyses(2)
	if err != nil {
		t.Fatalf("ListAnalyses returned %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListAnalyses returned %d rows, want 2", len(list))
	}
	if !list[0].CreatedAt.After(list[1].CreatedAt) {
		t.Errorf("rows not newest-first: %v then %v", list[0].CreatedAt, list[1].CreatedAt)
	}
	if list[0].SnapshotJSON != "" {
		t.Error("ListAnalyses should not load snapshot payloads")
	}
}

func TestDeleteAnalysis(t *testing.T) {
	s := openTestStore(t)
	a := Analysis{ID: "x", Status: StatusAborted}
	if err := s.SaveAnalysis(a); err != nil {
		t.Fatalf("SaveAnalysis returned %v", err)
	}
	if err := s.DeleteAnalysis("x"); err != nil {
		t.Fatalf("DeleteAnalysis returned %v", err)
	}
	if err := s.DeleteAnalysis("x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteAnalysis returned %v, want ErrNotFound", err)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()
	old := Analysis{ID: "old", CreatedAt: now.Add(-48 * time.Hour), Status: StatusCompleted}
	fresh := Analysis{ID: "fresh", CreatedAt: now, Status: StatusCompleted}
	for _, a := range []Analysis{old, fresh} {
		if err := s.SaveAnalysis(a); err != nil {
			t.Fatalf("SaveAnalysis returned %v", err)
		}
	}

	n, err := s.DeleteOlderThan(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan returned %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}
	if _, err := s.GetAnalysis("old"); !errors.Is(err, ErrNotFound) {
		t.Error("old analysis survived pruning")
	}
	if _, err := s.GetAnalysis("fresh"); err != nil {
		t.Errorf("fresh analysis was pruned: %v", err)
	}
}

func TestPrunerRunOnce(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC()
	if err := s.SaveAnalysis(Analysis{ID: "ancient", CreatedAt: now.Add(-90 * 24 * time.Hour), Status: StatusCompleted}); err != nil {
		t.Fatalf("SaveAnalysis returned %v", err)
	}

	p := NewPruner(s, 30*24*time.Hour, 0)
	if err := p.RunOnce(); err != nil {
		t.Fatalf("RunOnce returned %v", err)
	}
	if _, err := s.GetAnalysis("ancient"); !errors.Is(err, ErrNotFound) {
		t.Error("pruner did not delete analysis past retention")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	s := openTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migrate returned %v", err)
	}
}
