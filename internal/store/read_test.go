package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestReadRender_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRender("r1", "fp", "sel_1", "sel_3")
	rec.Plan = `{"name":"p"}`
	if _, _, err := s.WriteRender(ctx, rec); err != nil {
		t.Fatalf("WriteRender failed: %v", err)
	}

	got, err := s.ReadRender(ctx, "r1")
	if err != nil {
		t.Fatalf("ReadRender failed: %v", err)
	}

	if got.Fingerprint != "fp" || got.Digest != "digest-r1" || got.Plan != `{"name":"p"}` {
		t.Errorf("ReadRender = %+v", got)
	}
	if got.Seq != 1 {
		t.Errorf("Seq = %d, want 1", got.Seq)
	}
	if len(got.Comments) != 2 || got.Comments[0].Block != "sel_1" || got.Comments[1].Block != "sel_3" {
		t.Errorf("Comments = %+v, want sel_1 then sel_3", got.Comments)
	}
}

func TestReadRender_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRender(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadRender(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestLatestByFingerprint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, rec := range []struct{ id, fp string }{
		{"r1", "a"},
		{"r2", "b"},
		{"r3", "a"},
	} {
		if _, _, err := s.WriteRender(ctx, createTestRender(rec.id, rec.fp, "sel_1")); err != nil {
			t.Fatalf("WriteRender(%s) failed: %v", rec.id, err)
		}
	}

	got, ok, err := s.LatestByFingerprint(ctx, "a")
	if err != nil {
		t.Fatalf("LatestByFingerprint failed: %v", err)
	}
	if !ok {
		t.Fatal("LatestByFingerprint(a) ok = false")
	}
	if got.ID != "r3" {
		t.Errorf("LatestByFingerprint(a) = %s, want r3", got.ID)
	}
	if len(got.Comments) != 1 {
		t.Errorf("Comments = %+v, want one", got.Comments)
	}

	_, ok, err = s.LatestByFingerprint(ctx, "c")
	if err != nil {
		t.Fatalf("LatestByFingerprint(c) failed: %v", err)
	}
	if ok {
		t.Error("LatestByFingerprint(c) ok = true for unknown fingerprint")
	}

	count, err := s.CountRenders(ctx, "a")
	if err != nil {
		t.Fatalf("CountRenders failed: %v", err)
	}
	if count != 2 {
		t.Errorf("CountRenders(a) = %d, want 2", count)
	}
}

func TestListRenders_Ordering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// IDs sort opposite to write order; listing follows seq.
	for _, id := range []string{"z", "m", "a"} {
		if _, _, err := s.WriteRender(ctx, createTestRender(id, "fp", "sel_1", "sel_2")); err != nil {
			t.Fatalf("WriteRender(%s) failed: %v", id, err)
		}
	}

	records, err := s.ListRenders(ctx)
	if err != nil {
		t.Fatalf("ListRenders failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("ListRenders returned %d records, want 3", len(records))
	}
	for i, want := range []string{"z", "m", "a"} {
		if records[i].ID != want {
			t.Errorf("records[%d] = %s, want %s", i, records[i].ID, want)
		}
		if len(records[i].Comments) != 2 || records[i].Comments[1].Block != "sel_2" {
			t.Errorf("records[%d].Comments = %+v", i, records[i].Comments)
		}
	}
}

func TestListRenders_Empty(t *testing.T) {
	s := createTestStore(t)

	records, err := s.ListRenders(context.Background())
	if err != nil {
		t.Fatalf("ListRenders failed: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("ListRenders = %#v, want empty non-nil slice", records)
	}
}
