package store

import (
	"testing"
	"time"

	"github.com/kcal-sh/kcal/pkg/permission"
	"github.com/kcal-sh/kcal/pkg/record"
)

var base = time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample(id string, start, end time.Time, kcal float64) record.CalorieRecord {
	return record.CalorieRecord{
		StartTime: start,
		EndTime:   end,
		Energy:    record.EnergyFromKilocalories(kcal),
		Metadata:  record.Metadata{ID: id, DataOrigin: "sh.kcal.watch"},
	}
}

func TestRegisterApp(t *testing.T) {
	s := newTestStore(t)

	known, err := s.AppKnown("sh.kcal.app")
	if err != nil {
		t.Fatalf("AppKnown returned error: %v", err)
	}
	if known {
		t.Fatalf("app should be unknown before registering")
	}

	if err := s.RegisterApp("sh.kcal.app"); err != nil {
		t.Fatalf("RegisterApp returned error: %v", err)
	}
	// Registering again bumps last-seen, it must not fail.
	if err := s.RegisterApp("sh.kcal.app"); err != nil {
		t.Fatalf("second RegisterApp returned error: %v", err)
	}

	known, err = s.AppKnown("sh.kcal.app")
	if err != nil {
		t.Fatalf("AppKnown returned error: %v", err)
	}
	if !known {
		t.Fatalf("app should be known after registering")
	}
}

func TestGrantRevokeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.RegisterApp("sh.kcal.app"); err != nil {
		t.Fatalf("RegisterApp returned error: %v", err)
	}

	perms := []permission.Permission{
		permission.Read(record.TypeActiveCaloriesBurned),
		permission.Write(record.TypeActiveCaloriesBurned),
	}
	if err := s.Grant("sh.kcal.app", perms); err != nil {
		t.Fatalf("Grant returned error: %v", err)
	}
	// Granting again is a no-op.
	if err := s.Grant("sh.kcal.app", perms); err != nil {
		t.Fatalf("second Grant returned error: %v", err)
	}

	granted, err := s.GrantsFor("sh.kcal.app")
	if err != nil {
		t.Fatalf("GrantsFor returned error: %v", err)
	}
	if len(granted) != 2 {
		t.Fatalf("got %d grants, want 2: %v", len(granted), granted)
	}
	if !permission.GrantedAll(granted, perms) {
		t.Fatalf("granted set %v does not cover %v", granted, perms)
	}

	if err := s.Revoke("sh.kcal.app", []permission.Permission{permission.Write(record.TypeActiveCaloriesBurned)}); err != nil {
		t.Fatalf("Revoke returned error: %v", err)
	}
	granted, err = s.GrantsFor("sh.kcal.app")
	if err != nil {
		t.Fatalf("GrantsFor returned error: %v", err)
	}
	if len(granted) != 1 || granted[0] != permission.Read(record.TypeActiveCaloriesBurned) {
		t.Fatalf("got %v after revoke, want only the read grant", granted)
	}

	// Revoking something the app never had is a no-op.
	if err := s.Revoke("sh.kcal.app", []permission.Permission{permission.Write("HeartRate")}); err != nil {
		t.Fatalf("Revoke of absent grant returned error: %v", err)
	}

	other, err := s.GrantsFor("sh.kcal.other")
	if err != nil {
		t.Fatalf("GrantsFor returned error: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("unknown app should have no grants, got %v", other)
	}
}

func TestQueryRecordsOverlapAndOrder(t *testing.T) {
	s := newTestStore(t)

	straddling := sample("straddling", base.Add(-8*24*time.Hour), base.Add(-6*24*time.Hour), 100)
	inside := sample("inside", base.Add(-24*time.Hour), base.Add(-23*time.Hour), 200)
	before := sample("before", base.Add(-10*24*time.Hour), base.Add(-9*24*time.Hour), 300)
	after := sample("after", base.Add(time.Hour), base.Add(2*time.Hour), 400)

	// Insert out of order; the query must sort by start time.
	if _, err := s.InsertRecords(record.TypeActiveCaloriesBurned, "", []record.CalorieRecord{inside, after, straddling, before}); err != nil {
		t.Fatalf("InsertRecords returned error: %v", err)
	}

	got, err := s.QueryRecords(record.TypeActiveCaloriesBurned, base.Add(-7*24*time.Hour), base)
	if err != nil {
		t.Fatalf("QueryRecords returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(got), got)
	}
	if got[0].Metadata.ID != "straddling" || got[1].Metadata.ID != "inside" {
		t.Fatalf("wrong order: %s, %s", got[0].Metadata.ID, got[1].Metadata.ID)
	}
	if got[0].Energy.Kilocalories != 100 {
		t.Errorf("got %v kcal, want 100", got[0].Energy.Kilocalories)
	}
	if !got[1].StartTime.Equal(inside.StartTime) {
		t.Errorf("got start %v, want %v", got[1].StartTime, inside.StartTime)
	}
	if got[1].StartTime.Location() != time.UTC {
		t.Errorf("timestamps should come back in UTC")
	}

	// A different record type is invisible to the query.
	other, err := s.QueryRecords("HeartRate", base.Add(-7*24*time.Hour), base)
	if err != nil {
		t.Fatalf("QueryRecords returned error: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("got %d records for other type, want 0", len(other))
	}
}

func TestQueryRecordsStableTieOrder(t *testing.T) {
	s := newTestStore(t)

	start := base.Add(-24 * time.Hour)
	end := start.Add(time.Hour)
	twin1 := sample("twin-1", start, end, 10)
	twin2 := sample("twin-2", start, end, 20)

	if _, err := s.InsertRecords(record.TypeActiveCaloriesBurned, "", []record.CalorieRecord{twin2, twin1}); err != nil {
		t.Fatalf("InsertRecords returned error: %v", err)
	}

	got, err := s.QueryRecords(record.TypeActiveCaloriesBurned, base.Add(-7*24*time.Hour), base)
	if err != nil {
		t.Fatalf("QueryRecords returned error: %v", err)
	}
	if len(got) != 2 || got[0].Metadata.ID != "twin-1" || got[1].Metadata.ID != "twin-2" {
		t.Fatalf("ties should be broken by id: %+v", got)
	}
}

func TestInsertStampsMissingFields(t *testing.T) {
	s := newTestStore(t)

	r := sample("", base.Add(-time.Hour), base, 50)
	r.Metadata.DataOrigin = ""

	n, err := s.InsertRecords(record.TypeActiveCaloriesBurned, "sh.kcal.app", []record.CalorieRecord{r})
	if err != nil {
		t.Fatalf("InsertRecords returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d inserted, want 1", n)
	}

	got, err := s.QueryRecords(record.TypeActiveCaloriesBurned, base.Add(-7*24*time.Hour), base)
	if err != nil {
		t.Fatalf("QueryRecords returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Metadata.ID == "" {
		t.Errorf("store should generate an id for records without one")
	}
	if got[0].Metadata.DataOrigin != "sh.kcal.app" {
		t.Errorf("got origin %q, want the fallback sh.kcal.app", got[0].Metadata.DataOrigin)
	}
	if _, err := time.Parse(time.RFC3339, got[0].Metadata.LastModifiedTime); err != nil {
		t.Errorf("last modified %q is not RFC 3339: %v", got[0].Metadata.LastModifiedTime, err)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	s := newTestStore(t)

	old := sample("old", base.Add(-10*24*time.Hour), base.Add(-10*24*time.Hour+time.Hour), 10)
	recent := sample("recent", base.Add(-24*time.Hour), base.Add(-23*time.Hour), 20)

	if _, err := s.InsertRecords(record.TypeActiveCaloriesBurned, "", []record.CalorieRecord{old, recent}); err != nil {
		t.Fatalf("InsertRecords returned error: %v", err)
	}

	deleted, err := s.DeleteOlderThan(base.Add(-7 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan returned error: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("got %d deleted, want 1", deleted)
	}

	n, err := s.CountRecords(record.TypeActiveCaloriesBurned)
	if err != nil {
		t.Fatalf("CountRecords returned error: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d records left, want 1", n)
	}

	got, err := s.QueryRecords(record.TypeActiveCaloriesBurned, base.Add(-7*24*time.Hour), base)
	if err != nil {
		t.Fatalf("QueryRecords returned error: %v", err)
	}
	if len(got) != 1 || got[0].Metadata.ID != "recent" {
		t.Fatalf("the recent record should survive retention, got %+v", got)
	}
}
