package history_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"respira/internal/history"
	"respira/internal/testsupport"
)

func TestInsertAndRecentRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	received := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := &history.Record{
		RequestID:  "req-ok",
		ReceivedAt: received,
		FinishedAt: received.Add(1500 * time.Millisecond),
		Outcome:    history.OutcomeSuccess,
		HTTPStatus: 200,
		ImageName:  "xray.png",
		AudioName:  "breath.wav",
		ImageBytes: 1024,
		AudioBytes: 2048,
		Audio:      &history.Diagnosis{Label: "Asthma", Confidence: 91.5},
		Image:      &history.Diagnosis{Label: "Normal", Confidence: 88.25},
		Duration:   1500 * time.Millisecond,
	}
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if rec.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	records, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.RequestID != "req-ok" || !got.Succeeded() || got.HTTPStatus != 200 {
		t.Fatalf("unexpected record: %#v", got)
	}
	if got.Audio == nil || got.Audio.Label != "Asthma" || got.Audio.Confidence != 91.5 {
		t.Fatalf("unexpected audio diagnosis: %#v", got.Audio)
	}
	if got.Image == nil || got.Image.Label != "Normal" {
		t.Fatalf("unexpected image diagnosis: %#v", got.Image)
	}
	if !got.ReceivedAt.Equal(received) {
		t.Fatalf("received_at = %v, want %v", got.ReceivedAt, received)
	}
	if got.Duration != 1500*time.Millisecond {
		t.Fatalf("duration = %v", got.Duration)
	}
	if got.ExitCode != nil {
		t.Fatalf("expected no exit code, got %d", *got.ExitCode)
	}
}

func TestInsertFailureRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	code := 1
	if err := store.Insert(ctx, &history.Record{
		RequestID:    "req-fail",
		Outcome:      history.OutcomeModelError,
		HTTPStatus:   500,
		ExitCode:     &code,
		ErrorKind:    "external_tool",
		ErrorMessage: "Traceback",
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	rec, err := store.GetByRequestID(ctx, "req-fail")
	if err != nil {
		t.Fatalf("GetByRequestID failed: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record")
	}
	if rec.Audio != nil || rec.Image != nil {
		t.Fatalf("failure record should carry no diagnoses: %#v", rec)
	}
	if rec.ExitCode == nil || *rec.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %v", rec.ExitCode)
	}
	if rec.ErrorMessage != "Traceback" {
		t.Fatalf("unexpected error message %q", rec.ErrorMessage)
	}

	missing, err := store.GetByRequestID(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil record, got %#v err=%v", missing, err)
	}
}

func TestInsertRejectsDuplicateAndEmptyRequestID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := store.Insert(ctx, &history.Record{}); err == nil {
		t.Fatal("expected error for empty request id")
	}
	if err := store.Insert(ctx, &history.Record{RequestID: "dup", Outcome: history.OutcomeRejected, HTTPStatus: 400}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := store.Insert(ctx, &history.Record{RequestID: "dup", Outcome: history.OutcomeRejected, HTTPStatus: 400}); err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestRecentOrdersNewestFirstAndLimits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		// Whole seconds and fractional timestamps interleave to exercise ordering.
		at := base.Add(time.Duration(i)*time.Second + time.Duration(i%2)*100*time.Millisecond)
		if err := store.Insert(ctx, &history.Record{
			RequestID:  fmt.Sprintf("req-%d", i),
			ReceivedAt: at,
			FinishedAt: at,
			Outcome:    history.OutcomeSuccess,
			HTTPStatus: 200,
		}); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	records, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"req-4", "req-3", "req-2"} {
		if records[i].RequestID != want {
			t.Fatalf("records[%d] = %s, want %s", i, records[i].RequestID, want)
		}
	}

	none, err := store.Recent(ctx, 0)
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no records for zero limit, got %d err=%v", len(none), err)
	}
}

func TestStatsCountsOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	empty, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if empty.Total != 0 || empty.LastFinish != nil {
		t.Fatalf("expected empty stats, got %#v", empty)
	}

	outcomes := []history.Outcome{
		history.OutcomeSuccess,
		history.OutcomeSuccess,
		history.OutcomeTimeout,
		history.OutcomeRejected,
	}
	for i, outcome := range outcomes {
		if err := store.Insert(ctx, &history.Record{
			RequestID:  fmt.Sprintf("stats-%d", i),
			Outcome:    outcome,
			HTTPStatus: 200,
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 4 {
		t.Fatalf("total = %d, want 4", stats.Total)
	}
	if stats.ByOutcome[history.OutcomeSuccess] != 2 || stats.ByOutcome[history.OutcomeTimeout] != 1 {
		t.Fatalf("unexpected counts: %#v", stats.ByOutcome)
	}
	if stats.LastFinish == nil {
		t.Fatal("expected last finish time")
	}
}

func TestReopenKeepsRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := store.Insert(context.Background(), &history.Record{RequestID: "persist", Outcome: history.OutcomeSuccess, HTTPStatus: 200}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	rec, err := reopened.GetByRequestID(context.Background(), "persist")
	if err != nil || rec == nil {
		t.Fatalf("expected persisted record, got %#v err=%v", rec, err)
	}
}

func TestOpenRejectsNilConfig(t *testing.T) {
	if _, err := history.Open(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestOpenDetectsSchemaMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	store.Close()

	db, err := sql.Open("sqlite", cfg.HistoryDBPath())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	db.Close()

	if _, err := history.Open(cfg); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
