package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"respira/internal/api"
	"respira/internal/history"
	"respira/internal/testsupport"
)

func TestHistoryCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, "", env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No predictions recorded yet")
}

func TestHistoryCommandListsRecords(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenStore(t, env.cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	exitCode := 1
	records := []*history.Record{
		{
			RequestID:  "aaaaaaaa-1111-4111-8111-111111111111",
			ReceivedAt: now.Add(-2 * time.Hour),
			FinishedAt: now.Add(-2*time.Hour + 3*time.Second),
			Outcome:    history.OutcomeSuccess,
			HTTPStatus: 200,
			Audio:      &history.Diagnosis{Label: "Asthma", Confidence: 91.5},
			Image:      &history.Diagnosis{Label: "Normal", Confidence: 88.25},
			Duration:   3 * time.Second,
		},
		{
			RequestID:    "bbbbbbbb-2222-4222-8222-222222222222",
			ReceivedAt:   now.Add(-time.Minute),
			FinishedAt:   now.Add(-time.Minute + time.Second),
			Outcome:      history.OutcomeModelError,
			HTTPStatus:   500,
			ExitCode:     &exitCode,
			ErrorMessage: "model exploded",
			Duration:     time.Second,
		},
	}
	for _, rec := range records {
		if err := store.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	out, _, err := runCLI(t, []string{"history"}, "", env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "aaaaaaaa")
	requireContains(t, out, "Asthma (91.5%)")
	requireContains(t, out, "model_error")
	requireContains(t, out, "Showing 2 of 2 requests")
	if strings.Index(out, "bbbbbbbb") > strings.Index(out, "aaaaaaaa") {
		t.Fatalf("expected newest record first:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"history", "--limit", "1", "--json"}, "", env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var payload struct {
		Enabled bool                `json:"enabled"`
		Records []api.HistoryRecord `json:"records"`
		Stats   api.HistoryStats    `json:"stats"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(payload.Records) != 1 || payload.Records[0].RequestID != records[1].RequestID {
		t.Fatalf("unexpected records %+v", payload.Records)
	}
	if payload.Stats.Total != 2 {
		t.Fatalf("stats total = %d, want 2", payload.Stats.Total)
	}
}

func TestHistoryCommandDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistory(false))

	out, _, err := runCLI(t, []string{"history"}, "", env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "History is disabled")
}
