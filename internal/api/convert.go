package api

import (
	"time"

	"respira/internal/deps"
	"respira/internal/history"
	"respira/internal/inference"
)

// FromPrediction converts an inference result to its wire form.
func FromPrediction(p inference.Prediction) *Prediction {
	return &Prediction{
		AudioDiagnosis: Diagnosis{
			PredictedDisease: p.AudioDiagnosis.PredictedDisease,
			Confidence:       p.AudioDiagnosis.Confidence,
		},
		ImageDiagnosis: Diagnosis{
			PredictedDisease: p.ImageDiagnosis.PredictedDisease,
			Confidence:       p.ImageDiagnosis.Confidence,
		},
	}
}

// FromDependencyStatuses converts dependency checks to their wire form.
func FromDependencyStatuses(statuses []deps.Status) []DependencyStatus {
	out := make([]DependencyStatus, 0, len(statuses))
	for _, dep := range statuses {
		out = append(out, DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

// FromHistoryRecord converts a ledger row to its API representation.
func FromHistoryRecord(rec history.Record) HistoryRecord {
	dto := HistoryRecord{
		RequestID:    rec.RequestID,
		ReceivedAt:   formatTime(rec.ReceivedAt),
		FinishedAt:   formatTime(rec.FinishedAt),
		Outcome:      string(rec.Outcome),
		HTTPStatus:   rec.HTTPStatus,
		ImageName:    rec.ImageName,
		AudioName:    rec.AudioName,
		ImageBytes:   rec.ImageBytes,
		AudioBytes:   rec.AudioBytes,
		ErrorKind:    rec.ErrorKind,
		ErrorMessage: rec.ErrorMessage,
		DurationMS:   rec.Duration.Milliseconds(),
	}
	if rec.Audio != nil {
		dto.Audio = &Diagnosis{PredictedDisease: rec.Audio.Label, Confidence: rec.Audio.Confidence}
	}
	if rec.Image != nil {
		dto.Image = &Diagnosis{PredictedDisease: rec.Image.Label, Confidence: rec.Image.Confidence}
	}
	if rec.ExitCode != nil {
		code := *rec.ExitCode
		dto.ExitCode = &code
	}
	return dto
}

// FromHistoryRecords converts a slice of ledger rows, never returning nil.
func FromHistoryRecords(records []history.Record) []HistoryRecord {
	out := make([]HistoryRecord, 0, len(records))
	for _, rec := range records {
		out = append(out, FromHistoryRecord(rec))
	}
	return out
}

// FromHistoryStats converts ledger counts.
func FromHistoryStats(stats history.Stats) *HistoryStats {
	dto := &HistoryStats{
		Total:     stats.Total,
		ByOutcome: make(map[string]int, len(stats.ByOutcome)),
	}
	for outcome, count := range stats.ByOutcome {
		dto.ByOutcome[string(outcome)] = count
	}
	if stats.LastFinish != nil {
		dto.LastFinish = formatTime(*stats.LastFinish)
	}
	return dto
}

// ParseTime reads a timestamp produced by this package.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
