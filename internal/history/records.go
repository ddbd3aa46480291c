package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Outcome classifies how a predict request ended.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeRejected      Outcome = "rejected"
	OutcomeModelError    Outcome = "model_error"
	OutcomeInvalidOutput Outcome = "invalid_output"
	OutcomeTimeout       Outcome = "timeout"
	OutcomeCanceled      Outcome = "canceled"
	OutcomeInternal      Outcome = "internal_error"
)

// Diagnosis is the stored label and confidence for one classifier.
type Diagnosis struct {
	Label      string
	Confidence float64
}

// Record describes one finished predict request.
type Record struct {
	ID           int64
	RequestID    string
	ReceivedAt   time.Time
	FinishedAt   time.Time
	Outcome      Outcome
	HTTPStatus   int
	ImageName    string
	AudioName    string
	ImageBytes   int64
	AudioBytes   int64
	Audio        *Diagnosis
	Image        *Diagnosis
	ExitCode     *int
	ErrorKind    string
	ErrorMessage string
	Duration     time.Duration
}

// Succeeded reports whether the request produced a prediction.
func (r Record) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// Stats summarizes the ledger.
type Stats struct {
	Total      int
	ByOutcome  map[Outcome]int
	LastFinish *time.Time
}

// timestampLayout keeps a fixed fraction width so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

const recordColumns = "id, request_id, received_at, finished_at, outcome, http_status, image_name, audio_name, image_bytes, audio_bytes, audio_label, audio_confidence, image_label, image_confidence, exit_code, error_kind, error_message, duration_ms"

// Insert writes rec and assigns its ID.
func (s *Store) Insert(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	if strings.TrimSpace(rec.RequestID) == "" {
		return errors.New("record request id required")
	}
	ctx = ensureContext(ctx)
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now().UTC()
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = rec.FinishedAt
	}
	if rec.Outcome == "" {
		rec.Outcome = OutcomeInternal
	}

	var audioLabel, imageLabel any
	var audioConf, imageConf any
	if rec.Audio != nil {
		audioLabel, audioConf = rec.Audio.Label, rec.Audio.Confidence
	}
	if rec.Image != nil {
		imageLabel, imageConf = rec.Image.Label, rec.Image.Confidence
	}
	var exitCode any
	if rec.ExitCode != nil {
		exitCode = *rec.ExitCode
	}

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx,
			`INSERT INTO predictions (
                request_id, received_at, finished_at, outcome, http_status,
                image_name, audio_name, image_bytes, audio_bytes,
                audio_label, audio_confidence, image_label, image_confidence,
                exit_code, error_kind, error_message, duration_ms
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RequestID,
			rec.ReceivedAt.UTC().Format(timestampLayout),
			rec.FinishedAt.UTC().Format(timestampLayout),
			string(rec.Outcome),
			rec.HTTPStatus,
			nullableString(rec.ImageName),
			nullableString(rec.AudioName),
			rec.ImageBytes,
			rec.AudioBytes,
			audioLabel,
			audioConf,
			imageLabel,
			imageConf,
			exitCode,
			nullableString(rec.ErrorKind),
			nullableString(rec.ErrorMessage),
			rec.Duration.Milliseconds(),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM predictions ORDER BY received_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// GetByRequestID fetches one record. It returns nil when none matches.
func (s *Store) GetByRequestID(ctx context.Context, requestID string) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+recordColumns+` FROM predictions WHERE request_id = ?`, requestID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &rec, nil
}

// Stats counts records per outcome.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{ByOutcome: make(map[Outcome]int)}

	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM predictions GROUP BY outcome`)
	if err != nil {
		return stats, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return stats, fmt.Errorf("scan stats: %w", err)
		}
		stats.ByOutcome[Outcome(outcome)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate stats: %w", err)
	}

	var last sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(finished_at) FROM predictions`).Scan(&last); err != nil {
		return stats, fmt.Errorf("query last finish: %w", err)
	}
	if last.Valid {
		if ts, err := parseTimeString(last.String); err == nil {
			stats.LastFinish = &ts
		}
	}
	return stats, nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec         Record
		receivedRaw string
		finishedRaw string
		outcome     string
		imageName   sql.NullString
		audioName   sql.NullString
		audioLabel  sql.NullString
		audioConf   sql.NullFloat64
		imageLabel  sql.NullString
		imageConf   sql.NullFloat64
		exitCode    sql.NullInt64
		errorKind   sql.NullString
		errorMsg    sql.NullString
		durationMS  int64
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.RequestID,
		&receivedRaw,
		&finishedRaw,
		&outcome,
		&rec.HTTPStatus,
		&imageName,
		&audioName,
		&rec.ImageBytes,
		&rec.AudioBytes,
		&audioLabel,
		&audioConf,
		&imageLabel,
		&imageConf,
		&exitCode,
		&errorKind,
		&errorMsg,
		&durationMS,
	); err != nil {
		return Record{}, err
	}

	rec.Outcome = Outcome(outcome)
	rec.ImageName = imageName.String
	rec.AudioName = audioName.String
	rec.ErrorKind = errorKind.String
	rec.ErrorMessage = errorMsg.String
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if ts, err := parseTimeString(receivedRaw); err == nil {
		rec.ReceivedAt = ts
	}
	if ts, err := parseTimeString(finishedRaw); err == nil {
		rec.FinishedAt = ts
	}
	if audioLabel.Valid {
		rec.Audio = &Diagnosis{Label: audioLabel.String, Confidence: audioConf.Float64}
	}
	if imageLabel.Valid {
		rec.Image = &Diagnosis{Label: imageLabel.String, Confidence: imageConf.Float64}
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		rec.ExitCode = &code
	}
	return rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
