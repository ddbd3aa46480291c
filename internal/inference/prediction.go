package inference

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// ResultPathEnv is set for the model process in file output mode.
const ResultPathEnv = "RESPIRA_RESULT_PATH"

// ErrNoJSON reports model output without any JSON object.
var ErrNoJSON = errors.New("no JSON object in model output")

// Diagnosis is one classifier's verdict.
type Diagnosis struct {
	PredictedDisease string  `json:"predicted_disease"`
	Confidence       float64 `json:"confidence"`
}

// Prediction holds both diagnoses produced for an upload pair.
type Prediction struct {
	AudioDiagnosis Diagnosis `json:"audio_diagnosis"`
	ImageDiagnosis Diagnosis `json:"image_diagnosis"`
}

type rawDiagnosis struct {
	PredictedDisease *string  `json:"predicted_disease"`
	Confidence       *float64 `json:"confidence"`
}

type rawPrediction struct {
	AudioDiagnosis *rawDiagnosis `json:"audio_diagnosis"`
	ImageDiagnosis *rawDiagnosis `json:"image_diagnosis"`
}

// DecodePrediction parses exactly one JSON object and validates it. Unknown
// fields are ignored.
func DecodePrediction(data []byte) (Prediction, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var raw rawPrediction
	if err := dec.Decode(&raw); err != nil {
		return Prediction{}, fmt.Errorf("decode prediction: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Prediction{}, errors.New("decode prediction: trailing data after JSON object")
	}

	audio, err := raw.AudioDiagnosis.validate("audio_diagnosis")
	if err != nil {
		return Prediction{}, err
	}
	image, err := raw.ImageDiagnosis.validate("image_diagnosis")
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{AudioDiagnosis: audio, ImageDiagnosis: image}, nil
}

func (d *rawDiagnosis) validate(field string) (Diagnosis, error) {
	if d == nil {
		return Diagnosis{}, fmt.Errorf("%s missing", field)
	}
	if d.PredictedDisease == nil || strings.TrimSpace(*d.PredictedDisease) == "" {
		return Diagnosis{}, fmt.Errorf("%s.predicted_disease missing", field)
	}
	if d.Confidence == nil {
		return Diagnosis{}, fmt.Errorf("%s.confidence missing", field)
	}
	c := *d.Confidence
	if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
		return Diagnosis{}, fmt.Errorf("%s.confidence invalid: %v", field, c)
	}
	return Diagnosis{PredictedDisease: *d.PredictedDisease, Confidence: c}, nil
}

// ScanPrediction locates the prediction in stdout that may carry unrelated
// progress output. Each line's span from the first '{' to the last '}' is a
// candidate, tried in order; the same span over the whole text is the last
// candidate.
func ScanPrediction(stdout string) (Prediction, error) {
	var lastErr error
	for _, line := range strings.Split(stdout, "\n") {
		candidate, ok := braceSpan(line)
		if !ok {
			continue
		}
		prediction, err := DecodePrediction([]byte(candidate))
		if err == nil {
			return prediction, nil
		}
		lastErr = err
	}
	if candidate, ok := braceSpan(stdout); ok {
		prediction, err := DecodePrediction([]byte(candidate))
		if err == nil {
			return prediction, nil
		}
		lastErr = err
	}
	if lastErr != nil {
		return Prediction{}, lastErr
	}
	return Prediction{}, ErrNoJSON
}

// StrictPrediction requires the whole of stdout, trimmed, to be the JSON object.
func StrictPrediction(stdout string) (Prediction, error) {
	trimmed := strings.TrimSpace(stdout)
	if trimmed == "" {
		return Prediction{}, ErrNoJSON
	}
	if !strings.HasPrefix(trimmed, "{") {
		return Prediction{}, errors.New("stdout is not a single JSON object")
	}
	return DecodePrediction([]byte(trimmed))
}

// ReadResultFile loads the prediction the process wrote in file output mode.
func ReadResultFile(path string) (Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Prediction{}, fmt.Errorf("result file not written: %w", ErrNoJSON)
		}
		return Prediction{}, fmt.Errorf("read result file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Prediction{}, fmt.Errorf("result file empty: %w", ErrNoJSON)
	}
	return DecodePrediction(bytes.TrimSpace(data))
}

func braceSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	end := strings.LastIndexByte(text, '}')
	if end <= start {
		return "", false
	}
	return text[start : end+1], true
}
