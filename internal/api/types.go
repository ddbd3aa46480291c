package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Response messages shared by the daemon and its clients.
const (
	MessageProcessed         = "Files processed successfully"
	ErrMsgMethodNotAllowed   = "Method not allowed"
	ErrMsgParseForm          = "Error parsing form data"
	ErrMsgMissingFiles       = "Missing required files"
	ErrMsgDuplicateFiles     = "Exactly one png and one audio file are required"
	ErrMsgTooLarge           = "Upload exceeds size limit"
	ErrMsgUnsupportedMedia   = "Unsupported media type"
	ErrMsgModelFailed        = "Error running AI model"
	ErrMsgInvalidOutput      = "Invalid model output"
	ErrMsgTimeout            = "AI model timed out"
	ErrMsgInternal           = "Internal server error"
	ErrMsgHistoryDisabled    = "History is disabled"
	ErrMsgInvalidLimit       = "limit must be a positive integer"
	ErrMsgNotFound           = "Not found"
	ErrMsgServiceUnavailable = "Service unavailable"
)

// Multipart field names of the upload pair.
const (
	FieldImage = "png"
	FieldAudio = "audio"
)

const (
	// HeaderRequestID carries the request ID on predict responses.
	HeaderRequestID = "X-Request-ID"
	// HistoryMaxLimit caps GET /api/history?limit.
	HistoryMaxLimit = 200
	HealthStatusOK  = "ok"
)

// Diagnosis is one classifier's verdict.
type Diagnosis struct {
	PredictedDisease string  `json:"predicted_disease"`
	Confidence       float64 `json:"confidence"`
}

// Prediction holds the audio- and image-based diagnoses.
type Prediction struct {
	AudioDiagnosis Diagnosis `json:"audio_diagnosis"`
	ImageDiagnosis Diagnosis `json:"image_diagnosis"`
}

// PredictResponse is the 200 body of POST /api/predict.
type PredictResponse struct {
	Message    string      `json:"message"`
	Prediction *Prediction `json:"prediction"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// HistoryRecord describes one finished predict request.
type HistoryRecord struct {
	RequestID    string     `json:"requestId"`
	ReceivedAt   string     `json:"receivedAt,omitempty"`
	FinishedAt   string     `json:"finishedAt,omitempty"`
	Outcome      string     `json:"outcome"`
	HTTPStatus   int        `json:"httpStatus"`
	ImageName    string     `json:"imageName,omitempty"`
	AudioName    string     `json:"audioName,omitempty"`
	ImageBytes   int64      `json:"imageBytes"`
	AudioBytes   int64      `json:"audioBytes"`
	Audio        *Diagnosis `json:"audioDiagnosis,omitempty"`
	Image        *Diagnosis `json:"imageDiagnosis,omitempty"`
	ExitCode     *int       `json:"exitCode,omitempty"`
	ErrorKind    string     `json:"errorKind,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	DurationMS   int64      `json:"durationMs"`
}

// HistoryResponse wraps ledger records, newest first.
type HistoryResponse struct {
	Records []HistoryRecord `json:"records"`
}

// HistoryStats summarizes the ledger.
type HistoryStats struct {
	Total      int            `json:"total"`
	ByOutcome  map[string]int `json:"byOutcome"`
	LastFinish string         `json:"lastFinish,omitempty"`
}

// DependencyStatus captures availability of an external dependency or directory.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// CheckResult is one local preflight check.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// InferenceStatus reports how the model process is launched.
type InferenceStatus struct {
	Command        string   `json:"command"`
	Args           []string `json:"args"`
	OutputMode     string   `json:"outputMode"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool               `json:"running"`
	PID            int                `json:"pid"`
	Bind           string             `json:"bind"`
	ScratchDir     string             `json:"scratchDir"`
	ScratchCleanup string             `json:"scratchCleanup"`
	LockFilePath   string             `json:"lockFilePath"`
	HistoryDBPath  string             `json:"historyDbPath,omitempty"`
	StartedAt      string             `json:"startedAt,omitempty"`
	Inference      InferenceStatus    `json:"inference"`
	Dependencies   []DependencyStatus `json:"dependencies"`
	Checks         []CheckResult      `json:"checks"`
	History        *HistoryStats      `json:"history,omitempty"`
}
