package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"respira/internal/api"
	"respira/internal/logging"
	"respira/internal/media"
)

// GenericErrorMessage is shown for every failed submission.
const GenericErrorMessage = "An unknown error occurred"

const defaultHTTPTimeout = 10 * time.Minute

var (
	// ErrBusy reports a submit while another is still outstanding.
	ErrBusy = errors.New("a prediction request is already in progress")
	// ErrInvalidAudio rejects an audio selection without a WAV content type.
	ErrInvalidAudio = errors.New("please upload a valid WAV file")
	// ErrInvalidImage rejects an image selection without an image content type.
	ErrInvalidImage = errors.New("please upload a valid image file")
	// ErrMissingFiles reports a submit without both selections.
	ErrMissingFiles = errors.New("please upload both PNG and WAV files")
)

// Selection is a chosen local file and the content type declared for it.
type Selection struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
}

// Result is a successful prediction.
type Result struct {
	RequestID  string
	Message    string
	Prediction api.Prediction
}

// SubmitError describes a failed submission. Its message is always the
// generic one; StatusCode, ServerError, and Details aid diagnostics.
type SubmitError struct {
	StatusCode  int
	ServerError string
	Details     string
	Err         error
}

func (e *SubmitError) Error() string { return GenericErrorMessage }

func (e *SubmitError) Unwrap() error { return e.Err }

// Diagnostic summarizes what went wrong for logs and verbose output.
func (e *SubmitError) Diagnostic() string {
	var parts []string
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.ServerError != "" {
		parts = append(parts, e.ServerError)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if e.Details != "" {
		parts = append(parts, strings.TrimSpace(e.Details))
	}
	return strings.Join(parts, ": ")
}

// Option customizes the form.
type Option func(*Form)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Form) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithLogger sets the logger for request lifecycle lines.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Form holds the upload pair and submits it to the predict endpoint.
type Form struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	image *Selection
	audio *Selection
	busy  bool
}

// NewForm returns a form that posts to baseURL's /api/predict.
func NewForm(baseURL string, opts ...Option) (*Form, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, errors.New("server url required")
	}
	endpoint, err := url.JoinPath(base, "api", "predict")
	if err != nil {
		return nil, fmt.Errorf("build predict url: %w", err)
	}
	form := &Form{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(form)
	}
	return form, nil
}

// Endpoint returns the URL submissions are posted to.
func (f *Form) Endpoint() string { return f.endpoint }

// SelectImage chooses the image file. An empty contentType is guessed from
// the file extension. On error the previous selection is kept.
func (f *Form) SelectImage(path, contentType string) (Selection, error) {
	sel, err := newSelection(path, contentType)
	if err != nil {
		return Selection{}, err
	}
	if !media.IsImageContentType(sel.ContentType) {
		return Selection{}, ErrInvalidImage
	}
	f.mu.Lock()
	f.image = &sel
	f.mu.Unlock()
	return sel, nil
}

// SelectAudio chooses the audio file, which must declare a WAV content type.
// An empty contentType is guessed from the file extension. On error the
// previous selection is kept.
func (f *Form) SelectAudio(path, contentType string) (Selection, error) {
	sel, err := newSelection(path, contentType)
	if err != nil {
		return Selection{}, err
	}
	if !media.IsWAVContentType(sel.ContentType) {
		f.logger.Debug("audio selection rejected",
			logging.String("file", sel.Name),
			logging.String("content_type", sel.ContentType),
		)
		return Selection{}, ErrInvalidAudio
	}
	f.mu.Lock()
	f.audio = &sel
	f.mu.Unlock()
	return sel, nil
}

// Image returns the current image selection.
func (f *Form) Image() (Selection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.image == nil {
		return Selection{}, false
	}
	return *f.image, true
}

// Audio returns the current audio selection.
func (f *Form) Audio() (Selection, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.audio == nil {
		return Selection{}, false
	}
	return *f.audio, true
}

// Busy reports whether a submission is outstanding.
func (f *Form) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

// Ready reports whether Submit would send a request.
func (f *Form) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.busy && f.image != nil && f.audio != nil
}

// Submit posts the upload pair once. It fails with ErrMissingFiles before any
// network call when a selection is absent and with ErrBusy while another
// submission is outstanding. Every other failure is a *SubmitError.
func (f *Form) Submit(ctx context.Context) (Result, error) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return Result{}, ErrBusy
	}
	if f.image == nil || f.audio == nil {
		f.mu.Unlock()
		return Result{}, ErrMissingFiles
	}
	image, audio := *f.image, *f.audio
	f.busy = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.busy = false
		f.mu.Unlock()
	}()

	started := time.Now()
	result, err := f.post(ctx, image, audio)
	if err != nil {
		var submitErr *SubmitError
		if errors.As(err, &submitErr) {
			f.logger.Debug("prediction request failed",
				logging.String("diagnostic", submitErr.Diagnostic()),
				logging.Duration("duration", time.Since(started)),
			)
		}
		return Result{}, err
	}
	f.logger.Debug("prediction received",
		logging.String("request_id", result.RequestID),
		logging.Duration("duration", time.Since(started)),
	)
	return result, nil
}

func (f *Form) post(ctx context.Context, image, audio Selection) (Result, error) {
	body, contentType, err := encodeUploads(image, audio)
	if err != nil {
		return Result{}, &SubmitError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, body)
	if err != nil {
		return Result{}, &SubmitError{Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Result{}, &SubmitError{Err: fmt.Errorf("http error: %w", err)}
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &SubmitError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		submitErr := &SubmitError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status %s", resp.Status)}
		var errBody api.ErrorResponse
		if json.Unmarshal(payload, &errBody) == nil {
			submitErr.ServerError = errBody.Error
			submitErr.Details = errBody.Details
		}
		return Result{}, submitErr
	}

	var decoded api.PredictResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Result{}, &SubmitError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if decoded.Prediction == nil {
		return Result{}, &SubmitError{StatusCode: resp.StatusCode, Err: errors.New("no prediction in response")}
	}
	if decoded.Prediction.AudioDiagnosis.PredictedDisease == "" || decoded.Prediction.ImageDiagnosis.PredictedDisease == "" {
		return Result{}, &SubmitError{StatusCode: resp.StatusCode, Err: errors.New("prediction missing a diagnosis")}
	}
	return Result{
		RequestID:  resp.Header.Get(api.HeaderRequestID),
		Message:    decoded.Message,
		Prediction: *decoded.Prediction,
	}, nil
}

func newSelection(path, contentType string) (Selection, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Selection{}, errors.New("file path required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Selection{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Selection{}, fmt.Errorf("%s is a directory", path)
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = media.ContentTypeForFile(path)
	}
	return Selection{
		Path:        path,
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeUploads(image, audio Selection) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, part := range []struct {
		field string
		sel   Selection
	}{
		{api.FieldImage, image},
		{api.FieldAudio, audio},
	} {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(part.field), quoteEscaper.Replace(part.sel.Name)))
		header.Set("Content-Type", part.sel.ContentType)
		w, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create %s part: %w", part.field, err)
		}
		if err := copyFile(w, part.sel.Path); err != nil {
			return nil, "", fmt.Errorf("attach %s: %w", part.field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func copyFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
