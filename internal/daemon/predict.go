package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"respira/internal/api"
	"respira/internal/history"
	"respira/internal/inference"
	"respira/internal/logging"
	"respira/internal/media"
	"respira/internal/scratch"
	"respira/internal/services"
)

const (
	stepReceive  = "receive"
	stepValidate = "validate"
	stepInfer    = "infer"

	historyWriteTimeout = 5 * time.Second
)

// failure is a predict request that ended without a prediction. A zero
// status means the client is gone and nothing is written.
type failure struct {
	status  int
	message string
	details string
	outcome history.Outcome
	err     error
}

func rejected(status int, message string, err error) *failure {
	return &failure{status: status, message: message, outcome: history.OutcomeRejected, err: err}
}

func internalFailure(err error) *failure {
	return &failure{
		status:  http.StatusInternalServerError,
		message: api.ErrMsgInternal,
		outcome: history.OutcomeInternal,
		err:     err,
	}
}

// uploads holds the saved upload pair.
type uploads struct {
	image scratch.SavedFile
	audio scratch.SavedFile
}

func (s *apiServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeError(w, http.StatusMethodNotAllowed, api.ErrMsgMethodNotAllowed)
		return
	}

	ctx := r.Context()
	requestID, _ := services.RequestIDFromContext(ctx)
	logger := logging.WithContext(ctx, s.log())
	rec := &history.Record{RequestID: requestID, ReceivedAt: time.Now().UTC()}

	ws, err := s.daemon.scratch.Create(requestID)
	if err != nil {
		fail := internalFailure(services.Wrap(services.ErrConfiguration, stepReceive, "create scratch directory", "", err))
		s.respondFailure(w, logger, fail, rec)
		s.recordHistory(ctx, logger, rec)
		return
	}

	outcome, fail := s.predict(ctx, w, r, ws, rec, logger)
	if fail != nil {
		s.respondFailure(w, logger, fail, rec)
	} else {
		s.respondSuccess(w, logger, outcome, rec)
	}

	var removed bool
	switch {
	case fail == nil:
		removed, err = ws.Finish(true)
	case fail.status < http.StatusInternalServerError:
		removed, err = ws.Discard()
	default:
		removed, err = ws.Finish(false)
	}
	if err == nil && removed {
		logger.Debug("scratch directory removed", logging.String("path", ws.Dir))
	}
	s.recordHistory(ctx, logger, rec)
}

func (s *apiServer) predict(ctx context.Context, w http.ResponseWriter, r *http.Request, ws *scratch.Workspace, rec *history.Record, logger *slog.Logger) (inference.Outcome, *failure) {
	files, fail := s.receiveUploads(w, r, ws)
	if fail != nil {
		return inference.Outcome{}, fail
	}
	rec.ImageName = files.image.OriginalName
	rec.AudioName = files.audio.OriginalName
	rec.ImageBytes = files.image.Size
	rec.AudioBytes = files.audio.Size

	if s.cfg.Upload.ValidateMedia {
		if err := media.CheckImage(files.image.Path); err != nil {
			return inference.Outcome{}, rejected(http.StatusUnsupportedMediaType, api.ErrMsgUnsupportedMedia,
				services.Wrap(services.ErrValidation, stepValidate, "check image", "", err))
		}
		if err := media.CheckWAV(files.audio.Path); err != nil {
			return inference.Outcome{}, rejected(http.StatusUnsupportedMediaType, api.ErrMsgUnsupportedMedia,
				services.Wrap(services.ErrValidation, stepValidate, "check audio", "", err))
		}
	}

	logger.Info("upload pair received",
		logging.String("image", files.image.OriginalName),
		logging.Int64("image_bytes", files.image.Size),
		logging.String("audio", files.audio.OriginalName),
		logging.Int64("audio_bytes", files.audio.Size),
	)

	outcome, err := s.daemon.predictor.Predict(services.WithStep(ctx, stepInfer), inference.Request{
		Dir:       ws.Dir,
		AudioPath: files.audio.Path,
		ImagePath: files.image.Path,
	})
	rec.Duration = outcome.Duration
	if err != nil {
		var procErr *inference.ProcessError
		if errors.As(err, &procErr) && procErr.ExitCode >= 0 {
			code := procErr.ExitCode
			rec.ExitCode = &code
		}
		return outcome, classifyPredictError(err)
	}
	code := outcome.ExitCode
	rec.ExitCode = &code
	return outcome, nil
}

// classifyPredictError maps a runner error to the response the client sees.
func classifyPredictError(err error) *failure {
	var procErr *inference.ProcessError
	var outErr *inference.OutputError
	switch {
	case errors.Is(err, services.ErrCanceled):
		return &failure{outcome: history.OutcomeCanceled, err: err}
	case errors.Is(err, services.ErrTimeout):
		return &failure{
			status:  services.HTTPStatus(err),
			message: api.ErrMsgTimeout,
			outcome: history.OutcomeTimeout,
			err:     err,
		}
	case errors.As(err, &procErr):
		return &failure{
			status:  services.HTTPStatus(err),
			message: api.ErrMsgModelFailed,
			details: procErr.Details(),
			outcome: history.OutcomeModelError,
			err:     err,
		}
	case errors.As(err, &outErr):
		return &failure{
			status:  services.HTTPStatus(err),
			message: api.ErrMsgInvalidOutput,
			details: outErr.Err.Error(),
			outcome: history.OutcomeInvalidOutput,
			err:     err,
		}
	default:
		return internalFailure(err)
	}
}

// receiveUploads streams the multipart body into the workspace. Exactly one
// file part per field is accepted; other parts are drained and ignored.
func (s *apiServer) receiveUploads(w http.ResponseWriter, r *http.Request, ws *scratch.Workspace) (uploads, *failure) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	reader, err := r.MultipartReader()
	if err != nil {
		return uploads{}, rejected(http.StatusBadRequest, api.ErrMsgParseForm,
			services.Wrap(services.ErrValidation, stepReceive, "parse multipart", "", err))
	}

	var files uploads
	var haveImage, haveAudio bool
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return uploads{}, bodyFailure(err)
		}

		var target *scratch.SavedFile
		var base string
		if part.FileName() != "" {
			switch part.FormName() {
			case api.FieldImage:
				if haveImage {
					return uploads{}, duplicateField(part)
				}
				haveImage, target, base = true, &files.image, "image"
			case api.FieldAudio:
				if haveAudio {
					return uploads{}, duplicateField(part)
				}
				haveAudio, target, base = true, &files.audio, "audio"
			}
		}

		if target == nil {
			_, err = io.Copy(io.Discard, part)
			_ = part.Close()
			if err != nil {
				return uploads{}, bodyFailure(err)
			}
			continue
		}

		body := &trackingReader{r: part}
		saved, err := ws.Save(base, part.FileName(), body)
		_ = part.Close()
		if err != nil {
			if body.err != nil {
				return uploads{}, bodyFailure(body.err)
			}
			return uploads{}, internalFailure(services.Wrap(services.ErrConfiguration, stepReceive, "save upload", base, err))
		}
		*target = saved
	}

	if !haveImage || !haveAudio {
		return uploads{}, rejected(http.StatusBadRequest, api.ErrMsgMissingFiles,
			services.Wrap(services.ErrValidation, stepReceive, "check fields", "png and audio files required", nil))
	}
	return files, nil
}

func bodyFailure(err error) *failure {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return rejected(http.StatusRequestEntityTooLarge, api.ErrMsgTooLarge,
			services.Wrap(services.ErrValidation, stepReceive, "read body", "", err))
	}
	return rejected(http.StatusBadRequest, api.ErrMsgParseForm,
		services.Wrap(services.ErrValidation, stepReceive, "read body", "", err))
}

func duplicateField(part *multipart.Part) *failure {
	_ = part.Close()
	return rejected(http.StatusBadRequest, api.ErrMsgDuplicateFiles,
		services.Wrap(services.ErrValidation, stepReceive, "check fields", "duplicate "+part.FormName()+" file", nil))
}

// trackingReader remembers read errors so they can be told apart from
// write errors in the scratch directory.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		t.err = err
	}
	return n, err
}

func (s *apiServer) respondSuccess(w http.ResponseWriter, logger *slog.Logger, outcome inference.Outcome, rec *history.Record) {
	p := outcome.Prediction
	rec.Outcome = history.OutcomeSuccess
	rec.HTTPStatus = http.StatusOK
	rec.Audio = &history.Diagnosis{Label: p.AudioDiagnosis.PredictedDisease, Confidence: p.AudioDiagnosis.Confidence}
	rec.Image = &history.Diagnosis{Label: p.ImageDiagnosis.PredictedDisease, Confidence: p.ImageDiagnosis.Confidence}

	logger.Info("prediction completed",
		logging.String("audio_diagnosis", p.AudioDiagnosis.PredictedDisease),
		logging.Float64("audio_confidence", p.AudioDiagnosis.Confidence),
		logging.String("image_diagnosis", p.ImageDiagnosis.PredictedDisease),
		logging.Float64("image_confidence", p.ImageDiagnosis.Confidence),
		logging.Duration("model_duration", outcome.Duration),
		logging.String(logging.FieldEventType, "prediction_completed"),
	)
	s.writeJSON(w, http.StatusOK, api.PredictResponse{
		Message:    api.MessageProcessed,
		Prediction: api.FromPrediction(p),
	})
}

func (s *apiServer) respondFailure(w http.ResponseWriter, logger *slog.Logger, fail *failure, rec *history.Record) {
	rec.Outcome = fail.outcome
	rec.HTTPStatus = fail.status
	rec.ErrorKind = services.Kind(fail.err)
	if fail.err != nil {
		rec.ErrorMessage = fail.err.Error()
	}

	attrs := []logging.Attr{
		logging.String("outcome", string(fail.outcome)),
		logging.Int("status", fail.status),
		logging.String("error_kind", rec.ErrorKind),
		logging.Error(fail.err),
	}
	switch {
	case fail.status == 0:
		logger.Info("client disconnected before prediction finished", logging.Args(attrs...)...)
		return
	case fail.status < http.StatusInternalServerError:
		logger.Info("predict request rejected", logging.Args(attrs...)...)
	default:
		attrs = append(attrs,
			logging.String(logging.FieldErrorHint, failureHint(fail.outcome)),
			logging.String(logging.FieldImpact, "no prediction returned"),
		)
		logging.WarnWithContext(logger, "predict request failed", "predict_failed", attrs...)
	}
	s.writeErrorDetails(w, fail.status, fail.message, fail.details)
}

func failureHint(outcome history.Outcome) string {
	switch outcome {
	case history.OutcomeTimeout:
		return "raise inference.timeout_seconds or check the model for hangs"
	case history.OutcomeModelError:
		return "see details for the model's stderr"
	case history.OutcomeInvalidOutput:
		return "check inference.output_mode against what the model prints"
	default:
		return "check paths.scratch_dir and daemon logs"
	}
}

func (s *apiServer) recordHistory(ctx context.Context, logger *slog.Logger, rec *history.Record) {
	store := s.daemon.store
	if store == nil {
		return
	}
	rec.FinishedAt = time.Now().UTC()
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	if err := store.Insert(writeCtx, rec); err != nil {
		logging.WarnWithContext(logger, "failed to record prediction history", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.data_dir permissions and disk space"),
			logging.String(logging.FieldImpact, "request missing from history"),
		)
	}
}
