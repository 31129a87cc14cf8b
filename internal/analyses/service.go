package analyses

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"verisight-backend/internal/llm"
	"verisight-backend/internal/shared/metrics"
	"verisight-backend/internal/shared/storage/object"
	"verisight-backend/internal/shared/telemetry"
)

// Service runs the upload pipeline and the owner-scoped reads around analyses.
type Service struct {
	Repo Repo
	LLM  llm.Client
	// Store keeps uploaded bytes outside the record. When nil the data URI is kept in fileUrl.
	Store object.Store
	// MaxRetries is the number of extra model calls on transient failures (0 or 1).
	MaxRetries int
}

// UploadInput is the client-supplied part of an upload.
type UploadInput struct {
	FileName string
	FileType string
	FileData string
}

// Content is the stored media of an analysis.
type Content struct {
	FileName string
	MIMEType string
	Size     int64
	Body     io.ReadCloser
}

// Upload validates the input, asks the model for a verdict and persists the result.
// No record is created when any step fails.
func (s *Service) Upload(ctx context.Context, ownerID string, in UploadInput) (Analysis, error) {
	if strings.TrimSpace(ownerID) == "" {
		return Analysis{}, ErrUnauthenticated
	}
	if err := validateUpload(in); err != nil {
		metrics.IncUploadFailed("validation")
		return Analysis{}, err
	}
	payload, err := DecodeDataURI(in.FileData)
	if err != nil {
		metrics.IncUploadFailed("validation")
		return Analysis{}, err
	}

	metrics.IncUploadStarted()
	requestID := requestIDFromContext(ctx)
	client := newRetryingLLM(s.LLM, s.MaxRetries, requestID)

	start := time.Now()
	raw, err := client.Analyze(ctx, llm.MediaInput{
		Content:  payload.Content,
		MIMEType: payload.MIMEType,
		Kind:     in.FileType,
	})
	metrics.ObserveModelDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		s.fail(ctx, "model", in, err)
		return Analysis{}, err
	}

	verdict, err := ParseVerdict(raw)
	if err != nil {
		s.fail(ctx, "model", in, err)
		return Analysis{}, err
	}
	if err := ctx.Err(); err != nil {
		s.fail(ctx, "canceled", in, err)
		return Analysis{}, err
	}

	record := Analysis{
		OwnerID:           ownerID,
		FileName:          in.FileName,
		FileType:          in.FileType,
		MIMEType:          payload.MIMEType,
		SentimentLabel:    &verdict.SentimentLabel,
		SentimentScore:    &verdict.SentimentScore,
		AuthenticityLabel: &verdict.AuthenticityLabel,
		AuthenticityScore: &verdict.AuthenticityScore,
		Details:           verdict.Details,
	}

	if s.Store != nil {
		obj, err := s.Store.Save(ctx, ownerID, in.FileName, payload.MIMEType, bytes.NewReader(payload.Content))
		if err != nil {
			err = storageErr("save content", err)
			s.fail(ctx, "storage", in, err)
			return Analysis{}, err
		}
		record.StorageKey = obj.Key
	} else {
		record.FileURL = in.FileData
	}

	created, err := s.Repo.Create(ctx, record)
	if err != nil {
		if record.StorageKey != "" {
			s.removeContent(context.WithoutCancel(ctx), record.StorageKey)
		}
		if !errors.Is(err, ErrStorage) {
			err = storageErr("create analysis", err)
		}
		s.fail(ctx, "storage", in, err)
		return Analysis{}, err
	}

	metrics.IncUploadCompleted()
	telemetry.Info("analysis.created", map[string]any{
		"request_id":         requestID,
		"analysis_id":        created.ID,
		"user_id":            ownerID,
		"file_type":          created.FileType,
		"mime_type":          created.MIMEType,
		"bytes":              len(payload.Content),
		"authenticity_label": verdict.AuthenticityLabel,
	})
	return present(created), nil
}

// Get returns the analysis when the caller owns it.
func (s *Service) Get(ctx context.Context, callerID string, id int64) (Analysis, error) {
	a, err := s.owned(ctx, callerID, id)
	if err != nil {
		return Analysis{}, err
	}
	return present(a), nil
}

// List returns the caller's analyses, newest first.
func (s *Service) List(ctx context.Context, callerID string) ([]Analysis, error) {
	if strings.TrimSpace(callerID) == "" {
		return nil, ErrUnauthenticated
	}
	list, err := s.Repo.ListByOwner(ctx, callerID)
	if err != nil {
		return nil, err
	}
	for i := range list {
		list[i] = present(list[i])
	}
	return list, nil
}

// Latest returns the caller's newest analysis.
func (s *Service) Latest(ctx context.Context, callerID string) (Analysis, error) {
	if strings.TrimSpace(callerID) == "" {
		return Analysis{}, ErrUnauthenticated
	}
	a, err := s.Repo.LatestByOwner(ctx, callerID)
	if err != nil {
		return Analysis{}, err
	}
	return present(a), nil
}

// Delete removes the caller's analysis and its stored content.
func (s *Service) Delete(ctx context.Context, callerID string, id int64) error {
	a, err := s.owned(ctx, callerID, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	if a.StorageKey != "" {
		s.removeContent(ctx, a.StorageKey)
	}
	telemetry.Info("analysis.deleted", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"analysis_id": id,
		"user_id":     callerID,
	})
	return nil
}

// Content opens the stored media of the caller's analysis.
func (s *Service) Content(ctx context.Context, callerID string, id int64) (Content, error) {
	a, err := s.owned(ctx, callerID, id)
	if err != nil {
		return Content{}, err
	}
	if a.StorageKey != "" {
		if s.Store == nil {
			return Content{}, ErrNoContent
		}
		body, err := s.Store.Open(ctx, a.StorageKey)
		if errors.Is(err, object.ErrNotFound) {
			return Content{}, ErrNoContent
		}
		if err != nil {
			return Content{}, storageErr("open content", err)
		}
		return Content{FileName: a.FileName, MIMEType: a.MIMEType, Size: -1, Body: body}, nil
	}
	payload, err := DecodeDataURI(a.FileURL)
	if err != nil {
		return Content{}, ErrNoContent
	}
	return Content{
		FileName: a.FileName,
		MIMEType: payload.MIMEType,
		Size:     int64(len(payload.Content)),
		Body:     io.NopCloser(bytes.NewReader(payload.Content)),
	}, nil
}

func (s *Service) owned(ctx context.Context, callerID string, id int64) (Analysis, error) {
	if strings.TrimSpace(callerID) == "" {
		return Analysis{}, ErrUnauthenticated
	}
	a, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return Analysis{}, err
	}
	if a.OwnerID != callerID {
		return Analysis{}, ErrForbidden
	}
	return a, nil
}

func (s *Service) removeContent(ctx context.Context, key string) {
	if err := s.Store.Delete(ctx, key); err != nil {
		telemetry.Warn("analysis.content_cleanup_failed", map[string]any{
			"request_id":  requestIDFromContext(ctx),
			"storage_key": key,
			"error":       err.Error(),
		})
	}
}

func (s *Service) fail(ctx context.Context, reason string, in UploadInput, err error) {
	metrics.IncUploadFailed(reason)
	telemetry.Error("analysis.upload_failed", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"reason":     reason,
		"file_type":  in.FileType,
		"error":      err.Error(),
	})
}

func validateUpload(in UploadInput) error {
	if strings.TrimSpace(in.FileName) == "" {
		return invalid("fileName", "File name is required")
	}
	if !ValidKind(in.FileType) {
		return invalid("fileType", fmt.Sprintf("File type must be one of %s, %s, %s, %s", KindImage, KindAudio, KindVideo, KindText))
	}
	return nil
}

func present(a Analysis) Analysis {
	if a.StorageKey != "" {
		a.FileURL = ContentPath(a.ID)
	}
	return a
}
