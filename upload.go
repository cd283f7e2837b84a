package precis

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/scrivano/precis/artifact"
	"github.com/scrivano/precis/fingerprint"
	"github.com/scrivano/precis/history"
	"github.com/scrivano/precis/papers"
	"github.com/scrivano/precis/safeid"
)

// UploadResult is the outcome of the upload pipeline.
type UploadResult struct {
	// Record is the existing backend record on a dedup hit, or a local
	// pending placeholder for a fresh upload.
	Record papers.Record `json:"record"`

	// Deduplicated is true when identical content was already known to the
	// backend; nothing was uploaded or enqueued.
	Deduplicated bool `json:"deduplicated"`

	// Fingerprint is the content fingerprint, empty when hashing failed.
	Fingerprint string `json:"fingerprint,omitempty"`

	// ObjectURL is where the artifact was stored; empty on a dedup hit.
	ObjectURL string `json:"object_url,omitempty"`
}

// Upload runs the full pipeline for one file: reject unsupported formats
// before any I/O, produce the PDF artifact, fingerprint it, probe the
// backend for a duplicate, and on a miss store the artifact, append a ledger
// record, and enqueue the summarization task.
//
// A dedup hit short-circuits: the existing record is returned and neither
// the object store nor the queue is touched. When the artifact was stored
// but the task submission failed, Upload returns the result together with
// the submission error; the ledger record is kept so the upload is not lost.
func (s *Service) Upload(ctx context.Context, path string) (*UploadResult, error) {
	if !s.lock.TryAcquire() {
		return nil, ErrBusy
	}
	defer s.lock.Release()
	return s.upload(ctx, path)
}

func (s *Service) upload(ctx context.Context, path string) (*UploadResult, error) {
	base := filepath.Base(path)

	// Unsupported extensions are rejected before touching the file or the
	// network.
	format, err := artifact.Detect(path)
	if err != nil {
		return nil, err
	}

	s.emit(Event{Kind: EventStage, ID: base, Stage: StageReading})
	if format != artifact.FormatPDF {
		s.emit(Event{Kind: EventStage, ID: base, Stage: StageConverting})
	}
	res, err := s.builder.Build(ctx, path)
	if err != nil {
		return nil, err
	}

	// A hashing failure counts as a dedup miss, not an abort.
	fp, err := fingerprint.FromPDF(res.Data)
	if err != nil {
		s.logger.Warn("upload: fingerprint failed, skipping dedup", "file", base, "error", err)
		fp = ""
	}

	if fp != "" {
		existing, err := s.papers.CheckHash(ctx, fp)
		switch {
		case err == nil:
			s.logger.Info("upload: duplicate content, reusing existing record",
				"file", base, "id", existing.ID)
			return &UploadResult{Record: *existing, Deduplicated: true, Fingerprint: fp}, nil
		case errors.Is(err, papers.ErrNotFound):
			// Unseen content.
		case s.strict:
			return nil, fmt.Errorf("dedup probe: %w", err)
		default:
			s.logger.Warn("upload: dedup probe failed, proceeding as miss",
				"file", base, "error", err)
		}
	}

	s.emit(Event{Kind: EventStage, ID: base, Stage: StageUploading})

	name := safeid.ObjectName(s.now(), base)
	objectURL, err := s.objects.Put(ctx, name, res.Data)
	if err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	id := s.newID()
	title := artifact.Title(path)
	err = s.ledger.Append(ctx, history.Record{
		ID:          id,
		Title:       title,
		FileName:    base,
		Fingerprint: fp,
		ObjectURL:   objectURL,
		UploadedAt:  s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}
	s.logger.Info("upload: artifact stored", "id", id, "file", base, "url", objectURL)

	result := &UploadResult{
		Record:      papers.LocalPending(id, title),
		Fingerprint: fp,
		ObjectURL:   objectURL,
	}

	task := papers.Task{
		ArxivID:      id,
		Title:        title,
		PDFURL:       objectURL,
		Processing:   true,
		ManualUpload: true,
		HashString:   fp,
	}
	if err := s.papers.Enqueue(ctx, task); err != nil {
		return result, fmt.Errorf("submit task: %w", err)
	}
	return result, nil
}
