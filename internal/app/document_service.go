package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"pdf-chatbot-backend/internal/ai"
	"pdf-chatbot-backend/internal/model"
	"pdf-chatbot-backend/internal/pkg/filename"
	"pdf-chatbot-backend/internal/pkg/pdfextract"
	"pdf-chatbot-backend/internal/storage"
)

// AllowedExtension is the only upload type accepted.
const AllowedExtension = "pdf"

type AnswerService interface {
	Answer(ctx context.Context, contextText, question string) ai.Answer
}

// IngestObserver is told about every document that finished ingesting.
type IngestObserver interface {
	DocumentIngested(ctx context.Context, event model.DocumentIngested) error
}

type DocumentService struct {
	store    *storage.Store
	answerer AnswerService
	observer IngestObserver
	now      func() time.Time
}

func NewDocumentService(store *storage.Store, answerer AnswerService, observer IngestObserver) *DocumentService {
	if observer == nil {
		observer = NopObserver{}
	}
	return &DocumentService{
		store:    store,
		answerer: answerer,
		observer: observer,
		now:      time.Now,
	}
}

type IngestInput struct {
	FileName string
	Body     io.Reader
}

type IngestResult struct {
	DocumentID   string `json:"document_id"`
	ArtifactName string `json:"artifact_name"`
	PageCount    int    `json:"page_count"`
	SizeBytes    int64  `json:"size_bytes"`
}

// Ingest stores an uploaded PDF under its sanitized name and writes the
// page-by-page extraction next to it. Prior state for the same name is
// replaced only when extraction and both writes succeed.
func (s *DocumentService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if input.FileName == "" || input.Body == nil {
		return nil, ErrInvalidInput
	}
	if !filename.HasExtension(input.FileName, AllowedExtension) {
		return nil, ErrUnsupportedType
	}
	documentID := filename.Secure(input.FileName)
	if documentID == "" {
		return nil, ErrInvalidFileName
	}

	staged, err := s.store.Stage(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	content, err := pdfextract.ExtractFile(staged.Path)
	if err != nil {
		s.store.Discard(staged)
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}
	stagedArtifact, err := s.store.StageArtifact(ctx, content)
	if err != nil {
		s.store.Discard(staged)
		return nil, err
	}
	artifactName, err := s.store.Publish(staged, stagedArtifact, documentID)
	if err != nil {
		s.store.Discard(staged)
		s.store.Discard(stagedArtifact)
		return nil, err
	}

	result := &IngestResult{
		DocumentID:   documentID,
		ArtifactName: artifactName,
		PageCount:    len(content),
		SizeBytes:    staged.Size,
	}
	event := model.DocumentIngested{
		DocumentID:   result.DocumentID,
		ArtifactName: result.ArtifactName,
		PageCount:    result.PageCount,
		SizeBytes:    result.SizeBytes,
		IngestedAt:   s.now().UTC(),
	}
	if err := s.observer.DocumentIngested(ctx, event); err != nil {
		slog.Warn("notify document ingested failed", "document_id", documentID, "error", err)
	}
	return result, nil
}

type QueryInput struct {
	DocumentName string
	Question     string
}

type QueryResult struct {
	DocumentID string
	Context    string
	Answer     ai.Answer
}

// Query loads the stored extraction for a document, flattens it and asks the
// answering service. Answering failures are returned inside the result.
func (s *DocumentService) Query(ctx context.Context, input QueryInput) (*QueryResult, error) {
	if input.DocumentName == "" || input.Question == "" {
		return nil, ErrInvalidInput
	}
	documentID := filename.Secure(input.DocumentName)
	if documentID == "" {
		return nil, ErrDocumentNotFound
	}

	content, err := s.store.ReadArtifact(ctx, documentID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	contextText := content.Flatten()
	return &QueryResult{
		DocumentID: documentID,
		Context:    contextText,
		Answer:     s.answerer.Answer(ctx, contextText, input.Question),
	}, nil
}

// ListDocuments returns the documents that have been ingested.
func (s *DocumentService) ListDocuments(ctx context.Context) ([]model.DocumentInfo, error) {
	return s.store.List(ctx)
}
