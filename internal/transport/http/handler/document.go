package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pdf-chatbot-backend/internal/ai"
	"pdf-chatbot-backend/internal/app"
	"pdf-chatbot-backend/internal/model"
	"pdf-chatbot-backend/internal/transport/http/middleware"
	"pdf-chatbot-backend/internal/transport/http/response"
)

const (
	missingCredentialAnswer = "OpenAI API key not set."
	answerErrorPrefix       = "Error querying OpenAI: "
)

type DocumentHandler struct {
	documentService *app.DocumentService
	maxUploadBytes  int64
}

type QueryRequest struct {
	PDFName  string `json:"pdf_name"`
	Question string `json:"question"`
}

type UploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

type QueryResponse struct {
	Answer string `json:"answer"`
}

type ListDocumentsResponse struct {
	Documents []model.DocumentInfo `json:"documents"`
}

func NewDocumentHandler(documentService *app.DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxUploadBytes:  maxUploadBytes,
	}
}

// Upload accepts a multipart form with a "file" part holding a PDF, stores it
// and writes its page-by-page extraction.
func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	file, err := c.FormFile("file")
	if err != nil {
		switch {
		case isBodyTooLarge(err):
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "File too large")
		case errors.Is(err, http.ErrMissingFile) && hasFormValue(c, "file"):
			// A file part sent with an empty filename is parsed as a plain value.
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "No selected file")
		default:
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "No file part")
		}
		return
	}
	if file.Filename == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "No selected file")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "Failed to read uploaded file")
		return
	}
	defer f.Close()

	result, err := h.documentService.Ingest(c.Request.Context(), app.IngestInput{
		FileName: file.Filename,
		Body:     f,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrUnsupportedType):
			response.Error(c, http.StatusBadRequest, response.CodeUnsupportedType, "Invalid file type")
		case errors.Is(err, app.ErrInvalidFileName):
			response.Error(c, http.StatusBadRequest, response.CodeInvalidFileName, "Invalid file name")
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "No selected file")
		case errors.Is(err, app.ErrExtractionFailed):
			detail := strings.TrimPrefix(err.Error(), app.ErrExtractionFailed.Error()+": ")
			response.Error(c, http.StatusUnprocessableEntity, response.CodeExtractionFailed, "Failed to extract text from PDF: "+detail)
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "Failed to store uploaded file")
		}
		return
	}

	c.Set(middleware.ContextDocumentIDKey, result.DocumentID)
	response.OK(c, UploadResponse{
		Message:    "File uploaded and extracted successfully",
		DocumentID: result.DocumentID,
	})
}

// Query answers a question about a previously uploaded document. It serves
// both /query and /ask.
func (h *DocumentHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PDFName == "" || req.Question == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "Missing data")
		return
	}

	result, err := h.documentService.Query(c.Request.Context(), app.QueryInput{
		DocumentName: req.PDFName,
		Question:     req.Question,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "Missing data")
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "Extracted content not found")
		default:
			_ = c.Error(err)
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "Failed to read extracted content")
		}
		return
	}

	c.Set(middleware.ContextDocumentIDKey, result.DocumentID)
	response.OK(c, QueryResponse{Answer: renderAnswer(c, result)})
}

// Preflight answers CORS pre-flight requests with an empty 200.
func (h *DocumentHandler) Preflight(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documentService.ListDocuments(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "Failed to list documents")
		return
	}
	if docs == nil {
		docs = []model.DocumentInfo{}
	}
	response.OK(c, ListDocumentsResponse{Documents: docs})
}

// renderAnswer turns answering failures into answer text so the client always
// gets a 200 once the document was found.
func renderAnswer(c *gin.Context, result *app.QueryResult) string {
	answer := result.Answer
	switch {
	case answer.Err == nil:
		return answer.Text
	case errors.Is(answer.Err, ai.ErrMissingCredential):
		slog.Warn("answering skipped, api key not set",
			"request_id", middleware.RequestIDFromContext(c),
			"document_id", result.DocumentID,
		)
		return missingCredentialAnswer
	default:
		slog.Warn("answering failed",
			"request_id", middleware.RequestIDFromContext(c),
			"document_id", result.DocumentID,
			"error", answer.Err,
		)
		return answerErrorPrefix + answer.Err.Error()
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func hasFormValue(c *gin.Context, key string) bool {
	form := c.Request.MultipartForm
	if form == nil {
		return false
	}
	_, ok := form.Value[key]
	return ok
}
