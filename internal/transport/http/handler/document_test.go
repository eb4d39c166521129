package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-chatbot-backend/internal/ai"
	"pdf-chatbot-backend/internal/app"
	"pdf-chatbot-backend/internal/pkg/pdfextract/pdftest"
	"pdf-chatbot-backend/internal/storage"
	"pdf-chatbot-backend/internal/transport/http/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAnswerer struct {
	answer      ai.Answer
	gotContext  string
	gotQuestion string
	calls       int
}

func (s *stubAnswerer) Answer(_ context.Context, contextText, question string) ai.Answer {
	s.calls++
	s.gotContext = contextText
	s.gotQuestion = question
	return s.answer
}

func newDocumentRouter(t *testing.T, answerer app.AnswerService, maxUploadBytes int64) (*gin.Engine, *storage.Store) {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)

	h := NewDocumentHandler(app.NewDocumentService(store, answerer, nil), maxUploadBytes)
	r := gin.New()
	r.POST("/upload", h.Upload)
	r.GET("/documents", h.List)
	for _, path := range []string{"/query", "/ask"} {
		r.POST(path, h.Query)
		r.OPTIONS(path, h.Preflight)
	}
	return r, store
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func upload(t *testing.T, r http.Handler, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "file", name, content)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestUploadThenQuery(t *testing.T) {
	answerer := &stubAnswerer{answer: ai.Answer{Text: "It says hello."}}
	r, store := newDocumentRouter(t, answerer, 1<<20)

	rec := upload(t, r, "report.pdf", pdftest.Build("Hello", "World"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"message":"File uploaded and extracted successfully","document_id":"report.pdf"}`, rec.Body.String())

	content, err := store.ReadArtifact(context.Background(), "report.pdf")
	require.NoError(t, err)
	page1, ok := content.Lines("page_1")
	require.True(t, ok)
	assert.Equal(t, []string{"Hello"}, page1)
	page2, ok := content.Lines("page_2")
	require.True(t, ok)
	assert.Equal(t, []string{"World"}, page2)

	rec = postJSON(r, "/query", `{"pdf_name":"report.pdf","question":"What does it say?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"answer":"It says hello."}`, rec.Body.String())
	assert.Equal(t, "Hello\nWorld", answerer.gotContext)
	assert.Equal(t, "What does it say?", answerer.gotQuestion)
}

func TestUploadWritesArtifactBytes(t *testing.T) {
	r, store := newDocumentRouter(t, &stubAnswerer{}, 1<<20)

	require.Equal(t, http.StatusOK, upload(t, r, "hello.pdf", pdftest.Build("Hello")).Code)

	raw, err := os.ReadFile(filepath.Join(store.Dir(), "hello.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"page_1\": [\n    \"Hello\"\n  ]\n}\n", string(raw))
}

func TestUploadMultiLinePageThenQuery(t *testing.T) {
	answerer := &stubAnswerer{answer: ai.Answer{Text: "ok"}}
	r, store := newDocumentRouter(t, answerer, 1<<20)

	pdf := pdftest.BuildStreams(pdftest.Lines("First line", "Second line"), pdftest.Lines("Third line"))
	require.Equal(t, http.StatusOK, upload(t, r, "notes.pdf", pdf).Code)

	raw, err := os.ReadFile(filepath.Join(store.Dir(), "notes.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"page_1": ["First line", "Second line"], "page_2": ["Third line"]}`, string(raw))

	rec := postJSON(r, "/ask", `{"pdf_name":"notes.pdf","question":"q"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "First line\nSecond line\nThird line", answerer.gotContext)
}

func TestUploadSanitizesFileName(t *testing.T) {
	r, store := newDocumentRouter(t, &stubAnswerer{}, 1<<20)

	rec := upload(t, r, "my report.pdf", pdftest.Build("x"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "my_report.pdf", decodeBody(t, rec)["document_id"])

	_, err := store.ReadArtifact(context.Background(), "my_report.pdf")
	assert.NoError(t, err)
}

func TestUploadWithoutFilePart(t *testing.T) {
	r, _ := newDocumentRouter(t, &stubAnswerer{}, 1<<20)

	body, contentType := multipartBody(t, "document", "a.pdf", pdftest.Build("x"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file part", decodeBody(t, rec)["error"])

	rec = postJSON(r, "/upload", `{"file":"a.pdf"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file part", decodeBody(t, rec)["error"])
}

func TestUploadWithEmptyFileName(t *testing.T) {
	r, _ := newDocumentRouter(t, &stubAnswerer{}, 1<<20)

	rec := upload(t, r, "", []byte{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No selected file", decodeBody(t, rec)["error"])
}

func TestUploadRejectsOtherTypes(t *testing.T) {
	r, store := newDocumentRouter(t, &stubAnswerer{}, 1<<20)

	for _, name := range []string{"doc.txt", "README", "archive.pdf.zip"} {
		rec := upload(t, r, name, pdftest.Build("valid pdf bytes"))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		body := decodeBody(t, rec)
		assert.Equal(t, "Invalid file type", body["error"], name)
		assert.Equal(t, float64(response.CodeUnsupportedType), body["code"], name)
	}

	docs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUploadAcceptsUpperCaseExtension(t *testing.T) {
	r, _ := newDocumentRouter(t, &stubAnswerer{}, 1<<20)

	rec := upload(t, r, "SCAN.PDF", pdftest.Build("x"))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUploadMalformedPDF(t *testing.T) {
	r, store := newDocumentRouter(t, &stubAnswerer{}, 1<<20)

	rec := upload(t, r, "broken.pdf", []byte("this is not a pdf"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody(t, rec)
	assert.True(t, strings.HasPrefix(body["error"].(string), "Failed to extract text from PDF: "), body["error"])
	assert.Equal(t, float64(response.CodeExtractionFailed), body["code"])

	docs, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestUploadTooLarge(t *testing.T) {
	r, _ := newDocumentRouter(t, &stubAnswerer{}, 512)

	rec := upload(t, r, "big.pdf", bytes.Repeat([]byte("a"), 4096))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, float64(response.CodePayloadTooLarge), decodeBody(t, rec)["code"])
}

func TestQueryMissingData(t *testing.T) {
	answerer := &stubAnswerer{}
	r, _ := newDocumentRouter(t, answerer, 1<<20)

	cases := []string{
		`{}`,
		`{"pdf_name":"a.pdf"}`,
		`{"question":"why?"}`,
		`{"pdf_name":"","question":"why?"}`,
		`not json`,
		`["a.pdf","why?"]`,
	}
	for _, body := range cases {
		rec := postJSON(r, "/query", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Missing data", decodeBody(t, rec)["error"], body)
	}
	assert.Zero(t, answerer.calls)
}

func TestQueryBeforeUpload(t *testing.T) {
	answerer := &stubAnswerer{}
	r, _ := newDocumentRouter(t, answerer, 1<<20)

	rec := postJSON(r, "/query", `{"pdf_name":"never.pdf","question":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "Extracted content not found", body["error"])
	assert.Equal(t, float64(response.CodeDocumentNotFound), body["code"])
	assert.Zero(t, answerer.calls)
}

func TestQueryCannotEscapeUploadDir(t *testing.T) {
	r, _ := newDocumentRouter(t, &stubAnswerer{}, 1<<20)

	rec := postJSON(r, "/query", `{"pdf_name":"../../etc/passwd","question":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryWithoutAPIKey(t *testing.T) {
	answerer := ai.NewAnswerer(ai.NewOpenAICompatibleClient(time.Second), ai.ChatConfig{Model: "gpt-4o-mini"})
	r, _ := newDocumentRouter(t, answerer, 1<<20)

	require.Equal(t, http.StatusOK, upload(t, r, "a.pdf", pdftest.Build("A")).Code)

	rec := postJSON(r, "/query", `{"pdf_name":"a.pdf","question":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"answer":"OpenAI API key not set."}`, rec.Body.String())
}

func TestQueryAnsweringErrorIsRenderedAsAnswer(t *testing.T) {
	answerer := &stubAnswerer{answer: ai.Answer{Err: errors.New("llm response status 500: upstream down")}}
	r, _ := newDocumentRouter(t, answerer, 1<<20)

	require.Equal(t, http.StatusOK, upload(t, r, "a.pdf", pdftest.Build("A")).Code)

	rec := postJSON(r, "/query", `{"pdf_name":"a.pdf","question":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Error querying OpenAI: llm response status 500: upstream down", decodeBody(t, rec)["answer"])
}

func TestAskMatchesQuery(t *testing.T) {
	answerer := &stubAnswerer{answer: ai.Answer{Text: "same"}}
	r, _ := newDocumentRouter(t, answerer, 1<<20)

	require.Equal(t, http.StatusOK, upload(t, r, "a.pdf", pdftest.Build("A", "B")).Code)

	query := postJSON(r, "/query", `{"pdf_name":"a.pdf","question":"hi"}`)
	ask := postJSON(r, "/ask", `{"pdf_name":"a.pdf","question":"hi"}`)
	assert.Equal(t, query.Code, ask.Code)
	assert.Equal(t, query.Body.String(), ask.Body.String())
	assert.Equal(t, "A\nB", answerer.gotContext)

	ask = postJSON(r, "/ask", `{"question":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, ask.Code)
}

func TestPreflight(t *testing.T) {
	r, _ := newDocumentRouter(t, &stubAnswerer{}, 1<<20)

	for _, path := range []string{"/query", "/ask"} {
		req := httptest.NewRequest(http.MethodOptions, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Empty(t, rec.Body.String(), path)
	}
}

func TestListDocuments(t *testing.T) {
	r, _ := newDocumentRouter(t, &stubAnswerer{}, 1<<20)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"documents":[]}`, rec.Body.String())

	require.Equal(t, http.StatusOK, upload(t, r, "b.pdf", pdftest.Build("B")).Code)
	require.Equal(t, http.StatusOK, upload(t, r, "a.pdf", pdftest.Build("A")).Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out ListDocumentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Documents, 2)
	assert.Equal(t, "a.pdf", out.Documents[0].DocumentID)
	assert.Equal(t, "a.json", out.Documents[0].ArtifactName)
	assert.Equal(t, "b.pdf", out.Documents[1].DocumentID)
}
