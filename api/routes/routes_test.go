package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/quote-extractor/api/handlers"
	"github.com/feichai0017/quote-extractor/internal/agent/document"
	"github.com/feichai0017/quote-extractor/internal/agent/recognition"
	"github.com/feichai0017/quote-extractor/internal/models"
	"github.com/feichai0017/quote-extractor/internal/service/extraction"
	"github.com/feichai0017/quote-extractor/internal/service/quote"
	"github.com/feichai0017/quote-extractor/internal/utils/validator"
	"github.com/feichai0017/quote-extractor/pkg/converters"
	"github.com/feichai0017/quote-extractor/pkg/docstore"
	"github.com/feichai0017/quote-extractor/pkg/logger"
	"github.com/feichai0017/quote-extractor/pkg/queue"
)

type testEngine struct {
	ready bool
	text  string
	err   error
}

func (e *testEngine) Name() string { return "test" }
func (e *testEngine) Ready() bool  { return e.ready }
func (e *testEngine) Close() error { return nil }

func (e *testEngine) Recognize(_ context.Context, _ []byte, _ string, report recognition.StatusFunc) (string, error) {
	report(recognition.Status{Phase: recognition.PhaseRecognizing, Progress: 0})
	report(recognition.Status{Phase: recognition.PhaseRecognizing, Progress: 0.5})
	report(recognition.Status{Phase: recognition.PhaseRecognizing, Progress: 1})
	return e.text, e.err
}

type pdfText string

func (p pdfText) CanProcess(string) bool { return true }
func (p pdfText) Read(context.Context, []byte) (*document.Document, error) {
	return &document.Document{Text: string(p), Pages: 1}, nil
}

type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) SubmitFile(ctx context.Context, file multipart.File, header *multipart.FileHeader, quoteID string) (*models.ProcessingTask, error) {
	args := m.Called(ctx, file, header, quoteID)
	task, _ := args.Get(0).(*models.ProcessingTask)
	return task, args.Error(1)
}

func (m *mockJobs) SubmitBatch(ctx context.Context, files []*multipart.FileHeader, quoteID string) ([]*models.ProcessingTask, error) {
	args := m.Called(ctx, files, quoteID)
	tasks, _ := args.Get(0).([]*models.ProcessingTask)
	return tasks, args.Error(1)
}

func (m *mockJobs) HandleExtraction(ctx context.Context, task *queue.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockJobs) GetStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	args := m.Called(ctx, taskID)
	task, _ := args.Get(0).(*models.ProcessingTask)
	return task, args.Error(1)
}

func (m *mockJobs) GetResult(ctx context.Context, taskID string) (*converters.ProcessedExtraction, error) {
	args := m.Called(ctx, taskID)
	result, _ := args.Get(0).(*converters.ProcessedExtraction)
	return result, args.Error(1)
}

func (m *mockJobs) CancelTask(ctx context.Context, taskID string) error {
	return m.Called(ctx, taskID).Error(0)
}

func newRouter(t *testing.T, engine *testEngine, jobs extraction.JobProcessor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewTestLogger()

	o := extraction.NewOrchestrator(recognition.NewAdapter(engine, log), nil, pdfText("Mack Anthem 2022"), log)
	quotes := quote.NewService(docstore.NewMemoryStore(), log)
	h := handlers.NewHandlers(o, jobs, quotes, validator.NewUploadValidator(log, nil), 10<<20, log)

	r := gin.New()
	SetupRoutes(r, h, []string{"http://localhost:3000"}, log)
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path string, body any) *http.Request {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, path, filename string, data []byte, fields ...map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range fields {
		for k, v := range f {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 120, 40))))
	return buf.Bytes()
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	w := do(newRouter(t, &testEngine{ready: false}, nil), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"ready":false`)

	w = do(newRouter(t, &testEngine{ready: true}, nil), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestExtractText(t *testing.T) {
	r := newRouter(t, &testEngine{}, nil)

	w := do(r, jsonRequest(http.MethodPost, "/api/v1/extract/text", handlers.TextRequest{
		Text: "Kenworth T680 2020 Precio: $1,850,000",
	}))
	require.Equal(t, http.StatusOK, w.Code)
	var res handlers.ExtractionResponse
	decode(t, w, &res)
	assert.Equal(t, 4, res.Count)
	assert.Equal(t, "Kenworth", res.Updates[models.FieldBrand])

	// no match is still a success
	w = do(r, jsonRequest(http.MethodPost, "/api/v1/extract/text", handlers.TextRequest{Text: "hola"}))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &res)
	assert.Zero(t, res.Count)

	w = do(r, jsonRequest(http.MethodPost, "/api/v1/extract/text", handlers.TextRequest{Text: "x", Format: "rtf"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractImage(t *testing.T) {
	r := newRouter(t, &testEngine{ready: true, text: "Volvo VNL 2021"}, nil)

	w := do(r, uploadRequest(t, "/api/v1/extract/image", "captura.png", pngBytes(t)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res handlers.ExtractionResponse
	decode(t, w, &res)
	assert.Equal(t, "Volvo", res.Updates[models.FieldBrand])
	assert.Equal(t, "VNL", res.Updates[models.FieldModel])
	assert.Equal(t, "Volvo VNL 2021", res.Text)
	assert.Equal(t, "test", res.Engine)
}

func TestExtractImageErrors(t *testing.T) {
	tests := []struct {
		name     string
		engine   *testEngine
		filename string
		data     []byte
		want     int
	}{
		{"engine not ready", &testEngine{ready: false}, "a.png", nil, http.StatusServiceUnavailable},
		{"engine failure", &testEngine{ready: true, err: assert.AnError}, "a.png", nil, http.StatusUnprocessableEntity},
		{"not an image", &testEngine{ready: true}, "a.txt", []byte("Kenworth"), http.StatusBadRequest},
		{"pdf sent to image route", &testEngine{ready: true}, "a.pdf", []byte("%PDF-1.4\n"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			if data == nil {
				data = pngBytes(t)
			}
			w := do(newRouter(t, tt.engine, nil), uploadRequest(t, "/api/v1/extract/image", tt.filename, data))
			assert.Equal(t, tt.want, w.Code, w.Body.String())

			var res handlers.ErrorResponse
			decode(t, w, &res)
			assert.NotEmpty(t, res.Error)
		})
	}
}

func TestStreamImage(t *testing.T) {
	r := newRouter(t, &testEngine{ready: true, text: "Peterbilt 389"}, nil)

	w := do(r, uploadRequest(t, "/api/v1/extract/image/stream", "captura.png", pngBytes(t)))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Equal(t, 3, strings.Count(body, "event:progress"))
	assert.Contains(t, body, `"progress":50`)
	result := strings.Index(body, "event:result")
	require.Positive(t, result)
	assert.Greater(t, result, strings.LastIndex(body, "event:progress"))
	assert.Contains(t, body[result:], `"brand":"Peterbilt"`)
}

func TestStreamImageNotReady(t *testing.T) {
	r := newRouter(t, &testEngine{ready: false}, nil)
	w := do(r, uploadRequest(t, "/api/v1/extract/image/stream", "captura.png", pngBytes(t)))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExtractPDF(t *testing.T) {
	r := newRouter(t, &testEngine{}, nil)
	w := do(r, uploadRequest(t, "/api/v1/extract/pdf", "ficha.pdf", []byte("%PDF-1.4\n")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res handlers.ExtractionResponse
	decode(t, w, &res)
	assert.Equal(t, "Mack", res.Updates[models.FieldBrand])
	assert.Equal(t, models.SourcePDF, res.Source)
}

func TestJobRoutes(t *testing.T) {
	jobs := new(mockJobs)
	anyArg := mock.Anything
	jobs.On("GetStatus", anyArg, "t-1").Return(&models.ProcessingTask{ID: "t-1", Status: models.StatusRunning, Progress: 40}, nil)
	jobs.On("GetStatus", anyArg, "missing").Return(nil, queue.ErrTaskNotFound)
	jobs.On("GetResult", anyArg, "t-1").Return(nil, extraction.ErrNotCompleted).Once()
	jobs.On("GetResult", anyArg, "t-1").Return(&converters.ProcessedExtraction{
		TaskID:  "t-1",
		Count:   1,
		Updates: models.FieldUpdateMap{models.FieldYear: "2020"},
	}, nil)
	jobs.On("CancelTask", anyArg, "t-1").Return(nil)
	jobs.On("SubmitFile", anyArg, anyArg, mock.MatchedBy(func(h *multipart.FileHeader) bool {
		return h.Filename == "captura.png"
	}), "COT-3").Return(&models.ProcessingTask{
		ID:       "t-2",
		Status:   models.StatusPending,
		Type:     queue.TaskTypeExtractionImage,
		Metadata: map[string]string{"filename": "captura.png", "quoteId": "COT-3"},
	}, nil)
	r := newRouter(t, &testEngine{}, jobs)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/extract/jobs/t-1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"progress":40`)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/extract/jobs/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/extract/jobs/t-1/result", nil))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/extract/jobs/t-1/result?download=1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "result_t-1.json")

	w = do(r, httptest.NewRequest(http.MethodDelete, "/api/v1/extract/jobs/t-1", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	req := uploadRequest(t, "/api/v1/extract/jobs", "captura.png", pngBytes(t), map[string]string{"quoteId": "COT-3"})
	w = do(r, req)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var job handlers.JobResponse
	decode(t, w, &job)
	assert.Equal(t, "t-2", job.TaskID)
	assert.Equal(t, "COT-3", job.QuoteID)

	jobs.AssertExpectations(t)
}

func TestJobRoutesAbsentWithoutQueue(t *testing.T) {
	r := newRouter(t, &testEngine{}, nil)
	w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/extract/jobs/t-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuoteRoutes(t *testing.T) {
	r := newRouter(t, &testEngine{}, nil)

	w := do(r, httptest.NewRequest(http.MethodGet, "/api/v1/quotes/COT-9", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, jsonRequest(http.MethodPatch, "/api/v1/quotes/COT-9/fields", models.FieldUpdateMap{
		models.FieldBrand: "International",
		models.FieldPrice: 990000,
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"applied":2`)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/quotes/COT-9", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var q models.Quote
	decode(t, w, &q)
	assert.Equal(t, "International", q.Brand)
	assert.Equal(t, 990000.0, q.Price)
	assert.Equal(t, "MXN", q.Currency)

	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/quotes/COT-9/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Cotizacion-COT-9.json")
	exported := w.Body.Bytes()

	w = do(r, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/COT-9/reset", nil))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &q)
	assert.Empty(t, q.Brand)

	w = do(r, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/COT-10/import", bytes.NewReader(exported)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &q)
	assert.Equal(t, "International", q.Brand)
	assert.Equal(t, "COT-10", q.QuoteID)

	w = do(r, httptest.NewRequest(http.MethodPost, "/api/v1/quotes/COT-10/import", strings.NewReader("not json")))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, httptest.NewRequest(http.MethodDelete, "/api/v1/quotes/COT-10", nil))
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, httptest.NewRequest(http.MethodGet, "/api/v1/quotes/COT-10", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	r := newRouter(t, &testEngine{}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/extract/text", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w := do(r, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}
