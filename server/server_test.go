package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/vision-sync/internal/models"
	"github.com/xhad/vision-sync/pkg/analyzer"
	"github.com/xhad/vision-sync/pkg/history"
	"github.com/xhad/vision-sync/pkg/vision"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct {
	requests   []analyzer.Request
	analyzeErr error
	items      []models.HistoryItem
	historyErr error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req analyzer.Request) (models.AnalysisResponse, error) {
	f.requests = append(f.requests, req)
	if f.analyzeErr != nil {
		return models.AnalysisResponse{}, f.analyzeErr
	}
	return models.AnalysisResponse{
		DetectedObjects:       []models.DetectedObject{{Label: "bed", Confidence: 0.9, BBox: []float64{1, 2, 3, 4}}},
		VectorRecommendations: []models.VectorMatch{},
		Analysis:              models.NewRoomAnalysis(),
		AnnotatedImage:        "aW1n",
	}, nil
}

func (f *fakeAnalyzer) History(ctx context.Context, userID string) ([]models.HistoryItem, error) {
	return f.items, f.historyErr
}

func testConfig() Config {
	return Config{
		AllowedOrigins:    []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		AllowOriginSuffix: ".vercel.app",
		MaxUploadBytes:    1024,
	}
}

func uploadRequest(t *testing.T, contentType string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if data != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="room.jpg"`)
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestHealth(t *testing.T) {
	s := New(testConfig(), &fakeAnalyzer{}, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"vision-sync"}`, rec.Body.String())
}

func TestAnalyze_Success(t *testing.T) {
	fa := &fakeAnalyzer{}
	s := New(testConfig(), fa, nil)

	rec := serve(s, uploadRequest(t, "image/png", []byte("png-bytes"), map[string]string{"user_id": "u1"}))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AnalysisResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bed", resp.DetectedObjects[0].Label)
	assert.Nil(t, resp.ImageURL)

	require.Len(t, fa.requests, 1)
	assert.Equal(t, []byte("png-bytes"), fa.requests[0].Image)
	assert.Equal(t, "image/png", fa.requests[0].ContentType)
	require.NotNil(t, fa.requests[0].UserID)
	assert.Equal(t, "u1", *fa.requests[0].UserID)
}

func TestAnalyze_NoUserID(t *testing.T) {
	fa := &fakeAnalyzer{}
	s := New(testConfig(), fa, nil)

	rec := serve(s, uploadRequest(t, "image/jpeg", []byte("jpg"), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, fa.requests[0].UserID)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		data        []byte
		analyzeErr  error
		wantStatus  int
		wantDetail  string
	}{
		{name: "missing file", wantStatus: http.StatusBadRequest, wantDetail: msgNotImage},
		{name: "not an image", contentType: "application/pdf", data: []byte("%PDF"), wantStatus: http.StatusBadRequest, wantDetail: msgNotImage},
		{name: "no content type", data: []byte("x"), wantStatus: http.StatusBadRequest, wantDetail: msgNotImage},
		{name: "too large", contentType: "image/jpeg", data: make([]byte, 1025), wantStatus: http.StatusRequestEntityTooLarge, wantDetail: msgTooLarge},
		{name: "body over read limit", contentType: "image/jpeg", data: make([]byte, 1024+multipartAllowance+10), wantStatus: http.StatusRequestEntityTooLarge, wantDetail: msgTooLarge},
		{
			name:        "undecodable image",
			contentType: "image/jpeg",
			data:        []byte("garbage"),
			analyzeErr:  fmt.Errorf("detect objects: %w", vision.ErrInvalidImage),
			wantStatus:  http.StatusBadRequest,
			wantDetail:  "Could not decode the uploaded image. Please upload a valid image file.",
		},
		{
			name:        "size guard",
			contentType: "image/jpeg",
			data:        []byte("x"),
			analyzeErr:  fmt.Errorf("detect objects: %w", &vision.SizeError{Size: 11 * 1024 * 1024, Max: 10 * 1024 * 1024}),
			wantStatus:  http.StatusBadRequest,
			wantDetail:  "Image size (11.0 MB) exceeds maximum allowed size of 10 MB.",
		},
		{
			name:        "detector failure",
			contentType: "image/jpeg",
			data:        []byte("x"),
			analyzeErr:  fmt.Errorf("detect objects: %w", vision.ErrUnavailable),
			wantStatus:  http.StatusInternalServerError,
			wantDetail:  msgAnalysisFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa := &fakeAnalyzer{analyzeErr: tt.analyzeErr}
			s := New(testConfig(), fa, nil)

			rec := serve(s, uploadRequest(t, tt.contentType, tt.data, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantDetail, detail(t, rec))
		})
	}
}

func TestHistory(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fa := &fakeAnalyzer{items: []models.HistoryItem{{ID: "a1", RoomType: "bedroom", StyleDetected: "modern", DetectedObjects: []models.DetectedObject{}, CreatedAt: created}}}
	s := New(testConfig(), fa, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/history/u1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var items []models.HistoryItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "a1", items[0].ID)
	assert.True(t, created.Equal(items[0].CreatedAt))
}

func TestHistory_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{name: "disabled", err: history.ErrDisabled, wantStatus: http.StatusServiceUnavailable, wantDetail: msgHistoryDisabled},
		{name: "store failure", err: errors.New("connection refused"), wantStatus: http.StatusInternalServerError, wantDetail: msgHistoryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testConfig(), &fakeAnalyzer{historyErr: tt.err}, nil)

			rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/history/u1", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantDetail, detail(t, rec))
		})
	}
}

func TestAllowOrigin(t *testing.T) {
	s := New(testConfig(), &fakeAnalyzer{}, nil)

	assert.True(t, s.allowOrigin("http://localhost:5173"))
	assert.True(t, s.allowOrigin("http://localhost:3000"))
	assert.True(t, s.allowOrigin("https://vision-sync-git-main.vercel.app"))
	assert.False(t, s.allowOrigin("http://vision-sync.vercel.app"))
	assert.False(t, s.allowOrigin("https://vercel.app.evil.com"))
	assert.False(t, s.allowOrigin("http://localhost:8080"))
}

func TestCORSPreflight(t *testing.T) {
	s := New(testConfig(), &fakeAnalyzer{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/analyze", nil)
	req.Header.Set("Origin", "https://preview.vercel.app")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := serve(s, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://preview.vercel.app", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	s := New(cfg, &fakeAnalyzer{}, nil)

	first := serve(s, uploadRequest(t, "image/jpeg", []byte("x"), nil))
	second := serve(s, uploadRequest(t, "image/jpeg", []byte("x"), nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, msgTooManyRequests, detail(t, second))

	// other routes are not limited
	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/api/health", nil)).Code)
}

func TestMetrics(t *testing.T) {
	s := New(testConfig(), &fakeAnalyzer{}, nil)
	serve(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `vision_sync_http_requests_total{method="GET",path="/api/health",status_code="200"} 1`)
}

func TestRun_BindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	cfg := testConfig()
	cfg.Addr = ln.Addr().String()
	s := New(cfg, &fakeAnalyzer{}, nil)

	err = s.Run(context.Background())
	assert.ErrorContains(t, err, "failed to listen")
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := New(testConfig(), &fakeAnalyzer{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/api/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}

	_, err = http.Get(url)
	assert.Error(t, err)
}
