package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"callscribe/internal/domain"
	"callscribe/internal/service"
)

type stubService struct {
	result  domain.ExtractionResult
	err     error
	runs    []domain.RunRecord
	runsErr error

	requests []service.Request
	limits   []int
}

func (s *stubService) Extract(_ context.Context, req service.Request) (domain.ExtractionResult, error) {
	s.requests = append(s.requests, req)
	return s.result, s.err
}

func (s *stubService) RecentRuns(_ context.Context, limit int) ([]domain.RunRecord, error) {
	s.limits = append(s.limits, limit)
	return s.runs, s.runsErr
}

func newTestRouter(svc Extractor, burst int) *gin.Engine {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)
	return NewRouter(svc, RouterConfig{Mode: gin.TestMode, RateRPS: 0.001, RateBurst: burst}, logger, time.Now())
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestRoot(t *testing.T) {
	w := do(newTestRouter(&stubService{}, 5), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Server is running!", w.Body.String())
}

func TestHealth(t *testing.T) {
	w := do(newTestRouter(&stubService{}, 5), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "uptime")
}

func TestScrape_MissingVideoURL(t *testing.T) {
	svc := &stubService{}
	r := newTestRouter(svc, 10)

	for _, body := range []string{`{}`, `{"videoUrl": "  "}`, `not json`, ``} {
		w := do(r, http.MethodPost, "/scrape", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "Missing videoUrl", decode(t, w)["error"], body)
	}
	assert.Empty(t, svc.requests, "service is never called without a URL")
}

func TestScrape_InvalidURL(t *testing.T) {
	svc := &stubService{err: fmt.Errorf("%w: unsupported scheme", domain.ErrInvalidURL)}
	w := do(newTestRouter(svc, 5), http.MethodPost, "/scrape", `{"videoUrl":"ftp://x"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "unsupported scheme")
}

func TestScrape_Success(t *testing.T) {
	meta := domain.CallMetadata{
		CallDate:        "2024-03-05",
		SalespersonName: "Ann",
		ProspectName:    "Ben",
		CallDuration:    "12 minutes 34 seconds",
		TranscriptLink:  "https://fathom.video/calls/1",
		Title:           "Kickoff",
	}
	svc := &stubService{result: domain.Succeeded(meta, "Ann: hi\nBen: hello")}

	w := do(newTestRouter(svc, 5), http.MethodPost, "/scrape", `{"videoUrl":" https://fathom.video/share/abc "}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, map[string]interface{}{
		"call_date":        "2024-03-05",
		"salesperson_name": "Ann",
		"prospect_name":    "Ben",
		"call_duration":    "12 minutes 34 seconds",
		"transcript_link":  "https://fathom.video/calls/1",
		"title":            "Kickoff",
		"transcript":       "Ann: hi\nBen: hello",
	}, body)

	require.Len(t, svc.requests, 1)
	assert.Equal(t, "https://fathom.video/share/abc", svc.requests[0].URL)
	assert.Equal(t, domain.SourceHTTP, svc.requests[0].Source)
}

func TestScrape_Failure(t *testing.T) {
	svc := &stubService{result: domain.Failed(errors.New("all 3 attempts failed: navigate: timeout"))}

	w := do(newTestRouter(svc, 5), http.MethodPost, "/scrape", `{"videoUrl":"https://fathom.video/share/abc"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]interface{}{"error": "all 3 attempts failed: navigate: timeout"}, decode(t, w))
}

func TestScrape_RateLimited(t *testing.T) {
	meta := domain.DefaultCallMetadata("https://x.test/a", time.Now())
	svc := &stubService{result: domain.Succeeded(meta, "")}
	r := newTestRouter(svc, 2)

	for i := 0; i < 2; i++ {
		w := do(r, http.MethodPost, "/scrape", `{"videoUrl":"https://x.test/a"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := do(r, http.MethodPost, "/scrape", `{"videoUrl":"https://x.test/a"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Len(t, svc.requests, 2)
}

func TestRuns(t *testing.T) {
	started := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	svc := &stubService{runs: []domain.RunRecord{{
		ID:         "r1",
		URL:        "https://x.test/a",
		Source:     domain.SourceHTTP,
		Status:     domain.RunFailed,
		Attempts:   3,
		Error:      "boom",
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
	}}}
	r := newTestRouter(svc, 5)

	w := do(r, http.MethodGet, "/runs?limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	runs := decode(t, w)["runs"].([]interface{})
	require.Len(t, runs, 1)
	run := runs[0].(map[string]interface{})
	assert.Equal(t, "r1", run["id"])
	assert.Equal(t, "failed", run["status"])
	assert.Equal(t, []int{10}, svc.limits)

	w = do(r, http.MethodGet, "/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRuns_EmptyAndError(t *testing.T) {
	w := do(newTestRouter(&stubService{}, 5), http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, decode(t, w)["runs"])

	w = do(newTestRouter(&stubService{runsErr: errors.New("db closed")}, 5), http.MethodGet, "/runs", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
