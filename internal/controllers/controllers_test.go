package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agpsystems/agp/internal/crypto"
	"github.com/agpsystems/agp/internal/models"
	"github.com/agpsystems/agp/internal/services"
	"github.com/agpsystems/agp/internal/views"
	"github.com/agpsystems/agp/templates"
)

var testTime = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func newTestAnalyzer() *services.Analyzer {
	return services.NewAnalyzer("1.0.0", services.WithClock(func() time.Time { return testTime }))
}

type envelope struct {
	Success  bool   `json:"success"`
	Mode     string `json:"mode"`
	Result   string `json:"result"`
	Error    string `json:"error"`
	Metadata struct {
		Timestamp string `json:"timestamp"`
		Version   string `json:"version"`
	} `json:"metadata"`
}

func post(t *testing.T, h http.HandlerFunc, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestPostAnalyze(t *testing.T) {
	journal := models.NewMemoryJournal(16)
	c := NewAnalyzeController(newTestAnalyzer(), NewRecorder(journal, nil), 1024)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantResult string
		wantError  string
	}{
		{"advanced", `{"input":"Hello world","mode":"advanced"}`, http.StatusOK, `Analyzed input: "Hello world" (advanced mode with deep analysis)`, ""},
		{"unknown mode", `{"input":"Hello","mode":"turbo"}`, http.StatusOK, `Analyzed input: "Hello" (standard mode)`, ""},
		{"missing input", `{"mode":"minimal"}`, http.StatusBadRequest, "", `Input must contain a valid "input" string`},
		{"blank input", `{"input":"   "}`, http.StatusBadRequest, "", "Input cannot be empty"},
		{"null body", `null`, http.StatusBadRequest, "", "Input must be an object"},
		{"array body", `[1,2]`, http.StatusBadRequest, "", "Input must be an object"},
		{"numeric input", `{"input":5}`, http.StatusBadRequest, "", `Input must contain a valid "input" string`},
		{"malformed", `{"input":`, http.StatusBadRequest, "", "Invalid JSON in request body"},
		{"trailing brace", `{"input":"x"}}`, http.StatusBadRequest, "", "Invalid JSON in request body"},
		{"trailing bracket", `{"input":"x"}]`, http.StatusBadRequest, "", "Invalid JSON in request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := post(t, c.PostAnalyze, "/api/node-gate/analyze", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, "2026-03-14T09:26:53.589Z", env.Metadata.Timestamp)
			assert.Equal(t, "1.0.0", env.Metadata.Version)

			if tt.wantStatus == http.StatusOK {
				assert.True(t, env.Success)
				assert.Equal(t, tt.wantResult, env.Result)
				assert.Empty(t, env.Error)
				return
			}
			assert.False(t, env.Success)
			assert.Equal(t, "standard", env.Mode)
			assert.Empty(t, env.Result)
			assert.Contains(t, env.Error, tt.wantError)
		})
	}

	recent, err := journal.Recent(context.Background(), models.MaxRecent)
	require.NoError(t, err)
	assert.Len(t, recent, len(tests))
}

func TestPostIntervene(t *testing.T) {
	c := NewAnalyzeController(newTestAnalyzer(), NewRecorder(models.NopJournal{}, nil), 1024)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"success", `{"input":"Hi","mode":"minimal"}`, http.StatusOK, ""},
		{"malformed is 400", `{not json`, http.StatusBadRequest, "Invalid JSON in request body"},
		{"validation is 500", `{"input":"  "}`, http.StatusInternalServerError, "Input cannot be empty"},
		{"missing input is 500", `{}`, http.StatusInternalServerError, `Input must contain a valid "input" string`},
		{"null is 500", `null`, http.StatusInternalServerError, "Input must be an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := post(t, c.PostIntervene, "/api/node-gate/intervene", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError == "" {
				assert.Equal(t, `Analyzed input: "Hi" (minimal mode)`, env.Result)
				return
			}
			assert.Contains(t, env.Error, tt.wantError)
		})
	}
}

func TestAnalyzeBodyTooLarge(t *testing.T) {
	c := NewAnalyzeController(newTestAnalyzer(), nil, 16)

	for _, h := range []http.HandlerFunc{c.PostAnalyze, c.PostIntervene} {
		rec, env := post(t, h, "/analyze", `{"input":"`+strings.Repeat("x", 64)+`"}`)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Equal(t, msgBodyTooLarge, env.Error)
	}
}

func TestAnalyzeLegacyShape(t *testing.T) {
	c := NewAnalyzeController(newTestAnalyzer(), nil, 1024)

	rec := httptest.NewRecorder()
	c.PostAnalyze(rec, httptest.NewRequest(http.MethodPost, "/analyze?shape=legacy", strings.NewReader(`{"input":"old client","mode":"advanced"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Deprecation"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "old client", body["input"])
	assert.Contains(t, body, "processingTime")

	output := body["output"].(map[string]any)
	assert.Equal(t, 0.95, output["confidence"])
	assert.Len(t, output["suggestions"], 3)
}

func TestTooManyRequests(t *testing.T) {
	c := NewAnalyzeController(newTestAnalyzer(), nil, 1024)
	rec := httptest.NewRecorder()
	c.TooManyRequests(rec, httptest.NewRequest(http.MethodPost, "/analyze", nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), msgTooManyRequests)
}

func TestErrorStatus(t *testing.T) {
	other := errors.New("boom")

	status, msg := errorStatus(models.RouteAnalyze, other)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, msgInternal, msg)

	status, msg = errorStatus(models.RouteIntervene, other)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, msgInternal, msg)

	status, _ = errorStatus(models.RouteAnalyze, &http.MaxBytesError{Limit: 1})
	assert.Equal(t, http.StatusRequestEntityTooLarge, status)
}

func TestRecorderSealsInput(t *testing.T) {
	journal := models.NewMemoryJournal(4)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sealer, err := crypto.NewEncryptor(key)
	require.NoError(t, err)

	rec := NewRecorder(journal, sealer)
	r := httptest.NewRequest(http.MethodPost, "/analyze", nil)
	rec.Record(r, models.RouteAnalyze, services.NewAnalysisRequest("héllo", "advanced"), http.StatusOK, "")

	recent, err := journal.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	entry := recent[0]
	assert.Equal(t, "advanced", entry.Mode)
	assert.Equal(t, 5, entry.InputLength)
	assert.Equal(t, crypto.Fingerprint("héllo"), entry.InputDigest)
	assert.NotContains(t, entry.SealedInput, "héllo")

	plain, err := sealer.Decrypt(entry.SealedInput)
	require.NoError(t, err)
	assert.Equal(t, "héllo", plain)
}

func TestRecorderWithoutSealer(t *testing.T) {
	journal := models.NewMemoryJournal(4)
	NewRecorder(journal, nil).Record(httptest.NewRequest(http.MethodPost, "/", nil), models.RouteIntervene, nil, http.StatusInternalServerError, "Input must be an object")

	recent, err := journal.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "standard", recent[0].Mode)
	assert.Empty(t, recent[0].SealedInput)
	assert.Empty(t, recent[0].InputDigest)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	journal := models.NewMemoryJournal(200)
	for i := 0; i < 120; i++ {
		mode := "standard"
		if i%3 == 0 {
			mode = "advanced"
		}
		require.NoError(t, journal.Record(ctx, &models.JournalEntry{Route: models.RouteAnalyze, Mode: mode, Status: 200}))
	}
	c := NewHistoryController(journal)

	tests := []struct {
		query      string
		wantStatus int
		wantCount  int
	}{
		{"", http.StatusOK, DefaultHistoryLimit},
		{"?limit=5", http.StatusOK, 5},
		{"?limit=500", http.StatusOK, models.MaxRecent},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run("history"+tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c.GetRecent(rec, httptest.NewRequest(http.MethodGet, "/history"+tt.query, nil))
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body HistoryResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCount, body.Count)
			assert.Len(t, body.Entries, tt.wantCount)
		})
	}

	rec := httptest.NewRecorder()
	c.GetStats(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var stats StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 120, stats.Total)
	assert.Equal(t, 40, stats.Counts["advanced"])
	assert.Equal(t, 80, stats.Counts["standard"])
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthCheck(models.NopJournal{})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	closed := models.NewMemoryJournal(1)
	require.NoError(t, closed.Close())
	rec = httptest.NewRecorder()
	HealthCheck(closed)(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func newStaticController(t *testing.T, journal models.Journal) *StaticController {
	t.Helper()
	home, err := views.ParseFS(templates.FS, "pages/home.gohtml")
	require.NoError(t, err)
	return NewStaticController(StaticTemplates{Home: home}, newTestAnalyzer(), NewRecorder(journal, nil), journal, false)
}

func TestGetHome(t *testing.T) {
	c := newStaticController(t, models.NewMemoryJournal(4))

	rec := httptest.NewRecorder()
	c.GetHome(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "America&#39;s Got Problems")
	assert.Contains(t, body, "Multi-AI Orchestration")
	assert.Contains(t, body, `action="/try"`)
	assert.Contains(t, body, `<option value="advanced"`)
	assert.NotContains(t, body, "Recent calls")
}

func postForm(c *StaticController, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/try", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	c.PostTry(rec, req)
	return rec
}

func TestPostTry(t *testing.T) {
	journal := models.NewMemoryJournal(4)
	c := newStaticController(t, journal)

	rec := postForm(c, url.Values{"input": {"Hello world"}, "mode": {"minimal"}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "(minimal mode)")
	assert.Contains(t, body, `<div class="flash flash-success">Analysis complete</div>`)
	assert.Contains(t, body, "Recent calls")
	assert.Contains(t, body, `<tr class="status-ok">`)
	assert.Contains(t, body, "<td>TRY</td>")
	assert.Contains(t, body, "just now")

	rec = postForm(c, url.Values{"input": {"   "}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body = rec.Body.String()
	assert.Contains(t, body, "Input cannot be empty")
	assert.NotContains(t, body, "flash-success")
	assert.Contains(t, body, `<tr class="status-rejected">`)

	counts, err := journal.CountByMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts["minimal"])
	assert.Equal(t, 1, counts["standard"])
}
