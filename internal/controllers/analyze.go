package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/agpsystems/agp/internal/middleware"
	"github.com/agpsystems/agp/internal/models"
	"github.com/agpsystems/agp/internal/services"
)

const (
	msgInternal        = "Internal server error"
	msgBodyTooLarge    = "Request body too large"
	msgTooManyRequests = "Too many requests"

	// ShapeLegacy selects the deprecated response shape via ?shape=legacy.
	ShapeLegacy = "legacy"
)

// AnalyzeController serves the JSON analysis endpoints.
type AnalyzeController struct {
	analyzer     *services.Analyzer
	recorder     *Recorder
	maxBodyBytes int64
}

// NewAnalyzeController creates a new AnalyzeController.
func NewAnalyzeController(analyzer *services.Analyzer, recorder *Recorder, maxBodyBytes int64) *AnalyzeController {
	return &AnalyzeController{
		analyzer:     analyzer,
		recorder:     recorder,
		maxBodyBytes: maxBodyBytes,
	}
}

// PostAnalyze is the primary endpoint. Client mistakes get 400.
func (c *AnalyzeController) PostAnalyze(w http.ResponseWriter, r *http.Request) {
	c.handle(w, r, models.RouteAnalyze)
}

// PostIntervene is the compatibility alias. Only malformed JSON is a 400;
// every other failure, validation included, is a 500.
func (c *AnalyzeController) PostIntervene(w http.ResponseWriter, r *http.Request) {
	c.handle(w, r, models.RouteIntervene)
}

// TooManyRequests writes the rate limit rejection.
func (c *AnalyzeController) TooManyRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusTooManyRequests, newErrorEnvelope(c.analyzer.Metadata(), msgTooManyRequests))
}

func (c *AnalyzeController) handle(w http.ResponseWriter, r *http.Request, route string) {
	var req *services.AnalysisRequest

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, c.maxBodyBytes))
	if err == nil {
		req, err = services.DecodeRequest(body)
	}
	if err != nil {
		c.fail(w, r, route, req, err)
		return
	}

	if r.URL.Query().Get("shape") == ShapeLegacy {
		res, err := c.analyzer.AnalyzeLegacy(req)
		if err != nil {
			c.fail(w, r, route, req, err)
			return
		}
		w.Header().Set("Deprecation", "true")
		writeJSON(w, r, http.StatusOK, res)
		c.recorder.Record(r, route, req, http.StatusOK, "")
		return
	}

	res, err := c.analyzer.Analyze(req)
	if err != nil {
		c.fail(w, r, route, req, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
	c.recorder.Record(r, route, req, http.StatusOK, "")
}

func (c *AnalyzeController) fail(w http.ResponseWriter, r *http.Request, route string, req *services.AnalysisRequest, err error) {
	status, msg := errorStatus(route, err)
	if status >= 500 {
		middleware.Logger(r).WithError(err).WithField("route", route).Error("Analysis failed")
	}
	writeJSON(w, r, status, newErrorEnvelope(c.analyzer.Metadata(), msg))
	c.recorder.Record(r, route, req, status, msg)
}

// errorStatus maps an error to the status and message for route.
func errorStatus(route string, err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, msgBodyTooLarge
	case services.IsMalformed(err):
		return http.StatusBadRequest, err.Error()
	case services.IsValidation(err):
		if route == models.RouteIntervene {
			return http.StatusInternalServerError, err.Error()
		}
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
