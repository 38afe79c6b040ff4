package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/agpsystems/agp/internal/middleware"
	"github.com/agpsystems/agp/internal/services"
)

// errorEnvelope is the body of every failed API call. It keeps the
// success envelope's fields so clients can decode both the same way.
type errorEnvelope struct {
	services.AnalysisResult
	Error string `json:"error"`
}

func newErrorEnvelope(meta services.Metadata, msg string) errorEnvelope {
	return errorEnvelope{
		AnalysisResult: services.AnalysisResult{
			Success:  false,
			Mode:     services.ModeStandard,
			Result:   "",
			Metadata: meta,
		},
		Error: msg,
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		middleware.Logger(r).WithError(err).Warn("Failed to write response")
	}
}
