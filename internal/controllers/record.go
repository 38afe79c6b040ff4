package controllers

import (
	"net/http"
	"unicode/utf8"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/agpsystems/agp/internal/crypto"
	"github.com/agpsystems/agp/internal/middleware"
	"github.com/agpsystems/agp/internal/models"
	"github.com/agpsystems/agp/internal/services"
)

// Recorder writes one journal entry per analysis call.
type Recorder struct {
	journal models.Journal
	sealer  *crypto.Encryptor
}

// NewRecorder creates a Recorder. A nil sealer means raw input is never stored.
func NewRecorder(journal models.Journal, sealer *crypto.Encryptor) *Recorder {
	return &Recorder{
		journal: journal,
		sealer:  sealer,
	}
}

// Record stores the outcome of a call. Failures are logged, never returned.
func (rec *Recorder) Record(r *http.Request, route string, req *services.AnalysisRequest, status int, errMsg string) {
	if rec == nil {
		return
	}
	log := middleware.Logger(r)

	entry := &models.JournalEntry{
		RequestID: chimw.GetReqID(r.Context()),
		Route:     route,
		Mode:      string(services.ModeStandard),
		Status:    status,
		Error:     errMsg,
	}

	if req != nil {
		entry.Mode = string(services.NormalizeMode(req.Mode))
		if req.Input != nil {
			input := *req.Input
			entry.InputDigest = crypto.Fingerprint(input)
			entry.InputLength = utf8.RuneCountInString(input)

			sealed, err := rec.sealer.Encrypt(input)
			if err != nil {
				log.WithError(err).Warn("Failed to seal journal input")
			}
			entry.SealedInput = sealed
		}
	}

	if err := rec.journal.Record(r.Context(), entry); err != nil {
		log.WithError(err).WithField("route", route).Error("Failed to record journal entry")
	}
}
