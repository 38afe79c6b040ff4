package controllers

import (
	"net/http"

	"github.com/agpsystems/agp/internal/middleware"
	"github.com/agpsystems/agp/internal/models"
	"github.com/agpsystems/agp/internal/services"
	"github.com/agpsystems/agp/internal/views"
)

// StaticController serves the publication landing page and its try-it form.
type StaticController struct {
	templates     StaticTemplates
	analyzer      *services.Analyzer
	recorder      *Recorder
	journal       models.Journal
	isDevelopment bool
}

// StaticTemplates holds templates for static pages.
type StaticTemplates struct {
	Home *views.Template
}

// NewStaticController creates a new StaticController.
func NewStaticController(templates StaticTemplates, analyzer *services.Analyzer, recorder *Recorder, journal models.Journal, isDevelopment bool) *StaticController {
	return &StaticController{
		templates:     templates,
		analyzer:      analyzer,
		recorder:      recorder,
		journal:       journal,
		isDevelopment: isDevelopment,
	}
}

// HomeData holds data for the home page template.
type HomeData struct {
	Citation  string
	Abstract  string
	Problem   []string
	Streams   []Stream
	Steps     []Step
	Framework []string
	Takeaways []string

	Modes  []services.Mode
	Try    TryForm
	Stats  map[string]int
	Total  int
	Recent []*models.JournalEntry
}

// Stream is one model's contribution in the orchestration grid.
type Stream struct {
	Model  string
	Role   string
	Output string
}

// Step is one stage of the methodology.
type Step struct {
	Num         int
	Title       string
	Description string
}

// TryForm is the state of the try-it form.
type TryForm struct {
	Input  string
	Mode   string
	Result *services.AnalysisResult
}

// recentOnHome is how many journal entries the landing page lists.
const recentOnHome = 10

const (
	siteTitle       = "America's Got Problems: A Systems-Level Diagnosis of Hybrid Cognition"
	siteDescription = "A structured approach to hybrid cognition where multiple AI systems are orchestrated under human guidance to produce outputs exceeding the capabilities of any single AI or unaided human reasoning."
	siteCanonical   = "https://agp.systems"
)

func homeContent() HomeData {
	return HomeData{
		Citation: "Featherstone, Damien Edward. America's Got Problems: A Systems-Level Diagnosis of Hybrid Cognition. Version 1.0, March 2026.",
		Abstract: "This work demonstrates a structured approach to hybrid cognition where multiple AI systems are orchestrated under human guidance. " +
			"Iterative integration across narrative, operational, and analytical domains produces outputs exceeding the capabilities of any single AI or unaided human reasoning. " +
			"Designed for constrained environments, this methodology enables rapid, high-fidelity decision-making.",
		Problem: []string{
			"Conventional AI use is limited: single-task, narrow outputs, human must integrate manually. Complex problems require cross-domain reasoning, strategy synthesis, and operational intelligence.",
			"Damien's goal: demonstrate human-AI hybrid cognition that produces actionable, high-value outputs beyond normal human or AI capacity.",
		},
		Streams: []Stream{
			{Model: "Model A", Role: "Risk Analysis", Output: "6 high-probability failure points + mitigation"},
			{Model: "Model B", Role: "Narrative Strategy", Output: "3 framing options with projected impact"},
			{Model: "Model C", Role: "Operational Design", Output: "Stepwise execution plan + dependencies"},
			{Model: "Model D", Role: "Stakeholder Mapping", Output: "Influence map + leverage points"},
		},
		Steps: []Step{
			{Num: 1, Title: "Amalgamate", Description: "AI outputs from multiple streams"},
			{Num: 2, Title: "Apply", Description: "Recursive human-AI feedback loops"},
			{Num: 3, Title: "Resolve", Description: "Conflicts with dynamic reconciliation"},
			{Num: 4, Title: "Translate", Description: "Abstract reasoning into operations"},
			{Num: 5, Title: "Record", Description: "Meta-learning lessons for improvement"},
		},
		Framework: []string{
			"Decompose problem into independent axes",
			"Generate parallel AI solutions with risk scoring",
			"Compare scenarios and weight outcomes",
			"Synthesize compact, executable blueprint",
		},
		Takeaways: []string{
			"Research-level, self-directed, and operationally impactful",
			"Produces structured, reproducible outputs demonstrating advanced hybrid cognition",
			"Capable of generating strategic, narrative, and operational insights in real-world contexts",
			"Value lies in systems and outputs, not personal circumstances or unconventional presentation",
		},
		Modes: services.Modes,
		Try:   TryForm{Mode: string(services.ModeStandard)},
	}
}

// GetHome renders the landing page.
func (c *StaticController) GetHome(w http.ResponseWriter, r *http.Request) {
	c.templates.Home.ExecuteHTTP(w, r, c.pageData(r, homeContent()))
}

// PostTry runs the form input through the analyzer and renders the result
// on the landing page. Validation failures re-render with a 422.
func (c *StaticController) PostTry(w http.ResponseWriter, r *http.Request) {
	home := homeContent()

	if err := r.ParseForm(); err != nil {
		data := c.pageData(r, home)
		data.Error = "Invalid form data"
		c.render(w, r, http.StatusBadRequest, data)
		return
	}

	req := services.NewAnalysisRequest(r.FormValue("input"), r.FormValue("mode"))
	home.Try.Input = *req.Input
	home.Try.Mode = string(services.NormalizeMode(req.Mode))

	res, err := c.analyzer.Analyze(req)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if !services.IsValidation(err) {
			status = http.StatusInternalServerError
		}
		c.recorder.Record(r, models.RouteTry, req, status, err.Error())

		data := c.pageData(r, home)
		data.Error = err.Error()
		c.render(w, r, status, data)
		return
	}

	c.recorder.Record(r, models.RouteTry, req, http.StatusOK, "")
	home.Try.Result = res

	data := c.pageData(r, home)
	data.Success = "Analysis complete"
	c.render(w, r, http.StatusOK, data)
}

func (c *StaticController) pageData(r *http.Request, home HomeData) *views.TemplateData {
	counts, err := c.journal.CountByMode(r.Context())
	if err != nil {
		middleware.Logger(r).WithError(err).Warn("Failed to load mode stats")
	} else {
		home.Stats = counts
		home.Total = total(counts)
	}

	recent, err := c.journal.Recent(r.Context(), recentOnHome)
	if err != nil {
		middleware.Logger(r).WithError(err).Warn("Failed to load recent calls")
	} else {
		home.Recent = recent
	}

	return &views.TemplateData{
		Title:         siteTitle,
		Description:   siteDescription,
		Canonical:     siteCanonical,
		IsDevelopment: c.isDevelopment,
		Data:          home,
	}
}

func (c *StaticController) render(w http.ResponseWriter, r *http.Request, status int, data *views.TemplateData) {
	c.templates.Home.ExecuteHTTPWithStatus(w, r, status, data)
}

// HealthCheck reports whether the journal is reachable.
func HealthCheck(journal models.Journal) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := journal.Health(r.Context()); err != nil {
			middleware.Logger(r).WithError(err).Warn("Health check failed")
			writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
