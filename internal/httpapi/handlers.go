package httpapi

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"videogen/internal/domain"
	"videogen/internal/history"
	"videogen/internal/middleware"
	"videogen/internal/orchestrator"
)

type generateRequest struct {
	Prompt   string           `json:"prompt"`
	Settings *domain.Settings `json:"settings,omitempty"`
}

type generateResponse struct {
	VideoURL          string `json:"video_url"`
	Prompt            string `json:"prompt"`
	Model             string `json:"model"`
	Source            string `json:"source"`
	Resolution        string `json:"resolution"`
	DetectedLanguage  string `json:"detected_language,omitempty"`
	Subtitled         bool   `json:"subtitled,omitempty"`
	Upscaled          bool   `json:"upscaled,omitempty"`
	RegenerationsLeft int    `json:"regenerations_left"`
}

// extendWriteDeadline lifts the server's write timeout for one response.
// Generation handlers block until the pipeline finishes, which can take
// minutes; cutting the connection mid-render would leave the client with no
// status at all.
func extendWriteDeadline(w http.ResponseWriter) {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
}

func (a *App) handleGenerate(w http.ResponseWriter, r *http.Request) {
	extendWriteDeadline(w)

	var req generateRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}

	settings := domain.DefaultSettings()
	if req.Settings != nil {
		settings = req.Settings.Normalize()
	}
	if settings.SourceLang == "" {
		settings.SourceLang = middleware.SourceLanguageFromContext(r.Context())
	}

	result, err := a.Session.Start(r.Context(), req.Prompt, settings, nil)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, a.generateResponseFor(result))
}

func (a *App) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	extendWriteDeadline(w)

	result, err := a.Session.Regenerate(r.Context(), nil)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusOK, a.generateResponseFor(result))
}

func (a *App) generateResponseFor(result *orchestrator.Result) generateResponse {
	return generateResponse{
		VideoURL:          a.publicVideoURL(result.VideoPath),
		Prompt:            result.Prompt,
		Model:             result.ModelUsed,
		Source:            result.Source,
		Resolution:        result.Resolution,
		DetectedLanguage:  result.Translated.DetectedLanguage,
		Subtitled:         result.Subtitled,
		Upscaled:          result.Upscaled,
		RegenerationsLeft: a.Session.Remaining(),
	}
}

// publicVideoURL maps a stored file to its serving path.
func (a *App) publicVideoURL(path string) string {
	if a.Videos == nil || path == "" {
		return path
	}
	rel, err := filepath.Rel(a.Videos.BasePath(), path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return "/videos/" + filepath.ToSlash(rel)
}

type submitJobRequest struct {
	Prompt   string           `json:"prompt"`
	Settings *domain.Settings `json:"settings,omitempty"`
}

type jobResponse struct {
	ID          string           `json:"id"`
	Status      domain.JobStatus `json:"status"`
	Prompt      string           `json:"prompt,omitempty"`
	VideoURL    string           `json:"video_url,omitempty"`
	Error       string           `json:"error,omitempty"`
	ModelUsed   string           `json:"model_used,omitempty"`
	Resolution  string           `json:"resolution,omitempty"`
	CreatedAt   *time.Time       `json:"created_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func (a *App) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if !a.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.respondError(w, domain.ErrInvalidPrompt)
		return
	}

	settings := domain.DefaultSettings()
	if req.Settings != nil {
		settings = req.Settings.Normalize()
	}
	settings.Mode = domain.ModeCloud

	id, err := a.Jobs.CreateJob(r.Context(), req.Prompt, settings)
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.Sink.CloudSubmitted(history.CloudSubmission{JobID: id, Prompt: req.Prompt})

	a.respondJSON(w, http.StatusAccepted, jobResponse{
		ID:     id,
		Status: domain.JobStatusPending,
		Prompt: req.Prompt,
	})
}

func (a *App) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Jobs.GetJob(r.Context(), id)
	if err != nil {
		a.respondError(w, err)
		return
	}

	resp := jobResponse{
		ID:         job.ID,
		Status:     job.Status,
		Prompt:     job.Prompt,
		VideoURL:   a.publicVideoURL(job.VideoURL),
		Error:      job.Error,
		ModelUsed:  job.ModelUsed,
		Resolution: job.Resolution,
	}
	if !job.CreatedAt.IsZero() {
		created := job.CreatedAt
		resp.CreatedAt = &created
	}
	if !job.CompletedAt.IsZero() {
		completed := job.CompletedAt
		resp.CompletedAt = &completed
	}
	a.respondJSON(w, http.StatusOK, resp)
}

func (a *App) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if a.Queue == nil {
		a.respondJSON(w, http.StatusOK, []history.CloudSubmission{})
		return
	}
	a.respondJSON(w, http.StatusOK, a.Queue.List())
}

type historyEntryResponse struct {
	domain.HistoryEntry
	VideoURL string `json:"video_url"`
}

func (a *App) handleListHistory(w http.ResponseWriter, r *http.Request) {
	entries := a.History.List()
	out := make([]historyEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntryResponse{
			HistoryEntry: e,
			VideoURL:     a.publicVideoURL(e.VideoPath),
		})
	}
	a.respondJSON(w, http.StatusOK, out)
}

func (a *App) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		a.respondError(w, domain.ErrNotFound)
		return
	}
	if err := a.History.Delete(id); err != nil {
		a.respondError(w, err)
		return
	}
	a.respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleSearchHistory(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, a.Search.List())
}

func (a *App) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if a.CSV == nil {
		a.respondError(w, domain.ErrNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="videos.csv"`)
	http.ServeFile(w, r, a.CSV.Path())
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
