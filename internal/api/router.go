package api

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/Huddle/internal/middleware"
	"github.com/soaringjerry/Huddle/internal/models"
	"github.com/soaringjerry/Huddle/internal/services"
)

const (
	msgFetch  = "failed to fetch workshop"
	msgUpdate = "failed to update workshop"
)

// Options wires the router. A nil Store means an in-memory store; a nil
// Auth disables the token endpoint.
type Options struct {
	Store              services.SessionRepository
	LLM                services.Completer
	Auth               *services.AuthService
	RequireFacilitator bool
	PollInterval       time.Duration
	Log                logrus.FieldLogger
}

type Router struct {
	log                logrus.FieldLogger
	sessions           *services.SessionService
	joins              *services.JoinService
	responses          *services.ResponseService
	analysis           *services.AnalysisService
	questions          *services.QuestionService
	summaries          *services.SummaryService
	exports            *services.ExportService
	auth               *services.AuthService
	requireFacilitator bool
	pollInterval       time.Duration
}

func NewRouter(opts Options) (*Router, error) {
	log := opts.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	store := opts.Store
	if store == nil {
		store = newMemoryStore()
	}
	questions, err := services.NewQuestionService(opts.LLM, log)
	if err != nil {
		return nil, fmt.Errorf("question bank: %w", err)
	}
	return &Router{
		log:                log,
		sessions:           services.NewSessionService(store, log),
		joins:              services.NewJoinService(store, log),
		responses:          services.NewResponseService(store, log),
		analysis:           services.NewAnalysisService(store, opts.LLM, log),
		questions:          questions,
		summaries:          services.NewSummaryService(store),
		exports:            services.NewExportService(store),
		auth:               opts.Auth,
		requireFacilitator: opts.RequireFacilitator,
		pollInterval:       opts.PollInterval,
	}, nil
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /workshops", rt.handleList)
	mux.HandleFunc("GET /workshop/{id}", rt.handleGetSession("id"))
	mux.HandleFunc("POST /workshop/{id}", rt.handleUpdateSession)
	mux.HandleFunc("GET /workshop/session/{workshopId}", rt.handleGetSession("workshopId"))
	mux.HandleFunc("PUT /workshop/session/{workshopId}", rt.handlePutStatus)
	mux.HandleFunc("GET /workshop/{id}/{view}", rt.handleView) // stance | summary | export
	mux.HandleFunc("POST /workshop/join", rt.handleJoin)
	mux.HandleFunc("POST /workshop/response", rt.handleResponse)
	mux.HandleFunc("POST /workshop/question", rt.handleQuestion)
	mux.HandleFunc("POST /workshop/analyze-responses", rt.handleAnalyze)
	mux.HandleFunc("POST /workshop/generate-question", rt.handleGenerate(1))
	mux.HandleFunc("POST /workshop/generate-questions", rt.handleGenerate(3))
	mux.HandleFunc("POST /workshop/facilitator/token", rt.handleToken)
}

// authorize is a no-op unless facilitator auth is on. An empty workshopID
// accepts a token for any workshop.
func (rt *Router) authorize(r *http.Request, workshopID string) error {
	if !rt.requireFacilitator {
		return nil
	}
	wid, ok := middleware.FacilitatorWorkshop(r.Context())
	if !ok {
		return services.NewUnauthorizedError("facilitator token required")
	}
	if workshopID != "" && wid != strings.TrimSpace(workshopID) {
		return services.NewForbiddenError("token not valid for this workshop")
	}
	return nil
}

// writeSession sends the snapshot with its ETag. Reads answer 304 when the
// client already holds this version.
func (rt *Router) writeSession(w http.ResponseWriter, r *http.Request, sess *models.Session, read bool) {
	etag := sess.ETag()
	w.Header().Set("ETag", etag)
	if rt.pollInterval > 0 {
		w.Header().Set("X-Poll-Interval", strconv.FormatInt(rt.pollInterval.Milliseconds(), 10))
	}
	if read && etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// GET /workshop/{id}, GET /workshop/session/{workshopId}
func (rt *Router) handleGetSession(param string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue(param)
		sess, err := rt.sessions.Get(r.Context(), id)
		if err != nil {
			rt.fail(w, "session.get", id, err, msgFetch)
			return
		}
		rt.writeSession(w, r, sess, true)
	}
}

// POST /workshop/{id} {status?, currentQuestion?}
func (rt *Router) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rt.updateSession(w, r, id, false)
}

// PUT /workshop/session/{workshopId} {status}
func (rt *Router) handlePutStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("workshopId")
	rt.updateSession(w, r, id, true)
}

func (rt *Router) updateSession(w http.ResponseWriter, r *http.Request, id string, statusRequired bool) {
	if err := rt.authorize(r, id); err != nil {
		rt.fail(w, "session.update", id, err, msgUpdate)
		return
	}
	var req sessionUpdateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rt.fail(w, "session.update", id, err, msgUpdate)
		return
	}
	if statusRequired && strings.TrimSpace(req.Status) == "" {
		rt.fail(w, "session.update", id, services.NewInvalidError("status required"), msgUpdate)
		return
	}
	sess, err := rt.sessions.Update(r.Context(), id, req.toService())
	if err != nil {
		rt.fail(w, "session.update", id, err, msgUpdate)
		return
	}
	rt.writeSession(w, r, sess, false)
}

// POST /workshop/join
func (rt *Router) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rt.fail(w, "session.join", "", err, msgUpdate)
		return
	}
	p, err := req.Participant.toModel()
	if err != nil {
		rt.fail(w, "session.join", req.WorkshopID, invalid(err), msgUpdate)
		return
	}
	res, err := rt.joins.Join(r.Context(), services.JoinRequest{WorkshopID: req.WorkshopID, Participant: p})
	if err != nil {
		rt.fail(w, "session.join", req.WorkshopID, err, msgUpdate)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "participantId": res.ParticipantID, "joined": res.Joined})
}

// POST /workshop/response
func (rt *Router) handleResponse(w http.ResponseWriter, r *http.Request) {
	var req responseRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rt.fail(w, "session.response", "", err, msgUpdate)
		return
	}
	resp, err := req.toModel()
	if err != nil {
		rt.fail(w, "session.response", req.WorkshopID, invalid(err), msgUpdate)
		return
	}
	stored, err := rt.responses.Submit(r.Context(), services.SubmitRequest{WorkshopID: req.WorkshopID, Response: resp})
	if err != nil {
		rt.fail(w, "session.response", req.WorkshopID, err, msgUpdate)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"id":          stored.ID,
		"gap":         stored.Gap,
		"submittedAt": stored.SubmittedAt,
	})
}

// POST /workshop/question {workshopId, question}
func (rt *Router) handleQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rt.fail(w, "session.question", "", err, msgUpdate)
		return
	}
	if err := rt.authorize(r, req.WorkshopID); err != nil {
		rt.fail(w, "session.question", req.WorkshopID, err, msgUpdate)
		return
	}
	q := req.Question.question()
	if q == nil {
		rt.fail(w, "session.question", req.WorkshopID, services.NewInvalidError("question required"), msgUpdate)
		return
	}
	sess, err := rt.sessions.SetQuestion(r.Context(), req.WorkshopID, *q)
	if err != nil {
		rt.fail(w, "session.question", req.WorkshopID, err, msgUpdate)
		return
	}
	rt.writeSession(w, r, sess, false)
}

// POST /workshop/analyze-responses {responses?, question?, workshopId}
func (rt *Router) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rt.fail(w, "session.analyze", "", err, msgUpdate)
		return
	}
	if err := rt.authorize(r, req.WorkshopID); err != nil {
		rt.fail(w, "session.analyze", req.WorkshopID, err, msgUpdate)
		return
	}
	responses, err := req.responses()
	if err != nil {
		rt.fail(w, "session.analyze", req.WorkshopID, invalid(err), msgUpdate)
		return
	}
	res, err := rt.analysis.Analyze(r.Context(), services.AnalyzeRequest{
		WorkshopID: req.WorkshopID,
		Question:   req.Question.question(),
		Responses:  responses,
		Locale:     middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		rt.fail(w, "session.analyze", req.WorkshopID, err, msgUpdate)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /workshop/generate-question(s) {theme, count?}
func (rt *Router) handleGenerate(count int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := decodeJSON(w, r, &req, false); err != nil {
			rt.fail(w, "question.generate", "", err, msgFetch)
			return
		}
		n := count
		if count > 1 && req.Count > 0 {
			n = req.Count
		}
		out, err := rt.questions.Generate(r.Context(), req.Theme, n, middleware.LocaleFromContext(r.Context()))
		if err != nil {
			rt.fail(w, "question.generate", "", err, msgFetch)
			return
		}
		if count == 1 {
			writeJSON(w, http.StatusOK, map[string]any{"theme": out.Theme, "question": out.Questions[0], "source": out.Source})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /workshop/{id}/stance|summary|export
func (rt *Router) handleView(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	switch view := r.PathValue("view"); view {
	case "stance":
		out, err := rt.summaries.StanceReview(r.Context(), id)
		if err != nil {
			rt.fail(w, "session.stance", id, err, msgFetch)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case "summary":
		out, err := rt.summaries.TeamSummary(r.Context(), id)
		if err != nil {
			rt.fail(w, "session.summary", id, err, msgFetch)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case "export":
		out, err := rt.exports.ExportCSV(r.Context(), id, r.URL.Query().Get("format"))
		if err != nil {
			rt.fail(w, "session.export", id, err, msgFetch)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", out.Filename))
		_, _ = w.Write(out.Data)
	default:
		rt.fail(w, "session.view", id, services.NewNotFoundError("unknown view "+strconv.Quote(view)), msgFetch)
	}
}

// GET /workshops
func (rt *Router) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := rt.sessions.List(r.Context())
	if err != nil {
		rt.fail(w, "session.list", "", err, msgFetch)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workshops": list})
}

// POST /workshop/facilitator/token {workshopId, passcode}
func (rt *Router) handleToken(w http.ResponseWriter, r *http.Request) {
	if rt.auth == nil {
		rt.fail(w, "auth.token", "", services.NewNotFoundError("facilitator auth disabled"), msgFetch)
		return
	}
	var req tokenRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		rt.fail(w, "auth.token", "", err, msgFetch)
		return
	}
	res, err := rt.auth.IssueFacilitatorToken(req.WorkshopID, req.Passcode)
	if err != nil {
		rt.fail(w, "auth.token", req.WorkshopID, err, msgFetch)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
