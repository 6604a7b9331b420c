package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kunometrika/bmitrack/internal/application"
	"github.com/kunometrika/bmitrack/internal/domain"
	"github.com/kunometrika/bmitrack/internal/ui"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/starfederation/datastar-go/datastar"
)

const sessionCookieName = "bmi_session"

type contextKey string

const sessionIDKey contextKey = "session_id"

type Handler struct {
	flows   *application.FlowManager
	entries *application.EntryService
	mailer  *application.Mailer
}

func NewRouter(flows *application.FlowManager, entries *application.EntryService, mailer *application.Mailer) http.Handler {
	h := &Handler{flows: flows, entries: entries, mailer: mailer}
	r := chi.NewRouter()

	r.Get("/healthz", h.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", staticHandler())

	r.Route("/api", func(api chi.Router) {
		api.Use(h.withSession)
		api.Post("/compute", h.handleAPICompute)
		api.Get("/session", h.handleAPISession)
		api.Delete("/session", h.handleAPIClearSession)
		api.Get("/entries", h.handleAPIListEntries)
		api.Post("/entries", h.handleAPISaveEntry)
		api.Delete("/entries/{id}", h.handleAPIDeleteEntry)
		api.Post("/email", h.handleAPISendEmail)
	})

	r.Group(func(gui chi.Router) {
		gui.Use(h.withSession)
		gui.Get("/", h.handleHomeRedirect)
		gui.Get("/calculator", h.handleCalculator)

		gui.Post("/flow/details", h.handleFlowDetails)
		gui.Post("/flow/measurements", h.handleFlowMeasurements)
		gui.Post("/flow/back", h.handleFlowBack)
		gui.Post("/flow/reset", h.handleFlowReset)
		gui.Post("/flow/retry-save", h.handleFlowRetrySave)
		gui.Post("/flow/email", h.handleFlowEmail)
		gui.Get("/flow/save-status", h.handleFlowSaveStatus)

		gui.Post("/history/open", h.handleHistoryOpen)
		gui.Post("/history/close", h.handleHistoryClose)
		gui.Post("/history/delete", h.handleHistoryDelete)

		gui.Post("/session/clear", h.handleSessionClear)
	})

	return r
}

// withSession resolves the anonymous session id from the cookie, minting
// one on first sight. The id scopes history; it is not authentication.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kv := &cookieKV{w: w, r: r}
		provider := application.NewSessionProvider(kv, clientSignature(r))
		sessionID, err := provider.GetOrCreate()
		if err != nil {
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionIDKey, sessionID)))
	})
}

func sessionFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

func clientSignature(r *http.Request) string {
	ua := strings.TrimSpace(r.UserAgent())
	ua = strings.Map(func(c rune) rune {
		if c == '_' || c == ' ' {
			return -1
		}
		return c
	}, ua)
	return ua
}

// cookieKV adapts one request/response pair to the session provider's
// key-value port.
type cookieKV struct {
	w http.ResponseWriter
	r *http.Request
}

func (c *cookieKV) Get(string) (string, bool) {
	cookie, err := c.r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (c *cookieKV) Set(_, value string) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
	})
}

func (c *cookieKV) Remove(string) {
	http.SetCookie(c.w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleHomeRedirect(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/calculator", http.StatusSeeOther)
}

func (h *Handler) handleCalculator(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromContext(r.Context())
	flow := h.flows.Get(sessionID)
	snap := flow.Snapshot()

	entries, err := h.entries.List(r.Context(), sessionID)
	if err != nil {
		entries = nil
	}
	if err := ui.CalculatorPage(snap, entries).Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type detailsSignals struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Age    string `json:"age"`
	Gender string `json:"gender"`
}

func (h *Handler) handleFlowDetails(w http.ResponseWriter, r *http.Request) {
	var sig detailsSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	// A non-numeric age becomes zero and fails range validation with a
	// field message instead of a transport error.
	age, _ := strconv.Atoi(strings.TrimSpace(sig.Age))

	flow := h.flows.Get(sessionFromContext(r.Context()))
	flow.SubmitDetails(domain.PersonalDetails{
		Name:   strings.TrimSpace(sig.Name),
		Email:  strings.TrimSpace(sig.Email),
		Age:    age,
		Gender: domain.Gender(strings.TrimSpace(sig.Gender)),
	})
	h.renderStep(w, r, flow)
}

type measurementSignals struct {
	Height     string `json:"height"`
	HeightUnit string `json:"heightUnit"`
	Weight     string `json:"weight"`
	WeightUnit string `json:"weightUnit"`
}

func (h *Handler) handleFlowMeasurements(w http.ResponseWriter, r *http.Request) {
	var sig measurementSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	height, _ := strconv.ParseFloat(strings.TrimSpace(sig.Height), 64)
	weight, _ := strconv.ParseFloat(strings.TrimSpace(sig.Weight), 64)

	flow := h.flows.Get(sessionFromContext(r.Context()))
	flow.SubmitMeasurement(domain.Measurement{
		Height:     height,
		HeightUnit: domain.HeightUnit(strings.TrimSpace(sig.HeightUnit)),
		Weight:     weight,
		WeightUnit: domain.WeightUnit(strings.TrimSpace(sig.WeightUnit)),
	})
	h.renderStep(w, r, flow)
}

func (h *Handler) handleFlowBack(w http.ResponseWriter, r *http.Request) {
	flow := h.flows.Get(sessionFromContext(r.Context()))
	flow.Back()
	h.renderStep(w, r, flow)
}

func (h *Handler) handleFlowReset(w http.ResponseWriter, r *http.Request) {
	flow := h.flows.Get(sessionFromContext(r.Context()))
	flow.Reset()
	h.renderStep(w, r, flow)
}

func (h *Handler) handleFlowRetrySave(w http.ResponseWriter, r *http.Request) {
	flow := h.flows.Get(sessionFromContext(r.Context()))
	flow.RetrySave()
	h.renderStep(w, r, flow)
}

func (h *Handler) handleFlowEmail(w http.ResponseWriter, r *http.Request) {
	flow := h.flows.Get(sessionFromContext(r.Context()))
	flow.SendEmail()
	h.renderStep(w, r, flow)
}

func (h *Handler) handleFlowSaveStatus(w http.ResponseWriter, r *http.Request) {
	flow := h.flows.Get(sessionFromContext(r.Context()))
	snap := flow.Snapshot()
	renderHTMLFragments(r.Context(), w, http.StatusOK,
		ui.SaveStatus(snap),
		ui.NotifyStatus(snap),
	)
}

func (h *Handler) handleHistoryOpen(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromContext(r.Context())
	flow := h.flows.Get(sessionID)
	flow.OpenHistory()

	entries, err := h.entries.List(r.Context(), sessionID)
	if err != nil {
		flow.CloseHistory()
		h.renderFlash(r.Context(), w, http.StatusInternalServerError, "Could not load your history.")
		return
	}
	renderHTMLFragments(r.Context(), w, http.StatusOK,
		ui.HistoryOverlay(entries, true),
	)
}

func (h *Handler) handleHistoryClose(w http.ResponseWriter, r *http.Request) {
	flow := h.flows.Get(sessionFromContext(r.Context()))
	flow.CloseHistory()
	renderHTMLFragments(r.Context(), w, http.StatusOK,
		ui.HistoryOverlay(nil, false),
	)
}

type historySignals struct {
	EntryID string `json:"entryId"`
}

func (h *Handler) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	var sig historySignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid signals")
		return
	}
	id, err := strconv.ParseUint(strings.TrimSpace(sig.EntryID), 10, 64)
	if err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "entryId must be a number")
		return
	}

	sessionID := sessionFromContext(r.Context())
	if err := h.entries.Delete(r.Context(), sessionID, uint(id)); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "Could not delete the entry.")
		return
	}
	entries, _ := h.entries.List(r.Context(), sessionID)
	renderHTMLFragments(r.Context(), w, http.StatusOK,
		ui.HistoryOverlay(entries, true),
	)
}

func (h *Handler) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromContext(r.Context())
	kv := &cookieKV{w: w, r: r}
	application.NewSessionProvider(kv, "").Clear()
	h.flows.Drop(sessionID)
	http.Redirect(w, r, "/calculator", http.StatusSeeOther)
}

func (h *Handler) renderStep(w http.ResponseWriter, r *http.Request, flow *application.Flow) {
	renderHTMLFragments(r.Context(), w, http.StatusOK,
		ui.StepCard(flow.Snapshot()),
	)
}

type apiComputeRequest struct {
	Height     float64 `json:"height"`
	Weight     float64 `json:"weight"`
	HeightUnit string  `json:"height_unit"`
	WeightUnit string  `json:"weight_unit"`
}

func (h *Handler) handleAPICompute(w http.ResponseWriter, r *http.Request) {
	var req apiComputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	result, err := domain.Compute(req.Height, req.Weight, domain.HeightUnit(req.HeightUnit), domain.WeightUnit(req.WeightUnit))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bmi":      result.BMI,
		"category": result.Category,
		"range":    domain.CategoryRange(result.Category),
	})
}

func (h *Handler) handleAPISession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionFromContext(r.Context())})
}

func (h *Handler) handleAPIClearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromContext(r.Context())
	kv := &cookieKV{w: w, r: r}
	application.NewSessionProvider(kv, "").Clear()
	h.flows.Drop(sessionID)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleAPIListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries.List(r.Context(), h.apiSessionID(r))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type apiSaveEntryRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Age        int     `json:"age"`
	Gender     string  `json:"gender"`
	Height     float64 `json:"height"`
	Weight     float64 `json:"weight"`
	HeightUnit string  `json:"height_unit"`
	WeightUnit string  `json:"weight_unit"`
	ClientRef  string  `json:"client_ref"`
}

func (h *Handler) handleAPISaveEntry(w http.ResponseWriter, r *http.Request) {
	var req apiSaveEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	details := domain.PersonalDetails{Name: req.Name, Email: req.Email, Age: req.Age, Gender: domain.Gender(req.Gender)}
	if fe := domain.ValidateDetails(details); fe != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": fe})
		return
	}
	m := domain.Measurement{
		Height:     req.Height,
		HeightUnit: domain.HeightUnit(req.HeightUnit),
		Weight:     req.Weight,
		WeightUnit: domain.WeightUnit(req.WeightUnit),
	}
	if fe := domain.ValidateMeasurement(m); fe != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": fe})
		return
	}
	result, err := domain.Compute(m.Height, m.Weight, m.HeightUnit, m.WeightUnit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	// The client ref deduplicates retries; a caller that sends none gets a
	// fresh one so its saves never collide on the unique index.
	clientRef := strings.TrimSpace(req.ClientRef)
	if clientRef == "" {
		clientRef = uuid.NewString()
	}
	saved, err := h.entries.Save(r.Context(), h.apiSessionID(r), clientRef, details, m, result)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entry": saved.Entry, "skipped": saved.Skipped, "result": result})
}

func (h *Handler) handleAPIDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid id"})
		return
	}
	if err := h.entries.Delete(r.Context(), h.apiSessionID(r), uint(id)); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type apiSendEmailRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Age        int     `json:"age"`
	Gender     string  `json:"gender"`
	Height     float64 `json:"height"`
	Weight     float64 `json:"weight"`
	HeightUnit string  `json:"height_unit"`
	WeightUnit string  `json:"weight_unit"`
}

func (h *Handler) handleAPISendEmail(w http.ResponseWriter, r *http.Request) {
	var req apiSendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	m := domain.Measurement{
		Height:     req.Height,
		HeightUnit: domain.HeightUnit(req.HeightUnit),
		Weight:     req.Weight,
		WeightUnit: domain.WeightUnit(req.WeightUnit),
	}
	result, err := domain.Compute(m.Height, m.Weight, m.HeightUnit, m.WeightUnit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	details := domain.PersonalDetails{Name: req.Name, Email: req.Email, Age: req.Age, Gender: domain.Gender(req.Gender)}
	outcome := h.mailer.SendResult(r.Context(), details, m, result)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  outcome.Success,
		"message":  outcome.Message,
		"email_id": outcome.EmailID,
	})
}

// apiSessionID allows non-browser clients to carry their session id in a
// header, falling back to the cookie-derived one.
func (h *Handler) apiSessionID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Session-ID")); v != "" {
		return v
	}
	return sessionFromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func renderHTMLFragments(ctx context.Context, w http.ResponseWriter, status int, fragments ...templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	for _, fragment := range fragments {
		if fragment == nil {
			continue
		}
		_ = fragment.Render(ctx, w)
	}
}

func (h *Handler) renderFlash(ctx context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if status >= 400 {
		_ = ui.Flash(message, "error").Render(ctx, w)
		return
	}
	_ = ui.Flash(message, "info").Render(ctx, w)
}
