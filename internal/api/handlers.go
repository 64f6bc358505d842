// Package api exposes HTTP handlers for the plan engine.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"example.com/fitplan/internal/auth"
	"example.com/fitplan/internal/chat"
	"example.com/fitplan/internal/domain"
)

const maxBodyBytes = 1 << 20

// Engine is the plan service consumed by the handlers.
type Engine interface {
	GenerateWorkout(ctx context.Context, req domain.PlanRequest) (domain.GeneratedPlan, error)
	LookupWorkoutPlan(ctx context.Context, id string) (domain.GeneratedPlan, error)
	GenerateNutrition(ctx context.Context, req domain.NutritionRequest) (domain.NutritionPlan, error)
	LookupNutritionPlan(ctx context.Context, id string) (domain.NutritionPlan, error)
	Chat(ctx context.Context, msg domain.ChatMessage) (domain.ChatReply, error)
	Preferences(ctx context.Context, userID string) (domain.PreferenceSnapshot, error)
	Catalog() domain.Catalog
}

// HistoryReader lists a user's recorded interactions.
type HistoryReader interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.InteractionRecord, error)
}

// Pusher delivers frames to a user's open chat sockets.
type Pusher interface {
	SendToUser(userID string, payload []byte) int
}

// Option configures optional collaborators.
type Option func(*Handler)

// WithHistory enables GET /v1/interactions.
func WithHistory(h HistoryReader) Option {
	return func(handler *Handler) { handler.history = h }
}

// WithPusher mirrors HTTP chat replies to the user's sockets.
func WithPusher(p Pusher) Option {
	return func(handler *Handler) { handler.pusher = p }
}

// WithLogger sets the handler logger.
func WithLogger(logger *zap.Logger) Option {
	return func(handler *Handler) {
		if logger != nil {
			handler.logger = logger
		}
	}
}

// Handler coordinates HTTP requests with the plan engine.
type Handler struct {
	engine  Engine
	history HistoryReader
	pusher  Pusher
	logger  *zap.Logger
}

// NewHandler builds a Handler.
func NewHandler(engine Engine, opts ...Option) *Handler {
	h := &Handler{engine: engine, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/workouts/plans", h.workoutPlans)
	mux.HandleFunc("/v1/workouts/plans/", h.workoutPlanByID)
	mux.HandleFunc("/v1/nutrition/plans", h.nutritionPlans)
	mux.HandleFunc("/v1/nutrition/plans/", h.nutritionPlanByID)
	mux.HandleFunc("/v1/chat", h.chatMessage)
	mux.HandleFunc("/v1/preferences", h.preferences)
	mux.HandleFunc("/v1/interactions", h.interactions)
	mux.HandleFunc("/v1/exercises", h.exercises)
	mux.HandleFunc("/healthz", h.healthz)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "ok",
		"catalog_version": h.engine.Catalog().Version,
	})
}

func (h *Handler) workoutPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := authorize(w, r, auth.ScopePlansWrite)
	if !ok {
		return
	}

	var req domain.PlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !bindUser(w, claims, &req.UserID) {
		return
	}

	plan, err := h.engine.GenerateWorkout(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) workoutPlanByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/workouts/plans/")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := authorize(w, r, auth.ScopePlansRead)
	if !ok {
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing plan id")
		return
	}

	plan, err := h.engine.LookupWorkoutPlan(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if plan.UserID != claims.Subject {
		writeError(w, http.StatusNotFound, "not_found", domain.ErrPlanNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) nutritionPlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := authorize(w, r, auth.ScopePlansWrite)
	if !ok {
		return
	}

	var req domain.NutritionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !bindUser(w, claims, &req.UserID) {
		return
	}

	plan, err := h.engine.GenerateNutrition(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) nutritionPlanByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/nutrition/plans/")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := authorize(w, r, auth.ScopePlansRead)
	if !ok {
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing plan id")
		return
	}

	plan, err := h.engine.LookupNutritionPlan(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if plan.UserID != claims.Subject {
		writeError(w, http.StatusNotFound, "not_found", domain.ErrPlanNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (h *Handler) chatMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := authorize(w, r, auth.ScopeChat)
	if !ok {
		return
	}

	var msg domain.ChatMessage
	if !decodeBody(w, r, &msg) {
		return
	}
	if !bindUser(w, claims, &msg.UserID) {
		return
	}

	reply, err := h.engine.Chat(r.Context(), msg)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if h.pusher != nil {
		if payload, err := json.Marshal(chat.Frame{Type: chat.FrameReply, Timestamp: reply.Timestamp, Data: reply}); err == nil {
			h.pusher.SendToUser(claims.Subject, payload)
		}
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) preferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := authorize(w, r, auth.ScopePlansRead)
	if !ok {
		return
	}

	snap, err := h.engine.Preferences(r.Context(), claims.Subject)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) interactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	claims, ok := authorize(w, r, auth.ScopePlansRead)
	if !ok {
		return
	}
	if h.history == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "interaction history is not available for this sink")
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, 100)
		}
	}

	records, err := h.history.ListByUser(r.Context(), claims.Subject, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	items := make([]InteractionView, 0, len(records))
	for _, rec := range records {
		items = append(items, toInteractionView(rec))
	}
	writeJSON(w, http.StatusOK, ListInteractionsResponse{Items: items})
}

func (h *Handler) exercises(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	if _, ok := authorize(w, r, auth.ScopePlansRead); !ok {
		return
	}

	catalog := h.engine.Catalog()
	resp := CatalogResponse{
		Version:     catalog.Version,
		Strength:    make(map[string][]domain.ExerciseDefinition, len(catalog.Strength)),
		Cardio:      catalog.Cardio,
		Flexibility: catalog.Flexibility,
	}
	for _, bucket := range catalog.Strength {
		resp.Strength[bucket.Name] = bucket.Exercises
	}
	writeJSON(w, http.StatusOK, resp)
}

// InteractionView is one history entry.
type InteractionView struct {
	Message        string    `json:"message"`
	Response       string    `json:"response"`
	MessageType    string    `json:"message_type"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListInteractionsResponse packages history results, most recent first.
type ListInteractionsResponse struct {
	Items []InteractionView `json:"items"`
}

// CatalogResponse exposes the exercise catalog.
type CatalogResponse struct {
	Version     string                                 `json:"version"`
	Strength    map[string][]domain.ExerciseDefinition `json:"strength"`
	Cardio      []domain.ExerciseDefinition            `json:"cardio"`
	Flexibility []domain.ExerciseDefinition            `json:"flexibility"`
}

func toInteractionView(rec domain.InteractionRecord) InteractionView {
	return InteractionView{
		Message:        rec.Input,
		Response:       rec.Output,
		MessageType:    rec.Category,
		ResponseTimeMS: rec.LatencyMS,
		CreatedAt:      rec.CreatedAt,
	}
}

func authorize(w http.ResponseWriter, r *http.Request, scope string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	if !claims.HasScope(scope) {
		writeError(w, http.StatusForbidden, "forbidden", "scope "+scope+" required")
		return nil, false
	}
	return claims, true
}

// bindUser defaults the body's user to the token subject and rejects requests
// made on behalf of someone else.
func bindUser(w http.ResponseWriter, claims *auth.Claims, userID *string) bool {
	*userID = strings.TrimSpace(*userID)
	if *userID == "" {
		*userID = claims.Subject
		return true
	}
	if *userID != claims.Subject {
		writeError(w, http.StatusForbidden, "forbidden", "user_id does not match token subject")
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"type":   "invalid_request",
			"detail": verr.Error(),
			"fields": verr.Fields,
		})
	case errors.Is(err, domain.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrNoEligibleExercises):
		writeError(w, http.StatusUnprocessableEntity, "no_eligible_exercises", err.Error())
	case errors.Is(err, domain.ErrPlanNotFound), errors.Is(err, domain.ErrPreferencesNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
