// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

// Package api implements the HTTP surface: authentication, entity CRUD,
// the live event stream endpoints, and operational endpoints.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/praxis-edu/praxis/internal/auth"
	"github.com/praxis-edu/praxis/internal/broker"
	"github.com/praxis-edu/praxis/internal/cache"
	"github.com/praxis-edu/praxis/internal/config"
	"github.com/praxis-edu/praxis/internal/logging"
	"github.com/praxis-edu/praxis/internal/models"
	"github.com/praxis-edu/praxis/internal/portfolio"
	"github.com/praxis-edu/praxis/internal/store"
	"github.com/praxis-edu/praxis/internal/stream"
)

// Handler carries the dependencies of every HTTP endpoint.
type Handler struct {
	service *portfolio.Service
	stream  *stream.Manager
	jwt     *auth.JWTManager
	login   *auth.LoginLimiter
	oidc    *auth.OIDCProvider
	cache   *cache.Store
	broker  *broker.Broker
	cfg     *config.Config
}

// NewHandler creates the API handler set.
func NewHandler(
	service *portfolio.Service,
	streamMgr *stream.Manager,
	jwtManager *auth.JWTManager,
	cacheStore *cache.Store,
	b *broker.Broker,
	cfg *config.Config,
) *Handler {
	return &Handler{
		service: service,
		stream:  streamMgr,
		jwt:     jwtManager,
		login:   auth.NewLoginLimiter(cfg.Security.LoginRateLimit, cfg.Security.LoginRateWindow),
		cache:   cacheStore,
		broker:  b,
		cfg:     cfg,
	}
}

// SetOIDCProvider enables the single sign-on endpoints. A nil provider
// leaves them responding 404.
func (h *Handler) SetOIDCProvider(p *auth.OIDCProvider) {
	h.oidc = p
}

// userID resolves the authenticated owner for the request. The auth
// middleware guarantees claims are present on protected routes.
func (h *Handler) userID(r *http.Request) string {
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		return claims.UserID
	}
	return ""
}

// storeError maps datastore failures onto API error responses.
func storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "entity not found", nil)
		return
	}
	respondError(w, http.StatusInternalServerError, "STORAGE_ERROR", "datastore operation failed", err)
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.login.Allow(r) {
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
			"too many login attempts, try again later", nil)
		return
	}

	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !h.checkCredentials(req.Username, req.Password) {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("failed login attempt")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "invalid credentials", nil)
		return
	}

	token, expires, err := h.jwt.GenerateToken(req.Username, req.Username, "admin")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "AUTHENTICATION_ERROR", "token generation failed", err)
		return
	}

	respondData(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expires,
		Username:  req.Username,
		Role:      "admin",
		UserID:    req.Username,
	}, models.Metadata{})
}

// OIDCLogin handles GET /api/v1/auth/oidc/login. It redirects the browser
// to the configured identity provider's authorization endpoint.
func (h *Handler) OIDCLogin(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "single sign-on is not configured", nil)
		return
	}
	if !h.login.Allow(r) {
		respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
			"too many login attempts, try again later", nil)
		return
	}

	url, err := h.oidc.AuthURL()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "AUTHENTICATION_ERROR",
			"failed to start sign-on flow", err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// OIDCCallback handles GET /api/v1/auth/oidc/callback, the provider's
// redirect target. On success it responds with the same session payload as
// the password login.
func (h *Handler) OIDCCallback(w http.ResponseWriter, r *http.Request) {
	if h.oidc == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "single sign-on is not configured", nil)
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"callback is missing code or state", nil)
		return
	}

	res, err := h.oidc.Exchange(r.Context(), code, state)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidState) {
			respondError(w, http.StatusBadRequest, "AUTHENTICATION_ERROR",
				"sign-on state is invalid or expired, restart the login", nil)
			return
		}
		logging.Warn().Err(err).Msg("oidc callback failed")
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"sign-on could not be completed", nil)
		return
	}

	respondData(w, http.StatusOK, res, models.Metadata{})
}

// checkCredentials verifies the configured admin account. A bcrypt hash
// takes precedence over a plaintext password; plaintext is accepted only
// outside production.
func (h *Handler) checkCredentials(username, password string) bool {
	sec := h.cfg.Security
	if username != sec.AdminUsername {
		return false
	}
	if sec.AdminPasswordHash != "" {
		return auth.CheckPassword(sec.AdminPasswordHash, password)
	}
	if sec.AdminPassword != "" && !h.cfg.IsProduction() {
		return password == sec.AdminPassword
	}
	return false
}

// EventsSSE handles GET /api/v1/events, the primary stream transport.
func (h *Handler) EventsSSE(w http.ResponseWriter, r *http.Request) {
	h.stream.ServeSSE(w, r, h.userID(r))
}

// EventsWS handles GET /api/v1/ws, the websocket stream transport.
func (h *Handler) EventsWS(w http.ResponseWriter, r *http.Request) {
	h.stream.ServeWS(w, r, h.userID(r))
}

// Portfolio item endpoints.

type portfolioItemRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Category    string   `json:"category" validate:"max=100"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=50"`
	MediaURL    string   `json:"media_url" validate:"omitempty,url"`
	Visibility  string   `json:"visibility" validate:"omitempty,oneof=private school public"`
}

func (h *Handler) ListPortfolioItems(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListPortfolioItems(r.Context(), h.userID(r), listParams(r))
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, res.Items, listMetadata(res.Cached, res.QueryTime))
}

func (h *Handler) GetPortfolioItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetPortfolioItem(r.Context(), h.userID(r), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, item, models.Metadata{})
}

func (h *Handler) CreatePortfolioItem(w http.ResponseWriter, r *http.Request) {
	var req portfolioItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item := &models.PortfolioItem{
		UserID:      h.userID(r),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		MediaURL:    req.MediaURL,
		Visibility:  req.Visibility,
	}
	if err := h.service.CreatePortfolioItem(r.Context(), item); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusCreated, item, models.Metadata{})
}

func (h *Handler) UpdatePortfolioItem(w http.ResponseWriter, r *http.Request) {
	var req portfolioItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item := &models.PortfolioItem{
		ID:          chi.URLParam(r, "id"),
		UserID:      h.userID(r),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		MediaURL:    req.MediaURL,
		Visibility:  req.Visibility,
	}
	if err := h.service.UpdatePortfolioItem(r.Context(), item); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, item, models.Metadata{})
}

func (h *Handler) DeletePortfolioItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePortfolioItem(r.Context(), h.userID(r), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")}, models.Metadata{})
}

// Skill endpoints.

type skillRequest struct {
	Name     string  `json:"name" validate:"required,max=100"`
	Category string  `json:"category" validate:"max=100"`
	Level    int     `json:"level" validate:"gte=0,lte=100"`
	Progress float64 `json:"progress" validate:"gte=0,lte=1"`
}

func (h *Handler) ListSkills(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListSkills(r.Context(), h.userID(r), listParams(r))
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, res.Items, listMetadata(res.Cached, res.QueryTime))
}

func (h *Handler) UpsertSkill(w http.ResponseWriter, r *http.Request) {
	var req skillRequest
	if !decodeBody(w, r, &req) {
		return
	}

	skill := &models.Skill{
		ID:       chi.URLParam(r, "id"), // empty on POST, set on PUT
		UserID:   h.userID(r),
		Name:     req.Name,
		Category: req.Category,
		Level:    req.Level,
		Progress: req.Progress,
	}
	if err := h.service.UpsertSkill(r.Context(), skill); err != nil {
		storeError(w, err)
		return
	}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	respondData(w, status, skill, models.Metadata{})
}

func (h *Handler) DeleteSkill(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSkill(r.Context(), h.userID(r), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")}, models.Metadata{})
}

// Roadmap endpoints.

type roadmapRequest struct {
	Title       string               `json:"title" validate:"required,max=200"`
	Description string               `json:"description" validate:"max=5000"`
	Steps       []roadmapStepRequest `json:"steps" validate:"max=100,dive"`
}

type roadmapStepRequest struct {
	ID        string `json:"id" validate:"max=64"`
	Title     string `json:"title" validate:"required,max=200"`
	Completed bool   `json:"completed"`
}

func (r roadmapRequest) toModel(id, userID string) *models.Roadmap {
	rm := &models.Roadmap{
		ID:          id,
		UserID:      userID,
		Title:       r.Title,
		Description: r.Description,
		Steps:       make([]models.RoadmapStep, len(r.Steps)),
	}
	now := time.Now().UTC()
	for i, s := range r.Steps {
		rm.Steps[i] = models.RoadmapStep{ID: s.ID, Title: s.Title, Completed: s.Completed}
		if s.Completed {
			rm.Steps[i].CompletedAt = &now
		}
	}
	return rm
}

func (h *Handler) ListRoadmaps(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListRoadmaps(r.Context(), h.userID(r), listParams(r))
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, res.Items, listMetadata(res.Cached, res.QueryTime))
}

func (h *Handler) GetRoadmap(w http.ResponseWriter, r *http.Request) {
	rm, err := h.service.GetRoadmap(r.Context(), h.userID(r), chi.URLParam(r, "id"))
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, rm, models.Metadata{})
}

func (h *Handler) CreateRoadmap(w http.ResponseWriter, r *http.Request) {
	var req roadmapRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rm := req.toModel("", h.userID(r))
	if err := h.service.UpsertRoadmap(r.Context(), rm); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusCreated, rm, models.Metadata{})
}

func (h *Handler) UpdateRoadmap(w http.ResponseWriter, r *http.Request) {
	var req roadmapRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rm := req.toModel(chi.URLParam(r, "id"), h.userID(r))
	if err := h.service.UpsertRoadmap(r.Context(), rm); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, rm, models.Metadata{})
}

func (h *Handler) DeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteRoadmap(r.Context(), h.userID(r), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id")}, models.Metadata{})
}

// Notification endpoints.

type notificationRequest struct {
	Title string `json:"title" validate:"required,max=200"`
	Body  string `json:"body" validate:"max=2000"`
	Kind  string `json:"kind" validate:"max=50"`
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListNotifications(r.Context(), h.userID(r), listParams(r))
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, res.Items, listMetadata(res.Cached, res.QueryTime))
}

func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req notificationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n := &models.Notification{
		UserID: h.userID(r),
		Title:  req.Title,
		Body:   req.Body,
		Kind:   req.Kind,
	}
	if err := h.service.CreateNotification(r.Context(), n); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusCreated, n, models.Metadata{})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MarkNotificationRead(r.Context(), h.userID(r), chi.URLParam(r, "id")); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": chi.URLParam(r, "id"), "read": "true"}, models.Metadata{})
}

// Activity endpoints.

type activityRequest struct {
	Verb   string `json:"verb" validate:"required,max=50"`
	Object string `json:"object" validate:"max=200"`
	Detail string `json:"detail" validate:"max=2000"`
}

func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListActivities(r.Context(), h.userID(r), listParams(r))
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, res.Items, listMetadata(res.Cached, res.QueryTime))
}

func (h *Handler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a := &models.Activity{
		UserID: h.userID(r),
		Verb:   req.Verb,
		Object: req.Object,
		Detail: req.Detail,
	}
	if err := h.service.RecordActivity(r.Context(), a); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusCreated, a, models.Metadata{})
}

// Quiz endpoints.

type quizResultRequest struct {
	QuizID   string  `json:"quiz_id" validate:"required,max=64"`
	Score    float64 `json:"score" validate:"gte=0"`
	MaxScore float64 `json:"max_score" validate:"gte=0"`
	Passed   bool    `json:"passed"`
}

func (h *Handler) ListQuizResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListQuizResults(r.Context(), h.userID(r), listParams(r))
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, res.Items, listMetadata(res.Cached, res.QueryTime))
}

func (h *Handler) RecordQuizResult(w http.ResponseWriter, r *http.Request) {
	var req quizResultRequest
	if !decodeBody(w, r, &req) {
		return
	}
	q := &models.QuizResult{
		UserID:   h.userID(r),
		QuizID:   req.QuizID,
		Score:    req.Score,
		MaxScore: req.MaxScore,
		Passed:   req.Passed,
	}
	if err := h.service.RecordQuizResult(r.Context(), q); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusCreated, q, models.Metadata{})
}

// Achievement endpoints.

type achievementRequest struct {
	Name  string `json:"name" validate:"required,max=100"`
	Badge string `json:"badge" validate:"max=100"`
}

func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ListAchievements(r.Context(), h.userID(r), listParams(r))
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, res.Items, listMetadata(res.Cached, res.QueryTime))
}

func (h *Handler) AwardAchievement(w http.ResponseWriter, r *http.Request) {
	var req achievementRequest
	if !decodeBody(w, r, &req) {
		return
	}
	a := &models.Achievement{
		UserID: h.userID(r),
		Name:   req.Name,
		Badge:  req.Badge,
	}
	if err := h.service.AwardAchievement(r.Context(), a); err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusCreated, a, models.Metadata{})
}

// DeleteMyData handles DELETE /api/v1/me/data: removes every entity and
// cached response owned by the authenticated user.
func (h *Handler) DeleteMyData(w http.ResponseWriter, r *http.Request) {
	removed, err := h.service.DeleteUserData(r.Context(), h.userID(r))
	if err != nil {
		storeError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]int{"removed": removed}, models.Metadata{})
}

// Operational endpoints.

// Health handles GET /health, a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "healthy"}, models.Metadata{})
}

// Live handles GET /live. Liveness only asserts the process is serving.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "alive"}, models.Metadata{})
}

// Ready handles GET /ready. Readiness additionally verifies the datastore
// is reachable, so load balancers stop routing before writes start failing.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "Datastore unavailable", err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "ready"}, models.Metadata{})
}

// CacheStats handles GET /api/v1/admin/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	st := h.cache.GetStats()
	respondData(w, http.StatusOK, map[string]any{
		"hits":       st.Hits,
		"misses":     st.Misses,
		"evictions":  st.Evictions,
		"total_keys": st.TotalKeys,
		"hit_rate":   h.cache.HitRate(),
	}, models.Metadata{})
}

// BrokerStats handles GET /api/v1/admin/broker/stats.
func (h *Handler) BrokerStats(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]any{
		"connections": h.broker.ConnectionCount(),
	}, models.Metadata{})
}

// FlushCache handles POST /api/v1/admin/cache/flush.
func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear()
	logging.Info().Msg("response cache flushed by admin request")
	respondData(w, http.StatusOK, map[string]string{"status": "flushed"}, models.Metadata{})
}
