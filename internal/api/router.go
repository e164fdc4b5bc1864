// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/praxis-edu/praxis/internal/auth"
)

// NewRouter assembles the full route tree. All /api/v1 routes except login
// require a valid session token; admin routes additionally require the
// admin role.
func NewRouter(h *Handler, mw MiddlewareConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(SecurityHeaders)
	r.Use(mw.CORS())
	r.Use(Metrics)

	// Liveness and metrics sit outside the rate limiter so probes and
	// scrapes never compete with client traffic.
	r.Get("/health", h.Health)
	r.Get("/live", h.Live)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())

		r.Get("/health", h.Health)
		r.Post("/auth/login", h.Login)
		r.Get("/auth/oidc/login", h.OIDCLogin)
		r.Get("/auth/oidc/callback", h.OIDCCallback)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(h.jwt))

			// Live event stream.
			r.Get("/events", h.EventsSSE)
			r.Get("/ws", h.EventsWS)

			r.Route("/portfolio", func(r chi.Router) {
				r.Get("/", h.ListPortfolioItems)
				r.Post("/", h.CreatePortfolioItem)
				r.Get("/{id}", h.GetPortfolioItem)
				r.Put("/{id}", h.UpdatePortfolioItem)
				r.Delete("/{id}", h.DeletePortfolioItem)
			})

			r.Route("/skills", func(r chi.Router) {
				r.Get("/", h.ListSkills)
				r.Post("/", h.UpsertSkill)
				r.Put("/{id}", h.UpsertSkill)
				r.Delete("/{id}", h.DeleteSkill)
			})

			r.Route("/roadmaps", func(r chi.Router) {
				r.Get("/", h.ListRoadmaps)
				r.Post("/", h.CreateRoadmap)
				r.Get("/{id}", h.GetRoadmap)
				r.Put("/{id}", h.UpdateRoadmap)
				r.Delete("/{id}", h.DeleteRoadmap)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.ListNotifications)
				r.Post("/", h.CreateNotification)
				r.Post("/{id}/read", h.MarkNotificationRead)
			})

			r.Route("/activities", func(r chi.Router) {
				r.Get("/", h.ListActivities)
				r.Post("/", h.RecordActivity)
			})

			r.Route("/quizzes", func(r chi.Router) {
				r.Get("/", h.ListQuizResults)
				r.Post("/", h.RecordQuizResult)
			})

			r.Route("/achievements", func(r chi.Router) {
				r.Get("/", h.ListAchievements)
				r.Post("/", h.AwardAchievement)
			})

			r.Delete("/me/data", h.DeleteMyData)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/cache/stats", h.CacheStats)
				r.Post("/cache/flush", h.FlushCache)
				r.Get("/broker/stats", h.BrokerStats)
			})
		})
	})

	return r
}
