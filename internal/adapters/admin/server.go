package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jimsug/mtg-signal-bot/internal/core"
	"go.uber.org/zap"
)

const (
	sessionCookie = "admin_session"
	pageSize      = 50
)

// Server exposes the operator JSON API: suspicious users, the usage
// log, the ban list and cache maintenance. Everything under /api
// requires a session obtained through the login-code flow.
type Server struct {
	cache     core.CacheRepository
	usage     core.UsageRepository
	bans      core.BanRepository
	auth      *Authenticator
	threshold int
	window    time.Duration
	logger    *zap.Logger

	httpServer *http.Server
}

// NewServer creates a new admin API server
func NewServer(
	cache core.CacheRepository,
	usage core.UsageRepository,
	bans core.BanRepository,
	auth *Authenticator,
	listenAddr string,
	threshold int,
	window time.Duration,
	logger *zap.Logger,
) *Server {
	s := &Server{
		cache:     cache,
		usage:     usage,
		bans:      bans,
		auth:      auth,
		threshold: threshold,
		window:    window,
		logger:    logger,
	}
	s.httpServer = &http.Server{
		Addr:         listenAddr,
		Handler:      s.router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Post("/login", s.handleLogin)
	r.Post("/verify", s.handleVerify)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/api/suspicious", s.handleSuspicious)
		r.Get("/api/usage", s.handleUsage)
		r.Get("/api/stats/today", s.handleStatsToday)

		r.Get("/api/bans", s.handleListBans)
		r.Post("/api/bans", s.handleBan)
		r.Delete("/api/bans/{userID}", s.handleUnban)

		r.Get("/api/cache/search", s.handleCacheSearch)
		r.Get("/api/cache/stats", s.handleCacheStats)
		r.Delete("/api/cache/entry", s.handleCachePurgeOne)
		r.Delete("/api/cache", s.handleCachePurgeAll)
	})

	return r
}

// Start begins serving the admin API
func (s *Server) Start() error {
	s.logger.Info("Admin API starting", zap.String("address", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Admin API server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the admin API down
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// requireAuth rejects requests without a valid session cookie
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || !s.auth.ValidateSessionToken(cookie.Value) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.auth.RequestCode(r.Context(), req.Phone)
	// Same response regardless of whether the phone was correct
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "A code has been sent if that number is registered.",
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !s.auth.VerifyCode(req.Code) {
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}

	token, err := s.auth.CreateSessionToken()
	if err != nil {
		s.logger.Error("Failed to create session token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "authenticated"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type suspiciousUserResponse struct {
	UserID      string `json:"user_uuid"`
	UserContact string `json:"user_phone,omitempty"`
	LookupCount int    `json:"lookup_count"`
}

func (s *Server) handleSuspicious(w http.ResponseWriter, r *http.Request) {
	users, err := s.usage.SuspiciousUsers(r.Context(), s.threshold, s.window)
	if err != nil {
		s.storageError(w, err)
		return
	}

	out := make([]suspiciousUserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, suspiciousUserResponse{
			UserID:      u.UserID,
			UserContact: u.UserContact,
			LookupCount: u.LookupCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type usageEventResponse struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_uuid"`
	UserContact string `json:"user_phone,omitempty"`
	Query       string `json:"query"`
	Timestamp   int64  `json:"timestamp"`
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	userID := r.URL.Query().Get("user_uuid")

	events, total, err := s.usage.Page(r.Context(), page, pageSize, userID)
	if err != nil {
		s.storageError(w, err)
		return
	}

	rows := make([]usageEventResponse, 0, len(events))
	for _, e := range events {
		rows = append(rows, usageEventResponse{
			ID:          e.ID,
			UserID:      e.UserID,
			UserContact: e.UserContact,
			Query:       e.Query,
			Timestamp:   e.Timestamp.Unix(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rows":  rows,
		"page":  page,
		"total": total,
	})
}

func (s *Server) handleStatsToday(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	count, err := s.usage.CountSince(r.Context(), midnight)
	if err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"lookups_today": count})
}

type banResponse struct {
	UserID   string `json:"user_uuid"`
	BannedAt int64  `json:"banned_at"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Server) handleListBans(w http.ResponseWriter, r *http.Request) {
	records, err := s.bans.List(r.Context())
	if err != nil {
		s.storageError(w, err)
		return
	}

	out := make([]banResponse, 0, len(records))
	for _, b := range records {
		out = append(out, banResponse{
			UserID:   b.UserID,
			BannedAt: b.BannedAt.Unix(),
			Reason:   b.Reason,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_uuid"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_uuid is required")
		return
	}

	if err := s.bans.Ban(r.Context(), req.UserID, req.Reason); err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "banned"})
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.bans.Unban(r.Context(), userID); err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "unbanned"})
}

type cacheKeyResponse struct {
	Key      string `json:"key"`
	CachedAt int64  `json:"cached_at"`
}

func (s *Server) handleCacheSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.cache.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.storageError(w, err)
		return
	}

	out := make([]cacheKeyResponse, 0, len(results))
	for _, e := range results {
		out = append(out, cacheKeyResponse{Key: e.Key, CachedAt: e.CachedAt.Unix()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.cache.Stats(r.Context())
	if err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total_entries": stats.TotalEntries})
}

func (s *Server) handleCachePurgeOne(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	if err := s.cache.Delete(r.Context(), key); err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "purged"})
}

func (s *Server) handleCachePurgeAll(w http.ResponseWriter, r *http.Request) {
	removed, err := s.cache.DeleteAll(r.Context())
	if err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (s *Server) storageError(w http.ResponseWriter, err error) {
	s.logger.Error("Admin API storage error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "storage error")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
