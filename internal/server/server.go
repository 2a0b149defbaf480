package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/practicum/internal/authn"
	"github.com/dukerupert/practicum/internal/handler"
	"github.com/dukerupert/practicum/internal/middleware"
	"github.com/dukerupert/practicum/internal/model"
	"github.com/dukerupert/practicum/internal/question"
	"github.com/dukerupert/practicum/internal/recommend"
	"github.com/dukerupert/practicum/internal/store"
	"github.com/dukerupert/practicum/internal/token"
	ws "github.com/dukerupert/practicum/internal/websocket"
)

const (
	loginLimit  = 10
	loginWindow = time.Minute
)

type Options struct {
	Auth authn.Config
	// OriginPatterns lists extra hosts allowed to open the play channel.
	OriginPatterns []string
}

type Server struct {
	db           *sql.DB
	bank         *question.Bank
	hub          *ws.Hub
	selector     *question.Selector
	authSvc      *authn.Service
	authH        *handler.AuthHandler
	playH        *handler.PlayHandler
	setH         *handler.SetHandler
	adminH       *handler.AdminHandler
	recommendH   *handler.RecommendHandler
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	opts         Options
	logger       *slog.Logger
}

func New(db *sql.DB, bank *question.Bank, issuer *token.Issuer, rec recommend.Recommender, opts Options, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	setStore := store.NewSetStore(db)

	authSvc := authn.NewService(userStore, sessionStore, issuer, opts.Auth, logger.With("component", "authn"))
	selector := question.NewSelector(bank)

	return &Server{
		db:           db,
		bank:         bank,
		hub:          ws.NewHub(logger.With("component", "play")),
		selector:     selector,
		authSvc:      authSvc,
		authH:        handler.NewAuthHandler(authSvc, logger.With("component", "auth")),
		playH:        handler.NewPlayHandler(selector),
		setH:         handler.NewSetHandler(setStore, logger.With("component", "sets")),
		adminH:       handler.NewAdminHandler(authSvc, userStore, logger.With("component", "admin")),
		recommendH:   handler.NewRecommendHandler(rec, selector, logger.With("component", "recommend")),
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		opts:         opts,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Shutdown tells connected players the server is going away.
func (s *Server) Shutdown() {
	s.hub.Notify("server shutting down")
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /register", s.rateLimitedHandler(s.authH.Register))
	// Logout stays reachable for suspended sessions.
	outerMux.HandleFunc("POST /logout", s.authH.Logout)
	outerMux.HandleFunc("GET /login", s.noticeHandler)
	outerMux.HandleFunc("GET /register", s.noticeHandler)
	outerMux.HandleFunc("GET /suspended", s.suspendedHandler)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	outerMux.Handle("/", middleware.RequireSession(s.authSvc)(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /dashboard", s.authH.Me)

	// Account
	mux.HandleFunc("GET /api/me", s.authH.Me)
	mux.HandleFunc("POST /api/account/password", s.authH.ChangePassword)
	mux.HandleFunc("DELETE /api/account", s.authH.DeleteAccount)

	// Play
	mux.HandleFunc("GET /api/play/next", s.playH.Next)
	mux.HandleFunc("GET /api/questions/{id}", s.playH.Question)
	mux.HandleFunc("GET /ws/play", ws.HandlePlay(s.hub, s.selector, s.authSvc, s.opts.OriginPatterns, s.logger.With("component", "play")))

	// Question sets
	mux.HandleFunc("GET /api/sets", s.setH.List)
	mux.HandleFunc("POST /api/sets", s.setH.Create)
	mux.HandleFunc("GET /api/sets/{id}", s.setH.Get)
	mux.HandleFunc("PUT /api/sets/{id}", s.setH.Update)
	mux.HandleFunc("DELETE /api/sets/{id}", s.setH.Delete)

	// Admin
	staff := middleware.RequireRole(model.RoleOwner, model.RoleAdmin)
	owner := middleware.RequireRole(model.RoleOwner)
	mux.Handle("GET /api/admin/users", staff(http.HandlerFunc(s.adminH.ListUsers)))
	mux.Handle("PUT /api/admin/users/{id}/status", staff(http.HandlerFunc(s.adminH.SetStatus)))
	mux.Handle("PUT /api/admin/users/{id}/role", owner(http.HandlerFunc(s.adminH.SetRole)))

	mux.HandleFunc("POST /api/recommend", s.recommendH.Handle)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health ping", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"questions": s.bank.Len(),
		"players":   s.hub.PlayerCount(),
	})
}

// noticeHandler answers the redirect targets with the message or error
// they were sent with. Rendering pages for them is left to the frontend.
func (s *Server) noticeHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	body := map[string]string{"page": r.URL.Path[1:]}
	if m := q.Get("message"); m != "" {
		body["message"] = m
	}
	if e := q.Get("error"); e != "" {
		body["error"] = e
	}
	writeJSON(w, http.StatusOK, body)
}

// suspendedHandler is the Halt redirect target. It verifies the carrier
// itself so a suspended user still sees who they are signed in as.
func (s *Server) suspendedHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"page": "suspended"}
	if verdict := s.authSvc.Verify(r.Context(), middleware.Carrier(r)); verdict.Action == authn.Halt {
		body["user"] = verdict.Credentials
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return r.URL.Path + "|" + middleware.RealIP(r)
	}
	return middleware.RateLimit(s.rateLimiter, keyFunc, loginLimit, loginWindow)(h).ServeHTTP
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
