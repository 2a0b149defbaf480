package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/practicum/internal/auth"
	"github.com/dukerupert/practicum/internal/authn"
	"github.com/dukerupert/practicum/internal/database"
	"github.com/dukerupert/practicum/internal/store"
	"github.com/dukerupert/practicum/internal/token"
)

type testEnv struct {
	svc      *authn.Service
	users    *store.UserStore
	sessions *store.SessionStore
	sets     *store.SetStore
	logger   *slog.Logger
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	us := store.NewUserStore(db)
	ss := store.NewSessionStore(db)
	issuer := token.NewIssuer([]byte("test-secret"), "practicum", 24*time.Hour)
	return &testEnv{
		svc:      authn.NewService(us, ss, issuer, authn.Config{}, logger),
		users:    us,
		sessions: ss,
		sets:     store.NewSetStore(db),
		logger:   logger,
	}
}

// register creates an account and returns the caller identity for it.
func (e *testEnv) register(t *testing.T, name, email string) authn.Credentials {
	t.Helper()
	u, err := e.svc.Register(context.Background(), name, email, "pw")
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return authn.CredentialsOf(u)
}

func asUser(r *http.Request, c authn.Credentials) *http.Request {
	return r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{Credentials: c}))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(target, body string) *http.Request {
	req := httptest.NewRequest("POST", target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
