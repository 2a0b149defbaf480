package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/practicum/internal/authn"
	"github.com/dukerupert/practicum/internal/model"
)

func TestAdminSetStatus(t *testing.T) {
	env := setupEnv(t)
	owner := env.register(t, "Owner", "owner@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	h := NewAdminHandler(env.svc, env.users, env.logger)

	rec := httptest.NewRecorder()
	h.SetStatus(rec, withID(asUser(jsonRequest("PUT", "/api/admin/users/x/status", `{"status":"suspended"}`), owner), bob.ID))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	issued, err := env.svc.Login(context.Background(), "bob@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if v := env.svc.Verify(context.Background(), issued.Token); v.Action != authn.Halt {
		t.Errorf("verdict = %s, want halt", v.Action)
	}
}

func TestAdminSetStatusRejects(t *testing.T) {
	env := setupEnv(t)
	owner := env.register(t, "Owner", "owner@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	h := NewAdminHandler(env.svc, env.users, env.logger)

	tests := []struct {
		name   string
		caller authn.Credentials
		target int64
		body   string
		want   int
	}{
		{"bad status", owner, bob.ID, `{"status":"banned"}`, http.StatusBadRequest},
		{"unknown field", owner, bob.ID, `{"status":"suspended","reason":"x"}`, http.StatusBadRequest},
		{"user caller", bob, owner.ID, `{"status":"suspended"}`, http.StatusForbidden},
		{"self", owner, owner.ID, `{"status":"suspended"}`, http.StatusForbidden},
		{"missing target", owner, 999, `{"status":"suspended"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.SetStatus(rec, withID(asUser(jsonRequest("PUT", "/", tt.body), tt.caller), tt.target))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAdminSetRole(t *testing.T) {
	env := setupEnv(t)
	owner := env.register(t, "Owner", "owner@example.com")
	bob := env.register(t, "Bob", "bob@example.com")
	h := NewAdminHandler(env.svc, env.users, env.logger)

	rec := httptest.NewRecorder()
	h.SetRole(rec, withID(asUser(jsonRequest("PUT", "/", `{"role":"owner"}`), owner), bob.ID))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("owner role status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = httptest.NewRecorder()
	h.SetRole(rec, withID(asUser(jsonRequest("PUT", "/", `{"role":"admin"}`), owner), bob.ID))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	u, _ := env.users.GetByID(context.Background(), bob.ID)
	if u.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", u.Role)
	}
}

func TestAdminListUsers(t *testing.T) {
	env := setupEnv(t)
	owner := env.register(t, "Owner", "owner@example.com")
	env.register(t, "Bob", "bob@example.com")
	h := NewAdminHandler(env.svc, env.users, env.logger)

	rec := httptest.NewRecorder()
	h.ListUsers(rec, asUser(httptest.NewRequest("GET", "/api/admin/users", nil), owner))

	var raw []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("users = %d, want 2", len(raw))
	}
	for _, u := range raw {
		for _, secret := range []string{"password_hash", "PasswordHash", "salt1", "Salt1"} {
			if _, ok := u[secret]; ok {
				t.Errorf("user JSON leaks %s", secret)
			}
		}
	}
}
