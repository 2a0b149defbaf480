package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/practicum/internal/auth"
	"github.com/dukerupert/practicum/internal/authn"
)

func withUser(id int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithAuth(r.Context(), auth.AuthContext{Credentials: authn.Credentials{ID: id}})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TestHandlePlayRoundTrip(t *testing.T) {
	hub := NewHub(slog.Default())
	srv := httptest.NewServer(withUser(5, HandlePlay(hub, testPicker(), nil, nil, slog.Default())))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	if err := conn.Write(ctx, ws.MessageText, []byte(`{"kind":"fetch","id":"phys.A"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Kind != KindQuestion || resp.Question == nil || resp.Question.ID != "phys.A" {
		t.Errorf("got %+v, want question phys.A", resp)
	}
	if got := hub.PlayerCount(); got != 1 {
		t.Errorf("PlayerCount = %d, want 1", got)
	}

	conn.Close(ws.StatusNormalClosure, "")
}

func TestHandlePlayRequiresUser(t *testing.T) {
	hub := NewHub(slog.Default())
	rec := httptest.NewRecorder()
	HandlePlay(hub, testPicker(), nil, nil, slog.Default()).ServeHTTP(rec, httptest.NewRequest("GET", "/ws/play", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

type switchVerifier struct {
	action atomic.Int32
}

func (v *switchVerifier) Verify(context.Context, string) authn.Verdict {
	return authn.Verdict{Action: authn.Action(v.action.Load())}
}

func TestHandlePlayClosesEndedSession(t *testing.T) {
	hub := NewHub(slog.Default())
	v := &switchVerifier{}
	v.action.Store(int32(authn.Continue))
	srv := httptest.NewServer(withUser(5, HandlePlay(hub, testPicker(), v, nil, slog.Default())))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := ws.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	frame := []byte(`{"kind":"fetch","id":"phys.A"}`)
	if err := conn.Write(ctx, ws.MessageText, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := conn.Read(ctx); err != nil {
		t.Fatalf("first read: %v", err)
	}

	v.action.Store(int32(authn.Halt))
	if err := conn.Write(ctx, ws.MessageText, frame); err != nil {
		t.Fatalf("write after suspend: %v", err)
	}
	_, data, err := conn.Read(ctx)
	if err == nil {
		t.Fatalf("read after suspend = %s, want close", data)
	}
	if got := ws.CloseStatus(err); got != ws.StatusPolicyViolation {
		t.Errorf("close status = %v, want %v (err %v)", got, ws.StatusPolicyViolation, err)
	}
}
