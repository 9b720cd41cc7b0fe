package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/chatwire/chatwire/internal/chat"
)

func TestCreateSessionRegistersImmediately(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")

	session := f.createSession(t, token, "general", chat.LevelLow)
	if session.ID == "" || session.Name != "general" {
		t.Errorf("session = %+v", session)
	}
	if session.CreatedBy == "" {
		t.Error("CreatedBy not set from the authenticated user")
	}

	// New sessions accept messages without a restart.
	if _, ok := f.registry.LookupMetadata(session.ID); !ok {
		t.Error("session not registered after create")
	}
}

func TestCreateSessionDuplicateName(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")
	f.createSession(t, token, "general", chat.LevelLow)

	rec := f.doJSON(t, http.MethodPost, "/sessions", token, createSessionRequest{
		Name:            "general",
		CensorshipLevel: "high",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate create = %d, want 422", rec.Code)
	}
	if e := decode[Error](t, rec); e.Code != ErrCodeSessionNameTaken {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeSessionNameTaken)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")

	rec := f.doJSON(t, http.MethodPost, "/sessions", token, createSessionRequest{
		Name:            "",
		CensorshipLevel: "low",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty name = %d, want 400", rec.Code)
	}

	rec = f.doJSON(t, http.MethodPost, "/sessions", token, createSessionRequest{
		Name:            "ok",
		CensorshipLevel: "extreme",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad level = %d, want 400", rec.Code)
	}
}

func TestListSessionsPagination(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")

	for i := range 5 {
		f.createSession(t, token, fmt.Sprintf("room-%02d", i), chat.LevelLow)
	}

	rec := f.doJSON(t, http.MethodGet, "/sessions?page=2&size=2&sort_by=name", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d: %s", rec.Code, rec.Body.String())
	}
	page := decode[chat.SessionPage](t, rec)
	if page.Total != 5 {
		t.Errorf("Total = %d, want 5", page.Total)
	}
	if len(page.Items) != 2 || page.Items[0].Name != "room-02" {
		t.Errorf("Items = %+v, want room-02 first", page.Items)
	}
}

func TestListSessionsBadQuery(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")

	rec := f.doJSON(t, http.MethodGet, "/sessions?page=abc", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad page = %d, want 400", rec.Code)
	}
	if e := decode[Error](t, rec); e.Code != ErrCodeInvalidFormat {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeInvalidFormat)
	}

	rec = f.doJSON(t, http.MethodGet, "/sessions?order=SIDEWAYS", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad order = %d, want 400", rec.Code)
	}
}
