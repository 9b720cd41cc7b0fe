package api

import (
	"net/http"
	"testing"

	"github.com/chatwire/chatwire/internal/chat"
)

func TestAdmitMessage(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")
	session := f.createSession(t, token, "general", chat.LevelLow)

	rec := f.doJSON(t, http.MethodPost, "/messages", token, admitMessageRequest{
		SessionID: session.ID,
		Content:   "Hello world",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admit = %d: %s", rec.Code, rec.Body.String())
	}

	summary := decode[chat.AdmissionSummary](t, rec)
	if summary.Content != "Hello world" {
		t.Errorf("Content = %q, want unchanged", summary.Content)
	}
	if summary.Metadata.WordCount != 2 || summary.Metadata.CharacterCount != 11 {
		t.Errorf("counts = %d/%d, want 2/11",
			summary.Metadata.WordCount, summary.Metadata.CharacterCount)
	}
	if summary.MessageID == "" || summary.Sender != chat.SenderUser {
		t.Errorf("summary = %+v", summary)
	}
}

func TestAdmitMessageUnknownSession(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")

	rec := f.doJSON(t, http.MethodPost, "/messages", token, admitMessageRequest{
		SessionID: "missing",
		Content:   "Hello",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("admit = %d, want 404", rec.Code)
	}
	if e := decode[Error](t, rec); e.Code != ErrCodeSessionNotFound {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeSessionNotFound)
	}
}

func TestAdmitMessageOffensiveOnHigh(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")
	session := f.createSession(t, token, "strict", chat.LevelHigh)

	rec := f.doJSON(t, http.MethodPost, "/messages", token, admitMessageRequest{
		SessionID: session.ID,
		Content:   "badword",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("admit = %d, want 400", rec.Code)
	}
	if e := decode[Error](t, rec); e.Code != ErrCodeOffensiveContent {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeOffensiveContent)
	}
}

func TestAdmitMessageCensoredOnMedium(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")
	session := f.createSession(t, token, "family", chat.LevelMedium)

	rec := f.doJSON(t, http.MethodPost, "/messages", token, admitMessageRequest{
		SessionID: session.ID,
		Content:   "badword",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admit = %d: %s", rec.Code, rec.Body.String())
	}
	if summary := decode[chat.AdmissionSummary](t, rec); summary.Content != "*******" {
		t.Errorf("Content = %q, want masked", summary.Content)
	}
}

func TestListMessages(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")
	session := f.createSession(t, token, "general", chat.LevelLow)

	for _, content := range []string{"first", "second", "third"} {
		rec := f.doJSON(t, http.MethodPost, "/messages", token, admitMessageRequest{
			SessionID: session.ID,
			Content:   content,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("admit %q = %d", content, rec.Code)
		}
	}

	rec := f.doJSON(t, http.MethodGet, "/messages/"+session.ID+"?size=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list = %d: %s", rec.Code, rec.Body.String())
	}
	page := decode[chat.MessagePage](t, rec)
	if page.Total != 3 || len(page.Items) != 2 {
		t.Errorf("page = total %d, %d items, want 3/2", page.Total, len(page.Items))
	}
}

func TestListMessagesUnknownSession(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")

	rec := f.doJSON(t, http.MethodGet, "/messages/missing", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("list = %d, want 404", rec.Code)
	}
}

func TestGetOrCreateUser(t *testing.T) {
	f := newTestFixture(t)
	token := f.registerAndLogin(t, "alice@example.com")

	rec := f.doJSON(t, http.MethodPost, "/users", token, getOrCreateUserRequest{
		Email:    "bob@example.com",
		FullName: "Bob Example",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("get-or-create = %d: %s", rec.Code, rec.Body.String())
	}
	first := decode[userResponse](t, rec)
	if first.ID == "" || first.Email != "bob@example.com" {
		t.Errorf("user = %+v", first)
	}

	// Same email resolves to the same record.
	rec = f.doJSON(t, http.MethodPost, "/users", token, getOrCreateUserRequest{
		Email:    "bob@example.com",
		FullName: "Different Name",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("second get-or-create = %d", rec.Code)
	}
	if second := decode[userResponse](t, rec); second.ID != first.ID {
		t.Errorf("ID = %q, want %q (stable identity)", second.ID, first.ID)
	}
}
