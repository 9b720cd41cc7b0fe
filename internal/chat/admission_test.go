package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// memoryStore is an in-memory MessageStore recording persisted messages.
type memoryStore struct {
	messages []Message
	fail     bool
}

func (s *memoryStore) Create(_ context.Context, msg *Message) error {
	if s.fail {
		return errors.New("disk full")
	}
	if msg.ID == "" {
		msg.ID = "m-1"
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memoryStore) List(_ context.Context, _ string, _ ListParams) (*MessagePage, error) {
	return &MessagePage{Total: len(s.messages), Items: s.messages}, nil
}

type admissionFixture struct {
	registry    *Registry
	store       *memoryStore
	broadcaster *Broadcaster
	pipeline    *Pipeline
}

func newAdmissionFixture(t *testing.T) *admissionFixture {
	t.Helper()

	registry := NewRegistry()
	store := &memoryStore{}
	broadcaster := NewBroadcaster(registry, testLogger(), 16)
	t.Cleanup(broadcaster.Close)

	pipeline, err := NewPipeline(PipelineDeps{
		Registry:    registry,
		Policy:      NewPolicy(fakeMatcher{}),
		Messages:    store,
		Broadcaster: broadcaster,
		Logger:      testLogger(),
	})
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}

	return &admissionFixture{
		registry:    registry,
		store:       store,
		broadcaster: broadcaster,
		pipeline:    pipeline,
	}
}

func TestAdmitHelloWorld(t *testing.T) {
	f := newAdmissionFixture(t)
	f.registry.RegisterSession(testSession("s1", "general", LevelLow))

	summary, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID:  "s1",
		Content:    "Hello world",
		SenderType: SenderUser,
		SenderID:   "u-1",
	})
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	if summary.Content != "Hello world" {
		t.Errorf("Content = %q, want unchanged", summary.Content)
	}
	if summary.Metadata.WordCount != 2 {
		t.Errorf("WordCount = %d, want 2", summary.Metadata.WordCount)
	}
	if summary.Metadata.CharacterCount != 11 {
		t.Errorf("CharacterCount = %d, want 11", summary.Metadata.CharacterCount)
	}
	if summary.Sender != SenderUser {
		t.Errorf("Sender = %q, want user", summary.Sender)
	}
	if summary.MessageID == "" || summary.Metadata.ProcessedAt.IsZero() {
		t.Error("summary missing message id or processed-at timestamp")
	}
	if len(f.store.messages) != 1 {
		t.Fatalf("persisted %d messages, want 1", len(f.store.messages))
	}
	if f.store.messages[0].SenderID != "u-1" {
		t.Errorf("persisted SenderID = %q, want u-1", f.store.messages[0].SenderID)
	}
}

func TestAdmitCleanContentOnHighSession(t *testing.T) {
	f := newAdmissionFixture(t)
	f.registry.RegisterSession(testSession("s1", "strict", LevelHigh))

	summary, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID:  "s1",
		Content:    "Hello world",
		SenderType: SenderUser,
		SenderID:   "u-1",
	})
	if err != nil {
		t.Fatalf("Admit() on high session error = %v", err)
	}
	if summary.Content != "Hello world" || summary.Metadata.WordCount != 2 {
		t.Errorf("summary = %+v, want identical to low-level admission", summary)
	}
}

func TestAdmitUnknownSession(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID:  "missing",
		Content:    "Hello",
		SenderType: SenderUser,
		SenderID:   "u-1",
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Admit() error = %v, want ErrSessionNotFound", err)
	}
	if len(f.store.messages) != 0 {
		t.Error("message persisted despite unknown session")
	}
}

func TestAdmitMediumPersistsCensoredContent(t *testing.T) {
	f := newAdmissionFixture(t)
	f.registry.RegisterSession(testSession("s1", "family", LevelMedium))

	summary, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID:  "s1",
		Content:    "badword",
		SenderType: SenderUser,
		SenderID:   "u-1",
	})
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if summary.Content != "*******" {
		t.Errorf("Content = %q, want %q", summary.Content, "*******")
	}
	if f.store.messages[0].Content != "*******" {
		t.Errorf("persisted content = %q, want masked", f.store.messages[0].Content)
	}
}

func TestAdmitHighRejectsProfanity(t *testing.T) {
	f := newAdmissionFixture(t)
	f.registry.RegisterSession(testSession("s1", "strict", LevelHigh))

	conn := &testConn{}
	if err := f.registry.AttachConnection("s1", conn); err != nil {
		t.Fatalf("AttachConnection() error = %v", err)
	}

	_, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID:  "s1",
		Content:    "badword",
		SenderType: SenderUser,
		SenderID:   "u-1",
	})
	if !errors.Is(err, ErrOffensiveContent) {
		t.Errorf("Admit() error = %v, want ErrOffensiveContent", err)
	}
	if len(f.store.messages) != 0 {
		t.Error("rejected message was persisted")
	}

	f.broadcaster.Close()
	if len(conn.received()) != 0 {
		t.Error("rejected message was broadcast")
	}
}

func TestAdmitStorageFailureSkipsBroadcast(t *testing.T) {
	f := newAdmissionFixture(t)
	f.registry.RegisterSession(testSession("s1", "general", LevelLow))
	f.store.fail = true

	conn := &testConn{}
	if err := f.registry.AttachConnection("s1", conn); err != nil {
		t.Fatalf("AttachConnection() error = %v", err)
	}

	_, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID:  "s1",
		Content:    "Hello",
		SenderType: SenderUser,
		SenderID:   "u-1",
	})
	if err == nil {
		t.Fatal("Admit() with failing store: expected error, got nil")
	}

	f.broadcaster.Close()
	if len(conn.received()) != 0 {
		t.Error("unpersisted message was broadcast")
	}
}

func TestAdmitBroadcastsToLiveConnections(t *testing.T) {
	f := newAdmissionFixture(t)
	f.registry.RegisterSession(testSession("s1", "general", LevelLow))

	conn := &testConn{}
	if err := f.registry.AttachConnection("s1", conn); err != nil {
		t.Fatalf("AttachConnection() error = %v", err)
	}

	if _, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID:  "s1",
		Content:    "Hello world",
		SenderType: SenderUser,
		SenderID:   "u-1",
	}); err != nil {
		t.Fatalf("Admit() error = %v", err)
	}

	f.broadcaster.Close()
	payloads := conn.received()
	if len(payloads) != 1 {
		t.Fatalf("received %d payloads, want 1", len(payloads))
	}
	if !strings.Contains(string(payloads[0]), "Hello world") {
		t.Errorf("payload = %s, want content included", payloads[0])
	}
}

func TestAdmitValidation(t *testing.T) {
	f := newAdmissionFixture(t)
	f.registry.RegisterSession(testSession("s1", "general", LevelLow))

	if _, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID: "s1", Content: "", SenderType: SenderUser, SenderID: "u-1",
	}); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Admit(empty) error = %v, want ErrEmptyContent", err)
	}

	long := strings.Repeat("x", MaxContentLength+1)
	if _, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID: "s1", Content: long, SenderType: SenderUser, SenderID: "u-1",
	}); !errors.Is(err, ErrContentTooLong) {
		t.Errorf("Admit(too long) error = %v, want ErrContentTooLong", err)
	}

	if _, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID: "s1", Content: "hi", SenderType: "robot",
	}); !errors.Is(err, ErrInvalidSender) {
		t.Errorf("Admit(bad sender) error = %v, want ErrInvalidSender", err)
	}
}

func TestAdmitSystemSenderDropsSenderID(t *testing.T) {
	f := newAdmissionFixture(t)
	f.registry.RegisterSession(testSession("s1", "general", LevelLow))

	_, err := f.pipeline.Admit(t.Context(), AdmitRequest{
		SessionID:  "s1",
		Content:    "maintenance at midnight",
		SenderType: SenderSystem,
		SenderID:   "should-be-ignored",
	})
	if err != nil {
		t.Fatalf("Admit() error = %v", err)
	}
	if f.store.messages[0].SenderID != "" {
		t.Errorf("system message persisted SenderID = %q, want empty", f.store.messages[0].SenderID)
	}
}
