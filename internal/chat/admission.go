package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chatwire/chatwire/internal/infrastructure/logging"
)

// AdmitRequest is one message seeking admission to a session.
type AdmitRequest struct {
	SessionID  string     `json:"session_id"`
	Content    string     `json:"content"`
	SenderType SenderType `json:"sender_type"`
	SenderID   string     `json:"sender_id,omitempty"`
}

// AdmissionMetadata is the derived metadata block of an admission summary.
type AdmissionMetadata struct {
	WordCount      int       `json:"word_count"`
	CharacterCount int       `json:"character_count"`
	ProcessedAt    time.Time `json:"processed_at"`
}

// AdmissionSummary describes a successfully admitted message.
type AdmissionSummary struct {
	MessageID string            `json:"message_id"`
	SessionID string            `json:"session_id"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Sender    SenderType        `json:"sender"`
	Metadata  AdmissionMetadata `json:"metadata"`
}

// Relay receives every admitted message for delivery to external
// integrations. Implementations must not block the admission path.
type Relay interface {
	RelayMessage(msg Message)
}

// Recorder receives admission telemetry points. Implementations must
// not block the admission path.
type Recorder interface {
	RecordAdmission(sessionID string, level CensorshipLevel, rejected bool)
}

// PipelineDeps carries the collaborators a Pipeline needs.
// Relay and Recorder are optional.
type PipelineDeps struct {
	Registry    *Registry
	Policy      *Policy
	Messages    MessageStore
	Broadcaster *Broadcaster
	Relay       Relay
	Recorder    Recorder
	Logger      *logging.Logger
}

// Pipeline orchestrates message admission: resolve the session, apply
// the censorship policy, persist, then schedule a fire-and-forget
// broadcast. The caller gets its summary as soon as persistence
// completes; delivery happens behind its back.
type Pipeline struct {
	registry    *Registry
	policy      *Policy
	messages    MessageStore
	broadcaster *Broadcaster
	relay       Relay
	recorder    Recorder
	logger      *logging.Logger
}

// NewPipeline validates dependencies and creates a Pipeline.
func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	if deps.Registry == nil {
		return nil, fmt.Errorf("pipeline requires a registry")
	}
	if deps.Policy == nil {
		return nil, fmt.Errorf("pipeline requires a policy")
	}
	if deps.Messages == nil {
		return nil, fmt.Errorf("pipeline requires a message store")
	}
	if deps.Broadcaster == nil {
		return nil, fmt.Errorf("pipeline requires a broadcaster")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("pipeline requires a logger")
	}

	return &Pipeline{
		registry:    deps.Registry,
		policy:      deps.Policy,
		messages:    deps.Messages,
		broadcaster: deps.Broadcaster,
		relay:       deps.Relay,
		recorder:    deps.Recorder,
		logger:      deps.Logger.With("component", "admission"),
	}, nil
}

// Admit runs the admission sequence for one message.
//
// Session existence resolves against the in-memory registry, not
// storage: a session deleted out-of-band but still registered is
// accepted. Rejected messages are never persisted and never broadcast.
// A session with zero live connections is a valid target; the broadcast
// is simply a no-op.
func (p *Pipeline) Admit(ctx context.Context, req AdmitRequest) (*AdmissionSummary, error) {
	if err := validateAdmitRequest(req); err != nil {
		return nil, err
	}

	session, ok := p.registry.LookupMetadata(req.SessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	content, err := p.policy.Apply(req.Content, session.CensorshipLevel)
	if err != nil {
		p.record(session, true)
		return nil, err
	}

	msg := Message{
		SessionID:  req.SessionID,
		Content:    content,
		SenderType: req.SenderType,
	}
	if req.SenderType == SenderUser {
		msg.SenderID = req.SenderID
	}

	if err := p.messages.Create(ctx, &msg); err != nil {
		return nil, fmt.Errorf("persisting message: %w", err)
	}

	// Persistence succeeded; everything after this point is
	// fire-and-forget and must not fail the admission.
	p.broadcaster.Broadcast(req.SessionID, msg)
	if p.relay != nil {
		p.relay.RelayMessage(msg)
	}
	p.record(session, false)

	p.logger.Debug("message admitted",
		"session_id", req.SessionID,
		"message_id", msg.ID,
		"level", string(session.CensorshipLevel))

	return &AdmissionSummary{
		MessageID: msg.ID,
		SessionID: msg.SessionID,
		Content:   msg.Content,
		Timestamp: msg.CreatedAt,
		Sender:    msg.SenderType,
		Metadata: AdmissionMetadata{
			WordCount:      len(strings.Fields(msg.Content)),
			CharacterCount: len([]rune(msg.Content)),
			ProcessedAt:    time.Now().UTC(),
		},
	}, nil
}

func (p *Pipeline) record(session Session, rejected bool) {
	if p.recorder != nil {
		p.recorder.RecordAdmission(session.ID, session.CensorshipLevel, rejected)
	}
}

func validateAdmitRequest(req AdmitRequest) error {
	if req.Content == "" {
		return ErrEmptyContent
	}
	if len([]rune(req.Content)) > MaxContentLength {
		return ErrContentTooLong
	}
	if !req.SenderType.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSender, req.SenderType)
	}
	return nil
}
