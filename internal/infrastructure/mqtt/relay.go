package mqtt

import (
	"encoding/json"

	"github.com/chatwire/chatwire/internal/chat"
	"github.com/chatwire/chatwire/internal/infrastructure/logging"
)

// Publisher is the subset of Client the relay needs, split out so tests
// can substitute a fake without a running broker.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// MessageRelay mirrors admitted chat messages to per-session MQTT
// topics. Delivery is best effort: a failed publish is logged and
// dropped, never surfaced to the sender.
type MessageRelay struct {
	publisher Publisher
	qos       byte
	logger    *logging.Logger
}

// NewMessageRelay returns a relay publishing at the given QoS level.
func NewMessageRelay(publisher Publisher, qos byte, logger *logging.Logger) *MessageRelay {
	return &MessageRelay{
		publisher: publisher,
		qos:       qos,
		logger:    logger,
	}
}

// RelayMessage publishes an admitted message to its session topic.
func (r *MessageRelay) RelayMessage(msg chat.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("relay marshal failed", "message_id", msg.ID, "error", err)
		return
	}

	topic := Topics{}.SessionMessages(msg.SessionID)
	if err := r.publisher.Publish(topic, payload, r.qos, false); err != nil {
		r.logger.Warn("relay publish failed",
			"topic", topic,
			"message_id", msg.ID,
			"error", err,
		)
	}
}
