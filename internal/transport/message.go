package transport

import (
	"encoding/json"
	"fmt"
)

// ControlMessage is a topic notification carried as a text frame next to
// the binary chunk stream
type ControlMessage struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SerializeControl converts a topic and payload to bytes for transmission
func SerializeControl(topic string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s payload: %w", topic, err)
	}
	data, err := json.Marshal(ControlMessage{Topic: topic, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize control message: %w", err)
	}
	return data, nil
}

// DeserializeControl converts bytes back to a ControlMessage
func DeserializeControl(data []byte) (ControlMessage, error) {
	var msg ControlMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ControlMessage{}, fmt.Errorf("failed to deserialize control message: %w", err)
	}
	if msg.Topic == "" {
		return ControlMessage{}, fmt.Errorf("control message has no topic")
	}
	return msg, nil
}

// Decode unmarshals the payload into v
func (m ControlMessage) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Topic)
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", m.Topic, err)
	}
	return nil
}
