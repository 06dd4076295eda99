package models

import (
	"encoding/json"
	"time"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	MessageTypePacket    MessageType = "packet"
	MessageTypeArchive   MessageType = "archive"
	MessageTypeHeartbeat MessageType = "heartbeat"
	MessageTypeAck       MessageType = "ack"
	MessageTypeError     MessageType = "error"
)

// Message is the envelope for all WebSocket communications
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the given type and payload
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadJSON,
		Timestamp: time.Now(),
	}, nil
}

// PacketMessage is the payload for MessageTypePacket and MessageTypeArchive.
// Archive records use the same shape as loop packets; the message type
// decides how the receiver routes them.
type PacketMessage struct {
	TS     int64           `json:"dateTime"`
	Units  UnitSystem      `json:"usUnits"`
	Fields map[Obs]float64 `json:"fields"`
}

// Sample converts the payload into a Sample.
func (p PacketMessage) Sample() Sample {
	s := NewSample(p.TS, p.Units)
	for k, v := range p.Fields {
		s.Fields[k] = v
	}
	return s
}

// PacketPayload builds the wire payload for a sample.
func PacketPayload(s Sample) PacketMessage {
	return PacketMessage{TS: s.TS, Units: s.Units, Fields: s.Fields}
}

// HeartbeatMessage is the payload for MessageTypeHeartbeat
type HeartbeatMessage struct {
	StationID  string `json:"station_id"`
	Uptime     int64  `json:"uptime"`
	BufferSize int    `json:"buffer_size"`
}

// AckMessage is the payload for MessageTypeAck
type AckMessage struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"`
}

// ErrorMessage is the payload for MessageTypeError
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UnmarshalPayload unmarshals the message payload into the provided struct
func (m *Message) UnmarshalPayload(v interface{}) error {
	err := json.Unmarshal(m.Payload, v)
	if err != nil {
		return err
	}
	return nil
}
