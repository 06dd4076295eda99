package models

import (
	"encoding/json"
	"testing"
)

func TestNewMessage(t *testing.T) {
	s := NewSample(1700000000, UnitMetricWX)
	s.Set(OutTemp, 12.3)

	msg, err := NewMessage(MessageTypePacket, PacketPayload(s))
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	if msg.Type != MessageTypePacket {
		t.Errorf("Type = %v, want %v", msg.Type, MessageTypePacket)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should not be zero")
	}
	if len(msg.Payload) == 0 {
		t.Error("Payload should not be empty")
	}
}

func TestMessage_UnmarshalPayload(t *testing.T) {
	s := NewSample(1700000000, UnitUS)
	s.Set(OutTemp, 68.0)
	s.Set(Barometer, 29.92)

	msg, err := NewMessage(MessageTypePacket, PacketPayload(s))
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	var decoded PacketMessage
	if err := msg.UnmarshalPayload(&decoded); err != nil {
		t.Fatalf("UnmarshalPayload failed: %v", err)
	}

	if decoded.TS != 1700000000 {
		t.Errorf("TS = %d, want 1700000000", decoded.TS)
	}
	if decoded.Units != UnitUS {
		t.Errorf("Units = %v, want %v", decoded.Units, UnitUS)
	}
	if decoded.Fields[OutTemp] != 68.0 {
		t.Errorf("outTemp = %v, want 68.0", decoded.Fields[OutTemp])
	}
}

func TestPacketMessage_Sample(t *testing.T) {
	pm := PacketMessage{
		TS:     1700000000,
		Units:  UnitMetricWX,
		Fields: map[Obs]float64{WindSpeed: 5.0, WindDir: 270.0},
	}

	s := pm.Sample()
	if !s.IsValid() {
		t.Error("decoded sample should be valid")
	}
	if v, ok := s.Get(WindDir); !ok || v != 270.0 {
		t.Errorf("windDir = %v,%v, want 270.0", v, ok)
	}
}

func TestMessage_JSONRoundtrip(t *testing.T) {
	s := NewSample(1700000000, UnitMetricWX)
	s.Set(Rain, 0.5)

	msg, err := NewMessage(MessageTypeArchive, PacketPayload(s))
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Message
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Type != MessageTypeArchive {
		t.Errorf("Type = %v, want %v", decoded.Type, MessageTypeArchive)
	}

	var pm PacketMessage
	if err := decoded.UnmarshalPayload(&pm); err != nil {
		t.Fatalf("UnmarshalPayload failed: %v", err)
	}
	if pm.Fields[Rain] != 0.5 {
		t.Errorf("rain = %v, want 0.5", pm.Fields[Rain])
	}
}

func TestHeartbeatMessage(t *testing.T) {
	hb := HeartbeatMessage{StationID: "station-01", Uptime: 3600, BufferSize: 12}

	msg, err := NewMessage(MessageTypeHeartbeat, hb)
	if err != nil {
		t.Fatalf("NewMessage failed: %v", err)
	}

	var decoded HeartbeatMessage
	if err := msg.UnmarshalPayload(&decoded); err != nil {
		t.Fatalf("UnmarshalPayload failed: %v", err)
	}
	if decoded.StationID != "station-01" {
		t.Errorf("StationID = %v, want station-01", decoded.StationID)
	}
	if decoded.BufferSize != 12 {
		t.Errorf("BufferSize = %d, want 12", decoded.BufferSize)
	}
}
