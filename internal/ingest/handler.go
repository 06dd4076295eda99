package ingest

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/afroash/wx-monitor/internal/models"
)

// Sink receives decoded samples from connected stations. The aggregation
// engine implements it.
type Sink interface {
	Submit(models.Sample) bool
	SubmitArchive(models.Sample) bool
}

// Handler manages WebSocket connections from weather stations
type Handler struct {
	upgrader        websocket.Upgrader
	authToken       string
	sink            Sink
	logger          zerolog.Logger
	activeStations  map[string]*StationConnection
	connToStationID map[string]string // Maps conn.RemoteAddr().String() to actual station ID
	allowedOrigins  []string
	pongWait        time.Duration
	writeWait       time.Duration
	mutex           sync.RWMutex
}

// StationConnection represents an active station connection
type StationConnection struct {
	StationID   string `json:"station_id"`
	Conn        *websocket.Conn
	LastSeen    time.Time
	ConnectedAt time.Time
}

// NewHandler creates a new WebSocket handler
func NewHandler(authToken string, sink Sink, logger zerolog.Logger, allowedOrigins ...string) *Handler {
	h := &Handler{
		authToken:       authToken,
		sink:            sink,
		logger:          logger,
		activeStations:  make(map[string]*StationConnection),
		connToStationID: make(map[string]string),
		allowedOrigins:  allowedOrigins,
		pongWait:        pongWait,
		writeWait:       writeWait,
		mutex:           sync.RWMutex{},
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	return h
}

// checkOrigin validates the incoming request's Origin against the configured allowlist
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	// No Origin header means same-origin request
	if origin == "" {
		return true
	}

	if len(h.allowedOrigins) == 0 {
		h.logger.Warn().Str("origin", origin).Msg("Rejected WebSocket connection: no allowed origins configured")
		return false
	}

	for _, allowed := range h.allowedOrigins {
		if origin == allowed {
			return true
		}
	}

	h.logger.Warn().Str("origin", origin).Msg("Rejected WebSocket connection: origin not in allowlist")
	return false
}

// ServeHTTP handles WebSocket connection requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Check auth token from header
	// Expected format: "Bearer <token>"
	token := r.Header.Get("Authorization")
	if !h.validateToken(token) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	h.handleConnection(conn)
}

// validateToken checks if the auth token is valid
func (h *Handler) validateToken(authHeader string) bool {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	return token == h.authToken
}

// handleConnection manages a single WebSocket connection
func (h *Handler) handleConnection(conn *websocket.Conn) {
	connKey := conn.RemoteAddr().String()
	stationConn := &StationConnection{
		StationID:   connKey, // Updated when the first heartbeat carries the real station ID
		Conn:        conn,
		LastSeen:    time.Now(),
		ConnectedAt: time.Now(),
	}

	h.mutex.Lock()
	h.activeStations[connKey] = stationConn
	h.mutex.Unlock()

	defer conn.Close()
	defer h.removeStation(connKey)

	conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.pongWait))
		return nil
	})

	// Read loop. Stations signal liveness with messages, not pings, so
	// every received message re-arms the read deadline.
	for {
		var msg models.Message
		err := conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(h.pongWait))
		h.handleMessage(conn, connKey, &msg)
	}
}

// handleMessage processes a single message from the station
func (h *Handler) handleMessage(conn *websocket.Conn, connKey string, msg *models.Message) {
	h.logger.Debug().Str("type", string(msg.Type)).Msg("Received message")

	switch msg.Type {
	case models.MessageTypePacket:
		h.handlePacket(msg)
	case models.MessageTypeArchive:
		h.handleArchive(msg)
	case models.MessageTypeHeartbeat:
		h.handleHeartbeat(connKey, msg)
	default:
		h.logger.Warn().Str("type", string(msg.Type)).Msg("Unknown message type")
	}

	h.sendAck(conn)
}

// handlePacket processes a loop packet
func (h *Handler) handlePacket(msg *models.Message) {
	var pkt models.PacketMessage
	if err := msg.UnmarshalPayload(&pkt); err != nil {
		h.logger.Error().Err(err).Msg("Failed to unmarshal packet")
		return
	}
	sample := pkt.Sample()
	if !sample.IsValid() {
		h.logger.Warn().Int64("dateTime", sample.TS).Msg("Packet ignored: invalid")
		return
	}
	if !h.sink.Submit(sample) {
		h.logger.Warn().Int64("dateTime", sample.TS).Msg("Packet dropped: engine queue full")
		return
	}
	h.logger.Debug().Int64("dateTime", sample.TS).Int("fields", len(sample.Fields)).Msg("Packet accepted")
}

// handleArchive processes an archive record
func (h *Handler) handleArchive(msg *models.Message) {
	var rec models.PacketMessage
	if err := msg.UnmarshalPayload(&rec); err != nil {
		h.logger.Error().Err(err).Msg("Failed to unmarshal archive record")
		return
	}
	sample := rec.Sample()
	if !sample.IsValid() {
		h.logger.Warn().Int64("dateTime", sample.TS).Msg("Archive record ignored: invalid")
		return
	}
	if !h.sink.SubmitArchive(sample) {
		h.logger.Warn().Int64("dateTime", sample.TS).Msg("Archive record dropped: engine queue full")
		return
	}
	h.logger.Info().Int64("dateTime", sample.TS).Int("fields", len(sample.Fields)).Msg("Archive record accepted")
}

// handleHeartbeat processes a heartbeat message
func (h *Handler) handleHeartbeat(connKey string, msg *models.Message) {
	var heartbeat models.HeartbeatMessage
	if err := msg.UnmarshalPayload(&heartbeat); err != nil {
		h.logger.Error().Err(err).Msg("Failed to unmarshal heartbeat")
		return
	}

	h.mutex.Lock()
	if heartbeat.StationID != "" {
		if existingID, exists := h.connToStationID[connKey]; !exists || existingID != heartbeat.StationID {
			h.connToStationID[connKey] = heartbeat.StationID
			if station, ok := h.activeStations[connKey]; ok {
				station.StationID = heartbeat.StationID
			}
		}
	}
	h.mutex.Unlock()

	h.updateStationLastSeen(connKey)
	h.logger.Debug().Str("station_id", heartbeat.StationID).Int64("uptime", heartbeat.Uptime).Msg("Heartbeat received")
}

// sendAck sends an acknowledgment message
func (h *Handler) sendAck(conn *websocket.Conn) {
	ack := models.AckMessage{Status: "ok"}
	msg, err := models.NewMessage(models.MessageTypeAck, ack)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create ack message")
		return
	}
	conn.SetWriteDeadline(time.Now().Add(h.writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to send ack")
	}
}

// updateStationLastSeen updates the last seen timestamp for a station
func (h *Handler) updateStationLastSeen(connKey string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if station, exists := h.activeStations[connKey]; exists {
		station.LastSeen = time.Now()
	}
}

// removeStation removes a station from the active stations map
func (h *Handler) removeStation(connKey string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	stationID := connKey
	if realID, exists := h.connToStationID[connKey]; exists {
		stationID = realID
	}
	delete(h.activeStations, connKey)
	delete(h.connToStationID, connKey)
	h.logger.Info().Str("station_id", stationID).Msg("Station disconnected")
}

// GetActiveStations returns a list of currently connected stations
func (h *Handler) GetActiveStations() []StationConnection {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	stations := make([]StationConnection, 0, len(h.activeStations))
	for _, station := range h.activeStations {
		stations = append(stations, *station)
	}
	return stations
}

// Constants for WebSocket timeouts
const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)
