package ingest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/wx-monitor/internal/engine"
	"github.com/afroash/wx-monitor/internal/models"
	"github.com/afroash/wx-monitor/internal/storage"
)

// StatusSource exposes the engine state the API reports on.
type StatusSource interface {
	Latest() models.Snapshot
	Stats() engine.Stats
}

// APIHandler handles HTTP API requests for station monitoring
type APIHandler struct {
	source  StatusSource
	store   storage.Store // nil when running without an archive
	handler *Handler
	station *models.StationInfo
	logger  zerolog.Logger
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(source StatusSource, store storage.Store, handler *Handler, station *models.StationInfo, logger zerolog.Logger) *APIHandler {
	return &APIHandler{
		source:  source,
		store:   store,
		handler: handler,
		station: station,
		logger:  logger,
	}
}

// HandleCurrent returns the latest observation snapshot
func (api *APIHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	snap := api.source.Latest()
	if snap.TS == 0 {
		http.Error(w, "No observations yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// HandleHistory returns recent archive records for charting
func (api *APIHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if api.store == nil {
		http.Error(w, "No archive configured", http.StatusNotFound)
		return
	}

	hoursStr := r.URL.Query().Get("hours")
	hours := 24 // default
	if hoursStr != "" {
		if parsed, err := strconv.Atoi(hoursStr); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	end := time.Now().Unix()
	start := end - int64(hours)*3600
	records, err := api.store.RecordsInRange(start, end)
	if err != nil {
		api.logger.Error().Err(err).Msg("Failed to read archive records")
		http.Error(w, "Archive query failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// HandleStats returns engine and archive statistics
func (api *APIHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	data := statsData{Engine: api.source.Stats()}

	if api.store != nil {
		stats, err := api.store.StorageStats()
		if err != nil {
			api.logger.Error().Err(err).Msg("Failed to read storage stats")
		} else {
			data.Storage = stats
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

type statsData struct {
	Engine  engine.Stats          `json:"engine"`
	Storage *storage.StorageStats `json:"storage,omitempty"`
}

// StatusData contains the full daemon status
type StatusData struct {
	Station    *models.StationInfo `json:"station"`
	Stations   []StationConnection `json:"connected_stations"`
	Engine     engine.Stats        `json:"engine"`
	LastUpdate time.Time           `json:"last_update"`
}

// HandleStatus returns combined daemon status
func (api *APIHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	data := StatusData{
		Station:    api.station,
		Stations:   api.handler.GetActiveStations(),
		Engine:     api.source.Stats(),
		LastUpdate: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
