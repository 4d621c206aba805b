// Package net assembles the server's HTTP surface: the health and
// diagnostics endpoints, the websocket entry point, and the static client
// bundle.
package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"crossblades/server"
	"crossblades/server/internal/net/ws"
	"crossblades/server/internal/telemetry"
	"crossblades/server/logging"
	"crossblades/server/sim"
)

// HTTPHandlerConfig carries the collaborators for the HTTP surface. Every
// field is optional.
type HTTPHandlerConfig struct {
	ClientDir string
	Logger    *log.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Router    *logging.Router
}

// NewHTTPHandler builds the full route table around the hub.
func NewHTTPHandler(hub *server.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		diag := hub.Diagnostics()
		payload := struct {
			Status     string                   `json:"status"`
			ServerTime int64                    `json:"serverTime"`
			TickRate   int                      `json:"tickRate"`
			Rooms      []server.RoomDiagnostics `json:"rooms"`
			Telemetry  server.TelemetrySnapshot `json:"telemetry"`
			Logging    *logging.RouterStats     `json:"logging,omitempty"`
		}{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			TickRate:   sim.TickRate,
			Rooms:      diag.Rooms,
			Telemetry:  diag.Telemetry,
		}
		if cfg.Router != nil {
			stats := cfg.Router.Stats()
			payload.Logging = &stats
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.HandleFunc("/constants", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		payload := struct {
			Constants sim.Constants `json:"constants"`
			Hash      string        `json:"hash"`
		}{
			Constants: sim.SharedConstants(),
			Hash:      sim.Fingerprint(),
		}

		data, err := json.Marshal(payload)
		if err != nil {
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	mux.Handle("/ws", ws.NewHandler(hub, ws.HandlerConfig{
		Logger:    cfg.Logger,
		Publisher: cfg.Publisher,
		Metrics:   cfg.Metrics,
	}))

	if cfg.ClientDir != "" {
		fs := nethttp.FileServer(nethttp.Dir(cfg.ClientDir))
		mux.Handle("/", fs)
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
