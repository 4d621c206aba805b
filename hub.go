package server

import (
	"context"
	"crypto/rand"
	"math/big"
	"sort"
	"strings"
	"sync"

	"crossblades/server/internal/telemetry"
	"crossblades/server/logging"
	"crossblades/server/logging/lifecycle"
)

const (
	codeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength = 6
)

// Hub tracks live rooms by join code. Rooms run their own goroutines and
// share nothing with each other; the hub is bookkeeping plus diagnostics
// fan-in.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	cfg      RoomConfig
	pub      logging.Publisher
	logger   telemetry.Logger
	counters *telemetryCounters
}

// HubDiagnostics is the hub's contribution to the diagnostics endpoint.
type HubDiagnostics struct {
	Rooms     []RoomDiagnostics `json:"rooms"`
	Telemetry TelemetrySnapshot `json:"telemetry"`
}

// NewHub creates an empty registry. Every room it creates inherits cfg, the
// publisher, and the shared telemetry counters.
func NewHub(cfg RoomConfig, pub logging.Publisher, logger telemetry.Logger) *Hub {
	if pub == nil {
		pub = logging.NopPublisher()
	}
	if logger == nil {
		logger = telemetry.LoggerFunc(nil)
	}
	return &Hub{
		rooms:    make(map[string]*Room),
		cfg:      cfg.normalized(),
		pub:      pub,
		logger:   logger,
		counters: newTelemetryCounters(),
	}
}

// CreateRoom registers a room under a fresh code and starts its loop.
func (h *Hub) CreateRoom() *Room {
	h.mu.Lock()
	var room *Room
	for {
		code := generateCode(codeLength)
		if _, exists := h.rooms[code]; exists {
			continue
		}
		room = newRoom(code, h.cfg, h.pub, h.logger, h.counters)
		room.onEmpty = h.removeRoom
		h.rooms[code] = room
		break
	}
	h.mu.Unlock()

	h.counters.RecordRoomOpened()
	lifecycle.RoomCreated(context.Background(), room.pub, room.ref())
	h.logger.Printf("room %s opened", room.Code)
	go room.Run()
	return room
}

// FindRoom resolves a join code. Codes are case-insensitive on the wire.
func (h *Hub) FindRoom(code string) (*Room, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	h.mu.RLock()
	room, ok := h.rooms[code]
	h.mu.RUnlock()
	return room, ok
}

// RoomCount reports how many rooms are registered.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// Diagnostics collects every room's snapshot, sorted by code, plus the
// process-wide counters. Rooms that stop while being queried are skipped.
func (h *Hub) Diagnostics() HubDiagnostics {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	diag := HubDiagnostics{
		Rooms:     make([]RoomDiagnostics, 0, len(rooms)),
		Telemetry: h.counters.Snapshot(),
	}
	for _, room := range rooms {
		if snapshot, ok := room.Diagnostics(); ok {
			diag.Rooms = append(diag.Rooms, snapshot)
		}
	}
	sort.Slice(diag.Rooms, func(i, j int) bool {
		return diag.Rooms[i].Code < diag.Rooms[j].Code
	})
	return diag
}

// Close stops every room and waits for their loops to exit.
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.rooms = make(map[string]*Room)
	h.mu.Unlock()

	for _, room := range rooms {
		room.Stop()
		<-room.Done()
	}
}

func (h *Hub) removeRoom(code string) {
	h.mu.Lock()
	_, ok := h.rooms[code]
	if ok {
		delete(h.rooms, code)
	}
	h.mu.Unlock()
	if ok {
		h.logger.Printf("room %s closed", code)
	}
}

func generateCode(n int) string {
	buf := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range buf {
		idx, _ := rand.Int(rand.Reader, max)
		buf[i] = codeChars[idx.Int64()]
	}
	return string(buf)
}
