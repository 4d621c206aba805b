package server

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

// telemetryCounters aggregates room activity across the whole process. One
// instance lives on the hub and is shared by every room goroutine, so all
// fields must stay atomic.
type telemetryCounters struct {
	broadcasts         atomic.Uint64
	bytesSent          atomic.Uint64
	tickDurationMillis atomic.Int64
	lastBroadcastBytes atomic.Uint64
	inputGaps          atomic.Uint64
	inboxDropped       atomic.Uint64
	roomsOpened        atomic.Uint64
	roomsClosed        atomic.Uint64
	debug              bool
}

// TelemetrySnapshot is the diagnostics projection of the counters.
type TelemetrySnapshot struct {
	Broadcasts         uint64 `json:"broadcasts"`
	BytesSent          uint64 `json:"bytesSent"`
	TickDurationMillis int64  `json:"tickDurationMillis"`
	InputGaps          uint64 `json:"inputGaps"`
	InboxDropped       uint64 `json:"inboxDropped"`
	RoomsOpened        uint64 `json:"roomsOpened"`
	RoomsClosed        uint64 `json:"roomsClosed"`
}

func newTelemetryCounters() *telemetryCounters {
	t := &telemetryCounters{}
	if os.Getenv("DEBUG_TELEMETRY") == "1" {
		t.debug = true
	}
	return t
}

func (t *telemetryCounters) RecordBroadcast(bytes, peers int) {
	if bytes < 0 {
		bytes = 0
	}
	if peers < 0 {
		peers = 0
	}
	t.broadcasts.Add(uint64(peers))
	t.bytesSent.Add(uint64(bytes))
	t.lastBroadcastBytes.Store(uint64(bytes))
}

func (t *telemetryCounters) RecordTickDuration(duration time.Duration) {
	millis := duration.Milliseconds()
	if millis < 0 {
		millis = 0
	}
	t.tickDurationMillis.Store(millis)
	if t.debug {
		fmt.Printf(
			"[telemetry] tick=%dms bytes=%d totalBytes=%d broadcasts=%d\n",
			millis,
			t.lastBroadcastBytes.Load(),
			t.bytesSent.Load(),
			t.broadcasts.Load(),
		)
	}
}

func (t *telemetryCounters) RecordInputGap(width uint64) {
	t.inputGaps.Add(width)
}

func (t *telemetryCounters) RecordInboxDrop() {
	t.inboxDropped.Add(1)
}

func (t *telemetryCounters) RecordRoomOpened() {
	t.roomsOpened.Add(1)
}

func (t *telemetryCounters) RecordRoomClosed() {
	t.roomsClosed.Add(1)
}

func (t *telemetryCounters) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		Broadcasts:         t.broadcasts.Load(),
		BytesSent:          t.bytesSent.Load(),
		TickDurationMillis: t.tickDurationMillis.Load(),
		InputGaps:          t.inputGaps.Load(),
		InboxDropped:       t.inboxDropped.Load(),
		RoomsOpened:        t.roomsOpened.Load(),
		RoomsClosed:        t.roomsClosed.Load(),
	}
}
