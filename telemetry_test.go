package server

import (
	"testing"
	"time"
)

func TestTelemetryCountersSnapshot(t *testing.T) {
	counters := newTelemetryCounters()

	counters.RecordBroadcast(120, 2)
	counters.RecordBroadcast(80, 1)
	counters.RecordTickDuration(16 * time.Millisecond)
	counters.RecordInputGap(3)
	counters.RecordInboxDrop()
	counters.RecordRoomOpened()
	counters.RecordRoomOpened()
	counters.RecordRoomClosed()

	snap := counters.Snapshot()
	if snap.Broadcasts != 3 {
		t.Fatalf("expected 3 broadcast sends, got %d", snap.Broadcasts)
	}
	if snap.BytesSent != 200 {
		t.Fatalf("expected 200 bytes sent, got %d", snap.BytesSent)
	}
	if snap.TickDurationMillis != 16 {
		t.Fatalf("expected last tick duration 16ms, got %d", snap.TickDurationMillis)
	}
	if snap.InputGaps != 3 {
		t.Fatalf("expected input gap width 3, got %d", snap.InputGaps)
	}
	if snap.InboxDropped != 1 {
		t.Fatalf("expected 1 dropped frame, got %d", snap.InboxDropped)
	}
	if snap.RoomsOpened != 2 || snap.RoomsClosed != 1 {
		t.Fatalf("expected 2 opened / 1 closed, got %d / %d", snap.RoomsOpened, snap.RoomsClosed)
	}
}

func TestTelemetryCountersClampNegativeInputs(t *testing.T) {
	counters := newTelemetryCounters()

	counters.RecordBroadcast(-5, -1)
	counters.RecordTickDuration(-3 * time.Millisecond)

	snap := counters.Snapshot()
	if snap.Broadcasts != 0 || snap.BytesSent != 0 {
		t.Fatalf("expected negative broadcast values clamped, got %+v", snap)
	}
	if snap.TickDurationMillis != 0 {
		t.Fatalf("expected negative duration clamped, got %d", snap.TickDurationMillis)
	}
}
