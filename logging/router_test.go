package logging_test

import (
	"context"
	"testing"
	"time"

	"crossblades/server/logging"
	"crossblades/server/logging/sinks"
)

func newTestRouter(t *testing.T, cfg logging.Config) (*logging.Router, *sinks.MemorySink) {
	t.Helper()
	memory := sinks.NewMemorySink()
	router, err := logging.NewRouter(nil, cfg, []logging.NamedSink{{Name: "memory", Sink: memory}})
	if err != nil {
		t.Fatalf("router construction failed: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		router.Close(ctx)
	})
	return router, memory
}

func waitForEvents(t *testing.T, memory *sinks.MemorySink, want int) []logging.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := memory.Events(); len(events) >= want {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d events, got %d", want, len(memory.Events()))
	return nil
}

func TestRouterDeliversToSink(t *testing.T) {
	router, memory := newTestRouter(t, logging.DefaultConfig())

	router.Publish(context.Background(), logging.Event{
		Type:     "combat.hit",
		Tick:     42,
		Room:     "KXQ42M",
		Actor:    logging.EntityRef{ID: "p-1", Kind: logging.EntityKindPlayer},
		Severity: logging.SeverityInfo,
	})

	events := waitForEvents(t, memory, 1)
	event := events[0]
	if event.Type != "combat.hit" || event.Tick != 42 || event.Room != "KXQ42M" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Time.IsZero() {
		t.Fatalf("expected the router to stamp a time")
	}

	stats := router.Stats()
	if stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRouterFiltersBelowMinimumSeverity(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router, memory := newTestRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "network.input_gap", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "network.send_failed", Severity: logging.SeverityWarn})

	events := waitForEvents(t, memory, 1)
	if len(events) != 1 || events[0].Type != "network.send_failed" {
		t.Fatalf("expected only the warning through, got %+v", events)
	}
}

func TestRouterStampsConfiguredFields(t *testing.T) {
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"build": "dev"}
	router, memory := newTestRouter(t, cfg)

	router.Publish(context.Background(), logging.Event{Type: "lifecycle.room_created", Severity: logging.SeverityInfo})

	events := waitForEvents(t, memory, 1)
	if events[0].Extra["build"] != "dev" {
		t.Fatalf("expected configured field stamped, got %+v", events[0].Extra)
	}
}

func TestWithRoomStampsCode(t *testing.T) {
	var captured logging.Event
	pub := logging.WithRoom(logging.PublisherFunc(func(_ context.Context, event logging.Event) {
		captured = event
	}), "AB12CD")

	pub.Publish(context.Background(), logging.Event{Type: "combat.parried"})

	if captured.Room != "AB12CD" {
		t.Fatalf("expected room code stamped, got %q", captured.Room)
	}
}

func TestMetricsCounters(t *testing.T) {
	metrics := logging.NewMetrics()

	metrics.TelemetryAdd("room_ticks_total", 2)
	metrics.TelemetryAdd("room_ticks_total", 3)
	metrics.TelemetryStore("rooms_active", 1)

	snapshot := metrics.Snapshot()
	if snapshot["room_ticks_total"] != 5 {
		t.Fatalf("expected counter 5, got %d", snapshot["room_ticks_total"])
	}
	if snapshot["rooms_active"] != 1 {
		t.Fatalf("expected gauge 1, got %d", snapshot["rooms_active"])
	}
}
