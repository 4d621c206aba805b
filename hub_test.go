package server

import (
	"strings"
	"testing"
	"time"

	"crossblades/server/proto"
)

func newTestHub() *Hub {
	return NewHub(DefaultRoomConfig(), nil, nil)
}

func TestHubCreateRoomGeneratesUniqueCodes(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		room := h.CreateRoom()
		if len(room.Code) != codeLength {
			t.Fatalf("expected %d character code, got %q", codeLength, room.Code)
		}
		for _, ch := range room.Code {
			if !strings.ContainsRune(codeChars, ch) {
				t.Fatalf("code %q uses character outside the alphabet", room.Code)
			}
		}
		if seen[room.Code] {
			t.Fatalf("duplicate room code %q", room.Code)
		}
		seen[room.Code] = true

		if found, ok := h.FindRoom(room.Code); !ok || found != room {
			t.Fatalf("created room %q not findable", room.Code)
		}
	}
	if h.RoomCount() != 20 {
		t.Fatalf("expected 20 registered rooms, got %d", h.RoomCount())
	}
}

func TestHubFindRoomNormalizesCode(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	room := h.CreateRoom()
	sloppy := "  " + strings.ToLower(room.Code) + " "
	if found, ok := h.FindRoom(sloppy); !ok || found != room {
		t.Fatalf("expected %q to resolve room %q", sloppy, room.Code)
	}
}

func TestHubFindRoomUnknownCode(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	if _, ok := h.FindRoom("NOSUCH"); ok {
		t.Fatalf("expected lookup miss for unknown code")
	}
}

func TestHubDropsRoomWhenMatchEnds(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	room := h.CreateRoom()
	p1 := &fakePeer{}
	res, err := room.Join(p1, "")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	room.Leave(res.Slot, "connection closed")

	waitFor(t, func() bool { return h.RoomCount() == 0 })
	if _, ok := h.FindRoom(room.Code); ok {
		t.Fatalf("room %q should be gone after its loop stopped", room.Code)
	}
}

func TestHubCloseStopsEveryRoom(t *testing.T) {
	h := newTestHub()

	rooms := []*Room{h.CreateRoom(), h.CreateRoom(), h.CreateRoom()}
	h.Close()

	if h.RoomCount() != 0 {
		t.Fatalf("expected empty registry after close, got %d", h.RoomCount())
	}
	for _, room := range rooms {
		select {
		case <-room.Done():
		case <-time.After(2 * time.Second):
			t.Fatalf("room %q still running after close", room.Code)
		}
	}
}

func TestHubDiagnosticsListsRoomsSorted(t *testing.T) {
	h := newTestHub()
	defer h.Close()

	first := h.CreateRoom()
	second := h.CreateRoom()
	if _, err := first.Join(&fakePeer{}, ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	diag := h.Diagnostics()
	if len(diag.Rooms) != 2 {
		t.Fatalf("expected 2 rooms in diagnostics, got %d", len(diag.Rooms))
	}
	if diag.Rooms[0].Code > diag.Rooms[1].Code {
		t.Fatalf("rooms should be sorted by code: %q, %q", diag.Rooms[0].Code, diag.Rooms[1].Code)
	}
	if diag.Telemetry.RoomsOpened != 2 {
		t.Fatalf("expected 2 rooms opened in telemetry, got %d", diag.Telemetry.RoomsOpened)
	}

	var joined, empty *RoomDiagnostics
	for i := range diag.Rooms {
		switch diag.Rooms[i].Code {
		case first.Code:
			joined = &diag.Rooms[i]
		case second.Code:
			empty = &diag.Rooms[i]
		}
	}
	if joined == nil || empty == nil {
		t.Fatalf("diagnostics missing a room: joined=%v empty=%v", joined, empty)
	}
	if len(joined.Peers) != 1 || joined.Peers[0].PlayerID != "p1" {
		t.Fatalf("unexpected peer diagnostics: %+v", joined.Peers)
	}
	if joined.MatchState != proto.MatchWaiting {
		t.Fatalf("expected waiting room, got %q", joined.MatchState)
	}
	if len(empty.Peers) != 0 {
		t.Fatalf("expected no peers in untouched room, got %d", len(empty.Peers))
	}
}
