package lifecycle

import (
	"context"

	"crossblades/server/logging"
)

const (
	// EventRoomCreated is emitted when a fresh room starts waiting.
	EventRoomCreated logging.EventType = "lifecycle.room_created"
	// EventPlayerJoined is emitted when a connection binds to a slot.
	EventPlayerJoined logging.EventType = "lifecycle.player_joined"
	// EventPlayerLeft is emitted when a slot's connection goes away.
	EventPlayerLeft logging.EventType = "lifecycle.player_left"
	// EventRoundStarted is emitted when a countdown hands over to play.
	EventRoundStarted logging.EventType = "lifecycle.round_started"
	// EventRoundEnded is emitted when a round resolves.
	EventRoundEnded logging.EventType = "lifecycle.round_ended"
	// EventMatchEnded is emitted when a room reaches game over.
	EventMatchEnded logging.EventType = "lifecycle.match_ended"
)

// PlayerJoinedPayload captures slot assignment for a new connection.
type PlayerJoinedPayload struct {
	Slot      int    `json:"slot"`
	Archetype string `json:"archetype"`
}

// PlayerLeftPayload captures why a slot emptied.
type PlayerLeftPayload struct {
	Reason string `json:"reason"`
}

// RoundPayload carries the one-based round counter.
type RoundPayload struct {
	Round int `json:"round"`
}

// RoundEndedPayload names the round's winner.
type RoundEndedPayload struct {
	Round    int    `json:"round"`
	WinnerID string `json:"winnerId"`
}

// MatchEndedPayload summarizes the finished match.
type MatchEndedPayload struct {
	WinnerID string         `json:"winnerId"`
	Rounds   int            `json:"rounds"`
	Scores   map[string]int `json:"scores"`
}

// RoomCreated publishes a room birth event.
func RoomCreated(ctx context.Context, pub logging.Publisher, actor logging.EntityRef) {
	publish(ctx, pub, logging.Event{
		Type:     EventRoomCreated,
		Actor:    actor,
		Severity: logging.SeverityInfo,
	})
}

// PlayerJoined publishes a slot binding.
func PlayerJoined(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerJoinedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPlayerJoined,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// PlayerLeft publishes a slot teardown.
func PlayerLeft(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PlayerLeftPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPlayerLeft,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// RoundStarted publishes the countdown-to-playing handover.
func RoundStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RoundPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventRoundStarted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// RoundEnded publishes a resolved round.
func RoundEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload RoundEndedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventRoundEnded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// MatchEnded publishes the terminal game-over transition.
func MatchEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MatchEndedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventMatchEnded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryLifecycle
	pub.Publish(ctx, event)
}
