package network

import (
	"context"

	"crossblades/server/logging"
)

const (
	// EventMalformedMessage is emitted when an inbound frame fails to decode.
	EventMalformedMessage logging.EventType = "network.malformed_message"
	// EventInputGap is emitted when input sequences skip numbers.
	EventInputGap logging.EventType = "network.input_gap"
	// EventSendFailed is emitted when a broadcast write tears a peer down.
	EventSendFailed logging.EventType = "network.send_failed"
)

// MalformedPayload carries the decode failure.
type MalformedPayload struct {
	Reason string `json:"reason"`
}

// InputGapPayload captures a sequence jump. Missing frames are reused, never
// requested again, so this is bookkeeping rather than an error.
type InputGapPayload struct {
	Previous uint64 `json:"previous"`
	Received uint64 `json:"received"`
}

// SendFailedPayload carries the write error that ended a session.
type SendFailedPayload struct {
	Reason string `json:"reason"`
}

// MalformedMessage publishes a warning for an undecodable client frame.
func MalformedMessage(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload MalformedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventMalformedMessage,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

// InputGap publishes a debug event for a skipped input sequence.
func InputGap(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload InputGapPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventInputGap,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Payload:  payload,
	})
}

// SendFailed publishes a warning when a peer write fails.
func SendFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload SendFailedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventSendFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryNetwork
	pub.Publish(ctx, event)
}
