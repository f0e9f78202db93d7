// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/dcf77-receiver/internal/dcf77"
)

// TopicFrames is the MQTT topic for decoded time frames.
const TopicFrames = "time/dcf77/receiver/frames"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "time/dcf77/receiver/system"

// Publisher publishes receiver output to MQTT.
type Publisher interface {
	// PublishFrame sends a decoded minute frame to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishFrame(event TimeEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// TimeEvent is one fully validated minute frame. The calendar fields carry
// the transmitted values rather than anything re-derived from Time, so a
// consumer sees exactly what went over the air.
type TimeEvent struct {
	ReceivedAt time.Time  // local receipt of the cycle boundary
	Time       time.Time  // broadcast time in its CET/CEST zone
	Date       dcf77.Date // transmitted year, month, day, weekday
	Hours      int
	Minutes    int
	CEST       bool
	Raw        uint64 // the 59-bit register the frame was decoded from
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure for frames.
type Payload struct {
	DCF77 FramePayload `json:"dcf77"`
}

// FramePayload contains the decoded frame details.
type FramePayload struct {
	ReceivedAt string `json:"received_at"`
	Time       string `json:"time"`
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Day        int    `json:"day"`
	Weekday    int    `json:"weekday"`
	Hours      int    `json:"hours"`
	Minutes    int    `json:"minutes"`
	CEST       bool   `json:"cest"`
	Raw        string `json:"raw"`
}

// FormatFramePayload creates the JSON payload for a decoded frame. The
// receipt timestamp is normalized to UTC; the broadcast time keeps the
// CET/CEST offset the frame declared.
func FormatFramePayload(event TimeEvent) ([]byte, error) {
	payload := Payload{
		DCF77: FramePayload{
			ReceivedAt: event.ReceivedAt.UTC().Format(time.RFC3339),
			Time:       event.Time.Format(time.RFC3339),
			Year:       event.Date.Year,
			Month:      event.Date.Month,
			Day:        event.Date.Day,
			Weekday:    event.Date.Weekday,
			Hours:      event.Hours,
			Minutes:    event.Minutes,
			CEST:       event.CEST,
			Raw:        fmt.Sprintf("0x%016x", event.Raw),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
