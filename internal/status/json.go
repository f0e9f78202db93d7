package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Signal        string     `json:"signal"`
	Second        int        `json:"second"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"decode_counts"`
	LastFrame     *FrameJSON `json:"last_frame,omitempty"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of decode counts.
type CountsJSON struct {
	Bits       int `json:"bits"`
	FaultyBits int `json:"faulty_bits"`
	Cycles     int `json:"cycles"`
	FramesOK   int `json:"frames_ok"`
	FramesBad  int `json:"frames_bad"`
}

// FrameJSON is the JSON representation of the last validated frame.
type FrameJSON struct {
	Time       string `json:"time"`
	ReceivedAt string `json:"received_at"`
	CEST       bool   `json:"cest"`
	Raw        string `json:"raw"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string `json:"chip"`
	Pin         int    `json:"pin"`
	Invert      bool   `json:"invert"`
	SampleMs    int64  `json:"sample_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	signal := "SEARCHING"
	if snap.Synced {
		signal = "SYNCED"
	}

	return StatusInner{
		Signal:        signal,
		Second:        snap.Second,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Bits:       snap.Counts.Bits,
			FaultyBits: snap.Counts.FaultyBits,
			Cycles:     snap.Counts.Cycles,
			FramesOK:   snap.Counts.FramesOK,
			FramesBad:  snap.Counts.FramesBad,
		},
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			Pin:         snap.Config.Pin,
			Invert:      snap.Config.Invert,
			SampleMs:    snap.Config.SampleMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

func buildFrame(snap Snapshot, inner *StatusInner) {
	if snap.LastFrame != nil {
		inner.LastFrame = &FrameJSON{
			Time:       snap.LastFrame.Time.Format(time.RFC3339),
			ReceivedAt: snap.LastFrame.ReceivedAt.UTC().Format(time.RFC3339),
			CEST:       snap.LastFrame.CEST,
			Raw:        fmt.Sprintf("0x%016x", snap.LastFrame.Raw),
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildFrame(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildFrame(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
