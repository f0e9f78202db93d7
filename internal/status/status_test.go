package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Chip: "gpiochip0", Pin: 4, SampleMs: 10, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.Chip != "gpiochip0" {
		t.Errorf("Config.Chip: got %q, want %q", snap.Config.Chip, "gpiochip0")
	}
	if snap.Config.Pin != 4 {
		t.Errorf("Config.Pin: got %d, want 4", snap.Config.Pin)
	}
	if snap.Config.HTTPAddr != ":8080" {
		t.Errorf("Config.HTTPAddr: got %q, want %q", snap.Config.HTTPAddr, ":8080")
	}
	if snap.Synced {
		t.Error("expected Synced=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
	if snap.LastFrame != nil {
		t.Error("expected nil LastFrame initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(58, true, Counts{Bits: 120, FaultyBits: 2, Cycles: 2, FramesOK: 1, FramesBad: 1})

	snap := tr.Snapshot()
	if snap.Second != 58 {
		t.Errorf("Second: got %d, want 58", snap.Second)
	}
	if !snap.Synced {
		t.Error("expected Synced=true")
	}
	if snap.Counts.Bits != 120 {
		t.Errorf("Counts.Bits: got %d, want 120", snap.Counts.Bits)
	}
	if snap.Counts.FaultyBits != 2 {
		t.Errorf("Counts.FaultyBits: got %d, want 2", snap.Counts.FaultyBits)
	}
	if snap.Counts.FramesOK != 1 {
		t.Errorf("Counts.FramesOK: got %d, want 1", snap.Counts.FramesOK)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetLastFrame(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().LastFrame != nil {
		t.Error("expected nil LastFrame initially")
	}

	cest := time.FixedZone("CEST", 2*3600)
	frame := FrameInfo{
		Time:       time.Date(2024, 6, 15, 12, 34, 0, 0, cest),
		ReceivedAt: time.Date(2024, 6, 15, 10, 33, 58, 0, time.UTC),
		CEST:       true,
		Raw:        0x0490cd5256820000,
	}
	tr.SetLastFrame(frame)

	snap := tr.Snapshot()
	if snap.LastFrame == nil {
		t.Fatal("expected non-nil LastFrame")
	}
	if !snap.LastFrame.Time.Equal(frame.Time) {
		t.Errorf("LastFrame.Time: got %v, want %v", snap.LastFrame.Time, frame.Time)
	}
	if snap.LastFrame.Raw != frame.Raw {
		t.Errorf("LastFrame.Raw: got %#x, want %#x", snap.LastFrame.Raw, frame.Raw)
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(10, true, Counts{Bits: 10})

	snap1 := tr.Snapshot()

	tr.Update(11, true, Counts{Bits: 11})

	// snap1 should still reflect old state
	if snap1.Second != 10 {
		t.Error("snapshot should be a copy; Second was modified")
	}
	if snap1.Counts.Bits != 10 {
		t.Error("snapshot should be a copy; Counts was modified")
	}
}

func TestCheckHeartbeatDisabled(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{})

	if tr.CheckHeartbeat(start.Add(time.Hour), 0) {
		t.Error("expected no heartbeat with zero interval")
	}
	if tr.CheckHeartbeat(start.Add(time.Hour), -time.Minute) {
		t.Error("expected no heartbeat with negative interval")
	}
}

func TestCheckHeartbeatNotYetDue(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{})

	if tr.CheckHeartbeat(start.Add(5*time.Minute), 15*time.Minute) {
		t.Error("heartbeat fired before interval elapsed")
	}
}

func TestCheckHeartbeatDueAndRearms(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{})
	interval := 15 * time.Minute

	if !tr.CheckHeartbeat(start.Add(interval), interval) {
		t.Fatal("expected heartbeat after interval elapsed")
	}

	// Firing re-arms the interval from the moment it fired.
	if tr.CheckHeartbeat(start.Add(interval+time.Second), interval) {
		t.Error("heartbeat fired again immediately after re-arm")
	}
	if !tr.CheckHeartbeat(start.Add(2*interval), interval) {
		t.Error("expected second heartbeat one interval later")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Synced:        true,
		Second:        42,
		Counts:        Counts{Bits: 500, FaultyBits: 3, Cycles: 8, FramesOK: 7, FramesBad: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Chip: "gpiochip0", Pin: 4, SampleMs: 10, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Signal != "SYNCED" {
		t.Errorf("Signal: got %q, want SYNCED", parsed.Status.Signal)
	}
	if parsed.Status.Second != 42 {
		t.Errorf("Second: got %d, want 42", parsed.Status.Second)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if parsed.Status.MQTT.Connected != true {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.Bits != 500 {
		t.Errorf("Counts.Bits: got %d, want 500", parsed.Status.Counts.Bits)
	}
	if parsed.Status.Config.SampleMs != 10 {
		t.Errorf("Config.SampleMs: got %d, want 10", parsed.Status.Config.SampleMs)
	}
	if parsed.Status.LastFrame != nil {
		t.Error("expected LastFrame omitted when no frame decoded yet")
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONSearching(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Signal != "SEARCHING" {
		t.Errorf("Signal: got %q, want SEARCHING", parsed.Status.Signal)
	}
}

func TestFormatJSONWithFrame(t *testing.T) {
	cest := time.FixedZone("CEST", 2*3600)
	snap := Snapshot{
		Synced:    true,
		StartTime: time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC),
		Now:       time.Date(2024, 6, 15, 10, 34, 0, 0, time.UTC),
		LastFrame: &FrameInfo{
			Time:       time.Date(2024, 6, 15, 12, 34, 0, 0, cest),
			ReceivedAt: time.Date(2024, 6, 15, 10, 33, 58, 0, time.UTC),
			CEST:       true,
			Raw:        0x0490cd5256820000,
		},
		Config: Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.LastFrame == nil {
		t.Fatal("expected LastFrame in JSON")
	}
	if parsed.Status.LastFrame.Time != "2024-06-15T12:34:00+02:00" {
		t.Errorf("LastFrame.Time: got %q, want 2024-06-15T12:34:00+02:00", parsed.Status.LastFrame.Time)
	}
	if parsed.Status.LastFrame.ReceivedAt != "2024-06-15T10:33:58Z" {
		t.Errorf("LastFrame.ReceivedAt: got %q, want 2024-06-15T10:33:58Z", parsed.Status.LastFrame.ReceivedAt)
	}
	if !parsed.Status.LastFrame.CEST {
		t.Error("expected CEST=true")
	}
	if parsed.Status.LastFrame.Raw != "0x0490cd5256820000" {
		t.Errorf("LastFrame.Raw: got %q, want 0x0490cd5256820000", parsed.Status.LastFrame.Raw)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Synced:        true,
		Second:        17,
		Counts:        Counts{Bits: 300},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Chip: "gpiochip0", Pin: 4, Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.Signal != "SYNCED" {
		t.Errorf("Signal: got %q, want SYNCED", parsed.Status.Signal)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Synced:    true,
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(i%60, true, Counts{Bits: i})
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetLastFrame(FrameInfo{Raw: uint64(i)})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			tr.CheckHeartbeat(time.Now(), time.Hour)
		}
	}()

	wg.Wait()
}
