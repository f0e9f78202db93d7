// Package status provides a thread-safe status tracker for the receiver
// daemon. It is read by HTTP handlers and serialized into MQTT system
// events.
package status

import (
	"sync"
	"time"
)

// Counts tracks decoder activity since startup.
type Counts struct {
	Bits       int // bits decoded
	FaultyBits int // slots the decoder could not read
	Cycles     int // minute boundaries detected
	FramesOK   int // frames that passed full validation
	FramesBad  int // frames rejected by validation
}

// FrameInfo describes the last fully validated frame.
type FrameInfo struct {
	Time       time.Time // broadcast time in its CET/CEST zone
	ReceivedAt time.Time // local receipt of the cycle boundary
	CEST       bool
	Raw        uint64
}

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	Pin         int
	Invert      bool
	SampleMs    int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state. It is a value type and
// stays valid after the tracker lock is released.
type Snapshot struct {
	Synced        bool // a cycle boundary has been seen
	Second        int  // current second of the minute, meaningful once synced
	Counts        Counts
	LastFrame     *FrameInfo
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu            sync.RWMutex
	snap          Snapshot
	lastHeartbeat time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		lastHeartbeat: startTime,
	}
}

// Update sets the decoder position, sync status, and activity counts.
// Called from runLoop on every tick.
func (t *Tracker) Update(second int, synced bool, counts Counts) {
	t.mu.Lock()
	t.snap.Second = second
	t.snap.Synced = synced
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetLastFrame records the most recent fully validated frame.
func (t *Tracker) SetLastFrame(frame FrameInfo) {
	t.mu.Lock()
	t.snap.LastFrame = &frame
	t.mu.Unlock()
}

// CheckHeartbeat reports whether a heartbeat is due and, if so, arms the
// next interval. An interval <= 0 disables heartbeats. Heartbeats fire
// whether or not the signal is synced.
func (t *Tracker) CheckHeartbeat(now time.Time, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if now.Sub(t.lastHeartbeat) < interval {
		return false
	}
	t.lastHeartbeat = now
	return true
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
