package mqtt

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Frames contains all time frames that were published.
	Frames []TimeEvent

	// FramePayloads contains the JSON payloads that were published.
	FramePayloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishFrameError, if set, will be returned by PublishFrame.
	PublishFrameError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishFrame records the time frame.
func (f *FakePublisher) PublishFrame(event TimeEvent) error {
	if f.PublishFrameError != nil {
		return f.PublishFrameError
	}

	f.Frames = append(f.Frames, event)

	payload, err := FormatFramePayload(event)
	if err != nil {
		return err
	}
	f.FramePayloads = append(f.FramePayloads, payload)

	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)

	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Frames = nil
	f.FramePayloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishFrameError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
