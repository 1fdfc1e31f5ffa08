package mqtt

import "sync"

// FakeClient records published messages for test assertions. It is safe
// for concurrent use.
type FakeClient struct {
	mu sync.Mutex

	// Updates contains every payload passed to PublishUpdate.
	Updates [][]byte

	// Pings contains every payload passed to PublishPing.
	Pings [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// Configured contains every Settings passed to Configure.
	Configured []Settings

	// PublishError, if set, will be returned by every publish method.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

// Configure records the settings.
func (f *FakeClient) Configure(s Settings) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Configured = append(f.Configured, s)
}

// PublishUpdate records the update payload.
func (f *FakeClient) PublishUpdate(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Updates = append(f.Updates, payload)
	return nil
}

// PublishPing records the ping payload.
func (f *FakeClient) PublishPing(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Pings = append(f.Pings, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// UpdateCount returns the number of recorded updates.
func (f *FakeClient) UpdateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Updates)
}

// Reset clears recorded messages.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updates = nil
	f.Pings = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Configured = nil
	f.Closed = false
	f.PublishError = nil
	f.Connected = false
}
