package mqtt

import (
	"github.com/sweeney/line-follower/internal/logic"
)

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Results contains all command changes that were published.
	Results []logic.Result

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// PublishError, if set, will be returned by Publish.
	PublishError error

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

// Publish records the command change.
func (f *FakePublisher) Publish(result logic.Result) error {
	if f.PublishError != nil {
		return f.PublishError
	}

	payload, err := FormatPayload(result)
	if err != nil {
		return err
	}
	f.Results = append(f.Results, result)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
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

// Commands returns the published commands in order.
func (f *FakePublisher) Commands() []logic.Command {
	out := make([]logic.Command, len(f.Results))
	for i, r := range f.Results {
		out[i] = r.Command
	}
	return out
}

// Reset clears recorded events.
func (f *FakePublisher) Reset() {
	f.Results = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}
