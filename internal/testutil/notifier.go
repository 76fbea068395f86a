package testutil

import (
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockNotifier is a testify mock of notify.Notifier
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier accepts any event without expectations
func NewMockNotifier() *MockNotifier {
	m := new(MockNotifier)
	m.On("Start", mock.Anything).Maybe()
	m.On("Succeed", mock.Anything, mock.Anything).Maybe()
	m.On("Fail", mock.Anything, mock.Anything, mock.Anything).Maybe()
	return m
}

func (m *MockNotifier) Start(op string) {
	m.Called(op)
}

func (m *MockNotifier) Succeed(op string, took time.Duration) {
	m.Called(op, took)
}

func (m *MockNotifier) Fail(op string, took time.Duration, err error) {
	m.Called(op, took, err)
}

// Event is one notifier callback
type Event struct {
	Kind string // "start", "success" or "failure"
	Op   string
	Err  error
}

// RecordingNotifier keeps every event in order
type RecordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (r *RecordingNotifier) Start(op string) {
	r.add(Event{Kind: "start", Op: op})
}

func (r *RecordingNotifier) Succeed(op string, _ time.Duration) {
	r.add(Event{Kind: "success", Op: op})
}

func (r *RecordingNotifier) Fail(op string, _ time.Duration, err error) {
	r.add(Event{Kind: "failure", Op: op, Err: err})
}

// Events returns a copy of the recorded events
func (r *RecordingNotifier) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Ops returns the ops of events of the given kind
func (r *RecordingNotifier) Ops(kind string) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e.Op)
		}
	}
	return out
}

func (r *RecordingNotifier) add(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}
