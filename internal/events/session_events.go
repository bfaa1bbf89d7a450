package events

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the session milestones published to the event bus
type EventType string

const (
	EventAttemptStarted      EventType = "attempt.started"
	EventSessionBooted       EventType = "session.booted"
	EventAttemptSubmitted    EventType = "attempt.submitted"
	EventAttemptSubmitFailed EventType = "attempt.submit_failed"
	EventAttemptTimeWarning  EventType = "attempt.time_warning"
	EventAttemptTimeExpired  EventType = "attempt.time_expired"
)

const (
	eventSource  = "session-runtime"
	eventVersion = "1.0"
)

// SessionEvent is the envelope for all session events
type SessionEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Payloads

type AttemptStartedEvent struct {
	AttemptID int       `json:"attempt_id"`
	TestID    int       `json:"test_id"`
	Mode      string    `json:"mode"`
	StartedAt time.Time `json:"started_at"`
}

type SessionBootedEvent struct {
	AttemptID     int    `json:"attempt_id"`
	TestID        int    `json:"test_id"`
	Mode          string `json:"mode"`
	Fresh         bool   `json:"fresh"`
	CachedAnswers int    `json:"cached_answers"`
}

type AttemptSubmittedEvent struct {
	AttemptID       int    `json:"attempt_id"`
	TestID          int    `json:"test_id"`
	Mode            string `json:"mode"`
	Trigger         string `json:"trigger"` // manual | timeout
	ResultAttemptID int    `json:"result_attempt_id"`
}

type AttemptSubmitFailedEvent struct {
	AttemptID int    `json:"attempt_id"`
	TestID    int    `json:"test_id"`
	Trigger   string `json:"trigger"`
	Message   string `json:"message"`
}

type AttemptTimeWarningEvent struct {
	AttemptID        int `json:"attempt_id"`
	TestID           int `json:"test_id"`
	SecondsRemaining int `json:"seconds_remaining"`
}

type AttemptTimeExpiredEvent struct {
	AttemptID int `json:"attempt_id"`
	TestID    int `json:"test_id"`
}

// Trigger names the submission trigger.
func Trigger(timeout bool) string {
	if timeout {
		return "timeout"
	}
	return "manual"
}

// Event factory functions

func newEvent(t EventType, attemptID int, data interface{}) *SessionEvent {
	return &SessionEvent{
		ID:        GenerateEventID(),
		Type:      t,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
		Metadata:  map[string]interface{}{"attempt_id": attemptID},
	}
}

// PartitionKey keeps all events of one attempt on the same partition.
func (e *SessionEvent) PartitionKey() string {
	if id, ok := e.Metadata["attempt_id"]; ok {
		return fmt.Sprint(id)
	}
	return e.ID
}

func NewAttemptStartedEvent(attemptID, testID int, mode string, startedAt time.Time) *SessionEvent {
	return newEvent(EventAttemptStarted, attemptID, AttemptStartedEvent{
		AttemptID: attemptID,
		TestID:    testID,
		Mode:      mode,
		StartedAt: startedAt,
	})
}

func NewSessionBootedEvent(attemptID, testID int, mode string, fresh bool, cachedAnswers int) *SessionEvent {
	return newEvent(EventSessionBooted, attemptID, SessionBootedEvent{
		AttemptID:     attemptID,
		TestID:        testID,
		Mode:          mode,
		Fresh:         fresh,
		CachedAnswers: cachedAnswers,
	})
}

func NewAttemptSubmittedEvent(attemptID, testID int, mode string, timeout bool, resultAttemptID int) *SessionEvent {
	return newEvent(EventAttemptSubmitted, attemptID, AttemptSubmittedEvent{
		AttemptID:       attemptID,
		TestID:          testID,
		Mode:            mode,
		Trigger:         Trigger(timeout),
		ResultAttemptID: resultAttemptID,
	})
}

func NewAttemptSubmitFailedEvent(attemptID, testID int, timeout bool, message string) *SessionEvent {
	return newEvent(EventAttemptSubmitFailed, attemptID, AttemptSubmitFailedEvent{
		AttemptID: attemptID,
		TestID:    testID,
		Trigger:   Trigger(timeout),
		Message:   message,
	})
}

func NewAttemptTimeWarningEvent(attemptID, testID, secondsRemaining int) *SessionEvent {
	return newEvent(EventAttemptTimeWarning, attemptID, AttemptTimeWarningEvent{
		AttemptID:        attemptID,
		TestID:           testID,
		SecondsRemaining: secondsRemaining,
	})
}

func NewAttemptTimeExpiredEvent(attemptID, testID int) *SessionEvent {
	return newEvent(EventAttemptTimeExpired, attemptID, AttemptTimeExpiredEvent{AttemptID: attemptID, TestID: testID})
}

// GenerateEventID returns a random unique event id
func GenerateEventID() string {
	return uuid.NewString()
}
