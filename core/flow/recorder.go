package flow

import (
	"time"

	"github.com/m3rciful/leadbot/core/session"
)

// Commit outcomes reported to the Recorder.
const (
	OutcomeOK        = "ok"
	OutcomeDuplicate = "duplicate"
	OutcomeError     = "error"
)

// Recorder receives flow events for metrics. Implementations must be safe for concurrent use.
type Recorder interface {
	Message(step session.Step)
	Transition(from, to session.Step)
	ValidationFailed(step session.Step)
	Commit(outcome string, took time.Duration)
	Fallback()
	ActiveSessions(n int)
}

type nopRecorder struct{}

func (nopRecorder) Message(session.Step)                  {}
func (nopRecorder) Transition(session.Step, session.Step) {}
func (nopRecorder) ValidationFailed(session.Step)         {}
func (nopRecorder) Commit(string, time.Duration)          {}
func (nopRecorder) Fallback()                             {}
func (nopRecorder) ActiveSessions(int)                    {}
