package session

import "github.com/m3rciful/leadbot/core/lead"

// Step identifies one of the five stages of the collection flow.
type Step string

const (
	StepName     Step = "name"
	StepLastName Step = "last_name"
	StepPhone    Step = "phone"
	StepAddress  Step = "address"
	StepConfirm  Step = "confirm"
)

// State is a closed set of variants, each holding exactly the fields
// collected before that step.
type State interface {
	Step() Step
	sealed()
}

// AwaitingName is the initial state.
type AwaitingName struct{}

// AwaitingLastName holds a validated first name.
type AwaitingLastName struct {
	Name string
}

// AwaitingPhone holds both name fields.
type AwaitingPhone struct {
	Name     string
	LastName string
}

// AwaitingAddress holds names and the normalized phone.
type AwaitingAddress struct {
	Name     string
	LastName string
	Phone    string
}

// AwaitingConfirm holds the complete candidate waiting for a yes/no answer.
type AwaitingConfirm struct {
	Candidate lead.Candidate
}

func (AwaitingName) Step() Step     { return StepName }
func (AwaitingLastName) Step() Step { return StepLastName }
func (AwaitingPhone) Step() Step    { return StepPhone }
func (AwaitingAddress) Step() Step  { return StepAddress }
func (AwaitingConfirm) Step() Step  { return StepConfirm }

func (AwaitingName) sealed()     {}
func (AwaitingLastName) sealed() {}
func (AwaitingPhone) sealed()    {}
func (AwaitingAddress) sealed()  {}
func (AwaitingConfirm) sealed()  {}

// Session stores the conversation state of one user.
type Session struct {
	State State
}

// New returns a session at the initial step.
func New() Session {
	return Session{State: AwaitingName{}}
}

// Step reports the current step; a zero Session reports StepName.
func (s Session) Step() Step {
	if s.State == nil {
		return StepName
	}
	return s.State.Step()
}

// Store owns sessions keyed by user id.
type Store interface {
	Get(userID string) (Session, bool)
	GetOrCreate(userID string) Session
	Put(userID string, s Session)
	Reset(userID string) Session
	Clear(userID string)
	Exists(userID string) bool
	Len() int
}
