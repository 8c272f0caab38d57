package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/m3rciful/leadbot/core/lead"
	"github.com/m3rciful/leadbot/core/logger"
	"github.com/m3rciful/leadbot/core/phone"
	"github.com/m3rciful/leadbot/core/session"
)

const (
	minNameLen    = 2
	minAddressLen = 5

	// DefaultCollaboratorTimeout bounds sink commits and responder calls.
	DefaultCollaboratorTimeout = 8 * time.Second
)

// Responder answers free-form text from users without an active session.
type Responder interface {
	Reply(ctx context.Context, userID, text string) string
}

// Options configures an Engine. Sessions and Leads are required.
type Options struct {
	Sessions            session.Store
	Leads               lead.Sink
	Responder           Responder
	Metrics             Recorder
	CollaboratorTimeout time.Duration
}

// Engine drives the lead capture conversation for every user.
type Engine struct {
	sessions  session.Store
	leads     lead.Sink
	responder Responder
	metrics   Recorder
	timeout   time.Duration
	locks     *keyedMutex
}

// New builds an Engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Sessions == nil {
		return nil, errors.New("flow: session store is required")
	}
	if opts.Leads == nil {
		return nil, errors.New("flow: lead sink is required")
	}
	e := &Engine{
		sessions:  opts.Sessions,
		leads:     opts.Leads,
		responder: opts.Responder,
		metrics:   opts.Metrics,
		timeout:   opts.CollaboratorTimeout,
		locks:     newKeyedMutex(),
	}
	if e.metrics == nil {
		e.metrics = nopRecorder{}
	}
	if e.timeout <= 0 {
		e.timeout = DefaultCollaboratorTimeout
	}
	return e, nil
}

// Handle processes one inbound message and returns the reply. An empty reply means nothing should be sent.
// Messages for the same user are processed one at a time.
func (e *Engine) Handle(ctx context.Context, userID, text string) string {
	unlock := e.locks.Lock(userID)
	defer unlock()

	text = strings.TrimSpace(text)

	switch ParseCommand(text) {
	case StartCommand:
		e.sessions.Reset(userID)
		e.metrics.Transition("", session.StepName)
		e.reportActive()
		logger.Info(ctx, "flow", "session_started", slog.String("user_id", userID))
		return msgAskName
	case CancelCommand:
		existed := e.sessions.Exists(userID)
		e.sessions.Clear(userID)
		e.reportActive()
		logger.Info(ctx, "flow", "session_cancelled",
			slog.String("user_id", userID),
			slog.Bool("had_session", existed),
		)
		return msgCancelled
	}

	sess, ok := e.sessions.Get(userID)
	if !ok {
		if text == "" {
			return ""
		}
		return e.fallback(ctx, userID, text)
	}

	step := sess.Step()
	e.metrics.Message(step)
	reply, next, done := e.advance(ctx, userID, sess.State, text)
	switch {
	case done:
		e.sessions.Clear(userID)
		e.reportActive()
	case next != nil:
		e.sessions.Put(userID, session.Session{State: next})
		if to := (session.Session{State: next}).Step(); to != step {
			e.metrics.Transition(step, to)
			logger.Debug(ctx, "flow", "step_advanced",
				slog.String("user_id", userID),
				slog.String("from", string(step)),
				slog.String("to", string(to)),
			)
		}
	default:
		e.metrics.ValidationFailed(step)
	}
	return reply
}

// advance applies text to state. It returns the reply and either the next state,
// done=true when the session must be cleared, or neither when the state is unchanged.
func (e *Engine) advance(ctx context.Context, userID string, state session.State, text string) (string, session.State, bool) {
	switch st := state.(type) {
	case session.AwaitingName:
		if utf8.RuneCountInString(text) < minNameLen {
			return msgNameTooShort, nil, false
		}
		return msgAskLastName, session.AwaitingLastName{Name: text}, false

	case session.AwaitingLastName:
		if utf8.RuneCountInString(text) < minNameLen {
			return msgLastNameShort, nil, false
		}
		return msgAskPhone, session.AwaitingPhone{Name: st.Name, LastName: text}, false

	case session.AwaitingPhone:
		normalized, err := phone.Validate(text)
		if err != nil {
			var invalid *phone.InvalidPhoneError
			reason := err.Error()
			if errors.As(err, &invalid) {
				reason = invalid.Error()
				logger.Debug(ctx, "flow", "phone_rejected",
					slog.String("user_id", userID),
					slog.String("code", invalid.Code()),
				)
			}
			return msgInvalidPhone(reason), nil, false
		}
		return msgAskAddress, session.AwaitingAddress{Name: st.Name, LastName: st.LastName, Phone: normalized}, false

	case session.AwaitingAddress:
		if utf8.RuneCountInString(text) < minAddressLen {
			return msgAddressTooShort, nil, false
		}
		c := lead.Candidate{Name: st.Name, LastName: st.LastName, Phone: st.Phone, Address: text}
		return msgConfirm(c), session.AwaitingConfirm{Candidate: c}, false

	case session.AwaitingConfirm:
		switch Classify(text) {
		case Affirmative:
			return e.commit(ctx, userID, st.Candidate), nil, true
		case Negative:
			logger.Info(ctx, "flow", "lead_declined", slog.String("user_id", userID))
			return msgDeclined, nil, true
		default:
			return msgConfirmUnclear, nil, false
		}
	}

	logger.Warn(ctx, "flow", "unknown_state",
		slog.String("user_id", userID),
		slog.String("state", fmt.Sprintf("%T", state)),
	)
	return msgRestart, nil, true
}

func (e *Engine) commit(ctx context.Context, userID string, c lead.Candidate) string {
	start := time.Now()
	var saved lead.Lead
	err := e.call(ctx, func(ctx context.Context) error {
		l, err := e.leads.Commit(ctx, c)
		saved = l
		return err
	})
	took := time.Since(start)

	switch {
	case err == nil:
		e.metrics.Commit(OutcomeOK, took)
		logger.Info(ctx, "flow", "lead_committed",
			slog.String("user_id", userID),
			slog.String("lead_id", saved.ID),
			slog.String("phone", saved.Phone),
			slog.Duration("took", logger.RoundMS(took)),
		)
		return msgSaved(saved.ID)
	case errors.Is(err, lead.ErrDuplicatePhone):
		e.metrics.Commit(OutcomeDuplicate, took)
		logger.Info(ctx, "flow", "lead_duplicate",
			slog.String("user_id", userID),
			slog.String("phone", c.Phone),
		)
		return msgDuplicate
	default:
		e.metrics.Commit(OutcomeError, took)
		attrs := []slog.Attr{
			slog.String("user_id", userID),
			slog.String("err", err.Error()),
			slog.Duration("took", logger.RoundMS(took)),
		}
		var perr *lead.PersistenceError
		if errors.As(err, &perr) {
			attrs = append(attrs,
				slog.String("op", perr.Op),
				slog.String("err_code", perr.Code()),
			)
		}
		logger.Error(ctx, "flow", "lead_commit_failed", attrs...)
		return msgCommitFailed
	}
}

func (e *Engine) fallback(ctx context.Context, userID, text string) string {
	e.metrics.Fallback()
	if e.responder == nil {
		return MsgFallbackUnavailable
	}
	var reply string
	err := e.call(ctx, func(ctx context.Context) error {
		reply = e.responder.Reply(ctx, userID, text)
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "flow", "fallback_failed",
			slog.String("user_id", userID),
			slog.String("err", err.Error()),
		)
		return MsgFallbackUnavailable
	}
	return reply
}

// call runs fn under the collaborator timeout. A panic inside fn is returned as an error.
// Results written by fn must only be read when call returns nil.
func (e *Engine) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("collaborator panic: %v", r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("collaborator: %w", ctx.Err())
	}
}

func (e *Engine) reportActive() {
	e.metrics.ActiveSessions(e.sessions.Len())
}
