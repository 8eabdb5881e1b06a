// Package flow models the client side of the connect flow as an explicit
// finite-state machine. Transition is pure; Orchestrator executes the effects
// it returns.
package flow

import (
	"errors"
	"fmt"

	"github.com/neurasense/connect/internal/core/domain"
)

// ErrInvalidTransition is returned when an event is not accepted in the
// current state. The state is left unchanged.
var ErrInvalidTransition = errors.New("invalid transition")

// Phase is the stage of the connect flow.
type Phase int

const (
	Idle Phase = iota
	Confirming
	Redirecting
	Returned
	Confirmed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Confirming:
		return "confirming"
	case Redirecting:
		return "redirecting"
	case Returned:
		return "returned"
	case Confirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the current phase plus the provider it concerns, if any.
type State struct {
	Phase    Phase
	Provider domain.Provider
}

func (s State) String() string {
	if s.Provider == "" {
		return s.Phase.String()
	}
	return s.Phase.String() + "(" + string(s.Provider) + ")"
}

// EventKind identifies an input to the machine.
type EventKind int

const (
	// EventRequest: the user clicked connect on a provider.
	EventRequest EventKind = iota
	// EventCancel: the user dismissed the consent modal.
	EventCancel
	// EventConfirm: the user accepted the consent modal.
	EventConfirm
	// EventTokenReady: the identity token needed for the initiate URL arrived.
	EventTokenReady
	// EventFail: fetching the identity token failed.
	EventFail
	// EventReturn: the app reloaded with ?oauth={provider}.
	EventReturn
	// EventAcknowledge: the user picked stay or dashboard in the post-connect modal.
	EventAcknowledge
)

// Choice is the user's answer to the post-connect modal.
type Choice int

const (
	Stay Choice = iota
	Dashboard
)

// Event is one input to Transition.
type Event struct {
	Kind     EventKind
	Provider domain.Provider
	Token    string
	Choice   Choice
	Err      error
}

func Request(p domain.Provider) Event { return Event{Kind: EventRequest, Provider: p} }
func Cancel() Event { return Event{Kind: EventCancel} }
func Confirm() Event { return Event{Kind: EventConfirm} }
func TokenReady(token string) Event { return Event{Kind: EventTokenReady, Token: token} }
func Fail(err error) Event { return Event{Kind: EventFail, Err: err} }
func Return(p domain.Provider) Event { return Event{Kind: EventReturn, Provider: p} }
func Acknowledge(choice Choice) Event { return Event{Kind: EventAcknowledge, Choice: choice} }

// EffectKind identifies a side effect the driver must perform.
type EffectKind int

const (
	EffectFetchIdentityToken EffectKind = iota
	EffectNavigate
	EffectRefreshStatus
	EffectShowToast
	EffectShowPostConnectModal
	EffectGoToDashboard
)

// Effect is a side effect requested by a transition.
type Effect struct {
	Kind     EffectKind
	Provider domain.Provider
	Token    string
	Message  string
}

// Transition computes the next state and the effects to run. An event that is
// not accepted returns ErrInvalidTransition with the input state unchanged.
func Transition(s State, ev Event) (State, []Effect, error) {
	switch s.Phase {
	case Idle, Confirmed:
		switch ev.Kind {
		case EventRequest:
			if !ev.Provider.IsValid() {
				return s, nil, fmt.Errorf("%w: %w", ErrInvalidTransition, domain.ErrUnknownProvider)
			}
			return State{Phase: Confirming, Provider: ev.Provider}, nil, nil
		case EventReturn:
			return returned(s, ev)
		}

	case Confirming:
		switch ev.Kind {
		case EventCancel:
			return State{Phase: Idle}, nil, nil
		case EventConfirm:
			return State{Phase: Redirecting, Provider: s.Provider},
				[]Effect{{Kind: EffectFetchIdentityToken, Provider: s.Provider}}, nil
		}

	case Redirecting:
		switch ev.Kind {
		case EventTokenReady:
			if ev.Token == "" {
				break
			}
			return s, []Effect{{Kind: EffectNavigate, Provider: s.Provider, Token: ev.Token}}, nil
		case EventFail:
			msg := "Could not start " + s.Provider.DisplayName() + " connection"
			if ev.Err != nil {
				msg += ": " + ev.Err.Error()
			}
			return State{Phase: Idle}, []Effect{{Kind: EffectShowToast, Provider: s.Provider, Message: msg}}, nil
		case EventReturn:
			return returned(s, ev)
		}

	case Returned:
		if ev.Kind == EventAcknowledge {
			next := State{Phase: Confirmed, Provider: s.Provider}
			if ev.Choice == Dashboard {
				return next, []Effect{{Kind: EffectGoToDashboard}}, nil
			}
			return next, nil, nil
		}
	}

	return s, nil, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev.Kind, s)
}

func returned(s State, ev Event) (State, []Effect, error) {
	if !ev.Provider.IsValid() {
		return s, nil, fmt.Errorf("%w: %w", ErrInvalidTransition, domain.ErrUnknownProvider)
	}
	return State{Phase: Returned, Provider: ev.Provider}, []Effect{
		{Kind: EffectRefreshStatus},
		{Kind: EffectShowPostConnectModal, Provider: ev.Provider},
	}, nil
}

func (k EventKind) String() string {
	switch k {
	case EventRequest:
		return "request"
	case EventCancel:
		return "cancel"
	case EventConfirm:
		return "confirm"
	case EventTokenReady:
		return "token_ready"
	case EventFail:
		return "fail"
	case EventReturn:
		return "return"
	case EventAcknowledge:
		return "acknowledge"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}
