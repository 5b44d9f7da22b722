// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/jeranaias/crmchat/internal/backend"
	"github.com/jeranaias/crmchat/internal/config"
	"github.com/jeranaias/crmchat/internal/model"
	"github.com/jeranaias/crmchat/internal/render"
)

// Controls is the input side of a front end.
type Controls interface {
	// ClearInput empties the text input and resets its size.
	ClearInput()
	// SetLoading disables input and swaps the send icon for a spinner.
	SetLoading(loading bool)
	// FocusInput returns keyboard focus to the text input.
	FocusInput()
}

// Chatter performs one backend exchange.
type Chatter interface {
	Chat(ctx context.Context, req backend.ChatRequest) (*backend.ChatResponse, error)
}

// State is everything an Orchestrator works with.
type State struct {
	SessionID string
	View      render.View
	Controls  Controls
	Backend   Chatter
	// FallbackError is shown when no response arrived. Empty uses the default.
	FallbackError string
	Logger        zerolog.Logger
}

// Orchestrator sequences exchanges for one session.
type Orchestrator struct {
	state    State
	inFlight atomic.Bool
}

// New returns an Orchestrator bound to state.
func New(state State) (*Orchestrator, error) {
	switch {
	case state.SessionID == "":
		return nil, errors.New("orchestrator: session id is required")
	case state.View == nil:
		return nil, errors.New("orchestrator: view is required")
	case state.Controls == nil:
		return nil, errors.New("orchestrator: controls are required")
	case state.Backend == nil:
		return nil, errors.New("orchestrator: backend is required")
	}
	if state.FallbackError == "" {
		state.FallbackError = config.DefaultFallbackError
	}
	return &Orchestrator{state: state}, nil
}

// SessionID returns the identifier sent with every exchange.
func (o *Orchestrator) SessionID() string {
	return o.state.SessionID
}

// Pending reports whether an exchange is in flight.
func (o *Orchestrator) Pending() bool {
	return o.inFlight.Load()
}

// =============================================================================
// EXCHANGE LIFECYCLE
// =============================================================================

// Exchange is a begun send awaiting its network step.
type Exchange struct {
	sessionID string
	message   string
	backend   Chatter
}

// Message returns the text being sent, exactly as typed.
func (e *Exchange) Message() string { return e.message }

// Outcome is the result of Exchange.Do.
type Outcome struct {
	Response *backend.ChatResponse
	Err      error
}

// Begin starts a send. It returns false without side effects when text is
// blank or another exchange is pending. Otherwise the user message is
// rendered, the input cleared and the loading state shown.
func (o *Orchestrator) Begin(text string) (*Exchange, bool) {
	if strings.TrimSpace(text) == "" {
		return nil, false
	}
	if !o.inFlight.CompareAndSwap(false, true) {
		o.state.Logger.Debug().Msg("send ignored while an exchange is pending")
		return nil, false
	}

	o.state.View.RenderMessage(model.NewUserMessage(text))
	o.state.Controls.ClearInput()
	o.state.Controls.SetLoading(true)

	return &Exchange{
		sessionID: o.state.SessionID,
		message:   text,
		backend:   o.state.Backend,
	}, true
}

// Do performs the network call. It touches neither view nor controls and is
// safe to run off the UI goroutine.
func (e *Exchange) Do(ctx context.Context) Outcome {
	resp, err := e.backend.Chat(ctx, backend.ChatRequest{
		SessionID: e.sessionID,
		Message:   e.message,
	})
	return Outcome{Response: resp, Err: err}
}

// Complete renders the outcome and returns the UI to idle. Cleanup runs
// even if rendering panics.
func (o *Orchestrator) Complete(out Outcome) {
	defer func() {
		o.state.Controls.SetLoading(false)
		o.state.Controls.FocusInput()
		o.inFlight.Store(false)
	}()

	if out.Err != nil {
		notice := o.Describe(out.Err)
		o.state.Logger.Warn().Err(out.Err).Msg("chat exchange failed")
		o.state.View.RenderError(notice)
		return
	}
	if out.Response == nil {
		o.state.View.RenderError(o.state.FallbackError)
		return
	}
	o.state.View.RenderMessage(model.NewAssistantMessage(out.Response.Response, out.Response.AgentUsed))
}

// Send runs a whole exchange synchronously. Blank input does nothing.
func (o *Orchestrator) Send(ctx context.Context, text string) {
	ex, ok := o.Begin(text)
	if !ok {
		return
	}
	o.Complete(ex.Do(ctx))
}

// Describe words an exchange error for the conversation:
// server rejections show status and body, missing responses show the
// fallback text, and undecodable replies say so.
func (o *Orchestrator) Describe(err error) string {
	var statusErr *backend.StatusError
	switch {
	case errors.As(err, &statusErr):
		return statusErr.Error()
	case errors.Is(err, backend.ErrMalformedResponse):
		return fmt.Sprintf("Malformed response from server: %s", malformedDetail(err))
	default:
		return o.state.FallbackError
	}
}

// malformedDetail strips the sentinel's own text from the wrapped error.
func malformedDetail(err error) string {
	msg := err.Error()
	prefix := backend.ErrMalformedResponse.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return msg[len(prefix):]
	}
	return msg
}
