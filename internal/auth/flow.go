// Package auth drives the login view: one form that either logs in or signs up.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/router"
)

const (
	MsgInvalidCredentials = "Invalid credentials"
	MsgServerError        = "Server error"
	MsgLoginSucceeded     = "Login successful!"
	MsgSignupSucceeded    = "Signup successful!"
)

var ErrInFlight = errors.New("authentication already in flight")

var tracer = otel.Tracer("github.com/fjod/go_cart/storefront/internal/auth")

type API interface {
	Login(ctx context.Context, username, password string) (api.AuthResult, error)
	Signup(ctx context.Context, username, password string) (api.AuthResult, error)
}

type TokenWriter interface {
	Set(ctx context.Context, c domain.Credential) error
}

// Gate is flipped on success whether or not a token came back.
type Gate interface {
	Authenticate()
}

type Notifier interface {
	Success(msg string)
}

type Navigator interface {
	Redirect(path string, replace bool)
}

type Mode int

const (
	ModeLogin Mode = iota
	ModeSignup
)

func (m Mode) String() string {
	if m == ModeSignup {
		return "signup"
	}
	return "login"
}

// Title labels the form and its submit button.
func (m Mode) Title() string {
	if m == ModeSignup {
		return "Sign Up"
	}
	return "Login"
}

// TogglePrompt and ToggleLabel describe the switch to the other mode.
func (m Mode) TogglePrompt() string {
	if m == ModeSignup {
		return "Already have an account?"
	}
	return "Don't have an account?"
}

func (m Mode) ToggleLabel() string {
	return (1 - m).Title()
}

type Phase string

const (
	PhaseEntering   Phase = "ENTERING"
	PhaseSubmitting Phase = "SUBMITTING"
	PhaseSucceeded  Phase = "SUCCEEDED"
	PhaseFailed     Phase = "FAILED"
)

type Flow struct {
	api    API
	tokens TokenWriter
	gate   Gate
	notify Notifier
	nav    Navigator
	log    *zap.Logger

	mu    sync.Mutex
	mode  Mode
	phase Phase
	err   string
}

func NewFlow(api API, tokens TokenWriter, gate Gate, notifier Notifier, nav Navigator, log *zap.Logger) *Flow {
	return &Flow{
		api:    api,
		tokens: tokens,
		gate:   gate,
		notify: notifier,
		nav:    nav,
		log:    log,
		phase:  PhaseEntering,
	}
}

func (f *Flow) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *Flow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Err is the message shown under the form, empty when there is none.
func (f *Flow) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// ToggleMode switches between login and signup and clears the error.
func (f *Flow) ToggleMode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = 1 - f.mode
	f.err = ""
	return f.mode
}

// Submit posts the credentials for the current mode. Rejections leave the
// flow in PhaseFailed with a message and accept another Submit.
func (f *Flow) Submit(ctx context.Context, username, password string) error {
	f.mu.Lock()
	if f.phase == PhaseSubmitting {
		f.mu.Unlock()
		return ErrInFlight
	}
	if err := validate(username, password); err != nil {
		f.mu.Unlock()
		return err
	}
	mode := f.mode
	f.phase = PhaseSubmitting
	f.err = ""
	f.mu.Unlock()

	ctx, span := tracer.Start(ctx, "auth.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("auth.mode", mode.String()))

	res, err := f.call(ctx, mode, username, password)
	if ctx.Err() != nil {
		f.setPhase(PhaseEntering, "")
		return ctx.Err()
	}
	if err != nil {
		msg := failureMessage(err)
		f.log.Warn("authentication failed", zap.Stringer("mode", mode), zap.String("reason", msg), zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		f.setPhase(PhaseFailed, msg)
		return fmt.Errorf("%s: %w", mode, err)
	}

	if res.Token != "" {
		if err := f.tokens.Set(ctx, res.Token); err != nil {
			f.log.Error("store credential failed", zap.Error(err))
			f.setPhase(PhaseFailed, MsgServerError)
			return fmt.Errorf("store credential: %w", err)
		}
	} else {
		f.log.Info("authenticated without a token", zap.Stringer("mode", mode))
	}
	f.gate.Authenticate()
	f.setPhase(PhaseSucceeded, "")

	msg := res.Message
	if msg == "" {
		msg = MsgLoginSucceeded
		if mode == ModeSignup {
			msg = MsgSignupSucceeded
		}
	}
	f.notify.Success(msg)
	f.nav.Redirect(router.PathProducts, false)
	return nil
}

func (f *Flow) call(ctx context.Context, mode Mode, username, password string) (api.AuthResult, error) {
	if mode == ModeSignup {
		return f.api.Signup(ctx, username, password)
	}
	return f.api.Login(ctx, username, password)
}

func (f *Flow) setPhase(p Phase, errMsg string) {
	f.mu.Lock()
	f.phase = p
	f.err = errMsg
	f.mu.Unlock()
}

func validate(username, password string) error {
	var missing []string
	if strings.TrimSpace(username) == "" {
		missing = append(missing, "username")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return &domain.ValidationError{Fields: missing}
	}
	return nil
}

// failureMessage maps a rejected attempt to what the form shows: the server's
// own message, a generic rejection, or a transport failure.
func failureMessage(err error) string {
	var serverErr *api.ServerError
	if !errors.As(err, &serverErr) {
		return MsgServerError
	}
	if msg, ok := api.ServerMessage(err); ok {
		return msg
	}
	return MsgInvalidCredentials
}
