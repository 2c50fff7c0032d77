// Package submission drives a form session through validation, summary
// composition and dispatch to the host messaging client.
package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-pickupform/pkg/compose"
	"github.com/goliatone/go-pickupform/pkg/form"
	"github.com/goliatone/go-pickupform/pkg/host"
	"github.com/goliatone/go-pickupform/pkg/validation"
)

// DefaultSendTimeout bounds the message dispatch.
const DefaultSendTimeout = 10 * time.Second

// Result describes a finished Submit. State is the last state reached before
// the flow returned to Idle.
type Result struct {
	State      State
	Summary    string
	Dispatched bool
	Message    string
}

// Orchestrator owns the submit flow of one session.
type Orchestrator struct {
	session     *form.Session
	host        host.Client
	validator   *validation.Validator
	composer    *compose.Composer
	logger      *zap.Logger
	hooks       []Hook
	sendTimeout time.Duration

	mu    sync.Mutex
	state State
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithValidator overrides the validator.
func WithValidator(v *validation.Validator) Option {
	return func(o *Orchestrator) {
		if v != nil {
			o.validator = v
		}
	}
}

// WithComposer overrides the summary composer.
func WithComposer(c *compose.Composer) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.composer = c
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHook registers a transition observer.
func WithHook(hook Hook) Option {
	return func(o *Orchestrator) {
		if hook != nil {
			o.hooks = append(o.hooks, hook)
		}
	}
}

// WithSendTimeout bounds the dispatch call.
func WithSendTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.sendTimeout = d
		}
	}
}

// New builds an Orchestrator. A nil client behaves like host.Detached.
func New(session *form.Session, client host.Client, options ...Option) (*Orchestrator, error) {
	if session == nil {
		return nil, errors.New("submission: session is nil")
	}
	if client == nil {
		client = host.Detached{}
	}
	o := &Orchestrator{
		session:     session,
		host:        client,
		logger:      zap.NewNop(),
		sendTimeout: DefaultSendTimeout,
	}
	for _, opt := range options {
		if opt != nil {
			opt(o)
		}
	}
	if o.validator == nil {
		o.validator = validation.New()
	}
	if o.composer == nil {
		c, err := compose.New()
		if err != nil {
			return nil, fmt.Errorf("submission: %w", err)
		}
		o.composer = c
	}
	o.logger = o.logger.With(zap.String("session", session.ID()))
	return o, nil
}

// Session returns the session being submitted.
func (o *Orchestrator) Session() *form.Session { return o.session }

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Connect initialises the host client, triggers a login when the user is not
// yet known and prefills the platform name from the user profile. An init
// failure is recorded as a host warning on the session and returned as
// *host.InitError; the form stays usable.
func (o *Orchestrator) Connect(ctx context.Context) error {
	if err := o.host.Init(ctx); err != nil {
		o.session.SetHostWarning(host.InitWarning)
		o.logger.Warn("host init failed", zap.Error(err))
		var initErr *host.InitError
		if !errors.As(err, &initErr) {
			err = &host.InitError{Err: err}
		}
		return err
	}
	if !o.host.LoggedIn() {
		if err := o.host.Login(ctx); err != nil {
			if errors.Is(err, host.ErrNotInClient) {
				o.logger.Debug("host login skipped", zap.Error(err))
			} else {
				o.logger.Warn("host login failed", zap.Error(err))
			}
			return nil
		}
	}
	profile, err := o.host.Profile(ctx)
	if err != nil {
		o.logger.Warn("profile fetch failed", zap.Error(err))
		return nil
	}
	if o.session.PrefillPlatformName(profile.DisplayName) {
		o.logger.Debug("platform name prefilled")
	}
	return nil
}

// Submit validates the current request, composes the summary and sends it
// when running inside the host client. A successful run resets the session.
// Validation failures return *validation.Error, send failures
// *DispatchError; in both cases the request is kept.
func (o *Orchestrator) Submit(ctx context.Context) (Result, error) {
	if !o.session.BeginSubmit() {
		return Result{State: o.State()}, ErrBusy
	}
	o.transition(Validating, nil)

	req := o.session.Request()
	if err := o.validator.Validate(req, o.session.Variant()); err != nil {
		if verr, ok := validation.AsError(err); ok {
			o.session.AbortSubmit(verr.Message)
			o.transition(Invalid, verr)
			o.transition(Idle, nil)
			return Result{State: Invalid, Message: verr.Message}, verr
		}
		return o.fail(fmt.Errorf("submission: validate: %w", err), "", MsgCheckFailed)
	}

	o.transition(Valid, nil)

	summary, err := o.composer.Compose(req)
	if err != nil {
		return o.fail(fmt.Errorf("submission: %w", err), "", MsgCheckFailed)
	}

	o.transition(Sending, nil)
	dispatched := false
	if o.host.InClient() {
		sendCtx, cancel := context.WithTimeout(ctx, o.sendTimeout)
		err := o.host.SendMessages(sendCtx, []host.Message{host.NewText(summary)})
		cancel()
		if err != nil {
			return o.fail(&DispatchError{Err: err}, summary, MsgSendFailed)
		}
		dispatched = true
	} else {
		o.logger.Info("not inside the host client, dispatch skipped")
	}

	o.session.CompleteSubmit()
	o.transition(Sent, nil)
	o.transition(Idle, nil)
	return Result{State: Sent, Summary: summary, Dispatched: dispatched, Message: form.MsgSubmitted}, nil
}

func (o *Orchestrator) fail(err error, summary, message string) (Result, error) {
	o.session.AbortSubmit(message)
	o.transition(Failed, err)
	o.transition(Idle, nil)
	return Result{State: Failed, Summary: summary, Message: message}, err
}

func (o *Orchestrator) transition(to State, err error) {
	o.mu.Lock()
	from := o.state
	o.state = to
	o.mu.Unlock()

	fields := []zap.Field{zap.Stringer("from", from), zap.Stringer("to", to)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	switch to {
	case Failed:
		o.logger.Error("submission transition", fields...)
	case Invalid:
		o.logger.Info("submission transition", fields...)
	default:
		o.logger.Debug("submission transition", fields...)
	}

	t := Transition{SessionID: o.session.ID(), From: from, To: to, Err: err}
	for _, hook := range o.hooks {
		hook(t)
	}
}
