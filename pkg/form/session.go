// Package form owns the mutable state of one contact form: the request being
// edited, the address lookup statuses and the submit flags.
//
// A Session is safe for concurrent use. Postal code edits dispatch lookups in
// background goroutines; their answers are applied only while they are still
// current for the address block they were issued for.
package form

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/postal"
	"github.com/goliatone/go-pickupform/pkg/rules"
)

// Submit button labels and the confirmation line shown after a send.
const (
	LabelSubmit  = "この内容で送信する"
	LabelSending = "送信中…"
	MsgSubmitted = "送信しました。LINEをご確認ください。"
)

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	ID          string
	Request     model.ContactRequest
	Lookup      map[model.Target]string
	Submitting  bool
	Submitted   bool
	Error       string
	HostWarning string
}

// SubmitLabel returns the label of the submit control.
func (s Snapshot) SubmitLabel() string {
	if s.Submitting {
		return LabelSending
	}
	return LabelSubmit
}

type lookupSlot struct {
	seq    uint64
	cancel context.CancelFunc
	status string
}

// Session is one form being filled in.
type Session struct {
	id            string
	variant       rules.Variant
	lookuper      postal.Lookuper
	merge         model.MergePolicy
	debounce      time.Duration
	lookupTimeout time.Duration
	logger        *zap.Logger

	mu          sync.Mutex
	req         model.ContactRequest
	slots       map[model.Target]*lookupSlot
	submitting  bool
	submitted   bool
	errMsg      string
	hostWarning string

	wg sync.WaitGroup
}

// Option configures a Session.
type Option func(*Session)

// WithLogger attaches a logger; lines are tagged with the session id.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDebounce delays each lookup by d; a newer edit within the window
// supersedes the pending one.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLookupTimeout bounds each lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}

// WithMergePolicy overrides the variant's merge policy.
func WithMergePolicy(policy model.MergePolicy) Option {
	return func(s *Session) {
		if policy.Valid() {
			s.merge = policy
		}
	}
}

// WithID fixes the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) {
		if id = strings.TrimSpace(id); id != "" {
			s.id = id
		}
	}
}

// NewSession starts a session for variant. lookuper may be nil, in which case
// every lookup fails.
func NewSession(variant rules.Variant, lookuper postal.Lookuper, options ...Option) *Session {
	s := &Session{
		id:            uuid.NewString(),
		variant:       variant,
		lookuper:      lookuper,
		merge:         variant.MergePolicy,
		lookupTimeout: postal.DefaultTimeout,
		logger:        zap.NewNop(),
		req:           model.Defaults(),
		slots:         make(map[model.Target]*lookupSlot, 2),
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	if !s.merge.Valid() {
		s.merge = model.MergeOverwrite
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	for _, target := range []model.Target{model.TargetSite, model.TargetDestination} {
		s.slots[target] = &lookupSlot{}
	}
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Variant returns the rule variant the session validates against.
func (s *Session) Variant() rules.Variant { return s.variant }

// Logger returns the session-tagged logger.
func (s *Session) Logger() *zap.Logger { return s.logger }

// Request returns a copy of the current request.
func (s *Session) Request() model.ContactRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req.Clone()
}

// Snapshot returns a copy of the whole session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	lookup := make(map[model.Target]string, len(s.slots))
	for target, slot := range s.slots {
		if slot.status != "" {
			lookup[target] = slot.status
		}
	}
	return Snapshot{
		ID:          s.id,
		Request:     s.req.Clone(),
		Lookup:      lookup,
		Submitting:  s.submitting,
		Submitted:   s.submitted,
		Error:       s.errMsg,
		HostWarning: s.hostWarning,
	}
}

// LookupStatus returns the status line of an address block.
func (s *Session) LookupStatus(target model.Target) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[target]; ok {
		return slot.status
	}
	return ""
}

// Set normalises value and stores it under key. Postal code keys dispatch an
// address lookup once they hold seven digits.
func (s *Session) Set(key model.FieldKey, value string) error {
	field, ok := model.Lookup(key)
	if !ok {
		return fmt.Errorf("form: unknown field %q", key)
	}
	if field.Kind == model.KindFiles {
		return fmt.Errorf("form: field %q holds attachments; use SetAttachments", key)
	}
	value = model.Normalize(key, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.req.Set(key, value)
	if target, ok := model.TargetOf(key); ok {
		s.dispatchLocked(target, value)
	}
	return nil
}

// SetAttachments replaces the attached files. Only base names are kept.
func (s *Session) SetAttachments(files []model.Attachment) {
	var out []model.Attachment
	for _, file := range files {
		name := strings.TrimSpace(file.Name)
		if name == "" {
			continue
		}
		out = append(out, model.Attachment{Name: filepath.Base(name), Size: file.Size})
	}
	s.mu.Lock()
	s.req.Images = out
	s.mu.Unlock()
}

// PrefillPlatformName stores the host profile display name unless the field
// already holds a value. It reports whether the name was written.
func (s *Session) PrefillPlatformName(name string) bool {
	name = model.Normalize(model.FieldPlatformName, strings.TrimSpace(name))
	if name == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.req.PlatformName != "" {
		return false
	}
	s.req.PlatformName = name
	return true
}

// SetHostWarning records a non-blocking host warning.
func (s *Session) SetHostWarning(msg string) {
	s.mu.Lock()
	s.hostWarning = msg
	s.mu.Unlock()
}

// BeginSubmit marks the session busy. It returns false when a submit is
// already in progress.
func (s *Session) BeginSubmit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return false
	}
	s.submitting = true
	s.submitted = false
	s.errMsg = ""
	return true
}

// CompleteSubmit resets the form after a successful send and raises the
// submitted flag.
func (s *Session) CompleteSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.submitted = true
}

// AbortSubmit clears the busy flag and records msg as the form error. The
// request is left untouched.
func (s *Session) AbortSubmit(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.errMsg = msg
}

// Reset discards the request, lookup statuses and submit flags. In-flight
// lookups are cancelled and their answers ignored.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	s.submitted = false
	s.hostWarning = ""
}

// Wait blocks until every dispatched lookup has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels in-flight lookups and waits for them to return.
func (s *Session) Close() {
	s.mu.Lock()
	for _, slot := range s.slots {
		slot.seq++
		if slot.cancel != nil {
			slot.cancel()
			slot.cancel = nil
		}
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) resetLocked() {
	for _, slot := range s.slots {
		slot.seq++
		if slot.cancel != nil {
			slot.cancel()
			slot.cancel = nil
		}
		slot.status = ""
	}
	s.req = model.Defaults()
	s.submitting = false
	s.errMsg = ""
}
