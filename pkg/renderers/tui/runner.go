// Package tui walks a user through the contact form in the terminal, shows
// address lookup statuses as they resolve and submits through a
// submission.Orchestrator.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-pickupform/pkg/form"
	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/postal"
	"github.com/goliatone/go-pickupform/pkg/submission"
	"github.com/goliatone/go-pickupform/pkg/validation"
	"github.com/goliatone/go-pickupform/pkg/visibility"
	"github.com/goliatone/go-pickupform/pkg/visibility/expr"
)

const (
	requiredMark   = "（必須）"
	unselected     = "（未選択）"
	attachmentHelp = "ファイルパスをカンマ区切りで入力（空欄で添付なし）"
	dateTimeHelp   = "例: 2024-03-01 10:00"
	confirmMessage = form.LabelSubmit + "？"
)

// Runner drives one session from first prompt to a finished submit.
type Runner struct {
	driver      PromptDriver
	theme       Theme
	stat        StatFunc
	logger      *zap.Logger
	eval        visibility.Evaluator
	maxAttempts int
}

// New builds a Runner with the survey driver.
func New(options ...Option) (*Runner, error) {
	r := &Runner{
		driver:      NewSurveyDriver(nil),
		theme:       DefaultTheme,
		stat:        osStat,
		logger:      zap.NewNop(),
		eval:        expr.New(),
		maxAttempts: 5,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}
	return r, nil
}

// Run prompts every field, then asks for confirmation and submits. Fields
// named by a validation failure are prompted again; a failed send can be
// retried. Declining the confirmation returns ErrAborted.
func (r *Runner) Run(ctx context.Context, o *submission.Orchestrator) (submission.Result, error) {
	if ctx == nil {
		return submission.Result{}, errors.New("tui: context is required")
	}
	if o == nil {
		return submission.Result{}, errors.New("tui: orchestrator is nil")
	}
	session := o.Session()
	if warning := session.Snapshot().HostWarning; warning != "" {
		r.warn(ctx, warning)
	}

	if err := r.fill(ctx, session, nil); err != nil {
		return submission.Result{}, err
	}

	var (
		last    submission.Result
		lastErr error
	)
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		ok, err := r.driver.Confirm(ctx, ConfirmConfig{Message: confirmMessage, Default: true})
		if err != nil {
			return last, err
		}
		if !ok {
			return last, ErrAborted
		}

		last, lastErr = o.Submit(ctx)
		if lastErr == nil {
			r.info(ctx, last.Message)
			return last, nil
		}

		if verr, ok := validation.AsError(lastErr); ok {
			r.fail(ctx, verr.Message)
			if len(verr.Fields) == 0 {
				return last, ErrNoProgress
			}
			if err := r.fill(ctx, session, verr.Fields); err != nil {
				return last, err
			}
			continue
		}
		var derr *submission.DispatchError
		if errors.As(lastErr, &derr) {
			r.fail(ctx, last.Message)
			r.logger.Warn("dispatch failed", zap.Error(derr))
			continue
		}
		if last.Message != "" {
			r.fail(ctx, last.Message)
		}
		return last, lastErr
	}
	return last, lastErr
}

// fill prompts the given keys in form order, or every field when keys is
// empty. Destination fields are skipped unless the chosen service needs them.
func (r *Runner) fill(ctx context.Context, session *form.Session, keys []model.FieldKey) error {
	wanted := make(map[model.FieldKey]struct{}, len(keys))
	for _, key := range keys {
		wanted[key] = struct{}{}
	}
	for _, field := range model.Fields() {
		if len(wanted) > 0 {
			if _, ok := wanted[field.Key]; !ok {
				continue
			}
		}
		if field.Group == model.GroupDestination && !session.Request().NeedsDestination() {
			continue
		}
		if err := r.promptField(ctx, session, field); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) promptField(ctx context.Context, session *form.Session, field model.Field) error {
	switch field.Kind {
	case model.KindSelect:
		return r.promptSelect(ctx, session, field)
	case model.KindTextArea:
		return r.promptTextArea(ctx, session, field)
	case model.KindFiles:
		return r.promptFiles(ctx, session, field)
	default:
		return r.promptInput(ctx, session, field)
	}
}

func (r *Runner) promptInput(ctx context.Context, session *form.Session, field model.Field) error {
	req := session.Request()
	current, _ := req.Get(field.Key)
	required := r.required(session, field.Key, req)

	help := field.Placeholder
	if field.Kind == model.KindDateTime {
		help = dateTimeHelp
		current = strings.Replace(current, "T", " ", 1)
	}

	for {
		response, err := r.driver.Input(ctx, InputConfig{
			Message: label(field, required),
			Default: current,
			Help:    help,
		})
		if err != nil {
			return err
		}
		value := strings.TrimSpace(response)

		if value == "" {
			if required {
				r.fail(ctx, validation.MsgRequired)
				continue
			}
		} else if msg := checkFormat(field, value); msg != "" {
			r.fail(ctx, msg)
			continue
		}

		if field.Kind == model.KindDateTime {
			value = strings.Replace(value, " ", "T", 1)
		}
		if err := session.Set(field.Key, value); err != nil {
			return err
		}
		if field.Kind == model.KindPostal {
			r.awaitLookup(ctx, session, field.Key)
		}
		return nil
	}
}

func (r *Runner) promptSelect(ctx context.Context, session *form.Session, field model.Field) error {
	req := session.Request()
	current, _ := req.Get(field.Key)
	required := r.required(session, field.Key, req)

	options := field.Options
	if field.Key == model.FieldService {
		options = options[:0]
		for _, service := range session.Variant().Services {
			options = append(options, string(service))
		}
	}
	if !required && current == "" {
		options = append([]string{unselected}, options...)
	}

	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      label(field, required),
			Options:      options,
			DefaultIndex: indexOf(options, current),
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(options) {
			r.fail(ctx, validation.MsgOption)
			continue
		}
		value := options[idx]
		if value == unselected {
			value = ""
		}
		return session.Set(field.Key, value)
	}
}

func (r *Runner) promptTextArea(ctx context.Context, session *form.Session, field model.Field) error {
	req := session.Request()
	current, _ := req.Get(field.Key)
	required := r.required(session, field.Key, req)

	for {
		response, err := r.driver.TextArea(ctx, TextAreaConfig{
			Message: label(field, required),
			Default: current,
			Help:    field.Placeholder,
		})
		if err != nil {
			return err
		}
		if required && strings.TrimSpace(response) == "" {
			r.fail(ctx, validation.MsgRequired)
			continue
		}
		return session.Set(field.Key, strings.TrimRight(response, "\n"))
	}
}

func (r *Runner) promptFiles(ctx context.Context, session *form.Session, field model.Field) error {
	req := session.Request()
	required := r.required(session, field.Key, req)
	names := make([]string, 0, len(req.Images))
	for _, image := range req.Images {
		names = append(names, image.Name)
	}

	for {
		response, err := r.driver.Input(ctx, InputConfig{
			Message: label(field, required),
			Default: strings.Join(names, ", "),
			Help:    attachmentHelp,
		})
		if err != nil {
			return err
		}
		if len(names) > 0 && strings.TrimSpace(response) == strings.Join(names, ", ") {
			return nil
		}

		var (
			files  []model.Attachment
			broken string
		)
		for _, part := range strings.Split(response, ",") {
			path := strings.TrimSpace(part)
			if path == "" {
				continue
			}
			size, err := r.stat(path)
			if err != nil {
				broken = path
				break
			}
			files = append(files, model.Attachment{Name: path, Size: size})
		}
		if broken != "" {
			r.fail(ctx, fmt.Sprintf("ファイルを開けません: %s", broken))
			continue
		}
		if required && len(files) == 0 {
			r.fail(ctx, validation.MsgImages)
			continue
		}
		session.SetAttachments(files)
		return nil
	}
}

// awaitLookup reports the lookup status for a postal code field once the
// dispatched lookup has settled.
func (r *Runner) awaitLookup(ctx context.Context, session *form.Session, key model.FieldKey) {
	target, ok := model.TargetOf(key)
	if !ok {
		return
	}
	if status := session.LookupStatus(target); status == postal.StatusSearching {
		r.info(ctx, status)
	}

	done := make(chan struct{})
	go func() {
		session.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return
	}

	if status := session.LookupStatus(target); status != "" {
		r.warn(ctx, status)
		return
	}
	keys, _ := model.AddressFor(target)
	req := session.Request()
	prefecture, _ := req.Get(keys.Prefecture)
	city, _ := req.Get(keys.City)
	if prefecture != "" || city != "" {
		r.info(ctx, prefecture+city)
	}
}

func (r *Runner) required(session *form.Session, key model.FieldKey, req model.ContactRequest) bool {
	ok, err := session.Variant().Required(key, req, r.eval)
	if err != nil {
		r.logger.Warn("rule evaluation failed", zap.String("field", string(key)), zap.Error(err))
		return false
	}
	return ok
}

func checkFormat(field model.Field, value string) string {
	switch field.Kind {
	case model.KindPostal:
		if !postal.IsZipcode(model.Digits(value)) {
			if field.Group == model.GroupDestination {
				return validation.MsgDestinationPostal
			}
			return validation.MsgSitePostal
		}
	case model.KindDateTime:
		if _, err := time.Parse(model.DateTimeLayout, strings.Replace(value, " ", "T", 1)); err != nil {
			return validation.MsgPickupDate
		}
	}
	return ""
}

func label(field model.Field, required bool) string {
	if required {
		return field.Label + requiredMark
	}
	return field.Label
}

func (r *Runner) info(ctx context.Context, msg string) {
	if msg != "" {
		_ = r.driver.Info(ctx, r.theme.InfoPrefix+msg)
	}
}

func (r *Runner) warn(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.WarningPrefix+msg)
}

func (r *Runner) fail(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}
