// Package pickupform is the entry point for building the pickup contact form:
// rule tables, sessions with postal address lookup, summary composition and
// submission to the LINE chat thread.
package pickupform

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-pickupform/pkg/compose"
	"github.com/goliatone/go-pickupform/pkg/form"
	"github.com/goliatone/go-pickupform/pkg/host"
	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/postal"
	"github.com/goliatone/go-pickupform/pkg/rules"
	"github.com/goliatone/go-pickupform/pkg/submission"
)

// ContactRequest is the form payload; alias exported via the root package for
// convenience.
type ContactRequest = model.ContactRequest

// Variant is one rule set of the rule table.
type Variant = rules.Variant

// Session aliases form.Session.
type Session = form.Session

// Orchestrator aliases submission.Orchestrator.
type Orchestrator = submission.Orchestrator

// LoadRules returns the embedded rule table when path is empty. Otherwise path
// names a YAML rule file or a directory of them.
func LoadRules(path string) (*rules.Table, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return rules.Default()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("pickupform: rules: %w", err)
	}
	if info.IsDir() {
		return rules.LoadFS(os.DirFS(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pickupform: rules: %w", err)
	}
	return rules.Load(data)
}

// SelectVariant loads the rule table at path and picks the named variant; an
// empty name selects the table default.
func SelectVariant(path, name string) (rules.Variant, error) {
	table, err := LoadRules(path)
	if err != nil {
		return rules.Variant{}, err
	}
	variant, ok := table.Variant(name)
	if !ok {
		return rules.Variant{}, fmt.Errorf("pickupform: unknown variant %q (have %s)", name, strings.Join(table.Names(), ", "))
	}
	return variant, nil
}

// NewSession starts a form session. The variant's merge policy applies unless
// an option overrides it.
func NewSession(variant rules.Variant, lookuper postal.Lookuper, options ...form.Option) *form.Session {
	if variant.MergePolicy.Valid() {
		options = append([]form.Option{form.WithMergePolicy(variant.MergePolicy)}, options...)
	}
	return form.NewSession(variant, lookuper, options...)
}

// NewOrchestrator exposes the submission orchestrator constructor from the
// top-level module. A nil client runs detached.
func NewOrchestrator(session *form.Session, client host.Client, options ...submission.Option) (*submission.Orchestrator, error) {
	return submission.New(session, client, options...)
}

// Summarize composes the summary text for req, with the built-in banners
// unless options replace them.
func Summarize(req model.ContactRequest, options ...compose.Option) (string, error) {
	c, err := compose.New(options...)
	if err != nil {
		return "", err
	}
	return c.Compose(req)
}

// Connect initialises the host client behind o. A host init failure leaves
// the session usable; it is returned so callers can log it.
func Connect(ctx context.Context, o *submission.Orchestrator) error {
	if o == nil {
		return errors.New("pickupform: orchestrator is nil")
	}
	return o.Connect(ctx)
}

// EmbeddedTemplates exposes the built-in summary banner templates.
func EmbeddedTemplates() fs.FS {
	return compose.TemplatesFS()
}

// EmbeddedRules exposes the bundled rule tables.
func EmbeddedRules() fs.FS {
	return rules.EmbeddedFS()
}
